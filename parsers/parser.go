// Пакет parsers нормализует извлечённые артефакты в JSON-записи.
// Каждый парсер либо гоняет внешнюю утилиту, создающую CSV, либо
// читает извлечённый файл напрямую (история браузера). Декодирование
// форматов самих артефактов остаётся за внешними утилитами.
package parsers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Record — одна нормализованная запись артефакта.
type Record map[string]interface{}

// Parser приводит извлечённые из образа файлы к единому виду записей.
type Parser interface {
	Name() string
	Description() string
	ArtifactType() string
	Parse(ctx context.Context, inputPath, caseID string) ([]Record, error)
}

// CommandRunner запускает внешнюю утилиту-парсер (PECmd, LECmd и
// подобные). Команда собирается вектором аргументов, без shell.
type CommandRunner func(ctx context.Context, tool string, args ...string) error

const toolTimeout = 5 * time.Minute

// ExecRunner — боевой CommandRunner поверх os/exec.
func ExecRunner(log *logrus.Logger) CommandRunner {
	return func(ctx context.Context, tool string, args ...string) error {
		ctx, cancel := context.WithTimeout(ctx, toolTimeout)
		defer cancel()

		log.Debugf("Executing: %s %s", tool, strings.Join(args, " "))
		err := exec.CommandContext(ctx, tool, args...).Run()
		if err != nil {
			var exitErr *exec.ExitError
			var execErr *exec.Error
			if errors.As(err, &exitErr) {
				log.Warnf("Command '%s' returned error code '%d'", tool, exitErr.ExitCode())
			} else if errors.As(err, &execErr) && execErr.Err == exec.ErrNotFound {
				log.Warnf("Command '%s' could not be found", tool)
			}
		}
		return err
	}
}

// readCSV читает CSV с заголовком в список map[колонка]значение.
// Строки с неожиданным числом полей пропускаются, а не ломают разбор.
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) < 2 {
		return nil, nil
	}

	header := rows[0]
	var out []map[string]string
	for _, row := range rows[1:] {
		if len(row) != len(header) {
			continue
		}
		m := make(map[string]string, len(header))
		for i, col := range header {
			m[col] = row[i]
		}
		out = append(out, m)
	}
	return out, nil
}

// attachMeta добавляет служебный блок к каждой записи:
// кем распарсено, в рамках какого кейса и когда.
func attachMeta(records []Record, parserName, caseID, sourcePath string) {
	ts := time.Now().UTC().Format(time.RFC3339)
	if caseID == "" {
		caseID = "default"
	}
	for _, rec := range records {
		rec["_meta"] = map[string]interface{}{
			"parser":      parserName,
			"case_id":     caseID,
			"parsed_at":   ts,
			"source_path": sourcePath,
		}
	}
}

func safeInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

// truncate ограничивает длину строковых полей: некоторые утилиты
// отдают пути на тысячи символов.
func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
