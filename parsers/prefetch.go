package parsers

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// PrefetchParser разбирает файлы Windows Prefetch (.pf) через внешнюю
// утилиту PECmd-класса: утилита пишет два CSV (основной и Timeline),
// здесь они сводятся в записи «запуск программы во время T».
type PrefetchParser struct {
	Tool      string // путь к исполняемому файлу утилиты
	OutputDir string // куда утилита складывает CSV
	Run       CommandRunner
}

func (p *PrefetchParser) Name() string        { return "Prefetch_PECmd_Parser" }
func (p *PrefetchParser) ArtifactType() string { return "prefetch" }

func (p *PrefetchParser) Description() string {
	return "Windows Prefetch files - program execution history"
}

func (p *PrefetchParser) Parse(ctx context.Context, inputPath, caseID string) ([]Record, error) {
	if err := os.MkdirAll(p.OutputDir, 0700); err != nil {
		return nil, err
	}

	args := []string{"-d", inputPath, "--csv", p.OutputDir}
	if info, err := os.Stat(inputPath); err == nil && !info.IsDir() {
		args[0] = "-f"
	}
	// ошибка утилиты не фатальна: часть CSV могла успеть записаться
	_ = p.Run(ctx, p.Tool, args...)

	mainCSV := firstGlob(p.OutputDir, "*_PECmd_Output.csv")
	timelineCSV := firstGlob(p.OutputDir, "*_Timeline.csv")

	// Метаданные из основного CSV: чистое имя исполняемого файла.
	meta := map[string]map[string]string{}
	if mainCSV != "" {
		rows, err := readCSV(mainCSV)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			name := strings.ToUpper(row["ExecutableName"])
			if name == "" {
				continue
			}
			volume := row["Volume0Name"]
			if volume == "" {
				volume = row["VolumeInformation"]
			}
			meta[name] = map[string]string{
				"hash":        row["Hash"],
				"source_file": row["SourceFilename"],
				"volume":      volume,
				"run_count":   row["RunCount"],
			}
		}
	}

	// Timeline: одна строка — один запуск.
	var records []Record
	if timelineCSV != "" {
		rows, err := readCSV(timelineCSV)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			exePath := row["ExecutableName"] // полный путь вида \VOLUME{...}\...\AI.EXE
			runTime := row["RunTime"]
			if exePath == "" || runTime == "" {
				continue
			}
			exeName := strings.ToUpper(filepath.Base(strings.ReplaceAll(exePath, `\`, "/")))

			rec := Record{
				"artifact_type":   p.ArtifactType(),
				"timestamp":       runTime,
				"executable_name": exeName,
				"executable_path": truncate(exePath, 500),
				"prefetch_hash":   "",
				"source_file":     "",
				"run_count":       0,
				"volume_info":     "",
			}
			if m, ok := meta[exeName]; ok {
				rec["prefetch_hash"] = m["hash"]
				rec["source_file"] = m["source_file"]
				rec["run_count"] = safeInt(m["run_count"])
				rec["volume_info"] = truncate(m["volume"], 500)
			}
			records = append(records, rec)
		}
	}

	attachMeta(records, p.Name(), caseID, inputPath)
	return records, nil
}

func firstGlob(dir, pattern string) string {
	matches, _ := filepath.Glob(filepath.Join(dir, pattern))
	if len(matches) == 0 {
		return ""
	}
	return matches[0]
}
