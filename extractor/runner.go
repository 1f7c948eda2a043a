package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Имена утилит The Sleuth Kit. Других инструментов ядро не знает:
// разбор структур файловой системы целиком отдан внешним утилитам.
const (
	toolPartitions = "mmls" // список разделов образа
	toolListDir    = "fls"  // листинг каталога по content id
	toolCatFile    = "icat" // выгрузка содержимого по content id
)

// ErrNoTools is returned by NewEngine when the introspection tools
// cannot be found. This is fatal: nothing works without them.
var ErrNoTools = errors.New("filesystem introspection tools not found")

// Runner invokes one external introspection tool and blocks until it
// finishes. Implementations must bound every invocation by a wall-clock
// timeout; on expiry the call fails as if the tool produced no output.
type Runner interface {
	// Output runs the tool and returns its decoded stdout.
	Output(ctx context.Context, tool string, args ...string) (string, error)
	// OutputToFile runs the tool and streams its stdout into dest.
	OutputToFile(ctx context.Context, dest string, tool string, args ...string) error
}

// SleuthKit запускает утилиты TSK как внешние процессы.
// Команды всегда собираются как вектор аргументов, без shell.
type SleuthKit struct {
	toolDir string
	timeout time.Duration
	log     *logrus.Logger
}

// NewSleuthKit resolves every required tool up front so that a missing
// installation fails engine construction, not the middle of a run.
// toolDir may be empty, in which case tools are looked up in PATH.
func NewSleuthKit(toolDir string, timeout time.Duration, log *logrus.Logger) (*SleuthKit, error) {
	for _, name := range []string{toolPartitions, toolListDir, toolCatFile} {
		if _, err := lookupTool(toolDir, name); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNoTools, name, err)
		}
	}
	return &SleuthKit{toolDir: toolDir, timeout: timeout, log: log}, nil
}

func lookupTool(toolDir, name string) (string, error) {
	if toolDir == "" {
		return exec.LookPath(name)
	}
	p := filepath.Join(toolDir, name)
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	// Windows-сборки TSK лежат рядом с расширением .exe
	if _, err := os.Stat(p + ".exe"); err == nil {
		return p + ".exe", nil
	}
	return "", fmt.Errorf("no %s in %s", name, toolDir)
}

func (sk *SleuthKit) Output(ctx context.Context, tool string, args ...string) (string, error) {
	path, err := lookupTool(sk.toolDir, tool)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, sk.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			sk.log.Warnf("Command '%s %s' timed out after %s", tool, strings.Join(args, " "), sk.timeout)
			return "", nil // по истечении таймаута — как будто вывода нет
		}
		var exitErr *exec.ExitError
		var execErr *exec.Error
		if errors.As(err, &exitErr) {
			sk.log.Warnf("Command '%s' returned error code '%d': %s",
				tool, exitErr.ExitCode(), strings.TrimSpace(stderr.String()))
		} else if errors.As(err, &execErr) && execErr.Err == exec.ErrNotFound {
			sk.log.Warnf("Command '%s' could not be found", tool)
		}
		return decodeToolOutput(stdout.Bytes()), err
	}
	return decodeToolOutput(stdout.Bytes()), nil
}

func (sk *SleuthKit) OutputToFile(ctx context.Context, dest string, tool string, args ...string) error {
	path, err := lookupTool(sk.toolDir, tool)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, sk.timeout)
	defer cancel()

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = f

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			sk.log.Warnf("Command '%s %s' timed out after %s", tool, strings.Join(args, " "), sk.timeout)
		}
		return err
	}
	return nil
}

// decodeToolOutput приводит вывод утилиты к валидному UTF-8.
// Имена файлов в образе могут быть в любой кодировке; некорректные
// байты заменяются, а не роняют разбор (аналог errors='ignore').
func decodeToolOutput(raw []byte) string {
	out, _, err := transform.Bytes(unicode.UTF8.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
