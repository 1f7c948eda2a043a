package extractor

import (
	"context"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

// fakeTools подменяет внешние утилиты заранее заданным выводом:
// тесты не зависят от установленного TSK и реальных образов.
type fakeTools struct {
	partitions string            // вывод утилиты разделов
	listings   map[string]string // meta addr ("" = корень) -> листинг
	content    map[string][]byte // content id -> байты файла
	listCalls  []string          // адреса в порядке листинга
}

func (f *fakeTools) Output(_ context.Context, tool string, args ...string) (string, error) {
	switch tool {
	case toolPartitions:
		return f.partitions, nil
	case toolListDir:
		addr := ""
		if len(args) == 4 {
			addr = args[3]
		}
		f.listCalls = append(f.listCalls, addr)
		return f.listings[addr], nil
	}
	return "", fmt.Errorf("unexpected tool %s", tool)
}

func (f *fakeTools) OutputToFile(_ context.Context, dest string, tool string, args ...string) error {
	if tool != toolCatFile {
		return fmt.Errorf("unexpected tool %s", tool)
	}
	id := args[len(args)-1]
	return os.WriteFile(dest, f.content[id], 0644)
}

// Одна NTFS-партиция на 80 GiB плюс шум таблицы разделов.
const testPartitionTable = `DOS Partition Table
Offset Sector: 0
Units are in 512-byte sectors

      Slot      Start        End          Length       Description
000:  Meta      0000000000   0000000000   0000000001   Primary Table (#0)
001:  -------   0000000000   0000002047   0000002048   Unallocated
002:  000:000   0000002048   0167774207   0167772160   NTFS / exFAT (0x07)
`

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestEngine(t *testing.T, tools *fakeTools) *Engine {
	t.Helper()
	if tools.partitions == "" {
		tools.partitions = testPartitionTable
	}
	e, err := NewEngine(context.Background(), "image.dd", Config{}, tools, quietLogger())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func flsDir(id, name string) string  { return fmt.Sprintf("d/d %s:\t%s\n", id, name) }
func flsFile(id, name string) string { return fmt.Sprintf("r/r %s:\t%s\n", id, name) }
