package extractor

import (
	"context"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Сквозной сценарий: образ с одной NTFS-партицией на 80 GiB и
// неразмеченной областью, два профиля пользователей, у каждого по
// одному подходящему файлу во временной директории.
func TestExtractFilesUserProfiles(t *testing.T) {
	tools := &fakeTools{
		partitions: testPartitionTable,
		listings: map[string]string{
			"":    flsDir("36-144-1", "Users"),
			"36":  flsDir("100-144-1", "alice") + flsDir("101-144-1", "bob") + flsDir("102-144-1", "Default"),
			"100": flsDir("110-144-1", "AppData"),
			"110": flsDir("120-144-1", "Local"),
			"120": flsDir("130-144-1", "Temp"),
			"130": flsFile("140-128-1", "dropper.exe") + flsFile("141-128-1", "readme.txt"),
			"101": flsDir("111-144-1", "AppData"),
			"111": flsDir("121-144-1", "Local"),
			"121": flsDir("131-144-1", "Temp"),
			"131": flsFile("150-128-1", "loader.exe"),
		},
		content: map[string][]byte{
			"140-128-1": []byte("MZ alice"),
			"150-128-1": []byte("MZ bob"),
		},
	}
	e := newTestEngine(t, tools)
	outputDir := t.TempDir()

	got := e.ExtractFiles(context.Background(),
		[]string{"/Users/*/AppData/Local/Temp/*.exe"}, outputDir)

	expected := []string{
		filepath.Join(outputDir, "dropper.exe"), // alice перечислена первой
		filepath.Join(outputDir, "loader.exe"),
	}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("Expected %v, got %v", expected, got)
	}
	assert.Equal(t, int64(2048), e.Volume().Offset)
}

// Прямой режим: ровно один листинг целевого каталога, без рекурсии.
func TestExtractFilesDirectMode(t *testing.T) {
	tools := &fakeTools{
		listings: map[string]string{
			"":   flsDir("40-144-1", "Windows"),
			"40": flsDir("50-144-1", "Prefetch"),
			"50": flsFile("60-128-1", "BOOT.pf") +
				flsFile("61-128-1", "CALC.PF") +
				flsFile("62-128-1", "notes.txt") +
				flsDir("51-144-1", "ReadyBoot"),
		},
		content: map[string][]byte{
			"60-128-1": []byte("pf1"),
			"61-128-1": []byte("pf2"),
		},
	}
	e := newTestEngine(t, tools)
	outputDir := t.TempDir()

	got := e.ExtractFiles(context.Background(),
		[]string{"/Windows/Prefetch/*.pf"}, outputDir)

	assert.Len(t, got, 2)
	assert.Equal(t, filepath.Join(outputDir, "BOOT.pf"), got[0])
	assert.Equal(t, filepath.Join(outputDir, "CALC.PF"), got[1])

	// два листинга на резолв пути + один на сам каталог; внутрь
	// ReadyBoot прямой режим не заходит
	assert.Equal(t, []string{"", "40", "50"}, tools.listCalls)
}

func TestExtractFilesNotFoundIsEmptyNotFatal(t *testing.T) {
	tools := &fakeTools{listings: map[string]string{
		"": flsDir("40-144-1", "Windows"),
	}}
	e := newTestEngine(t, tools)

	got := e.ExtractFiles(context.Background(),
		[]string{"/NoSuch/Dir/*.log"}, t.TempDir())
	assert.Empty(t, got)
}

func TestExtractFilesFailedPatternDoesNotAbortOthers(t *testing.T) {
	tools := &fakeTools{
		listings: map[string]string{
			"":   flsDir("40-144-1", "Windows"),
			"40": flsFile("70-128-1", "setupact.log"),
		},
		content: map[string][]byte{"70-128-1": []byte("log data")},
	}
	e := newTestEngine(t, tools)
	outputDir := t.TempDir()

	got := e.ExtractFiles(context.Background(), []string{
		"/Missing/Path/*",       // NotFound
		"/Windows/setupact.log", // должен извлечься
	}, outputDir)

	assert.Equal(t, []string{filepath.Join(outputDir, "setupact.log")}, got)
}

func TestExtractFilesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newTestEngine(t, &fakeTools{listings: map[string]string{
		"": flsDir("40-144-1", "Windows"),
	}})
	got := e.ExtractFiles(ctx, []string{"/Windows/*"}, t.TempDir())
	assert.Empty(t, got, "cancelled run must abandon remaining patterns")
}
