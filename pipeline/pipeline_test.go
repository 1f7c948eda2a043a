package pipeline

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noabee17/arshalab-forensics/parsers"
)

// fakeEngine раскладывает заготовленные файлы по директории артефакта.
type fakeEngine struct {
	files map[string][]byte // имя файла -> содержимое
}

func (f *fakeEngine) ExtractFiles(_ context.Context, _ []string, outputDir string) []string {
	os.MkdirAll(outputDir, 0700)
	var out []string
	for name, data := range f.files {
		dest := filepath.Join(outputDir, name)
		os.WriteFile(dest, data, 0644)
		out = append(out, dest)
	}
	return out
}

type fakeParser struct {
	records []parsers.Record
	err     error
}

func (p *fakeParser) Name() string         { return "fake" }
func (p *fakeParser) Description() string  { return "fake parser" }
func (p *fakeParser) ArtifactType() string { return "fake" }
func (p *fakeParser) Parse(_ context.Context, _, _ string) ([]parsers.Record, error) {
	return p.records, p.err
}

type memLoader struct {
	loaded   map[string]int
	metaCase string
	counts   map[string]int
}

func (l *memLoader) LoadRecords(artifactType string, records []parsers.Record, _ string) (int, error) {
	if l.loaded == nil {
		l.loaded = make(map[string]int)
	}
	l.loaded[artifactType] = len(records)
	return len(records), nil
}

func (l *memLoader) SaveCaseMetadata(caseID, _ string, counts map[string]int) error {
	l.metaCase = caseID
	l.counts = counts
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestPipelineRun(t *testing.T) {
	outputDir := t.TempDir()
	engine := &fakeEngine{files: map[string][]byte{"BOOT.pf": []byte("pf")}}
	loader := &memLoader{}
	parserSet := map[string]parsers.Parser{
		"prefetch": &fakeParser{records: []parsers.Record{
			{"artifact_type": "prefetch", "timestamp": "2024-01-01"},
		}},
	}

	p := NewPipeline("disk.dd", outputDir, engine, parserSet, loader, quietLogger())
	counts, err := p.Run(context.Background(), []ArtifactConfig{
		{Name: "prefetch", Patterns: []string{"/Windows/Prefetch/*.pf"}, Parser: "prefetch"},
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"prefetch": 1}, counts)
	assert.Equal(t, p.CaseID(), loader.metaCase)
	assert.Contains(t, p.CaseID(), "case_")

	// и сырой файл, и parsed JSON на месте
	assert.FileExists(t, filepath.Join(outputDir, "raw", "prefetch", "BOOT.pf"))
	assert.FileExists(t, parsers.RecordsFile(filepath.Join(outputDir, "parsed"), "prefetch", p.CaseID()))
}

func TestPipelineFailedParserDoesNotAbort(t *testing.T) {
	outputDir := t.TempDir()
	engine := &fakeEngine{files: map[string][]byte{"a.bin": []byte("x")}}
	loader := &memLoader{}
	parserSet := map[string]parsers.Parser{
		"bad": &fakeParser{err: assert.AnError},
		"ok":  &fakeParser{records: []parsers.Record{{"artifact_type": "lnk"}}},
	}

	p := NewPipeline("disk.dd", outputDir, engine, parserSet, loader, quietLogger())
	counts, err := p.Run(context.Background(), []ArtifactConfig{
		{Name: "evil", Patterns: []string{"/x/*"}, Parser: "bad"},
		{Name: "lnk", Patterns: []string{"/y/*"}, Parser: "ok"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"lnk": 1}, counts)
}

func TestPipelineNothingExtracted(t *testing.T) {
	p := NewPipeline("disk.dd", t.TempDir(),
		&fakeEngine{}, map[string]parsers.Parser{}, &memLoader{}, quietLogger())
	counts, err := p.Run(context.Background(), []ArtifactConfig{
		{Name: "prefetch", Patterns: []string{"/Windows/Prefetch/*.pf"}, Parser: "prefetch"},
	})
	require.NoError(t, err)
	assert.Empty(t, counts)
}
