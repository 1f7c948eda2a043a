// Пакет pipeline связывает три стадии обработки образа:
// Extract (движок извлечения) → Transform (парсеры) → Load (SQLite).
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/noabee17/arshalab-forensics/parsers"
)

// Extractor — контракт движка извлечения (extractor.Engine).
type Extractor interface {
	ExtractFiles(ctx context.Context, patterns []string, outputDir string) []string
}

// Loader — контракт хранилища записей (loaders.SQLiteLoader).
type Loader interface {
	LoadRecords(artifactType string, records []parsers.Record, caseID string) (int, error)
	SaveCaseMetadata(caseID, imagePath string, counts map[string]int) error
}

// Pipeline прогоняет артефакты одного образа от извлечения до базы.
// Сбой одной стадии для одного артефакта логируется и не прерывает
// обработку остальных.
type Pipeline struct {
	image     string
	outputDir string
	engine    Extractor
	parsers   map[string]parsers.Parser
	loader    Loader
	log       *logrus.Logger
	caseID    string
}

func NewPipeline(image, outputDir string, engine Extractor,
	parserSet map[string]parsers.Parser, loader Loader, log *logrus.Logger) *Pipeline {
	return &Pipeline{
		image:     image,
		outputDir: outputDir,
		engine:    engine,
		parsers:   parserSet,
		loader:    loader,
		log:       log,
		caseID: fmt.Sprintf("case_%s_%s",
			time.Now().Format("20060102_150405"),
			strings.Split(uuid.NewString(), "-")[0]),
	}
}

func (p *Pipeline) CaseID() string { return p.caseID }

// Run обрабатывает артефакты по порядку конфигурации и в конце пишет
// паспорт кейса. Возвращает число записей по каждому артефакту.
func (p *Pipeline) Run(ctx context.Context, artifacts []ArtifactConfig) (map[string]int, error) {
	rawDir := filepath.Join(p.outputDir, "raw")
	parsedDir := filepath.Join(p.outputDir, "parsed")
	for _, dir := range []string{rawDir, parsedDir} {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}

	counts := make(map[string]int)
	for _, artifact := range artifacts {
		if ctx.Err() != nil {
			p.log.Warn("Pipeline cancelled")
			break
		}
		p.log.Infof("[%s] Processing artifact: %s", p.caseID, artifact.Name)

		artifactDir := filepath.Join(rawDir, artifact.Name)
		extracted := p.engine.ExtractFiles(ctx, artifact.Patterns, artifactDir)
		if len(extracted) == 0 {
			p.log.Warnf("[%s] Nothing extracted for %s", p.caseID, artifact.Name)
			continue
		}
		p.log.Infof("[%s] Extracted %d files for %s", p.caseID, len(extracted), artifact.Name)

		parser, ok := p.parsers[artifact.Parser]
		if !ok {
			p.log.Warnf("[%s] No parser %q, keeping raw files only", p.caseID, artifact.Parser)
			continue
		}

		records, err := parser.Parse(ctx, artifactDir, p.caseID)
		if err != nil {
			p.log.Errorf("[%s] %s failed: %v", p.caseID, parser.Name(), err)
			continue
		}
		if len(records) == 0 {
			p.log.Warnf("[%s] %s produced no records", p.caseID, parser.Name())
			continue
		}

		jsonPath := parsers.RecordsFile(parsedDir, artifact.Name, p.caseID)
		if err := parsers.WriteJSON(records, jsonPath); err != nil {
			p.log.Errorf("[%s] Cannot save %s: %v", p.caseID, jsonPath, err)
		}

		n, err := p.loader.LoadRecords(artifact.Name, records, p.caseID)
		if err != nil {
			p.log.Errorf("[%s] Load failed for %s: %v", p.caseID, artifact.Name, err)
			continue
		}
		counts[artifact.Name] = n
	}

	if err := p.loader.SaveCaseMetadata(p.caseID, p.image, counts); err != nil {
		p.log.Errorf("Cannot save case metadata: %v", err)
	}
	return counts, nil
}
