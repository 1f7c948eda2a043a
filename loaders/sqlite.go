// Пакет loaders складывает нормализованные записи в локальное
// хранилище. SQLite — резервный вариант оригинального пайплайна и
// единственный, не требующий внешних сервисов.
package loaders

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/noabee17/arshalab-forensics/parsers"
)

const schema = `
CREATE TABLE IF NOT EXISTS forensic_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	case_id TEXT,
	artifact_type TEXT,
	timestamp TEXT,
	data JSON,
	created_at TEXT DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_case_id ON forensic_records(case_id);
CREATE INDEX IF NOT EXISTS idx_artifact_type ON forensic_records(artifact_type);
CREATE INDEX IF NOT EXISTS idx_timestamp ON forensic_records(timestamp);

CREATE TABLE IF NOT EXISTS case_metadata (
	case_id TEXT PRIMARY KEY,
	image_path TEXT,
	created_at TEXT,
	artifacts TEXT,
	record_counts JSON
);
`

// SQLiteLoader пишет записи в базу на диске рядом с результатами.
type SQLiteLoader struct {
	db  *sql.DB
	log *logrus.Logger
}

// NewSQLiteLoader открывает (или создаёт) базу и применяет схему.
func NewSQLiteLoader(dbPath string, log *logrus.Logger) (*SQLiteLoader, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	log.Infof("Database initialized: %s", dbPath)
	return &SQLiteLoader{db: db, log: log}, nil
}

func (l *SQLiteLoader) Close() error { return l.db.Close() }

// LoadRecords вставляет записи одного типа артефакта. Битая запись
// логируется и пропускается; возвращается число успешных вставок.
func (l *SQLiteLoader) LoadRecords(artifactType string, records []parsers.Record, caseID string) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	if caseID == "" {
		caseID = "default"
	}

	tx, err := l.db.Begin()
	if err != nil {
		return 0, err
	}
	stmt, err := tx.Prepare(
		`INSERT INTO forensic_records (case_id, artifact_type, timestamp, data) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	count := 0
	for _, rec := range records {
		ts, _ := rec["timestamp"].(string)
		data, err := json.Marshal(rec)
		if err != nil {
			l.log.Warnf("Error serializing record: %v", err)
			continue
		}
		if _, err := stmt.Exec(caseID, artifactType, ts, string(data)); err != nil {
			l.log.Warnf("Error inserting record: %v", err)
			continue
		}
		count++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}

	l.log.Infof("Loaded %d %s records", count, artifactType)
	return count, nil
}

// SaveCaseMetadata фиксирует паспорт кейса: образ, время, какие
// артефакты обрабатывались и сколько записей получилось по каждому.
func (l *SQLiteLoader) SaveCaseMetadata(caseID, imagePath string, counts map[string]int) error {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return err
	}
	_, err = l.db.Exec(
		`INSERT OR REPLACE INTO case_metadata (case_id, image_path, created_at, artifacts, record_counts)
		 VALUES (?, ?, ?, ?, ?)`,
		caseID, imagePath, time.Now().UTC().Format(time.RFC3339),
		strings.Join(names, ","), string(countsJSON))
	return err
}

// CountRecords возвращает число записей кейса по типу артефакта.
func (l *SQLiteLoader) CountRecords(caseID, artifactType string) (int, error) {
	var n int
	err := l.db.QueryRow(
		`SELECT COUNT(*) FROM forensic_records WHERE case_id = ? AND artifact_type = ?`,
		caseID, artifactType).Scan(&n)
	return n, err
}
