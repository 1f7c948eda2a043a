package parsers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// BrowserParser читает историю браузеров напрямую из извлечённых
// SQLite-баз (Chrome/Edge/Opera/Brave — таблица urls). Внешняя утилита
// не нужна; база копируется во временный файл перед открытием, как и
// положено с потенциально залоченными браузерными базами.
type BrowserParser struct {
	OutputDir string
}

// Разница эпох WebKit (1601-01-01) и Unix (1970-01-01) в секундах.
const webkitEpochOffset = 11644473600

func (p *BrowserParser) Name() string         { return "Browser_SQLite_Parser" }
func (p *BrowserParser) ArtifactType() string { return "browser" }

func (p *BrowserParser) Description() string {
	return "Browser History - web browsing activity, URLs, searches"
}

func (p *BrowserParser) Parse(ctx context.Context, inputPath, caseID string) ([]Record, error) {
	var files []string
	info, err := os.Stat(inputPath)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		entries, err := os.ReadDir(inputPath)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			name := strings.ToLower(e.Name())
			if !e.IsDir() && (name == "history" || strings.HasPrefix(name, "history_")) {
				files = append(files, filepath.Join(inputPath, e.Name()))
			}
		}
	} else {
		files = []string{inputPath}
	}

	var records []Record
	for _, dbFile := range files {
		browser := detectBrowser(dbFile)
		recs, err := p.parseChromium(ctx, dbFile, browser)
		if err != nil {
			// одна битая база не отменяет остальные
			continue
		}
		records = append(records, recs...)
	}

	attachMeta(records, p.Name(), caseID, inputPath)
	return records, nil
}

func (p *BrowserParser) parseChromium(ctx context.Context, dbFile, browser string) ([]Record, error) {
	tmp, err := copyToTemp(dbFile, p.OutputDir)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp)

	db, err := sql.Open("sqlite3", "file:"+tmp+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `
		SELECT url, title, visit_count, typed_count, last_visit_time, hidden
		FROM urls ORDER BY last_visit_time DESC LIMIT 10000`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var url, title string
		var visitCount, typedCount, hidden int
		var lastVisit int64
		if err := rows.Scan(&url, &title, &visitCount, &typedCount, &lastVisit, &hidden); err != nil {
			continue
		}
		records = append(records, Record{
			"artifact_type": "browser",
			"browser":       browser,
			"timestamp":     webkitToTime(lastVisit).Format(time.RFC3339),
			"url":           truncate(url, 2000),
			"title":         truncate(title, 500),
			"visit_count":   visitCount,
			"typed_count":   typedCount,
			"hidden":        hidden != 0,
		})
	}
	return records, rows.Err()
}

// webkitToTime переводит метку WebKit (микросекунды с 1601 года) в UTC.
func webkitToTime(us int64) time.Time {
	if us == 0 {
		return time.Unix(0, 0).UTC()
	}
	return time.Unix(us/1e6-webkitEpochOffset, (us%1e6)*1000).UTC()
}

func detectBrowser(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "chrome"):
		return "Chrome"
	case strings.Contains(lower, "edge"):
		return "Edge"
	case strings.Contains(lower, "opera"):
		return "Opera"
	case strings.Contains(lower, "brave"):
		return "Brave"
	}
	return "Chromium"
}

func copyToTemp(src, dir string) (string, error) {
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	out, err := os.CreateTemp(dir, "history_*.db")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return "", fmt.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return "", err
	}
	return out.Name(), nil
}
