package parsers

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeHistoryDB собирает минимальную Chromium-базу истории.
func makeHistoryDB(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "History")

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE urls (
		id INTEGER PRIMARY KEY,
		url TEXT, title TEXT,
		visit_count INTEGER, typed_count INTEGER,
		last_visit_time INTEGER, hidden INTEGER DEFAULT 0)`)
	require.NoError(t, err)

	// 13348584000000000 мкс от 1601 года = 2024-01-01 12:00:00 UTC
	_, err = db.Exec(`INSERT INTO urls (url, title, visit_count, typed_count, last_visit_time, hidden) VALUES
		('https://example.com/', 'Example', 3, 1, 13348584000000000, 0),
		('https://old.example.com/', 'Old', 1, 0, 13348497600000000, 0)`)
	require.NoError(t, err)
	return path
}

func TestBrowserParser(t *testing.T) {
	dbPath := makeHistoryDB(t, t.TempDir())

	p := &BrowserParser{OutputDir: t.TempDir()}
	records, err := p.Parse(context.Background(), dbPath, "case_3")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// ORDER BY last_visit_time DESC — свежий визит первым
	rec := records[0]
	assert.Equal(t, "https://example.com/", rec["url"])
	assert.Equal(t, "Example", rec["title"])
	assert.Equal(t, 3, rec["visit_count"])
	assert.Equal(t, "2024-01-01T12:00:00Z", rec["timestamp"])
	assert.Equal(t, false, rec["hidden"])

	meta := rec["_meta"].(map[string]interface{})
	assert.Equal(t, "Browser_SQLite_Parser", meta["parser"])
}

func TestBrowserParserDirectoryInput(t *testing.T) {
	dir := t.TempDir()
	makeHistoryDB(t, dir)

	p := &BrowserParser{OutputDir: t.TempDir()}
	records, err := p.Parse(context.Background(), dir, "case_3")
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWebkitToTime(t *testing.T) {
	assert.Equal(t, "2024-01-01T12:00:00Z",
		webkitToTime(13348584000000000).Format("2006-01-02T15:04:05Z"))
	assert.True(t, webkitToTime(0).Equal(webkitToTime(0)))
}

func TestDetectBrowser(t *testing.T) {
	assert.Equal(t, "Chrome", detectBrowser(`C:\Users\a\AppData\Local\Google\Chrome\History`))
	assert.Equal(t, "Edge", detectBrowser("/out/edge_History"))
	assert.Equal(t, "Chromium", detectBrowser("/out/History"))
}
