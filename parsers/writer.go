package parsers

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteJSON сохраняет нормализованные записи в JSON-файл.
func WriteJSON(records []Record, path string) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RecordsFile возвращает путь JSON-файла для пары артефакт/кейс.
func RecordsFile(dir, artifactType, caseID string) string {
	if caseID == "" {
		caseID = "default"
	}
	return filepath.Join(dir, fmt.Sprintf("%s_%s.json", artifactType, caseID))
}
