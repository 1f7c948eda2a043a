package extractor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Символы, запрещённые в именах файлов назначения.
var illegalNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// sanitizeName keeps only the final path component of a suggested name
// and replaces characters illegal in destination filenames with '_'.
func sanitizeName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	return illegalNameChars.ReplaceAllString(name, "_")
}

// freeDestination returns a path in outputDir that no existing file
// occupies, appending an incrementing numeric suffix before the
// extension when needed. Ранее извлечённый файл никогда не
// перезаписывается.
func freeDestination(outputDir, safeName string) string {
	dest := filepath.Join(outputDir, safeName)
	if _, err := os.Stat(dest); err != nil {
		return dest
	}
	ext := filepath.Ext(safeName)
	base := strings.TrimSuffix(safeName, ext)
	for counter := 1; ; counter++ {
		dest = filepath.Join(outputDir, fmt.Sprintf("%s_%d%s", base, counter, ext))
		if _, err := os.Stat(dest); err != nil {
			return dest
		}
	}
}

// extractOne streams the bytes of one matched entry into outputDir and
// returns the destination path, or "" when extraction failed. A
// zero-byte or missing result counts as failure: сжатые до нуля и
// нечитаемые объекты в результат не попадают.
func (e *Engine) extractOne(ctx context.Context, ent DirEntry, outputDir string) string {
	dest := freeDestination(outputDir, sanitizeName(ent.Name))

	err := e.run.OutputToFile(ctx, dest,
		toolCatFile, "-o", strconv.FormatInt(e.vol.Offset, 10), e.image, ent.ID)
	if err != nil {
		e.log.Warnf("Extraction failed for %s (%s): %v", ent.Name, ent.ID, err)
	}

	info, statErr := os.Stat(dest)
	if statErr != nil || info.Size() == 0 {
		// пустой файл не оставляем: иначе следующее извлечение под тем
		// же именем упёрлось бы в мёртвый файл и ушло на суффикс _1
		os.Remove(dest)
		return ""
	}
	e.log.Infof("Extracted: %s", filepath.Base(dest))
	return dest
}
