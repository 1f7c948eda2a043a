package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound reports that a path segment resolved to nothing. It is
// never fatal for the run: the pattern just contributes zero results.
var ErrNotFound = errors.New("path not found on volume")

func splitSegments(path string) []string {
	var segs []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	return segs
}

// resolvePath walks absolutePath segment by segment from the volume
// root and returns the meta address of the terminal directory. Names
// are compared case-insensitively, как их хранит NTFS. The first
// segment that matches no directory entry fails the whole resolution —
// no partial result is produced.
func (e *Engine) resolvePath(ctx context.Context, absolutePath string) (string, error) {
	cur := "" // пустой адрес — корень тома
	for _, seg := range splitSegments(absolutePath) {
		found := false
		for _, ent := range e.listDirectory(ctx, cur) {
			if ent.Kind != KindDirectory || ent.Deleted {
				continue
			}
			if strings.EqualFold(ent.Name, seg) {
				cur = ent.MetaAddr()
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("%w: %s (segment %q)", ErrNotFound, absolutePath, seg)
		}
	}
	return cur, nil
}

func normName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// matchesFilename applies the filename predicate of a pattern:
// "*" matches everything, "*.<ext>" matches the extension
// case-insensitively, anything else is an exact case-insensitive match.
func matchesFilename(name, pattern string) bool {
	switch {
	case pattern == "*":
		return true
	case strings.HasPrefix(pattern, "*."):
		ext := pattern[2:]
		return strings.HasSuffix(strings.ToLower(name), "."+strings.ToLower(ext))
	default:
		return strings.EqualFold(name, pattern)
	}
}
