package extractor

import (
	"context"
)

// frame — один открытый каталог в итеративном обходе:
// непросмотренный остаток его листинга и глубина.
type frame struct {
	entries []DirEntry
	depth   int
}

// searchBounded performs a depth-bounded depth-first traversal from
// startAddr (depth 0) and collects file-kind entries whose name matches
// the filename predicate. Directories are never filtered, only their
// file descendants are.
//
// The traversal is iterative: an explicit frame stack instead of
// recursion, plus a visited set keyed by directory meta address that
// guards against cycles (hard links, loops in parsed listings). A
// revisited address or a child beyond maxDepth cuts that branch without
// error. Match order is the inline depth-first order over listings,
// deterministic for a given lister output.
func (e *Engine) searchBounded(ctx context.Context, startAddr, filename string, maxDepth int) []DirEntry {
	visited := map[string]bool{startAddr: true}
	stack := []*frame{{entries: e.listDirectory(ctx, startAddr), depth: 0}}

	var matches []DirEntry
	for len(stack) > 0 {
		if ctx.Err() != nil {
			break
		}
		top := stack[len(stack)-1]
		if len(top.entries) == 0 {
			stack = stack[:len(stack)-1]
			continue
		}
		ent := top.entries[0]
		top.entries = top.entries[1:]

		if ent.Kind == KindFile {
			if matchesFilename(ent.Name, filename) {
				matches = append(matches, ent)
			}
			continue
		}

		// Удалённый каталог листингу недоступен — ветка мертва.
		if ent.Deleted {
			continue
		}
		addr := ent.MetaAddr()
		if visited[addr] || top.depth+1 > maxDepth {
			continue
		}
		visited[addr] = true
		stack = append(stack, &frame{
			entries: e.listDirectory(ctx, addr),
			depth:   top.depth + 1,
		})
	}
	return matches
}
