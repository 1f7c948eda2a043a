package extractor

import (
	"context"
	"path"
	"strings"
)

type searchMode int

const (
	// modeDirect: каталог без wildcard-сегментов, один листинг.
	modeDirect searchMode = iota
	// modeBounded: рекурсивный поиск с ограничением глубины.
	modeBounded
)

// Пределы глубины — константы политики: они ограничивают стоимость
// поиска по wildcard на потенциально большом дереве каталогов.
const (
	depthSingleWildcard = 3
	depthManyWildcards  = 4
)

// searchTask is one concrete search produced by pattern expansion:
// a literal directory path, a filename predicate and a strategy.
type searchTask struct {
	pattern  string // исходный (уже развёрнутый) шаблон, для логов
	dir      string
	filename string
	mode     searchMode
	maxDepth int
}

// classifyPattern splits a concrete pattern (no profile placeholder
// left) into a search task. The directory portion is classified by the
// number of remaining single-segment wildcards: zero means one direct
// listing, one bounds the search at depth 3, two or more at depth 4,
// anchored at the prefix before the first wildcard.
func classifyPattern(pattern string) searchTask {
	dir := path.Dir(pattern)
	filename := path.Base(pattern)

	segs := splitSegments(dir)
	wildcards := 0
	first := len(segs)
	for i, s := range segs {
		if s == "*" {
			wildcards++
			if i < first {
				first = i
			}
		}
	}

	if wildcards == 0 {
		return searchTask{pattern: pattern, dir: dir, filename: filename, mode: modeDirect}
	}

	anchor := "/" + strings.Join(segs[:first], "/")
	depth := depthSingleWildcard
	if wildcards >= 2 {
		depth = depthManyWildcards
	}
	return searchTask{
		pattern:  pattern,
		dir:      anchor,
		filename: filename,
		mode:     modeBounded,
		maxDepth: depth,
	}
}

// expandPatterns turns the requested patterns into concrete search
// tasks, preserving order. Patterns containing the any-user-profile
// placeholder (the "<profilesDir>/*/" prefix) are expanded into one
// pattern per discovered profile before classification; порядок
// профилей — порядок, в котором их вернул листинг каталога.
func (e *Engine) expandPatterns(ctx context.Context, patterns []string) []searchTask {
	placeholder := e.profilesDir + "/*/"

	var users []string
	needsUsers := false
	for _, p := range patterns {
		if strings.Contains(p, placeholder) {
			needsUsers = true
			break
		}
	}
	if needsUsers {
		users = e.discoverProfiles(ctx)
		if len(users) == 0 {
			e.log.Warn("No user profiles found")
		}
	}

	var tasks []searchTask
	for _, p := range patterns {
		if !strings.Contains(p, placeholder) {
			tasks = append(tasks, classifyPattern(p))
			continue
		}
		// Подстановка профиля выполняется до подсчёта wildcard:
		// оставшиеся '*' в развёрнутом шаблоне считаются обычными.
		for _, user := range users {
			expanded := strings.ReplaceAll(p, placeholder, e.profilesDir+"/"+user+"/")
			e.log.Debugf("Trying: %s", expanded)
			tasks = append(tasks, classifyPattern(expanded))
		}
	}
	return tasks
}

// discoverProfiles lists the profiles container and returns the names
// of its directory-kind children, minus the fixed denylist of
// pseudo-folders. Zero profiles is a warning, not an error.
func (e *Engine) discoverProfiles(ctx context.Context) []string {
	e.log.Info("Finding user folders...")

	addr, err := e.resolvePath(ctx, e.profilesDir)
	if err != nil {
		e.log.Warnf("Profiles folder not found: %s", e.profilesDir)
		return nil
	}

	var users []string
	for _, ent := range e.listDirectory(ctx, addr) {
		if ent.Kind != KindDirectory || ent.Deleted {
			continue
		}
		if e.skipProfiles[normName(ent.Name)] {
			continue
		}
		e.log.Infof("Found user: %s", ent.Name)
		users = append(users, ent.Name)
	}
	return users
}
