package extractor

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// Config задаёт политику движка. Нулевые значения заменяются
// значениями по умолчанию в NewEngine.
type Config struct {
	// ToolDir is where the introspection tools live; empty means PATH.
	ToolDir string
	// ToolTimeout bounds every external invocation.
	ToolTimeout time.Duration
	// ProfilesDir is the container of user profiles on the volume.
	ProfilesDir string
	// SkipProfiles are pseudo-folders excluded from profile discovery.
	SkipProfiles []string
}

const defaultToolTimeout = 5 * time.Minute

// Каталоги внутри контейнера профилей, не являющиеся профилями.
var defaultSkipProfiles = []string{
	"Default", "Default User", "Public", "All Users",
	"desktop.ini", ".", "..", "$Recycle.Bin",
}

// Engine извлекает файлы из сырого образа диска по путевым шаблонам,
// не монтируя его: весь доступ к файловой системе идёт через внешние
// утилиты. Движок однопоточный, все вызовы блокирующие.
type Engine struct {
	image        string
	run          Runner
	vol          Volume
	log          *logrus.Logger
	profilesDir  string
	skipProfiles map[string]bool
}

// NewEngine builds an engine for one image. run may be nil, in which
// case the SleuthKit runner is used; a missing tool installation is the
// only fatal condition (ErrNoTools). The partition table is examined
// once, here — the selected Volume never changes afterwards.
func NewEngine(ctx context.Context, image string, cfg Config, run Runner, log *logrus.Logger) (*Engine, error) {
	if log == nil {
		log = logrus.New()
	}
	if cfg.ToolTimeout == 0 {
		cfg.ToolTimeout = defaultToolTimeout
	}
	if cfg.ProfilesDir == "" {
		cfg.ProfilesDir = "/Users"
	}
	if cfg.SkipProfiles == nil {
		cfg.SkipProfiles = defaultSkipProfiles
	}

	if run == nil {
		sk, err := NewSleuthKit(cfg.ToolDir, cfg.ToolTimeout, log)
		if err != nil {
			return nil, err
		}
		run = sk
	}

	skip := make(map[string]bool, len(cfg.SkipProfiles))
	for _, name := range cfg.SkipProfiles {
		skip[normName(name)] = true
	}

	e := &Engine{
		image:        image,
		run:          run,
		log:          log,
		profilesDir:  cfg.ProfilesDir,
		skipProfiles: skip,
	}
	e.vol = e.locateVolume(ctx)
	return e, nil
}

// Volume reports the volume selected at construction time.
func (e *Engine) Volume() Volume { return e.vol }

// ExtractFiles is the single public operation: for every pattern, find
// the matching files on the volume and stream each one into outputDir
// under a collision-safe name. The return value is the ordered list of
// destination paths; patterns are processed in the order given and
// matches in the order the directory lister reported them.
//
// No failure aborts the whole run: a pattern that resolves to nothing,
// a tool error or an empty extraction just means fewer results.
// Cancelling ctx kills the in-flight tool and abandons the remaining
// patterns; files already extracted stay valid.
func (e *Engine) ExtractFiles(ctx context.Context, patterns []string, outputDir string) []string {
	if err := os.MkdirAll(outputDir, 0700); err != nil {
		e.log.Errorf("Cannot create output directory %s: %v", outputDir, err)
		return nil
	}

	var extracted []string
	for _, task := range e.expandPatterns(ctx, patterns) {
		if ctx.Err() != nil {
			e.log.Warn("Extraction cancelled, abandoning remaining patterns")
			break
		}
		extracted = append(extracted, e.runTask(ctx, task, outputDir)...)
	}
	return extracted
}

func (e *Engine) runTask(ctx context.Context, task searchTask, outputDir string) []string {
	e.log.Infof("Searching for: %s", task.pattern)

	dirAddr, err := e.resolvePath(ctx, task.dir)
	if err != nil {
		e.log.Warnf("Path not found: %s", task.dir)
		return nil
	}

	var matches []DirEntry
	if task.mode == modeDirect {
		matches = e.listMatches(ctx, dirAddr, task.filename)
	} else {
		matches = e.searchBounded(ctx, dirAddr, task.filename, task.maxDepth)
	}
	e.log.Infof("Found %d files for %s", len(matches), task.pattern)

	var extracted []string
	for _, m := range matches {
		if ctx.Err() != nil {
			break
		}
		if dest := e.extractOne(ctx, m, outputDir); dest != "" {
			extracted = append(extracted, dest)
		}
	}
	return extracted
}

// listDirectory invokes the directory lister once. addr == "" lists the
// volume root. Any tool failure degrades to an empty listing.
func (e *Engine) listDirectory(ctx context.Context, addr string) []DirEntry {
	args := []string{"-o", strconv.FormatInt(e.vol.Offset, 10), e.image}
	if addr != "" {
		args = append(args, addr)
	}
	out, err := e.run.Output(ctx, toolListDir, args...)
	if err != nil {
		if ctx.Err() == nil {
			e.log.Warnf("Directory listing failed (addr=%q): %v", addr, err)
		}
		return nil
	}
	return ParseListing(out)
}

// listMatches — прямой режим: один листинг, без рекурсии.
func (e *Engine) listMatches(ctx context.Context, dirAddr, filename string) []DirEntry {
	var matches []DirEntry
	for _, ent := range e.listDirectory(ctx, dirAddr) {
		if ent.Kind != KindFile {
			continue
		}
		if matchesFilename(ent.Name, filename) {
			matches = append(matches, ent)
		}
	}
	return matches
}
