package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/ini.v1"

	"github.com/noabee17/arshalab-forensics/extractor"
	"github.com/noabee17/arshalab-forensics/loaders"
	"github.com/noabee17/arshalab-forensics/logging"
	"github.com/noabee17/arshalab-forensics/parsers"
	"github.com/noabee17/arshalab-forensics/pipeline"
)

type Config struct {
	Image     string
	Artifacts string
	Include   string
	Exclude   string
	Output    string
	ToolDir   string
	PECmd     string
	LECmd     string
	DBPath    string
	Timeout   time.Duration
	LogLevel  string
	LogFile   string
}

func parseArgs() *Config {
	// Получаем текущую рабочую директорию
	workDir, err := os.Getwd()
	if err != nil {
		log.Fatalf("Error getting working directory: %v", err)
	}
	configPath := filepath.Join(workDir, "forensic.ini")

	cfg, err := loadConfig(configPath)
	if err != nil {
		log.Printf("Config error: %v", err)
	}

	flags := initFlags(cfg)
	flag.Parse()

	return &Config{
		Image:     *flags.image,
		Artifacts: *flags.artifacts,
		Include:   *flags.include,
		Exclude:   *flags.exclude,
		Output:    *flags.output,
		ToolDir:   *flags.tooldir,
		PECmd:     *flags.pecmd,
		LECmd:     *flags.lecmd,
		DBPath:    *flags.dbpath,
		Timeout:   *flags.timeout,
		LogLevel:  *flags.loglevel,
		LogFile:   *flags.logfile,
	}
}

func loadConfig(path string) (*ini.File, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		AllowBooleanKeys:    true,
		UnparseableSections: []string{},
	}, path)

	if err != nil {
		if os.IsNotExist(err) {
			return ini.Empty(), nil
		}
		return nil, fmt.Errorf("config load error: %w", err)
	}
	return cfg, nil
}

type appFlags struct {
	image     *string
	artifacts *string
	include   *string
	exclude   *string
	output    *string
	tooldir   *string
	pecmd     *string
	lecmd     *string
	dbpath    *string
	timeout   *time.Duration
	loglevel  *string
	logfile   *string
}

func initFlags(cfg *ini.File) *appFlags {
	flags := &appFlags{}
	section := cfg.Section("")

	flags.image = flag.String("image",
		section.Key("image").MustString(""),
		"Disk image to process (raw/dd)")

	flags.artifacts = flag.String("artifacts",
		section.Key("artifacts").MustString("data/artifacts.yaml"),
		"Artifact definitions file (YAML)")

	flags.include = flag.String("include",
		section.Key("include").MustString(""),
		"Artifacts to collect (comma-separated)")

	flags.exclude = flag.String("exclude",
		section.Key("exclude").MustString(""),
		"Artifacts to ignore (comma-separated)")

	flags.output = flag.String("output",
		section.Key("output").MustString("output"),
		"Directory where the results are created")

	flags.tooldir = flag.String("tooldir",
		section.Key("tooldir").MustString(""),
		"Directory with the Sleuth Kit binaries (empty = search PATH)")

	flags.pecmd = flag.String("pecmd",
		section.Key("pecmd").MustString("PECmd"),
		"Prefetch parsing tool")

	flags.lecmd = flag.String("lecmd",
		section.Key("lecmd").MustString("LECmd"),
		"LNK parsing tool")

	flags.dbpath = flag.String("dbpath",
		section.Key("dbpath").MustString(""),
		"SQLite database path (default <output>/forensic.db)")

	flags.timeout = flag.Duration("timeout",
		section.Key("timeout").MustDuration(5*time.Minute),
		"Timeout for a single external tool invocation")

	flags.loglevel = flag.String("loglevel",
		section.Key("loglevel").MustString("info"),
		"Log level (debug/info/warn/error)")

	flags.logfile = flag.String("logfile",
		section.Key("logfile").MustString(""),
		"Log file (in addition to stdout)")

	return flags
}

func main() {
	config := parseArgs()
	// у консольной утилиты подписчик прогресса — сама консоль,
	// sink занимают встраивающие слои (веб, GUI)
	logger := logging.New(config.LogLevel, config.LogFile, nil)

	if config.Image == "" {
		logger.Fatal("Не указан образ диска: флаг -image обязателен")
	}

	// Ctrl+C убивает текущий внешний процесс; уже извлечённые файлы
	// остаются на диске валидными.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	artifactsCfg, err := pipeline.LoadConfig(config.Artifacts)
	if err != nil {
		logger.Fatalf("Ошибка чтения определений артефактов: %v", err)
	}
	selected := artifactsCfg.Filter(config.Include, config.Exclude)
	if len(selected) == 0 {
		logger.Fatal("После фильтрации не осталось ни одного артефакта")
	}

	engine, err := extractor.NewEngine(ctx, config.Image, extractor.Config{
		ToolDir:     config.ToolDir,
		ToolTimeout: config.Timeout,
	}, nil, logger)
	if err != nil {
		logger.Fatalf("Ошибка инициализации движка извлечения: %v", err)
	}
	vol := engine.Volume()
	logger.Infof("Volume: offset %d sectors, %.1f GiB (%s)",
		vol.Offset, vol.SizeGiB(), vol.Label)

	dbPath := config.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(config.Output, "forensic.db")
	}
	if err := os.MkdirAll(config.Output, 0700); err != nil {
		logger.Fatalf("Ошибка создания директории результатов: %v", err)
	}
	loader, err := loaders.NewSQLiteLoader(dbPath, logger)
	if err != nil {
		logger.Fatalf("Ошибка инициализации хранилища: %v", err)
	}
	defer loader.Close()

	run := parsers.ExecRunner(logger)
	tmpDir := filepath.Join(config.Output, "tmp")
	parserSet := map[string]parsers.Parser{
		"prefetch": &parsers.PrefetchParser{
			Tool:      config.PECmd,
			OutputDir: filepath.Join(tmpDir, "prefetch"),
			Run:       run,
		},
		"lnk": &parsers.LnkParser{
			Tool:      config.LECmd,
			OutputDir: filepath.Join(tmpDir, "lnk"),
			Run:       run,
		},
		"browser": &parsers.BrowserParser{
			OutputDir: filepath.Join(tmpDir, "browser"),
		},
	}

	pipe := pipeline.NewPipeline(config.Image, config.Output, engine, parserSet, loader, logger)
	logger.Infof("Case %s: image %s, %d artifact definitions",
		pipe.CaseID(), config.Image, len(selected))

	counts, err := pipe.Run(ctx, selected)
	if err != nil {
		logger.Fatalf("Ошибка пайплайна: %v", err)
	}

	total := 0
	for name, n := range counts {
		logger.Infof("  %s: %d records", name, n)
		total += n
	}
	logger.Infof("Done: %d records in %s", total, dbPath)
}
