package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Sink получает человекочитаемые строки прогресса.
// Веб-слой подписывается на них вместо чтения консоли.
type Sink func(line string)

// New создаёт логгер с текстовым форматом. Если logfile непустой,
// вывод дублируется в файл (режим append). Ненулевой sink подписывается
// на записи уровня Info и выше — через него слой-обёртка (веб, GUI)
// получает прогресс, не читая консоль.
func New(level string, logfile string, sink Sink) *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if logfile != "" {
		file, err := os.OpenFile(logfile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			log.Warnf("cannot open log file %s: %v", logfile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, file))
		}
	}

	if sink != nil {
		log.AddHook(NewSinkHook(sink))
	}
	return log
}

// SinkHook пересылает отформатированные записи в Sink.
type SinkHook struct {
	sink Sink
}

func NewSinkHook(sink Sink) *SinkHook {
	return &SinkHook{sink: sink}
}

func (h *SinkHook) Levels() []logrus.Level {
	return []logrus.Level{
		logrus.InfoLevel,
		logrus.WarnLevel,
		logrus.ErrorLevel,
	}
}

func (h *SinkHook) Fire(entry *logrus.Entry) error {
	if h.sink == nil {
		return nil
	}
	line, err := entry.String()
	if err != nil {
		return err
	}
	h.sink(line)
	return nil
}
