package pipeline

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFile       = "run.log"
	logTimeFormat = "2006-01-02 15:04:05"
)

// NewRunLogger logs to console and to <runDir>/run.log. The returned closer
// flushes and closes the file.
func NewRunLogger(runDir string, console io.Writer) (zerolog.Logger, io.Closer) {
	if console == nil {
		console = os.Stderr
	}
	file := &lumberjack.Logger{
		Filename:   filepath.Join(runDir, logFile),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
	}
	writer := zerolog.MultiLevelWriter(
		zerolog.ConsoleWriter{Out: console, TimeFormat: time.RFC3339},
		zerolog.ConsoleWriter{Out: file, TimeFormat: logTimeFormat, NoColor: true},
	)
	logger := zerolog.New(writer).With().Timestamp().Logger()
	return logger, file
}
