package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"ludo-arena/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	writerMu sync.RWMutex
	writer   io.Writer = os.Stdout
	sink     io.Closer
)

// Init configures the global zerolog logger. It may be called again; the
// previous file sink is closed.
func Init(cfg config.LogConfig) error {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var out io.Writer = os.Stdout
	var file *cappedFile
	if path := strings.TrimSpace(cfg.File); path != "" {
		f, err := newCappedFile(path, cfg.MaxMB)
		if err != nil {
			return err
		}
		file = f
		out = io.MultiWriter(os.Stdout, f)
	}
	setWriter(out, file)

	var console io.Writer = out
	if cfg.Pretty {
		console = zerolog.ConsoleWriter{Out: out}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(console).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
	return nil
}

// Writer is the raw sink behind the global logger, for handlers (slog, httplog)
// that format their own records.
func Writer() io.Writer {
	writerMu.RLock()
	defer writerMu.RUnlock()
	return writer
}

// Close releases the file sink, if any.
func Close() error {
	writerMu.Lock()
	defer writerMu.Unlock()
	writer = os.Stdout
	if sink == nil {
		return nil
	}
	err := sink.Close()
	sink = nil
	return err
}

func setWriter(out io.Writer, file *cappedFile) {
	writerMu.Lock()
	defer writerMu.Unlock()
	if sink != nil {
		_ = sink.Close()
		sink = nil
	}
	writer = out
	if file != nil {
		sink = file
	}
}
