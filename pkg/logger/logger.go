package logx

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool   `split_words:"true" default:"false"`
	PrettyFormat bool   `split_words:"true" default:"false"`
	Output       string `split_words:"true" default:"stderr"`
}

var DefaultConfig = &Config{
	Debug:        false,
	PrettyFormat: false,
	Output:       "stderr",
}

func safe(opts ...Config) *Config {
	if len(opts) == 0 {
		return DefaultConfig
	}
	return &opts[0]
}

// Init replaces zerolog's global logger. Stdout carries summaries, so logs
// default to stderr.
func Init(opts ...Config) {
	conf := safe(opts...)
	out := writerFor(conf.Output)

	if conf.PrettyFormat {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}

	if conf.Debug {
		log.Logger = log.Logger.Level(zerolog.DebugLevel)
	} else {
		log.Logger = log.Logger.Level(zerolog.InfoLevel)
	}

	log.Logger = log.Logger.With().Caller().Logger()
	zerolog.DefaultContextLogger = &log.Logger
}

func writerFor(output string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "stdout":
		return os.Stdout
	case "discard", "none":
		return io.Discard
	default:
		return os.Stderr
	}
}
