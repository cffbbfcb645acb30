package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	summarizerx "github.com/tanpawarit/video-summarizer/agent/agents/summarizer"
	contractx "github.com/tanpawarit/video-summarizer/agent/contract"
	llmx "github.com/tanpawarit/video-summarizer/agent/llm"
	"github.com/tanpawarit/video-summarizer/agent/prompt"
	"github.com/tanpawarit/video-summarizer/agent/render"
	"github.com/tanpawarit/video-summarizer/agent/settings"
	configx "github.com/tanpawarit/video-summarizer/pkg/config"
	geminix "github.com/tanpawarit/video-summarizer/pkg/gemini"
	logx "github.com/tanpawarit/video-summarizer/pkg/logger"
	_ "github.com/tanpawarit/video-summarizer/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/video-summarizer/pkg/qstash"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2
)

type AppConfig struct {
	SettingsBackend   string        `envconfig:"SETTINGS_BACKEND" default:"file"`
	SettingsPath      string        `envconfig:"SETTINGS_PATH"`
	SettingsProfile   string        `envconfig:"SETTINGS_PROFILE" default:"default"`
	SettingsTTL       time.Duration `envconfig:"SETTINGS_TTL" default:"0s"`
	QStashDestination string        `envconfig:"QSTASH_DESTINATION"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("video-summarizer", flag.ContinueOnError)
	fs.SetOutput(stderr)
	envFile := fs.String("env", "", "env file to load before reading configuration")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: video-summarizer [-env file] <command> [args]")
		fmt.Fprintln(stderr, "")
		fmt.Fprintln(stderr, "commands:")
		fmt.Fprintln(stderr, "  summarize [-mode stream|box] [-plain] <url>")
		fmt.Fprintln(stderr, "  settings show")
		fmt.Fprintln(stderr, "  settings set [-api-key key] [-custom-instruction text]")
	}
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	if *envFile != "" {
		configx.SetEnvFile(*envFile)
		logCfg, err := configx.New[logx.Config]("LOG")
		if err != nil {
			fmt.Fprintln(stderr, err)
			return exitFail
		}
		logx.Init(*logCfg)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		fs.Usage()
		return exitUsage
	}

	appCfg, err := configx.New[AppConfig]("")
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	switch rest[0] {
	case "summarize":
		return runSummarize(ctx, *appCfg, rest[1:], stdout, stderr)
	case "settings":
		return runSettings(ctx, *appCfg, rest[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", rest[0])
		fs.Usage()
		return exitUsage
	}
}

func runSummarize(ctx context.Context, appCfg AppConfig, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
	fs.SetOutput(stderr)
	modeFlag := fs.String("mode", string(render.ModeStream), "display mode: stream or box")
	plain := fs.Bool("plain", false, "disable colors and boxes")
	width := fs.Int("width", 0, "wrap width for box mode")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(stderr, "usage: video-summarizer summarize [-mode stream|box] [-plain] <url>")
		return exitUsage
	}
	mode, err := render.ParseMode(*modeFlag)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitUsage
	}

	store, closeStore, err := openStore(ctx, appCfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}
	defer closeStore()

	svc, err := newSummarizer(store)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	sink, err := newSink(appCfg, stdout, mode, *plain, *width)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	res := svc.Summarize(ctx, fs.Arg(0), sink)
	if !res.Succeeded() {
		return exitFail
	}
	return exitOK
}

func newSummarizer(store settings.Store) (*summarizerx.Summarizer, error) {
	llmCfg, err := configx.New[llmx.Config]("GEMINI")
	if err != nil {
		return nil, err
	}
	if err := llmCfg.Validate(); err != nil {
		return nil, err
	}
	driverCfg, err := configx.New[contractx.Config]("SUMMARIZER")
	if err != nil {
		return nil, err
	}

	client, err := geminix.NewClient(llmCfg.ClientConfig())
	if err != nil {
		return nil, err
	}
	prompts, err := prompt.NewBuilder(prompt.LoadPromptSet())
	if err != nil {
		return nil, err
	}

	return summarizerx.New(store, client, prompts, llmCfg.RequestOptions(), *driverCfg)
}

func newSink(appCfg AppConfig, stdout io.Writer, mode render.Mode, plain bool, width int) (contractx.Sink, error) {
	opts := []render.TerminalOption{render.WithMode(mode), render.WithPlain(plain), render.WithWidth(width)}

	var terminal *render.Terminal
	if f, ok := stdout.(*os.File); ok {
		terminal = render.NewTerminal(f, opts...)
	} else {
		terminal = render.NewTerminalWriter(stdout, opts...)
	}

	destination := strings.TrimSpace(appCfg.QStashDestination)
	if destination == "" {
		return terminal, nil
	}

	qstashCfg, err := configx.New[qstashx.Config]("QSTASH")
	if err != nil {
		return nil, err
	}
	client, err := qstashx.NewClient(*qstashCfg)
	if err != nil {
		return nil, err
	}
	return render.NewMulti(terminal, render.NewQStash(client, destination, qstashCfg.Timeout, log.Logger)), nil
}

func runSettings(ctx context.Context, appCfg AppConfig, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "usage: video-summarizer settings <show|set> [args]")
		return exitUsage
	}

	store, closeStore, err := openStore(ctx, appCfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}
	defer closeStore()

	switch args[0] {
	case "show":
		return showSettings(ctx, store, stdout, stderr)
	case "set":
		return setSettings(ctx, store, args[1:], stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown settings command %q\n", args[0])
		return exitUsage
	}
}

func showSettings(ctx context.Context, store settings.Store, stdout, stderr io.Writer) int {
	st, err := store.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	key := st.MaskedAPIKey()
	if key == "" {
		key = "(not set)"
	}
	custom := st.CustomInstruction
	if custom == "" {
		custom = "(none)"
	}
	fmt.Fprintf(stdout, "API Key: %s\n", key)
	fmt.Fprintf(stdout, "Custom instruction: %s\n", custom)
	return exitOK
}

// setSettings mirrors the settings form: unset flags keep their stored value
// and nothing is written when no value changed.
func setSettings(ctx context.Context, store settings.Store, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("settings set", flag.ContinueOnError)
	fs.SetOutput(stderr)
	apiKey := fs.String("api-key", "", "Gemini API key")
	custom := fs.String("custom-instruction", "", "extra instruction appended to every request")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	original, err := store.Load(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	nextKey, nextCustom := original.APIKey, original.CustomInstruction
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "api-key":
			nextKey = *apiKey
		case "custom-instruction":
			nextCustom = *custom
		}
	})

	patch, err := settings.ComputePatch(original, nextKey, nextCustom)
	if errors.Is(err, settings.ErrNothingToSave) {
		fmt.Fprintln(stdout, "Nothing to save.")
		return exitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}

	if err := store.Save(ctx, patch); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFail
	}
	fmt.Fprintln(stdout, "Settings saved!")
	return exitOK
}

func openStore(ctx context.Context, appCfg AppConfig) (settings.Store, func(), error) {
	noop := func() {}

	switch strings.ToLower(strings.TrimSpace(appCfg.SettingsBackend)) {
	case "", "file":
		store, err := settings.NewFileStore(appCfg.SettingsPath)
		if err != nil {
			return nil, noop, err
		}
		log.Debug().Str("path", store.Path()).Msg("using file settings store")
		return store, noop, nil

	case "upstash":
		redisCfg, err := configx.New[settings.UpstashRedisConfig]("UPSTASH_REDIS")
		if err != nil {
			return nil, noop, err
		}
		store, err := settings.NewUpstashRedisStore(*redisCfg, appCfg.SettingsProfile, settings.WithTTL(appCfg.SettingsTTL))
		return store, noop, err

	case "postgres":
		pgCfg, err := configx.New[settings.PostgresConfig]("POSTGRES")
		if err != nil {
			return nil, noop, err
		}
		store, err := settings.NewPostgresStore(ctx, *pgCfg, appCfg.SettingsProfile)
		if err != nil {
			return nil, noop, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn().Err(err).Msg("close postgres settings store")
			}
		}, nil

	default:
		return nil, noop, fmt.Errorf("%w: unknown settings backend %q", contractx.ErrValidation, appCfg.SettingsBackend)
	}
}
