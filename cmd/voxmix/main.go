package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"voxmix/internal/config"
	"voxmix/internal/metrics"
	"voxmix/internal/say"
	"voxmix/internal/voicevox"

	"go.uber.org/zap"
)

var version = "0.1.0"

const usage = `voxmix - A CLI tool for high-quality speech synthesis using VOICEVOX engine

Usage:
  voxmix say [flags] <text>    Generate speech from text using VOICEVOX engine
  voxmix speakers [flags]      List speakers and styles available in the engine
  voxmix version               Print version

Run "voxmix <command> -h" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run выполняет команду и возвращает код завершения
func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	switch args[0] {
	case "-h", "-help", "--help", "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "voxmix %s\n", version)
		return 0
	case "say", "speakers":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Error: ошибка загрузки конфигурации: %v\n", err)
		return 1
	}

	// Инициализация логгера
	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Error: ошибка инициализации логгера: %v\n", err)
		return 1
	}
	defer logger.Sync()

	// Прерывание процесса отменяет текущий запрос к движку
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if args[0] == "speakers" {
		return runSpeakers(ctx, cfg, args[1:], stdout, stderr, logger)
	}
	return runSay(ctx, cfg, args[1:], stdout, stderr, logger)
}

// engineFlags регистрирует общие флаги подключения к движку
func engineFlags(fs *flag.FlagSet, cfg *config.Config) *config.EngineConfig {
	engine := cfg.Engine
	fs.StringVar(&engine.Host, "host", cfg.Engine.Host, "VOICEVOX server host")
	fs.IntVar(&engine.Port, "port", cfg.Engine.Port, "VOICEVOX server port")
	fs.DurationVar(&engine.Timeout, "timeout", cfg.Engine.Timeout, "Timeout for each VOICEVOX request")
	return &engine
}

func validateEngineFlags(engine *config.EngineConfig) error {
	if engine.Port < 1 || engine.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if engine.Timeout <= 0 {
		return fmt.Errorf("timeout must be greater than 0")
	}
	return nil
}

func runSay(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer, logger *zap.Logger) int {
	fs := flag.NewFlagSet("say", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Generate speech from text using VOICEVOX engine\n\nUsage: voxmix say [flags] <text>")
		fs.PrintDefaults()
	}

	var params say.Params
	fs.StringVar(&params.Speaker, "speaker", cfg.Say.Speaker, "Speaker name or ID")
	fs.StringVar(&params.Output, "output", cfg.Say.Output, "Output file path")
	fs.StringVar(&params.Output, "o", cfg.Say.Output, "Output file path (shorthand)")
	fs.Float64Var(&params.Speed, "speed", 1.0, "Speech speed (1.0 = default)")
	fs.Float64Var(&params.Pitch, "pitch", 1.0, "Voice pitch multiplier (1.0 = default, 0.5-2.0 range)")
	fs.Float64Var(&params.Volume, "volume", 1.0, "Voice volume (1.0 = default)")
	engine := engineFlags(fs, cfg)

	positional, err := parseInterspersed(fs, args)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 2
	}

	switch {
	case len(positional) == 0:
		fmt.Fprintln(stderr, "Error: text argument is required")
		return 2
	case len(positional) > 1:
		fmt.Fprintf(stderr, "Error: unexpected argument %q\n", positional[1])
		return 2
	}
	params.Text = positional[0]

	if err := validateEngineFlags(engine); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	m := metrics.New(logger)
	defer writeMetrics(cfg, m, logger)

	logger.Info("подключение к VOICEVOX",
		zap.String("host", engine.Host),
		zap.Int("port", engine.Port))

	client := voicevox.NewClient(voicevox.ClientConfig{
		BaseURL: engine.BaseURL(),
		Timeout: engine.Timeout,
		Metrics: m,
	}, logger)
	service := say.NewService(client, m, logger)

	result, err := service.Run(ctx, params)
	if err != nil {
		logger.Debug("синтез речи завершился ошибкой", zap.Error(err))
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "Saved %d bytes to %s\n", result.AudioBytes, result.Output)
	return 0
}

func runSpeakers(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer, logger *zap.Logger) int {
	fs := flag.NewFlagSet("speakers", flag.ContinueOnError)
	fs.SetOutput(stderr)
	engine := engineFlags(fs, cfg)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if err := validateEngineFlags(engine); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	m := metrics.New(logger)
	defer writeMetrics(cfg, m, logger)

	client := voicevox.NewClient(voicevox.ClientConfig{
		BaseURL: engine.BaseURL(),
		Timeout: engine.Timeout,
		Metrics: m,
	}, logger)

	speakers, err := client.FetchSpeakers(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	for _, speaker := range speakers {
		id := speaker.UUID
		if parsed, err := speaker.ParsedUUID(); err == nil {
			id = parsed.String()
		} else {
			logger.Warn("некорректный speaker_uuid",
				zap.String("speaker", speaker.Name),
				zap.String("uuid", speaker.UUID))
		}

		fmt.Fprintf(stdout, "%s\t%s\n", speaker.Name, id)
		for _, style := range speaker.Styles {
			fmt.Fprintf(stdout, "  %d\t%s\n", style.ID, speaker.Label(style))
		}
	}
	return 0
}

// parseInterspersed разбирает флаги, стоящие как до, так и после позиционных аргументов
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		// После "--" все аргументы позиционные
		if len(args) > len(rest) && args[len(args)-len(rest)-1] == "--" {
			return append(positional, rest...), nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// writeMetrics выгружает метрики, если задан METRICS_TEXTFILE
func writeMetrics(cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) {
	if cfg.Metrics.TextfilePath == "" {
		return
	}
	if err := m.WriteTextfile(cfg.Metrics.TextfilePath); err != nil {
		logger.Warn("ошибка выгрузки метрик", zap.Error(err))
	}
}

// initLogger инициализирует логгер
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	// Вне режима разработки используем JSON формат
	config := zap.NewProductionConfig()
	if cfg.App.IsDevelopment() {
		config = zap.NewDevelopmentConfig()
	}
	// Сэмплирование только в продакшене
	if !cfg.App.IsProduction() {
		config.Sampling = nil
	}
	config.Level = cfg.App.GetLogLevel()
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	if cfg.App.LogFile != "" {
		// Создаем директорию для логов если её нет
		if dir := filepath.Dir(cfg.App.LogFile); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("ошибка создания директории логов: %w", err)
			}
		}
		config.OutputPaths = append(config.OutputPaths, cfg.App.LogFile)
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, cfg.App.LogFile)
	}

	return config.Build()
}
