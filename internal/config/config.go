package config

import (
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"scribe/internal/delivery"
)

const (
	STTOpenAI  = "openai"
	STTWhisper = "whisper"
)

type Config struct {
	TelegramToken string
	OpenAIKey     string

	LogLevel string
	Proxy    string
	Socket   string

	STT          string
	WhisperModel string
	Language     string
	FormatModel  string
	VisionModel  string
	NoFormat     bool

	PlatformMax int
	Margin      int
	Threshold   int
	MaxDownload int64

	OCRMaxPages int
	OCRDPI      float64
	OCRForce    bool

	RedisAddr string
	RedisDB   int
	CacheTTL  time.Duration

	BusURL string

	HTTPAddr      string
	WebhookURL    string
	WebhookSecret string
}

var LogLevels = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// envFallbacks maps flags to the env variables read when the flag is not
// given on the command line.
var envFallbacks = map[string]string{
	"proxy":         "SCRIBE_PROXY",
	"stt":           "SCRIBE_STT",
	"whisper-model": "WHISPER_MODEL",
	"language":      "SCRIBE_LANGUAGE",
	"redis":         "REDIS_ADDR",
	"bus":           "BUS_URL",
	"http":          "SCRIBE_HTTP_ADDR",
	"webhook-url":   "TELEGRAM_WEBHOOK_URL",
}

// Load parses args (without the program name), loads the env file named by
// --env and validates the result.
func Load(args []string) (Config, error) {
	var cfg Config

	fs := cli.NewFlagSet("scribe-bot", cli.ContinueOnError)
	envFile := fs.StringP("env", "e", ".env", "Env file path")
	fs.StringVarP(&cfg.LogLevel, "log", "l", "info", "Log level")
	fs.StringVarP(&cfg.Proxy, "proxy", "p", "", "Socks proxy address, empty for direct")
	fs.StringVar(&cfg.Socket, "socket", "/tmp/scribe.sock", "Control socket path")

	fs.StringVar(&cfg.STT, "stt", STTOpenAI, "Speech to text backend: openai|whisper")
	fs.StringVar(&cfg.WhisperModel, "whisper-model", "third_party/whisper.cpp/models/ggml-medium.bin", "whisper.cpp model path")
	fs.StringVar(&cfg.Language, "language", "", "Spoken language hint, empty to detect")
	fs.StringVar(&cfg.FormatModel, "format-model", "gpt-4o", "Chat model used to format transcripts")
	fs.StringVar(&cfg.VisionModel, "vision-model", "gpt-4o-mini", "Chat model used to read scanned pages")
	fs.BoolVar(&cfg.NoFormat, "no-format", false, "Send raw transcripts")

	fs.IntVar(&cfg.PlatformMax, "max-message", delivery.TelegramMaxMessage, "Platform message size")
	fs.IntVar(&cfg.Margin, "margin", delivery.DefaultMargin, "Characters kept free below the platform size")
	fs.IntVar(&cfg.Threshold, "attach-after", delivery.DefaultThreshold, "Send a file when a reply needs more parts than this")
	fs.Int64Var(&cfg.MaxDownload, "max-download", 20<<20, "Largest file accepted, bytes")

	fs.IntVar(&cfg.OCRMaxPages, "ocr-pages", 20, "Pages read from one PDF")
	fs.Float64Var(&cfg.OCRDPI, "ocr-dpi", 150, "Render resolution for scanned pages")
	fs.BoolVar(&cfg.OCRForce, "ocr-force", false, "OCR every page even when it has a text layer")

	fs.StringVar(&cfg.RedisAddr, "redis", "", "Redis address for the transcript cache, empty disables it")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database")
	fs.DurationVar(&cfg.CacheTTL, "cache-ttl", 24*time.Hour, "Transcript cache lifetime")

	fs.StringVar(&cfg.BusURL, "bus", "", "Hub websocket url for transcript events, empty disables it")

	fs.StringVar(&cfg.HTTPAddr, "http", "", "Listen address for health and webhook endpoints")
	fs.StringVar(&cfg.WebhookURL, "webhook-url", "", "Public webhook url, empty for long polling")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(*envFile); err != nil && fs.Changed("env") {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	for name, key := range envFallbacks {
		if err := fromEnv(fs, name, key); err != nil {
			return Config{}, err
		}
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.WebhookSecret = os.Getenv("TELEGRAM_WEBHOOK_SECRET")

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromEnv(fs *cli.FlagSet, name, key string) error {
	if fs.Changed(name) {
		return nil
	}
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	if err := fs.Set(name, v); err != nil {
		return fmt.Errorf("%s from %s: %w", name, key, err)
	}
	return nil
}

func (c Config) Validate() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_BOT_TOKEN not set")
	}
	if _, ok := LogLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	switch c.STT {
	case STTOpenAI, STTWhisper:
	default:
		return fmt.Errorf("unknown stt backend %q", c.STT)
	}
	if c.OpenAIKey == "" && !c.Offline() {
		return errors.New("OPENAI_API_KEY not set")
	}
	if c.Limit() <= 0 {
		return fmt.Errorf("max-message %d leaves no room after margin %d", c.PlatformMax, c.Margin)
	}
	if c.Threshold <= 0 {
		return fmt.Errorf("attach-after must be positive, got %d", c.Threshold)
	}
	if c.WebhookURL != "" && c.HTTPAddr == "" {
		return errors.New("webhook-url needs an http listen address")
	}
	return nil
}

// Offline reports whether the bot can run without the OpenAI API.
func (c Config) Offline() bool {
	return c.STT == STTWhisper && c.NoFormat
}

// Limit is the unit limit handed to the delivery planner.
func (c Config) Limit() int {
	return delivery.LimitFor(c.PlatformMax, c.Margin)
}

func (c Config) Level() log.Level {
	return LogLevels[strings.ToLower(c.LogLevel)]
}
