package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	log "log/slog"

	"scribe/internal/bus"
	"scribe/internal/cache"
	"scribe/internal/config"
	"scribe/internal/delivery"
	"scribe/internal/httpapi"
	"scribe/internal/ipc"
	"scribe/internal/llm"
	"scribe/internal/ocr"
	"scribe/internal/proxy"
	"scribe/internal/relay"
	"scribe/internal/telegram"
	"scribe/pkg/stt"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "scribe-bot:", err)
		os.Exit(2)
	}

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cfg.Level(),
		TimeFormat: time.Kitchen,
	})))

	log.Info("Booting up")

	if err := run(cfg); err != nil {
		log.Error("Stopped", "err", err)
		os.Exit(1)
	}
	log.Info("Bye")
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient, err := proxy.NewHTTPClient(cfg.Proxy, 2*time.Minute)
	if err != nil {
		return fmt.Errorf("socks proxy %s: %w", cfg.Proxy, err)
	}
	log.Debug("Loaded http client", "proxy", cfg.Proxy)

	var (
		transcriber relay.Transcriber
		formatter   relay.Formatter
		vision      ocr.PageReader
	)

	if cfg.OpenAIKey != "" {
		client := llm.NewClient(cfg.OpenAIKey, httpClient, "")
		transcriber = llm.NewTranscriber(client, cfg.Language)
		vision = llm.NewVision(client, cfg.VisionModel)
		if !cfg.NoFormat {
			formatter = llm.NewFormatter(client, cfg.FormatModel)
		}
		log.Debug("Loaded OpenAI client")
	}

	if cfg.STT == config.STTWhisper {
		w, err := stt.NewWhisper(cfg.WhisperModel, stt.Options{Language: cfg.Language})
		if err != nil {
			return fmt.Errorf("whisper: %w", err)
		}
		defer w.Close()
		transcriber = w
		log.Debug("Loaded whisper", "model", cfg.WhisperModel)
	}

	recognizer := ocr.New(vision, ocr.Options{
		MaxPages: cfg.OCRMaxPages,
		DPI:      cfg.OCRDPI,
		Force:    cfg.OCRForce,
	})

	var store cache.Store = cache.Nop{}
	if cfg.RedisAddr != "" {
		r := cache.NewRedis(cfg.RedisAddr, cfg.RedisDB, cfg.CacheTTL)
		defer r.Close()
		if err := r.Ping(ctx); err != nil {
			log.Warn("Redis unreachable, cache calls will fail until it is back", "addr", cfg.RedisAddr, "err", err)
		}
		store = r
	}

	opt := relay.Options{
		Planner: delivery.Planner{
			Limit:     cfg.Limit(),
			Threshold: cfg.Threshold,
			Filename:  delivery.DefaultFilename,
			Header:    delivery.DefaultHeader,
		},
		Formatter:  formatter,
		Recognizer: recognizer,
		Cache:      store,
	}
	if cfg.BusURL != "" {
		b, err := bus.New(ctx, cfg.BusURL)
		if err != nil {
			log.Warn("Bus disabled", "url", cfg.BusURL, "err", err)
		} else {
			defer b.Close()
			opt.Bus = b
		}
	}
	rl := relay.New(transcriber, opt)

	bot, err := telegram.New(telegram.Options{
		Token:         cfg.TelegramToken,
		HTTPClient:    httpClient,
		MaxDownload:   cfg.MaxDownload,
		WebhookURL:    cfg.WebhookURL,
		WebhookSecret: cfg.WebhookSecret,
	}, rl)
	if err != nil {
		return err
	}

	srv, err := ipc.StartServer(cfg.Socket, func(msg ipc.ControlMessage) ipc.Reply {
		switch msg.Cmd {
		case ipc.CmdPing:
			return ipc.Reply{OK: true}
		case ipc.CmdStatus:
			return ipc.Reply{OK: true, Data: rl.Stats().Map()}
		case ipc.CmdStop:
			log.Info("Stop requested")
			stop()
			return ipc.Reply{OK: true}
		default:
			log.Warn("Unknown command", "cmd", msg.Cmd)
			return ipc.Reply{Error: "unknown command " + msg.Cmd}
		}
	})
	if err != nil {
		return fmt.Errorf("ipc server: %w", err)
	}
	defer srv.Close()

	if cfg.HTTPAddr != "" {
		var hook http.Handler
		if bot.Webhook() {
			hook = bot.WebhookHandler()
		}
		router := httpapi.NewRouter(func() any { return rl.Stats() }, hook)
		go func() {
			if err := httpapi.Serve(ctx, cfg.HTTPAddr, router); err != nil {
				log.Error("HTTP server failed", "addr", cfg.HTTPAddr, "err", err)
				stop()
			}
		}()
	}

	log.Info("Boot up - successful", "limit", cfg.Limit(), "stt", cfg.STT)

	return bot.Run(ctx)
}
