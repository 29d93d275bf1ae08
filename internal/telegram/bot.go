// Package telegram is the chat transport: it receives voice, audio and
// document messages and answers with the relay's output.
package telegram

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"scribe/internal/relay"
)

const (
	greeting = "Send me a voice message, and I'll transcribe it for you!"
	helpText = "Send a voice message or an audio file and I reply with its text.\n" +
		"Send a PDF and I reply with the recognized text.\n" +
		"Long results arrive as a .txt file."

	// MaxDownload is the largest file the Bot API lets a bot download.
	MaxDownload = 20 << 20

	fileEndpoint = "https://api.telegram.org/file/bot"
)

var ErrTooLarge = errors.New("file too large")

// Handler receives every recognized media message.
type Handler interface {
	Handle(ctx context.Context, chat relay.Chat, m relay.Media) error
}

// api is the part of the Bot API client the transport calls.
type api interface {
	SendMessage(ctx context.Context, params *tgbot.SendMessageParams) (*models.Message, error)
	SendDocument(ctx context.Context, params *tgbot.SendDocumentParams) (*models.Message, error)
	GetFile(ctx context.Context, params *tgbot.GetFileParams) (*models.File, error)
}

type Options struct {
	Token       string
	HTTPClient  *http.Client
	PollTimeout time.Duration
	MaxDownload int64
	// WebhookURL switches from long polling to webhook mode.
	WebhookURL    string
	WebhookSecret string
}

type Bot struct {
	api     api
	tg      *tgbot.Bot
	handler Handler
	http    *http.Client
	fileURL func(path string) string
	maxSize int64
	opt     Options
}

func New(opt Options, h Handler) (*Bot, error) {
	if opt.HTTPClient == nil {
		opt.HTTPClient = &http.Client{}
	}
	if opt.PollTimeout <= 0 {
		opt.PollTimeout = 30 * time.Second
	}

	b := newBot(nil, h, opt)

	botOpts := []tgbot.Option{
		tgbot.WithDefaultHandler(b.onUpdate),
		tgbot.WithHTTPClient(opt.PollTimeout, opt.HTTPClient),
	}
	if opt.WebhookSecret != "" {
		botOpts = append(botOpts, tgbot.WithWebhookSecretToken(opt.WebhookSecret))
	}

	tg, err := tgbot.New(opt.Token, botOpts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	tg.RegisterHandler(tgbot.HandlerTypeMessageText, "/start", tgbot.MatchTypeExact, b.onStart)
	tg.RegisterHandler(tgbot.HandlerTypeMessageText, "/help", tgbot.MatchTypeExact, b.onHelp)

	b.api = tg
	b.tg = tg
	return b, nil
}

func newBot(a api, h Handler, opt Options) *Bot {
	maxSize := opt.MaxDownload
	if maxSize <= 0 || maxSize > MaxDownload {
		maxSize = MaxDownload
	}
	client := opt.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	token := opt.Token
	return &Bot{
		api:     a,
		handler: h,
		http:    client,
		maxSize: maxSize,
		opt:     opt,
		fileURL: func(path string) string {
			return fileEndpoint + token + "/" + path
		},
	}
}

// Webhook reports whether updates arrive through WebhookHandler.
func (b *Bot) Webhook() bool {
	return b.opt.WebhookURL != ""
}

// WebhookHandler serves Telegram update POSTs in webhook mode.
func (b *Bot) WebhookHandler() http.HandlerFunc {
	return b.tg.WebhookHandler()
}

// Run receives updates until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	if b.Webhook() {
		ok, err := b.tg.SetWebhook(ctx, &tgbot.SetWebhookParams{
			URL:         b.opt.WebhookURL,
			SecretToken: b.opt.WebhookSecret,
		})
		if err != nil {
			return fmt.Errorf("set webhook: %w", err)
		}
		if !ok {
			return errors.New("set webhook: rejected")
		}
		log.Info("Webhook registered", "url", b.opt.WebhookURL)
		b.tg.StartWebhook(ctx)
		return nil
	}

	if _, err := b.tg.DeleteWebhook(ctx, &tgbot.DeleteWebhookParams{}); err != nil {
		log.Warn("Failed to drop webhook", "err", err)
	}
	log.Info("Starting long poll")
	b.tg.Start(ctx)
	return nil
}

func (b *Bot) onStart(ctx context.Context, _ *tgbot.Bot, upd *models.Update) {
	b.reply(ctx, upd.Message, greeting)
}

func (b *Bot) onHelp(ctx context.Context, _ *tgbot.Bot, upd *models.Update) {
	b.reply(ctx, upd.Message, helpText)
}

func (b *Bot) onUpdate(ctx context.Context, _ *tgbot.Bot, upd *models.Update) {
	if upd.Message == nil {
		return
	}
	b.handleMessage(ctx, upd.Message)
}

func (b *Bot) handleMessage(ctx context.Context, msg *models.Message) {
	file, ok := mediaOf(msg)
	if !ok {
		if msg.Text != "" {
			b.reply(ctx, msg, greeting)
		}
		return
	}
	lg := log.With("chat", msg.Chat.ID, "msg", msg.ID, "media", file.kind.String())

	if file.size > b.maxSize {
		lg.Warn("File too large", "size", file.size)
		b.reply(ctx, msg, fmt.Sprintf("⚠️ File is too large, the limit is %d MB.", b.maxSize>>20))
		return
	}

	path, err := b.download(ctx, file)
	if err != nil {
		lg.Error("Download failed", "err", err)
		b.reply(ctx, msg, "❌ Could not download the file.")
		return
	}
	defer removeTemp(path)

	m := relay.Media{
		Kind:     file.kind,
		Path:     path,
		Name:     file.name,
		MIME:     file.mime,
		UniqueID: file.uniqueID,
	}
	if err := b.handler.Handle(ctx, &chat{b: b, id: msg.Chat.ID, replyTo: msg.ID}, m); err != nil {
		lg.Warn("Message not fully handled", "err", err)
	}
}

func (b *Bot) reply(ctx context.Context, msg *models.Message, text string) {
	if msg == nil {
		return
	}
	c := &chat{b: b, id: msg.Chat.ID, replyTo: msg.ID}
	if err := c.SendText(ctx, text); err != nil {
		log.Warn("Reply failed", "chat", msg.Chat.ID, "err", err)
	}
}
