// Package relay runs one media message through recognition and delivers the
// resulting text back to the chat it came from.
package relay

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"scribe/internal/cache"
	"scribe/internal/delivery"
)

type MediaKind int

const (
	Voice MediaKind = iota
	Audio
	Document
)

func (k MediaKind) String() string {
	switch k {
	case Voice:
		return "voice"
	case Audio:
		return "audio"
	case Document:
		return "document"
	default:
		return fmt.Sprintf("media(%d)", int(k))
	}
}

// Media is a downloaded file ready for recognition.
type Media struct {
	Kind MediaKind
	Path string
	// Name is the file name the sender gave, if any.
	Name string
	MIME string
	// UniqueID is stable across forwards of the same file.
	UniqueID string
}

type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, error)
}

type Formatter interface {
	Format(ctx context.Context, text string) (string, error)
}

type Recognizer interface {
	Recognize(ctx context.Context, path string) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, kind, content string) error
}

// Chat is the conversation a request came from.
type Chat interface {
	delivery.Sender
	ID() int64
	Status(ctx context.Context, text string) error
}

const (
	statusTranscribing = "⏳ Transcribing your voice message..."
	statusFormatting   = "⏳ Formatting your voice message..."
	statusRecognizing  = "⏳ Recognizing your document..."

	transcriptPrefix = "📝 Transcription:\n"
	documentPrefix   = "📄 Recognized text:\n"

	nothingRecognized = "🤷 Nothing recognized."
	notPDF            = "Only PDF documents are supported."
	failedNote        = "❌ Could not process your message."
)

var ErrUnsupported = errors.New("unsupported media")

type Options struct {
	Planner delivery.Planner
	// Formatter, Recognizer, Cache and Bus may be nil.
	Formatter  Formatter
	Recognizer Recognizer
	Cache      cache.Store
	Bus        Publisher
}

type Relay struct {
	stt     Transcriber
	format  Formatter
	ocr     Recognizer
	cache   cache.Store
	bus     Publisher
	planner delivery.Planner

	locks *keyedMutex
	stats Stats
}

func New(stt Transcriber, opt Options) *Relay {
	c := opt.Cache
	if c == nil {
		c = cache.Nop{}
	}
	return &Relay{
		stt:     stt,
		format:  opt.Formatter,
		ocr:     opt.Recognizer,
		cache:   c,
		bus:     opt.Bus,
		planner: opt.Planner,
		locks:   newKeyedMutex(),
	}
}

func (r *Relay) Stats() Snapshot {
	return r.stats.Snapshot()
}

// Handle processes m and answers in chat. Requests of one chat run one at a
// time, in arrival order of the lock.
func (r *Relay) Handle(ctx context.Context, chat Chat, m Media) error {
	unlock := r.locks.Lock(chat.ID())
	defer unlock()

	req := uuid.NewString()
	lg := log.With("req", req, "chat", chat.ID(), "media", m.Kind.String())
	lg.Info("Handling message")
	r.stats.handled.Add(1)

	err := r.handle(ctx, lg, chat, m)
	if err != nil {
		r.stats.failed.Add(1)
		lg.Error("Request failed", "err", err)
		return fmt.Errorf("request %s: %w", req, err)
	}
	lg.Info("Request done")
	return nil
}

func (r *Relay) handle(ctx context.Context, lg *log.Logger, chat Chat, m Media) error {
	var (
		text, prefix, kind string
		err                error
		planner            = r.planner
	)

	switch m.Kind {
	case Voice, Audio:
		kind, prefix = "transcript", transcriptPrefix
		text, err = r.transcript(ctx, lg, chat, m)
	case Document:
		if !isPDF(m) {
			r.note(ctx, lg, chat, notPDF)
			return fmt.Errorf("%w: %q", ErrUnsupported, m.MIME)
		}
		if r.ocr == nil {
			r.note(ctx, lg, chat, notPDF)
			return fmt.Errorf("%w: no recognizer", ErrUnsupported)
		}
		kind, prefix = "ocr", documentPrefix
		planner = planner.WithFilename(textName(m.Name))
		text, err = r.document(ctx, lg, chat, m)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupported, m.Kind)
	}
	if err != nil {
		r.note(ctx, lg, chat, failedNote)
		return err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		lg.Info("Nothing recognized")
		return chat.SendText(ctx, nothingRecognized)
	}

	if r.bus != nil {
		if err := r.bus.Publish(ctx, kind, text); err != nil {
			lg.Warn("Bus publish failed", "err", err)
		}
	}

	return r.deliver(ctx, lg, chat, planner, prefix+text)
}

func (r *Relay) deliver(ctx context.Context, lg *log.Logger, chat Chat, planner delivery.Planner, body string) error {
	plan, err := planner.Plan(body)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}
	lg.Debug("Planned delivery", "kind", plan.Kind.String(), "units", len(plan.Units))

	rep, err := delivery.Deliver(ctx, plan, chat)
	if errors.Is(err, delivery.ErrEmptyInput) {
		return chat.SendText(ctx, nothingRecognized)
	}

	failed := rep.Failed()
	sent := uint64(len(rep.Results) - len(failed))
	if plan.Kind == delivery.KindAttachment {
		r.stats.attachments.Add(sent)
	} else {
		r.stats.units.Add(sent)
	}

	for _, f := range failed {
		lg.Error("Unit not delivered", "index", f.Index, "err", f.Err)
	}
	if len(failed) > 0 && len(failed) < len(rep.Results) {
		total := len(rep.Results)
		for _, f := range failed {
			r.note(ctx, lg, chat, fmt.Sprintf("⚠️ part %d of %d failed to send", f.Index+1, total))
		}
	}
	return err
}

func (r *Relay) transcript(ctx context.Context, lg *log.Logger, chat Chat, m Media) (string, error) {
	key := cache.Key("stt", m.UniqueID)
	if text, ok := r.cached(ctx, lg, m, key); ok {
		return text, nil
	}

	r.status(ctx, lg, chat, statusTranscribing)
	raw, err := r.stt.Transcribe(ctx, m.Path)
	if err != nil {
		return "", fmt.Errorf("transcribe: %w", err)
	}
	lg.Debug("Transcribed", "runes", delivery.Len(raw))

	text := raw
	if r.format != nil && strings.TrimSpace(raw) != "" {
		r.status(ctx, lg, chat, statusFormatting)
		formatted, err := r.format.Format(ctx, raw)
		if err != nil {
			lg.Warn("Format failed, sending raw transcript", "err", err)
		} else {
			text = formatted
		}
	}

	r.store(ctx, lg, m, key, text)
	return text, nil
}

func (r *Relay) document(ctx context.Context, lg *log.Logger, chat Chat, m Media) (string, error) {
	key := cache.Key("ocr", m.UniqueID)
	if text, ok := r.cached(ctx, lg, m, key); ok {
		return text, nil
	}

	r.status(ctx, lg, chat, statusRecognizing)
	text, err := r.ocr.Recognize(ctx, m.Path)
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}

	r.store(ctx, lg, m, key, text)
	return text, nil
}

func (r *Relay) cached(ctx context.Context, lg *log.Logger, m Media, key string) (string, bool) {
	if m.UniqueID == "" {
		return "", false
	}
	text, ok, err := r.cache.Get(ctx, key)
	if err != nil {
		lg.Warn("Cache get failed", "key", key, "err", err)
		return "", false
	}
	if ok {
		lg.Info("Cache hit", "key", key)
	}
	return text, ok
}

func (r *Relay) store(ctx context.Context, lg *log.Logger, m Media, key, text string) {
	if m.UniqueID == "" || strings.TrimSpace(text) == "" {
		return
	}
	if err := r.cache.Set(ctx, key, text); err != nil {
		lg.Warn("Cache set failed", "key", key, "err", err)
	}
}

func (r *Relay) status(ctx context.Context, lg *log.Logger, chat Chat, text string) {
	if err := chat.Status(ctx, text); err != nil {
		lg.Warn("Status not sent", "err", err)
	}
}

func (r *Relay) note(ctx context.Context, lg *log.Logger, chat Chat, text string) {
	if err := chat.SendText(ctx, text); err != nil {
		lg.Warn("Note not sent", "err", err)
	}
}

func isPDF(m Media) bool {
	if m.MIME == "application/pdf" {
		return true
	}
	return strings.EqualFold(filepath.Ext(m.Name), ".pdf")
}

// textName maps report.pdf to report.txt.
func textName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if base == "" || base == "." || base == "/" {
		return delivery.DefaultFilename
	}
	return base + ".txt"
}
