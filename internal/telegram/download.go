package telegram

import (
	"context"
	"fmt"
	"io"
	log "log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"scribe/internal/relay"
)

type remoteFile struct {
	kind     relay.MediaKind
	id       string
	uniqueID string
	name     string
	mime     string
	size     int64
}

func mediaOf(msg *models.Message) (remoteFile, bool) {
	switch {
	case msg.Voice != nil:
		v := msg.Voice
		return remoteFile{
			kind:     relay.Voice,
			id:       v.FileID,
			uniqueID: v.FileUniqueID,
			mime:     v.MimeType,
			size:     int64(v.FileSize),
		}, true
	case msg.Audio != nil:
		a := msg.Audio
		return remoteFile{
			kind:     relay.Audio,
			id:       a.FileID,
			uniqueID: a.FileUniqueID,
			name:     a.FileName,
			mime:     a.MimeType,
			size:     int64(a.FileSize),
		}, true
	case msg.Document != nil:
		d := msg.Document
		return remoteFile{
			kind:     relay.Document,
			id:       d.FileID,
			uniqueID: d.FileUniqueID,
			name:     d.FileName,
			mime:     d.MimeType,
			size:     int64(d.FileSize),
		}, true
	}
	return remoteFile{}, false
}

// download fetches f into a temp file that keeps the original extension.
func (b *Bot) download(ctx context.Context, f remoteFile) (string, error) {
	meta, err := b.api.GetFile(ctx, &tgbot.GetFileParams{FileID: f.id})
	if err != nil {
		return "", fmt.Errorf("get file: %w", err)
	}
	if int64(meta.FileSize) > b.maxSize {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLarge, meta.FileSize)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.fileURL(meta.FilePath), nil)
	if err != nil {
		return "", err
	}
	resp, err := b.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch: status %d", resp.StatusCode)
	}

	out, err := os.CreateTemp("", "scribe-*"+extension(f, meta.FilePath))
	if err != nil {
		return "", err
	}

	n, err := io.Copy(out, io.LimitReader(resp.Body, b.maxSize+1))
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > b.maxSize {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, b.maxSize)
	}
	if err != nil {
		removeTemp(out.Name())
		return "", fmt.Errorf("save: %w", err)
	}

	log.Debug("Downloaded file", "path", out.Name(), "bytes", n)
	return out.Name(), nil
}

func extension(f remoteFile, remotePath string) string {
	if ext := filepath.Ext(f.name); ext != "" {
		return strings.ToLower(ext)
	}
	if ext := filepath.Ext(remotePath); ext != "" {
		return strings.ToLower(ext)
	}
	switch f.kind {
	case relay.Voice:
		return ".ogg"
	case relay.Document:
		return ".pdf"
	}
	return ""
}

func removeTemp(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn("Failed to remove temp file", "path", path, "err", err)
	}
}
