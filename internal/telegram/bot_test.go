package telegram

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scribe/internal/relay"
)

type fakeAPI struct {
	mu       sync.Mutex
	texts    []*tgbot.SendMessageParams
	docs     []string
	docBody  []string
	filePath string
	fileSize int64
	getErr   error
}

func (f *fakeAPI) SendMessage(_ context.Context, p *tgbot.SendMessageParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, p)
	return &models.Message{}, nil
}

func (f *fakeAPI) SendDocument(_ context.Context, p *tgbot.SendDocumentParams) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	up := p.Document.(*models.InputFileUpload)
	body, _ := io.ReadAll(up.Data)
	f.docs = append(f.docs, up.Filename)
	f.docBody = append(f.docBody, string(body))
	return &models.Message{}, nil
}

func (f *fakeAPI) GetFile(_ context.Context, p *tgbot.GetFileParams) (*models.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.File{FileID: p.FileID, FilePath: f.filePath, FileSize: f.fileSize}, nil
}

func (f *fakeAPI) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.texts))
	for _, p := range f.texts {
		out = append(out, p.Text)
	}
	return out
}

type recorder struct {
	media   relay.Media
	content string
	calls   int
	reply   string
}

func (r *recorder) Handle(ctx context.Context, c relay.Chat, m relay.Media) error {
	r.calls++
	r.media = m
	b, err := os.ReadFile(m.Path)
	if err != nil {
		return err
	}
	r.content = string(b)
	if r.reply != "" {
		return c.SendText(ctx, r.reply)
	}
	return nil
}

func fileServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/voice/file_1.oga" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testBot(t *testing.T, a *fakeAPI, h Handler, srv *httptest.Server) *Bot {
	t.Helper()
	b := newBot(a, h, Options{Token: "123:abc"})
	if srv != nil {
		b.http = srv.Client()
		b.fileURL = func(path string) string { return srv.URL + "/" + path }
	}
	return b
}

func voiceMessage() *models.Message {
	return &models.Message{
		ID:   42,
		Chat: models.Chat{ID: 7},
		Voice: &models.Voice{
			FileID:       "file-id",
			FileUniqueID: "uniq",
			MimeType:     "audio/ogg",
			FileSize:     5,
		},
	}
}

func TestHandleMessage_Voice(t *testing.T) {
	srv := fileServer(t, "OggS!")
	a := &fakeAPI{filePath: "voice/file_1.oga", fileSize: 5}
	rec := &recorder{reply: "done"}
	b := testBot(t, a, rec, srv)

	b.handleMessage(context.Background(), voiceMessage())

	require.Equal(t, 1, rec.calls)
	assert.Equal(t, relay.Voice, rec.media.Kind)
	assert.Equal(t, "uniq", rec.media.UniqueID)
	assert.Equal(t, ".oga", filepath.Ext(rec.media.Path))
	assert.Equal(t, "OggS!", rec.content)

	_, err := os.Stat(rec.media.Path)
	assert.True(t, os.IsNotExist(err), "temp file must be removed")

	require.Len(t, a.texts, 1)
	assert.Equal(t, "done", a.texts[0].Text)
	assert.Equal(t, int64(7), a.texts[0].ChatID)
	require.NotNil(t, a.texts[0].ReplyParameters)
	assert.Equal(t, 42, a.texts[0].ReplyParameters.MessageID)
}

func TestHandleMessage_TooLarge(t *testing.T) {
	a := &fakeAPI{}
	rec := &recorder{}
	b := testBot(t, a, rec, nil)
	b.maxSize = 4

	b.handleMessage(context.Background(), voiceMessage())

	assert.Zero(t, rec.calls)
	require.Len(t, a.sent(), 1)
	assert.Contains(t, a.sent()[0], "too large")
}

func TestHandleMessage_DownloadError(t *testing.T) {
	a := &fakeAPI{getErr: errors.New("bad request")}
	rec := &recorder{}
	b := testBot(t, a, rec, nil)

	b.handleMessage(context.Background(), voiceMessage())

	assert.Zero(t, rec.calls)
	assert.Equal(t, []string{"❌ Could not download the file."}, a.sent())
}

func TestHandleMessage_PlainText(t *testing.T) {
	a := &fakeAPI{}
	rec := &recorder{}
	b := testBot(t, a, rec, nil)

	b.handleMessage(context.Background(), &models.Message{ID: 1, Chat: models.Chat{ID: 7}, Text: "hi"})

	assert.Zero(t, rec.calls)
	assert.Equal(t, []string{greeting}, a.sent())
}

func TestOnStart(t *testing.T) {
	a := &fakeAPI{}
	b := testBot(t, a, &recorder{}, nil)

	b.onStart(context.Background(), nil, &models.Update{Message: &models.Message{ID: 1, Chat: models.Chat{ID: 3}}})
	assert.Equal(t, []string{greeting}, a.sent())
}

func TestChat_SendFile(t *testing.T) {
	a := &fakeAPI{}
	c := &chat{b: testBot(t, a, &recorder{}, nil), id: 7, replyTo: 9}

	require.NoError(t, c.SendFile(context.Background(), "transcription.txt", []byte("long text")))
	assert.Equal(t, []string{"transcription.txt"}, a.docs)
	assert.Equal(t, []string{"long text"}, a.docBody)
}

func TestMediaOf(t *testing.T) {
	_, ok := mediaOf(&models.Message{Text: "x"})
	assert.False(t, ok)

	f, ok := mediaOf(&models.Message{Document: &models.Document{FileID: "d", FileName: "scan.pdf", MimeType: "application/pdf"}})
	require.True(t, ok)
	assert.Equal(t, relay.Document, f.kind)
	assert.Equal(t, "scan.pdf", f.name)

	f, ok = mediaOf(&models.Message{Audio: &models.Audio{FileID: "a", FileName: "song.MP3"}})
	require.True(t, ok)
	assert.Equal(t, ".mp3", extension(f, "music/file_3"))
}

func TestExtension_Fallbacks(t *testing.T) {
	assert.Equal(t, ".oga", extension(remoteFile{kind: relay.Voice}, "voice/file_1.oga"))
	assert.Equal(t, ".ogg", extension(remoteFile{kind: relay.Voice}, "voice/file_1"))
	assert.Equal(t, ".pdf", extension(remoteFile{kind: relay.Document}, ""))
}

func TestNewBot_CapsMaxDownload(t *testing.T) {
	b := newBot(&fakeAPI{}, &recorder{}, Options{MaxDownload: 1 << 40})
	assert.Equal(t, int64(MaxDownload), b.maxSize)
	assert.Equal(t, "https://api.telegram.org/file/bot/p", b.fileURL("p"))
}
