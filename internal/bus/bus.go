// Package bus publishes relay events to a hub over websocket.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	log "log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const shard = "scribe"

type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// Bus holds one connection. Writes are serialized; a failed write is
// retried once on a fresh connection.
type Bus struct {
	mu     sync.Mutex
	url    string
	conn   *websocket.Conn
	dialer *websocket.Dialer
}

func New(ctx context.Context, wsURL string) (*Bus, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, err
	}

	b := &Bus{
		url:    u.String(),
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
	if err := b.dial(ctx); err != nil {
		return nil, err
	}

	log.Info("Connected to bus", "url", b.url)
	return b, nil
}

func (b *Bus) dial(ctx context.Context) error {
	conn, _, err := b.dialer.DialContext(ctx, b.url, nil)
	if err != nil {
		return fmt.Errorf("dial bus: %w", err)
	}
	b.conn = conn
	return nil
}

// Publish sends content as a broadcast of the given kind.
func (b *Bus) Publish(ctx context.Context, kind, content string) error {
	data, err := json.Marshal(Message{
		From:    shard,
		To:      "ALL",
		Kind:    kind,
		Content: content,
	})
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.conn.WriteMessage(websocket.TextMessage, data); err == nil {
		return nil
	}

	log.Warn("Bus write failed, reconnecting", "url", b.url)
	_ = b.conn.Close()
	if err := b.dial(ctx); err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	_ = b.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return b.conn.Close()
}
