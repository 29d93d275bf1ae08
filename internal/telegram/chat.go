package telegram

import (
	"bytes"
	"context"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// chat answers one source message. Every send is a reply to it.
type chat struct {
	b       *Bot
	id      int64
	replyTo int
}

func (c *chat) ID() int64 { return c.id }

func (c *chat) replyParams() *models.ReplyParameters {
	if c.replyTo == 0 {
		return nil
	}
	return &models.ReplyParameters{MessageID: c.replyTo, AllowSendingWithoutReply: true}
}

func (c *chat) SendText(ctx context.Context, text string) error {
	_, err := c.b.api.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:          c.id,
		Text:            text,
		ReplyParameters: c.replyParams(),
	})
	return err
}

func (c *chat) SendFile(ctx context.Context, filename string, content []byte) error {
	_, err := c.b.api.SendDocument(ctx, &tgbot.SendDocumentParams{
		ChatID: c.id,
		Document: &models.InputFileUpload{
			Filename: filename,
			Data:     bytes.NewReader(content),
		},
		ReplyParameters: c.replyParams(),
	})
	return err
}

func (c *chat) Status(ctx context.Context, text string) error {
	return c.SendText(ctx, text)
}
