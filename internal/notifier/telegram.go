package notifier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const maxGroupSize = 10

// Telegram sends notifications with a bot.
type Telegram struct {
	bot *tgbotapi.BotAPI
	log *slog.Logger
}

func NewTelegram(token string, log *slog.Logger) *Telegram {
	log.Info("connecting to telegram...")
	t, err := newTelegram(token, tgbotapi.APIEndpoint, &http.Client{Timeout: time.Minute}, log)
	if err != nil {
		log.Error("failed to create telegram bot.", slog.String("err", err.Error()))
		os.Exit(1)
	}
	log.Info("connected to telegram!", slog.String("bot", t.bot.Self.UserName))

	return t
}

// newTelegram checks the token against endpoint, a format string taking the token and the method.
func newTelegram(token, endpoint string, client *http.Client, log *slog.Logger) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, err
	}
	return &Telegram{bot: bot, log: log}, nil
}

func (t *Telegram) SendMediaGroup(ctx context.Context, target int64, items []MediaItem) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch {
	case len(items) == 0:
		return errors.New("empty media group")
	case len(items) > maxGroupSize:
		return fmt.Errorf("media group of %d items, telegram accepts at most %d", len(items), maxGroupSize)
	case len(items) == 1:
		// groups need at least two items, a single image goes out as a photo
		photo := tgbotapi.NewPhoto(target, fileData(items[0], 0))
		photo.Caption = items[0].Caption
		if _, err := t.bot.Send(photo); err != nil {
			return fmt.Errorf("send photo: %w", err)
		}
		t.log.Debug("photo sent.")
		return nil
	}
	media := make([]interface{}, 0, len(items))
	for i, item := range items {
		photo := tgbotapi.NewInputMediaPhoto(fileData(item, i))
		photo.Caption = item.Caption
		media = append(media, photo)
	}

	msgs, err := t.bot.SendMediaGroup(tgbotapi.NewMediaGroup(target, media))
	if err != nil {
		return fmt.Errorf("send media group: %w", err)
	}
	t.log.Debug("media group sent.", slog.Int("messages", len(msgs)))

	return nil
}

func fileData(item MediaItem, i int) tgbotapi.RequestFileData {
	if item.Data != nil {
		return tgbotapi.FileBytes{Name: fmt.Sprintf("image_%d.jpg", i+1), Bytes: item.Data}
	}
	return tgbotapi.FileURL(item.URL)
}

func (t *Telegram) SendMessage(ctx context.Context, target int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(target, text)); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	t.log.Debug("message sent.")

	return nil
}
