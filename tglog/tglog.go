package tglog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"blogger_bot/logger"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender — часть API бота, нужная для лог-канала
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

var (
	mu        sync.RWMutex
	b         Sender
	channelID int64
	enabled   bool
)

// Init инициализирует логгер в TG-канал
func Init(tgBot Sender, chID int64) {
	mu.Lock()
	defer mu.Unlock()

	if chID == 0 {
		enabled = false
		logger.Info("LOG_CHANNEL_ID не задан, логирование в канал отключено")
		return
	}
	b = tgBot
	channelID = chID
	enabled = true
	logger.Infof("Логирование в канал %d включено", chID)
}

func Enabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// Send отправляет сообщение в лог-канал (неблокирующий)
func Send(format string, args ...any) {
	mu.RLock()
	sender, chID, on := b, channelID, enabled
	mu.RUnlock()
	if !on {
		return
	}

	text := fmt.Sprintf(format, args...)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chID,
			Text:      text,
			ParseMode: models.ParseModeHTML,
		})
		if err != nil {
			logger.WithError(err).Warn("Ошибка отправки лога в канал")
		}
	}()
}
