package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"blogger_bot/audit"
	"blogger_bot/billing"
	"blogger_bot/config"
	"blogger_bot/database"
	"blogger_bot/handlers"
	"blogger_bot/logger"
	"blogger_bot/payment"
	"blogger_bot/tglog"

	"github.com/getsentry/sentry-go"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/joho/godotenv"
)

func main() {
	// .env нужен только локально
	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			TracesSampleRate: 0.2,
		}); err != nil {
			logger.WithError(err).Error("sentry не инициализирован")
		} else {
			defer sentry.Flush(2 * time.Second)
			logger.EnableSentry()
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal(err)
	}
	defer db.Close()

	// Схема готовится до приёма первых сообщений
	if err := db.EnsureSchema(ctx); err != nil {
		logger.Fatal(err)
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(func(ctx context.Context, b *bot.Bot, update *models.Update) {}),
	}

	b, err := bot.New(cfg.BotToken, opts...)
	if err != nil {
		logger.Fatal(err)
	}

	me, err := b.GetMe(ctx)
	if err != nil {
		logger.Fatal(err)
	}

	tglog.Init(b, cfg.LogChannelID)

	recorders := audit.Multi{audit.Channel{}}
	if cfg.SheetsEnabled() {
		sheets, err := audit.NewSheets(ctx, cfg.GoogleCredentialsFile, cfg.SpreadsheetID)
		if err != nil {
			logger.WithError(err).Error("журнал в Google Sheets отключён")
		} else {
			recorders = append(recorders, sheets)
		}
	}

	gateway := payment.NewInvoiceGateway(b, cfg.PaymentProviderToken, cfg.PaymentSecret)
	svc := billing.NewService(db, gateway, recorders, cfg.SubscriptionPrice, cfg.SubscriptionWindow())

	h := handlers.New(b, cfg, db, svc, recorders)

	b.RegisterHandler(bot.HandlerTypeMessageText, "", bot.MatchTypePrefix, h.OnMessage)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, h.OnCallback)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil && update.Message.SuccessfulPayment != nil
	}, h.OnMessage)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.PreCheckoutQuery != nil
	}, h.OnPreCheckout)

	logger.Infof("Бот @%s запущен", me.Username)
	tglog.Send("🚀 Бот @%s запущен", me.Username)
	b.Start(ctx)
}
