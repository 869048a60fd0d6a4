package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// maxSearchPageSize — верхняя граница выдачи поиска в database.SearchCriteria
const maxSearchPageSize = 100

type Config struct {
	Environment          string
	BotToken             string
	DatabaseURL          string
	PaymentProviderToken string
	PaymentSecret        string
	LogChannelID         int64

	// Подписка покупателя
	SubscriptionPrice int
	SubscriptionDays  int

	SearchPageSize int

	// Штраф продавцу за жалобу покупателя, копейки. При 0 жалоба без штрафа.
	ComplaintPenalty int

	// Google Sheets для аудита
	GoogleCredentialsFile string
	SpreadsheetID         string

	SentryDSN string
	TestMode  bool
}

func Load() *Config {
	price, _ := strconv.Atoi(getEnv("SUBSCRIPTION_PRICE", "50000"))
	days, _ := strconv.Atoi(getEnv("SUBSCRIPTION_DAYS", "30"))
	pageSize, _ := strconv.Atoi(getEnv("SEARCH_PAGE_SIZE", "5"))
	penalty, _ := strconv.Atoi(getEnv("COMPLAINT_PENALTY", "0"))
	// Без PAYMENT_SECRET payload счетов подписывается токеном бота
	botToken := getEnv("BOT_TOKEN", "")
	logChannel, _ := strconv.ParseInt(getEnv("LOG_CHANNEL_ID", "0"), 10, 64)

	return &Config{
		Environment:           getEnv("ENVIRONMENT", "development"),
		BotToken:              botToken,
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		PaymentProviderToken:  getEnv("PAYMENT_PROVIDER_TOKEN", ""),
		PaymentSecret:         getEnv("PAYMENT_SECRET", botToken),
		LogChannelID:          logChannel,
		SubscriptionPrice:     price,
		SubscriptionDays:      days,
		SearchPageSize:        pageSize,
		ComplaintPenalty:      penalty,
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		SpreadsheetID:         getEnv("SPREADSHEET_ID", ""),
		SentryDSN:             getEnv("SENTRY_DSN", ""),
		TestMode:              getEnv("TEST_MODE", "false") == "true",
	}
}

// Validate проверяет обязательные параметры
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("BOT_TOKEN не установлен"))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL не установлен"))
	}
	if c.SubscriptionPrice <= 0 {
		errs = append(errs, errors.New("SUBSCRIPTION_PRICE должен быть больше нуля"))
	}
	if c.SubscriptionDays <= 0 {
		errs = append(errs, errors.New("SUBSCRIPTION_DAYS должен быть больше нуля"))
	}
	if c.SearchPageSize < 1 || c.SearchPageSize > maxSearchPageSize {
		errs = append(errs, fmt.Errorf("SEARCH_PAGE_SIZE должен быть от 1 до %d", maxSearchPageSize))
	}
	if c.ComplaintPenalty < 0 {
		errs = append(errs, errors.New("COMPLAINT_PENALTY не может быть отрицательным"))
	}
	return errors.Join(errs...)
}

func (c *Config) SubscriptionWindow() time.Duration {
	return time.Duration(c.SubscriptionDays) * 24 * time.Hour
}

func (c *Config) SheetsEnabled() bool {
	return c.GoogleCredentialsFile != "" && c.SpreadsheetID != ""
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
