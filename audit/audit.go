package audit

import (
	"context"
	"time"

	"blogger_bot/database"
	"blogger_bot/logger"
)

type ActionKind string

const (
	ActionSubscriptionActivated ActionKind = "subscription_activated"
	ActionSubscriptionCancelled ActionKind = "subscription_cancelled"
	ActionAutoRenewalToggled    ActionKind = "auto_renewal_toggled"
	ActionBloggerCreated        ActionKind = "blogger_created"
	ActionBloggerDeleted        ActionKind = "blogger_deleted"
	ActionContactRequested      ActionKind = "contact_requested"
	ActionPenaltyApplied        ActionKind = "penalty_applied"
)

type UserSnapshot struct {
	ID                 int64
	PlatformID         int64
	Username           string
	SubscriptionStatus string
	SubscriptionEnd    *time.Time
}

type BloggerSnapshot struct {
	ID       int64
	Name     string
	URL      string
	SellerID int64
}

type Complaint struct {
	BloggerID   int64
	BloggerName string
	UserID      int64
	Username    string
	Reason      string
}

// Recorder — внешний журнал действий. Вызовы не блокируют и не возвращают ошибок.
type Recorder interface {
	RecordAction(user UserSnapshot, blogger *BloggerSnapshot, kind ActionKind)
	RecordComplaint(c Complaint)
}

const sinkTimeout = 10 * time.Second

func UserOf(u *database.User) UserSnapshot {
	s := UserSnapshot{
		ID:                 u.ID,
		PlatformID:         u.PlatformID,
		SubscriptionStatus: string(u.SubscriptionStatus),
		SubscriptionEnd:    u.SubscriptionEndDate,
	}
	if u.Username != nil {
		s.Username = *u.Username
	}
	return s
}

func BloggerOf(b *database.Blogger) *BloggerSnapshot {
	if b == nil {
		return nil
	}
	return &BloggerSnapshot{ID: b.ID, Name: b.Name, URL: b.URL, SellerID: b.SellerID}
}

// Multi рассылает записи во все журналы
type Multi []Recorder

func (m Multi) RecordAction(user UserSnapshot, blogger *BloggerSnapshot, kind ActionKind) {
	for _, r := range m {
		r.RecordAction(user, blogger, kind)
	}
}

func (m Multi) RecordComplaint(c Complaint) {
	for _, r := range m {
		r.RecordComplaint(c)
	}
}

type Nop struct{}

func (Nop) RecordAction(UserSnapshot, *BloggerSnapshot, ActionKind) {}
func (Nop) RecordComplaint(Complaint)                                 {}

// fireAndForget выполняет запись в фоне с таймаутом; ошибка только логируется
func fireAndForget(sink string, fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			logger.WithFields(logger.Fields{"sink": sink}).WithError(err).Warn("не удалось записать в журнал аудита")
		}
	}()
}
