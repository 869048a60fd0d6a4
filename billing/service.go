package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"blogger_bot/audit"
	"blogger_bot/database"
	"blogger_bot/logger"
	"blogger_bot/payment"
)

var (
	ErrUnknownUser      = errors.New("user not found")
	ErrInvalidSignature = errors.New("invalid payment signature")
	ErrPayerMismatch    = errors.New("payment belongs to another user")
	ErrUnderpaid        = errors.New("paid amount is below subscription price")
)

// Store — операции хранилища, нужные для подписок
type Store interface {
	GetUserByPlatformID(ctx context.Context, platformID int64) (*database.User, error)
	GetUser(ctx context.Context, id int64) (*database.User, error)
	RefreshSubscription(ctx context.Context, userID int64) (*database.User, error)
	Activate(ctx context.Context, userID int64, window time.Duration, amount int, paymentRef string) (*database.Subscription, error)
	ToggleAutoRenewal(ctx context.Context, userID int64, enable bool) (bool, error)
	Cancel(ctx context.Context, userID int64, immediate bool) (bool, error)
	History(ctx context.Context, userID int64, limit int) ([]database.Subscription, error)
}

type Service struct {
	store   Store
	gateway payment.Gateway
	audit   audit.Recorder
	price   int
	window  time.Duration
	now     func() time.Time
}

func NewService(store Store, gateway payment.Gateway, recorder audit.Recorder, price int, window time.Duration) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		store:   store,
		gateway: gateway,
		audit:   recorder,
		price:   price,
		window:  window,
		now:     time.Now,
	}
}

func (s *Service) Price() int { return s.price }

func (s *Service) Window() time.Duration { return s.window }

// StartCheckout создаёт счёт; подписка активируется только после подтверждения оплаты
func (s *Service) StartCheckout(ctx context.Context, user *database.User) (payment.Checkout, error) {
	return s.gateway.CreateCheckout(ctx, user.PlatformID, s.price)
}

// ConfirmPayment проверяет подпись payload счёта и активирует подписку
func (s *Service) ConfirmPayment(ctx context.Context, payerPlatformID int64, invoicePayload, chargeID string, amount int) (*database.Subscription, error) {
	platformID, ref, body, sig, err := payment.ParsePayload(invoicePayload)
	if err != nil {
		return nil, err
	}
	if !s.gateway.Verify(sig, body) {
		return nil, ErrInvalidSignature
	}
	if platformID != payerPlatformID {
		return nil, ErrPayerMismatch
	}
	if amount < s.price {
		return nil, fmt.Errorf("%w: %d < %d", ErrUnderpaid, amount, s.price)
	}

	user, err := s.store.GetUserByPlatformID(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUnknownUser
	}

	if chargeID == "" {
		chargeID = ref
	}
	sub, err := s.store.Activate(ctx, user.ID, s.window, amount, chargeID)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logger.Fields{
		"user_id":   user.ID,
		"amount":    amount,
		"charge_id": chargeID,
		"ref":       ref,
	}).Info("подписка активирована")

	s.recordFresh(ctx, user.ID, audit.ActionSubscriptionActivated)
	return sub, nil
}

func (s *Service) ToggleAutoRenewal(ctx context.Context, userID int64, enable bool) (bool, error) {
	ok, err := s.store.ToggleAutoRenewal(ctx, userID, enable)
	if err != nil || !ok {
		return ok, err
	}
	s.recordFresh(ctx, userID, audit.ActionAutoRenewalToggled)
	return true, nil
}

func (s *Service) Cancel(ctx context.Context, userID int64, immediate bool) (bool, error) {
	ok, err := s.store.Cancel(ctx, userID, immediate)
	if err != nil || !ok {
		return ok, err
	}
	s.recordFresh(ctx, userID, audit.ActionSubscriptionCancelled)
	return true, nil
}

func (s *Service) History(ctx context.Context, userID int64, limit int) ([]database.Subscription, error) {
	return s.store.History(ctx, userID, limit)
}

// Access обновляет статус истёкшей подписки и сообщает, есть ли доступ
func (s *Service) Access(ctx context.Context, userID int64) (*database.User, bool, error) {
	u, err := s.store.RefreshSubscription(ctx, userID)
	if err != nil || u == nil {
		return u, false, err
	}
	return u, u.HasAccess(s.now()), nil
}

func (s *Service) recordFresh(ctx context.Context, userID int64, kind audit.ActionKind) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil || u == nil {
		logger.WithFields(logger.Fields{"user_id": userID}).WithError(err).Warn("аудит пропущен: пользователь не прочитан")
		return
	}
	s.audit.RecordAction(audit.UserOf(u), nil, kind)
}
