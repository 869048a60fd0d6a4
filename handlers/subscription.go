package handlers

import (
	"context"
	"strings"
	"time"

	"blogger_bot/database"
	"blogger_bot/logger"
	"blogger_bot/messages"

	"github.com/go-telegram/bot/models"
)

const historyLimit = 10

func (h *Handler) subscriptionDays() int {
	return int(h.billing.Window() / (24 * time.Hour))
}

func (h *Handler) onSubscribe(ctx context.Context, user *database.User) {
	checkout, err := h.billing.StartCheckout(ctx, user)
	if err != nil {
		h.fail(ctx, user, "создание счёта", err)
		return
	}
	h.sendWithKeyboard(ctx, user.PlatformID,
		messages.FormatSubscribe(h.billing.Price(), h.subscriptionDays()),
		payKeyboard(checkout.RedirectTarget))
}

func (h *Handler) onPaymentSuccess(ctx context.Context, msg *models.Message) {
	userID := msg.From.ID
	p := msg.SuccessfulPayment

	logger.WithFields(logger.Fields{
		"platform_id": userID,
		"amount":      p.TotalAmount,
		"currency":    p.Currency,
	}).Info("получена оплата")

	sub, err := h.billing.ConfirmPayment(ctx, userID, p.InvoicePayload, p.TelegramPaymentChargeID, p.TotalAmount)
	if err != nil {
		logger.WithFields(logger.Fields{"platform_id": userID}).WithError(err).Error("оплата не подтверждена")
		h.send(ctx, userID, messages.MsgPaymentFailed)
		return
	}
	h.send(ctx, userID, messages.FormatPaymentSuccess(sub.EndDate))
}

// Тестовая оплата: счёт создаётся и сразу подтверждается
func (h *Handler) onTestPayment(ctx context.Context, user *database.User) {
	checkout, err := h.billing.StartCheckout(ctx, user)
	if err != nil {
		h.fail(ctx, user, "создание счёта", err)
		return
	}
	sub, err := h.billing.ConfirmPayment(ctx, user.PlatformID, checkout.Payload, "", h.billing.Price())
	if err != nil {
		h.fail(ctx, user, "тестовая оплата", err)
		return
	}
	h.send(ctx, user.PlatformID, messages.FormatPaymentSuccess(sub.EndDate))
}

func (h *Handler) onAutoRenew(ctx context.Context, user *database.User, args []string) {
	if len(args) != 1 || (args[0] != "on" && args[0] != "off") {
		h.send(ctx, user.PlatformID, messages.MsgAutoRenewUsage)
		return
	}
	enable := args[0] == "on"

	ok, err := h.billing.ToggleAutoRenewal(ctx, user.ID, enable)
	if err != nil {
		h.fail(ctx, user, "автопродление", err)
		return
	}
	switch {
	case !ok:
		h.send(ctx, user.PlatformID, messages.MsgNoSubscription)
	case enable:
		h.send(ctx, user.PlatformID, messages.MsgAutoRenewOn)
	default:
		h.send(ctx, user.PlatformID, messages.MsgAutoRenewOff)
	}
}

// onUnsubscribe: без аргументов доступ сохраняется до конца периода, "now" закрывает сразу
func (h *Handler) onUnsubscribe(ctx context.Context, user *database.User, args []string) {
	immediate := len(args) > 0 && strings.EqualFold(args[0], "now")

	ok, err := h.billing.Cancel(ctx, user.ID, immediate)
	if err != nil {
		h.fail(ctx, user, "отмена подписки", err)
		return
	}
	if !ok {
		h.send(ctx, user.PlatformID, messages.MsgNoSubscription)
		return
	}
	if immediate {
		h.send(ctx, user.PlatformID, messages.MsgCancelledNow)
		return
	}

	fresh, err := h.db.GetUser(ctx, user.ID)
	if err != nil || fresh == nil {
		h.send(ctx, user.PlatformID, messages.FormatCancelledAtEnd(nil))
		return
	}
	h.send(ctx, user.PlatformID, messages.FormatCancelledAtEnd(fresh.SubscriptionEndDate))
}

func (h *Handler) onHistory(ctx context.Context, user *database.User) {
	subs, err := h.billing.History(ctx, user.ID, historyLimit)
	if err != nil {
		h.fail(ctx, user, "история подписки", err)
		return
	}
	h.send(ctx, user.PlatformID, messages.FormatHistory(subs))
}

// onPayPenalty — оплата штрафа, пока доступна только в тестовом режиме
func (h *Handler) onPayPenalty(ctx context.Context, user *database.User) {
	paid, err := h.db.PayPenalty(ctx, user.ID, user.PenaltyAmount)
	if err != nil {
		h.fail(ctx, user, "оплата штрафа", err)
		return
	}
	if paid == nil || paid.IsBlocked {
		h.send(ctx, user.PlatformID, messages.FormatBlocked(user.PenaltyAmount))
		return
	}
	logger.WithFields(logger.Fields{"user_id": user.ID, "amount": user.PenaltyAmount}).Info("штраф оплачен")
	h.send(ctx, user.PlatformID, messages.MsgPenaltyPaid)
}
