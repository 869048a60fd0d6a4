package handlers

import (
	"context"
	"errors"
	"strings"

	"blogger_bot/audit"
	"blogger_bot/billing"
	"blogger_bot/config"
	"blogger_bot/database"
	"blogger_bot/logger"
	"blogger_bot/messages"
	"blogger_bot/payment"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type Handler struct {
	bot      *bot.Bot
	cfg      *config.Config
	db       *database.DB
	billing  *billing.Service
	audit    audit.Recorder
	sessions *sessions
}

func New(b *bot.Bot, cfg *config.Config, db *database.DB, svc *billing.Service, recorder audit.Recorder) *Handler {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Handler{
		bot:      b,
		cfg:      cfg,
		db:       db,
		billing:  svc,
		audit:    recorder,
		sessions: newSessions(),
	}
}

func (h *Handler) OnMessage(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	msg := update.Message

	if msg.SuccessfulPayment != nil {
		h.onPaymentSuccess(ctx, msg)
		return
	}

	if msg.Chat.Type == "private" {
		h.onPrivateMessage(ctx, msg)
	}
}

func (h *Handler) OnCallback(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}
	cb := update.CallbackQuery

	_, err := b.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: cb.ID})
	if err != nil {
		logger.WithError(err).Warn("не удалось ответить на callback")
	}

	chatID := cb.From.ID
	user, ok := h.ensureUser(ctx, chatID, cb.From.Username, cb.From.FirstName, cb.From.LastName)
	if !ok {
		return
	}
	if user.IsBlocked {
		h.send(ctx, chatID, messages.FormatBlocked(user.PenaltyAmount))
		return
	}

	action, arg := parseCallback(cb.Data)
	switch action {
	case cbRole:
		h.onRoleSelected(ctx, user, database.Role(arg))
	case cbDelete:
		h.onDeleteBlogger(ctx, user, arg)
	case cbGender:
		h.onGenderSelected(ctx, user, database.Gender(arg))
	case cbNext:
		h.onNextPage(ctx, user, arg)
	case cbContact:
		h.onContact(ctx, user, arg)
	case cbComplain:
		h.onComplain(ctx, user, arg)
	case cbPay:
		h.onSubscribe(ctx, user)
	default:
		logger.WithFields(logger.Fields{"data": cb.Data}).Debug("неизвестный callback")
	}
}

// OnPreCheckout подтверждает оплату, только если payload счёта выписан этому пользователю
func (h *Handler) OnPreCheckout(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.PreCheckoutQuery == nil {
		return
	}
	q := update.PreCheckoutQuery

	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: true}
	userID, _, _, _, err := payment.ParsePayload(q.InvoicePayload)
	if err != nil || userID != q.From.ID {
		params.OK = false
		params.ErrorMessage = "Счёт выписан другому пользователю"
	}

	if _, err := b.AnswerPreCheckoutQuery(ctx, params); err != nil {
		logger.WithError(err).Error("ошибка ответа на pre-checkout")
	}
}

func (h *Handler) onPrivateMessage(ctx context.Context, msg *models.Message) {
	chatID := msg.From.ID
	user, ok := h.ensureUser(ctx, chatID, msg.From.Username, msg.From.FirstName, msg.From.LastName)
	if !ok {
		return
	}

	cmd, args := command(msg.Text)

	if user.IsBlocked {
		if cmd == "/paypenalty" && h.cfg.TestMode {
			h.onPayPenalty(ctx, user)
			return
		}
		h.send(ctx, chatID, messages.FormatBlocked(user.PenaltyAmount))
		return
	}

	if cmd == "" {
		h.onFormInput(ctx, user, strings.TrimSpace(msg.Text))
		return
	}

	// Любая команда прерывает незаконченную анкету
	h.sessions.reset(chatID)

	switch cmd {
	case "/start":
		h.sendWithKeyboard(ctx, chatID, messages.MsgWelcome, roleKeyboard())
	case "/cancel":
		h.send(ctx, chatID, messages.MsgCanceled)
	case "/add":
		h.onAddBlogger(ctx, user)
	case "/my":
		h.onMyBloggers(ctx, user)
	case "/search":
		h.onSearch(ctx, user)
	case "/review":
		h.onReview(ctx, user, msg.Text)
	case "/subscribe":
		h.onSubscribe(ctx, user)
	case "/testpay":
		if h.cfg.TestMode {
			h.onTestPayment(ctx, user)
			return
		}
		h.sendHelp(ctx, user)
	case "/autorenew":
		h.onAutoRenew(ctx, user, args)
	case "/unsubscribe":
		h.onUnsubscribe(ctx, user, args)
	case "/history":
		h.onHistory(ctx, user)
	default:
		h.sendHelp(ctx, user)
	}
}

func (h *Handler) onFormInput(ctx context.Context, user *database.User, text string) {
	sess := h.sessions.get(user.PlatformID)
	switch {
	case sess.step == stepNone:
		h.sendHelp(ctx, user)
	case text == "":
		h.send(ctx, user.PlatformID, messages.MsgSendText)
	case sess.step <= stepBloggerStoryReach:
		h.onBloggerStep(ctx, user, sess, text)
	case sess.step <= stepSearchGender:
		h.onSearchStep(ctx, user, sess, text)
	case sess.step == stepComplaintReason:
		h.onComplaintReason(ctx, user, sess, text)
	}
}

// ensureUser регистрирует пользователя при первом обращении
func (h *Handler) ensureUser(ctx context.Context, platformID int64, username, firstName, lastName string) (*database.User, bool) {
	user, err := h.db.UpsertUser(ctx, platformID, optional(username), optional(firstName), optional(lastName))
	if err != nil {
		logger.WithFields(logger.Fields{"platform_id": platformID}).WithError(err).Error("ошибка регистрации пользователя")
		h.send(ctx, platformID, messages.MsgError)
		return nil, false
	}
	return user, true
}

func (h *Handler) onRoleSelected(ctx context.Context, user *database.User, role database.Role) {
	if !role.Valid() {
		return
	}
	if _, err := h.db.AddRole(ctx, user.ID, role); err != nil {
		h.fail(ctx, user, "добавление роли", err)
		return
	}
	h.send(ctx, user.PlatformID, messages.FormatRoleAdded(role))
}

// requireRole сообщает пользователю, если роли нет
func (h *Handler) requireRole(ctx context.Context, user *database.User, role database.Role) bool {
	ok, err := h.db.HasRole(ctx, user.ID, role)
	if err != nil {
		h.fail(ctx, user, "проверка роли", err)
		return false
	}
	if !ok {
		text := messages.MsgBuyerOnly
		if role == database.RoleSeller {
			text = messages.MsgSellerOnly
		}
		h.send(ctx, user.PlatformID, text)
	}
	return ok
}

func (h *Handler) sendHelp(ctx context.Context, user *database.User) {
	roles, err := h.db.GetRoles(ctx, user.ID)
	if err != nil {
		h.fail(ctx, user, "чтение ролей", err)
		return
	}
	if len(roles) == 0 {
		h.sendWithKeyboard(ctx, user.PlatformID, messages.MsgWelcome, roleKeyboard())
		return
	}
	var parts []string
	for _, r := range roles {
		if r == database.RoleSeller {
			parts = append(parts, messages.MsgSellerHelp)
		} else {
			parts = append(parts, messages.MsgBuyerHelp)
		}
	}
	h.send(ctx, user.PlatformID, strings.Join(parts, "\n\n"))
}

// fail логирует ошибку и отвечает пользователю понятным текстом
func (h *Handler) fail(ctx context.Context, user *database.User, op string, err error) {
	var verr *database.ValidationError
	switch {
	case errors.As(err, &verr):
		h.send(ctx, user.PlatformID, messages.FormatValidation(verr))
		return
	case errors.Is(err, database.ErrNotPermitted):
		h.send(ctx, user.PlatformID, messages.MsgNotPermitted)
		return
	}
	logger.WithFields(logger.Fields{"user_id": user.ID, "op": op}).WithError(err).Error("ошибка обработки")
	h.send(ctx, user.PlatformID, messages.MsgError)
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	h.sendWithKeyboard(ctx, chatID, text, nil)
}

func (h *Handler) sendWithKeyboard(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	h.sendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}, kb)
}

// sendHTML — для карточек, где пользовательский текст уже экранирован
func (h *Handler) sendHTML(ctx context.Context, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	h.sendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text, ParseMode: models.ParseModeHTML}, kb)
}

func (h *Handler) sendMessage(ctx context.Context, params *bot.SendMessageParams, kb *models.InlineKeyboardMarkup) {
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := h.bot.SendMessage(ctx, params); err != nil {
		logger.WithFields(logger.Fields{"chat_id": params.ChatID}).WithError(err).Warn("ошибка отправки")
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
