package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// Checkout — созданный счёт
type Checkout struct {
	Ref            string
	Payload        string
	RedirectTarget string
}

type Gateway interface {
	CreateCheckout(ctx context.Context, userID int64, amount int) (Checkout, error)
	Verify(signature, payload string) bool
}

// InvoiceLinker — часть API бота для создания ссылок на оплату
type InvoiceLinker interface {
	CreateInvoiceLink(ctx context.Context, params *bot.CreateInvoiceLinkParams) (string, error)
}

var ErrBadPayload = errors.New("invalid invoice payload")

// InvoiceGateway выставляет счета через Telegram Payments.
// Payload счёта подписывается HMAC, чтобы подтверждение оплаты нельзя было подделать.
type InvoiceGateway struct {
	linker        InvoiceLinker
	providerToken string
	secret        []byte
	currency      string
	title         string
	description   string
}

func NewInvoiceGateway(linker InvoiceLinker, providerToken, secret string) *InvoiceGateway {
	return &InvoiceGateway{
		linker:        linker,
		providerToken: providerToken,
		secret:        []byte(secret),
		currency:      "RUB",
		title:         "Подписка на поиск блогеров",
		description:   "Доступ к контактам продавцов",
	}
}

func (g *InvoiceGateway) CreateCheckout(ctx context.Context, userID int64, amount int) (Checkout, error) {
	if amount <= 0 {
		return Checkout{}, fmt.Errorf("invalid amount %d", amount)
	}
	ref := uuid.NewString()
	body := fmt.Sprintf("%d:%s", userID, ref)
	payload := body + "." + g.sign(body)

	link, err := g.linker.CreateInvoiceLink(ctx, &bot.CreateInvoiceLinkParams{
		Title:         g.title,
		Description:   g.description,
		Payload:       payload,
		ProviderToken: g.providerToken,
		Currency:      g.currency,
		Prices: []models.LabeledPrice{{
			Label:  "Подписка",
			Amount: amount,
		}},
	})
	if err != nil {
		return Checkout{}, fmt.Errorf("create invoice link: %w", err)
	}
	return Checkout{Ref: ref, Payload: payload, RedirectTarget: link}, nil
}

func (g *InvoiceGateway) sign(body string) string {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(body))
	return hex.EncodeToString(mac.Sum(nil))
}

func (g *InvoiceGateway) Verify(signature, payload string) bool {
	expected, err := hex.DecodeString(g.sign(payload))
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, got)
}

// ParsePayload разбирает "<userID>:<ref>.<signature>"
func ParsePayload(invoicePayload string) (userID int64, ref, body, signature string, err error) {
	dot := strings.LastIndex(invoicePayload, ".")
	if dot <= 0 {
		return 0, "", "", "", ErrBadPayload
	}
	body, signature = invoicePayload[:dot], invoicePayload[dot+1:]

	idPart, ref, ok := strings.Cut(body, ":")
	if !ok || ref == "" {
		return 0, "", "", "", ErrBadPayload
	}
	userID, err = strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, "", "", "", ErrBadPayload
	}
	return userID, ref, body, signature, nil
}
