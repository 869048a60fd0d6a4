package messages

import (
	"fmt"
	"html"
	"sort"
	"strings"
	"time"

	"blogger_bot/database"
)

const (
	MsgWelcome = `👋 Бот для поиска блогеров и размещения рекламы.

Выберите роль:
• Продавец — добавляет блогеров в каталог
• Покупатель — ищет блогеров по аудитории и бюджету`

	MsgRoleAdded = `✅ Роль «%s» добавлена.

%s`

	MsgSellerHelp = `/add — добавить блогера
/my — мои блогеры`

	MsgBuyerHelp = `/search — найти блогера
/subscribe — оформить подписку
/history — история подписки
/autorenew on|off — автопродление
/unsubscribe — отменить подписку (/unsubscribe now — сразу)
/review <id> <1-5> [текст] — оставить отзыв`

	MsgSellerOnly = `❌ Команда доступна только продавцам. Нажмите /start и выберите роль.`
	MsgBuyerOnly  = `❌ Команда доступна только покупателям. Нажмите /start и выберите роль.`

	MsgBlocked = `⛔ Аккаунт заблокирован из-за штрафа %d ₽.
После оплаты штрафа доступ восстановится.`

	MsgPenaltyPaid = `✅ Штраф оплачен, доступ восстановлен.`

	// Форма блогера
	MsgAskName        = `Шаг 1/8. Имя или название блога:`
	MsgAskURL         = `Шаг 2/8. Ссылка на профиль (Instagram, YouTube, Telegram, TikTok, VK):`
	MsgAskCategories  = `Шаг 3/8. До трёх категорий через запятую (%s):`
	MsgAskSubscribers = `Шаг 4/8. Количество подписчиков:`
	MsgAskPriceStory  = `Шаг 5/8. Цена сторис, ₽ (или «-»):`
	MsgAskPricePost   = `Шаг 6/8. Цена поста, ₽ (или «-»):`
	MsgAskPriceVideo  = `Шаг 7/8. Цена видео, ₽ (или «-»):`
	MsgAskStoryReach  = `Шаг 8/8. Охват сторис «мин-макс», например 5000-8000 (или «-»):`

	MsgBloggerSaved   = `🎉 Блогер #%d «%s» добавлен в каталог.`
	MsgBloggerDeleted = `🗑 Блогер удалён.`
	MsgNoBloggers     = `У вас пока нет блогеров. /add — добавить.`

	// Форма поиска
	MsgAskPlatforms  = `Площадки через запятую (%s) или «-» для любых:`
	MsgAskSearchCats = `Категории через запятую (%s) или «-» для любых:`
	MsgAskBudget     = `Бюджет «мин-макс» в ₽, например 1000-20000 (или «-»):`
	MsgAskGender     = `Преобладающая аудитория:`
	MsgNothingFound  = `🔍 Ничего не найдено. Попробуйте смягчить условия: /search`
	MsgNoMoreResults = `Это все результаты.`

	MsgSubscriptionRequired = `🔒 Контакты продавцов доступны по подписке. /subscribe — оформить.`
	MsgSubscribe            = `💳 Подписка: %d ₽ за %d дней.`
	MsgPaymentSuccess       = `✅ Оплата прошла! Подписка активна до %s.`
	MsgPaymentFailed        = `❌ Не удалось подтвердить оплату. Напишите в поддержку.`

	MsgAutoRenewOn       = `🔁 Автопродление включено.`
	MsgAutoRenewOff      = `⏸ Автопродление выключено. Подписка действует до конца периода.`
	MsgNoSubscription    = `У вас нет активной подписки. /subscribe — оформить.`
	MsgCancelledAtEnd    = `Подписка отменена и не будет продлена. Доступ сохранится до %s.`
	MsgCancelledNow      = `Подписка отменена. Доступ закрыт.`
	MsgHistoryEmpty      = `История подписки пуста.`
	MsgAutoRenewUsage    = `Использование: /autorenew on или /autorenew off`
	MsgReviewUsage       = `Использование: /review <id блогера> <оценка 1-5> [текст]`
	MsgReviewSaved       = `⭐ Спасибо за отзыв!`
	MsgAskComplaint      = `Опишите причину жалобы одним сообщением:`
	MsgComplaintSaved    = `✅ Жалоба принята, модератор её рассмотрит.`
	MsgBadProfileURL     = `❌ Ссылка не распознана. Поддерживаются Instagram, YouTube, Telegram, TikTok и VK.`
	MsgBadInput          = `❌ %s. Попробуйте ещё раз.`
	MsgContactsForbidden = `❌ Текст содержит контакты или сторонние ссылки. Общение — только через бота.`

	MsgSendText     = `❌ Отправьте текст.`
	MsgNotFound     = `❌ Не найдено.`
	MsgNotPermitted = `❌ Это действие недоступно.`
	MsgCanceled     = `Действие отменено.`
	MsgError        = `❌ Ошибка. Попробуйте позже.`
)

func RoleTitle(r database.Role) string {
	if r == database.RoleSeller {
		return "Продавец"
	}
	return "Покупатель"
}

func FormatRoleAdded(r database.Role) string {
	help := MsgBuyerHelp
	if r == database.RoleSeller {
		help = MsgSellerHelp
	}
	return fmt.Sprintf(MsgRoleAdded, RoleTitle(r), help)
}

func FormatBadInput(err error) string {
	return fmt.Sprintf(MsgBadInput, err)
}

func FormatBlocked(amount int) string {
	return fmt.Sprintf(MsgBlocked, amount/100)
}

func FormatSubscribe(price, days int) string {
	return fmt.Sprintf(MsgSubscribe, price/100, days)
}

func FormatPaymentSuccess(end time.Time) string {
	return fmt.Sprintf(MsgPaymentSuccess, end.Format("02.01.2006"))
}

func FormatCancelledAtEnd(end *time.Time) string {
	if end == nil {
		return "Подписка отменена и не будет продлена."
	}
	return fmt.Sprintf(MsgCancelledAtEnd, end.Format("02.01.2006"))
}

func FormatAskCategories() string {
	return fmt.Sprintf(MsgAskCategories, joinCategories())
}

func FormatAskSearchCategories() string {
	return fmt.Sprintf(MsgAskSearchCats, joinCategories())
}

func FormatAskPlatforms() string {
	names := make([]string, len(database.Platforms))
	for i, p := range database.Platforms {
		names[i] = string(p)
	}
	return fmt.Sprintf(MsgAskPlatforms, strings.Join(names, ", "))
}

func joinCategories() string {
	names := make([]string, len(database.Categories))
	for i, c := range database.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// FormatBlogger — карточка блогера в HTML
func FormatBlogger(b *database.Blogger, owner *database.User) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "📣 <b>%s</b> #%d\n", html.EscapeString(b.Name), b.ID)
	if b.URL != "" {
		fmt.Fprintf(&sb, "🔗 %s\n", html.EscapeString(b.URL))
	}
	if len(b.Platforms) > 0 {
		fmt.Fprintf(&sb, "📱 %s\n", html.EscapeString(strings.Join(b.Platforms, ", ")))
	}
	if len(b.Categories) > 0 {
		fmt.Fprintf(&sb, "🏷 %s\n", html.EscapeString(strings.Join(b.Categories, ", ")))
	}
	fmt.Fprintf(&sb, "👥 %d подписчиков\n", b.SubscribersCount)

	var prices []string
	for _, p := range []struct {
		label string
		v     *int
	}{{"сторис", b.PriceStories}, {"пост", b.PricePost}, {"видео", b.PriceVideo}, {"reels", b.PriceReels}} {
		if p.v != nil {
			prices = append(prices, fmt.Sprintf("%s %d ₽", p.label, *p.v))
		}
	}
	if len(prices) > 0 {
		fmt.Fprintf(&sb, "💰 %s\n", strings.Join(prices, " · "))
	}
	if b.StoriesReachMin != nil && b.StoriesReachMax != nil {
		fmt.Fprintf(&sb, "👁 охват сторис %d–%d\n", *b.StoriesReachMin, *b.StoriesReachMax)
	}
	if b.FemalePercent != nil && b.MalePercent != nil {
		fmt.Fprintf(&sb, "♀ %d%% / ♂ %d%%\n", *b.FemalePercent, *b.MalePercent)
	}
	if b.HasReviews {
		sb.WriteString("⭐ есть отзывы\n")
	}
	if owner != nil {
		fmt.Fprintf(&sb, "🏅 рейтинг продавца %.1f (%d)", owner.Rating, owner.ReviewsCount)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func FormatContact(owner *database.User, b *database.Blogger) string {
	return fmt.Sprintf("🤝 Продавец блогера «%s»: %s\nПосле сделки оставьте отзыв: /review %d 5",
		html.EscapeString(b.Name), html.EscapeString(owner.DisplayName()), b.ID)
}

func FormatHistory(subs []database.Subscription) string {
	if len(subs) == 0 {
		return MsgHistoryEmpty
	}
	var sb strings.Builder
	sb.WriteString("📜 История подписки:\n")
	for _, s := range subs {
		fmt.Fprintf(&sb, "• %s — %s, %d ₽, %s\n",
			s.StartDate.Format("02.01.2006"), s.EndDate.Format("02.01.2006"), s.Amount/100, statusTitle(s.Status))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func statusTitle(s database.SubscriptionStatus) string {
	switch s {
	case database.StatusActive:
		return "активна"
	case database.StatusAutoRenewalOff:
		return "без автопродления"
	case database.StatusCancelled:
		return "отменена"
	case database.StatusExpired:
		return "истекла"
	}
	return "неактивна"
}

func FormatValidation(err *database.ValidationError) string {
	var sb strings.Builder
	sb.WriteString("❌ Проверьте данные:\n")
	fields := make([]string, 0, len(err.Errors))
	for f := range err.Errors {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		fmt.Fprintf(&sb, "• %s: %s\n", f, err.Errors[f])
	}
	return strings.TrimRight(sb.String(), "\n")
}
