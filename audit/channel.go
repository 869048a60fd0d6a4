package audit

import (
	"html"

	"blogger_bot/tglog"
)

// Channel дублирует события в лог-канал Telegram
type Channel struct{}

func (Channel) RecordAction(user UserSnapshot, blogger *BloggerSnapshot, kind ActionKind) {
	if blogger != nil {
		tglog.Send("📝 <b>%s</b>\n👤 %d @%s\n📣 #%d %s",
			kind, user.PlatformID, html.EscapeString(user.Username), blogger.ID, html.EscapeString(blogger.Name))
		return
	}
	tglog.Send("📝 <b>%s</b>\n👤 %d @%s (%s)",
		kind, user.PlatformID, html.EscapeString(user.Username), user.SubscriptionStatus)
}

func (Channel) RecordComplaint(c Complaint) {
	tglog.Send("⚠️ <b>Жалоба</b> на #%d %s\n👤 %d @%s\n%s",
		c.BloggerID, html.EscapeString(c.BloggerName), c.UserID,
		html.EscapeString(c.Username), html.EscapeString(c.Reason))
}
