package moderation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

type ViolationType string

const (
	ViolationPhone   ViolationType = "phone"
	ViolationLink    ViolationType = "link"
	ViolationContact ViolationType = "contact"
)

type Violation struct {
	Type  ViolationType
	Match string
}

// Домены площадок, ссылки на которые разрешены в отзывах и жалобах
var PlatformDomains = map[string]string{
	"instagram.com": "instagram",
	"youtube.com":   "youtube",
	"youtu.be":      "youtube",
	"t.me":          "telegram",
	"tiktok.com":    "tiktok",
	"vk.com":        "vk",
}

var (
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\+7|8)[\s\-\(]*\d{3}[\s\-\)]*\d{3}[\s\-]*\d{2}[\s\-]*\d{2}`),
		regexp.MustCompile(`(?i)\b\d{10,11}\b`),
	}
	digitPattern = regexp.MustCompile(`\d`)

	urlPattern    = regexp.MustCompile(`(?i)https?://[^\s]+`)
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9][-a-z0-9]*\.(ru|com|net|org|io|me|cc|ly|gl|su|рф|info|biz|xyz|online|site|shop|store|be)\b[^\s]*`)
	// @username: попытка увести сделку в личку
	mentionPattern = regexp.MustCompile(`(?i)(^|\s)@[a-z0-9_]{5,}`)
)

// Check ищет в тексте отзыва или жалобы контакты в обход бота.
// Ссылки на площадки из allowedDomains допустимы.
func Check(text string, allowedDomains []string) *Violation {
	textLower := strings.ToLower(text)

	for _, p := range phonePatterns {
		if match := p.FindString(text); match != "" {
			if len(digitPattern.FindAllString(match, -1)) >= 10 {
				return &Violation{Type: ViolationPhone, Match: match}
			}
		}
	}

	for _, u := range urlPattern.FindAllString(textLower, -1) {
		if !isAllowedURL(u, allowedDomains) {
			return &Violation{Type: ViolationLink, Match: u}
		}
	}

	for _, d := range domainPattern.FindAllString(textLower, -1) {
		if !isAllowedURL(d, allowedDomains) {
			return &Violation{Type: ViolationLink, Match: d}
		}
	}

	if match := mentionPattern.FindString(textLower); match != "" {
		return &Violation{Type: ViolationContact, Match: strings.TrimSpace(match)}
	}

	return nil
}

// CheckFeedback — Check с доменами площадок в белом списке
func CheckFeedback(text string) *Violation {
	return Check(text, allowedPlatformDomains())
}

func allowedPlatformDomains() []string {
	out := make([]string, 0, len(PlatformDomains))
	for d := range PlatformDomains {
		out = append(out, d)
	}
	return out
}

func isAllowedURL(u string, allowedDomains []string) bool {
	uLower := strings.ToLower(u)
	for _, domain := range allowedDomains {
		if strings.Contains(uLower, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

var ErrUnknownPlatform = errors.New("ссылка не ведёт на поддерживаемую площадку")

// ProfileURL нормализует ссылку на профиль блогера и определяет площадку
func ProfileURL(raw string) (normalized, platform string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrUnknownPlatform
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", "", ErrUnknownPlatform
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	p, ok := PlatformDomains[host]
	if !ok {
		return "", "", ErrUnknownPlatform
	}
	u.Scheme = "https"
	u.Host = host
	return u.String(), p, nil
}
