package handlers

import (
	"context"
	"errors"
	"fmt"

	"blogger_bot/audit"
	"blogger_bot/database"
	"blogger_bot/logger"
	"blogger_bot/messages"
	"blogger_bot/moderation"
)

const maxCategories = 3

func categoryNames() []string {
	out := make([]string, len(database.Categories))
	for i, c := range database.Categories {
		out[i] = string(c)
	}
	return out
}

func platformNames() []string {
	out := make([]string, len(database.Platforms))
	for i, p := range database.Platforms {
		out[i] = string(p)
	}
	return out
}

func (h *Handler) onAddBlogger(ctx context.Context, user *database.User) {
	if !h.requireRole(ctx, user, database.RoleSeller) {
		return
	}
	h.sessions.set(user.PlatformID, session{step: stepBloggerName})
	h.send(ctx, user.PlatformID, messages.MsgAskName)
}

// onBloggerStep — очередной ответ анкеты блогера
func (h *Handler) onBloggerStep(ctx context.Context, user *database.User, sess session, text string) {
	chatID := user.PlatformID
	b := &sess.blogger
	var next string

	switch sess.step {
	case stepBloggerName:
		b.Name = text
		next = messages.MsgAskURL

	case stepBloggerURL:
		url, platform, err := moderation.ProfileURL(text)
		if err != nil {
			h.send(ctx, chatID, messages.MsgBadProfileURL)
			return
		}
		b.URL = url
		b.Platforms = []string{platform}
		next = messages.FormatAskCategories()

	case stepBloggerCategories:
		cats, err := parseList(text, categoryNames())
		if err == nil && len(cats) > maxCategories {
			err = fmt.Errorf("не больше %d категорий", maxCategories)
		}
		if err != nil {
			h.send(ctx, chatID, messages.FormatBadInput(err))
			return
		}
		b.Categories = cats
		next = messages.MsgAskSubscribers

	case stepBloggerSubscribers:
		n, err := parseInt(text)
		if err != nil {
			h.send(ctx, chatID, messages.FormatBadInput(err))
			return
		}
		b.SubscribersCount = n
		next = messages.MsgAskPriceStory

	case stepBloggerPriceStory, stepBloggerPricePost, stepBloggerPriceVideo:
		price, err := parseOptionalInt(text)
		if err != nil {
			h.send(ctx, chatID, messages.FormatBadInput(err))
			return
		}
		switch sess.step {
		case stepBloggerPriceStory:
			b.PriceStories = price
			next = messages.MsgAskPricePost
		case stepBloggerPricePost:
			b.PricePost = price
			next = messages.MsgAskPriceVideo
		default:
			b.PriceVideo = price
			next = messages.MsgAskStoryReach
		}

	case stepBloggerStoryReach:
		lo, hi, err := parseRange(text)
		if err != nil {
			h.send(ctx, chatID, messages.FormatBadInput(err))
			return
		}
		b.StoriesReachMin, b.StoriesReachMax = lo, hi
		h.sessions.reset(chatID)
		h.saveBlogger(ctx, user, b)
		return
	}

	sess.step++
	h.sessions.set(chatID, sess)
	h.send(ctx, chatID, next)
}

func (h *Handler) saveBlogger(ctx context.Context, user *database.User, b *database.Blogger) {
	b.SellerID = user.ID
	created, err := h.db.CreateBlogger(ctx, b)
	if err != nil {
		if errors.Is(err, database.ErrNotPermitted) {
			h.send(ctx, user.PlatformID, messages.MsgSellerOnly)
			return
		}
		h.fail(ctx, user, "создание блогера", err)
		return
	}

	logger.WithFields(logger.Fields{
		"user_id":    user.ID,
		"blogger_id": created.ID,
	}).Info("блогер добавлен")
	h.audit.RecordAction(audit.UserOf(user), audit.BloggerOf(created), audit.ActionBloggerCreated)
	h.send(ctx, user.PlatformID, fmt.Sprintf(messages.MsgBloggerSaved, created.ID, created.Name))
}

func (h *Handler) onMyBloggers(ctx context.Context, user *database.User) {
	if !h.requireRole(ctx, user, database.RoleSeller) {
		return
	}
	list, err := h.db.ListBloggersBySeller(ctx, user.ID)
	if err != nil {
		h.fail(ctx, user, "список блогеров", err)
		return
	}
	if len(list) == 0 {
		h.send(ctx, user.PlatformID, messages.MsgNoBloggers)
		return
	}
	for i := range list {
		h.sendHTML(ctx, user.PlatformID, messages.FormatBlogger(&list[i], nil), deleteKeyboard(list[i].ID))
	}
}

func (h *Handler) onDeleteBlogger(ctx context.Context, user *database.User, arg string) {
	id, ok := parseID(arg)
	if !ok || !h.requireRole(ctx, user, database.RoleSeller) {
		return
	}
	b, err := h.db.GetBlogger(ctx, id)
	if err != nil {
		h.fail(ctx, user, "чтение блогера", err)
		return
	}
	// Чужого блогера не показываем как существующего
	if b == nil || b.SellerID != user.ID {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}

	deleted, err := h.db.DeleteBlogger(ctx, id)
	if err != nil {
		h.fail(ctx, user, "удаление блогера", err)
		return
	}
	if !deleted {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}
	h.audit.RecordAction(audit.UserOf(user), audit.BloggerOf(b), audit.ActionBloggerDeleted)
	h.send(ctx, user.PlatformID, messages.MsgBloggerDeleted)
}
