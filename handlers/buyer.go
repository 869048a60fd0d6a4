package handlers

import (
	"context"

	"blogger_bot/audit"
	"blogger_bot/database"
	"blogger_bot/logger"
	"blogger_bot/messages"
	"blogger_bot/moderation"
)

func (h *Handler) onSearch(ctx context.Context, user *database.User) {
	if !h.requireRole(ctx, user, database.RoleBuyer) {
		return
	}
	h.sessions.set(user.PlatformID, session{step: stepSearchPlatforms})
	h.send(ctx, user.PlatformID, messages.FormatAskPlatforms())
}

func (h *Handler) onSearchStep(ctx context.Context, user *database.User, sess session, text string) {
	chatID := user.PlatformID
	c := &sess.criteria

	switch sess.step {
	case stepSearchPlatforms:
		platforms, err := parseList(text, platformNames())
		if err != nil {
			h.send(ctx, chatID, messages.FormatBadInput(err))
			return
		}
		c.Platforms = platforms
		sess.step = stepSearchCategories
		h.sessions.set(chatID, sess)
		h.send(ctx, chatID, messages.FormatAskSearchCategories())

	case stepSearchCategories:
		cats, err := parseList(text, categoryNames())
		if err != nil {
			h.send(ctx, chatID, messages.FormatBadInput(err))
			return
		}
		c.Categories = cats
		sess.step = stepSearchBudget
		h.sessions.set(chatID, sess)
		h.send(ctx, chatID, messages.MsgAskBudget)

	case stepSearchBudget:
		lo, hi, err := parseRange(text)
		if err != nil {
			h.send(ctx, chatID, messages.FormatBadInput(err))
			return
		}
		c.BudgetMin, c.BudgetMax = lo, hi
		sess.step = stepSearchGender
		h.sessions.set(chatID, sess)
		h.sendWithKeyboard(ctx, chatID, messages.MsgAskGender, genderKeyboard())

	case stepSearchGender:
		// Ждём кнопку, текст не принимаем
		h.sendWithKeyboard(ctx, chatID, messages.MsgAskGender, genderKeyboard())
	}
}

func (h *Handler) onGenderSelected(ctx context.Context, user *database.User, gender database.Gender) {
	sess := h.sessions.get(user.PlatformID)
	if sess.step != stepSearchGender {
		return
	}
	h.sessions.reset(user.PlatformID)

	criteria := sess.criteria
	criteria.Gender = gender

	// История фильтров не должна мешать поиску
	if _, err := h.db.SaveSearchFilter(ctx, user.ID, criteria); err != nil {
		logger.WithFields(logger.Fields{"user_id": user.ID}).WithError(err).Warn("фильтр не сохранён")
	}
	h.showResults(ctx, user, criteria, 0)
}

// onNextPage повторяет последний сохранённый поиск со смещением
func (h *Handler) onNextPage(ctx context.Context, user *database.User, arg string) {
	offset, ok := parseID(arg)
	if !ok {
		return
	}
	filters, err := h.db.ListSearchFilters(ctx, user.ID, 1)
	if err != nil {
		h.fail(ctx, user, "чтение фильтра", err)
		return
	}
	if len(filters) == 0 {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}
	h.showResults(ctx, user, filters[0].SearchCriteria(), int(offset))
}

func (h *Handler) showResults(ctx context.Context, user *database.User, criteria database.SearchCriteria, offset int) {
	criteria.Limit = h.cfg.SearchPageSize
	criteria.Offset = offset

	page, err := h.db.Search(ctx, criteria)
	if err != nil {
		h.fail(ctx, user, "поиск", err)
		return
	}
	if len(page.Items) == 0 {
		if offset == 0 {
			h.send(ctx, user.PlatformID, messages.MsgNothingFound)
		} else {
			h.send(ctx, user.PlatformID, messages.MsgNoMoreResults)
		}
		return
	}

	for i := range page.Items {
		item := &page.Items[i]
		h.sendHTML(ctx, user.PlatformID, messages.FormatBlogger(&item.Blogger, &item.Owner), resultKeyboard(item.Blogger.ID))
	}
	if page.HasMore {
		h.sendWithKeyboard(ctx, user.PlatformID, "…", nextPageKeyboard(page.NextOffset()))
	}
}

// onContact выдаёт контакт продавца покупателю с действующей подпиской
func (h *Handler) onContact(ctx context.Context, user *database.User, arg string) {
	id, ok := parseID(arg)
	if !ok || !h.requireRole(ctx, user, database.RoleBuyer) {
		return
	}

	fresh, access, err := h.billing.Access(ctx, user.ID)
	if err != nil {
		h.fail(ctx, user, "проверка подписки", err)
		return
	}
	if !access {
		h.sendWithKeyboard(ctx, user.PlatformID, messages.MsgSubscriptionRequired, subscribeKeyboard())
		return
	}

	b, err := h.db.GetBlogger(ctx, id)
	if err != nil {
		h.fail(ctx, user, "чтение блогера", err)
		return
	}
	if b == nil {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}
	owner, err := h.db.GetUser(ctx, b.SellerID)
	if err != nil {
		h.fail(ctx, user, "чтение продавца", err)
		return
	}
	if owner == nil {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}

	if _, err := h.db.CreateContact(ctx, user.ID, b.ID); err != nil {
		h.fail(ctx, user, "создание контакта", err)
		return
	}
	h.audit.RecordAction(audit.UserOf(fresh), audit.BloggerOf(b), audit.ActionContactRequested)
	h.sendHTML(ctx, user.PlatformID, messages.FormatContact(owner, b), nil)
}

func (h *Handler) onComplain(ctx context.Context, user *database.User, arg string) {
	id, ok := parseID(arg)
	if !ok || !h.requireRole(ctx, user, database.RoleBuyer) {
		return
	}
	h.sessions.set(user.PlatformID, session{step: stepComplaintReason, bloggerID: id})
	h.send(ctx, user.PlatformID, messages.MsgAskComplaint)
}

func (h *Handler) onComplaintReason(ctx context.Context, user *database.User, sess session, text string) {
	if v := moderation.CheckFeedback(text); v != nil {
		h.send(ctx, user.PlatformID, messages.MsgContactsForbidden)
		return
	}
	h.sessions.reset(user.PlatformID)

	b, err := h.db.GetBlogger(ctx, sess.bloggerID)
	if err != nil {
		h.fail(ctx, user, "чтение блогера", err)
		return
	}
	if b == nil {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}

	complaint, err := h.db.FileComplaint(ctx, b.ID, user.ID, text, h.cfg.ComplaintPenalty)
	if err != nil {
		h.fail(ctx, user, "жалоба", err)
		return
	}
	if complaint == nil {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}

	h.audit.RecordComplaint(audit.Complaint{
		BloggerID:   b.ID,
		BloggerName: b.Name,
		UserID:      user.ID,
		Username:    audit.UserOf(user).Username,
		Reason:      complaint.Reason,
	})
	if complaint.PenaltyAmount > 0 {
		h.recordPenalty(ctx, b)
	}
	h.send(ctx, user.PlatformID, messages.MsgComplaintSaved)
}

func (h *Handler) recordPenalty(ctx context.Context, b *database.Blogger) {
	owner, err := h.db.GetUser(ctx, b.SellerID)
	if err != nil || owner == nil {
		logger.WithFields(logger.Fields{"seller_id": b.SellerID}).WithError(err).Warn("аудит штрафа пропущен")
		return
	}
	logger.WithFields(logger.Fields{
		"seller_id": owner.ID,
		"penalty":   owner.PenaltyAmount,
	}).Info("продавец оштрафован")
	h.audit.RecordAction(audit.UserOf(owner), audit.BloggerOf(b), audit.ActionPenaltyApplied)
}

func (h *Handler) onReview(ctx context.Context, user *database.User, text string) {
	if !h.requireRole(ctx, user, database.RoleBuyer) {
		return
	}
	bloggerID, rating, comment, err := parseReviewArgs(text)
	if err != nil {
		h.send(ctx, user.PlatformID, messages.MsgReviewUsage)
		return
	}
	if v := moderation.CheckFeedback(comment); v != nil {
		h.send(ctx, user.PlatformID, messages.MsgContactsForbidden)
		return
	}

	review, err := h.db.CreateReview(ctx, &database.Review{
		BloggerID:  bloggerID,
		ReviewerID: user.ID,
		Rating:     rating,
		Comment:    optional(comment),
	})
	if err != nil {
		h.fail(ctx, user, "отзыв", err)
		return
	}
	if review == nil {
		h.send(ctx, user.PlatformID, messages.MsgNotFound)
		return
	}
	h.send(ctx, user.PlatformID, messages.MsgReviewSaved)
}
