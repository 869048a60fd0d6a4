package handlers

import (
	"sync"

	"blogger_bot/database"
)

type step int

const (
	stepNone step = iota

	// Анкета блогера
	stepBloggerName
	stepBloggerURL
	stepBloggerCategories
	stepBloggerSubscribers
	stepBloggerPriceStory
	stepBloggerPricePost
	stepBloggerPriceVideo
	stepBloggerStoryReach

	// Поиск
	stepSearchPlatforms
	stepSearchCategories
	stepSearchBudget
	stepSearchGender

	stepComplaintReason
)

// session — незавершённая анкета в чате
type session struct {
	step      step
	blogger   database.Blogger
	criteria  database.SearchCriteria
	bloggerID int64
}

// sessions хранит анкеты в памяти процесса, по одной на чат
type sessions struct {
	mu sync.Mutex
	m  map[int64]session
}

func newSessions() *sessions {
	return &sessions{m: make(map[int64]session)}
}

func (s *sessions) get(chatID int64) session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m[chatID]
}

func (s *sessions) set(chatID int64, sess session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.step == stepNone {
		delete(s.m, chatID)
		return
	}
	s.m[chatID] = sess
}

func (s *sessions) reset(chatID int64) {
	s.set(chatID, session{})
}
