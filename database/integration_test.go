package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDB поднимает изолированную схему в базе из TEST_DATABASE_URL.
// Без переменной окружения тест пропускается.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL не задан")
	}
	ctx := context.Background()

	admin, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	schemaName := fmt.Sprintf("test_%d", time.Now().UnixNano())
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schemaName)
	require.NoError(t, err)

	cfg, err := pgxpool.ParseConfig(url)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schemaName
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		pool.Close()
		_, _ = admin.Exec(ctx, "DROP SCHEMA "+schemaName+" CASCADE")
		admin.Close()
	})

	db := &DB{Pool: pool, now: time.Now}
	require.NoError(t, db.EnsureSchema(ctx))
	return db
}

func strp(s string) *string { return &s }

func mustUser(t *testing.T, db *DB, platformID int64) *User {
	t.Helper()
	u, err := db.UpsertUser(context.Background(), platformID, strp(fmt.Sprintf("user%d", platformID)), nil, nil)
	require.NoError(t, err)
	require.NotNil(t, u)
	return u
}

func mustSeller(t *testing.T, db *DB, platformID int64, rating float64) *User {
	t.Helper()
	u := mustUser(t, db, platformID)
	_, err := db.AddRole(context.Background(), u.ID, RoleSeller)
	require.NoError(t, err)
	_, err = db.SetRating(context.Background(), u.ID, rating)
	require.NoError(t, err)
	return u
}

func TestIntegrationEnsureSchemaIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.EnsureSchema(context.Background()))
	require.NoError(t, db.EnsureSchema(context.Background()))
}

func TestIntegrationAdditiveMigration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := mustUser(t, db, 1)
	_, err := db.Pool.Exec(ctx, `ALTER TABLE users DROP COLUMN is_vip`)
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))

	got, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsVIP)
}

func TestIntegrationLegacyRoleMigration(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seller := mustUser(t, db, 10)
	buyer := mustUser(t, db, 11)
	none := mustUser(t, db, 12)

	_, err := db.Pool.Exec(ctx, `ALTER TABLE users ADD COLUMN role TEXT`)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `UPDATE users SET role = 'seller' WHERE id = $1`, seller.ID)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `UPDATE users SET role = 'buyer' WHERE id = $1`, buyer.ID)
	require.NoError(t, err)
	// уже перенесённая роль не должна ломать миграцию
	_, err = db.AddRole(ctx, buyer.ID, RoleBuyer)
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))

	roles, err := db.GetRoles(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleSeller}, roles)

	roles, err = db.GetRoles(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleBuyer}, roles)

	roles, err = db.GetRoles(ctx, none.ID)
	require.NoError(t, err)
	assert.Empty(t, roles)

	cols, err := db.tableColumns(ctx, "users")
	require.NoError(t, err)
	assert.False(t, cols[legacyRoleColumn])
}

func TestIntegrationLegacyRoleColumnKeptUntilAllMigrated(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seller := mustUser(t, db, 20)
	odd := mustUser(t, db, 21)

	_, err := db.Pool.Exec(ctx, `ALTER TABLE users ADD COLUMN role TEXT`)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `UPDATE users SET role = 'seller' WHERE id = $1`, seller.ID)
	require.NoError(t, err)
	_, err = db.Pool.Exec(ctx, `UPDATE users SET role = 'admin' WHERE id = $1`, odd.ID)
	require.NoError(t, err)

	require.NoError(t, db.EnsureSchema(ctx))

	cols, err := db.tableColumns(ctx, "users")
	require.NoError(t, err)
	assert.True(t, cols[legacyRoleColumn])
	roles, err := db.GetRoles(ctx, seller.ID)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleSeller}, roles)

	var raw string
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT role FROM users WHERE id = $1`, odd.ID).Scan(&raw))
	assert.Equal(t, "admin", raw)

	_, err = db.Pool.Exec(ctx, `UPDATE users SET role = 'buyer' WHERE id = $1`, odd.ID)
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))

	cols, err = db.tableColumns(ctx, "users")
	require.NoError(t, err)
	assert.False(t, cols[legacyRoleColumn])
	roles, err = db.GetRoles(ctx, odd.ID)
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleBuyer}, roles)
}

func TestIntegrationRoles(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, 42)

	for _, set := range [][]Role{{RoleSeller}, {RoleBuyer, RoleSeller}, {}, {RoleBuyer}} {
		require.NoError(t, db.SetRoles(ctx, u.ID, set))
		got, err := db.GetRoles(ctx, u.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, set, got)
	}

	added, err := db.AddRole(ctx, u.ID, RoleSeller)
	require.NoError(t, err)
	assert.True(t, added)
	added, err = db.AddRole(ctx, u.ID, RoleSeller)
	require.NoError(t, err)
	assert.False(t, added)

	got, err := db.GetRoles(ctx, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Role{RoleBuyer, RoleSeller}, got)

	removed, err := db.RemoveRole(ctx, u.ID, RoleBuyer)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = db.RemoveRole(ctx, u.ID, RoleBuyer)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestIntegrationBloggerScenario(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	u := mustUser(t, db, 42)
	require.NoError(t, db.SetRoles(ctx, u.ID, []Role{RoleSeller}))

	created, err := db.CreateBlogger(ctx, &Blogger{
		SellerID:        u.ID,
		Name:            "anna",
		Platforms:       []string{"instagram"},
		Categories:      []string{"lifestyle"},
		StoriesReachMin: intp(5000),
		StoriesReachMax: intp(8000),
	})
	require.NoError(t, err)
	require.NotNil(t, created)

	got, err := db.GetBlogger(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5000, *got.StoriesReachMin)
	assert.Equal(t, 8000, *got.StoriesReachMax)
	assert.Equal(t, []string{"instagram"}, got.Platforms)
	assert.Equal(t, []string{"lifestyle"}, got.Categories)

	_, err = db.Pool.Exec(ctx, `UPDATE bloggers SET categories = '["lifestyle"' WHERE id = $1`, created.ID)
	require.NoError(t, err)

	got, err = db.GetBlogger(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []string{}, got.Categories)
	assert.Equal(t, []string{"instagram"}, got.Platforms)
}

func TestIntegrationBloggerCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	buyer := mustUser(t, db, 1)
	_, err := db.CreateBlogger(ctx, &Blogger{SellerID: buyer.ID, Name: "x"})
	assert.ErrorIs(t, err, ErrNotPermitted)

	seller := mustSeller(t, db, 2, 4)
	_, err = db.CreateBlogger(ctx, &Blogger{SellerID: seller.ID, Name: "bad", StoriesReachMin: intp(10), StoriesReachMax: intp(1)})
	assert.ErrorIs(t, err, ErrValidation)

	first, err := db.CreateBlogger(ctx, &Blogger{SellerID: seller.ID, Name: "first"})
	require.NoError(t, err)
	second, err := db.CreateBlogger(ctx, &Blogger{SellerID: seller.ID, Name: "second"})
	require.NoError(t, err)

	list, err := db.ListBloggersBySeller(ctx, seller.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	ok, err := db.UpdateBlogger(ctx, first.ID, map[string]any{
		"name":       "renamed",
		"categories": []string{"food", "travel"},
		"seller_id":  buyer.ID,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := db.GetBlogger(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, []string{"food", "travel"}, got.Categories)
	assert.Equal(t, seller.ID, got.SellerID)

	// невалидное обновление откатывается целиком
	_, err = db.UpdateBlogger(ctx, first.ID, map[string]any{
		"name":              "changed",
		"stories_reach_min": 100,
		"stories_reach_max": 10,
	})
	assert.ErrorIs(t, err, ErrValidation)
	got, err = db.GetBlogger(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Nil(t, got.StoriesReachMin)

	ok, err = db.UpdateBlogger(ctx, first.ID, map[string]any{"seller_id": buyer.ID})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.DeleteBlogger(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.DeleteBlogger(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := db.GetBlogger(ctx, first.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIntegrationSearchOrderingAndPaging(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	top := mustSeller(t, db, 1, 5)
	mid := mustSeller(t, db, 2, 3)

	mk := func(seller *User, name string, subs int, platforms ...string) int64 {
		b, err := db.CreateBlogger(ctx, &Blogger{SellerID: seller.ID, Name: name, SubscribersCount: subs, Platforms: platforms})
		require.NoError(t, err)
		return b.ID
	}
	a := mk(mid, "a", 900, "youtube")
	b := mk(top, "b", 100, "instagram")
	c := mk(top, "c", 500, "instagram", "telegram")
	d := mk(mid, "d", 50, "tiktok")

	page1, err := db.Search(ctx, SearchCriteria{Limit: 2})
	require.NoError(t, err)
	page2, err := db.Search(ctx, SearchCriteria{Limit: 2, Offset: page1.NextOffset()})
	require.NoError(t, err)

	assert.True(t, page1.HasMore)
	assert.False(t, page2.HasMore)

	var ids []int64
	for _, it := range append(page1.Items, page2.Items...) {
		ids = append(ids, it.Blogger.ID)
	}
	assert.Equal(t, []int64{c, b, a, d}, ids)
	assert.Equal(t, top.ID, page1.Items[0].Owner.ID)

	insta, err := db.Search(ctx, SearchCriteria{Platforms: []string{"instagram"}})
	require.NoError(t, err)
	var instaIDs []int64
	for _, it := range insta.Items {
		instaIDs = append(instaIDs, it.Blogger.ID)
	}
	assert.ElementsMatch(t, []int64{b, c}, instaIDs)
}

func TestIntegrationSearchFilters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	s := mustSeller(t, db, 1, 4)

	female, err := db.CreateBlogger(ctx, &Blogger{
		SellerID: s.ID, Name: "f", FemalePercent: intp(70), MalePercent: intp(30),
		Audience18_24: intp(60), PriceStories: intp(1000), PriceVideo: intp(90000),
	})
	require.NoError(t, err)
	male, err := db.CreateBlogger(ctx, &Blogger{
		SellerID: s.ID, Name: "m", FemalePercent: intp(20), MalePercent: intp(80),
		Audience35Plus: intp(50), PricePost: intp(40000),
	})
	require.NoError(t, err)

	ids := func(c SearchCriteria) []int64 {
		page, err := db.Search(ctx, c)
		require.NoError(t, err)
		var out []int64
		for _, it := range page.Items {
			out = append(out, it.Blogger.ID)
		}
		return out
	}

	assert.Equal(t, []int64{female.ID}, ids(SearchCriteria{Gender: GenderFemale}))
	assert.Equal(t, []int64{male.ID}, ids(SearchCriteria{Gender: GenderMale}))
	assert.Equal(t, []int64{female.ID}, ids(SearchCriteria{AgeMin: intp(18), AgeMax: intp(22)}))
	assert.Equal(t, []int64{male.ID}, ids(SearchCriteria{AgeMin: intp(40)}))

	// минимум выполняется видео, максимум сторис: блогер подходит
	assert.Contains(t, ids(SearchCriteria{BudgetMin: intp(50000), BudgetMax: intp(5000)}), female.ID)
	assert.ElementsMatch(t, []int64{female.ID, male.ID}, ids(SearchCriteria{BudgetMin: intp(30000), BudgetMax: intp(45000)}))
	assert.Empty(t, ids(SearchCriteria{BudgetMax: intp(500)}))

	// битое JSON-поле не ломает поиск
	_, err = db.Pool.Exec(ctx, `UPDATE bloggers SET platforms = 'not json' WHERE id = $1`, male.ID)
	require.NoError(t, err)
	page, err := db.Search(ctx, SearchCriteria{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
}

func TestIntegrationSubscriptionLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })

	u := mustUser(t, db, 7)

	sub, err := db.Activate(ctx, u.ID, 30*24*time.Hour, 50000, "charge-1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)
	assert.True(t, sub.AutoRenewal)

	got, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusActive, got.SubscriptionStatus)
	assert.True(t, now.Add(30*24*time.Hour).Equal(*got.SubscriptionEndDate))

	again, err := db.Activate(ctx, u.ID, 30*24*time.Hour, 50000, "charge-1")
	require.NoError(t, err)
	assert.Equal(t, sub.ID, again.ID)

	ok, err := db.ToggleAutoRenewal(ctx, u.ID, false)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = db.GetUser(ctx, u.ID)
	assert.Equal(t, StatusAutoRenewalOff, got.SubscriptionStatus)

	ok, err = db.ToggleAutoRenewal(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = db.GetUser(ctx, u.ID)
	assert.Equal(t, StatusActive, got.SubscriptionStatus)

	ok, err = db.Cancel(ctx, u.ID, false)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = db.GetUser(ctx, u.ID)
	assert.Equal(t, StatusCancelled, got.SubscriptionStatus)
	assert.True(t, now.Add(30*24*time.Hour).Equal(*got.SubscriptionEndDate))
	assert.True(t, got.HasAccess(now))

	// отменённая запись терминальна
	ok, err = db.Cancel(ctx, u.ID, true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = db.Activate(ctx, u.ID, 30*24*time.Hour, 50000, "charge-2")
	require.NoError(t, err)
	ok, err = db.Cancel(ctx, u.ID, true)
	require.NoError(t, err)
	assert.True(t, ok)
	got, _ = db.GetUser(ctx, u.ID)
	assert.Equal(t, StatusInactive, got.SubscriptionStatus)
	assert.True(t, now.Equal(*got.SubscriptionEndDate))
	assert.False(t, got.HasAccess(now))

	history, err := db.History(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "charge-2", *history[0].PaymentID)
	for _, h := range history {
		assert.Equal(t, StatusCancelled, h.Status)
	}
}

func TestIntegrationToggleSynthesizesLegacyLedger(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, 8)

	end := time.Now().Add(10 * 24 * time.Hour).UTC().Truncate(time.Microsecond)
	_, err := db.Pool.Exec(ctx,
		`UPDATE users SET subscription_status = 'active', subscription_end_date = $1 WHERE id = $2`, end, u.ID)
	require.NoError(t, err)

	ok, err := db.ToggleAutoRenewal(ctx, u.ID, false)
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := db.History(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusAutoRenewalOff, history[0].Status)
	assert.False(t, history[0].AutoRenewal)
	assert.True(t, end.Equal(history[0].EndDate))

	got, _ := db.GetUser(ctx, u.ID)
	assert.Equal(t, StatusAutoRenewalOff, got.SubscriptionStatus)

	nobody := mustUser(t, db, 9)
	ok, err = db.ToggleAutoRenewal(ctx, nobody.ID, true)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIntegrationRefreshSubscriptionExpires(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })

	u := mustUser(t, db, 5)
	_, err := db.Activate(ctx, u.ID, 24*time.Hour, 100, "c")
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)
	got, err := db.RefreshSubscription(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.SubscriptionStatus)

	history, err := db.History(ctx, u.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, history[0].Status)
}

func TestIntegrationPenaltyRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, 3)

	before, err := db.GetUser(ctx, u.ID)
	require.NoError(t, err)

	after, err := db.ApplyPenalty(ctx, u.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, before.PenaltyAmount+100, after.PenaltyAmount)
	assert.True(t, after.IsBlocked)

	paid, err := db.PayPenalty(ctx, u.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, before.PenaltyAmount, paid.PenaltyAmount)
	assert.Equal(t, before.IsBlocked, paid.IsBlocked)

	_, err = db.ApplyPenalty(ctx, u.ID, 0)
	assert.ErrorIs(t, err, ErrValidation)

	missing, err := db.ApplyPenalty(ctx, 999999, 10)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIntegrationReviewsContactsComplaints(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seller := mustSeller(t, db, 1, 0)
	buyer := mustUser(t, db, 2)
	b, err := db.CreateBlogger(ctx, &Blogger{SellerID: seller.ID, Name: "b"})
	require.NoError(t, err)

	_, err = db.CreateReview(ctx, &Review{BloggerID: b.ID, ReviewerID: buyer.ID, Rating: 4})
	require.NoError(t, err)
	_, err = db.CreateReview(ctx, &Review{BloggerID: b.ID, ReviewerID: buyer.ID, Rating: 2})
	require.NoError(t, err)
	_, err = db.CreateReview(ctx, &Review{BloggerID: b.ID, ReviewerID: buyer.ID, Rating: 9})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = db.CreateReview(ctx, &Review{BloggerID: b.ID, ReviewerID: seller.ID, Rating: 5})
	assert.ErrorIs(t, err, ErrNotPermitted)

	owner, _ := db.GetUser(ctx, seller.ID)
	assert.InDelta(t, 3.0, owner.Rating, 0.001)
	assert.Equal(t, 2, owner.ReviewsCount)

	reviews, err := db.ListReviews(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	contact, err := db.CreateContact(ctx, buyer.ID, b.ID)
	require.NoError(t, err)
	require.NotNil(t, contact)
	assert.Equal(t, seller.ID, contact.SellerID)

	none, err := db.CreateContact(ctx, buyer.ID, 999999)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = db.FileComplaint(ctx, b.ID, buyer.ID, "обман", 0)
	assert.ErrorIs(t, err, ErrNotPermitted)

	_, err = db.AddRole(ctx, buyer.ID, RoleBuyer)
	require.NoError(t, err)
	complaint, err := db.FileComplaint(ctx, b.ID, buyer.ID, "обман", 500)
	require.NoError(t, err)
	require.NotNil(t, complaint)
	assert.Equal(t, ComplaintPenalty, complaint.Status)

	owner, _ = db.GetUser(ctx, seller.ID)
	assert.Equal(t, 500, owner.PenaltyAmount)
	assert.True(t, owner.IsBlocked)

	// удаление блогера не удаляет жалобы
	_, err = db.DeleteBlogger(ctx, b.ID)
	require.NoError(t, err)
	var orphaned int
	require.NoError(t, db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM complaints WHERE blogger_id IS NULL`).Scan(&orphaned))
	assert.Equal(t, 1, orphaned)
}

func TestIntegrationComplaintPenaltyRequiresContact(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	seller := mustSeller(t, db, 1, 0)
	stranger := mustUser(t, db, 2)
	_, err := db.AddRole(ctx, stranger.ID, RoleBuyer)
	require.NoError(t, err)
	b, err := db.CreateBlogger(ctx, &Blogger{SellerID: seller.ID, Name: "b"})
	require.NoError(t, err)

	complaint, err := db.FileComplaint(ctx, b.ID, stranger.ID, "не отвечает", 500)
	require.NoError(t, err)
	require.NotNil(t, complaint)
	assert.Equal(t, ComplaintNew, complaint.Status)
	assert.Zero(t, complaint.PenaltyAmount)

	owner, _ := db.GetUser(ctx, seller.ID)
	assert.Zero(t, owner.PenaltyAmount)
	assert.False(t, owner.IsBlocked)

	_, err = db.CreateContact(ctx, stranger.ID, b.ID)
	require.NoError(t, err)
	complaint, err = db.FileComplaint(ctx, b.ID, stranger.ID, "не отвечает", 500)
	require.NoError(t, err)
	assert.Equal(t, ComplaintPenalty, complaint.Status)

	owner, _ = db.GetUser(ctx, seller.ID)
	assert.Equal(t, 500, owner.PenaltyAmount)
	assert.True(t, owner.IsBlocked)
}

func TestIntegrationSearchFilterHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, 1)

	saved, err := db.SaveSearchFilter(ctx, u.ID, SearchCriteria{Platforms: []string{"vk"}, BudgetMax: intp(100)})
	require.NoError(t, err)
	assert.Equal(t, GenderAny, saved.Gender)

	list, err := db.ListSearchFilters(ctx, u.ID, 5)
	require.NoError(t, err)
	require.Len(t, list, 1)
	c := list[0].SearchCriteria()
	assert.Equal(t, []string{"vk"}, c.Platforms)
	assert.Equal(t, 100, *c.BudgetMax)
}

func TestIntegrationUpdateUserAllowList(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := mustUser(t, db, 1)

	ok, err := db.UpdateUser(ctx, u.ID, map[string]any{"first_name": "Анна", "is_vip": true})
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := db.GetUser(ctx, u.ID)
	assert.Equal(t, "Анна", *got.FirstName)
	assert.False(t, got.IsVIP)

	ok, err = db.UpdateUser(ctx, u.ID, map[string]any{"penalty_amount": 1})
	require.NoError(t, err)
	assert.False(t, ok)

	missing, err := db.GetUserByPlatformID(ctx, 404)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestIntegrationLifecycleIgnoresPastDueSubscription(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })

	u := mustUser(t, db, 6)
	sub, err := db.Activate(ctx, u.ID, 24*time.Hour, 100, "c")
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)

	ok, err := db.ToggleAutoRenewal(ctx, u.ID, true)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = db.Cancel(ctx, u.ID, true)
	require.NoError(t, err)
	assert.False(t, ok)

	history, err := db.History(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, StatusExpired, history[0].Status)
	assert.True(t, sub.EndDate.Equal(history[0].EndDate))
	assert.Nil(t, history[0].CancelledAt)

	got, _ := db.GetUser(ctx, u.ID)
	assert.Equal(t, StatusExpired, got.SubscriptionStatus)
	assert.True(t, sub.EndDate.Equal(*got.SubscriptionEndDate))
}

func TestIntegrationRefreshExpiresCancelledAtPeriodEnd(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })

	atEnd := mustUser(t, db, 7)
	_, err := db.Activate(ctx, atEnd.ID, 24*time.Hour, 100, "end")
	require.NoError(t, err)
	_, err = db.Cancel(ctx, atEnd.ID, false)
	require.NoError(t, err)

	immediate := mustUser(t, db, 8)
	_, err = db.Activate(ctx, immediate.ID, 24*time.Hour, 100, "now")
	require.NoError(t, err)
	_, err = db.Cancel(ctx, immediate.ID, true)
	require.NoError(t, err)

	now = now.Add(48 * time.Hour)

	got, err := db.RefreshSubscription(ctx, atEnd.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, got.SubscriptionStatus)
	history, err := db.History(ctx, atEnd.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, history[0].Status)

	// немедленная отмена так и остаётся отменой
	got, err = db.RefreshSubscription(ctx, immediate.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusInactive, got.SubscriptionStatus)
	history, err = db.History(ctx, immediate.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, history[0].Status)
}

func TestIntegrationRenewalClosesPreviousWindow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time { return now })

	u := mustUser(t, db, 9)
	_, err := db.Activate(ctx, u.ID, 30*24*time.Hour, 100, "first")
	require.NoError(t, err)

	now = now.Add(10 * 24 * time.Hour)
	renewed, err := db.Activate(ctx, u.ID, 30*24*time.Hour, 100, "second")
	require.NoError(t, err)

	history, err := db.History(ctx, u.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, renewed.ID, history[0].ID)
	assert.Equal(t, StatusActive, history[0].Status)
	assert.Equal(t, StatusExpired, history[1].Status)
	assert.False(t, history[1].AutoRenewal)
	assert.True(t, now.Equal(history[1].EndDate))

	got, _ := db.GetUser(ctx, u.ID)
	assert.Equal(t, StatusActive, got.SubscriptionStatus)
	assert.True(t, renewed.EndDate.Equal(*got.SubscriptionEndDate))
}
