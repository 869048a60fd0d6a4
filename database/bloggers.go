package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

var bloggerColumnList = []string{
	"id", "seller_id", "name", "url", "platforms", "categories", "description", "subscribers_count",
	"audience_13_17_percent", "audience_18_24_percent", "audience_25_35_percent", "audience_35_plus_percent",
	"female_percent", "male_percent", "top_country", "country_percent",
	"price_stories", "price_post", "price_video", "price_reels", "price_youtube_integration", "price_telegram_post",
	"stories_reach_min", "stories_reach_max", "post_reach_min", "post_reach_max",
	"video_reach_min", "video_reach_max", "reels_reach_min", "reels_reach_max",
	"has_reviews", "is_registered_rkn", "official_payment_possible", "evidence_images",
	"created_at", "updated_at",
}

func bloggerColumns(prefix string) string {
	return prefixed(bloggerColumnList, prefix)
}

// bloggerTargets — приёмники для Scan в порядке bloggerColumnList.
// Многозначные поля читаются сырым текстом и разбираются в finish.
func bloggerTargets(b *Blogger) (targets []any, finish func()) {
	var url, platforms, categories, images *string
	targets = []any{
		&b.ID, &b.SellerID, &b.Name, &url, &platforms, &categories, &b.Description, &b.SubscribersCount,
		&b.Audience13_17, &b.Audience18_24, &b.Audience25_35, &b.Audience35Plus,
		&b.FemalePercent, &b.MalePercent, &b.TopCountry, &b.CountryPercent,
		&b.PriceStories, &b.PricePost, &b.PriceVideo, &b.PriceReels, &b.PriceYouTubeIntegration, &b.PriceTelegramPost,
		&b.StoriesReachMin, &b.StoriesReachMax, &b.PostReachMin, &b.PostReachMax,
		&b.VideoReachMin, &b.VideoReachMax, &b.ReelsReachMin, &b.ReelsReachMax,
		&b.HasReviews, &b.IsRegisteredRKN, &b.OfficialPaymentPossible, &images,
		&b.CreatedAt, &b.UpdatedAt,
	}
	finish = func() {
		if url != nil {
			b.URL = *url
		}
		b.Platforms = decodeList(platforms, "bloggers", "platforms", b.ID)
		b.Categories = decodeList(categories, "bloggers", "categories", b.ID)
		b.EvidenceImages = decodeList(images, "bloggers", "evidence_images", b.ID)
	}
	return targets, finish
}

func scanBlogger(row pgx.Row) (*Blogger, error) {
	var b Blogger
	targets, finish := bloggerTargets(&b)
	err := row.Scan(targets...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	finish()
	return &b, nil
}

func (b *Blogger) insertValues() []any {
	return []any{
		b.SellerID, b.Name, nullIfEmpty(b.URL), encodeList(b.Platforms), encodeList(b.Categories), b.Description, b.SubscribersCount,
		b.Audience13_17, b.Audience18_24, b.Audience25_35, b.Audience35Plus,
		b.FemalePercent, b.MalePercent, b.TopCountry, b.CountryPercent,
		b.PriceStories, b.PricePost, b.PriceVideo, b.PriceReels, b.PriceYouTubeIntegration, b.PriceTelegramPost,
		b.StoriesReachMin, b.StoriesReachMax, b.PostReachMin, b.PostReachMax,
		b.VideoReachMin, b.VideoReachMax, b.ReelsReachMin, b.ReelsReachMax,
		b.HasReviews, b.IsRegisteredRKN, b.OfficialPaymentPossible, encodeList(b.EvidenceImages),
	}
}

// CreateBlogger валидирует и сохраняет карточку; владелец должен иметь роль seller
func (db *DB) CreateBlogger(ctx context.Context, b *Blogger) (*Blogger, error) {
	if err := ValidateBlogger(b); err != nil {
		return nil, err
	}

	// без id, created_at, updated_at
	cols := bloggerColumnList[1 : len(bloggerColumnList)-2]
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	query := fmt.Sprintf(`INSERT INTO bloggers (%s) VALUES (%s) RETURNING %s`,
		strings.Join(cols, ", "), strings.Join(placeholders, ", "), bloggerColumns(""))

	var created *Blogger
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		ok, err := hasRole(ctx, tx, b.SellerID, RoleSeller)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: добавлять блогеров может только продавец", ErrNotPermitted)
		}
		created, err = scanBlogger(tx.QueryRow(ctx, query, b.insertValues()...))
		return err
	})
	if err != nil {
		return nil, storageErr("create blogger", err)
	}
	return created, nil
}

func (db *DB) GetBlogger(ctx context.Context, id int64) (*Blogger, error) {
	b, err := scanBlogger(db.Pool.QueryRow(ctx, `SELECT `+bloggerColumns("")+` FROM bloggers WHERE id = $1`, id))
	return b, storageErr("get blogger", err)
}

// ListBloggersBySeller — карточки продавца, новые первыми
func (db *DB) ListBloggersBySeller(ctx context.Context, sellerID int64) ([]Blogger, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+bloggerColumns("")+` FROM bloggers WHERE seller_id = $1 ORDER BY created_at DESC, id DESC`,
		sellerID)
	if err != nil {
		return nil, storageErr("list bloggers", err)
	}
	defer rows.Close()

	var out []Blogger
	for rows.Next() {
		var b Blogger
		targets, finish := bloggerTargets(&b)
		if err := rows.Scan(targets...); err != nil {
			return nil, storageErr("scan blogger", err)
		}
		finish()
		out = append(out, b)
	}
	return out, storageErr("list bloggers", rows.Err())
}

var bloggerUpdatable = map[string]bool{
	"name": true, "url": true, "platforms": true, "categories": true, "description": true,
	"subscribers_count":      true,
	"audience_13_17_percent": true, "audience_18_24_percent": true, "audience_25_35_percent": true, "audience_35_plus_percent": true,
	"female_percent": true, "male_percent": true, "top_country": true, "country_percent": true,
	"price_stories": true, "price_post": true, "price_video": true, "price_reels": true,
	"price_youtube_integration": true, "price_telegram_post": true,
	"stories_reach_min": true, "stories_reach_max": true, "post_reach_min": true, "post_reach_max": true,
	"video_reach_min": true, "video_reach_max": true, "reels_reach_min": true, "reels_reach_max": true,
	"has_reviews": true, "is_registered_rkn": true, "official_payment_possible": true, "evidence_images": true,
}

func encodeBloggerField(name string, v any) any {
	switch name {
	case "platforms", "categories", "evidence_images":
		if list, ok := v.([]string); ok {
			return encodeList(list)
		}
	}
	return v
}

// UpdateBlogger меняет разрешённые поля. Итоговая карточка валидируется
// внутри транзакции; при ошибке валидации изменения откатываются.
func (db *DB) UpdateBlogger(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	set, args := buildSet(fields, bloggerUpdatable, encodeBloggerField, "bloggers", id)
	if len(set) == 0 {
		return false, nil
	}
	set = append(set, "updated_at = NOW()")
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE bloggers SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(set, ", "), len(args), bloggerColumns(""))

	var updated bool
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		b, err := scanBlogger(tx.QueryRow(ctx, query, args...))
		if err != nil || b == nil {
			return err
		}
		if err := ValidateBlogger(b); err != nil {
			return err
		}
		updated = true
		return nil
	})
	if err != nil {
		return false, storageErr("update blogger", err)
	}
	return updated, nil
}

// DeleteBlogger удаляет карточку; жалобы и контакты остаются с blogger_id = NULL
func (db *DB) DeleteBlogger(ctx context.Context, id int64) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM bloggers WHERE id = $1`, id)
	if err != nil {
		return false, storageErr("delete blogger", err)
	}
	return tag.RowsAffected() > 0, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
