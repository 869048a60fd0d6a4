package database

import (
	"context"
	"fmt"
	"strings"

	"blogger_bot/logger"
)

// column — определение колонки. Base-колонки существуют с первой версии схемы,
// остальные могут добавляться ALTER TABLE ... ADD COLUMN к уже существующим строкам,
// поэтому обязаны быть nullable или иметь DEFAULT.
type column struct {
	Name string
	Def  string
	Base bool
}

type table struct {
	Name        string
	Columns     []column
	Constraints []string
}

func (t table) createSQL() string {
	parts := make([]string, 0, len(t.Columns)+len(t.Constraints))
	for _, c := range t.Columns {
		parts = append(parts, c.Name+" "+c.Def)
	}
	parts = append(parts, t.Constraints...)
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.Name, strings.Join(parts, ",\n\t"))
}

func (t table) addColumnSQL(c column) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", t.Name, c.Name, c.Def)
}

// legacyRoleColumn — одиночная роль до появления user_roles
const legacyRoleColumn = "role"

var schema = []table{
	{
		Name: "users",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "platform_id", Def: "BIGINT NOT NULL UNIQUE", Base: true},
			{Name: "username", Def: "TEXT", Base: true},
			{Name: "first_name", Def: "TEXT", Base: true},
			{Name: "last_name", Def: "TEXT"},
			{Name: "subscription_status", Def: "TEXT NOT NULL DEFAULT 'inactive'"},
			{Name: "subscription_start_date", Def: "TIMESTAMPTZ"},
			{Name: "subscription_end_date", Def: "TIMESTAMPTZ"},
			{Name: "rating", Def: "DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (rating >= 0 AND rating <= 5)"},
			{Name: "reviews_count", Def: "INTEGER NOT NULL DEFAULT 0"},
			{Name: "is_vip", Def: "BOOLEAN NOT NULL DEFAULT FALSE"},
			{Name: "penalty_amount", Def: "INTEGER NOT NULL DEFAULT 0 CHECK (penalty_amount >= 0)"},
			{Name: "is_blocked", Def: "BOOLEAN NOT NULL DEFAULT FALSE"},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	},
	{
		Name: "user_roles",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "user_id", Def: "BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE", Base: true},
			{Name: "role", Def: "TEXT NOT NULL CHECK (role IN ('seller', 'buyer'))", Base: true},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
		Constraints: []string{"UNIQUE (user_id, role)"},
	},
	{
		Name: "bloggers",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "seller_id", Def: "BIGINT NOT NULL REFERENCES users(id)", Base: true},
			{Name: "name", Def: "TEXT NOT NULL", Base: true},
			{Name: "url", Def: "TEXT"},
			{Name: "platforms", Def: "TEXT NOT NULL DEFAULT '[]'"},
			{Name: "categories", Def: "TEXT NOT NULL DEFAULT '[]'"},
			{Name: "description", Def: "TEXT"},
			{Name: "subscribers_count", Def: "INTEGER NOT NULL DEFAULT 0"},
			{Name: "audience_13_17_percent", Def: "INTEGER"},
			{Name: "audience_18_24_percent", Def: "INTEGER"},
			{Name: "audience_25_35_percent", Def: "INTEGER"},
			{Name: "audience_35_plus_percent", Def: "INTEGER"},
			{Name: "female_percent", Def: "INTEGER"},
			{Name: "male_percent", Def: "INTEGER"},
			{Name: "top_country", Def: "TEXT"},
			{Name: "country_percent", Def: "INTEGER"},
			{Name: "price_stories", Def: "INTEGER"},
			{Name: "price_post", Def: "INTEGER"},
			{Name: "price_video", Def: "INTEGER"},
			{Name: "price_reels", Def: "INTEGER"},
			{Name: "price_youtube_integration", Def: "INTEGER"},
			{Name: "price_telegram_post", Def: "INTEGER"},
			{Name: "stories_reach_min", Def: "INTEGER"},
			{Name: "stories_reach_max", Def: "INTEGER"},
			{Name: "post_reach_min", Def: "INTEGER"},
			{Name: "post_reach_max", Def: "INTEGER"},
			{Name: "video_reach_min", Def: "INTEGER"},
			{Name: "video_reach_max", Def: "INTEGER"},
			{Name: "reels_reach_min", Def: "INTEGER"},
			{Name: "reels_reach_max", Def: "INTEGER"},
			{Name: "has_reviews", Def: "BOOLEAN NOT NULL DEFAULT FALSE"},
			{Name: "is_registered_rkn", Def: "BOOLEAN NOT NULL DEFAULT FALSE"},
			{Name: "official_payment_possible", Def: "BOOLEAN NOT NULL DEFAULT FALSE"},
			{Name: "evidence_images", Def: "TEXT NOT NULL DEFAULT '[]'"},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
			{Name: "updated_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	},
	{
		Name: "subscriptions",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "user_id", Def: "BIGINT NOT NULL REFERENCES users(id)", Base: true},
			{Name: "start_date", Def: "TIMESTAMPTZ NOT NULL", Base: true},
			{Name: "end_date", Def: "TIMESTAMPTZ NOT NULL", Base: true},
			{Name: "amount", Def: "INTEGER NOT NULL DEFAULT 0"},
			{Name: "status", Def: "TEXT NOT NULL DEFAULT 'active'"},
			{Name: "payment_id", Def: "TEXT"},
			{Name: "auto_renewal", Def: "BOOLEAN NOT NULL DEFAULT TRUE"},
			{Name: "cancelled_at", Def: "TIMESTAMPTZ"},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	},
	{
		Name: "search_filters",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "user_id", Def: "BIGINT NOT NULL REFERENCES users(id)", Base: true},
			{Name: "platforms", Def: "TEXT NOT NULL DEFAULT '[]'"},
			{Name: "categories", Def: "TEXT NOT NULL DEFAULT '[]'"},
			{Name: "age_min", Def: "INTEGER"},
			{Name: "age_max", Def: "INTEGER"},
			{Name: "gender", Def: "TEXT NOT NULL DEFAULT 'any'"},
			{Name: "budget_min", Def: "INTEGER"},
			{Name: "budget_max", Def: "INTEGER"},
			{Name: "has_reviews", Def: "BOOLEAN"},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	},
	{
		Name: "reviews",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "blogger_id", Def: "BIGINT REFERENCES bloggers(id) ON DELETE SET NULL", Base: true},
			{Name: "reviewer_id", Def: "BIGINT NOT NULL REFERENCES users(id)", Base: true},
			{Name: "rating", Def: "INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5)", Base: true},
			{Name: "comment", Def: "TEXT"},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	},
	{
		Name: "contacts",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "buyer_id", Def: "BIGINT NOT NULL REFERENCES users(id)", Base: true},
			{Name: "seller_id", Def: "BIGINT NOT NULL REFERENCES users(id)", Base: true},
			{Name: "blogger_id", Def: "BIGINT REFERENCES bloggers(id) ON DELETE SET NULL"},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	},
	{
		Name: "complaints",
		Columns: []column{
			{Name: "id", Def: "BIGSERIAL PRIMARY KEY", Base: true},
			{Name: "blogger_id", Def: "BIGINT REFERENCES bloggers(id) ON DELETE SET NULL", Base: true},
			{Name: "user_id", Def: "BIGINT NOT NULL REFERENCES users(id)", Base: true},
			{Name: "reason", Def: "TEXT NOT NULL", Base: true},
			{Name: "status", Def: "TEXT NOT NULL DEFAULT 'new'"},
			{Name: "penalty_amount", Def: "INTEGER NOT NULL DEFAULT 0"},
			{Name: "created_at", Def: "TIMESTAMPTZ NOT NULL DEFAULT NOW()"},
		},
	},
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_users_platform_id ON users (platform_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_roles_user_id ON user_roles (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_roles_role ON user_roles (role)`,
	`CREATE INDEX IF NOT EXISTS idx_bloggers_seller_id ON bloggers (seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_id ON subscriptions (user_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_subscriptions_payment_id ON subscriptions (payment_id) WHERE payment_id IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_search_filters_user_id ON search_filters (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reviews_blogger_id ON reviews (blogger_id)`,
	`CREATE INDEX IF NOT EXISTS idx_complaints_blogger_id ON complaints (blogger_id)`,
}

// EnsureSchema идемпотентно приводит схему к текущей версии.
// Вызывается один раз при старте до обработки апдейтов.
// Ошибка создания базовых таблиц фатальна, остальные шаги best-effort.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, t := range schema {
		if _, err := db.Pool.Exec(ctx, t.createSQL()); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}

	// До любых запросов к user_roles
	if err := db.migrateLegacyRole(ctx); err != nil {
		logger.WithError(err).Error("миграция legacy-роли не выполнена")
	}

	for _, t := range schema {
		db.addMissingColumns(ctx, t)
	}

	for _, q := range indexes {
		if _, err := db.Pool.Exec(ctx, q); err != nil {
			logger.WithFields(logger.Fields{"sql": q}).WithError(err).Error("не удалось создать индекс")
		}
	}
	return nil
}

func (db *DB) tableColumns(ctx context.Context, name string) (map[string]bool, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		cols[c] = true
	}
	return cols, rows.Err()
}

func (db *DB) addMissingColumns(ctx context.Context, t table) {
	existing, err := db.tableColumns(ctx, t.Name)
	if err != nil {
		logger.WithFields(logger.Fields{"table": t.Name}).WithError(err).Error("не удалось прочитать колонки")
		return
	}

	for _, c := range missingColumns(t, existing) {
		if _, err := db.Pool.Exec(ctx, t.addColumnSQL(c)); err != nil {
			logger.WithFields(logger.Fields{"table": t.Name, "column": c.Name}).
				WithError(err).Error("не удалось добавить колонку, шаг пропущен")
			continue
		}
		logger.WithFields(logger.Fields{"table": t.Name, "column": c.Name}).Info("добавлена колонка")
	}
}

func missingColumns(t table, existing map[string]bool) []column {
	var out []column
	for _, c := range t.Columns {
		if !existing[c.Name] {
			out = append(out, c)
		}
	}
	return out
}

// migrateLegacyRole переносит users.role в user_roles и удаляет колонку, если
// перенесены все значения. После удаления колонки повторно не срабатывает.
func (db *DB) migrateLegacyRole(ctx context.Context) error {
	cols, err := db.tableColumns(ctx, "users")
	if err != nil {
		return err
	}
	if !cols[legacyRoleColumn] {
		return nil
	}

	rows, err := db.Pool.Query(ctx, `SELECT id, role FROM users WHERE role IS NOT NULL AND role <> ''`)
	if err != nil {
		return fmt.Errorf("read legacy roles: %w", err)
	}
	type legacy struct {
		userID int64
		role   string
	}
	var found []legacy
	for rows.Next() {
		var l legacy
		if err := rows.Scan(&l.userID, &l.role); err != nil {
			rows.Close()
			return fmt.Errorf("scan legacy role: %w", err)
		}
		found = append(found, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	migrated, skipped := 0, 0
	for _, l := range found {
		if !Role(l.role).Valid() {
			logger.WithFields(logger.Fields{"user_id": l.userID, "role": l.role}).Warn("неизвестная legacy-роль пропущена")
			skipped++
			continue
		}
		tag, err := db.Pool.Exec(ctx,
			`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id, role) DO NOTHING`,
			l.userID, l.role)
		if err != nil {
			logger.WithFields(logger.Fields{"user_id": l.userID}).WithError(err).Warn("не удалось перенести роль")
			skipped++
			continue
		}
		migrated += int(tag.RowsAffected())
	}

	// Колонка остаётся, пока есть непереносимые значения: повтор при следующем запуске
	if skipped > 0 {
		logger.WithFields(logger.Fields{"migrated": migrated, "skipped": skipped}).Warn("legacy-колонка role сохранена")
		return nil
	}
	if _, err := db.Pool.Exec(ctx, `ALTER TABLE users DROP COLUMN `+legacyRoleColumn); err != nil {
		return fmt.Errorf("drop legacy role column: %w", err)
	}
	logger.WithFields(logger.Fields{"migrated": migrated, "total": len(found)}).Info("legacy-роли перенесены в user_roles")
	return nil
}
