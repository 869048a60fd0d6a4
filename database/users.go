package database

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"blogger_bot/logger"

	"github.com/jackc/pgx/v5"
)

var userColumnList = []string{
	"id", "platform_id", "username", "first_name", "last_name",
	"subscription_status", "subscription_start_date", "subscription_end_date",
	"rating", "reviews_count", "is_vip", "penalty_amount", "is_blocked", "created_at",
}

var userColumns = prefixed(userColumnList, "")

func userTargets(u *User) []any {
	return []any{
		&u.ID, &u.PlatformID, &u.Username, &u.FirstName, &u.LastName,
		&u.SubscriptionStatus, &u.SubscriptionStartDate, &u.SubscriptionEndDate,
		&u.Rating, &u.ReviewsCount, &u.IsVIP, &u.PenaltyAmount, &u.IsBlocked, &u.CreatedAt,
	}
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(userTargets(&u)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func prefixed(cols []string, prefix string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + c
	}
	return strings.Join(out, ", ")
}

// UpsertUser создаёт пользователя при первом обращении и обновляет имя при последующих
func (db *DB) UpsertUser(ctx context.Context, platformID int64, username, firstName, lastName *string) (*User, error) {
	query := `
		INSERT INTO users (platform_id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (platform_id) DO UPDATE SET
			username = COALESCE(EXCLUDED.username, users.username),
			first_name = COALESCE(EXCLUDED.first_name, users.first_name),
			last_name = COALESCE(EXCLUDED.last_name, users.last_name)
		RETURNING ` + userColumns

	u, err := scanUser(db.Pool.QueryRow(ctx, query, platformID, username, firstName, lastName))
	return u, storageErr("upsert user", err)
}

func (db *DB) GetUser(ctx context.Context, id int64) (*User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	return u, storageErr("get user", err)
}

func (db *DB) GetUserByPlatformID(ctx context.Context, platformID int64) (*User, error) {
	u, err := scanUser(db.Pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE platform_id = $1`, platformID))
	return u, storageErr("get user by platform id", err)
}

var userUpdatable = map[string]bool{
	"username":   true,
	"first_name": true,
	"last_name":  true,
}

// UpdateUser меняет только поля из allow-list, остальные молча игнорируются
func (db *DB) UpdateUser(ctx context.Context, id int64, fields map[string]any) (bool, error) {
	set, args := buildSet(fields, userUpdatable, nil, "users", id)
	if len(set) == 0 {
		return false, nil
	}
	args = append(args, id)
	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d`, strings.Join(set, ", "), len(args))

	tag, err := db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return false, storageErr("update user", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *DB) SetVIP(ctx context.Context, id int64, vip bool) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `UPDATE users SET is_vip = $1 WHERE id = $2`, vip, id)
	if err != nil {
		return false, storageErr("set vip", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (db *DB) SetRating(ctx context.Context, id int64, rating float64) (bool, error) {
	if rating < 0 || rating > 5 {
		return false, &ValidationError{Errors: map[string]string{"rating": "допустимо от 0 до 5"}}
	}
	tag, err := db.Pool.Exec(ctx, `UPDATE users SET rating = $1 WHERE id = $2`, rating, id)
	if err != nil {
		return false, storageErr("set rating", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ApplyPenalty увеличивает штраф; is_blocked пересчитывается в том же UPDATE
func (db *DB) ApplyPenalty(ctx context.Context, id int64, amount int) (*User, error) {
	if amount <= 0 {
		return nil, &ValidationError{Errors: map[string]string{"amount": "должно быть больше нуля"}}
	}
	u, err := applyPenalty(ctx, db.Pool, id, amount)
	return u, storageErr("apply penalty", err)
}

func applyPenalty(ctx context.Context, q querier, id int64, amount int) (*User, error) {
	query := `
		UPDATE users SET
			penalty_amount = penalty_amount + $1,
			is_blocked = (penalty_amount + $1) > 0
		WHERE id = $2
		RETURNING ` + userColumns
	return scanUser(q.QueryRow(ctx, query, amount, id))
}

// PayPenalty уменьшает штраф (не ниже нуля) и снимает блокировку при нулевом остатке
func (db *DB) PayPenalty(ctx context.Context, id int64, amount int) (*User, error) {
	if amount <= 0 {
		return nil, &ValidationError{Errors: map[string]string{"amount": "должно быть больше нуля"}}
	}
	query := `
		UPDATE users SET
			penalty_amount = GREATEST(penalty_amount - $1, 0),
			is_blocked = GREATEST(penalty_amount - $1, 0) > 0
		WHERE id = $2
		RETURNING ` + userColumns
	u, err := scanUser(db.Pool.QueryRow(ctx, query, amount, id))
	return u, storageErr("pay penalty", err)
}

// buildSet собирает SET-часть UPDATE по allow-list. encode вызывается
// для значений, требующих сериализации (многозначные поля).
func buildSet(fields map[string]any, allowed map[string]bool, encode func(string, any) any, table string, id int64) ([]string, []any) {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !allowed[k] {
			logger.WithFields(logger.Fields{"table": table, "id": id, "field": k}).Debug("поле не разрешено к изменению, пропущено")
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for _, k := range keys {
		v := fields[k]
		if encode != nil {
			v = encode(k, v)
		}
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", k, len(args)))
	}
	return set, args
}
