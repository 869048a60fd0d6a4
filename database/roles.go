package database

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"
)

func (db *DB) GetRoles(ctx context.Context, userID int64) ([]Role, error) {
	roles, err := getRoles(ctx, db.Pool, userID)
	return roles, storageErr("get roles", err)
}

func getRoles(ctx context.Context, q querier, userID int64) ([]Role, error) {
	rows, err := q.Query(ctx, `SELECT role FROM user_roles WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

func (db *DB) HasRole(ctx context.Context, userID int64, role Role) (bool, error) {
	ok, err := hasRole(ctx, db.Pool, userID, role)
	return ok, storageErr("has role", err)
}

func hasRole(ctx context.Context, q querier, userID int64, role Role) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_roles WHERE user_id = $1 AND role = $2)`,
		userID, role).Scan(&ok)
	return ok, err
}

// SetRoles атомарно заменяет набор ролей
func (db *DB) SetRoles(ctx context.Context, userID int64, roles []Role) error {
	uniq, err := normalizeRoles(roles)
	if err != nil {
		return err
	}
	err = db.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1`, userID); err != nil {
			return err
		}
		for _, r := range uniq {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, userID, r); err != nil {
				return err
			}
		}
		return nil
	})
	return storageErr("set roles", err)
}

// AddRole идемпотентен: повторное добавление не ошибка
func (db *DB) AddRole(ctx context.Context, userID int64, role Role) (bool, error) {
	if !role.Valid() {
		return false, invalidRole(role)
	}
	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role)
	if err != nil {
		return false, storageErr("add role", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RemoveRole возвращает true, если роль действительно была
func (db *DB) RemoveRole(ctx context.Context, userID int64, role Role) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return false, storageErr("remove role", err)
	}
	return tag.RowsAffected() > 0, nil
}

func normalizeRoles(roles []Role) ([]Role, error) {
	seen := make(map[Role]bool, len(roles))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		if !r.Valid() {
			return nil, invalidRole(r)
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func invalidRole(r Role) error {
	return &ValidationError{Errors: map[string]string{"role": "неизвестная роль: " + string(r)}}
}
