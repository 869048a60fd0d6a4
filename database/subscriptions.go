package database

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
)

const subscriptionColumns = `id, user_id, start_date, end_date, amount, status,
	payment_id, auto_renewal, cancelled_at, created_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.StartDate, &s.EndDate, &s.Amount, &s.Status,
		&s.PaymentID, &s.AutoRenewal, &s.CancelledAt, &s.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// syncUserCache — кэш в users всегда отражает последнюю изменённую запись журнала.
// Вызывается в той же транзакции, что и изменение журнала.
func syncUserCache(ctx context.Context, tx pgx.Tx, userID int64, status SubscriptionStatus, start *time.Time, end *time.Time) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET
			subscription_status = $1,
			subscription_start_date = COALESCE($2, subscription_start_date),
			subscription_end_date = COALESCE($3, subscription_end_date)
		WHERE id = $4`,
		status, start, end, userID)
	return err
}

// Activate добавляет запись журнала после подтверждённой оплаты.
// Повторное подтверждение с тем же paymentRef возвращает существующую запись.
func (db *DB) Activate(ctx context.Context, userID int64, window time.Duration, amount int, paymentRef string) (*Subscription, error) {
	if window <= 0 {
		return nil, &ValidationError{Errors: map[string]string{"window": "должно быть больше нуля"}}
	}
	if amount < 0 {
		return nil, &ValidationError{Errors: map[string]string{"amount": "не может быть отрицательной"}}
	}

	now := db.Now()
	end := now.Add(window)
	ref := nullIfEmpty(paymentRef)

	var sub *Subscription
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if ref != nil {
			existing, err := scanSubscription(tx.QueryRow(ctx,
				`SELECT `+subscriptionColumns+` FROM subscriptions WHERE payment_id = $1`, *ref))
			if err != nil {
				return err
			}
			if existing != nil {
				sub = existing
				return nil
			}
		}

		// Продление закрывает предыдущее окно, чтобы в журнале было одно действующее
		if _, err := tx.Exec(ctx, `
			UPDATE subscriptions
			SET status = $1, auto_renewal = FALSE, end_date = LEAST(end_date, $2)
			WHERE user_id = $3 AND status IN ('active', 'auto_renewal_off')`,
			StatusExpired, now, userID); err != nil {
			return err
		}

		var err error
		sub, err = scanSubscription(tx.QueryRow(ctx, `
			INSERT INTO subscriptions (user_id, start_date, end_date, amount, status, payment_id, auto_renewal)
			VALUES ($1, $2, $3, $4, $5, $6, TRUE)
			RETURNING `+subscriptionColumns,
			userID, now, end, amount, StatusActive, ref))
		if err != nil {
			return err
		}
		return syncUserCache(ctx, tx, userID, StatusActive, &now, &end)
	})
	if err != nil {
		return nil, storageErr("activate subscription", err)
	}
	return sub, nil
}

// currentSubscription — последняя действующая (active / auto_renewal_off) запись
// с неистёкшим сроком, под блокировкой
func currentSubscription(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) (*Subscription, error) {
	return scanSubscription(tx.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1 AND status IN ('active', 'auto_renewal_off') AND end_date > $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
		FOR UPDATE`, userID, now))
}

// expirePastDue переводит в expired записи журнала с прошедшим сроком и кэш в users.
// Записи, отменённые немедленно (end_date = cancelled_at), остаются cancelled.
func expirePastDue(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) error {
	if _, err := tx.Exec(ctx, `
		UPDATE users SET subscription_status = $1
		WHERE id = $2
		  AND subscription_status IN ('active', 'auto_renewal_off', 'cancelled')
		  AND subscription_end_date <= $3`,
		StatusExpired, userID, now); err != nil {
		return err
	}
	_, err := tx.Exec(ctx, `
		UPDATE subscriptions SET status = $1, auto_renewal = FALSE
		WHERE user_id = $2 AND end_date <= $3
		  AND (status IN ('active', 'auto_renewal_off')
		       OR (status = 'cancelled' AND cancelled_at < end_date))`,
		StatusExpired, userID, now)
	return err
}

// ToggleAutoRenewal включает/выключает автопродление. Если журнал пуст, а в users
// есть подписка (данные до появления журнала), запись журнала восстанавливается из кэша.
// Возвращает false, если переключать нечего.
func (db *DB) ToggleAutoRenewal(ctx context.Context, userID int64, enable bool) (bool, error) {
	now := db.Now()
	var toggled bool
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if err := expirePastDue(ctx, tx, userID, now); err != nil {
			return err
		}
		sub, err := currentSubscription(ctx, tx, userID, now)
		if err != nil {
			return err
		}
		if sub == nil {
			sub, err = synthesizeFromCache(ctx, tx, userID, now)
			if err != nil || sub == nil {
				return err
			}
		}

		status := StatusAutoRenewalOff
		if enable {
			status = StatusActive
		}
		if _, err := tx.Exec(ctx,
			`UPDATE subscriptions SET auto_renewal = $1, status = $2 WHERE id = $3`,
			enable, status, sub.ID); err != nil {
			return err
		}
		toggled = true
		return syncUserCache(ctx, tx, userID, status, nil, &sub.EndDate)
	})
	if err != nil {
		return false, storageErr("toggle auto renewal", err)
	}
	return toggled, nil
}

func synthesizeFromCache(ctx context.Context, tx pgx.Tx, userID int64, now time.Time) (*Subscription, error) {
	var count int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM subscriptions WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, nil
	}

	u, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
	if err != nil || u == nil {
		return nil, err
	}
	if !legacySubscription(u, now) {
		return nil, nil
	}

	start := now
	if u.SubscriptionStartDate != nil {
		start = *u.SubscriptionStartDate
	}
	status := u.SubscriptionStatus
	if status != StatusAutoRenewalOff {
		status = StatusActive
	}
	return scanSubscription(tx.QueryRow(ctx, `
		INSERT INTO subscriptions (user_id, start_date, end_date, amount, status, auto_renewal)
		VALUES ($1, $2, $3, 0, $4, $5)
		RETURNING `+subscriptionColumns,
		userID, start, *u.SubscriptionEndDate, status, status == StatusActive))
}

// legacySubscription — кэш указывает на действующую подписку без записи в журнале
func legacySubscription(u *User, now time.Time) bool {
	return (u.SubscriptionStatus == StatusActive || u.SubscriptionStatus == StatusAutoRenewalOff) &&
		u.SubscriptionEndDate != nil && u.SubscriptionEndDate.After(now)
}

// Cancel отменяет подписку. При immediate доступ прекращается сейчас,
// иначе подписка работает до конца периода, но не продлевается.
func (db *DB) Cancel(ctx context.Context, userID int64, immediate bool) (bool, error) {
	now := db.Now()
	var cancelled bool
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		if err := expirePastDue(ctx, tx, userID, now); err != nil {
			return err
		}
		sub, err := currentSubscription(ctx, tx, userID, now)
		if err != nil || sub == nil {
			return err
		}

		end, cacheStatus := sub.EndDate, StatusCancelled
		if immediate {
			end, cacheStatus = now, StatusInactive
		}
		if _, err := tx.Exec(ctx, `
			UPDATE subscriptions
			SET status = $1, auto_renewal = FALSE, cancelled_at = $2, end_date = $3
			WHERE id = $4`,
			StatusCancelled, now, end, sub.ID); err != nil {
			return err
		}
		cancelled = true
		return syncUserCache(ctx, tx, userID, cacheStatus, nil, &end)
	})
	if err != nil {
		return false, storageErr("cancel subscription", err)
	}
	return cancelled, nil
}

// History — записи журнала, новые первыми
func (db *DB) History(ctx context.Context, userID int64, limit int) ([]Subscription, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, storageErr("subscription history", err)
	}
	defer rows.Close()

	var out []Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, storageErr("scan subscription", err)
		}
		out = append(out, *s)
	}
	return out, storageErr("subscription history", rows.Err())
}

// RefreshSubscription переводит истёкшую подписку в expired вместе с кэшем
// и возвращает актуального пользователя. Вызывается на пути запроса.
func (db *DB) RefreshSubscription(ctx context.Context, userID int64) (*User, error) {
	now := db.Now()
	var u *User
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		u, err = scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, userID))
		if err != nil || u == nil {
			return err
		}
		if !u.SubscriptionStatus.Usable() || u.SubscriptionEndDate == nil || u.SubscriptionEndDate.After(now) {
			return nil
		}

		if err := expirePastDue(ctx, tx, userID, now); err != nil {
			return err
		}
		u.SubscriptionStatus = StatusExpired
		return nil
	})
	if err != nil {
		return nil, storageErr("refresh subscription", err)
	}
	return u, nil
}
