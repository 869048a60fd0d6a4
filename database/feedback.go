package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ============================================
// Reviews
// ============================================

const reviewColumns = `id, blogger_id, reviewer_id, rating, comment, created_at`

func scanReview(row pgx.Row) (*Review, error) {
	var r Review
	var bloggerID *int64
	err := row.Scan(&r.ID, &bloggerID, &r.ReviewerID, &r.Rating, &r.Comment, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if bloggerID != nil {
		r.BloggerID = *bloggerID
	}
	return &r, nil
}

// CreateReview сохраняет отзыв и пересчитывает рейтинг владельца блогера.
// Возвращает nil, если блогер не найден.
func (db *DB) CreateReview(ctx context.Context, r *Review) (*Review, error) {
	if err := validateStruct(r); err != nil {
		return nil, err
	}

	var created *Review
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		var sellerID int64
		err := tx.QueryRow(ctx, `SELECT seller_id FROM bloggers WHERE id = $1 FOR UPDATE`, r.BloggerID).Scan(&sellerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if sellerID == r.ReviewerID {
			return fmt.Errorf("%w: нельзя оставить отзыв своему блогеру", ErrNotPermitted)
		}

		created, err = scanReview(tx.QueryRow(ctx, `
			INSERT INTO reviews (blogger_id, reviewer_id, rating, comment)
			VALUES ($1, $2, $3, $4)
			RETURNING `+reviewColumns,
			r.BloggerID, r.ReviewerID, r.Rating, r.Comment))
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `
			UPDATE users SET
				rating = (rating * reviews_count + $1::int) / (reviews_count + 1),
				reviews_count = reviews_count + 1
			WHERE id = $2`, r.Rating, sellerID); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `UPDATE bloggers SET has_reviews = TRUE WHERE id = $1`, r.BloggerID)
		return err
	})
	if err != nil {
		return nil, storageErr("create review", err)
	}
	return created, nil
}

func (db *DB) ListReviews(ctx context.Context, bloggerID int64) ([]Review, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE blogger_id = $1 ORDER BY created_at DESC, id DESC`, bloggerID)
	if err != nil {
		return nil, storageErr("list reviews", err)
	}
	defer rows.Close()

	var out []Review
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, storageErr("scan review", err)
		}
		out = append(out, *r)
	}
	return out, storageErr("list reviews", rows.Err())
}

// ============================================
// Contacts
// ============================================

const contactColumns = `id, buyer_id, seller_id, blogger_id, created_at`

func scanContact(row pgx.Row) (*Contact, error) {
	var c Contact
	err := row.Scan(&c.ID, &c.BuyerID, &c.SellerID, &c.BloggerID, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateContact фиксирует знакомство покупателя с продавцом блогера.
// Возвращает nil, если блогер не найден.
func (db *DB) CreateContact(ctx context.Context, buyerID, bloggerID int64) (*Contact, error) {
	c, err := scanContact(db.Pool.QueryRow(ctx, `
		INSERT INTO contacts (buyer_id, seller_id, blogger_id)
		SELECT $1, b.seller_id, b.id FROM bloggers b WHERE b.id = $2
		RETURNING `+contactColumns, buyerID, bloggerID))
	return c, storageErr("create contact", err)
}

func (db *DB) ListContacts(ctx context.Context, buyerID int64) ([]Contact, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE buyer_id = $1 ORDER BY created_at DESC, id DESC`, buyerID)
	if err != nil {
		return nil, storageErr("list contacts", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, storageErr("scan contact", err)
		}
		out = append(out, *c)
	}
	return out, storageErr("list contacts", rows.Err())
}

// ============================================
// Complaints
// ============================================

const complaintColumns = `id, blogger_id, user_id, reason, status, penalty_amount, created_at`

func scanComplaint(row pgx.Row) (*Complaint, error) {
	var c Complaint
	err := row.Scan(&c.ID, &c.BloggerID, &c.UserID, &c.Reason, &c.Status, &c.PenaltyAmount, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// FileComplaint — жалоба покупателя на блогера. penalty > 0 штрафует владельца
// блогера в той же транзакции, если покупатель ранее запрашивал контакт этого
// блогера; иначе жалоба сохраняется без штрафа. Возвращает nil, если блогер не найден.
func (db *DB) FileComplaint(ctx context.Context, bloggerID, userID int64, reason string, penalty int) (*Complaint, error) {
	if penalty < 0 {
		return nil, &ValidationError{Errors: map[string]string{"penalty": "не может быть отрицательным"}}
	}
	if err := validateStruct(&Complaint{Reason: reason}); err != nil {
		return nil, err
	}

	var created *Complaint
	err := db.inTx(ctx, func(tx pgx.Tx) error {
		ok, err := hasRole(ctx, tx, userID, RoleBuyer)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: жалобы принимаются только от покупателей", ErrNotPermitted)
		}

		var sellerID int64
		err = tx.QueryRow(ctx, `SELECT seller_id FROM bloggers WHERE id = $1`, bloggerID).Scan(&sellerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}

		// Штрафовать продавца можно только по жалобе покупателя, получившего его контакт
		charge := penalty
		if charge > 0 {
			var contacted bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM contacts WHERE buyer_id = $1 AND blogger_id = $2)`,
				userID, bloggerID).Scan(&contacted); err != nil {
				return err
			}
			if !contacted {
				charge = 0
			}
		}

		status := ComplaintNew
		if charge > 0 {
			status = ComplaintPenalty
		}
		created, err = scanComplaint(tx.QueryRow(ctx, `
			INSERT INTO complaints (blogger_id, user_id, reason, status, penalty_amount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+complaintColumns,
			bloggerID, userID, reason, status, charge))
		if err != nil {
			return err
		}

		if charge > 0 {
			_, err = applyPenalty(ctx, tx, sellerID, charge)
		}
		return err
	})
	if err != nil {
		return nil, storageErr("file complaint", err)
	}
	return created, nil
}

func (db *DB) ListComplaints(ctx context.Context, bloggerID int64) ([]Complaint, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+complaintColumns+` FROM complaints WHERE blogger_id = $1 ORDER BY created_at DESC, id DESC`, bloggerID)
	if err != nil {
		return nil, storageErr("list complaints", err)
	}
	defer rows.Close()

	var out []Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, storageErr("scan complaint", err)
		}
		out = append(out, *c)
	}
	return out, storageErr("list complaints", rows.Err())
}
