package database

import (
	"context"
)

const searchFilterColumns = `id, user_id, platforms, categories, age_min, age_max,
	gender, budget_min, budget_max, has_reviews, created_at`

// SaveSearchFilter сохраняет критерии поиска в историю. На сам поиск не влияет.
func (db *DB) SaveSearchFilter(ctx context.Context, userID int64, c SearchCriteria) (*SearchFilter, error) {
	gender := c.Gender
	if gender == "" {
		gender = GenderAny
	}

	var f SearchFilter
	var platforms, categories *string
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO search_filters (user_id, platforms, categories, age_min, age_max, gender, budget_min, budget_max, has_reviews)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+searchFilterColumns,
		userID, encodeList(c.Platforms), encodeList(c.Categories), c.AgeMin, c.AgeMax,
		gender, c.BudgetMin, c.BudgetMax, c.HasReviews,
	).Scan(
		&f.ID, &f.UserID, &platforms, &categories, &f.AgeMin, &f.AgeMax,
		&f.Gender, &f.BudgetMin, &f.BudgetMax, &f.HasReviews, &f.CreatedAt,
	)
	if err != nil {
		return nil, storageErr("save search filter", err)
	}
	f.Platforms = decodeList(platforms, "search_filters", "platforms", f.ID)
	f.Categories = decodeList(categories, "search_filters", "categories", f.ID)
	return &f, nil
}

// ListSearchFilters — последние фильтры пользователя, новые первыми
func (db *DB) ListSearchFilters(ctx context.Context, userID int64, limit int) ([]SearchFilter, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Pool.Query(ctx, `
		SELECT `+searchFilterColumns+`
		FROM search_filters
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, storageErr("list search filters", err)
	}
	defer rows.Close()

	var out []SearchFilter
	for rows.Next() {
		var f SearchFilter
		var platforms, categories *string
		if err := rows.Scan(
			&f.ID, &f.UserID, &platforms, &categories, &f.AgeMin, &f.AgeMax,
			&f.Gender, &f.BudgetMin, &f.BudgetMax, &f.HasReviews, &f.CreatedAt,
		); err != nil {
			return nil, storageErr("scan search filter", err)
		}
		f.Platforms = decodeList(platforms, "search_filters", "platforms", f.ID)
		f.Categories = decodeList(categories, "search_filters", "categories", f.ID)
		out = append(out, f)
	}
	return out, storageErr("list search filters", rows.Err())
}

// SearchCriteria восстанавливает критерии из сохранённого фильтра
func (f *SearchFilter) SearchCriteria() SearchCriteria {
	return SearchCriteria{
		Platforms:  f.Platforms,
		Categories: f.Categories,
		AgeMin:     f.AgeMin,
		AgeMax:     f.AgeMax,
		Gender:     f.Gender,
		BudgetMin:  f.BudgetMin,
		BudgetMax:  f.BudgetMax,
		HasReviews: f.HasReviews,
	}
}
