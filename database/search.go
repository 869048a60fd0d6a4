package database

import (
	"context"
	"fmt"
	"math"
	"strings"
)

const defaultPageSize = 10

type SearchCriteria struct {
	Platforms  []string `validate:"omitempty,dive,required"`
	Categories []string `validate:"omitempty,dive,required"`
	AgeMin     *int     `validate:"omitempty,gte=0,lte=120"`
	AgeMax     *int     `validate:"omitempty,gte=0,lte=120"`
	Gender     Gender   `validate:"omitempty,oneof=any female male"`
	BudgetMin  *int     `validate:"omitempty,gte=0"`
	BudgetMax  *int     `validate:"omitempty,gte=0"`
	HasReviews *bool

	Limit  int `validate:"gte=0,lte=100"`
	Offset int `validate:"gte=0"`
}

type SearchPage struct {
	Items   []BloggerWithOwner
	Offset  int
	HasMore bool
}

func (p SearchPage) NextOffset() int {
	return p.Offset + len(p.Items)
}

// predicate — условие с плейсхолдерами "?" и его параметры
type predicate struct {
	sql  string
	args []any
}

type ageBand struct {
	column string
	lo, hi int
}

var ageBands = []ageBand{
	{"audience_13_17_percent", 13, 17},
	{"audience_18_24_percent", 18, 24},
	{"audience_25_35_percent", 25, 35},
	{"audience_35_plus_percent", 35, math.MaxInt32},
}

var budgetColumns = []string{"price_stories", "price_post", "price_video"}

// predicates строит упорядоченный список условий; отсутствующий критерий не ограничивает выборку
func (c SearchCriteria) predicates() []predicate {
	var out []predicate

	if p, ok := anyListContains("b.platforms", c.Platforms); ok {
		out = append(out, p)
	}
	if p, ok := anyListContains("b.categories", c.Categories); ok {
		out = append(out, p)
	}
	if c.AgeMin != nil || c.AgeMax != nil {
		out = append(out, ageRangePredicate(c.AgeMin, c.AgeMax))
	}

	switch c.Gender {
	case GenderFemale:
		out = append(out, predicate{sql: "b.female_percent > b.male_percent"})
	case GenderMale:
		out = append(out, predicate{sql: "b.male_percent > b.female_percent"})
	}

	// Границы бюджета проверяются независимо: минимум может выполниться
	// одним форматом, максимум другим. Поведение сохранено намеренно.
	if c.BudgetMin != nil {
		out = append(out, anyColumn(budgetColumns, ">=", *c.BudgetMin))
	}
	if c.BudgetMax != nil {
		out = append(out, anyColumn(budgetColumns, "<=", *c.BudgetMax))
	}

	if c.HasReviews != nil {
		out = append(out, predicate{sql: "b.has_reviews = ?", args: []any{*c.HasReviews}})
	}
	return out
}

func anyListContains(column string, values []string) (predicate, bool) {
	var conds []string
	var args []any
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		conds = append(conds, column+" LIKE ?")
		args = append(args, "%"+escapeLike(jsonToken(v))+"%")
	}
	if len(conds) == 0 {
		return predicate{}, false
	}
	return predicate{sql: "(" + strings.Join(conds, " OR ") + ")", args: args}, true
}

func ageRangePredicate(minAge, maxAge *int) predicate {
	lo, hi := 0, math.MaxInt32
	if minAge != nil {
		lo = *minAge
	}
	if maxAge != nil {
		hi = *maxAge
	}

	var conds []string
	for _, band := range ageBands {
		if band.lo <= hi && band.hi >= lo {
			conds = append(conds, "COALESCE(b."+band.column+", 0) > 0")
		}
	}
	if len(conds) == 0 {
		return predicate{sql: "FALSE"}
	}
	return predicate{sql: "(" + strings.Join(conds, " OR ") + ")"}
}

func anyColumn(columns []string, op string, value int) predicate {
	conds := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, c := range columns {
		conds[i] = fmt.Sprintf("b.%s %s ?", c, op)
		args[i] = value
	}
	return predicate{sql: "(" + strings.Join(conds, " OR ") + ")", args: args}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// buildSearchQuery сворачивает условия в один параметризованный запрос.
// Значения пользователя попадают только в args.
func buildSearchQuery(c SearchCriteria) (string, []any) {
	var (
		where []string
		args  []any
	)
	for _, p := range c.predicates() {
		sql := p.sql
		for _, a := range p.args {
			args = append(args, a)
			sql = strings.Replace(sql, "?", fmt.Sprintf("$%d", len(args)), 1)
		}
		where = append(where, sql)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(bloggerColumns("b."))
	sb.WriteString(", ")
	sb.WriteString(prefixed(userColumnList, "u."))
	sb.WriteString("\nFROM bloggers b\nJOIN users u ON u.id = b.seller_id")
	if len(where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(where, "\n  AND "))
	}
	sb.WriteString("\nORDER BY u.rating DESC, b.subscribers_count DESC, b.id ASC")

	limit := c.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	// +1 строка, чтобы понять, есть ли следующая страница
	args = append(args, limit+1, c.Offset)
	fmt.Fprintf(&sb, "\nLIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return sb.String(), args
}

// Search возвращает страницу блогеров с владельцами, отсортированную по рейтингу владельца
// и числу подписчиков
func (db *DB) Search(ctx context.Context, c SearchCriteria) (*SearchPage, error) {
	if err := validateStruct(c); err != nil {
		return nil, err
	}
	query, args := buildSearchQuery(c)

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, storageErr("search", err)
	}
	defer rows.Close()

	limit := c.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	page := &SearchPage{Offset: c.Offset}
	for rows.Next() {
		var item BloggerWithOwner
		targets, finish := bloggerTargets(&item.Blogger)
		targets = append(targets, userTargets(&item.Owner)...)
		if err := rows.Scan(targets...); err != nil {
			return nil, storageErr("scan search row", err)
		}
		finish()
		page.Items = append(page.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("search", err)
	}

	if len(page.Items) > limit {
		page.Items = page.Items[:limit]
		page.HasMore = true
	}
	return page, nil
}
