package database

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(bloggerReachRule, Blogger{})
	v.RegisterStructValidation(searchCriteriaRule, SearchCriteria{})
	return v
}

// bloggerReachRule: min <= max, если заданы обе границы
func bloggerReachRule(sl validator.StructLevel) {
	b := sl.Current().Interface().(Blogger)
	for _, r := range b.reachRanges() {
		if r.min != nil && r.max != nil && *r.min > *r.max {
			sl.ReportError(r.max, r.field, r.field, "reach_range", "")
		}
	}
}

func searchCriteriaRule(sl validator.StructLevel) {
	c := sl.Current().Interface().(SearchCriteria)
	if c.AgeMin != nil && c.AgeMax != nil && *c.AgeMin > *c.AgeMax {
		sl.ReportError(c.AgeMax, "AgeMax", "AgeMax", "range", "")
	}
	if c.BudgetMin != nil && c.BudgetMax != nil && *c.BudgetMin > *c.BudgetMax {
		sl.ReportError(c.BudgetMax, "BudgetMax", "BudgetMax", "range", "")
	}
}

type reachRange struct {
	field    string
	min, max *int
}

func (b Blogger) reachRanges() []reachRange {
	return []reachRange{
		{"StoriesReachMax", b.StoriesReachMin, b.StoriesReachMax},
		{"PostReachMax", b.PostReachMin, b.PostReachMax},
		{"VideoReachMax", b.VideoReachMin, b.VideoReachMax},
		{"ReelsReachMax", b.ReelsReachMin, b.ReelsReachMax},
	}
}

// ValidateBlogger проверяет карточку блогера до записи
func ValidateBlogger(b *Blogger) error {
	return validateStruct(b)
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}

	out := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field()] = errorMessage(fe)
	}
	return &ValidationError{Errors: out}
}

func errorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "обязательное поле"
	case "reach_range":
		return "минимальный охват больше максимального"
	case "range":
		return "нижняя граница больше верхней"
	case "gte", "min":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("не меньше %s элементов", fe.Param())
		}
		return fmt.Sprintf("не меньше %s", fe.Param())
	case "lte", "max":
		if fe.Kind() == reflect.Slice || fe.Kind() == reflect.String {
			return fmt.Sprintf("не больше %s элементов", fe.Param())
		}
		return fmt.Sprintf("не больше %s", fe.Param())
	case "oneof":
		return "допустимо: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "некорректная ссылка"
	}
	return fmt.Sprintf("некорректное значение (%s)", fe.Tag())
}
