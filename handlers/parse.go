package handlers

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// skipAnswer — ответ «пропустить» в необязательных шагах анкеты
const skipAnswer = "-"

var errBadNumber = errors.New("нужно целое неотрицательное число")

func isSkip(text string) bool {
	return strings.TrimSpace(text) == skipAnswer
}

// parseList разбирает значения через запятую или пробел и сверяет со списком допустимых
func parseList(text string, allowed []string) ([]string, error) {
	if isSkip(text) {
		return nil, nil
	}
	known := make(map[string]bool, len(allowed))
	for _, a := range allowed {
		known[a] = true
	}

	var out []string
	seen := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n'
	}) {
		if !known[f] {
			return nil, fmt.Errorf("неизвестное значение «%s»", f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("список пуст")
	}
	return out, nil
}

func parseInt(text string) (int, error) {
	clean := strings.Map(func(r rune) rune {
		if r == ' ' || r == '_' || r == '\u00a0' {
			return -1
		}
		return r
	}, strings.TrimSpace(text))

	n, err := strconv.Atoi(clean)
	if err != nil || n < 0 {
		return 0, errBadNumber
	}
	return n, nil
}

func parseOptionalInt(text string) (*int, error) {
	if isSkip(text) {
		return nil, nil
	}
	n, err := parseInt(text)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseRange разбирает «мин-макс»; «-» оставляет диапазон пустым
func parseRange(text string) (lo, hi *int, err error) {
	if isSkip(text) {
		return nil, nil, nil
	}
	a, b, ok := strings.Cut(strings.ReplaceAll(strings.TrimSpace(text), "–", "-"), "-")
	if !ok {
		return nil, nil, errors.New("нужен формат мин-макс")
	}
	minV, err := parseInt(a)
	if err != nil {
		return nil, nil, err
	}
	maxV, err := parseInt(b)
	if err != nil {
		return nil, nil, err
	}
	if minV > maxV {
		return nil, nil, errors.New("минимум больше максимума")
	}
	return &minV, &maxV, nil
}

// parseReviewArgs разбирает «/review <id> <1-5> [текст]»
func parseReviewArgs(text string) (bloggerID int64, rating int, comment string, err error) {
	fields := strings.Fields(text)
	if len(fields) < 3 {
		return 0, 0, "", errors.New("мало аргументов")
	}
	bloggerID, err = strconv.ParseInt(fields[1], 10, 64)
	if err != nil || bloggerID <= 0 {
		return 0, 0, "", errors.New("неверный id блогера")
	}
	rating, err = strconv.Atoi(fields[2])
	if err != nil || rating < 1 || rating > 5 {
		return 0, 0, "", errors.New("оценка должна быть от 1 до 5")
	}
	return bloggerID, rating, strings.Join(fields[3:], " "), nil
}

// command возвращает команду без аргументов и @username бота
func command(text string) (cmd string, args []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd, _, _ = strings.Cut(strings.ToLower(fields[0]), "@")
	return cmd, fields[1:]
}

// Данные inline-кнопок: "<действие>:<аргумент>"
const (
	cbRole     = "role"
	cbDelete   = "del"
	cbContact  = "contact"
	cbComplain = "complain"
	cbNext     = "next"
	cbGender   = "gender"
	cbPay      = "pay"
)

func callbackData(action string, arg any) string {
	return fmt.Sprintf("%s:%v", action, arg)
}

func parseCallback(data string) (action, arg string) {
	action, arg, _ = strings.Cut(data, ":")
	return action, arg
}

func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(arg, 10, 64)
	return id, err == nil && id >= 0
}
