package database

import (
	"encoding/json"

	"blogger_bot/logger"
)

// encodeList сериализует многозначное поле в JSON-текст
func encodeList(values []string) string {
	if len(values) == 0 {
		return "[]"
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "[]"
	}
	return string(b)
}

// decodeList никогда не возвращает ошибку: битое значение логируется
// и превращается в пустой список.
func decodeList(raw *string, table, column string, id int64) []string {
	if raw == nil || *raw == "" {
		return []string{}
	}
	var values []string
	if err := json.Unmarshal([]byte(*raw), &values); err != nil {
		logger.WithFields(logger.Fields{
			"table":  table,
			"column": column,
			"id":     id,
		}).WithError(err).Warn("не удалось разобрать JSON-поле, используется пустой список")
		return []string{}
	}
	if values == nil {
		return []string{}
	}
	return values
}

// jsonToken — значение в том виде, в котором оно лежит внутри JSON-массива
func jsonToken(value string) string {
	b, _ := json.Marshal(value)
	return string(b)
}
