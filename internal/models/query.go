// Package models содержит доменные сущности блога/форума.
// Эти типы используются слоями представлений, бизнес-логики, хранилища и транспорта.
package models

import (
	"strconv"
	"strings"
)

// SortOrder — направление сортировки.
type SortOrder int8

const (
	SortDesc SortOrder = -1
	SortAsc  SortOrder = 1
)

// SortField — одно поле сортировки.
type SortField struct {
	Field string    `json:"field"`
	Order SortOrder `json:"order"`
}

// FieldCreatedAt — поле времени создания во всех живых выборках.
const FieldCreatedAt = "createdAt"

// QueryOptions — параметры одной страницы живой выборки.
// Инварианты:
//   - Skip = (page-1)*Limit;
//   - Sort всегда createdAt DESC;
//   - SearchText по умолчанию "".
type QueryOptions struct {
	Limit      int         `json:"limit"`
	Skip       int         `json:"skip"`
	Sort       []SortField `json:"sort"`
	SearchText string      `json:"searchText"`
}

// Page восстанавливает номер страницы (с 1) из Skip/Limit.
func (o QueryOptions) Page() int {
	if o.Limit <= 0 {
		return 1
	}

	return o.Skip/o.Limit + 1
}

// Key — каноничное строковое представление опций для ключа области кэша.
func (o QueryOptions) Key() string {
	var b strings.Builder
	b.WriteString("l=")
	b.WriteString(strconv.Itoa(o.Limit))
	b.WriteString(";s=")
	b.WriteString(strconv.Itoa(o.Skip))

	for _, f := range o.Sort {
		b.WriteString(";o=")
		b.WriteString(f.Field)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(f.Order)))
	}

	b.WriteString(";q=")
	b.WriteString(strconv.Quote(o.SearchText))

	return b.String()
}
