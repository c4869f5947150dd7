// Package middleware содержит телеграм-middleware: ограничение частоты и ACL
// для операторских команд
package middleware

import (
	"strconv"
	"strings"
)

// ACL проверяет принадлежность пользователя к списку операторов.
// Операторские команды (например /clients) доступны только им.
type ACL struct{ allowed map[int64]struct{} }

// NewACL создаёт ACL по списку Telegram user IDs
func NewACL(ids []int64) *ACL {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &ACL{allowed: m}
}

// IsAllowed сообщает, входит ли пользователь в список
func (a *ACL) IsAllowed(id int64) bool { _, ok := a.allowed[id]; return ok }

// ParseIDs парсит список ID из строки (разделители: запятая/переносы),
// некорректные элементы пропускаются
func ParseIDs(s string) []int64 {
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' || r == '\t' })
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}
