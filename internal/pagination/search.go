package pagination

import (
	"context"
	"strings"
)

// ContainsFold reports whether any field contains search, ignoring case.
// An empty search matches everything.
func ContainsFold(search string, fields ...string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// ILikePattern turns search into a substring pattern for ILIKE with '\' as
// the escape character.
func ILikePattern(search string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(search) + "%"
}

// SliceSource paginates an already ordered in-memory slice.
type SliceSource[T any] struct {
	Items []T
	Match func(item T, search string) bool
}

func (s SliceSource[T]) filter(search string) []T {
	if search == "" || s.Match == nil {
		return s.Items
	}
	out := make([]T, 0, len(s.Items))
	for _, item := range s.Items {
		if s.Match(item, search) {
			out = append(out, item)
		}
	}
	return out
}

func (s SliceSource[T]) Count(_ context.Context, search string) (int, error) {
	return len(s.filter(search)), nil
}

func (s SliceSource[T]) Fetch(_ context.Context, search string, limit, offset int) ([]T, error) {
	items := s.filter(search)
	if offset < 0 || offset >= len(items) {
		return []T{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}
