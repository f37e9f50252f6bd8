// Package pagination slices ordered, optionally searched collections into
// pages and builds the previous/next links that point between them.
//
// A page past the last one is not an error: it yields no results, a link
// back to the preceding page and no next link.
package pagination

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"recipes-api/internal/apperr"
)

const (
	PageParam   = "page"
	LimitParam  = "limit"
	SearchParam = "q"
)

type Defaults struct {
	Limit    int
	MaxLimit int
}

type Params struct {
	Page   int
	Limit  int
	Search string
}

// Offset saturates at math.MaxInt for pages too far out to address.
func (p Params) Offset() int {
	if p.Page < 1 || p.Limit < 1 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// Source is an ordered collection that can be counted and sliced under an
// optional case-insensitive search term. The order must be stable.
type Source[T any] interface {
	Count(ctx context.Context, search string) (int, error)
	Fetch(ctx context.Context, search string, limit, offset int) ([]T, error)
}

type Page[T any] struct {
	Results  []T     `json:"results"`
	Count    int     `json:"count"`
	Pages    int     `json:"pages"`
	Previous *string `json:"previous"`
	Next     *string `json:"next"`
}

// Linker returns the URL of the given page number.
type Linker func(page int) string

func ParseParams(values url.Values, defaults Defaults) (Params, error) {
	params := Params{
		Page:   1,
		Limit:  defaults.Limit,
		Search: strings.TrimSpace(values.Get(SearchParam)),
	}

	if raw := strings.TrimSpace(values.Get(PageParam)); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return Params{}, apperr.ValidationFields("invalid pagination", map[string]string{
				PageParam: "must be an integer greater than or equal to 1",
			})
		}
		params.Page = page
	}

	if raw := strings.TrimSpace(values.Get(LimitParam)); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return Params{}, apperr.ValidationFields("invalid pagination", map[string]string{
				LimitParam: "must be an integer greater than or equal to 1",
			})
		}
		params.Limit = limit
	}

	if params.Limit < 1 {
		params.Limit = 1
	}
	if defaults.MaxLimit > 0 && params.Limit > defaults.MaxLimit {
		params.Limit = defaults.MaxLimit
	}

	return params, nil
}

func Paginate[T any](ctx context.Context, src Source[T], params Params, link Linker) (Page[T], error) {
	total, err := src.Count(ctx, params.Search)
	if err != nil {
		return Page[T]{}, fmt.Errorf("count page items: %w", err)
	}

	page := Page[T]{
		Results: make([]T, 0),
		Count:   total,
		Pages:   totalPages(total, params.Limit),
	}

	if params.Page >= 1 && params.Page <= page.Pages {
		items, err := src.Fetch(ctx, params.Search, params.Limit, params.Offset())
		if err != nil {
			return Page[T]{}, fmt.Errorf("fetch page items: %w", err)
		}
		if items != nil {
			page.Results = items
		}
	}

	if link != nil {
		if params.Page > 1 {
			prev := link(params.Page - 1)
			page.Previous = &prev
		}
		if params.Page < page.Pages {
			next := link(params.Page + 1)
			page.Next = &next
		}
	}

	return page, nil
}

func totalPages(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

// RequestLinker builds absolute page links from r, keeping every query
// parameter except the page number.
func RequestLinker(r *http.Request) Linker {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); forwarded != "" {
		scheme = strings.ToLower(strings.TrimSpace(strings.Split(forwarded, ",")[0]))
	}

	base := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
	query := r.URL.Query()

	return func(page int) string {
		values := url.Values{}
		for k, v := range query {
			values[k] = append([]string(nil), v...)
		}
		values.Set(PageParam, strconv.Itoa(page))

		u := base
		u.RawQuery = values.Encode()
		return u.String()
	}
}
