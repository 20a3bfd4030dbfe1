package storage

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/akashipov/userdirectory/internal/storage/user"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// Store is implemented by every backend. Implementations report
// customerrors.ErrInvalidID, ErrNotFound and ErrDuplicateEmail.
type Store interface {
	List(ctx context.Context, q ListQuery) ([]user.User, int64, error)
	GetByID(ctx context.Context, id string) (*user.User, error)
	// Create assigns ID and timestamps to u.
	Create(ctx context.Context, u *user.User) error
	// Update replaces the mutable fields and returns the stored record.
	Update(ctx context.Context, id string, u *user.User) (*user.User, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// ListQuery is a page window plus an optional substring filter over
// name, email and company.
type ListQuery struct {
	Page   int
	Limit  int
	Search string
}

// ParseListQuery reads raw query values, falling back to defaults for
// anything missing, non-numeric or non-positive.
func ParseListQuery(page, limit, search string) ListQuery {
	q := ListQuery{
		Page:   parsePositive(page, DefaultPage),
		Limit:  parsePositive(limit, DefaultLimit),
		Search: strings.TrimSpace(search),
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func parsePositive(s string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || v < 1 {
		return def
	}
	return v
}

// Skip is the number of matches before the page. It saturates at
// math.MaxInt for pages beyond anything addressable.
func (q ListQuery) Skip() int {
	if q.Page < 1 || q.Limit < 1 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

type Page struct {
	Users       []user.User `json:"users"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"limit"`
	Total       int64       `json:"total"`
}

func NewPage(users []user.User, total int64, q ListQuery) Page {
	if users == nil {
		users = []user.User{}
	}
	pages := 0
	if q.Limit > 0 {
		pages = int((total + int64(q.Limit) - 1) / int64(q.Limit))
	}
	return Page{
		Users:       users,
		TotalPages:  pages,
		CurrentPage: q.Page,
		Limit:       q.Limit,
		Total:       total,
	}
}
