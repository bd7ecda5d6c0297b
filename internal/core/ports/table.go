package ports

import (
	"context"

	"github.com/learnova/portal-service/internal/core/domain"
)

// Filter is an equality predicate on one column. Values compare as text.
type Filter struct {
	Column string
	Value  string
}

func Eq(column, value string) Filter {
	return Filter{Column: column, Value: value}
}

// Query selects rows matching every filter, ordered by OrderBy when set.
type Query struct {
	Filters    []Filter
	OrderBy    string
	Descending bool
}

func Where(filters ...Filter) Query {
	return Query{Filters: filters}
}

func (q Query) Order(column string, descending bool) Query {
	q.OrderBy = column
	q.Descending = descending
	return q
}

// Table is typed CRUD over one relation. Both the remote adapter and the local
// mirror implement it.
//
// SelectOne returns (nil, nil) when no row matches. Update returns an error
// wrapping domain.ErrNotFound when id matches nothing. Delete of a missing id
// is not an error. Any other failure is a *domain.StoreError.
type Table[T any] interface {
	Name() domain.Table
	Select(ctx context.Context, q Query) ([]T, error)
	SelectOne(ctx context.Context, filters ...Filter) (*T, error)
	Insert(ctx context.Context, rec T) (T, error)
	Update(ctx context.Context, id string, patch any) (T, error)
	Delete(ctx context.Context, id string) error
}
