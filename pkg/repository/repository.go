// Package repository is a small generic gorm store for rows that need no
// hand-written SQL.
package repository

import (
	"context"

	"github.com/lightningshop/jobtrack/pkg/db/option"
)

// Repository reads and writes one model type. Query structs match on their
// non-zero fields. FindOne returns nil, nil when nothing matches.
type Repository[T any] interface {
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Save(ctx context.Context, resource *T) error
	Delete(ctx context.Context, resourceID any) error
}
