package repository

import (
	"context"

	"github.com/lightningshop/jobtrack/pkg/db/option"
	"gorm.io/gorm"
)

type gormStore[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &gormStore[T]{db: db}
}

func (s *gormStore[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	rows := make([]*T, 0)
	if err := s.where(ctx, query, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindOne uses Limit+Find so a miss is not logged as a gorm error.
func (s *gormStore[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var row T
	res := s.where(ctx, query, opts).Limit(1).Find(&row)
	switch {
	case res.Error != nil:
		return nil, res.Error
	case res.RowsAffected == 0:
		return nil, nil
	default:
		return &row, nil
	}
}

// Create and Save write every column so false and 0 are not replaced by
// column defaults.
func (s *gormStore[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Select("*").Create(resource).Error
}

func (s *gormStore[T]) Save(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Select("*").Save(resource).Error
}

func (s *gormStore[T]) Delete(ctx context.Context, resourceID any) error {
	return s.db.WithContext(ctx).Delete(new(T), "id = ?", resourceID).Error
}

func (s *gormStore[T]) where(ctx context.Context, query *T, opts []option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Model(new(T))
	if query != nil {
		stmt = stmt.Where(query)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
