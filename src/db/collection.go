package db

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"natours/src/query"
)

// Collection is the set of data operations the generic resource handlers
// need. Missing records are reported as gorm.ErrRecordNotFound.
type Collection[T any] interface {
	Find(ctx context.Context, spec query.Spec) ([]T, error)
	FindByID(ctx context.Context, id uint, populate ...string) (*T, error)
	Create(ctx context.Context, doc *T) error
	// FindByIDAndUpdate loads the document, lets update modify it and saves
	// the result. An error returned by update aborts the write.
	FindByIDAndUpdate(ctx context.Context, id uint, update func(doc *T) error) (*T, error)
	FindByIDAndDelete(ctx context.Context, id uint) (*T, error)
}

type versioned interface {
	IncrementVersion()
}

// GormCollection implements Collection over one model table. Scopes are
// applied to every read.
type GormCollection[T any] struct {
	db     *gorm.DB
	scopes []func(*gorm.DB) *gorm.DB
}

func NewCollection[T any](db *gorm.DB, scopes ...func(*gorm.DB) *gorm.DB) *GormCollection[T] {
	return &GormCollection[T]{db: db, scopes: scopes}
}

// DB returns a session bound to ctx with the collection scopes applied.
func (c *GormCollection[T]) DB(ctx context.Context) *gorm.DB {
	return c.db.WithContext(ctx).Model(new(T)).Scopes(c.scopes...)
}

func (c *GormCollection[T]) Find(ctx context.Context, spec query.Spec) ([]T, error) {
	tx, err := query.Apply(c.DB(ctx), spec)
	if err != nil {
		return nil, err
	}
	docs := []T{}
	if err := tx.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (c *GormCollection[T]) FindByID(ctx context.Context, id uint, populate ...string) (*T, error) {
	tx := c.DB(ctx)
	for _, p := range populate {
		tx = tx.Preload(p)
	}
	var doc T
	if err := tx.First(&doc, id).Error; err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *GormCollection[T]) Create(ctx context.Context, doc *T) error {
	return c.db.WithContext(ctx).Omit(clause.Associations).Create(doc).Error
}

func (c *GormCollection[T]) FindByIDAndUpdate(ctx context.Context, id uint, update func(doc *T) error) (*T, error) {
	var doc T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(new(T)).Scopes(c.scopes...).First(&doc, id).Error; err != nil {
			return err
		}
		if err := update(&doc); err != nil {
			return err
		}
		return save(tx, &doc)
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (c *GormCollection[T]) FindByIDAndDelete(ctx context.Context, id uint) (*T, error) {
	var doc T
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(new(T)).Scopes(c.scopes...).First(&doc, id).Error; err != nil {
			return err
		}
		return tx.Delete(&doc).Error
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save writes every column of doc and bumps its version.
func (c *GormCollection[T]) Save(ctx context.Context, doc *T) error {
	return save(c.db.WithContext(ctx), doc)
}

func save[T any](tx *gorm.DB, doc *T) error {
	if v, ok := any(doc).(versioned); ok {
		v.IncrementVersion()
	}
	return tx.Omit(clause.Associations).Save(doc).Error
}
