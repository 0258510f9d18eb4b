package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscriber *Subscriber) error
	Update(ctx context.Context, db *gorm.DB, subscriber *Subscriber) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscriber, error)
	List(ctx context.Context, db *gorm.DB, filter ListSubscriberFilter, page pagination.Pagination) ([]*Subscriber, error)
}
