package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pkg *Package) error
	Update(ctx context.Context, db *gorm.DB, pkg *Package) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Package, error)
	List(ctx context.Context, db *gorm.DB, filter ListPackageFilter, page pagination.Pagination) ([]*Package, error)
}
