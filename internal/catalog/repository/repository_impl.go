package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wecloud/backoffice/internal/catalog/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pkg *domain.Package) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO packages (id, name, speed, monthly_price, currency, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pkg.ID,
		pkg.Name,
		pkg.Speed,
		pkg.MonthlyPrice,
		pkg.Currency,
		pkg.Active,
		pkg.CreatedAt,
		pkg.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, pkg *domain.Package) error {
	return db.WithContext(ctx).Exec(
		`UPDATE packages
		 SET name = ?, speed = ?, monthly_price = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		pkg.Name,
		pkg.Speed,
		pkg.MonthlyPrice,
		pkg.Active,
		pkg.UpdatedAt,
		pkg.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	stmt := db.WithContext(ctx).Exec(`DELETE FROM packages WHERE id = ?`, id)
	return stmt.RowsAffected, stmt.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Package, error) {
	var pkg domain.Package
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, speed, monthly_price, currency, active, created_at, updated_at
		 FROM packages WHERE id = ?`,
		id,
	).Scan(&pkg).Error
	if err != nil {
		return nil, err
	}
	if pkg.ID == 0 {
		return nil, nil
	}
	return &pkg, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPackageFilter, page pagination.Pagination) ([]*domain.Package, error) {
	var packages []*domain.Package
	stmt := db.WithContext(ctx).Model(&domain.Package{})
	if filter.Name != "" {
		stmt = stmt.Where("name = ?", filter.Name)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if page.PageToken != "" {
		cursor, err := pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, err
		}
		createdAt, err := time.Parse(time.RFC3339, cursor.CreatedAt)
		if err != nil {
			return nil, err
		}
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)", createdAt, createdAt, cursor.ID)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(page.PageSize + 1).
		Find(&packages).Error
	if err != nil {
		return nil, err
	}
	return packages, nil
}
