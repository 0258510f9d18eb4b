package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wecloud/backoffice/internal/subscriber/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, subscriber *domain.Subscriber) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscribers (id, name, phone, address, region, package_id, active, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		subscriber.ID,
		subscriber.Name,
		subscriber.Phone,
		subscriber.Address,
		subscriber.Region,
		subscriber.PackageID,
		subscriber.Active,
		subscriber.Metadata,
		subscriber.CreatedAt,
		subscriber.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, subscriber *domain.Subscriber) error {
	return db.WithContext(ctx).Exec(
		`UPDATE subscribers
		 SET name = ?, phone = ?, address = ?, region = ?, package_id = ?, active = ?, updated_at = ?
		 WHERE id = ?`,
		subscriber.Name,
		subscriber.Phone,
		subscriber.Address,
		subscriber.Region,
		subscriber.PackageID,
		subscriber.Active,
		subscriber.UpdatedAt,
		subscriber.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	stmt := db.WithContext(ctx).Exec(`DELETE FROM subscribers WHERE id = ?`, id)
	return stmt.RowsAffected, stmt.Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Subscriber, error) {
	var subscriber domain.Subscriber
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, phone, address, region, package_id, active, metadata, created_at, updated_at
		 FROM subscribers WHERE id = ?`,
		id,
	).Scan(&subscriber).Error
	if err != nil {
		return nil, err
	}
	if subscriber.ID == 0 {
		return nil, nil
	}
	return &subscriber, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListSubscriberFilter, page pagination.Pagination) ([]*domain.Subscriber, error) {
	var subscribers []*domain.Subscriber
	stmt := db.WithContext(ctx).Model(&domain.Subscriber{})
	if filter.Name != "" {
		// substring match so partial names find subscribers
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	if filter.Phone != "" {
		stmt = stmt.Where("phone = ?", filter.Phone)
	}
	if filter.Region != "" {
		stmt = stmt.Where("region = ?", filter.Region)
	}
	if filter.PackageID != "" {
		stmt = stmt.Where("package_id = ?", filter.PackageID)
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
	// one extra row signals whether another page exists
	err := stmt.
		Order("created_at desc, id desc").
		Limit(page.PageSize + 1).
		Find(&subscribers).Error
	if err != nil {
		return nil, err
	}
	return subscribers, nil
}
