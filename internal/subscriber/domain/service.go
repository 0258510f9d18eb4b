package domain

import (
	"context"
	"errors"

	"github.com/wecloud/backoffice/pkg/db/pagination"
)

type CreateSubscriberRequest struct {
	Name      string
	Phone     string
	Address   string
	PackageID string
}

type UpdateSubscriberRequest struct {
	ID        string
	Name      *string
	Phone     *string
	Address   *string
	PackageID *string
	Active    *bool
}

type GetSubscriberRequest struct {
	ID string
}

type DeleteSubscriberRequest struct {
	ID string
}

type ListSubscriberRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Phone     string
	Region    string
	PackageID string
	Active    *bool
}

type ListSubscriberFilter struct {
	Name      string
	Phone     string
	Region    string
	PackageID string
	Active    *bool
}

type ListSubscriberResponse struct {
	pagination.PageInfo
	Subscribers []Subscriber `json:"subscribers"`
}

type Service interface {
	Create(context.Context, CreateSubscriberRequest) (Subscriber, error)
	Update(context.Context, UpdateSubscriberRequest) (Subscriber, error)
	Delete(context.Context, DeleteSubscriberRequest) error
	GetByID(context.Context, GetSubscriberRequest) (Subscriber, error)
	List(context.Context, ListSubscriberRequest) (ListSubscriberResponse, error)
}

var (
	ErrInvalidName   = errors.New("invalid_name")
	ErrInvalidPhone  = errors.New("invalid_phone")
	ErrInvalidRegion = errors.New("invalid_region")
	ErrInvalidID     = errors.New("invalid_id")
	ErrNotFound      = errors.New("not_found")
)
