package domain

import (
	"context"
	"errors"

	"github.com/wecloud/backoffice/pkg/db/pagination"
)

type CreatePackageRequest struct {
	Name         string
	Speed        string
	MonthlyPrice string
	Currency     string
}

type UpdatePackageRequest struct {
	ID           string
	Name         *string
	Speed        *string
	MonthlyPrice *string
	Active       *bool
}

type GetPackageRequest struct {
	ID string
}

type DeletePackageRequest struct {
	ID string
}

type ListPackageRequest struct {
	PageToken string
	PageSize  int32
	Name      string
	Active    *bool
}

type ListPackageFilter struct {
	Name   string
	Active *bool
}

type ListPackageResponse struct {
	pagination.PageInfo
	Packages []Package `json:"packages"`
}

type Service interface {
	Create(context.Context, CreatePackageRequest) (Package, error)
	Update(context.Context, UpdatePackageRequest) (Package, error)
	Delete(context.Context, DeletePackageRequest) error
	GetByID(context.Context, GetPackageRequest) (Package, error)
	List(context.Context, ListPackageRequest) (ListPackageResponse, error)
}

var (
	ErrInvalidName  = errors.New("invalid_name")
	ErrInvalidPrice = errors.New("invalid_price")
	ErrInvalidID    = errors.New("invalid_id")
	ErrNotFound     = errors.New("not_found")
)
