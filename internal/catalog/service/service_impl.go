package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/wecloud/backoffice/internal/cache"
	"github.com/wecloud/backoffice/internal/catalog/domain"
	"github.com/wecloud/backoffice/internal/clock"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const packageCacheTTL = 10 * time.Minute

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
	Clock clock.Clock
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	clock    clock.Clock
	packages cache.Cache[snowflake.ID, domain.Package]
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("catalog.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		clock:    p.Clock,
		packages: cache.NewTTLCache[snowflake.ID, domain.Package](),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePackageRequest) (domain.Package, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Package{}, domain.ErrInvalidName
	}

	price, err := parsePrice(req.MonthlyPrice)
	if err != nil {
		return domain.Package{}, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "PKR"
	}

	now := s.clock.Now().UTC()
	pkg := domain.Package{
		ID:           s.genID.Generate(),
		Name:         name,
		Speed:        strings.TrimSpace(req.Speed),
		MonthlyPrice: price,
		Currency:     currency,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &pkg); err != nil {
		return domain.Package{}, err
	}

	s.packages.Set(pkg.ID, pkg, packageCacheTTL)
	return pkg, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePackageRequest) (domain.Package, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Package{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Package{}, err
	}
	if existing == nil {
		return domain.Package{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Package{}, domain.ErrInvalidName
		}
		existing.Name = name
	}
	if req.Speed != nil {
		existing.Speed = strings.TrimSpace(*req.Speed)
	}
	if req.MonthlyPrice != nil {
		price, err := parsePrice(*req.MonthlyPrice)
		if err != nil {
			return domain.Package{}, err
		}
		existing.MonthlyPrice = price
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}
	existing.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, existing); err != nil {
		return domain.Package{}, err
	}

	s.packages.Set(existing.ID, *existing, packageCacheTTL)
	return *existing, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeletePackageRequest) error {
	id, err := s.parseID(req.ID)
	if err != nil {
		return err
	}

	affected, err := s.repo.Delete(ctx, s.db, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	s.packages.Delete(id)
	return nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetPackageRequest) (domain.Package, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Package{}, err
	}

	if pkg, ok := s.packages.Get(id); ok {
		return pkg, nil
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Package{}, err
	}
	if item == nil {
		return domain.Package{}, domain.ErrNotFound
	}

	s.packages.Set(item.ID, *item, packageCacheTTL)
	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPackageRequest) (domain.ListPackageResponse, error) {
	filter := domain.ListPackageFilter{
		Name:   strings.TrimSpace(req.Name),
		Active: req.Active,
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListPackageResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(pkg *domain.Package) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        pkg.ID.String(),
			CreatedAt: pkg.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	packages := make([]domain.Package, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		packages = append(packages, *item)
	}

	resp := domain.ListPackageResponse{Packages: packages}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}

func (s *Service) parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func parsePrice(value string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil || price.IsNegative() {
		return decimal.Zero, domain.ErrInvalidPrice
	}
	return price, nil
}
