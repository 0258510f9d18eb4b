package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/wecloud/backoffice/internal/config"
	"github.com/wecloud/backoffice/internal/subscriber/domain"
	"github.com/wecloud/backoffice/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Config config.Config
	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Repo   domain.Repository
}

type Service struct {
	db             *gorm.DB
	log            *zap.Logger
	genID          *snowflake.Node
	repo           domain.Repository
	defaultCountry string
}

func New(p Params) domain.Service {
	return &Service{
		db:             p.DB,
		log:            p.Log.Named("subscriber.service"),
		genID:          p.GenID,
		repo:           p.Repo,
		defaultCountry: p.Config.Gateway.DefaultCountry,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSubscriberRequest) (domain.Subscriber, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Subscriber{}, domain.ErrInvalidName
	}

	phone, err := domain.NormalizePhone(req.Phone, s.defaultCountry)
	if err != nil {
		return domain.Subscriber{}, err
	}

	var packageID snowflake.ID
	if strings.TrimSpace(req.PackageID) != "" {
		packageID, err = s.parseID(req.PackageID)
		if err != nil {
			return domain.Subscriber{}, err
		}
	}

	address := strings.TrimSpace(req.Address)
	now := time.Now().UTC()
	subscriber := domain.Subscriber{
		ID:        s.genID.Generate(),
		Name:      name,
		Phone:     phone,
		Address:   address,
		Region:    domain.DeriveRegion(address),
		PackageID: packageID,
		Active:    true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &subscriber); err != nil {
		return domain.Subscriber{}, err
	}

	return subscriber, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateSubscriberRequest) (domain.Subscriber, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Subscriber{}, err
	}

	existing, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Subscriber{}, err
	}
	if existing == nil {
		return domain.Subscriber{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Subscriber{}, domain.ErrInvalidName
		}
		existing.Name = name
	}
	if req.Phone != nil {
		phone, err := domain.NormalizePhone(*req.Phone, s.defaultCountry)
		if err != nil {
			return domain.Subscriber{}, err
		}
		existing.Phone = phone
	}
	if req.Address != nil {
		existing.Address = strings.TrimSpace(*req.Address)
		existing.Region = domain.DeriveRegion(existing.Address)
	}
	if req.PackageID != nil {
		packageID, err := s.parseID(*req.PackageID)
		if err != nil {
			return domain.Subscriber{}, err
		}
		existing.PackageID = packageID
	}
	if req.Active != nil {
		existing.Active = *req.Active
	}
	existing.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, s.db, existing); err != nil {
		return domain.Subscriber{}, err
	}

	return *existing, nil
}

func (s *Service) Delete(ctx context.Context, req domain.DeleteSubscriberRequest) error {
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

	return nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetSubscriberRequest) (domain.Subscriber, error) {
	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Subscriber{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Subscriber{}, err
	}
	if item == nil {
		return domain.Subscriber{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListSubscriberRequest) (domain.ListSubscriberResponse, error) {
	region := strings.ToLower(strings.TrimSpace(req.Region))
	if region != "" && !domain.ValidRegion(region) {
		return domain.ListSubscriberResponse{}, domain.ErrInvalidRegion
	}

	filter := domain.ListSubscriberFilter{
		Name:      strings.TrimSpace(req.Name),
		Phone:     strings.TrimSpace(req.Phone),
		Region:    region,
		PackageID: strings.TrimSpace(req.PackageID),
		Active:    req.Active,
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
		return domain.ListSubscriberResponse{}, err
	}

	pageInfo, items := pagination.BuildCursorPageInfo(items, pageSize, func(subscriber *domain.Subscriber) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        subscriber.ID.String(),
			CreatedAt: subscriber.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})

	subscribers := make([]domain.Subscriber, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		subscribers = append(subscribers, *item)
	}

	resp := domain.ListSubscriberResponse{Subscribers: subscribers}
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
