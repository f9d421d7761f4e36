package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/config"
	"github.com/stampworks/loyalty/internal/merchant/domain"
	tierdomain "github.com/stampworks/loyalty/internal/tier/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Config  config.Config
	GenID   *snowflake.Node
	Repo    domain.Repository
	TierSvc tierdomain.Service
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	cfg     config.Config
	genID   *snowflake.Node
	repo    domain.Repository
	tierSvc tierdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("merchant.service"),
		cfg:     p.Config,
		genID:   p.GenID,
		repo:    p.Repo,
		tierSvc: p.TierSvc,
	}
}

// Create inserts the merchant and bootstraps its default membership tier.
// Every merchant always has a default tier at the lowest order.
func (s *Service) Create(ctx context.Context, req domain.CreateMerchantRequest) (domain.Merchant, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Merchant{}, domain.ErrInvalidName
	}

	tz := strings.TrimSpace(req.Timezone)
	if tz == "" {
		tz = s.cfg.MerchantTimezone
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return domain.Merchant{}, domain.ErrInvalidTimezone
	}

	now := time.Now().UTC()
	merchant := domain.Merchant{
		ID:        s.genID.Generate(),
		Name:      name,
		Timezone:  tz,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &merchant); err != nil {
		return domain.Merchant{}, err
	}

	if _, err := s.tierSvc.EnsureDefault(ctx, merchant.ID.String()); err != nil {
		return domain.Merchant{}, err
	}

	return merchant, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Merchant, error) {
	parsed, err := parseID(id)
	if err != nil {
		return domain.Merchant{}, err
	}

	merchant, err := s.repo.FindByID(ctx, s.db, parsed)
	if err != nil {
		return domain.Merchant{}, err
	}
	if merchant == nil {
		return domain.Merchant{}, domain.ErrNotFound
	}
	return *merchant, nil
}

func (s *Service) Location(ctx context.Context, id string) (*time.Location, error) {
	merchant, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(merchant.Timezone)
	if err == nil {
		return loc, nil
	}

	s.log.Warn("merchant timezone invalid, using default",
		zap.String("merchant_id", id),
		zap.String("timezone", merchant.Timezone),
	)
	loc, err = time.LoadLocation(s.cfg.MerchantTimezone)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
