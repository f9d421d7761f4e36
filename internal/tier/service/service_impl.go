package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/observability/metrics"
	"github.com/stampworks/loyalty/internal/rule"
	"github.com/stampworks/loyalty/internal/tier/domain"
	"github.com/stampworks/loyalty/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultTierName is assigned to the bootstrap tier every merchant gets.
const DefaultTierName = "Bronze"

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	rules   *rule.Evaluator
	metrics *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("tier.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		rules:   rule.NewEvaluator(p.Log),
		metrics: p.Metrics,
	}
}

func (s *Service) Classify(ctx context.Context, merchantID string, snap rule.Snapshot) (domain.Tier, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Tier{}, err
	}

	tiers, err := s.repo.ListByMerchant(ctx, s.db, mid)
	if err != nil {
		return domain.Tier{}, err
	}

	tier, ok := ClassifyTiers(s.rules, tiers, snap)
	if !ok {
		return domain.Tier{}, domain.ErrNotFound
	}
	s.metrics.ObserveEvaluation("tier", !tier.IsDefault)
	return tier, nil
}

func (s *Service) List(ctx context.Context, merchantID string) ([]domain.Tier, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByMerchant(ctx, s.db, mid)
}

func (s *Service) EnsureDefault(ctx context.Context, merchantID string) (domain.Tier, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Tier{}, err
	}

	tiers, err := s.repo.ListByMerchant(ctx, s.db, mid)
	if err != nil {
		return domain.Tier{}, err
	}
	for _, t := range tiers {
		if t.IsDefault {
			return t, nil
		}
	}

	now := time.Now().UTC()
	tier := domain.Tier{
		ID:         s.genID.Generate(),
		MerchantID: mid,
		Name:       DefaultTierName,
		Order:      0,
		IsDefault:  true,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &tier); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return tier, nil
		}
		return domain.Tier{}, err
	}
	return tier, nil
}

func (s *Service) Save(ctx context.Context, req domain.SaveTierRequest) (domain.SaveTierResult, error) {
	mid, err := parseID(req.MerchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.SaveTierResult{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.SaveTierResult{}, domain.ErrNameRequired
	}

	tiers, err := s.repo.ListByMerchant(ctx, s.db, mid)
	if err != nil {
		return domain.SaveTierResult{}, err
	}

	var existing *domain.Tier
	if req.ID != "" {
		tid, err := parseID(req.ID, domain.ErrInvalidID)
		if err != nil {
			return domain.SaveTierResult{}, err
		}
		for i := range tiers {
			if tiers[i].ID == tid {
				existing = &tiers[i]
				break
			}
		}
		if existing == nil {
			return domain.SaveTierResult{}, domain.ErrNotFound
		}
		if existing.IsDefault {
			// Default tiers cannot be renamed, reordered, deactivated or
			// given conditions.
			return domain.SaveTierResult{}, domain.ErrDefaultTierImmutable
		}
	}

	defaultOrder := 0
	for _, t := range tiers {
		if t.IsDefault {
			defaultOrder = t.Order
		}
	}
	if req.Order <= defaultOrder {
		return domain.SaveTierResult{}, domain.ErrOrderBelowDefault
	}
	for _, t := range tiers {
		if t.Order == req.Order && (existing == nil || t.ID != existing.ID) {
			return domain.SaveTierResult{}, domain.ErrOrderTaken
		}
	}

	enabled := 0
	for _, c := range req.Conditions {
		if c.Enabled {
			enabled++
		}
	}

	isActive := req.IsActive
	demoted := false
	if enabled == 0 && isActive {
		// A tier with zero enabled conditions is unreachable; save it
		// inactive and surface a warning.
		isActive = false
		demoted = true
	}

	if err := s.checkMonotonicity(tiers, existing, req.Order, isActive); err != nil {
		return domain.SaveTierResult{}, err
	}

	conditions, err := rule.EncodeConditions(req.Conditions)
	if err != nil {
		return domain.SaveTierResult{}, err
	}

	now := time.Now().UTC()
	if existing != nil {
		tier := *existing
		tier.Name = name
		tier.Order = req.Order
		tier.IsActive = isActive
		tier.Conditions = conditions
		tier.UpdatedAt = now
		if err := s.repo.Update(ctx, s.db, &tier); err != nil {
			return domain.SaveTierResult{}, err
		}
		return domain.SaveTierResult{Tier: tier, Demoted: demoted}, nil
	}

	tier := domain.Tier{
		ID:         s.genID.Generate(),
		MerchantID: mid,
		Name:       name,
		Order:      req.Order,
		IsActive:   isActive,
		Conditions: conditions,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &tier); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.SaveTierResult{}, domain.ErrOrderTaken
		}
		return domain.SaveTierResult{}, err
	}
	return domain.SaveTierResult{Tier: tier, Demoted: demoted}, nil
}

// checkMonotonicity enforces bottom-up activation: a tier may be active
// only while every tier below it is active, and may not go inactive while
// an active tier sits above it. Violations are rejected, never silently
// fixed.
func (s *Service) checkMonotonicity(tiers []domain.Tier, self *domain.Tier, order int, isActive bool) error {
	if isActive {
		var below *domain.Tier
		for i := range tiers {
			t := &tiers[i]
			if self != nil && t.ID == self.ID {
				continue
			}
			if t.Order < order && (below == nil || t.Order > below.Order) {
				below = t
			}
		}
		if below != nil && !below.IsActive {
			return domain.ErrLowerTierInactive
		}
		return nil
	}

	for i := range tiers {
		t := &tiers[i]
		if self != nil && t.ID == self.ID {
			continue
		}
		if t.Order > order && t.IsActive {
			return domain.ErrHigherTierActive
		}
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, merchantID, tierID string) error {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return err
	}
	tid, err := parseID(tierID, domain.ErrInvalidID)
	if err != nil {
		return err
	}

	tier, err := s.repo.FindByID(ctx, s.db, mid, tid)
	if err != nil {
		return err
	}
	if tier == nil {
		return domain.ErrNotFound
	}
	if tier.IsDefault {
		return domain.ErrDefaultTierProtected
	}

	customers, err := s.repo.CountCustomers(ctx, s.db, mid, tid)
	if err != nil {
		return err
	}
	if customers > 0 {
		return domain.ErrTierInUse
	}

	return s.repo.Delete(ctx, s.db, mid, tid)
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
