package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stampworks/loyalty/internal/clock"
	"github.com/stampworks/loyalty/internal/customer/domain"
	"github.com/stampworks/loyalty/internal/rule"
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
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	TierSvc tierdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	tierSvc  tierdomain.Service
	notifier *notifier
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		tierSvc:  p.TierSvc,
		notifier: newNotifier(),
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	mid, err := parseID(req.MerchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Customer{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:         s.genID.Generate(),
		MerchantID: mid,
		Name:       name,
		Email:      email,
		JoinedAt:   now,
		Metadata:   datatypes.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	// New customers start in the merchant's default tier.
	tier, err := s.tierSvc.EnsureDefault(ctx, req.MerchantID)
	if err != nil {
		return domain.Customer{}, err
	}
	customer.CurrentTierID = tier.ID

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, merchantID, id string) (domain.Customer, error) {
	mid, err := parseID(merchantID, domain.ErrInvalidMerchant)
	if err != nil {
		return domain.Customer{}, err
	}
	cid, err := parseID(id, domain.ErrInvalidID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, mid, cid)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}

func (s *Service) Snapshot(ctx context.Context, merchantID, id string) (rule.Snapshot, error) {
	customer, err := s.GetByID(ctx, merchantID, id)
	if err != nil {
		return rule.Snapshot{}, err
	}
	return s.buildSnapshot(ctx, customer)
}

func (s *Service) buildSnapshot(ctx context.Context, customer domain.Customer) (rule.Snapshot, error) {
	now := s.clock.Now()

	snap := rule.Snapshot{
		CustomerID:           customer.ID.String(),
		LifetimeTransactions: customer.LifetimeTransactions,
		LifetimeSpend:        customer.LifetimeSpend,
		PointsBalance:        customer.PointsBalance,
		DaysSinceJoined:      daysBetween(customer.JoinedAt, now),
	}
	// membershipLevel conditions match on the tier's name, so resolve the
	// ID here. An unresolvable tier leaves CurrentTier empty and the
	// condition fails closed.
	if customer.CurrentTierID != 0 {
		tiers, err := s.tierSvc.List(ctx, customer.MerchantID.String())
		if err != nil {
			s.log.Warn("tier lookup failed", zap.Error(err))
		}
		for _, t := range tiers {
			if t.ID == customer.CurrentTierID {
				snap.CurrentTier = t.Name
				break
			}
		}
	}

	// A customer who has never visited has been "away" exactly as long as
	// they have been a member.
	if customer.LastVisitAt != nil {
		snap.DaysSinceLastVisit = daysBetween(*customer.LastVisitAt, now)
	} else {
		snap.DaysSinceLastVisit = snap.DaysSinceJoined
	}

	redemptions, err := s.repo.CountRedemptions(ctx, s.db, customer.MerchantID, customer.ID)
	if err != nil {
		s.log.Warn("redemption count unavailable",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
	} else {
		snap.RedemptionCount = &redemptions
	}

	return snap, nil
}

func (s *Service) Watch(ctx context.Context, merchantID, id string) (<-chan rule.Snapshot, func(), error) {
	customer, err := s.GetByID(ctx, merchantID, id)
	if err != nil {
		return nil, nil, err
	}

	ch, cancel := s.notifier.subscribe(customer.ID)

	// Seed the subscription with the current snapshot so consumers render
	// immediately instead of waiting for the next metrics change.
	snap, err := s.buildSnapshot(ctx, customer)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	s.notifier.publish(customer.ID, snap)

	return ch, cancel, nil
}

// NotifyMetricsChanged reclassifies the customer against the merchant's
// tiers and pushes a fresh snapshot to watchers. Classification runs from
// scratch on every call; no previous result is consulted.
func (s *Service) NotifyMetricsChanged(ctx context.Context, merchantID, id string) error {
	customer, err := s.GetByID(ctx, merchantID, id)
	if err != nil {
		return err
	}

	snap, err := s.buildSnapshot(ctx, customer)
	if err != nil {
		return err
	}

	tier, err := s.tierSvc.Classify(ctx, merchantID, snap)
	if err != nil {
		return err
	}
	if tier.ID != customer.CurrentTierID {
		if err := s.repo.UpdateCurrentTier(ctx, s.db, customer.MerchantID, customer.ID, tier.ID); err != nil {
			return err
		}
		snap.CurrentTier = tier.Name
		s.log.Info("customer reclassified",
			zap.String("customer_id", customer.ID.String()),
			zap.String("tier", tier.Name),
		)
	}

	s.notifier.publish(customer.ID, snap)
	return nil
}

func daysBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}
	return int(to.Sub(from).Hours() / 24)
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
