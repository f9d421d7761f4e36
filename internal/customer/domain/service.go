package domain

import (
	"context"
	"errors"

	"github.com/stampworks/loyalty/internal/rule"
)

type CreateCustomerRequest struct {
	MerchantID string
	Name       string
	Email      string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	GetByID(ctx context.Context, merchantID, id string) (Customer, error)

	// Snapshot assembles the read-only metric view the evaluators consume.
	Snapshot(ctx context.Context, merchantID, id string) (rule.Snapshot, error)

	// Watch returns a channel that receives a fresh snapshot every time
	// the customer's counters change. Consumers re-run classification and
	// eligibility on each emission; nothing is cached across versions.
	// The returned cancel func must be called to release the subscription.
	Watch(ctx context.Context, merchantID, id string) (<-chan rule.Snapshot, func(), error)

	// NotifyMetricsChanged is called by the transaction-processing
	// collaborator after it writes counters. It reclassifies the
	// customer's tier and pushes the new snapshot to watchers.
	NotifyMetricsChanged(ctx context.Context, merchantID, id string) error
}

var (
	ErrInvalidMerchant = errors.New("invalid_merchant")
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidEmail    = errors.New("invalid_email")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
