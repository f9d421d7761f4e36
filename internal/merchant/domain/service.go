package domain

import (
	"context"
	"errors"
	"time"
)

type CreateMerchantRequest struct {
	Name     string
	Timezone string
}

type Service interface {
	Create(context.Context, CreateMerchantRequest) (Merchant, error)
	GetByID(ctx context.Context, id string) (Merchant, error)

	// Location resolves the merchant's timezone for merchant-local
	// limitation windows; unknown or empty zones fall back to the
	// configured default.
	Location(ctx context.Context, id string) (*time.Location, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidTimezone = errors.New("invalid_timezone")
	ErrInvalidID       = errors.New("invalid_id")
	ErrNotFound        = errors.New("not_found")
)
