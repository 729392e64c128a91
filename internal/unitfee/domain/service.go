package domain

import (
	"context"
	"errors"
)

type ListUnitFeeRequest struct {
	UnitID string `form:"unit_id" binding:"required"`
}

type ListUnitFeeResponse struct {
	Overrides []UnitFeeOverride `json:"overrides"`
}

type UpsertUnitFeeRequest struct {
	UnitID          string   `json:"unit_id" binding:"required"`
	FeeTypeID       string   `json:"fee_type_id" binding:"required"`
	CustomAmount    *float64 `json:"custom_amount"`
	CustomUnitPrice *float64 `json:"custom_unit_price"`
}

type Service interface {
	List(ctx context.Context, req ListUnitFeeRequest) (ListUnitFeeResponse, error)
	Upsert(ctx context.Context, req UpsertUnitFeeRequest) (UnitFeeOverride, error)
	Remove(ctx context.Context, id string) error
}

var (
	ErrInvalidCompany   = errors.New("invalid_company")
	ErrOverrideNotFound = errors.New("override_not_found")
)
