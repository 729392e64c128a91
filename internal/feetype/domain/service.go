package domain

import (
	"context"
	"errors"
)

type ListFeeTypeRequest struct {
	IncludeInactive bool `form:"include_inactive"`
}

type ListFeeTypeResponse struct {
	FeeTypes []FeeType `json:"fee_types"`
}

type CreateFeeTypeRequest struct {
	Code             string          `json:"code" binding:"required"`
	Name             string          `json:"name" binding:"required"`
	CalculationType  CalculationType `json:"calculation_type" binding:"required"`
	DefaultAmount    *float64        `json:"default_amount"`
	DefaultUnitPrice *float64        `json:"default_unit_price"`
	UnitLabel        string          `json:"unit_label"`
	DisplayOrder     int             `json:"display_order"`
}

type UpdateFeeTypeRequest struct {
	Name             *string  `json:"name"`
	DefaultAmount    *float64 `json:"default_amount"`
	DefaultUnitPrice *float64 `json:"default_unit_price"`
	UnitLabel        *string  `json:"unit_label"`
	DisplayOrder     *int     `json:"display_order"`
}

type Service interface {
	List(ctx context.Context, req ListFeeTypeRequest) (ListFeeTypeResponse, error)
	GetByID(ctx context.Context, id string) (FeeType, error)
	Create(ctx context.Context, req CreateFeeTypeRequest) (FeeType, error)
	Update(ctx context.Context, id string, req UpdateFeeTypeRequest) (FeeType, error)
	Deactivate(ctx context.Context, id string) error
}

var (
	ErrInvalidCompany         = errors.New("invalid_company")
	ErrFeeTypeNotFound        = errors.New("fee_type_not_found")
	ErrDuplicateFeeTypeCode   = errors.New("duplicate_fee_type_code")
	ErrInvalidCalculationType = errors.New("invalid_calculation_type")
)
