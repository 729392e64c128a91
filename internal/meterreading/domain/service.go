package domain

import (
	"context"
	"errors"
	"time"
)

type ListMeterReadingRequest struct {
	UnitID       string `form:"unit_id"`
	FeeTypeID    string `form:"fee_type_id"`
	BillingMonth string `form:"billing_month"`
}

type ListMeterReadingResponse struct {
	Readings []MeterReading `json:"readings"`
}

type CreateMeterReadingRequest struct {
	UnitID          string     `json:"unit_id" binding:"required"`
	FeeTypeID       string     `json:"fee_type_id" binding:"required"`
	BillingMonth    string     `json:"billing_month" binding:"required"`
	PreviousReading float64    `json:"previous_reading"`
	CurrentReading  float64    `json:"current_reading"`
	UnitPrice       *float64   `json:"unit_price"`
	ReadingDate     *time.Time `json:"reading_date"`
}

type Service interface {
	List(ctx context.Context, req ListMeterReadingRequest) (ListMeterReadingResponse, error)
	Create(ctx context.Context, req CreateMeterReadingRequest) (MeterReading, error)
}

var (
	ErrInvalidCompany      = errors.New("invalid_company")
	ErrInvalidBillingMonth = errors.New("invalid_billing_month")
	ErrFeeTypeNotMetered   = errors.New("fee_type_not_metered")
)
