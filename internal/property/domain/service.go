package domain

import (
	"context"
	"errors"
)

type ListPropertyResponse struct {
	Properties []Property `json:"properties"`
}

type ListUnitRequest struct {
	PropertyID string `form:"property_id"`
}

type ListUnitResponse struct {
	Units []Unit `json:"units"`
}

type CreatePropertyRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

type CreateUnitRequest struct {
	PropertyID string   `json:"property_id" binding:"required"`
	Name       string   `json:"name" binding:"required"`
	AreaSqm    *float64 `json:"area_sqm"`
}

type Service interface {
	ListProperties(ctx context.Context) (ListPropertyResponse, error)
	CreateProperty(ctx context.Context, req CreatePropertyRequest) (Property, error)
	ListUnits(ctx context.Context, req ListUnitRequest) (ListUnitResponse, error)
	CreateUnit(ctx context.Context, req CreateUnitRequest) (Unit, error)
	GetUnit(ctx context.Context, id string) (Unit, error)
}

var (
	ErrInvalidCompany      = errors.New("invalid_company")
	ErrPropertyNotFound    = errors.New("property_not_found")
	ErrUnitNotFound        = errors.New("unit_not_found")
	ErrInvalidPropertyUnit = errors.New("invalid_property_unit")
)
