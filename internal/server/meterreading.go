package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	meterdomain "github.com/propline/propline/internal/meterreading/domain"
)

func (s *Server) ListMeterReadings(c *gin.Context) {
	var req meterdomain.ListMeterReadingRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	resp, err := s.meterReadingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Readings})
}

func (s *Server) CreateMeterReading(c *gin.Context) {
	var req meterdomain.CreateMeterReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request"))
		return
	}

	reading, err := s.meterReadingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": reading})
}
