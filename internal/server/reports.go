package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lightningshop/jobtrack/internal/estimate"
)

func (s *Server) GetReportOverview(c *gin.Context) {
	resp, err := s.reportSvc.Overview(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetEstimate(c *gin.Context) {
	var query struct {
		SquareFeet string `form:"sqft"`
		Rate       string `form:"rate"`
		Multiplier string `form:"multiplier"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	sqft, err := parseOptionalFloat(query.SquareFeet)
	if err != nil || sqft == nil {
		AbortWithError(c, newValidationError("sqft", "invalid_sqft", "invalid sqft"))
		return
	}
	rate, err := parseOptionalFloat(query.Rate)
	if err != nil {
		AbortWithError(c, newValidationError("rate", "invalid_rate", "invalid rate"))
		return
	}
	multiplier, err := parseOptionalFloat(query.Multiplier)
	if err != nil {
		AbortWithError(c, newValidationError("multiplier", "invalid_multiplier", "invalid multiplier"))
		return
	}

	resp, err := s.estimateSvc.Estimate(estimate.Request{
		SquareFeet:  *sqft,
		RatePerSqft: rate,
		Multiplier:  multiplier,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"data": s.settings.Get()})
}
