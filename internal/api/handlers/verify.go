package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
)

type DomainRequest struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

type VerifyRequest struct {
	Domains []DomainRequest `json:"domains" binding:"required"`
}

// Verify runs a batch over the posted domains and returns the buckets.
func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	records := make([]core.DomainRecord, len(req.Domains))
	for i, d := range req.Domains {
		records[i] = core.DomainRecord{ID: d.ID, Domain: d.Domain}
	}

	ctx := c.Request.Context()
	result := h.verifier.Process(ctx, records)
	if err := h.verifier.Persist(ctx, result); err != nil {
		h.logger.Error("Failed to persist batch", zap.Error(err))
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) LastReport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report available"})
		return
	}

	result, err := h.reports.Last(c.Request.Context())
	if errors.Is(err, core.ErrNoReport) {
		c.JSON(http.StatusNotFound, gin.H{"error": "No report available"})
		return
	}
	if err != nil {
		h.logger.Error("Failed to load last report", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, result)
}
