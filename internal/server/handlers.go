package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/study-matcher/internal/logger"
	"github.com/spigell/study-matcher/internal/matching"
)

type handlers struct {
	ranker Ranker
	logger *zap.Logger
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

func (h *handlers) matchStudies(c *gin.Context) {
	id := c.Param("participantID")

	result, err := h.ranker.MatchStudies(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Participant not found", zap.String(logger.FieldParticipant, id))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) matchParticipants(c *gin.Context) {
	id := c.Param("studyID")

	result, err := h.ranker.MatchParticipants(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "Study not found", zap.String(logger.FieldStudy, id))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *handlers) fail(c *gin.Context, err error, notFound string, fields ...zap.Field) {
	if errors.Is(err, matching.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
		return
	}

	h.logger.Error("ranking failed", append(fields, zap.Error(err))...)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to rank candidates"})
}
