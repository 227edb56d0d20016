package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"shieldmail/internal/store"
)

type StatsHandler interface {
	GetStats(c *gin.Context)
}

type statsHandler struct {
	store  *store.Store
	logger *zap.Logger
}

func NewStatsHandler(st *store.Store, logger *zap.Logger) StatsHandler {
	return &statsHandler{
		store:  st,
		logger: logger,
	}
}

// GetStats handles GET /api/stats
func (h *statsHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Stats())
}
