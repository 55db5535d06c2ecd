package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/pkg/outbox"
)

// AdminHandler exposes the operational endpoints: outbox replay and the
// notification audit trail.
type AdminHandler struct {
	outboxRepo *outbox.Repository
	logRepo    *repository.NotificationLogRepository
	logger     *zap.Logger
}

func NewAdminHandler(outboxRepo *outbox.Repository, logRepo *repository.NotificationLogRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{outboxRepo: outboxRepo, logRepo: logRepo, logger: logger}
}

// ReplayEvent resets one failed outbox event so the dispatcher retries it.
func (h *AdminHandler) ReplayEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.outboxRepo.ReplayEvent(c.Request.Context(), id); err != nil {
		h.logger.Error("Failed to replay outbox event", zap.Int64("event_id", id), zap.Error(err))
		fail(c, err)
		return
	}

	h.logger.Info("Outbox event replayed", zap.Int64("event_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReplayFailed resets a batch of failed outbox events.
func (h *AdminHandler) ReplayFailed(c *gin.Context) {
	limit := queryInt(c, "limit", 100)

	count, err := h.outboxRepo.ReplayFailedEvents(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to replay failed outbox events", zap.Error(err))
		fail(c, err)
		return
	}

	h.logger.Info("Failed outbox events replayed", zap.Int("count", count))
	c.JSON(http.StatusOK, gin.H{"replayed": count})
}

// NotificationLog lists the most recent consumed events.
func (h *AdminHandler) NotificationLog(c *gin.Context) {
	limit := queryInt(c, "limit", 100)

	entries, err := h.logRepo.ListRecent(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
