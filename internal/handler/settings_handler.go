package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
)

type SettingsHandler struct {
	repo   *repository.SettingsRepository
	logger *zap.Logger
}

func NewSettingsHandler(repo *repository.SettingsRepository, logger *zap.Logger) *SettingsHandler {
	return &SettingsHandler{repo: repo, logger: logger}
}

// currentUserID reads the id the auth middleware stored on the context.
func currentUserID(c *gin.Context) (int64, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	id, ok := v.(int64)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid user_id"})
		return 0, false
	}
	return id, true
}

func (h *SettingsHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	s, err := h.repo.GetByUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

type settingsRequest struct {
	Enabled            bool  `json:"enabled"`
	EmailNotifications bool  `json:"email_notifications"`
	DaysBeforeDue      []int `json:"days_before_due"`
}

func (h *SettingsHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}
	for _, d := range req.DaysBeforeDue {
		if d < 1 || d > 60 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days_before_due values must be between 1 and 60"})
			return
		}
	}

	s := &model.NotificationSettings{
		UserID:             userID,
		Enabled:            req.Enabled,
		EmailNotifications: req.EmailNotifications,
		DaysBeforeDue:      req.DaysBeforeDue,
	}
	if err := h.repo.Upsert(c.Request.Context(), s); err != nil {
		h.logger.Error("Failed to update notification settings",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
		fail(c, err)
		return
	}

	h.logger.Info("Notification settings updated",
		zap.Int64("user_id", userID),
		zap.Ints("days_before_due", req.DaysBeforeDue),
	)
	c.JSON(http.StatusOK, s)
}
