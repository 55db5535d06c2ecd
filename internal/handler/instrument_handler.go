package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
)

type InstrumentHandler struct {
	repo   *repository.InstrumentRepository
	logger *zap.Logger
}

func NewInstrumentHandler(repo *repository.InstrumentRepository, logger *zap.Logger) *InstrumentHandler {
	return &InstrumentHandler{repo: repo, logger: logger}
}

type instrumentRequest struct {
	InventoryNo string `json:"inventory_no" binding:"required"`
	Kind        string `json:"kind" binding:"required"`
	Maker       string `json:"maker"`
	Year        *int   `json:"year"`
	PriceCents  int64  `json:"price_cents"`
	Status      string `json:"status"`
	Condition   string `json:"condition"`
	Notes       string `json:"notes"`
}

func validInstrumentKind(kind string) bool {
	switch kind {
	case model.InstrumentKindViolin, model.InstrumentKindViola,
		model.InstrumentKindCello, model.InstrumentKindBass, model.InstrumentKindBow:
		return true
	}
	return false
}

func validInstrumentStatus(status string) bool {
	switch status {
	case model.InstrumentStatusAvailable, model.InstrumentStatusReserved,
		model.InstrumentStatusSold, model.InstrumentStatusConsignment:
		return true
	}
	return false
}

func (h *InstrumentHandler) Create(c *gin.Context) {
	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inventory_no and kind required"})
		return
	}
	if !validInstrumentKind(req.Kind) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown instrument kind"})
		return
	}
	if req.Status == "" {
		req.Status = model.InstrumentStatusAvailable
	}
	if !validInstrumentStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown instrument status"})
		return
	}

	ins := &model.Instrument{
		InventoryNo: req.InventoryNo,
		Kind:        req.Kind,
		Maker:       req.Maker,
		Year:        req.Year,
		PriceCents:  req.PriceCents,
		Status:      req.Status,
		Condition:   req.Condition,
		Notes:       req.Notes,
	}
	if err := h.repo.Insert(c.Request.Context(), ins); err != nil {
		h.logger.Error("Failed to create instrument",
			zap.String("inventory_no", req.InventoryNo),
			zap.Error(err),
		)
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, ins)
}

func (h *InstrumentHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ins, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ins)
}

func (h *InstrumentHandler) List(c *gin.Context) {
	kind := c.Query("kind")
	status := c.Query("status")
	sortBy := c.DefaultQuery("sort", "created_at")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	instruments, err := h.repo.List(c.Request.Context(), kind, status, sortBy, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list instruments", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"instruments": instruments})
}

func (h *InstrumentHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req instrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "inventory_no and kind required"})
		return
	}
	if !validInstrumentKind(req.Kind) || !validInstrumentStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown kind or status"})
		return
	}

	ins := &model.Instrument{
		ID:          id,
		InventoryNo: req.InventoryNo,
		Kind:        req.Kind,
		Maker:       req.Maker,
		Year:        req.Year,
		PriceCents:  req.PriceCents,
		Status:      req.Status,
		Condition:   req.Condition,
		Notes:       req.Notes,
	}
	if err := h.repo.Update(c.Request.Context(), ins); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ins)
}

func (h *InstrumentHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("Instrument deleted", zap.Int64("instrument_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
