package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
)

type SaleHandler struct {
	repo   *repository.SaleRepository
	logger *zap.Logger
}

func NewSaleHandler(repo *repository.SaleRepository, logger *zap.Logger) *SaleHandler {
	return &SaleHandler{repo: repo, logger: logger}
}

type saleRequest struct {
	ClientID      int64      `json:"client_id" binding:"required"`
	InstrumentID  int64      `json:"instrument_id" binding:"required"`
	PriceCents    int64      `json:"price_cents" binding:"required"`
	PaymentMethod string     `json:"payment_method"`
	SoldAt        *time.Time `json:"sold_at"`
	Notes         string     `json:"notes"`
}

// Create records the sale and marks the instrument sold in one step. An
// instrument that is already sold comes back as a conflict.
func (h *SaleHandler) Create(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id, instrument_id and price_cents required"})
		return
	}

	soldAt := time.Now()
	if req.SoldAt != nil {
		soldAt = *req.SoldAt
	}

	sale := &model.Sale{
		ClientID:      req.ClientID,
		InstrumentID:  req.InstrumentID,
		PriceCents:    req.PriceCents,
		PaymentMethod: req.PaymentMethod,
		SoldAt:        soldAt,
		Notes:         req.Notes,
	}
	if err := h.repo.Insert(c.Request.Context(), sale); err != nil {
		h.logger.Error("Failed to record sale",
			zap.Int64("instrument_id", req.InstrumentID),
			zap.Error(err),
		)
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, sale)
}

func (h *SaleHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	sale, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sale)
}

func (h *SaleHandler) List(c *gin.Context) {
	f := repository.SaleFilter{
		SortBy: c.DefaultQuery("sort", "sold_at"),
		Limit:  queryInt(c, "limit", 50),
		Offset: queryInt(c, "offset", 0),
	}

	if raw := c.Query("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid client_id"})
			return
		}
		f.ClientID = &id
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid from timestamp"})
			return
		}
		f.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid to timestamp"})
			return
		}
		f.To = &t
	}

	sales, err := h.repo.List(c.Request.Context(), f)
	if err != nil {
		h.logger.Error("Failed to list sales", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sales": sales})
}
