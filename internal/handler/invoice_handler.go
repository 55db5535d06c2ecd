package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/internal/service"
)

type InvoiceHandler struct {
	svc    *service.InvoiceService
	repo   *repository.InvoiceRepository
	logger *zap.Logger
}

func NewInvoiceHandler(svc *service.InvoiceService, repo *repository.InvoiceRepository, logger *zap.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, repo: repo, logger: logger}
}

type invoiceLineRequest struct {
	Description string `json:"description" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required"`
	UnitCents   int64  `json:"unit_cents"`
}

type invoiceRequest struct {
	ClientID int64                `json:"client_id" binding:"required"`
	SaleID   *int64               `json:"sale_id"`
	Lines    []invoiceLineRequest `json:"lines" binding:"required"`
}

func (h *InvoiceHandler) CreateDraft(c *gin.Context) {
	var req invoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id and lines required"})
		return
	}

	lines := make([]model.InvoiceLine, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = model.InvoiceLine{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitCents:   l.UnitCents,
		}
	}

	inv, err := h.svc.CreateDraft(c.Request.Context(), req.ClientID, req.SaleID, lines)
	if err != nil {
		h.logger.Error("Failed to create invoice draft",
			zap.Int64("client_id", req.ClientID),
			zap.Error(err),
		)
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

func (h *InvoiceHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	inv, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) ListByClient(c *gin.Context) {
	clientID := int64(queryInt(c, "client_id", 0))
	if clientID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "client_id required"})
		return
	}
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	invoices, err := h.repo.ListByClient(c.Request.Context(), clientID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list invoices", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// Issue flips a draft to issued. Re-issuing comes back as a conflict.
func (h *InvoiceHandler) Issue(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	inv, err := h.svc.Issue(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, inv)
}

func (h *InvoiceHandler) MarkPaid(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.repo.MarkPaid(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("Invoice marked paid", zap.Int64("invoice_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Document returns the render-ready invoice payload for the PDF service.
func (h *InvoiceHandler) Document(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	doc, err := h.svc.BuildDocument(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}
