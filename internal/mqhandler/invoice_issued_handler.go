package mqhandler

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
	"github.com/mjaychoi/hc-violins/pkg/mq"
)

type InvoiceIssuedHandler struct {
	repo   *repository.NotificationLogRepository
	logger *zap.Logger
}

func NewInvoiceIssuedHandler(repo *repository.NotificationLogRepository, logger *zap.Logger) *InvoiceIssuedHandler {
	return &InvoiceIssuedHandler{repo: repo, logger: logger}
}

func (h *InvoiceIssuedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mq.InvoiceIssuedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal invoice.issued payload",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return nil
	}

	entry := &repository.NotificationLog{
		Kind:   mq.RoutingKeyInvoiceIssued,
		Detail: fmt.Sprintf("invoice %s issued to client %d, total %d cents", p.Number, p.ClientID, p.TotalCents),
	}
	if err := h.repo.Insert(ctx, entry); err != nil {
		retryable, errType := apperr.IsRetryable(err)
		h.logger.Error("Failed to insert invoice.issued log",
			zap.Int64("invoice_id", p.InvoiceID),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if !retryable {
			return nil
		}
		return err
	}

	h.logger.Info("Invoice issued event logged",
		zap.Int64("invoice_id", p.InvoiceID),
		zap.String("number", p.Number),
	)
	return nil
}
