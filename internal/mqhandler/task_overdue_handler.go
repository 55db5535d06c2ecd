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

type TaskOverdueHandler struct {
	repo   *repository.NotificationLogRepository
	logger *zap.Logger
}

func NewTaskOverdueHandler(repo *repository.NotificationLogRepository, logger *zap.Logger) *TaskOverdueHandler {
	return &TaskOverdueHandler{repo: repo, logger: logger}
}

func (h *TaskOverdueHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mq.TaskOverduePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal task.overdue payload",
			zap.Error(err),
			zap.String("raw_payload", string(raw)),
		)
		return nil
	}

	entry := &repository.NotificationLog{
		Kind:   mq.RoutingKeyTaskOverdue,
		Detail: fmt.Sprintf("task %d (%s) is %d days overdue", p.TaskID, p.Title, p.Days),
	}
	if err := h.repo.Insert(ctx, entry); err != nil {
		retryable, errType := apperr.IsRetryable(err)
		h.logger.Error("Failed to insert task.overdue log",
			zap.Int64("task_id", p.TaskID),
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if !retryable {
			return nil
		}
		return err
	}

	h.logger.Info("Task overdue event logged", zap.Int64("task_id", p.TaskID))
	return nil
}
