package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/internal/service"
)

type TemplateHandler struct {
	repo      *repository.TemplateRepository
	renderer  *service.TemplateService
	clients   *repository.ClientRepository
	tasks     *repository.TaskRepository
	instrRepo *repository.InstrumentRepository
	logger    *zap.Logger
}

func NewTemplateHandler(
	repo *repository.TemplateRepository,
	renderer *service.TemplateService,
	clients *repository.ClientRepository,
	tasks *repository.TaskRepository,
	instrRepo *repository.InstrumentRepository,
	logger *zap.Logger,
) *TemplateHandler {
	return &TemplateHandler{
		repo:      repo,
		renderer:  renderer,
		clients:   clients,
		tasks:     tasks,
		instrRepo: instrRepo,
		logger:    logger,
	}
}

type templateRequest struct {
	Name    string `json:"name" binding:"required"`
	Channel string `json:"channel" binding:"required"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

func validChannel(ch string) bool {
	return ch == model.TemplateChannelEmail || ch == model.TemplateChannelSMS
}

func (h *TemplateHandler) Create(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, channel and body required"})
		return
	}
	if !validChannel(req.Channel) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel must be email or sms"})
		return
	}

	tpl := &model.MessageTemplate{
		Name:    req.Name,
		Channel: req.Channel,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := h.repo.Insert(c.Request.Context(), tpl); err != nil {
		h.logger.Error("Failed to create template", zap.String("name", req.Name), zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, tpl)
}

func (h *TemplateHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	tpl, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) List(c *gin.Context) {
	channel := c.Query("channel")
	if channel != "" && !validChannel(channel) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel must be email or sms"})
		return
	}

	templates, err := h.repo.List(c.Request.Context(), channel)
	if err != nil {
		h.logger.Error("Failed to list templates", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"templates": templates})
}

func (h *TemplateHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name, channel and body required"})
		return
	}
	if !validChannel(req.Channel) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "channel must be email or sms"})
		return
	}

	tpl := &model.MessageTemplate{
		ID:      id,
		Name:    req.Name,
		Channel: req.Channel,
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := h.repo.Update(c.Request.Context(), tpl); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, tpl)
}

func (h *TemplateHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type renderRequest struct {
	ClientID     *int64            `json:"client_id"`
	TaskID       *int64            `json:"task_id"`
	InstrumentID *int64            `json:"instrument_id"`
	Extra        map[string]string `json:"extra"`
}

// Render produces a preview of the template against real records, so staff
// can check wording before sending anything.
func (h *TemplateHandler) Render(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req renderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid render request"})
		return
	}

	ctx := c.Request.Context()
	data := service.RenderContext{Extra: req.Extra}

	if req.ClientID != nil {
		client, err := h.clients.GetByID(ctx, *req.ClientID)
		if err != nil {
			fail(c, err)
			return
		}
		data.Client = client
	}
	if req.TaskID != nil {
		task, err := h.tasks.GetByID(ctx, *req.TaskID)
		if err != nil {
			fail(c, err)
			return
		}
		data.Task = task
	}
	if req.InstrumentID != nil {
		ins, err := h.instrRepo.GetByID(ctx, *req.InstrumentID)
		if err != nil {
			fail(c, err)
			return
		}
		data.Instrument = ins
	}

	subject, body, err := h.renderer.Render(ctx, id, data)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subject": subject, "body": body})
}
