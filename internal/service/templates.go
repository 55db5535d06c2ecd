package service

import (
	"bytes"
	"context"
	"text/template"

	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

// RenderContext is the data a message template can reference.
type RenderContext struct {
	Client     *model.Client
	Task       *model.MaintenanceTask
	Instrument *model.Instrument
	Extra      map[string]string
}

// TemplateService renders stored email/SMS templates against client and
// task data. Templates use Go text/template syntax.
type TemplateService struct {
	repo   *repository.TemplateRepository
	logger *zap.Logger
}

func NewTemplateService(repo *repository.TemplateRepository, logger *zap.Logger) *TemplateService {
	return &TemplateService{repo: repo, logger: logger}
}

// Render loads a template by id and renders subject and body. A template
// that fails to parse or references missing data is a validation error;
// the stored template is user-authored input, not trusted code.
func (s *TemplateService) Render(ctx context.Context, templateID int64, data RenderContext) (subject, body string, err error) {
	tpl, err := s.repo.GetByID(ctx, templateID)
	if err != nil {
		return "", "", err
	}
	return s.render(tpl, data)
}

// RenderByName renders the named template, used by the digest sender.
func (s *TemplateService) RenderByName(ctx context.Context, name string, data RenderContext) (subject, body string, err error) {
	tpl, err := s.repo.GetByName(ctx, name)
	if err != nil {
		return "", "", err
	}
	return s.render(tpl, data)
}

func (s *TemplateService) render(tpl *model.MessageTemplate, data RenderContext) (string, string, error) {
	subject, err := execute(tpl.Name+":subject", tpl.Subject, data)
	if err != nil {
		s.logger.Warn("Template subject failed to render",
			zap.String("template", tpl.Name),
			zap.Error(err),
		)
		return "", "", apperr.Wrap(apperr.KindValidation, "render template subject", err)
	}

	body, err := execute(tpl.Name+":body", tpl.Body, data)
	if err != nil {
		s.logger.Warn("Template body failed to render",
			zap.String("template", tpl.Name),
			zap.Error(err),
		)
		return "", "", apperr.Wrap(apperr.KindValidation, "render template body", err)
	}

	return subject, body, nil
}

func execute(name, text string, data any) (string, error) {
	t, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
