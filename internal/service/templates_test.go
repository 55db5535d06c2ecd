package service

import (
	"testing"

	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/pkg/apperr"
)

func TestTemplateRender(t *testing.T) {
	svc := &TemplateService{logger: zap.NewNop()}

	tpl := &model.MessageTemplate{
		Name:    "pickup-ready",
		Channel: model.TemplateChannelEmail,
		Subject: "Your {{.Instrument.Kind}} is ready",
		Body:    "Dear {{.Client.Name}},\n\nThe work on your {{.Instrument.Maker}} is complete.",
	}
	data := RenderContext{
		Client:     &model.Client{Name: "Anna Weiss"},
		Instrument: &model.Instrument{Kind: model.InstrumentKindViolin, Maker: "Collin-Mezin"},
	}

	subject, body, err := svc.render(tpl, data)
	if err != nil {
		t.Fatalf("render returned error: %v", err)
	}
	if subject != "Your violin is ready" {
		t.Errorf("subject = %q", subject)
	}
	if want := "Dear Anna Weiss,"; body[:len(want)] != want {
		t.Errorf("body = %q", body)
	}
}

func TestTemplateRenderBadSyntaxIsValidation(t *testing.T) {
	svc := &TemplateService{logger: zap.NewNop()}

	tpl := &model.MessageTemplate{
		Name:    "broken",
		Channel: model.TemplateChannelEmail,
		Subject: "{{.Client.Name",
		Body:    "irrelevant",
	}

	_, _, err := svc.render(tpl, RenderContext{})
	if err == nil {
		t.Fatal("expected error for unterminated action")
	}
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("kind = %v, want validation", apperr.KindOf(err))
	}
}
