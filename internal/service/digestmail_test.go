package service

import (
	"strings"
	"testing"

	"github.com/mjaychoi/hc-violins/internal/digest"
	"github.com/mjaychoi/hc-violins/internal/model"
)

func TestRenderDigest(t *testing.T) {
	d := &digest.Digest{
		UserID: 1,
		Overdue: []digest.Entry{
			{Task: model.MaintenanceTask{Title: "Crack repair"}, Days: 3},
			{Task: model.MaintenanceTask{Title: "Bridge fitting"}, Days: 1},
		},
		Today: []digest.Entry{
			{Task: model.MaintenanceTask{Title: "String change"}, Days: 0},
		},
		Upcoming: []digest.Entry{
			{Task: model.MaintenanceTask{Title: "Bow rehair"}, Days: 2},
		},
	}

	subject, body, err := RenderDigest(d)
	if err != nil {
		t.Fatalf("RenderDigest returned error: %v", err)
	}

	if subject != "Workshop tasks: 2 overdue, 1 due today, 1 coming up" {
		t.Errorf("subject = %q", subject)
	}

	for _, want := range []string{
		"OVERDUE",
		"Crack repair (3 days late)",
		"Bridge fitting (1 day late)",
		"DUE TODAY",
		"String change",
		"COMING UP",
		"Bow rehair (in 2 days)",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q\nbody:\n%s", want, body)
		}
	}

	// Ordering inside the body follows bucket order.
	if strings.Index(body, "Crack repair") > strings.Index(body, "String change") {
		t.Error("overdue section should come before due-today section")
	}
}

func TestRenderDigestOmitsEmptySections(t *testing.T) {
	d := &digest.Digest{
		UserID: 1,
		Today: []digest.Entry{
			{Task: model.MaintenanceTask{Title: "Tailpiece swap"}, Days: 0},
		},
	}

	_, body, err := RenderDigest(d)
	if err != nil {
		t.Fatalf("RenderDigest returned error: %v", err)
	}
	if strings.Contains(body, "OVERDUE") {
		t.Error("body should omit the OVERDUE header when nothing is overdue")
	}
	if strings.Contains(body, "COMING UP") {
		t.Error("body should omit the COMING UP header when nothing is upcoming")
	}
	if !strings.Contains(body, "DUE TODAY") {
		t.Error("body should keep the DUE TODAY section")
	}
}
