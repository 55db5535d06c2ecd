package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/util"
)

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)
	// Zero handlers are enough for routing and middleware assertions: the
	// role gate and the id parsing both run before any repository call.
	return NewRouter(Handlers{}, testSecret, zap.NewNop(), nil, nil)
}

func token(t *testing.T, userID int64, role string) string {
	t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}
	return tok
}

func doRequest(r *Router, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)
	return w
}

var deleteRoutes = []string{
	"/instruments",
	"/clients",
	"/tasks",
	"/templates",
}

func TestDeleteRoutes_StaffForbidden(t *testing.T) {
	r := newTestRouter(t)
	staff := token(t, 7, "staff")

	for _, route := range deleteRoutes {
		w := doRequest(r, http.MethodDelete, route+"/1", staff)
		if w.Code != http.StatusForbidden {
			t.Errorf("DELETE %s/1 as staff = %d, want %d", route, w.Code, http.StatusForbidden)
		}
	}
}

func TestDeleteRoutes_AdminPassesRoleGate(t *testing.T) {
	r := newTestRouter(t)
	admin := token(t, 1, "admin")

	// A non-numeric id stops the handler at validation, proving the
	// request got past the role gate without needing a live database.
	for _, route := range deleteRoutes {
		w := doRequest(r, http.MethodDelete, route+"/abc", admin)
		if w.Code != http.StatusBadRequest {
			t.Errorf("DELETE %s/abc as admin = %d, want %d", route, w.Code, http.StatusBadRequest)
		}
	}
}

func TestDeleteRoutes_MissingTokenUnauthorized(t *testing.T) {
	r := newTestRouter(t)

	for _, route := range deleteRoutes {
		w := doRequest(r, http.MethodDelete, route+"/1", "")
		if w.Code != http.StatusUnauthorized {
			t.Errorf("DELETE %s/1 without token = %d, want %d", route, w.Code, http.StatusUnauthorized)
		}
	}
}

func TestAdminRoutes_StaffForbidden(t *testing.T) {
	r := newTestRouter(t)
	staff := token(t, 7, "staff")

	w := doRequest(r, http.MethodPost, "/admin/outbox/1/replay", staff)
	if w.Code != http.StatusForbidden {
		t.Errorf("POST /admin/outbox/1/replay as staff = %d, want %d", w.Code, http.StatusForbidden)
	}
}
