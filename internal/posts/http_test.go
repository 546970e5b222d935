package posts

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/blog-api/internal/auth"
)

func newTestRouter(t *testing.T) (*gin.Engine, *testEnv, *auth.TokenIssuer) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := newTestService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	issuer := auth.NewTokenIssuer([]byte("posts-test-secret"))
	mw := auth.NewMiddleware(auth.NewGate(issuer), nil, logger)

	router := gin.New()
	RegisterRoutes(router.Group("/api/posts"), env.svc, mw.RequireAuth(), logger)
	return router, env, issuer
}

func bearer(t *testing.T, issuer *auth.TokenIssuer, ac auth.AuthContext) string {
	t.Helper()
	token, err := issuer.Issue(auth.Subject{ID: ac.UserID, Email: ac.Email})
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	return "Bearer " + token
}

func multipartPost(t *testing.T, fields map[string]string, withFile bool) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if withFile {
		fw, err := writer.CreateFormFile("thumbnail", "thumb.png")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		_, _ = fw.Write([]byte("png"))
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestCreateRequiresAuth(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body, ct := multipartPost(t, map[string]string{"title": "x"}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}

func TestCreateEditDeleteOverHTTP(t *testing.T) {
	router, env, issuer := newTestRouter(t)

	body, ct := multipartPost(t, map[string]string{
		"title": "Harvest", "category": "Agriculture", "description": "A long enough description",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/api/posts", body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, issuer, alice))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("unexpected create status: %d body=%s", rec.Code, rec.Body.String())
	}

	list, err := env.store.List(req.Context(), Filter{})
	if err != nil || len(list) != 1 {
		t.Fatalf("post not stored: %v %d", err, len(list))
	}
	id := list[0].ID

	body, ct = multipartPost(t, map[string]string{
		"title": "Hijack", "category": "Art", "description": "Someone else's edit",
	}, false)
	req = httptest.NewRequest(http.MethodPatch, "/api/posts/"+id, body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, issuer, bob))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unexpected edit status for non-owner: %d", rec.Code)
	}

	body, ct = multipartPost(t, map[string]string{
		"title": "Harvest 2", "category": "Agriculture", "description": "An updated description",
	}, false)
	req = httptest.NewRequest(http.MethodPatch, "/api/posts/"+id, body)
	req.Header.Set("Content-Type", ct)
	req.Header.Set("Authorization", bearer(t, issuer, alice))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected edit status: %d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"title":"Harvest 2"`) {
		t.Fatalf("unexpected edit body: %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/posts/"+id, nil)
	req.Header.Set("Authorization", bearer(t, issuer, alice))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected delete status: %d", rec.Code)
	}
	if env.counter.counts[alice.UserID] != 0 {
		t.Fatalf("post count not restored: %d", env.counter.counts[alice.UserID])
	}
}

func TestPublicListRoutes(t *testing.T) {
	router, _, _ := newTestRouter(t)

	for _, path := range []string{"/api/posts", "/api/posts/categories/Art", "/api/posts/users/alice-id"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("unexpected status for %s: %d", path, rec.Code)
		}
		if strings.TrimSpace(rec.Body.String()) != "[]" {
			t.Fatalf("unexpected body for %s: %s", path, rec.Body.String())
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: %d", rec.Code)
	}
}
