package documents

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/flowhq/ragchat/internal/retrieval"
)

func newProxyRouter(upstream *httptest.Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	client := retrieval.NewClient(upstream.URL, "key-1")
	handler := NewHandler(client, zap.NewNop())

	r := gin.New()
	handler.RegisterRoutes(r.Group("/api/documents"))
	return r
}

func TestDocumentsProxy_List(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"documents":[{"id":"d1","name":"policy.pdf","status":"ready"}]}`)
	}))
	defer upstream.Close()

	router := newProxyRouter(upstream)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Documents []struct {
			ID string `json:"id"`
		} `json:"documents"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Documents) != 1 || resp.Documents[0].ID != "d1" {
		t.Errorf("unexpected documents %+v", resp.Documents)
	}
}

func TestDocumentsProxy_PreservesUpstreamStatusAndDetail(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"detail":"unsupported file type"}`)
	}))
	defer upstream.Close()

	router := newProxyRouter(upstream)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents", nil))

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want upstream 422", w.Code)
	}
	if !strings.Contains(w.Body.String(), "unsupported file type") {
		t.Errorf("detail lost: %s", w.Body.String())
	}
}

func TestDocumentsProxy_GetNotFound(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"detail":"no such document"}`)
	}))
	defer upstream.Close()

	router := newProxyRouter(upstream)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/documents/missing", nil))

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestDocumentsProxy_Delete(t *testing.T) {
	var method, path string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		fmt.Fprint(w, `{}`)
	}))
	defer upstream.Close()

	router := newProxyRouter(upstream)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/documents/d1", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if method != http.MethodDelete || path != "/documents/d1" {
		t.Errorf("upstream saw %s %s", method, path)
	}
}
