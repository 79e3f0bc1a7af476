package http

import (
	"LinkLoom-Backend/internal/clicks"
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository/memory"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// captureRecorder collects submitted clicks instead of accounting them.
type captureRecorder struct {
	mu     sync.Mutex
	clicks []*clicks.Click
	err    error
}

func (r *captureRecorder) Submit(click *clicks.Click) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.clicks = append(r.clicks, click)
	return nil
}

func (r *captureRecorder) submitted() []*clicks.Click {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*clicks.Click(nil), r.clicks...)
}

func seedLink(t *testing.T, storage *memory.Storage, code domain.Code, destination string) *domain.Link {
	t.Helper()
	link := &domain.Link{OriginalURL: destination}
	link.SetCode(code)
	require.NoError(t, storage.InsertLink(context.Background(), link))
	return link
}

func TestHandleRedirect(t *testing.T) {
	t.Run("resolves_system_code", func(t *testing.T) {
		storage := memory.New()
		seedLink(t, storage, domain.SystemCode("abc123"), "https://example.com/target")
		recorder := &captureRecorder{}
		h := NewRedirectHandler(storage, nil, recorder, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
		w := httptest.NewRecorder()
		h.HandleRedirect(w, req)

		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "https://example.com/target", w.Header().Get("Location"))
		assert.Equal(t, "no-store, max-age=0", w.Header().Get("Cache-Control"))
	})

	t.Run("resolves_custom_slug", func(t *testing.T) {
		storage := memory.New()
		seedLink(t, storage, domain.CustomCode("my-launch"), "https://example.com/launch")
		h := NewRedirectHandler(storage, nil, &captureRecorder{}, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/my-launch", nil)
		w := httptest.NewRecorder()
		h.HandleRedirect(w, req)

		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "https://example.com/launch", w.Header().Get("Location"))
	})

	t.Run("unknown_code_gets_json_404", func(t *testing.T) {
		h := NewRedirectHandler(memory.New(), nil, &captureRecorder{}, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/nosuch", nil)
		w := httptest.NewRecorder()
		h.HandleRedirect(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.JSONEq(t, `{"error": "URL not found"}`, w.Body.String())
	})

	t.Run("deleted_code_is_gone_but_reserved", func(t *testing.T) {
		storage := memory.New()
		link := seedLink(t, storage, domain.SystemCode("gone12"), "https://example.com")
		require.NoError(t, storage.DeleteLink(context.Background(), link.ID))
		h := NewRedirectHandler(storage, nil, &captureRecorder{}, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/gone12", nil)
		w := httptest.NewRecorder()
		h.HandleRedirect(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)

		exists, err := storage.CodeExists(context.Background(), "gone12")
		require.NoError(t, err)
		assert.True(t, exists, "deleted codes stay reserved")
	})

	t.Run("repeated_resolution_is_idempotent", func(t *testing.T) {
		storage := memory.New()
		seedLink(t, storage, domain.SystemCode("stable"), "https://example.com/stable")
		recorder := &captureRecorder{}
		h := NewRedirectHandler(storage, nil, recorder, zap.NewNop())

		resolve := func() *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			h.HandleRedirect(w, httptest.NewRequest(http.MethodGet, "/stable", nil))
			return w
		}

		for i := 0; i < 5; i++ {
			w := resolve()
			require.Equal(t, http.StatusMovedPermanently, w.Code)
			assert.Equal(t, "https://example.com/stable", w.Header().Get("Location"))
		}

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				w := resolve()
				assert.Equal(t, http.StatusMovedPermanently, w.Code)
				assert.Equal(t, "https://example.com/stable", w.Header().Get("Location"))
			}()
		}
		wg.Wait()

		assert.Len(t, recorder.submitted(), 9, "every resolution submits exactly one click")
	})

	t.Run("click_submitted_with_client_metadata", func(t *testing.T) {
		storage := memory.New()
		link := seedLink(t, storage, domain.SystemCode("abc123"), "https://example.com")
		recorder := &captureRecorder{}
		h := NewRedirectHandler(storage, nil, recorder, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
		req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)")
		req.Header.Set("Referer", "https://news.example.org/post")
		req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
		w := httptest.NewRecorder()
		h.HandleRedirect(w, req)

		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		submitted := recorder.submitted()
		require.Len(t, submitted, 1)
		click := submitted[0]
		assert.Equal(t, link.ID, click.LinkID)
		require.NotNil(t, click.IPAddress)
		assert.Equal(t, "203.0.113.9", *click.IPAddress)
		require.NotNil(t, click.UserAgent)
		require.NotNil(t, click.Referer)
		assert.Equal(t, "https://news.example.org/post", *click.Referer)
	})

	t.Run("recorder_failure_does_not_break_redirect", func(t *testing.T) {
		storage := memory.New()
		seedLink(t, storage, domain.SystemCode("abc123"), "https://example.com")
		recorder := &captureRecorder{err: assert.AnError}
		h := NewRedirectHandler(storage, nil, recorder, zap.NewNop())

		req := httptest.NewRequest(http.MethodGet, "/abc123", nil)
		w := httptest.NewRecorder()
		h.HandleRedirect(w, req)

		assert.Equal(t, http.StatusMovedPermanently, w.Code)
	})

	t.Run("system_paths_never_resolve", func(t *testing.T) {
		storage := memory.New()
		h := NewRedirectHandler(storage, nil, &captureRecorder{}, zap.NewNop())

		for _, path := range []string{"/", "/health", "/api/shorten", "/favicon.ico"} {
			req := httptest.NewRequest(http.MethodGet, path, nil)
			w := httptest.NewRecorder()
			h.HandleRedirect(w, req)
			assert.Equal(t, http.StatusNotFound, w.Code, "path %s", path)
		}
	})
}

func TestExtractIPAddress(t *testing.T) {
	t.Run("x_forwarded_for_first_hop", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
		assert.Equal(t, "203.0.113.9", extractIPAddress(req))
	})

	t.Run("x_real_ip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Real-IP", "198.51.100.4")
		assert.Equal(t, "198.51.100.4", extractIPAddress(req))
	})

	t.Run("remote_addr_fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "192.0.2.1:56789"
		assert.Equal(t, "192.0.2.1", extractIPAddress(req))
	})
}
