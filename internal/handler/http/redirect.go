package http

import (
	"LinkLoom-Backend/internal/cache"
	"LinkLoom-Backend/internal/clicks"
	"LinkLoom-Backend/internal/repository"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// RedirectHandler serves the resolution path: GET /{code}.
type RedirectHandler struct {
	storage   repository.Storage
	linkCache *cache.LinkCache
	recorder  clicks.Recorder
	log       *zap.Logger
}

// NewRedirectHandler creates the redirect handler. linkCache may be nil.
func NewRedirectHandler(storage repository.Storage, linkCache *cache.LinkCache, recorder clicks.Recorder, log *zap.Logger) *RedirectHandler {
	return &RedirectHandler{
		storage:   storage,
		linkCache: linkCache,
		recorder:  recorder,
		log:       log,
	}
}

// HandleRedirect resolves a code and responds with the redirect. Click
// accounting is dispatched fire-and-forget: its outcome never changes the
// response. Resolution errors are binary — a code either resolves or the
// caller gets the not-found body, never a 5xx.
//
//	@Summary		Resolve a short code
//	@Description	Redirect to the destination URL behind a short code
//	@Tags			Redirect
//	@Param			code	path	string	true	"Short code"
//	@Success		301		"Redirect to destination"
//	@Failure		404		{object}	map[string]string	"URL not found"
//	@Router			/{code} [get]
func (h *RedirectHandler) HandleRedirect(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/")

	if code == "" || isSystemPath(r.URL.Path) {
		h.writeNotFound(w)
		return
	}

	linkID, destination, ok := h.resolve(w, r, code)
	if !ok {
		return
	}

	h.submitClick(linkID, r)

	// Codes can be deleted later; intermediaries must not pin the mapping.
	w.Header().Set("Cache-Control", "no-store, max-age=0")
	http.Redirect(w, r, destination, http.StatusMovedPermanently)
}

// resolve looks the code up, through the cache when one is configured. On any
// failure it writes the not-found response and returns ok=false.
func (h *RedirectHandler) resolve(w http.ResponseWriter, r *http.Request, code string) (int64, string, bool) {
	if entry, hit := h.linkCache.Get(r.Context(), code); hit {
		return entry.LinkID, entry.DestinationURL, true
	}

	link, err := h.storage.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.log.Debug("code not found", zap.String("code", code))
		} else {
			h.log.Error("failed to resolve code", zap.String("code", code), zap.Error(err))
		}
		h.writeNotFound(w)
		return 0, "", false
	}

	h.linkCache.Set(r.Context(), code, &cache.Entry{
		LinkID:         link.ID,
		DestinationURL: link.OriginalURL,
	})
	return link.ID, link.OriginalURL, true
}

// submitClick hands the click to the accountant. Errors are logged and
// dropped; a broken accounting path must never break redirects.
func (h *RedirectHandler) submitClick(linkID int64, r *http.Request) {
	ip := extractIPAddress(r)
	userAgent := r.UserAgent()
	referer := r.Referer()

	click := &clicks.Click{
		LinkID:     linkID,
		OccurredAt: time.Now(),
	}
	if ip != "" {
		click.IPAddress = &ip
	}
	if userAgent != "" {
		click.UserAgent = &userAgent
	}
	if referer != "" {
		click.Referer = &referer
	}

	if err := h.recorder.Submit(click); err != nil {
		h.log.Warn("failed to submit click for accounting",
			zap.Int64("link_id", linkID),
			zap.Error(err))
	}
}

func (h *RedirectHandler) writeNotFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"error": "URL not found"}`))
}

// extractIPAddress pulls the client IP out of proxy headers, falling back to
// RemoteAddr.
func extractIPAddress(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		// X-Forwarded-For may contain a comma-separated list.
		ips := strings.Split(ip, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
