package http

import (
	"LinkLoom-Backend/internal/auth"
	"LinkLoom-Backend/internal/cache"
	"LinkLoom-Backend/internal/domain"
	"LinkLoom-Backend/internal/repository"
	"LinkLoom-Backend/internal/service"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// LinksHandler serves the creation and management surface.
type LinksHandler struct {
	storage   repository.Storage
	shortener *service.Shortener
	linkCache *cache.LinkCache
	log       *zap.Logger
	baseURL   string
}

// NewLinksHandler creates the links handler. linkCache may be nil.
func NewLinksHandler(storage repository.Storage, shortener *service.Shortener, linkCache *cache.LinkCache, log *zap.Logger, baseURL string) *LinksHandler {
	return &LinksHandler{
		storage:   storage,
		shortener: shortener,
		linkCache: linkCache,
		log:       log,
		baseURL:   baseURL,
	}
}

// CreateLinkRequest is the creation payload.
type CreateLinkRequest struct {
	LongURL    string `json:"long_url"`
	CustomSlug string `json:"custom_slug,omitempty"`
	Title      string `json:"title,omitempty"`
}

// CreateLinkResponse is the creation result.
type CreateLinkResponse struct {
	ShortURL string `json:"short_url"`
	Code     string `json:"code"`
}

// LinkInfo is the list/stats view of a link.
type LinkInfo struct {
	Code         string `json:"code"`
	CodeOrigin   string `json:"code_origin"`
	OriginalURL  string `json:"original_url"`
	Title        string `json:"title,omitempty"`
	ClickCount   int64  `json:"click_count"`
	VerifiedSafe bool   `json:"verified_safe"`
	QRAssetRef   string `json:"qr_asset_ref,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// ListLinksResponse wraps the link list.
type ListLinksResponse struct {
	Links []LinkInfo `json:"links"`
}

// GetStatsResponse is the per-link stats view.
type GetStatsResponse struct {
	LinkInfo
	ClicksByDevice map[string]int64 `json:"clicks_by_device"`
}

// SetQRRequest attaches a QR artifact reference produced by the side process.
type SetQRRequest struct {
	AssetRef string `json:"asset_ref"`
}

// CreateLink creates a new short link. Anonymous callers may create links with
// system codes; custom slugs require an authenticated principal whose plan
// allows them.
//
//	@Summary		Create a short link
//	@Description	Shorten a long URL, optionally under a custom slug
//	@Tags			Links
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateLinkRequest	true	"Link creation request"
//	@Success		201		{object}	CreateLinkResponse	"Link created successfully"
//	@Failure		400		{object}	map[string]string	"Invalid URL or slug"
//	@Failure		403		{object}	map[string]string	"Custom slugs not allowed"
//	@Failure		409		{object}	map[string]string	"Slug already taken"
//	@Failure		503		{object}	map[string]string	"Could not allocate a code, retry"
//	@Router			/api/shorten [post]
func (h *LinksHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req CreateLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	createReq := service.CreateRequest{
		OriginalURL: req.LongURL,
		CustomSlug:  req.CustomSlug,
		Title:       req.Title,
	}

	if userID, ok := auth.GetUserIDFromContext(r.Context()); ok {
		createReq.UserID = &userID
	}

	if req.CustomSlug != "" {
		// Authorization happens before the reserve step; the service assumes
		// custom-slug use is already allowed.
		allowed, err := h.mayUseCustomSlug(r.Context(), createReq.UserID)
		if err != nil {
			h.log.Error("failed to check custom slug access", zap.Error(err))
			h.writeError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !allowed {
			h.writeError(w, "Custom slugs are not available on your current plan", http.StatusForbidden)
			return
		}
	}

	link, err := h.shortener.Create(r.Context(), createReq)
	if err != nil {
		h.writeCreateError(w, err)
		return
	}

	code := link.Code().Value
	h.log.Info("created link",
		zap.String("code", code),
		zap.String("origin", string(link.Code().Origin)))

	h.writeJSON(w, CreateLinkResponse{
		ShortURL: h.baseURL + "/" + code,
		Code:     code,
	}, http.StatusCreated)
}

// writeCreateError maps the creation error taxonomy to response codes.
func (h *LinksHandler) writeCreateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidDestination):
		h.writeError(w, "A well-formed http(s) URL is required", http.StatusBadRequest)
	case errors.Is(err, service.ErrInvalidSlug):
		h.writeError(w, "Custom slug may only contain letters, digits, '-' and '_'", http.StatusBadRequest)
	case errors.Is(err, service.ErrSlugTaken):
		h.writeError(w, "This slug is already taken", http.StatusConflict)
	case errors.Is(err, service.ErrGenerationExhausted):
		h.writeError(w, "Could not allocate a short code, please retry", http.StatusServiceUnavailable)
	default:
		h.log.Error("failed to create link", zap.Error(err))
		h.writeError(w, "Failed to create link", http.StatusInternalServerError)
	}
}

// ListLinks returns the authenticated user's links.
//
//	@Summary		List links
//	@Description	List all links owned by the authenticated user
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	ListLinksResponse
//	@Router			/api/links [get]
func (h *LinksHandler) ListLinks(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return
	}

	links, err := h.storage.ListUserLinks(r.Context(), userID)
	if err != nil {
		h.log.Error("failed to list user links", zap.Int64("user_id", userID), zap.Error(err))
		h.writeError(w, "Failed to retrieve links", http.StatusInternalServerError)
		return
	}

	linkInfos := make([]LinkInfo, len(links))
	for i, link := range links {
		linkInfos[i] = toLinkInfo(link)
	}

	h.writeJSON(w, ListLinksResponse{Links: linkInfos}, http.StatusOK)
}

// GetStats returns click statistics for one of the user's links.
//
//	@Summary		Link statistics
//	@Description	Click count and per-device breakdown for a link
//	@Tags			Links
//	@Produce		json
//	@Security		BearerAuth
//	@Param			code	path		string	true	"Short code"
//	@Success		200		{object}	GetStatsResponse
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Router			/api/stats/{code} [get]
func (h *LinksHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedLink(w, r)
	if !ok {
		return
	}

	clicksByDevice, err := h.storage.ClicksByDevice(r.Context(), link.ID)
	if err != nil {
		h.log.Error("failed to get clicks by device", zap.Int64("link_id", link.ID), zap.Error(err))
		clicksByDevice = make(map[string]int64)
	}

	h.writeJSON(w, GetStatsResponse{
		LinkInfo:       toLinkInfo(link),
		ClicksByDevice: clicksByDevice,
	}, http.StatusOK)
}

// DeleteLink removes one of the user's links. The code is permanently retired,
// never recycled, and the cached resolution is invalidated immediately.
//
//	@Summary		Delete a link
//	@Description	Delete a link by its short code
//	@Tags			Links
//	@Security		BearerAuth
//	@Param			code	path	string	true	"Short code"
//	@Success		204		"Link deleted successfully"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Router			/api/links/{code} [delete]
func (h *LinksHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedLink(w, r)
	if !ok {
		return
	}

	if err := h.storage.DeleteLink(r.Context(), link.ID); err != nil {
		h.log.Error("failed to delete link", zap.Int64("link_id", link.ID), zap.Error(err))
		h.writeError(w, "Failed to delete link", http.StatusInternalServerError)
		return
	}

	h.linkCache.Invalidate(r.Context(), link.Code().Value)

	h.log.Info("deleted link", zap.Int64("link_id", link.ID), zap.String("code", link.Code().Value))
	w.WriteHeader(http.StatusNoContent)
}

// SetQR stores the QR artifact reference for one of the user's links.
//
//	@Summary		Attach a QR asset
//	@Description	Store the reference of a generated QR image for a link
//	@Tags			Links
//	@Accept			json
//	@Security		BearerAuth
//	@Param			code	path	string		true	"Short code"
//	@Param			request	body	SetQRRequest	true	"QR asset reference"
//	@Success		204		"Reference stored"
//	@Failure		404		{object}	map[string]string	"Link not found"
//	@Router			/api/links/{code}/qr [put]
func (h *LinksHandler) SetQR(w http.ResponseWriter, r *http.Request) {
	link, ok := h.ownedLink(w, r)
	if !ok {
		return
	}

	var req SetQRRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.AssetRef == "" {
		h.writeError(w, "asset_ref is required", http.StatusBadRequest)
		return
	}

	if err := h.storage.SetQRAssetRef(r.Context(), link.ID, req.AssetRef); err != nil {
		h.log.Error("failed to set qr asset ref", zap.Int64("link_id", link.ID), zap.Error(err))
		h.writeError(w, "Failed to store QR reference", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ownedLink extracts the code from the URL path, loads the link, and enforces
// that it belongs to the authenticated principal. On failure it writes the
// response and returns ok=false.
func (h *LinksHandler) ownedLink(w http.ResponseWriter, r *http.Request) (*domain.Link, bool) {
	code := extractCodeFromPath(r.URL.Path)
	if code == "" {
		h.writeError(w, "Code is required", http.StatusBadRequest)
		return nil, false
	}

	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		h.writeError(w, "User ID not found in context", http.StatusUnauthorized)
		return nil, false
	}

	link, err := h.storage.FindByCode(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			h.writeError(w, "Link not found", http.StatusNotFound)
			return nil, false
		}
		h.log.Error("failed to get link", zap.String("code", code), zap.Error(err))
		h.writeError(w, "Failed to retrieve link", http.StatusInternalServerError)
		return nil, false
	}

	if link.UserID == nil || *link.UserID != userID {
		h.writeError(w, "Access denied", http.StatusForbidden)
		return nil, false
	}

	return link, true
}

// mayUseCustomSlug is the authorization collaborator's decision: anonymous
// principals never qualify, registered ones qualify when their plan has the
// custom-slug feature.
func (h *LinksHandler) mayUseCustomSlug(ctx context.Context, userID *int64) (bool, error) {
	if userID == nil {
		return false, nil
	}

	user, err := h.storage.GetUserByID(ctx, *userID)
	if err != nil {
		return false, fmt.Errorf("failed to get user: %w", err)
	}

	subscription, err := h.storage.GetSubscriptionType(ctx, user.SubscriptionTypeID)
	if err != nil {
		return false, fmt.Errorf("failed to get subscription: %w", err)
	}

	return subscription.CustomSlugs, nil
}

// extractCodeFromPath pulls the {code} segment out of /api/stats/{code},
// /api/links/{code} and /api/links/{code}/qr.
func extractCodeFromPath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 3 || parts[2] == "" {
		return ""
	}
	return parts[2]
}

func toLinkInfo(link *domain.Link) LinkInfo {
	info := LinkInfo{
		Code:         link.Code().Value,
		CodeOrigin:   string(link.Code().Origin),
		OriginalURL:  link.OriginalURL,
		ClickCount:   link.ClickCount,
		VerifiedSafe: link.VerifiedSafe,
		CreatedAt:    link.CreatedAt.Format(time.RFC3339),
	}
	if link.Title != nil {
		info.Title = *link.Title
	}
	if link.QRAssetRef != nil {
		info.QRAssetRef = *link.QRAssetRef
	}
	return info
}

// Helper methods

func (h *LinksHandler) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func (h *LinksHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
