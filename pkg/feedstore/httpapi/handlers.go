package httpapi

import (
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/feedstore/pkg/feedstore"
)

// Handler serves the introspection API's routes against one FeedStore.
type Handler struct {
	store *feedstore.FeedStore
}

// NewHandler wraps a store for HTTP handling.
func NewHandler(store *feedstore.FeedStore) *Handler {
	return &Handler{store: store}
}

type descriptorView struct {
	Path          string `json:"path"`
	Key           string `json:"key"`
	DiscoveryKey  string `json:"discoveryKey"`
	ValueEncoding string `json:"valueEncoding"`
	State         string `json:"state"`
	Length        uint64 `json:"length,omitempty"`
}

func describe(d *feedstore.FeedDescriptor) descriptorView {
	rec := d.Record()
	view := descriptorView{
		Path:          rec.Path,
		Key:           hex.EncodeToString(rec.Key),
		ValueEncoding: rec.ValueEncoding,
		State:         d.State().String(),
	}
	if dk := d.DiscoveryKey; dk != nil {
		view.DiscoveryKey = hex.EncodeToString(dk)
	}
	if feed := d.Feed(); feed != nil {
		view.Length = feed.Length()
	}
	return view
}

// ListFeeds handles GET /api/v1/feeds.
func (h *Handler) ListFeeds(w http.ResponseWriter, r *http.Request) {
	descriptors := h.store.GetDescriptors()
	views := make([]descriptorView, 0, len(descriptors))
	for _, d := range descriptors {
		views = append(views, describe(d))
	}
	JSON(w, http.StatusOK, views)
}

// GetFeed handles GET /api/v1/feeds/{path}.
func (h *Handler) GetFeed(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	for _, d := range h.store.GetDescriptors() {
		if d.Path == path {
			JSON(w, http.StatusOK, describe(d))
			return
		}
	}
	Err(w, http.StatusNotFound, "feed not found: "+path)
}

type openFeedRequest struct {
	Key           string `json:"key"`
	SecretKey     string `json:"secretKey,omitempty"`
	ValueEncoding string `json:"valueEncoding,omitempty"`
}

// OpenFeed handles POST /api/v1/feeds/{path}.
func (h *Handler) OpenFeed(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")

	var req openFeedRequest
	if err := decodeJSON(r, &req); err != nil {
		Err(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := feedstore.OpenFeedOptions{
		ValueEncoding: req.ValueEncoding,
	}
	if req.Key != "" {
		key, err := hex.DecodeString(req.Key)
		if err != nil {
			Err(w, http.StatusBadRequest, "key must be hex-encoded")
			return
		}
		opts.Key = key
	}
	if req.SecretKey != "" {
		secretKey, err := hex.DecodeString(req.SecretKey)
		if err != nil {
			Err(w, http.StatusBadRequest, "secretKey must be hex-encoded")
			return
		}
		opts.SecretKey = secretKey
	}

	d, err := h.store.OpenFeed(r.Context(), path, opts)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	JSON(w, http.StatusOK, describe(d))
}

// CloseFeed handles POST /api/v1/feeds/{path}/close.
func (h *Handler) CloseFeed(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	if err := h.store.CloseFeed(r.Context(), path); err != nil {
		writeStoreError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"path": path, "state": "closed"})
}

// DeleteFeed handles DELETE /api/v1/feeds/{path}.
func (h *Handler) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	path := "/" + chi.URLParam(r, "*")
	if err := h.store.DeleteDescriptor(r.Context(), path); err != nil {
		writeStoreError(w, err)
		return
	}
	JSON(w, http.StatusOK, map[string]string{"path": path, "state": "deleted"})
}

func writeStoreError(w http.ResponseWriter, err error) {
	var fsErr *feedstore.FeedStoreError
	if !errors.As(err, &fsErr) {
		Err(w, http.StatusInternalServerError, err.Error())
		return
	}
	switch fsErr.Kind {
	case feedstore.ErrNotFound:
		Err(w, http.StatusNotFound, fsErr.Error())
	case feedstore.ErrMissingPath, feedstore.ErrBadKey, feedstore.ErrBadSecretKey, feedstore.ErrBadEncoding:
		Err(w, http.StatusBadRequest, fsErr.Error())
	case feedstore.ErrKeyMismatch, feedstore.ErrDuplicateKey:
		Err(w, http.StatusConflict, fsErr.Error())
	case feedstore.ErrClosed:
		Err(w, http.StatusServiceUnavailable, fsErr.Error())
	case feedstore.ErrTimeout:
		Err(w, http.StatusGatewayTimeout, fsErr.Error())
	default:
		Err(w, http.StatusInternalServerError, fsErr.Error())
	}
}
