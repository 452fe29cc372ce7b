package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/feedstore/internal/logger"
	"github.com/marmos91/feedstore/pkg/feedstore"
)

// NewRouter builds the chi router for the introspection API.
//
// Routes:
//   - GET  /health              - liveness probe
//   - GET  /api/v1/feeds        - list open/known feeds
//   - GET  /api/v1/feeds/*      - descriptor detail for one feed path
//   - POST /api/v1/feeds/*      - open (and optionally create) a feed
//   - POST /api/v1/feeds/*/close - close a feed, keeping its descriptor
//   - DELETE /api/v1/feeds/*    - forget a feed's descriptor; an open feed is not closed
//
// When issuer is non-nil, POST/DELETE routes require a valid bearer token.
func NewRouter(store *feedstore.FeedStore, issuer *TokenIssuer) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		JSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	h := NewHandler(store)

	r.Route("/api/v1/feeds", func(r chi.Router) {
		r.Get("/", h.ListFeeds)
		r.Get("/*", h.GetFeed)

		r.Group(func(r chi.Router) {
			if issuer != nil {
				r.Use(RequireBearer(issuer))
			}
			r.Post("/*", dispatchOpenOrClose(h))
			r.Delete("/*", h.DeleteFeed)
		})
	})

	return r
}

// dispatchOpenOrClose routes POST /feeds/{path} to OpenFeed and
// POST /feeds/{path}/close to CloseFeed, since chi matches the longer
// literal suffix before the wildcard only when registered as a sibling
// route; folding both into one handler avoids registering "*/close" as
// a second wildcard route that would shadow plain opens.
func dispatchOpenOrClose(h *Handler) http.HandlerFunc {
	const closeSuffix = "/close"
	return func(w http.ResponseWriter, r *http.Request) {
		path := chi.URLParam(r, "*")
		if len(path) > len(closeSuffix) && path[len(path)-len(closeSuffix):] == closeSuffix {
			chi.RouteContext(r.Context()).URLParams.Add("*", path[:len(path)-len(closeSuffix)])
			h.CloseFeed(w, r)
			return
		}
		h.OpenFeed(w, r)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("feedstore api request started",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("feedstore api request completed",
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
		)
	})
}
