package handler

import (
	"fmt"

	"tiny-url-service/cache"
	"tiny-url-service/config"
	"tiny-url-service/csvjob"
	"tiny-url-service/qr"
	"tiny-url-service/shortener"
	"tiny-url-service/store"
)

// Handler wires the HTTP surface to the lifecycle controller and the two
// background pipelines.
type Handler struct {
	shortener   *shortener.Service
	qrPipeline  *qr.Pipeline
	csvPipeline *csvjob.Pipeline
	store       *store.Store
	cache       *cache.Cache
	config      config.Config
	baseURL     string
}

// New creates the handler with dependency injection
func New(
	svc *shortener.Service,
	qrPipeline *qr.Pipeline,
	csvPipeline *csvjob.Pipeline,
	st *store.Store,
	cacheClient *cache.Cache,
	cfg config.Config,
) *Handler {
	// Use configured base_url if provided, otherwise construct from scheme, IP, and port
	baseURL := cfg.WebServer.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s://%s:%s", cfg.WebServer.Scheme, cfg.WebServer.IP, cfg.WebServer.Port)
	}
	return &Handler{
		shortener:   svc,
		qrPipeline:  qrPipeline,
		csvPipeline: csvPipeline,
		store:       st,
		cache:       cacheClient,
		config:      cfg,
		baseURL:     baseURL,
	}
}

func (h *Handler) shortLink(hash string) string {
	return fmt.Sprintf("%s/tiny-%s", h.baseURL, hash)
}

func (h *Handler) qrLink(hash string) string {
	return fmt.Sprintf("%s/qr/%s", h.baseURL, hash)
}
