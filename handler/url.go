package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"tiny-url-service/model"
	"tiny-url-service/qr"
	"tiny-url-service/shortener"
	"tiny-url-service/utils"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// shortenRequest is the JSON body of POST /api/link. QR format fields are
// optional and fall back to the defaults.
type shortenRequest struct {
	URL                    string `json:"url"`
	QR                     bool   `json:"qr,omitempty"`
	QRHeight               int    `json:"qrHeight,omitempty"`
	QRWidth                int    `json:"qrWidth,omitempty"`
	QRColor                string `json:"qrColor,omitempty"`
	QRBackground           string `json:"qrBackground,omitempty"`
	QRImageType            string `json:"qrImageType,omitempty"`
	QRErrorCorrectionLevel string `json:"qrErrorCorrectionLevel,omitempty"`
	Sponsor                string `json:"sponsor,omitempty"`
}

func (req *shortenRequest) format() model.Format {
	format := model.DefaultFormat()
	if req.QRHeight != 0 {
		format.Height = req.QRHeight
	}
	if req.QRWidth != 0 {
		format.Width = req.QRWidth
	}
	if req.QRColor != "" {
		format.Color = req.QRColor
	}
	if req.QRBackground != "" {
		format.Background = req.QRBackground
	}
	if req.QRImageType != "" {
		format.ImageType = req.QRImageType
	}
	if req.QRErrorCorrectionLevel != "" {
		format.ErrorCorrectionLevel = req.QRErrorCorrectionLevel
	}
	return format
}

// CreateShortURL handles POST /api/link
func (h *Handler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	var req shortenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error().Err(err).Msg("Failed to parse shorten request")
		SendJSONError(w, http.StatusBadRequest, err, "Request body must be valid JSON")
		return
	}

	// The QR format is validated before the URL is persisted so a bad format
	// never leaves an orphaned record behind a failed response
	var format model.Format
	if req.QR {
		format = req.format()
		if err := qr.ValidateFormat(format); err != nil {
			SendJSONError(w, http.StatusBadRequest, err, "Invalid QR format")
			return
		}
	}

	su, err := h.shortener.Create(ctx, req.URL, shortener.Metadata{
		IP:      clientIP(r),
		Sponsor: req.Sponsor,
	})
	if err != nil {
		status := http.StatusBadRequest
		if !isValidationError(err) && !errors.Is(err, utils.ErrNotReachable) {
			status = http.StatusInternalServerError
		}
		SendJSONError(w, status, err, "Could not create short URL")
		return
	}

	response := ShortURLResponse{
		OriginalURL: su.Target,
		ShortURL:    h.shortLink(su.Hash),
		Validated:   su.Validated,
		Reachable:   su.Reachable,
	}

	if req.QR {
		if err := h.qrPipeline.Enqueue(ctx, su.Hash, format); err != nil {
			log.Error().Err(err).Str("hash", su.Hash).Msg("Failed to enqueue QR task")
			SendJSONError(w, http.StatusInternalServerError, err, "Could not schedule QR generation")
			return
		}
		response.QRCodeURL = h.qrLink(su.Hash)
	}

	SendJSONSuccess(w, http.StatusCreated, response)
}

// RedirectURL handles GET /tiny-{hash}
func (h *Handler) RedirectURL(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	hash := mux.Vars(r)["hash"]

	su, found := h.cache.GetShortURL(hash)
	if !found {
		var err error
		su, err = h.shortener.Resolve(ctx, hash)
		if err != nil {
			h.sendResolveError(w, hash, err)
			return
		}
		h.cache.SetShortURL(su)
	}

	// Click logging must never delay the redirect
	click := &model.Click{
		Hash:       hash,
		IP:         clientIP(r),
		Browser:    clientBrowser(r.UserAgent()),
		Platform:   clientPlatform(r.UserAgent()),
		AccessedAt: time.Now().UTC(),
	}
	go h.shortener.LogClick(click)

	http.Redirect(w, r, su.Target, su.StatusCode)
}

// GetInfo handles GET /api/info/{hash} - returns the click log for a hash
func (h *Handler) GetInfo(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	hash := mux.Vars(r)["hash"]

	clicks, err := h.shortener.Info(ctx, hash)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			SendJSONError(w, http.StatusNotFound, err, "Short URL does not exist")
			return
		}
		SendJSONError(w, http.StatusInternalServerError, err, "Could not fetch click info")
		return
	}

	SendJSONSuccess(w, http.StatusOK, clicks)
}

// sendResolveError maps the lifecycle taxonomy onto HTTP statuses. A pending
// probe is reported distinctly from a confirmed-dead target.
func (h *Handler) sendResolveError(w http.ResponseWriter, hash string, err error) {
	switch {
	case errors.Is(err, utils.ErrNotFound):
		SendJSONError(w, http.StatusNotFound, err, "Short URL does not exist")
	case errors.Is(err, utils.ErrNotValidatedYet):
		SendJSONError(w, http.StatusBadRequest, err, "URL validation is still in progress, retry shortly")
	case errors.Is(err, utils.ErrNotReachable):
		SendJSONError(w, http.StatusBadRequest, err, "Target URL was confirmed unreachable")
	default:
		log.Error().Err(err).Str("hash", hash).Msg("Failed to resolve short URL")
		SendJSONError(w, http.StatusInternalServerError, err, "Could not resolve short URL")
	}
}

func (h *Handler) opContext(r *http.Request) (context.Context, context.CancelFunc) {
	timeout := time.Duration(h.config.Redis.OperationTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return context.WithTimeout(r.Context(), timeout)
}

func isValidationError(err error) bool {
	return errors.Is(err, utils.ErrEmptyURL) ||
		errors.Is(err, utils.ErrInvalidURL) ||
		errors.Is(err, utils.ErrInvalidScheme) ||
		errors.Is(err, utils.ErrEmptyHost)
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
