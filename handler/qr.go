package handler

import (
	"net/http"
	"strconv"

	"tiny-url-service/model"
	"tiny-url-service/qr"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// GetQR handles GET /qr/{hash} - serves the stored QR image for a short URL.
// When no image has been generated yet the code is rendered inline with the
// default format, so a hash whose QR task is still queued does not 404.
func (h *Handler) GetQR(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.opContext(r)
	defer cancel()

	hash := mux.Vars(r)["hash"]

	qrCode, err := h.store.GetQRCode(ctx, hash)
	if err != nil {
		log.Error().Err(err).Str("hash", hash).Msg("Failed to fetch QR code")
		SendJSONError(w, http.StatusInternalServerError, err, "Could not fetch QR code")
		return
	}

	var image []byte
	format := model.DefaultFormat()
	if qrCode != nil {
		image = qrCode.Image
		format = qrCode.Format
	} else {
		// Absent image: distinguish unknown/pending/dead hashes before
		// falling back to an inline default render
		su, err := h.shortener.Resolve(ctx, hash)
		if err != nil {
			h.sendResolveError(w, hash, err)
			return
		}

		image, err = qr.Render(h.shortLink(su.Hash), format)
		if err != nil {
			log.Error().Err(err).Str("hash", hash).Msg("Inline QR render failed")
			SendJSONError(w, http.StatusInternalServerError, err, "Could not render QR code")
			return
		}

		saved := &model.QRCode{Hash: hash, Format: format, Image: image}
		if err := h.store.SaveQRCode(ctx, saved); err != nil {
			log.Warn().Err(err).Str("hash", hash).Msg("Failed to persist inline QR render")
		}
	}

	contentType := "image/png"
	if format.ImageType == "JPEG" {
		contentType = "image/jpeg"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600") // Cache for 1 hour
	w.Header().Set("Content-Length", strconv.Itoa(len(image)))

	if _, err := w.Write(image); err != nil {
		log.Error().Err(err).Msg("Failed to write QR code response")
	}
}
