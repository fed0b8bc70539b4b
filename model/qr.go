package model

// Format describes how a QR code should be rendered. Immutable once built;
// use DefaultFormat and override individual fields before first use.
type Format struct {
	Height               int    `json:"height"`
	Width                int    `json:"width"`
	Color                string `json:"color"`
	Background           string `json:"background"`
	ImageType            string `json:"imageType"`
	ErrorCorrectionLevel string `json:"errorCorrectionLevel"`
}

// DefaultFormat returns the format used when the caller does not customize
// the QR rendering.
func DefaultFormat() Format {
	return Format{
		Height:               500,
		Width:                500,
		Color:                "0xFF000000",
		Background:           "0xFFFFFFFF",
		ImageType:            "PNG",
		ErrorCorrectionLevel: "L",
	}
}

// QRCode is a rendered QR image for a short URL hash.
type QRCode struct {
	Hash   string `json:"hash"`
	Format Format `json:"format"`
	Image  []byte `json:"image,omitempty"`
}

// QRTask is the queue payload asking a worker to render a QR code.
type QRTask struct {
	Hash   string `json:"hash"`
	Format Format `json:"format"`
}
