package qr

import (
	"errors"
	"fmt"
	"image/color"
	"regexp"
	"strconv"

	"tiny-url-service/model"

	"github.com/skip2/go-qrcode"
)

var (
	ErrInvalidParameter = errors.New("invalid QR parameter")
	ErrRenderFailure    = errors.New("QR rendering failed")
)

// Colors are 8 hex digits: alpha, red, green, blue.
var hexColorPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{8}$`)

// ValidateFormat rejects formats the renderer cannot satisfy: non-positive
// geometry, non-ARGB-hex colors, unsupported image types or correction levels.
func ValidateFormat(f model.Format) error {
	if f.Height <= 0 || f.Width <= 0 {
		return fmt.Errorf("%w: height and width must be greater than 0", ErrInvalidParameter)
	}
	if !hexColorPattern.MatchString(f.Color) || !hexColorPattern.MatchString(f.Background) {
		return fmt.Errorf("%w: colors must be 0x-prefixed 8-digit hexadecimal", ErrInvalidParameter)
	}
	if f.ImageType != "PNG" && f.ImageType != "JPEG" {
		return fmt.Errorf("%w: image type must be PNG or JPEG", ErrInvalidParameter)
	}
	if _, err := recoveryLevel(f.ErrorCorrectionLevel); err != nil {
		return err
	}
	return nil
}

// recoveryLevel maps the wire-format correction level to the renderer's.
func recoveryLevel(level string) (qrcode.RecoveryLevel, error) {
	switch level {
	case "L":
		return qrcode.Low, nil
	case "M":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil
	case "H":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("%w: error correction level must be L, M, Q or H", ErrInvalidParameter)
	}
}

// parseARGB decodes a validated 0xAARRGGBB string.
func parseARGB(s string) color.NRGBA {
	v, _ := strconv.ParseUint(s[2:], 16, 32)
	return color.NRGBA{
		A: uint8(v >> 24),
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
	}
}
