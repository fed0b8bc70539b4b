package qr

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"tiny-url-service/model"

	"github.com/skip2/go-qrcode"
)

// Render encodes the given text as a QR image in the requested format.
// The format must pass ValidateFormat first; rendering errors are reported
// as ErrRenderFailure.
func Render(text string, format model.Format) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}

	level, _ := recoveryLevel(format.ErrorCorrectionLevel)

	code, err := qrcode.New(text, level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
	}
	code.ForegroundColor = parseARGB(format.Color)
	code.BackgroundColor = parseARGB(format.Background)

	// The renderer produces square images; width drives the pixel size.
	size := format.Width

	switch format.ImageType {
	case "PNG":
		data, err := code.PNG(size)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
		}
		return data, nil
	case "JPEG":
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, code.Image(size), nil); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRenderFailure, err)
		}
		return buf.Bytes(), nil
	default:
		// Unreachable after validation
		return nil, fmt.Errorf("%w: image type must be PNG or JPEG", ErrInvalidParameter)
	}
}
