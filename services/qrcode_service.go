// file: services/qrcode_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"
)

// QREncoder matches qrcode.Encode so tests can swap it.
type QREncoder func(content string, level qrcode.RecoveryLevel, size int) ([]byte, error)

// QR code edge bounds in pixels
const (
	QRSizeMin = 64
	QRSizeMax = 1024
)

// ErrQRSize is returned for a size outside QRSizeMin..QRSizeMax.
var ErrQRSize = errors.New("invalid dimensions")

// SubscriptionURL is the ICS feed address under applicationURL.
func SubscriptionURL(applicationURL string) string {
	return applicationURL + "/calendar.ics"
}

// GenerateQRCode renders content as a PNG QR code of size×size pixels.
func GenerateQRCode(content string, size int, encode QREncoder) ([]byte, error) {
	if size < QRSizeMin || size > QRSizeMax {
		return nil, fmt.Errorf("%w: size must be between %d and %d", ErrQRSize, QRSizeMin, QRSizeMax)
	}
	if encode == nil {
		encode = qrcode.Encode
	}

	png, err := encode(content, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	return png, nil
}
