package service

import (
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"
)

// PairingCode is the latest QR payload a bridge session asked the operator to scan
type PairingCode struct {
	AccountID string    `json:"accountId"`
	Code      string    `json:"code"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// PNG renders the code as a square PNG of the given size in pixels
func (p PairingCode) PNG(size int) ([]byte, error) {
	png, err := qrcode.Encode(p.Code, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to render pairing code: %w", err)
	}
	return png, nil
}

// Terminal renders the code with half-block characters for log output
func (p PairingCode) Terminal() (string, error) {
	q, err := qrcode.New(p.Code, qrcode.Low)
	if err != nil {
		return "", fmt.Errorf("failed to render pairing code: %w", err)
	}
	return q.ToSmallString(false), nil
}
