// Package codes renders the QR code (RSVP link) and Code128 barcode (door
// scan) printed on every invitation.
package codes

import (
	"bytes"
	"fmt"
	"image/png"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/boombuler/barcode/qr"
)

const (
	QRSize         = 300
	BarcodeWidth   = 400
	BarcodeHeight  = 100
	minBarcodeSide = 10
)

// QRPNG encodes content (usually the RSVP URL) as a square PNG.
func QRPNG(content string, size int) ([]byte, error) {
	if size < minBarcodeSide {
		size = QRSize
	}
	code, err := qr.Encode(content, qr.M, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("qr encode: %w", err)
	}
	return scaledPNG(code, size, size)
}

// Code128PNG 扫码枪读取的条码
func Code128PNG(content string, width, height int) ([]byte, error) {
	if content == "" {
		return nil, fmt.Errorf("code128: empty content")
	}
	if width < minBarcodeSide {
		width = BarcodeWidth
	}
	if height < minBarcodeSide {
		height = BarcodeHeight
	}
	code, err := code128.Encode(content)
	if err != nil {
		return nil, fmt.Errorf("code128 encode: %w", err)
	}
	// 条码比目标宽度还宽时按原始宽度输出
	if w := code.Bounds().Dx(); w > width {
		width = w
	}
	return scaledPNG(code, width, height)
}

func scaledPNG(code barcode.Barcode, width, height int) ([]byte, error) {
	scaled, err := barcode.Scale(code, width, height)
	if err != nil {
		return nil, fmt.Errorf("scale: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, scaled); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
