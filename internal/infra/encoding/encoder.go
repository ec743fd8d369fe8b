package encoding

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/png"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/code128"
	"github.com/skip2/go-qrcode"

	"wifi-loyalty-portal/internal/config"
	"wifi-loyalty-portal/internal/domain"
	"wifi-loyalty-portal/internal/domain/model"
	"wifi-loyalty-portal/internal/domain/ports/adapter"
)

var _ adapter.VoucherEncoder = (*Encoder)(nil)

// Payload is what the QR code carries. Field order is fixed by the struct.
type Payload struct {
	Code      string  `json:"code"`
	Type      string  `json:"type"`
	Title     string  `json:"title"`
	Value     float64 `json:"value"`
	ExpiresAt string  `json:"expires_at"`
	Site      string  `json:"site"`
}

type Encoder struct {
	site          string
	qrSize        int
	barcodeWidth  int
	barcodeHeight int
}

func NewEncoder(site string, cfg config.VoucherConfig) *Encoder {
	e := &Encoder{site: site, qrSize: cfg.QRSize, barcodeWidth: cfg.BarcodeWidth, barcodeHeight: cfg.BarcodeHeight}
	if e.qrSize <= 0 {
		e.qrSize = 256
	}
	if e.barcodeWidth <= 0 {
		e.barcodeWidth = 384
	}
	if e.barcodeHeight <= 0 {
		e.barcodeHeight = 80
	}
	return e
}

func NewPayload(v *model.Voucher, site string) Payload {
	return Payload{
		Code:      v.Code,
		Type:      string(v.Type),
		Title:     v.Title,
		Value:     v.Value,
		ExpiresAt: v.ExpiresAt.UTC().Format(time.RFC3339),
		Site:      site,
	}
}

func (e *Encoder) Encode(v *model.Voucher) ([]byte, []byte, error) {
	if v == nil || v.Code == "" {
		return nil, nil, fmt.Errorf("%w: empty voucher", domain.ErrEncodingFailed)
	}
	qr, err := e.QR(NewPayload(v, e.site))
	if err != nil {
		return nil, nil, err
	}
	bar, err := e.Barcode(v.Code)
	if err != nil {
		return nil, nil, err
	}
	return qr, bar, nil
}

func (e *Encoder) QR(p Payload) ([]byte, error) {
	content, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %v", domain.ErrEncodingFailed, err)
	}
	q, err := qrcode.New(string(content), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("%w: qr: %v", domain.ErrEncodingFailed, err)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, q.Image(e.qrSize)); err != nil {
		return nil, fmt.Errorf("%w: qr png: %v", domain.ErrEncodingFailed, err)
	}
	return buf.Bytes(), nil
}

// Barcode renders code as CODE128 sized for a thermal receipt printer. The width grows
// to the symbol's natural width when the configured one is too narrow.
func (e *Encoder) Barcode(code string) ([]byte, error) {
	bc, err := code128.Encode(code)
	if err != nil {
		return nil, fmt.Errorf("%w: code128: %v", domain.ErrEncodingFailed, err)
	}
	width := e.barcodeWidth
	if natural := bc.Bounds().Dx(); natural > width {
		width = natural
	}
	scaled, err := barcode.Scale(bc, width, e.barcodeHeight)
	if err != nil {
		return nil, fmt.Errorf("%w: scale: %v", domain.ErrEncodingFailed, err)
	}
	buf := new(bytes.Buffer)
	if err := png.Encode(buf, scaled); err != nil {
		return nil, fmt.Errorf("%w: barcode png: %v", domain.ErrEncodingFailed, err)
	}
	return buf.Bytes(), nil
}
