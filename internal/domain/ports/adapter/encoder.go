package adapter

import "wifi-loyalty-portal/internal/domain/model"

// VoucherEncoder renders the scannable representations of a voucher.
// The same voucher always yields the same images.
type VoucherEncoder interface {
	Encode(v *model.Voucher) (qrPNG []byte, barcodePNG []byte, err error)
}
