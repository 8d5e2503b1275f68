package qris

import (
	"fmt"
	"net/url"
)

// Pembayaran QRIS masih simulasi: kita cuma menampilkan QR image dari
// layanan eksternal, kasir menekan "simulasi sukses" seperti biasa.
const imageService = "https://api.qrserver.com/v1/create-qr-code/"

// ImageURL membangun URL gambar QR untuk satu kode antrian.
func ImageURL(queueCode string, total int64) string {
	payload := fmt.Sprintf("POS|%s|%d", queueCode, total)
	q := url.Values{}
	q.Set("size", "200x200")
	q.Set("data", payload)
	return imageService + "?" + q.Encode()
}
