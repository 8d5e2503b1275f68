package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Prefix antrian per kanal pemesanan. Counter-nya terpisah per prefix,
// jadi A-001 dan Q-001 bisa hidup berdampingan tanpa saling ganggu.
const (
	PrefixCashier   = "A" // Order dari kasir
	PrefixSelfOrder = "Q" // Order mandiri (kiosk / QR link)
)

// QueueCounter menyimpan nilai terakhir yang diterbitkan untuk satu prefix.
// Dinaikkan secara atomik di dalam transaksi commit order, bukan dengan
// membaca transaksi terakhir lalu menambah satu.
type QueueCounter struct {
	Prefix string `gorm:"type:varchar(5);primary_key" json:"prefix"`
	Value  int64  `gorm:"not null" json:"value"`
}

func (QueueCounter) TableName() string {
	return "queue_counters"
}

// FormatQueueCode menghasilkan kode antrian "A-001" dst.
func FormatQueueCode(prefix string, number int64) string {
	return fmt.Sprintf("%s-%03d", prefix, number)
}

// ParseQueueCode membongkar kode antrian jadi prefix + nomor.
func ParseQueueCode(code string) (prefix string, number int64, err error) {
	parts := strings.SplitN(code, "-", 2)
	if len(parts) != 2 {
		return "", 0, fmt.Errorf("malformed queue code %q", code)
	}
	n, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed queue code %q: %w", code, err)
	}
	return parts[0], n, nil
}
