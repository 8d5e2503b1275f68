package repository

import (
	"go-pos-ws/internal/model"

	"gorm.io/gorm"
)

// CounterRepository menerbitkan nomor antrian berikutnya untuk satu prefix.
// Next HARUS dipanggil dari dalam transaksi commit order: upsert atomik ini
// menggantikan pola lama "baca transaksi terakhir, parse, tambah satu" yang
// bisa tabrakan nomor kalau dua kasir submit bersamaan.
type CounterRepository interface {
	Next(tx *gorm.DB, prefix string) (int64, error)
	Sync(db *gorm.DB, prefix string) error
}

type counterRepo struct{}

func NewCounterRepo() CounterRepository {
	return &counterRepo{}
}

func (r *counterRepo) Next(tx *gorm.DB, prefix string) (int64, error) {
	var value int64
	err := tx.Raw(`
		INSERT INTO queue_counters (prefix, value)
		VALUES (?, 1)
		ON CONFLICT (prefix)
		DO UPDATE SET value = queue_counters.value + 1
		RETURNING value
	`, prefix).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Sync mengangkat counter ke nomor tertinggi yang sudah pernah terbit untuk
// prefix tsb. Dipanggil sekali saat boot: transaksi lama dari sebelum tabel
// counter ada tetap dihormati, nomor berikutnya tidak mundur atau tabrakan.
func (r *counterRepo) Sync(db *gorm.DB, prefix string) error {
	var codes []string
	err := db.Model(&model.Transaction{}).
		Where("queue_code LIKE ?", prefix+"-%").
		Pluck("queue_code", &codes).Error
	if err != nil {
		return err
	}

	var highest int64
	for _, code := range codes {
		p, number, err := model.ParseQueueCode(code)
		if err != nil || p != prefix {
			continue
		}
		if number > highest {
			highest = number
		}
	}
	if highest == 0 {
		return nil
	}

	return db.Exec(`
		INSERT INTO queue_counters (prefix, value)
		VALUES (?, ?)
		ON CONFLICT (prefix)
		DO UPDATE SET value = GREATEST(queue_counters.value, EXCLUDED.value)
	`, prefix, highest).Error
}
