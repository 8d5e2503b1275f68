package model

import "gorm.io/gorm"

// PlaceholderImage dipakai kalau produk belum punya foto
const PlaceholderImage = "https://placehold.co/200"

type Product struct {
	BaseModel
	Name     string `gorm:"type:varchar(255);not null" json:"name" validate:"required"`
	Category string `gorm:"type:varchar(50)" json:"category"`
	Price    int64  `gorm:"not null" json:"price" validate:"gte=0"` // Rupiah, tanpa desimal
	Stock    int    `gorm:"default:0" json:"stock" validate:"gte=0"`
	ImageURL string `gorm:"type:text" json:"image"`
}

// BeforeSave memastikan setiap produk punya image URL
func (p *Product) BeforeSave(tx *gorm.DB) error {
	if p.ImageURL == "" {
		p.ImageURL = PlaceholderImage
	}
	return nil
}
