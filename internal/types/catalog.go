package types

import (
	"time"

	"github.com/google/uuid"
)

type Product struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID    uuid.UUID `gorm:"type:uuid;not null;index" json:"store_id"`
	Name       string    `gorm:"column:name;not null;index" json:"name"`
	SKU        string    `gorm:"column:sku;index" json:"sku"`
	PriceCents int64     `gorm:"column:price_cents;not null;default:0" json:"price_cents"`
	Stock      int       `gorm:"column:stock;not null;default:0" json:"stock"`
	Featured   bool      `gorm:"column:featured;not null;default:false" json:"featured"`
	OnSale     bool      `gorm:"column:on_sale;not null;default:false" json:"on_sale"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Product) TableName() string {
	return "product"
}

type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	StoreID   uuid.UUID `gorm:"type:uuid;not null;index" json:"store_id"`
	Name      string    `gorm:"column:name;not null;index" json:"name"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (Category) TableName() string {
	return "category"
}

// ProductCategory is the membership join. The composite unique index is what
// makes add_to_category idempotent under retries.
type ProductCategory struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ProductID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_category" json:"product_id"`
	CategoryID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_product_category" json:"category_id"`
	CreatedAt  time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (ProductCategory) TableName() string {
	return "product_category"
}
