package repos

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

// ProductFilters mirrors the optional filters of the list_products tool.
type ProductFilters struct {
	InStock    bool
	OutOfStock bool
	LowStock   bool
	Featured   bool
	OnSale     bool
	Category   string
	PriceMin   *int64
	PriceMax   *int64
	SortBy     string
	Limit      int
}

type ProductRepo interface {
	Create(ctx context.Context, tx *gorm.DB, products []*types.Product) ([]*types.Product, error)
	SearchByName(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, name string) ([]*types.Product, error)
	List(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, f ProductFilters) ([]*types.Product, error)
}

type productRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProductRepo(db *gorm.DB, baseLog *logger.Logger) ProductRepo {
	return &productRepo{db: db, log: baseLog.With("repo", "ProductRepo")}
}

func (r *productRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *productRepo) Create(ctx context.Context, tx *gorm.DB, products []*types.Product) ([]*types.Product, error) {
	if len(products) == 0 {
		return []*types.Product{}, nil
	}
	if err := r.conn(tx).WithContext(ctx).Create(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// SearchByName prefers an exact (case-insensitive) match; only when none
// exists does it fall back to substring matching, which may return several
// candidates for the caller to disambiguate.
func (r *productRepo) SearchByName(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, name string) ([]*types.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	var exact []*types.Product
	if err := r.conn(tx).WithContext(ctx).
		Where("store_id = ? AND (LOWER(name) = LOWER(?) OR LOWER(sku) = LOWER(?))", storeID, name, name).
		Find(&exact).Error; err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		return exact, nil
	}
	var fuzzy []*types.Product
	if err := r.conn(tx).WithContext(ctx).
		Where("store_id = ? AND LOWER(name) LIKE LOWER(?)", storeID, "%"+name+"%").
		Limit(10).
		Find(&fuzzy).Error; err != nil {
		return nil, err
	}
	return fuzzy, nil
}

func (r *productRepo) List(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, f ProductFilters) ([]*types.Product, error) {
	q := r.conn(tx).WithContext(ctx).Where("store_id = ?", storeID)

	switch {
	case f.OutOfStock:
		q = q.Where("stock <= 0")
	case f.LowStock:
		q = q.Where("stock > 0 AND stock <= 5")
	case f.InStock:
		q = q.Where("stock > 0")
	}
	if f.Featured {
		q = q.Where("featured = ?", true)
	}
	if f.OnSale {
		q = q.Where("on_sale = ?", true)
	}
	if f.PriceMin != nil {
		q = q.Where("price_cents >= ?", *f.PriceMin)
	}
	if f.PriceMax != nil {
		q = q.Where("price_cents <= ?", *f.PriceMax)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		q = q.Where("id IN (?)",
			r.conn(tx).Model(&types.ProductCategory{}).
				Select("product_id").
				Where("category_id IN (?)",
					r.conn(tx).Model(&types.Category{}).
						Select("id").
						Where("store_id = ? AND LOWER(name) = LOWER(?)", storeID, c)))
	}

	switch strings.ToLower(strings.TrimSpace(f.SortBy)) {
	case "price_asc":
		q = q.Order("price_cents ASC")
	case "price_desc":
		q = q.Order("price_cents DESC")
	case "stock":
		q = q.Order("stock ASC")
	case "newest":
		q = q.Order("created_at DESC")
	default:
		q = q.Order("name ASC")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	var out []*types.Product
	if err := q.Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
