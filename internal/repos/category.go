package repos

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/shopmind/shopmind-backend/internal/logger"
	"github.com/shopmind/shopmind-backend/internal/types"
)

type CategoryRepo interface {
	Create(ctx context.Context, tx *gorm.DB, category *types.Category) (*types.Category, error)
	GetByName(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, name string) (*types.Category, error)
	ListNames(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) ([]string, error)
	IsMember(ctx context.Context, tx *gorm.DB, productID, categoryID uuid.UUID) (bool, error)
	AddProduct(ctx context.Context, tx *gorm.DB, productID, categoryID uuid.UUID) (added bool, err error)
	RemoveProduct(ctx context.Context, tx *gorm.DB, productID, categoryID uuid.UUID) (removed bool, err error)
}

type categoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCategoryRepo(db *gorm.DB, baseLog *logger.Logger) CategoryRepo {
	return &categoryRepo{db: db, log: baseLog.With("repo", "CategoryRepo")}
}

func (r *categoryRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *categoryRepo) Create(ctx context.Context, tx *gorm.DB, category *types.Category) (*types.Category, error) {
	if err := r.conn(tx).WithContext(ctx).Create(category).Error; err != nil {
		return nil, err
	}
	return category, nil
}

func (r *categoryRepo) GetByName(ctx context.Context, tx *gorm.DB, storeID uuid.UUID, name string) (*types.Category, error) {
	name = strings.TrimSpace(name)
	var cat types.Category
	err := r.conn(tx).WithContext(ctx).
		Where("store_id = ? AND LOWER(name) = LOWER(?)", storeID, name).
		First(&cat).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *categoryRepo) ListNames(ctx context.Context, tx *gorm.DB, storeID uuid.UUID) ([]string, error) {
	var names []string
	err := r.conn(tx).WithContext(ctx).
		Model(&types.Category{}).
		Where("store_id = ?", storeID).
		Order("name ASC").
		Pluck("name", &names).Error
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (r *categoryRepo) IsMember(ctx context.Context, tx *gorm.DB, productID, categoryID uuid.UUID) (bool, error) {
	var count int64
	err := r.conn(tx).WithContext(ctx).
		Model(&types.ProductCategory{}).
		Where("product_id = ? AND category_id = ?", productID, categoryID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// AddProduct checks membership first, then inserts. A unique violation from a
// concurrent insert of the same pair is treated as "already a member", which
// keeps the operation idempotent under repeated confirmations.
func (r *categoryRepo) AddProduct(ctx context.Context, tx *gorm.DB, productID, categoryID uuid.UUID) (bool, error) {
	member, err := r.IsMember(ctx, tx, productID, categoryID)
	if err != nil {
		return false, err
	}
	if member {
		return false, nil
	}
	link := &types.ProductCategory{ProductID: productID, CategoryID: categoryID}
	if err := r.conn(tx).WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *categoryRepo) RemoveProduct(ctx context.Context, tx *gorm.DB, productID, categoryID uuid.UUID) (bool, error) {
	res := r.conn(tx).WithContext(ctx).
		Where("product_id = ? AND category_id = ?", productID, categoryID).
		Delete(&types.ProductCategory{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
