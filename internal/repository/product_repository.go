package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/tourdesk/service-booking/internal/common/domain"
	"github.com/tourdesk/service-booking/internal/domain/product"
)

// ProductModel is the GORM model for the products table. The catalog itself
// is owned elsewhere; this service only reads prices and list fields.
type ProductModel struct {
	ID         uuid.UUID                   `gorm:"type:uuid;primaryKey"`
	Name       string                      `gorm:"type:varchar(200);not null"`
	AdultPrice int64                       `gorm:"not null"`
	ChildPrice int64                       `gorm:"not null;default:0"`
	IncludesKO datatypes.JSONSlice[string] `gorm:"type:text;not null;default:'[]'"`
	ExcludesKO datatypes.JSONSlice[string] `gorm:"type:text;not null;default:'[]'"`
	CreatedAt  time.Time                   `gorm:"not null"`
	UpdatedAt  time.Time                   `gorm:"not null"`
}

// TableName sets the table name.
func (ProductModel) TableName() string { return "products" }

// GormProductRepository implements product.PriceLookup using GORM.
type GormProductRepository struct {
	db *gorm.DB
}

var _ product.PriceLookup = (*GormProductRepository)(nil)

// NewGormProductRepository creates a new GormProductRepository.
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID returns the catalog entry.
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*product.Product, error) {
	var model ProductModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("Product", id.String())
		}
		return nil, fmt.Errorf("failed to find product: %w", err)
	}
	return &product.Product{
		ID:         model.ID,
		Name:       model.Name,
		Prices:     product.UnitPrices{Adult: model.AdultPrice, Child: model.ChildPrice},
		IncludesKO: append(product.List{}, model.IncludesKO...),
		ExcludesKO: append(product.List{}, model.ExcludesKO...),
	}, nil
}

// GetUnitPrices implements product.PriceLookup.
func (r *GormProductRepository) GetUnitPrices(ctx context.Context, productID uuid.UUID) (product.UnitPrices, error) {
	p, err := r.FindByID(ctx, productID)
	if err != nil {
		return product.UnitPrices{}, err
	}
	return p.Prices, nil
}

// legacyListRow reads the list columns as raw text, whatever encoding the
// catalog left in them.
type legacyListRow struct {
	ID         uuid.UUID
	IncludesKO string
	ExcludesKO string
}

// NormalizeLegacyLists rewrites every product whose list columns are not
// canonical JSON arrays. It returns the number of rows rewritten; a second run
// finds nothing to do.
func (r *GormProductRepository) NormalizeLegacyLists(ctx context.Context, log *zap.Logger) (int, error) {
	var rows []legacyListRow
	if err := r.db.WithContext(ctx).Table("products").
		Select("id, COALESCE(includes_ko, '') AS includes_ko, COALESCE(excludes_ko, '') AS excludes_ko").
		Scan(&rows).Error; err != nil {
		return 0, fmt.Errorf("failed to read product lists: %w", err)
	}

	rewritten := 0
	for _, row := range rows {
		includes, includesOK := canonicalList(row.IncludesKO)
		excludes, excludesOK := canonicalList(row.ExcludesKO)
		if includesOK && excludesOK {
			continue
		}
		if err := r.db.WithContext(ctx).Model(&ProductModel{}).Where("id = ?", row.ID).Updates(map[string]any{
			"includes_ko": includes,
			"excludes_ko": excludes,
		}).Error; err != nil {
			return rewritten, fmt.Errorf("failed to normalize product %s: %w", row.ID, err)
		}
		rewritten++
	}

	if rewritten > 0 {
		log.Info("normalized legacy product lists", zap.Int("rows", rewritten))
	}
	return rewritten, nil
}

// canonicalList parses raw once and reports whether raw was already stored
// as the canonical JSON array.
func canonicalList(raw string) (datatypes.JSONSlice[string], bool) {
	parsed := datatypes.NewJSONSlice([]string(product.ParseList(raw)))
	var stored datatypes.JSONSlice[string]
	if err := stored.Scan(raw); err != nil || stored == nil {
		return parsed, false
	}
	return parsed, slices.Equal(stored, parsed)
}
