package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/baovptse192440/NongSanProject-sub002/internal/domain"
	pfirestore "github.com/baovptse192440/NongSanProject-sub002/internal/platform/firestore"
	"github.com/baovptse192440/NongSanProject-sub002/internal/repositories"
)

const (
	productCollection        = "products"
	productVariantCollection = "product_variants"
)

// ProductRepository reads catalog products and variants from Firestore.
type ProductRepository struct {
	products *pfirestore.BaseRepository[productDocument]
	variants *pfirestore.BaseRepository[variantDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		products: pfirestore.NewBaseRepository[productDocument](provider, productCollection),
		variants: pfirestore.NewBaseRepository[variantDocument](provider, productVariantCollection),
	}, nil
}

// FindByID loads a product by document id.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	doc, err := r.products.Get(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.Product{}, err
	}
	return decodeProduct(doc), nil
}

// FindBySlug loads a product by its unique slug.
func (r *ProductRepository) FindBySlug(ctx context.Context, slug string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	slug = strings.TrimSpace(slug)
	docs, err := r.products.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("slug", "==", slug).Limit(1)
	})
	if err != nil {
		return domain.Product{}, err
	}
	if len(docs) == 0 {
		return domain.Product{}, pfirestore.NewNotFound("products.slug", fmt.Errorf("product %q not found", slug))
	}
	return decodeProduct(docs[0]), nil
}

// List returns products newest first.
func (r *ProductRepository) List(ctx context.Context, filter repositories.ProductListFilter) (domain.CursorPage[domain.Product], error) {
	if r == nil || r.products == nil {
		return domain.CursorPage[domain.Product]{}, errors.New("product repository not initialised")
	}
	return listPage(ctx, r.products, filter.Pagination, "createdAt",
		func(q firestore.Query) firestore.Query {
			if filter.Status != "" {
				q = q.Where("status", "==", string(filter.Status))
			}
			if category := strings.TrimSpace(filter.CategoryID); category != "" {
				q = q.Where("categoryId", "==", category)
			}
			return q
		},
		func(doc productDocument) time.Time { return doc.CreatedAt },
		decodeProduct,
	)
}

// ListVariants returns the product's variants in creation order.
func (r *ProductRepository) ListVariants(ctx context.Context, productID string, activeOnly bool) ([]domain.ProductVariant, error) {
	if r == nil || r.variants == nil {
		return nil, errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	docs, err := r.variants.Query(ctx, func(q firestore.Query) firestore.Query {
		q = q.Where("productId", "==", productID)
		if activeOnly {
			q = q.Where("status", "==", string(domain.VariantStatusActive))
		}
		return q.OrderBy("createdAt", firestore.Asc).OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	variants := make([]domain.ProductVariant, 0, len(docs))
	for _, doc := range docs {
		variants = append(variants, decodeVariant(doc))
	}
	return variants, nil
}

// FindVariant loads a variant and checks that it belongs to productID.
func (r *ProductRepository) FindVariant(ctx context.Context, productID, variantID string) (domain.ProductVariant, error) {
	if r == nil || r.variants == nil {
		return domain.ProductVariant{}, errors.New("product repository not initialised")
	}
	doc, err := r.variants.Get(ctx, strings.TrimSpace(variantID))
	if err != nil {
		return domain.ProductVariant{}, err
	}
	if doc.Data.ProductID != strings.TrimSpace(productID) {
		return domain.ProductVariant{}, pfirestore.NewNotFound("product_variants.get", fmt.Errorf("variant %q does not belong to product %q", variantID, productID))
	}
	return decodeVariant(doc), nil
}

type saleDocument struct {
	RetailPrice    float64    `firestore:"retailPrice"`
	WholesalePrice float64    `firestore:"wholesalePrice"`
	OnSale         bool       `firestore:"onSale"`
	SalePrice      *float64   `firestore:"salePrice,omitempty"`
	SalePercentage *int       `firestore:"salePercentage,omitempty"`
	SaleStartsAt   *time.Time `firestore:"saleStartDate,omitempty"`
	SaleEndsAt     *time.Time `firestore:"saleEndDate,omitempty"`
}

type productDocument struct {
	Name        string   `firestore:"name"`
	Slug        string   `firestore:"slug"`
	CategoryID  string   `firestore:"categoryId"`
	Description string   `firestore:"description,omitempty"`
	Images      []string `firestore:"images"`
	saleDocument
	Stock       int       `firestore:"stock"`
	SKU         string    `firestore:"sku,omitempty"`
	Status      string    `firestore:"status"`
	HasVariants bool      `firestore:"hasVariants"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

type variantDocument struct {
	ProductID string `firestore:"productId"`
	Name      string `firestore:"name"`
	SKU       string `firestore:"sku,omitempty"`
	saleDocument
	Stock     int       `firestore:"stock"`
	Status    string    `firestore:"status"`
	CreatedAt time.Time `firestore:"createdAt"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func decodeSale(doc saleDocument) domain.SaleFields {
	return domain.SaleFields{
		RetailPrice:    moneyFromStore(doc.RetailPrice),
		WholesalePrice: moneyFromStore(doc.WholesalePrice),
		OnSale:         doc.OnSale,
		SalePrice:      moneyPtrFromStore(doc.SalePrice),
		SalePercentage: doc.SalePercentage,
		SaleStartsAt:   normalizeTimePointer(doc.SaleStartsAt),
		SaleEndsAt:     normalizeTimePointer(doc.SaleEndsAt),
	}
}

func decodeProduct(doc pfirestore.Document[productDocument]) domain.Product {
	data := doc.Data
	return domain.Product{
		ID:          doc.ID,
		Name:        data.Name,
		Slug:        data.Slug,
		CategoryID:  data.CategoryID,
		Description: data.Description,
		Images:      append([]string(nil), data.Images...),
		SaleFields:  decodeSale(data.saleDocument),
		Stock:       data.Stock,
		SKU:         data.SKU,
		Status:      domain.ProductStatus(data.Status),
		HasVariants: data.HasVariants,
		CreatedAt:   chooseTime(data.CreatedAt, doc.CreateTime),
		UpdatedAt:   chooseTime(data.UpdatedAt, doc.UpdateTime),
	}
}

func decodeVariant(doc pfirestore.Document[variantDocument]) domain.ProductVariant {
	data := doc.Data
	return domain.ProductVariant{
		ID:         doc.ID,
		ProductID:  data.ProductID,
		Name:       data.Name,
		SKU:        data.SKU,
		SaleFields: decodeSale(data.saleDocument),
		Stock:      data.Stock,
		Status:     domain.VariantStatus(data.Status),
		CreatedAt:  chooseTime(data.CreatedAt, doc.CreateTime),
		UpdatedAt:  chooseTime(data.UpdatedAt, doc.UpdateTime),
	}
}
