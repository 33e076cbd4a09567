package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/safar/license-store/internal/models"
	"github.com/safar/license-store/internal/storage"
	"github.com/safar/license-store/internal/store"
	"github.com/sirupsen/logrus"
)

type Products struct {
	db       *sql.DB
	logger   *logrus.Logger
	uploader storage.Uploader
}

// ProductDetail is a product with its remaining unused keys per plan.
type ProductDetail struct {
	models.Product
	Stock map[models.Plan]int `json:"stock"`
}

func (s *Products) List(ctx context.Context, page, pageSize int) (*store.OffsetPage, error) {
	page, pageSize = store.NormalizePage(page, pageSize)
	return store.ListProducts(ctx, s.db, page, pageSize)
}

func (s *Products) Get(ctx context.Context, id uuid.UUID) (*ProductDetail, error) {
	product, err := store.GetProduct(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	stock, err := store.CountUnusedByPlan(ctx, s.db, id)
	if err != nil {
		return nil, err
	}

	return &ProductDetail{Product: *product, Stock: stock}, nil
}

func (s *Products) Create(ctx context.Context, in store.ProductInput, image *File) (*models.Product, error) {
	url, err := uploadFile(ctx, s.uploader, "products", image)
	if err != nil {
		return nil, err
	}
	if url != "" {
		in.ImageURL = url
	}

	product, err := store.CreateProduct(ctx, s.db, in)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{"product_id": product.ID, "name": product.Name}).Info("product created")
	return product, nil
}

// Update applies in if the product is still at version. A new image replaces
// the stored URL; without one the current URL is kept.
func (s *Products) Update(ctx context.Context, id uuid.UUID, version int, in store.ProductInput, image *File) (*models.Product, error) {
	url, err := uploadFile(ctx, s.uploader, "products", image)
	if err != nil {
		return nil, err
	}

	if url != "" {
		in.ImageURL = url
	} else if in.ImageURL == "" {
		current, err := store.GetProduct(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		in.ImageURL = current.ImageURL
	}

	return store.UpdateProductOptimistic(ctx, s.db, id, version, in)
}

func (s *Products) Delete(ctx context.Context, id uuid.UUID) error {
	if err := store.DeleteProduct(ctx, s.db, id); err != nil {
		return err
	}
	s.logger.WithField("product_id", id).Info("product deleted")
	return nil
}
