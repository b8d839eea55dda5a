package checkout

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/storetrack-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storetrack-backend/pkg/errors"
)

func productNotFound(productID uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(StockErrorDetails{ProductID: productID})
}

func insufficientStock(product *models.Product, requested int) error {
	available := product.Quantity
	return pkgerrors.New(pkgerrors.CodeInsufficientStock,
		fmt.Sprintf("insufficient stock for %s: %d available, %d requested", product.Name, available, requested)).
		WithDetails(StockErrorDetails{
			ProductID:   product.ID,
			ProductName: product.Name,
			Available:   &available,
			Requested:   &requested,
		})
}

func invalidPricing(product *models.Product) error {
	return pkgerrors.New(pkgerrors.CodeInvalidPricing,
		fmt.Sprintf("product %s has no valid price", product.Name)).
		WithDetails(StockErrorDetails{ProductID: product.ID, ProductName: product.Name})
}
