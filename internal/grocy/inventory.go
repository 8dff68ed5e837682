package grocy

import (
	"context"
	"fmt"
)

// stockCandidatePaths are tried in order when reading current stock.
// Endpoint placement varies across Grocy versions.
var stockCandidatePaths = []string{
	"/stock/overview",
	"/stock",
	"/objects/products",
	"/stock/products",
}

// StockOverview returns the current stock per product.
func (c *Client) StockOverview(ctx context.Context) ([]Object, error) {
	return c.getList(ctx, stockCandidatePaths)
}

// AddProductQuantity increases a product's stock amount.
func (c *Client) AddProductQuantity(ctx context.Context, productID int, quantity float64) error {
	if quantity <= 0 {
		return fmt.Errorf("grocy: quantity must be > 0 to add stock")
	}
	_, err := c.post(ctx, fmt.Sprintf("/stock/products/%d/add", productID), Object{"amount": quantity})
	return err
}

// AddProductQuantityWithPrice increases stock at a specific price, which
// sets the last/avg price context in Grocy.
func (c *Client) AddProductQuantityWithPrice(ctx context.Context, productID int, quantity, price float64) error {
	if quantity <= 0 {
		return fmt.Errorf("grocy: quantity must be > 0 to add stock")
	}
	_, err := c.post(ctx, fmt.Sprintf("/stock/products/%d/add", productID),
		Object{"amount": quantity, "price": price})
	return err
}

// ConsumeProductQuantity decreases a product's stock amount.
func (c *Client) ConsumeProductQuantity(ctx context.Context, productID int, quantity float64) error {
	if quantity <= 0 {
		return fmt.Errorf("grocy: quantity must be > 0 to consume stock")
	}
	_, err := c.post(ctx, fmt.Sprintf("/stock/products/%d/consume", productID), Object{"amount": quantity})
	return err
}

// ProductStockEntries returns the individual stock entries for a product.
// Missing endpoint variants yield an empty list rather than an error.
func (c *Client) ProductStockEntries(ctx context.Context, productID int) ([]Object, error) {
	data, err := c.get(ctx, fmt.Sprintf("/stock/products/%d/entries", productID), nil)
	if err != nil {
		if isMissingEndpoint(err) {
			return nil, nil
		}
		return nil, err
	}
	items, _ := normalizeList(data)
	return items, nil
}
