package grocy

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/pantry/internal/apperr"
)

// ListProducts returns all product master-data objects.
func (c *Client) ListProducts(ctx context.Context) ([]Object, error) {
	return c.getList(ctx, []string{"/objects/products"})
}

// GetProduct returns a single product by id.
func (c *Client) GetProduct(ctx context.Context, productID int) (Object, error) {
	data, err := c.get(ctx, fmt.Sprintf("/objects/products/%d", productID), nil)
	if err != nil {
		if he, ok := err.(*HTTPError); ok && he.Status == 404 {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	obj, ok := data.(Object)
	if !ok {
		return nil, fmt.Errorf("grocy: unexpected product response shape")
	}
	return obj, nil
}

// CreateProduct creates a product and returns its id when the backend
// reports one.
func (c *Client) CreateProduct(ctx context.Context, fields Object) (int, error) {
	name, _ := fields["name"].(string)
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("grocy: product requires a non-empty 'name'")
	}
	resp, err := c.post(ctx, "/objects/products", fields)
	if err != nil {
		return 0, err
	}
	id, _ := extractCreatedID(resp)
	return id, nil
}

// FindProductIDByName returns the id of the product with the given name
// (case-insensitive exact match), or apperr.ErrNotFound.
func (c *Client) FindProductIDByName(ctx context.Context, name string) (int, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return 0, err
	}
	want := strings.ToLower(strings.TrimSpace(name))
	for _, p := range products {
		pname, _ := p["name"].(string)
		if strings.ToLower(strings.TrimSpace(pname)) == want {
			if id, ok := asInt(p["id"]); ok {
				return id, nil
			}
		}
	}
	return 0, apperr.ErrNotFound
}

// ProductNameMap returns id -> name for all products.
func (c *Client) ProductNameMap(ctx context.Context) (map[int]string, error) {
	products, err := c.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(products))
	for _, p := range products {
		id, ok := asInt(p["id"])
		if !ok {
			continue
		}
		name, _ := p["name"].(string)
		if name = strings.TrimSpace(name); name != "" {
			out[id] = name
		}
	}
	return out, nil
}

// EnsureProductExists returns the id of the named product, creating it
// with the given fields when absent.
func (c *Client) EnsureProductExists(ctx context.Context, name string, createFields Object) (int, error) {
	id, err := c.FindProductIDByName(ctx, name)
	if err == nil {
		return id, nil
	}
	if err != apperr.ErrNotFound {
		return 0, err
	}
	fields := Object{"name": name}
	for k, v := range createFields {
		fields[k] = v
	}
	return c.CreateProduct(ctx, fields)
}
