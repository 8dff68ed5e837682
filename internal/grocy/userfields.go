package grocy

import (
	"context"
	"fmt"
	"strings"
)

// Userfields is the extensible attribute set attached to a product or
// recipe. Nutrition data lives here because it is not native to Grocy's
// schema.
type Userfields map[string]any

// Float returns the numeric value under key, or 0 when the key is absent
// or non-numeric. Missing macro data contributes zero by policy.
func (u Userfields) Float(key string) float64 {
	if u == nil {
		return 0
	}
	f, ok := asFloat(u[key])
	if !ok {
		return 0
	}
	return f
}

// FloatOK returns the numeric value under key and whether the key was
// present and numeric.
func (u Userfields) FloatOK(key string) (float64, bool) {
	if u == nil {
		return 0, false
	}
	return asFloat(u[key])
}

// Truthy reports whether key holds a truthy flag value.
func (u Userfields) Truthy(key string) bool {
	if u == nil {
		return false
	}
	return truthy(u[key])
}

// UserfieldDefinitions returns all userfield definitions.
func (c *Client) UserfieldDefinitions(ctx context.Context) ([]Object, error) {
	return c.getList(ctx, []string{"/objects/userfields"})
}

// getUserfields reads the userfields object for one entity, trying the
// per-object endpoint first and the flat variant second.
func (c *Client) getUserfields(ctx context.Context, entity string, id int) (Userfields, error) {
	paths := []string{
		fmt.Sprintf("/objects/%s/%d/userfields", entity, id),
		fmt.Sprintf("/userfields/%s/%d", entity, id),
	}
	var lastErr error
	for _, path := range paths {
		data, err := c.get(ctx, path, nil)
		if err != nil {
			if isMissingEndpoint(err) {
				lastErr = err
				continue
			}
			return nil, err
		}
		if obj, ok := data.(Object); ok {
			return Userfields(obj), nil
		}
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return Userfields{}, nil
}

// ProductUserfields returns the userfields for a product.
func (c *Client) ProductUserfields(ctx context.Context, productID int) (Userfields, error) {
	return c.getUserfields(ctx, "products", productID)
}

// RecipeUserfields returns the userfields for a recipe.
func (c *Client) RecipeUserfields(ctx context.Context, recipeID int) (Userfields, error) {
	return c.getUserfields(ctx, "recipes", recipeID)
}

// setUserfields writes a userfields object, trying PUT and POST against
// both endpoint variants. Which combination works depends on the Grocy
// version; the first success wins.
func (c *Client) setUserfields(ctx context.Context, entity string, id int, values Userfields) error {
	paths := []string{
		fmt.Sprintf("/objects/%s/%d/userfields", entity, id),
		fmt.Sprintf("/userfields/%s/%d", entity, id),
	}
	var errs []string
	for _, path := range paths {
		_, err := c.put(ctx, path, Object(values))
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Sprintf("PUT %s: %v", path, err))

		_, err = c.post(ctx, path, Object(values))
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Sprintf("POST %s: %v", path, err))
	}
	return fmt.Errorf("grocy: all userfield write attempts failed: %s", strings.Join(errs, "; "))
}

// SetProductUserfields writes userfields for a product.
func (c *Client) SetProductUserfields(ctx context.Context, productID int, values Userfields) error {
	return c.setUserfields(ctx, "products", productID, values)
}

// SetRecipeUserfields writes userfields for a recipe.
func (c *Client) SetRecipeUserfields(ctx context.Context, recipeID int, values Userfields) error {
	return c.setUserfields(ctx, "recipes", recipeID, values)
}

// QuantityUnitNames returns qu_id -> unit name for all quantity units.
func (c *Client) QuantityUnitNames(ctx context.Context) (map[int]string, error) {
	items, err := c.getList(ctx, []string{"/objects/quantity_units"})
	if err != nil {
		return nil, err
	}
	out := make(map[int]string, len(items))
	for _, it := range items {
		id, ok := asInt(it["id"])
		if !ok {
			continue
		}
		name, _ := it["name"].(string)
		if name = strings.TrimSpace(name); name != "" {
			out[id] = name
		}
	}
	return out, nil
}
