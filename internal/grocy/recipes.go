package grocy

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/pantry/internal/apperr"
)

// ListRecipes returns all recipe objects.
func (c *Client) ListRecipes(ctx context.Context) ([]Object, error) {
	return c.getList(ctx, []string{"/objects/recipes"})
}

// GetRecipe returns a single recipe by id.
func (c *Client) GetRecipe(ctx context.Context, recipeID int) (Object, error) {
	data, err := c.get(ctx, fmt.Sprintf("/objects/recipes/%d", recipeID), nil)
	if err != nil {
		if he, ok := err.(*HTTPError); ok && he.Status == 404 {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	obj, ok := data.(Object)
	if !ok {
		return nil, fmt.Errorf("grocy: unexpected recipe response shape")
	}
	return obj, nil
}

// CreateRecipe creates a recipe and returns its id when reported.
func (c *Client) CreateRecipe(ctx context.Context, fields Object) (int, error) {
	name, _ := fields["name"].(string)
	if strings.TrimSpace(name) == "" {
		return 0, fmt.Errorf("grocy: recipe requires a non-empty 'name'")
	}
	resp, err := c.post(ctx, "/objects/recipes", fields)
	if err != nil {
		return 0, err
	}
	id, _ := extractCreatedID(resp)
	return id, nil
}

// UpdateRecipe applies a partial update to a recipe.
func (c *Client) UpdateRecipe(ctx context.Context, recipeID int, fields Object) error {
	if len(fields) == 0 {
		return fmt.Errorf("grocy: update fields must be non-empty")
	}
	_, err := c.put(ctx, fmt.Sprintf("/objects/recipes/%d", recipeID), fields)
	return err
}

// DeleteRecipe removes a recipe.
func (c *Client) DeleteRecipe(ctx context.Context, recipeID int) error {
	_, err := c.delete(ctx, fmt.Sprintf("/objects/recipes/%d", recipeID))
	return err
}

// RecipeIngredients returns the ingredient rows for one recipe. The
// positions endpoint has no server-side filter, so filtering happens here.
func (c *Client) RecipeIngredients(ctx context.Context, recipeID int) ([]Object, error) {
	items, err := c.getList(ctx, []string{"/objects/recipes_pos"})
	if err != nil {
		return nil, err
	}
	var out []Object
	for _, it := range items {
		if rid, ok := asInt(it["recipe_id"]); ok && rid == recipeID {
			out = append(out, it)
		}
	}
	return out, nil
}

// AddRecipeIngredient adds an ingredient row to a recipe.
func (c *Client) AddRecipeIngredient(ctx context.Context, fields Object) (int, error) {
	for _, key := range []string{"recipe_id", "product_id", "amount"} {
		if fields[key] == nil {
			return 0, fmt.Errorf("grocy: recipe ingredient requires %q", key)
		}
	}
	resp, err := c.post(ctx, "/objects/recipes_pos", fields)
	if err != nil {
		return 0, err
	}
	id, _ := extractCreatedID(resp)
	return id, nil
}

// DeleteRecipeIngredient removes an ingredient row.
func (c *Client) DeleteRecipeIngredient(ctx context.Context, ingredientID int) error {
	_, err := c.delete(ctx, fmt.Sprintf("/objects/recipes_pos/%d", ingredientID))
	return err
}

// RecipeFulfillment returns the stock fulfillment report for a recipe.
func (c *Client) RecipeFulfillment(ctx context.Context, recipeID int) (Object, error) {
	data, err := c.get(ctx, fmt.Sprintf("/recipes/%d/fulfillment", recipeID), nil)
	if err != nil {
		return nil, err
	}
	obj, _ := data.(Object)
	return obj, nil
}

// Fulfillment field names drift across Grocy versions.
var (
	fulfilledFields = []string{
		"requirements_fulfilled", "is_fulfilled", "can_be_cooked",
		"fully_fulfilled", "all_ingredients_in_stock",
	}
	missingListFields  = []string{"missing_products", "missing_items", "missing"}
	missingCountFields = []string{
		"missing_products_count", "missing_count", "num_missing", "missing_amount",
	}
	possibleServingsFields = []string{
		"possible_servings", "servings_possible", "possible_portions",
		"possible_amount", "num_servings",
	}
)

// CookableRecipe summarizes a recipe whose ingredients are fully in stock.
type CookableRecipe struct {
	ID               int      `json:"id"`
	Name             string   `json:"name"`
	PossibleServings *float64 `json:"possible_servings"`
}

// fulfillmentSatisfied interprets a fulfillment report without
// re-implementing Grocy's stock math: explicit boolean flags win, then
// missing-product indicators, then a positive possible-servings count.
func fulfillmentSatisfied(ful Object) bool {
	for _, key := range fulfilledFields {
		if v, ok := ful[key].(bool); ok && v {
			return true
		}
	}
	for _, key := range missingListFields {
		if list, ok := ful[key].([]any); ok {
			return len(list) == 0
		}
	}
	for _, key := range missingCountFields {
		if n, ok := asFloat(ful[key]); ok {
			return n <= 0
		}
	}
	for _, key := range possibleServingsFields {
		if n, ok := asFloat(ful[key]); ok && n >= 1 {
			return true
		}
	}
	return false
}

func possibleServings(ful Object) *float64 {
	for _, key := range possibleServingsFields {
		if n, ok := asFloat(ful[key]); ok {
			return &n
		}
	}
	return nil
}

// CookableRecipes returns the recipes Grocy reports as cookable with
// current stock. Recipes whose fulfillment lookup fails are skipped; the
// list is best-effort.
func (c *Client) CookableRecipes(ctx context.Context) ([]CookableRecipe, error) {
	recipes, err := c.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	var out []CookableRecipe
	for _, r := range recipes {
		id, ok := asInt(r["id"])
		if !ok {
			continue
		}
		ful, err := c.RecipeFulfillment(ctx, id)
		if err != nil || !fulfillmentSatisfied(ful) {
			continue
		}
		name, _ := r["name"].(string)
		out = append(out, CookableRecipe{
			ID:               id,
			Name:             name,
			PossibleServings: possibleServings(ful),
		})
	}
	return out, nil
}
