package grocy

import (
	"context"
	"fmt"
)

// shoppingCandidatePaths are tried in order when reading shopping list items.
var shoppingCandidatePaths = []string{
	"/objects/shopping_list",
	"/stock/shoppinglist",
}

// ShoppingListItems returns shopping list items. When listID is > 0 the
// result is filtered client-side, since not every endpoint variant
// supports filtering.
func (c *Client) ShoppingListItems(ctx context.Context, listID int) ([]Object, error) {
	items, err := c.getList(ctx, shoppingCandidatePaths)
	if err != nil {
		return nil, err
	}
	if listID <= 0 {
		return items, nil
	}
	var out []Object
	for _, it := range items {
		if sid, ok := asInt(it["shopping_list_id"]); ok && sid == listID {
			out = append(out, it)
		}
	}
	return out, nil
}

// ShoppingListAdd adds amount of a product to a shopping list.
func (c *Client) ShoppingListAdd(ctx context.Context, productID int, amount float64, listID int) error {
	if amount <= 0 {
		return fmt.Errorf("grocy: amount must be > 0 to add to shopping list")
	}
	payload := Object{"product_id": productID, "amount": amount}
	if listID > 0 {
		payload["shopping_list_id"] = listID
	}
	_, err := c.post(ctx, "/stock/shoppinglist/add-product", payload)
	return err
}

// ShoppingListRemove removes amount of a product from a shopping list.
func (c *Client) ShoppingListRemove(ctx context.Context, productID int, amount float64, listID int) error {
	if amount <= 0 {
		return fmt.Errorf("grocy: amount must be > 0 to remove from shopping list")
	}
	payload := Object{"product_id": productID, "amount": amount}
	if listID > 0 {
		payload["shopping_list_id"] = listID
	}
	_, err := c.post(ctx, "/stock/shoppinglist/remove-product", payload)
	return err
}

// ShoppingListClear removes every item from a shopping list.
func (c *Client) ShoppingListClear(ctx context.Context, listID int) error {
	payload := Object{}
	if listID > 0 {
		payload["shopping_list_id"] = listID
	}
	_, err := c.post(ctx, "/stock/shoppinglist/clear", payload)
	return err
}
