package grocy

import (
	"context"
	"fmt"
)

// doneFieldCandidates are the meal-plan flag names observed across Grocy
// versions, in probe order. Version drift is a one-line change here.
var doneFieldCandidates = []string{"done", "is_done", "completed"}

// MealPlanEntry is a raw meal plan object.
type MealPlanEntry struct {
	Object
}

// Day returns the entry's day string (YYYY-MM-DD), or "" when absent.
func (e MealPlanEntry) Day() string {
	day, _ := e.Object["day"].(string)
	return day
}

// Done reports whether the entry is marked consumed, probing every known
// flag field name. Absence of all of them means not done.
func (e MealPlanEntry) Done() bool {
	return firstTruthy(e.Object, doneFieldCandidates)
}

// RecipeID returns the referenced recipe id, if any.
func (e MealPlanEntry) RecipeID() (int, bool) {
	id, ok := asInt(e.Object["recipe_id"])
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// ProductID returns the referenced product id, if any.
func (e MealPlanEntry) ProductID() (int, bool) {
	id, ok := asInt(e.Object["product_id"])
	if !ok || id == 0 {
		return 0, false
	}
	return id, true
}

// Servings returns the recipe serving multiplier (default 1.0).
func (e MealPlanEntry) Servings() float64 {
	return firstFloat(e.Object, []string{"servings", "recipe_servings"}, 1.0)
}

// Amount returns the product amount multiplier (default 1.0).
func (e MealPlanEntry) Amount() float64 {
	return firstFloat(e.Object, []string{"amount", "product_amount"}, 1.0)
}

// ID returns the entry's object id.
func (e MealPlanEntry) ID() (int, bool) {
	return asInt(e.Object["id"])
}

// ListMealPlan returns all meal plan entries, all days, unfiltered.
func (c *Client) ListMealPlan(ctx context.Context) ([]MealPlanEntry, error) {
	items, err := c.getList(ctx, []string{"/objects/meal_plan"})
	if err != nil {
		return nil, err
	}
	entries := make([]MealPlanEntry, len(items))
	for i, it := range items {
		entries[i] = MealPlanEntry{Object: it}
	}
	return entries, nil
}

// MealPlanRange returns entries whose day falls within [start, end]
// (YYYY-MM-DD, inclusive; lexical compare equals chronological).
func (c *Client) MealPlanRange(ctx context.Context, start, end string) ([]MealPlanEntry, error) {
	all, err := c.ListMealPlan(ctx)
	if err != nil {
		return nil, err
	}
	var out []MealPlanEntry
	for _, e := range all {
		if day := e.Day(); day != "" && start <= day && day <= end {
			out = append(out, e)
		}
	}
	return out, nil
}

// CreateMealPlanEntry creates a meal plan entry after validating the day
// field and that referenced objects exist, so bad foreign keys fail with
// actionable errors instead of opaque backend 400s.
func (c *Client) CreateMealPlanEntry(ctx context.Context, fields Object) (int, error) {
	day, _ := fields["day"].(string)
	if day == "" {
		return 0, fmt.Errorf("grocy: meal plan entry requires 'day' (YYYY-MM-DD)")
	}
	if fields["recipe_id"] == nil && fields["product_id"] == nil && fields["note"] == nil {
		return 0, fmt.Errorf("grocy: meal plan entry requires one of 'recipe_id', 'product_id', or 'note'")
	}
	refs := []struct {
		key    string
		object string
	}{
		{"recipe_id", "recipes"},
		{"product_id", "products"},
		{"qu_id", "quantity_units"},
		{"product_qu_id", "quantity_units"},
		{"meal_plan_section_id", "meal_plan_sections"},
	}
	for _, ref := range refs {
		raw, ok := fields[ref.key]
		if !ok || raw == nil {
			continue
		}
		id, ok := asInt(raw)
		if !ok {
			return 0, fmt.Errorf("grocy: invalid %s=%v", ref.key, raw)
		}
		exists, err := c.objectExists(ctx, ref.object, id)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, fmt.Errorf("grocy: invalid %s=%d: no such %s", ref.key, id, ref.object)
		}
	}

	resp, err := c.post(ctx, "/objects/meal_plan", fields)
	if err != nil {
		return 0, err
	}
	id, _ := extractCreatedID(resp)
	return id, nil
}

// UpdateMealPlanEntry applies a partial update to a meal plan entry.
func (c *Client) UpdateMealPlanEntry(ctx context.Context, entryID int, fields Object) error {
	if len(fields) == 0 {
		return fmt.Errorf("grocy: update fields must be non-empty")
	}
	_, err := c.put(ctx, fmt.Sprintf("/objects/meal_plan/%d", entryID), fields)
	return err
}

// MarkMealPlanDone flags a meal plan entry as consumed. The flag field name
// varies across versions, so the entry is fetched first and the field that
// is actually present wins; "done" is the fallback for entries that carry
// no flag at all yet.
func (c *Client) MarkMealPlanDone(ctx context.Context, entryID int) error {
	field := doneFieldCandidates[0]
	if data, err := c.get(ctx, fmt.Sprintf("/objects/meal_plan/%d", entryID), nil); err == nil {
		if obj, ok := data.(Object); ok {
			for _, cand := range doneFieldCandidates {
				if _, present := obj[cand]; present {
					field = cand
					break
				}
			}
		}
	}
	return c.UpdateMealPlanEntry(ctx, entryID, Object{field: true})
}

// DeleteMealPlanEntry removes a meal plan entry.
func (c *Client) DeleteMealPlanEntry(ctx context.Context, entryID int) error {
	_, err := c.delete(ctx, fmt.Sprintf("/objects/meal_plan/%d", entryID))
	return err
}

// MealPlanSections returns all configured meal plan sections.
func (c *Client) MealPlanSections(ctx context.Context) ([]Object, error) {
	return c.getList(ctx, []string{"/objects/meal_plan_sections"})
}
