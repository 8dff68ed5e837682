package macros

import (
	"context"
	"errors"
	"testing"

	"github.com/starford/pantry/internal/grocy"
)

// fakeRecomputeBackend implements RecomputeBackend over fixtures and
// records userfield writes.
type fakeRecomputeBackend struct {
	recipes     []grocy.Object
	ingredients map[int][]grocy.Object
	units       map[int]string
	productUF   map[int]grocy.Userfields
	writes      map[int]grocy.Userfields
	writeErr    error
}

func (f *fakeRecomputeBackend) ListRecipes(ctx context.Context) ([]grocy.Object, error) {
	return f.recipes, nil
}

func (f *fakeRecomputeBackend) RecipeIngredients(ctx context.Context, recipeID int) ([]grocy.Object, error) {
	return f.ingredients[recipeID], nil
}

func (f *fakeRecomputeBackend) QuantityUnitNames(ctx context.Context) (map[int]string, error) {
	return f.units, nil
}

func (f *fakeRecomputeBackend) ProductUserfields(ctx context.Context, productID int) (grocy.Userfields, error) {
	if uf, ok := f.productUF[productID]; ok {
		return uf, nil
	}
	return nil, errors.New("no userfields")
}

func (f *fakeRecomputeBackend) SetRecipeUserfields(ctx context.Context, recipeID int, values grocy.Userfields) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.writes == nil {
		f.writes = make(map[int]grocy.Userfields)
	}
	f.writes[recipeID] = values
	return nil
}

func TestRecompute_ContainerAndServingUnits(t *testing.T) {
	backend := &fakeRecomputeBackend{
		recipes: []grocy.Object{{"id": 1, "base_servings": 4.0}},
		units:   map[int]string{10: "Container", 11: "Servings"},
		ingredients: map[int][]grocy.Object{
			1: {
				// Half a container of a 4-serving product: 2 servings.
				{"product_id": 100, "amount": 0.5, "qu_id": 10},
				// Two straight servings.
				{"product_id": 101, "amount": 2.0, "qu_id": 11},
			},
		},
		productUF: map[int]grocy.Userfields{
			100: {"Calories_Per_Serving": 200.0, "Carbs": 20.0, "Fats": 8.0, "Protein": 10.0, "num_servings": 4.0},
			101: {"Calories_Per_Serving": 100.0, "Carbs": 10.0, "Fats": 2.0, "Protein": 15.0},
		},
	}

	res, err := RecomputeRecipeMacros(context.Background(), backend, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 1 || res.Skipped != 0 {
		t.Errorf("result = %+v", res)
	}

	// Totals: container 2x{200,20,8,10} + serving 2x{100,10,2,15}
	// = {600,60,20,50}, divided by 4 base servings.
	wrote := backend.writes[1]
	if wrote["recipe_calories"] != 150 {
		t.Errorf("recipe_calories = %v, want 150", wrote["recipe_calories"])
	}
	if wrote["recipe_carbs"] != 15.0 || wrote["recipe_fats"] != 5.0 || wrote["recipe_proteins"] != 12.5 {
		t.Errorf("wrote = %v", wrote)
	}
}

func TestRecompute_FractionalServingHeuristic(t *testing.T) {
	backend := &fakeRecomputeBackend{
		recipes: []grocy.Object{{"id": 1, "base_servings": 1.0}},
		units:   map[int]string{11: "Serving"},
		ingredients: map[int][]grocy.Object{
			// 1/6 of a 6-serving product mislabeled as Serving: the
			// product of 0.1667 x 6 = 1.0002 snaps to exactly 1 serving.
			1: {{"product_id": 100, "amount": 0.1667, "qu_id": 11}},
		},
		productUF: map[int]grocy.Userfields{
			100: {"Calories_Per_Serving": 240.0, "Carbs": 30.0, "Fats": 9.0, "Protein": 12.0, "num_servings": 6.0},
		},
	}

	if _, err := RecomputeRecipeMacros(context.Background(), backend, nil); err != nil {
		t.Fatal(err)
	}
	if got := backend.writes[1]["recipe_calories"]; got != 240 {
		t.Errorf("recipe_calories = %v, want 240 (one snapped serving)", got)
	}
}

func TestRecompute_GenuineFractionStaysFractional(t *testing.T) {
	backend := &fakeRecomputeBackend{
		recipes: []grocy.Object{{"id": 1, "base_servings": 1.0}},
		units:   map[int]string{11: "Serving"},
		ingredients: map[int][]grocy.Object{
			// 0.5 x 3 = 1.5 is nowhere near an integer: keep the raw amount.
			1: {{"product_id": 100, "amount": 0.5, "qu_id": 11}},
		},
		productUF: map[int]grocy.Userfields{
			100: {"Calories_Per_Serving": 200.0, "Carbs": 20.0, "Fats": 10.0, "Protein": 8.0, "num_servings": 3.0},
		},
	}

	if _, err := RecomputeRecipeMacros(context.Background(), backend, nil); err != nil {
		t.Fatal(err)
	}
	if got := backend.writes[1]["recipe_calories"]; got != 100 {
		t.Errorf("recipe_calories = %v, want 100 (half serving)", got)
	}
}

func TestRecompute_SkipsUnusableRecipes(t *testing.T) {
	backend := &fakeRecomputeBackend{
		recipes: []grocy.Object{
			{"id": 1},                                      // no base_servings
			{"id": 2, "base_servings": 2.0},                // unsupported unit
			{"id": 3, "base_servings": 2.0},                // product missing macro fields
			{"id": 4, "base_servings": 0.0},                // zero base servings
			{"id": 5, "base_servings": 2.0, "name": "ok3"}, // no ingredients at all
		},
		units: map[int]string{11: "Serving", 12: "Gram"},
		ingredients: map[int][]grocy.Object{
			2: {{"product_id": 100, "amount": 50.0, "qu_id": 12}},
			3: {{"product_id": 101, "amount": 1.0, "qu_id": 11}},
		},
		productUF: map[int]grocy.Userfields{
			100: {"Calories_Per_Serving": 100.0, "Carbs": 1.0, "Fats": 1.0, "Protein": 1.0},
			101: {"Calories_Per_Serving": 100.0}, // Carbs/Fats/Protein missing
		},
	}

	res, err := RecomputeRecipeMacros(context.Background(), backend, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 || res.Skipped != 5 {
		t.Errorf("result = %+v, want 0 updated / 5 skipped", res)
	}
	if len(backend.writes) != 0 {
		t.Errorf("unexpected writes: %v", backend.writes)
	}
}

func TestRecompute_ContainerRequiresNumServings(t *testing.T) {
	backend := &fakeRecomputeBackend{
		recipes: []grocy.Object{{"id": 1, "base_servings": 1.0}},
		units:   map[int]string{10: "Container"},
		ingredients: map[int][]grocy.Object{
			1: {{"product_id": 100, "amount": 1.0, "qu_id": 10}},
		},
		productUF: map[int]grocy.Userfields{
			100: {"Calories_Per_Serving": 100.0, "Carbs": 1.0, "Fats": 1.0, "Protein": 1.0},
		},
	}

	res, err := RecomputeRecipeMacros(context.Background(), backend, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 || res.Skipped != 1 {
		t.Errorf("container without num_servings should skip the recipe: %+v", res)
	}
}
