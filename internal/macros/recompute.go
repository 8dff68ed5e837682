package macros

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/starford/pantry/internal/grocy"
)

// servingFractionTolerance bounds the fractional-serving heuristic below:
// amounts like 0.1667 of a 6-serving container multiply out to 1.0002,
// which should count as exactly one serving.
const servingFractionTolerance = 0.02

// RecomputeBackend is the slice of the Grocy client the recipe macro
// recompute consumes.
type RecomputeBackend interface {
	ListRecipes(ctx context.Context) ([]grocy.Object, error)
	RecipeIngredients(ctx context.Context, recipeID int) ([]grocy.Object, error)
	QuantityUnitNames(ctx context.Context) (map[int]string, error)
	ProductUserfields(ctx context.Context, productID int) (grocy.Userfields, error)
	SetRecipeUserfields(ctx context.Context, recipeID int, values grocy.Userfields) error
}

var _ RecomputeBackend = (*grocy.Client)(nil)

// RecomputeResult reports what a recompute run did.
type RecomputeResult struct {
	Updated int
	Skipped int
}

// RecomputeRecipeMacros refreshes every recipe's per-serving nutrition
// userfields from its ingredients' product userfields.
//
// Ingredient amounts in the Container unit multiply per-serving macros by
// amount x num_servings; amounts in the Serving unit multiply by the
// amount directly. Totals are divided by the recipe's base_servings.
// Missing data at any step logs a warning and skips that ingredient or
// recipe; the run never aborts on data quality.
func RecomputeRecipeMacros(ctx context.Context, backend RecomputeBackend, logger *slog.Logger) (RecomputeResult, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var res RecomputeResult

	recipes, err := backend.ListRecipes(ctx)
	if err != nil {
		return res, err
	}
	unitNames, err := backend.QuantityUnitNames(ctx)
	if err != nil {
		return res, err
	}

	userfieldCache := make(map[int]grocy.Userfields)

	for _, recipe := range recipes {
		recipeID, ok := objectID(recipe)
		if !ok {
			res.Skipped++
			continue
		}

		baseServings := objectFloat(recipe, "base_servings")
		if baseServings <= 0 {
			logger.Warn("recompute: missing or invalid base_servings, recipe skipped",
				slog.Int("recipe_id", recipeID))
			res.Skipped++
			continue
		}

		ingredients, err := backend.RecipeIngredients(ctx, recipeID)
		if err != nil {
			logger.Warn("recompute: ingredient fetch failed, recipe skipped",
				slog.Int("recipe_id", recipeID), slog.String("error", err.Error()))
			res.Skipped++
			continue
		}

		var total contribution
		for _, ing := range ingredients {
			part, ok := ingredientContribution(ctx, backend, logger, recipeID, ing, unitNames, userfieldCache)
			if !ok {
				continue
			}
			total.calories += part.calories
			total.carbs += part.carbs
			total.fats += part.fats
			total.protein += part.protein
		}

		if total == (contribution{}) {
			logger.Warn("recompute: no computable ingredients, recipe skipped",
				slog.Int("recipe_id", recipeID))
			res.Skipped++
			continue
		}

		values := grocy.Userfields{
			"recipe_calories": int(math.Round(total.calories / baseServings)),
			"recipe_carbs":    round2(total.carbs / baseServings),
			"recipe_fats":     round2(total.fats / baseServings),
			"recipe_proteins": round2(total.protein / baseServings),
		}
		if err := backend.SetRecipeUserfields(ctx, recipeID, values); err != nil {
			logger.Warn("recompute: userfield write failed, recipe skipped",
				slog.Int("recipe_id", recipeID), slog.String("error", err.Error()))
			res.Skipped++
			continue
		}
		res.Updated++
	}

	return res, nil
}

// contribution is one ingredient's macro totals within a recipe.
type contribution struct {
	calories float64
	carbs    float64
	fats     float64
	protein  float64
}

// ingredientContribution computes one ingredient row's macro totals, or
// ok=false when the row lacks usable data.
func ingredientContribution(
	ctx context.Context,
	backend RecomputeBackend,
	logger *slog.Logger,
	recipeID int,
	ing grocy.Object,
	unitNames map[int]string,
	userfieldCache map[int]grocy.Userfields,
) (contribution, bool) {
	var zero contribution

	productID, ok := objectIntField(ing, "product_id")
	amount := objectFloat(ing, "amount")
	if !ok || amount <= 0 {
		logger.Warn("recompute: ingredient missing product or amount, skipped",
			slog.Int("recipe_id", recipeID))
		return zero, false
	}

	quID, ok := objectIntField(ing, "qu_id")
	unitName, known := "", false
	if ok {
		unitName, known = unitNames[quID]
	}
	if !known {
		logger.Warn("recompute: ingredient has unknown quantity unit, skipped",
			slog.Int("recipe_id", recipeID), slog.Int("product_id", productID))
		return zero, false
	}

	unitKey := normalizeUnit(unitName)
	if unitKey != "container" && unitKey != "serving" {
		logger.Warn("recompute: unsupported ingredient unit, skipped",
			slog.Int("recipe_id", recipeID), slog.String("unit", unitName))
		return zero, false
	}

	uf, cached := userfieldCache[productID]
	if !cached {
		fetched, err := backend.ProductUserfields(ctx, productID)
		if err != nil {
			logger.Warn("recompute: product userfields unavailable, ingredient skipped",
				slog.Int("product_id", productID), slog.String("error", err.Error()))
			return zero, false
		}
		uf = fetched
		userfieldCache[productID] = uf
	}

	perServing, ok := requiredFloats(uf, "Calories_Per_Serving", "Carbs", "Fats", "Protein")
	if !ok {
		logger.Warn("recompute: product missing per-serving macros, ingredient skipped",
			slog.Int("product_id", productID))
		return zero, false
	}

	multiplier, ok := servingMultiplier(unitKey, amount, uf)
	if !ok {
		logger.Warn("recompute: product missing num_servings for container unit, ingredient skipped",
			slog.Int("product_id", productID))
		return zero, false
	}

	return contribution{
		calories: perServing[0] * multiplier,
		carbs:    perServing[1] * multiplier,
		fats:     perServing[2] * multiplier,
		protein:  perServing[3] * multiplier,
	}, true
}

// servingMultiplier converts an ingredient amount into a per-serving
// multiplier.
//
// For the Serving unit the amount is the multiplier, except for one data
// quality workaround: some recipes store a fraction of a container while
// tagging the unit as Serving. When amount < 1 and amount x num_servings
// lands within servingFractionTolerance of an integer, that integer is
// the intended serving count.
func servingMultiplier(unitKey string, amount float64, uf grocy.Userfields) (float64, bool) {
	numServings := uf.Float("num_servings")
	if unitKey == "container" {
		if numServings <= 0 {
			return 0, false
		}
		return amount * numServings, true
	}

	if numServings > 0 && amount < 1.0 {
		candidate := amount * numServings
		rounded := math.Round(candidate)
		if math.Abs(rounded-candidate) <= servingFractionTolerance {
			return rounded, true
		}
	}
	return amount, true
}

// normalizeUnit lowercases a unit name and strips a plural "s".
func normalizeUnit(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	return strings.TrimSuffix(s, "s")
}

// requiredFloats extracts keys from uf, failing when any is absent or
// non-numeric. Unlike the aggregation engine's treat-as-zero policy, the
// recompute refuses to write totals derived from incomplete products.
func requiredFloats(uf grocy.Userfields, keys ...string) ([]float64, bool) {
	out := make([]float64, len(keys))
	for i, key := range keys {
		f, ok := uf.FloatOK(key)
		if !ok {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func objectID(obj grocy.Object) (int, bool) {
	return objectIntField(obj, "id")
}

func objectIntField(obj grocy.Object, key string) (int, bool) {
	f, ok := grocy.Userfields(obj).FloatOK(key)
	if !ok {
		return 0, false
	}
	return int(f), true
}

func objectFloat(obj grocy.Object, key string) float64 {
	return grocy.Userfields(obj).Float(key)
}
