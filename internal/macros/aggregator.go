// Package macros implements the macro aggregation engine: it reconciles
// meal-plan entries from the Grocy backend, temp items from the local
// ledger, and nutrition userfields of inconsistent presence into daily
// nutrition summaries under a configurable day boundary.
//
// The governing failure policy is degrade-and-continue: a single bad
// entry, unreachable backend call, or malformed userfield never aborts a
// summary. Only a failure of the local ledger, the engine's own
// authoritative store, propagates to the caller.
package macros

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"sort"
	"strconv"

	cache "github.com/patrickmn/go-cache"

	"github.com/starford/pantry/internal/dayclock"
	"github.com/starford/pantry/internal/grocy"
	"github.com/starford/pantry/internal/ledger"
)

// Hardcoded engine-level goal defaults, used when neither the environment
// nor the ledger configures a goal.
const (
	defaultGoalCalories = 3500
	defaultGoalCarbs    = 350
	defaultGoalFats     = 100
	defaultGoalProtein  = 250
)

// Environment overrides for goal macros. Precedence: env > ledger config
// > hardcoded default; a non-numeric value falls through to the next tier.
const (
	EnvGoalCalories = "MACRO_GOAL_CALORIES"
	EnvGoalCarbs    = "MACRO_GOAL_CARBS"
	EnvGoalFats     = "MACRO_GOAL_FATS"
	EnvGoalProtein  = "MACRO_GOAL_PROTEIN"
)

// defaultPageSize is the recent-days page size when the caller passes none.
const defaultPageSize = 4

// Backend is the slice of the Grocy client the engine consumes.
type Backend interface {
	ListMealPlan(ctx context.Context) ([]grocy.MealPlanEntry, error)
	GetRecipe(ctx context.Context, recipeID int) (grocy.Object, error)
	RecipeUserfields(ctx context.Context, recipeID int) (grocy.Userfields, error)
	GetProduct(ctx context.Context, productID int) (grocy.Object, error)
	ProductUserfields(ctx context.Context, productID int) (grocy.Userfields, error)
}

// Verify *grocy.Client satisfies Backend at compile time.
var _ Backend = (*grocy.Client)(nil)

// Aggregator produces day summaries and the recent-active-days index.
type Aggregator struct {
	backend Backend
	store   ledger.Store
	clock   *dayclock.Resolver
	logger  *slog.Logger
}

// New creates an Aggregator. logger may be nil.
func New(backend Backend, store ledger.Store, clock *dayclock.Resolver, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{backend: backend, store: store, clock: clock, logger: logger}
}

// Clock exposes the day-boundary resolver, for callers that need to
// default a day argument to the current logical day.
func (a *Aggregator) Clock() *dayclock.Resolver {
	return a.clock
}

// DaySummary aggregates consumed, planned, and goal macros for one
// logical day. The returned summary is always well-formed; the error is
// non-nil only when the ledger is unreachable.
func (a *Aggregator) DaySummary(ctx context.Context, day string) (DaySummary, error) {
	// Per-call userfield lookup cache, discarded when this call returns.
	// One meal plan frequently references the same recipe many times.
	lookups := cache.New(cache.NoExpiration, 0)

	entries := a.consumedFromBackend(ctx, day, lookups)

	tempEntries, err := a.consumedFromLedger(day)
	if err != nil {
		return DaySummary{}, fmt.Errorf("macros: day summary %s: %w", day, err)
	}
	entries = append(entries, tempEntries...)

	var consumed Consumed
	consumed.Entries = entries
	var carbs, fats, protein float64
	for _, e := range entries {
		consumed.Calories += e.Calories
		carbs += e.Carbs
		fats += e.Fats
		protein += e.Protein
	}
	consumed.Carbs = round2(carbs)
	consumed.Fats = round2(fats)
	consumed.Protein = round2(protein)
	if consumed.Entries == nil {
		consumed.Entries = []Entry{}
	}

	return DaySummary{
		Day:      day,
		Consumed: consumed,
		Planned:  a.plannedForDay(ctx, day, lookups),
		Goal:     a.GoalMacros(),
	}, nil
}

// consumedFromBackend returns the contributions of meal-plan entries for
// the day that are marked done. Backend failure degrades to no entries;
// entries lacking usable data are skipped, not fatal.
func (a *Aggregator) consumedFromBackend(ctx context.Context, day string, lookups *cache.Cache) []Entry {
	all, err := a.backend.ListMealPlan(ctx)
	if err != nil {
		a.logger.Warn("macros: meal plan fetch failed, consumed degrades to empty",
			slog.String("day", day), slog.String("error", err.Error()))
		return nil
	}

	var out []Entry
	for _, mp := range all {
		if mp.Day() != day || !mp.Done() {
			continue
		}
		entry, ok := a.mealPlanContribution(ctx, mp, lookups, true)
		if !ok {
			continue
		}
		out = append(out, entry)
	}
	return out
}

// consumedFromLedger returns the day's temp items as consumed entries.
// Macros are taken verbatim; they are already totals, not per-serving.
func (a *Aggregator) consumedFromLedger(day string) ([]Entry, error) {
	items, err := a.store.TempItemsForDay(day)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, it := range items {
		out = append(out, Entry{
			Type:     OriginTemp,
			ID:       it.ID,
			Name:     it.Name,
			Calories: int(math.Round(it.Calories)),
			Carbs:    it.Carbs,
			Fats:     it.Fats,
			Protein:  it.Protein,
		})
	}
	return out, nil
}

// plannedForDay totals every meal-plan entry for the day, done or not.
// Any failure degrades to all-zero planned totals.
func (a *Aggregator) plannedForDay(ctx context.Context, day string, lookups *cache.Cache) Totals {
	all, err := a.backend.ListMealPlan(ctx)
	if err != nil {
		a.logger.Warn("macros: meal plan fetch failed, planned degrades to zero",
			slog.String("day", day), slog.String("error", err.Error()))
		return Totals{}
	}

	var t Totals
	var carbs, fats, protein float64
	for _, mp := range all {
		if mp.Day() != day {
			continue
		}
		entry, ok := a.mealPlanContribution(ctx, mp, lookups, false)
		if !ok {
			continue
		}
		t.Calories += entry.Calories
		carbs += entry.Carbs
		fats += entry.Fats
		protein += entry.Protein
	}
	t.Carbs = round2(carbs)
	t.Fats = round2(fats)
	t.Protein = round2(protein)
	return t
}

// mealPlanContribution computes one meal-plan entry's macro contribution:
// per-serving-or-per-unit userfield macros times the entry's multiplier.
// withName controls whether the display name is resolved (consumed
// entries carry names; planned totals do not need them).
func (a *Aggregator) mealPlanContribution(ctx context.Context, mp grocy.MealPlanEntry, lookups *cache.Cache, withName bool) (Entry, bool) {
	if recipeID, ok := mp.RecipeID(); ok {
		uf, err := a.recipeUserfields(ctx, recipeID, lookups)
		if err != nil {
			a.logger.Warn("macros: recipe userfields unavailable, entry skipped",
				slog.Int("recipe_id", recipeID), slog.String("error", err.Error()))
			return Entry{}, false
		}
		servings := mp.Servings()
		entry := Entry{
			Type:     OriginRecipe,
			ID:       recipeID,
			Servings: servings,
			Calories: int(math.Round(uf.Float("recipe_calories") * servings)),
			Carbs:    uf.Float("recipe_carbs") * servings,
			Fats:     uf.Float("recipe_fats") * servings,
			Protein:  uf.Float("recipe_proteins") * servings,
		}
		if withName {
			entry.Name = a.recipeName(ctx, recipeID, lookups)
		}
		return entry, true
	}

	if productID, ok := mp.ProductID(); ok {
		uf, err := a.productUserfields(ctx, productID, lookups)
		if err != nil {
			a.logger.Warn("macros: product userfields unavailable, entry skipped",
				slog.Int("product_id", productID), slog.String("error", err.Error()))
			return Entry{}, false
		}
		amount := mp.Amount()
		entry := Entry{
			Type:     OriginProduct,
			ID:       productID,
			Servings: amount,
			Calories: int(math.Round(uf.Float("Calories_Per_Serving") * amount)),
			Carbs:    uf.Float("Carbs") * amount,
			Fats:     uf.Float("Fats") * amount,
			Protein:  uf.Float("Protein") * amount,
		}
		if withName {
			entry.Name = a.productName(ctx, productID, lookups)
		}
		return entry, true
	}

	// Note-only entries carry no macros.
	return Entry{}, false
}

func (a *Aggregator) recipeUserfields(ctx context.Context, recipeID int, lookups *cache.Cache) (grocy.Userfields, error) {
	key := "recipe-uf/" + strconv.Itoa(recipeID)
	if cached, found := lookups.Get(key); found {
		return cached.(grocy.Userfields), nil
	}
	uf, err := a.backend.RecipeUserfields(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	lookups.SetDefault(key, uf)
	return uf, nil
}

func (a *Aggregator) productUserfields(ctx context.Context, productID int, lookups *cache.Cache) (grocy.Userfields, error) {
	key := "product-uf/" + strconv.Itoa(productID)
	if cached, found := lookups.Get(key); found {
		return cached.(grocy.Userfields), nil
	}
	uf, err := a.backend.ProductUserfields(ctx, productID)
	if err != nil {
		return nil, err
	}
	lookups.SetDefault(key, uf)
	return uf, nil
}

// recipeName resolves a recipe display name, falling back to a synthetic
// one; names are cosmetic and never gate aggregation.
func (a *Aggregator) recipeName(ctx context.Context, recipeID int, lookups *cache.Cache) string {
	key := "recipe-name/" + strconv.Itoa(recipeID)
	if cached, found := lookups.Get(key); found {
		return cached.(string)
	}
	name := fmt.Sprintf("Recipe %d", recipeID)
	if obj, err := a.backend.GetRecipe(ctx, recipeID); err == nil {
		if n, ok := obj["name"].(string); ok && n != "" {
			name = n
		}
	}
	lookups.SetDefault(key, name)
	return name
}

func (a *Aggregator) productName(ctx context.Context, productID int, lookups *cache.Cache) string {
	key := "product-name/" + strconv.Itoa(productID)
	if cached, found := lookups.Get(key); found {
		return cached.(string)
	}
	name := fmt.Sprintf("Product %d", productID)
	if obj, err := a.backend.GetProduct(ctx, productID); err == nil {
		if n, ok := obj["name"].(string); ok && n != "" {
			name = n
		}
	}
	lookups.SetDefault(key, name)
	return name
}

// GoalMacros resolves the daily goal via the three-tier precedence:
// environment override, ledger config, hardcoded default.
func (a *Aggregator) GoalMacros() Totals {
	return Totals{
		Calories: int(math.Round(a.goalValue(EnvGoalCalories, "goal_calories", defaultGoalCalories))),
		Carbs:    round2(a.goalValue(EnvGoalCarbs, "goal_carbs", defaultGoalCarbs)),
		Fats:     round2(a.goalValue(EnvGoalFats, "goal_fats", defaultGoalFats)),
		Protein:  round2(a.goalValue(EnvGoalProtein, "goal_protein", defaultGoalProtein)),
	}
}

func (a *Aggregator) goalValue(envKey, configKey string, def float64) float64 {
	if raw := os.Getenv(envKey); raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	if raw, err := a.store.GetConfig(configKey); err == nil && raw != "" {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return def
}

// RecentDaysWithActivity returns the distinct days with any activity
// (ledger temp items or meal-plan entries regardless of done state), most
// recent first. limit <= 0 means no truncation. Output order is fully
// determined by the day-string sort.
func (a *Aggregator) RecentDaysWithActivity(ctx context.Context, limit int) []string {
	seen := make(map[string]struct{})

	if days, err := a.store.TempItemDays(); err != nil {
		a.logger.Warn("macros: ledger day listing failed", slog.String("error", err.Error()))
	} else {
		for _, day := range days {
			seen[day] = struct{}{}
		}
	}

	if entries, err := a.backend.ListMealPlan(ctx); err != nil {
		a.logger.Warn("macros: meal plan day listing failed", slog.String("error", err.Error()))
	} else {
		for _, mp := range entries {
			if day := mp.Day(); day != "" {
				seen[day] = struct{}{}
			}
		}
	}

	days := make([]string, 0, len(seen))
	for day := range seen {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	if limit > 0 && len(days) > limit {
		days = days[:limit]
	}
	return days
}

// RecentDays returns one page of day summaries over the full activity-day
// list. page is 0-indexed and clamped into the valid range; days whose
// summary fails are skipped, not fatal.
func (a *Aggregator) RecentDays(ctx context.Context, page, limit int) DayPage {
	if limit <= 0 {
		limit = defaultPageSize
	}

	allDays := a.RecentDaysWithActivity(ctx, 0)
	totalDays := len(allDays)
	totalPages := (totalDays + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 0 {
		page = 0
	}
	if page > totalPages-1 {
		page = totalPages - 1
	}

	start := page * limit
	end := start + limit
	if start > totalDays {
		start = totalDays
	}
	if end > totalDays {
		end = totalDays
	}

	summaries := make([]DaySummary, 0, end-start)
	for _, day := range allDays[start:end] {
		summary, err := a.DaySummary(ctx, day)
		if err != nil {
			a.logger.Warn("macros: day summary failed, day skipped",
				slog.String("day", day), slog.String("error", err.Error()))
			continue
		}
		summaries = append(summaries, summary)
	}

	return DayPage{
		Days:        summaries,
		TotalPages:  totalPages,
		CurrentPage: page,
		TotalDays:   totalDays,
	}
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
