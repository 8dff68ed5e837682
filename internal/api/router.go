package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/pantry/internal/grocy"
	"github.com/starford/pantry/internal/ledger"
	"github.com/starford/pantry/internal/macros"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(agg *macros.Aggregator, store ledger.Store, backend *grocy.Client, authEnabled bool, token string) chi.Router {
	h := NewHandler(agg, store, backend)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Macro tracking.
	r.Get("/macros/today", h.DayMacros)
	r.Get("/macros/days", h.RecentDays)
	r.Get("/macros/days/{day}", h.DayMacros)

	// Temp items.
	r.Get("/temp-items", h.ListTempItems)
	r.Post("/temp-items", h.CreateTempItem)
	r.Delete("/temp-items/{id}", h.DeleteTempItem)

	// Tracking config.
	r.Get("/config/{key}", h.GetConfig)
	r.Put("/config/{key}", h.SetConfig)

	// Inventory.
	r.Get("/inventory", h.Inventory)
	r.Get("/inventory/{productID}/entries", h.StockEntries)
	r.Post("/inventory/{productID}/add", h.AddStock)
	r.Post("/inventory/{productID}/consume", h.ConsumeStock)

	// Products.
	r.Get("/products", h.Products)
	r.Post("/products", h.CreateProduct)
	r.Get("/products/{id}", h.Product)

	// Userfield definitions.
	r.Get("/userfields", h.UserfieldDefinitions)

	// Shopping list.
	r.Get("/shopping-list", h.ShoppingList)
	r.Post("/shopping-list/add", h.ShoppingListAdd)
	r.Post("/shopping-list/remove", h.ShoppingListRemove)
	r.Post("/shopping-list/clear", h.ShoppingListClear)

	// Recipes.
	r.Get("/recipes", h.Recipes)
	r.Post("/recipes", h.CreateRecipe)
	r.Get("/recipes/cookable", h.CookableRecipes)
	r.Get("/recipes/{id}", h.Recipe)
	r.Put("/recipes/{id}", h.UpdateRecipe)
	r.Delete("/recipes/{id}", h.DeleteRecipe)
	r.Get("/recipes/{id}/fulfillment", h.RecipeFulfillment)
	r.Post("/recipes/{id}/ingredients", h.AddRecipeIngredient)
	r.Delete("/recipes/ingredients/{ingredientID}", h.DeleteRecipeIngredient)

	// Meal plan.
	r.Get("/mealplan", h.MealPlan)
	r.Get("/mealplan/sections", h.MealPlanSections)
	r.Post("/mealplan", h.CreateMealPlanEntry)
	r.Post("/mealplan/{id}/done", h.MarkMealPlanDone)
	r.Delete("/mealplan/{id}", h.DeleteMealPlanEntry)

	return r
}
