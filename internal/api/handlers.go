package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/pantry/internal/apperr"
	"github.com/starford/pantry/internal/grocy"
	"github.com/starford/pantry/internal/ledger"
	"github.com/starford/pantry/internal/macros"
)

// Handler holds API route handlers.
type Handler struct {
	agg     *macros.Aggregator
	store   ledger.Store
	backend *grocy.Client
}

// NewHandler creates a new Handler.
func NewHandler(agg *macros.Aggregator, store ledger.Store, backend *grocy.Client) *Handler {
	return &Handler{agg: agg, store: store, backend: backend}
}

// validDay reports whether day is a well-formed YYYY-MM-DD string.
func validDay(day string) bool {
	_, err := time.Parse("2006-01-02", day)
	return err == nil
}

// writeBackendError maps Grocy/ledger failures onto HTTP statuses. Backend
// transport failures are the upstream's fault (502); everything else is 500.
func writeBackendError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case isGrocyError(err):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
	}
}

func isGrocyError(err error) bool {
	var he *grocy.HTTPError
	return errors.As(err, &he)
}

// --- Macro tracking ---

// DayMacros handles GET /macros/days/{day} and GET /macros/today.
//
//	@Summary		Daily macro summary (consumed, planned, goal)
//	@Tags			macros
//	@Produce		json
//	@Success		200	{object}	DaySummary
//	@Security		BearerAuth
//	@Router			/macros/days/{day} [get]
func (h *Handler) DayMacros(w http.ResponseWriter, r *http.Request) {
	day := chi.URLParam(r, "day")
	if day == "" {
		day = h.agg.Clock().CurrentDay()
	}
	if !validDay(day) {
		writeJSON(w, http.StatusBadRequest, errorBody("day must be YYYY-MM-DD"))
		return
	}
	summary, err := h.agg.DaySummary(r.Context(), day)
	if err != nil {
		// The ledger is the engine's own store; failure here is hard.
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// RecentDays handles GET /macros/days.
//
//	@Summary		Paginated recent days with macro activity
//	@Tags			macros
//	@Produce		json
//	@Param			page	query		int	false	"Page (0-indexed)"
//	@Param			limit	query		int	false	"Page size"
//	@Success		200		{object}	DayPage
//	@Security		BearerAuth
//	@Router			/macros/days [get]
func (h *Handler) RecentDays(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	writeJSON(w, http.StatusOK, h.agg.RecentDays(r.Context(), page, limit))
}

// --- Temp items ---

// CreateTempItem handles POST /temp-items.
func (h *Handler) CreateTempItem(w http.ResponseWriter, r *http.Request) {
	var req CreateTempItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	day := req.Day
	if day == "" {
		day = h.agg.Clock().CurrentDay()
	}
	if !validDay(day) {
		writeJSON(w, http.StatusBadRequest, errorBody("day must be YYYY-MM-DD"))
		return
	}
	id, err := h.store.CreateTempItem(req.Name, req.Calories, req.Carbs, req.Fats, req.Protein, day)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusCreated, CreateTempItemResponse{ID: id, Day: day})
}

// ListTempItems handles GET /temp-items.
func (h *Handler) ListTempItems(w http.ResponseWriter, r *http.Request) {
	day := r.URL.Query().Get("day")
	if day == "" {
		day = h.agg.Clock().CurrentDay()
	}
	if !validDay(day) {
		writeJSON(w, http.StatusBadRequest, errorBody("day must be YYYY-MM-DD"))
		return
	}
	items, err := h.store.TempItemsForDay(day)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if items == nil {
		items = []ledger.TempItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

// DeleteTempItem handles DELETE /temp-items/{id}.
func (h *Handler) DeleteTempItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	deleted, err := h.store.DeleteTempItem(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	if !deleted {
		writeJSON(w, http.StatusNotFound, errorBody("temp item not found"))
		return
	}
	writeJSON(w, http.StatusOK, okBody("deleted"))
}

// --- Config ---

// GetConfig handles GET /config/{key}.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.store.GetConfig(key)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ConfigResponse{Key: key, Value: value})
}

// SetConfig handles PUT /config/{key}.
func (h *Handler) SetConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req SetConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("value is required"))
		return
	}
	if err := h.store.SetConfig(key, req.Value); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody(err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, ConfigResponse{Key: key, Value: req.Value})
}

// --- Inventory ---

// Inventory handles GET /inventory.
func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend.StockOverview(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// AddStock handles POST /inventory/{productID}/add.
func (h *Handler) AddStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("productID must be an integer"))
		return
	}
	var req StockAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Price != nil {
		err = h.backend.AddProductQuantityWithPrice(r.Context(), productID, req.Amount, *req.Price)
	} else {
		err = h.backend.AddProductQuantity(r.Context(), productID, req.Amount)
	}
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("stock added"))
}

// StockEntries handles GET /inventory/{productID}/entries.
func (h *Handler) StockEntries(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("productID must be an integer"))
		return
	}
	entries, err := h.backend.ProductStockEntries(r.Context(), productID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if entries == nil {
		entries = []grocy.Object{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// ConsumeStock handles POST /inventory/{productID}/consume.
func (h *Handler) ConsumeStock(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.Atoi(chi.URLParam(r, "productID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("productID must be an integer"))
		return
	}
	var req StockAmountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := h.backend.ConsumeProductQuantity(r.Context(), productID, req.Amount); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("stock consumed"))
}

// --- Products ---

// Products handles GET /products.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend.ListProducts(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateProduct handles POST /products. The body passes through to the
// backend, which rejects it without a name.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var fields grocy.Object
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	id, err := h.backend.CreateProduct(r.Context(), fields)
	if err != nil {
		if isGrocyError(err) {
			writeBackendError(w, err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// Product handles GET /products/{id}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	obj, err := h.backend.GetProduct(r.Context(), id)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, obj)
}

// --- Shopping list ---

// ShoppingList handles GET /shopping-list.
func (h *Handler) ShoppingList(w http.ResponseWriter, r *http.Request) {
	listID, _ := strconv.Atoi(r.URL.Query().Get("list"))
	items, err := h.backend.ShoppingListItems(r.Context(), listID)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if items == nil {
		items = []grocy.Object{}
	}
	writeJSON(w, http.StatusOK, items)
}

// ShoppingListAdd handles POST /shopping-list/add.
func (h *Handler) ShoppingListAdd(w http.ResponseWriter, r *http.Request) {
	var req ShoppingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}
	if err := h.backend.ShoppingListAdd(r.Context(), req.ProductID, req.Amount, req.ShoppingListID); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("added to shopping list"))
}

// ShoppingListRemove handles POST /shopping-list/remove.
func (h *Handler) ShoppingListRemove(w http.ResponseWriter, r *http.Request) {
	var req ShoppingItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Amount == 0 {
		req.Amount = 1
	}
	if err := h.backend.ShoppingListRemove(r.Context(), req.ProductID, req.Amount, req.ShoppingListID); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("removed from shopping list"))
}

// ShoppingListClear handles POST /shopping-list/clear.
func (h *Handler) ShoppingListClear(w http.ResponseWriter, r *http.Request) {
	var req ShoppingItemRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := h.backend.ShoppingListClear(r.Context(), req.ShoppingListID); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("shopping list cleared"))
}

// --- Recipes ---

// Recipes handles GET /recipes.
func (h *Handler) Recipes(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend.ListRecipes(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// CreateRecipe handles POST /recipes.
func (h *Handler) CreateRecipe(w http.ResponseWriter, r *http.Request) {
	var fields grocy.Object
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if fields["base_servings"] == nil {
		fields["base_servings"] = 1
	}
	id, err := h.backend.CreateRecipe(r.Context(), fields)
	if err != nil {
		if isGrocyError(err) {
			writeBackendError(w, err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// UpdateRecipe handles PUT /recipes/{id}.
func (h *Handler) UpdateRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	var fields grocy.Object
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil || len(fields) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("update fields must be a non-empty object"))
		return
	}
	if err := h.backend.UpdateRecipe(r.Context(), id, fields); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("updated"))
}

// DeleteRecipe handles DELETE /recipes/{id}.
func (h *Handler) DeleteRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	if err := h.backend.DeleteRecipe(r.Context(), id); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("deleted"))
}

// AddRecipeIngredient handles POST /recipes/{id}/ingredients. The recipe
// id comes from the URL, not the body.
func (h *Handler) AddRecipeIngredient(w http.ResponseWriter, r *http.Request) {
	recipeID, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	var fields grocy.Object
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	fields["recipe_id"] = recipeID
	id, err := h.backend.AddRecipeIngredient(r.Context(), fields)
	if err != nil {
		if isGrocyError(err) {
			writeBackendError(w, err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// DeleteRecipeIngredient handles DELETE /recipes/ingredients/{ingredientID}.
func (h *Handler) DeleteRecipeIngredient(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "ingredientID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("ingredientID must be an integer"))
		return
	}
	if err := h.backend.DeleteRecipeIngredient(r.Context(), id); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("deleted"))
}

// CookableRecipes handles GET /recipes/cookable.
func (h *Handler) CookableRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.backend.CookableRecipes(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if recipes == nil {
		recipes = []grocy.CookableRecipe{}
	}
	writeJSON(w, http.StatusOK, recipes)
}

// RecipeFulfillment handles GET /recipes/{id}/fulfillment.
func (h *Handler) RecipeFulfillment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	ful, err := h.backend.RecipeFulfillment(r.Context(), id)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ful)
}

// Recipe handles GET /recipes/{id}; the response carries the recipe
// object plus its nutrition userfields and ingredient rows.
func (h *Handler) Recipe(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	recipe, err := h.backend.GetRecipe(r.Context(), id)
	if err != nil {
		writeBackendError(w, err)
		return
	}
	// Userfields and ingredients are enrichment; their absence is not fatal.
	uf, _ := h.backend.RecipeUserfields(r.Context(), id)
	ingredients, _ := h.backend.RecipeIngredients(r.Context(), id)
	writeJSON(w, http.StatusOK, map[string]any{
		"recipe":      recipe,
		"userfields":  uf,
		"ingredients": ingredients,
	})
}

// UserfieldDefinitions handles GET /userfields.
func (h *Handler) UserfieldDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := h.backend.UserfieldDefinitions(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if defs == nil {
		defs = []grocy.Object{}
	}
	writeJSON(w, http.StatusOK, defs)
}

// --- Meal plan ---

// MealPlan handles GET /mealplan.
func (h *Handler) MealPlan(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, end := q.Get("start"), q.Get("end")

	var entries []grocy.MealPlanEntry
	var err error
	if start != "" && end != "" {
		if !validDay(start) || !validDay(end) {
			writeJSON(w, http.StatusBadRequest, errorBody("start and end must be YYYY-MM-DD"))
			return
		}
		entries, err = h.backend.MealPlanRange(r.Context(), start, end)
	} else {
		entries, err = h.backend.ListMealPlan(r.Context())
	}
	if err != nil {
		writeBackendError(w, err)
		return
	}
	out := make([]grocy.Object, len(entries))
	for i, e := range entries {
		out[i] = e.Object
	}
	writeJSON(w, http.StatusOK, out)
}

// MealPlanSections handles GET /mealplan/sections.
func (h *Handler) MealPlanSections(w http.ResponseWriter, r *http.Request) {
	sections, err := h.backend.MealPlanSections(r.Context())
	if err != nil {
		writeBackendError(w, err)
		return
	}
	if sections == nil {
		sections = []grocy.Object{}
	}
	writeJSON(w, http.StatusOK, sections)
}

// CreateMealPlanEntry handles POST /mealplan. The body passes through to
// the backend after reference validation, since entry fields drift across
// Grocy versions.
func (h *Handler) CreateMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	var fields grocy.Object
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	id, err := h.backend.CreateMealPlanEntry(r.Context(), fields)
	if err != nil {
		if isGrocyError(err) {
			writeBackendError(w, err)
		} else {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": id})
}

// MarkMealPlanDone handles POST /mealplan/{id}/done.
func (h *Handler) MarkMealPlanDone(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	if err := h.backend.MarkMealPlanDone(r.Context(), id); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("marked done"))
}

// DeleteMealPlanEntry handles DELETE /mealplan/{id}.
func (h *Handler) DeleteMealPlanEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("id must be an integer"))
		return
	}
	if err := h.backend.DeleteMealPlanEntry(r.Context(), id); err != nil {
		writeBackendError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okBody("deleted"))
}
