package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/pantry/internal/dayclock"
	"github.com/starford/pantry/internal/macros"
	"github.com/starford/pantry/internal/testutil"
)

func testServer(t *testing.T) (*Server, *testutil.FakeBackend) {
	t.Helper()

	store := testutil.TestLedger(t)
	fb := testutil.NewFakeBackend(t)
	client := fb.Client(t)

	agg := macros.New(client, store, dayclock.New(store), nil)
	return New(agg, store, client), fb
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "get_day_macros":
		result, err = srv.getDayMacros(ctx, req)
	case "get_recent_days":
		result, err = srv.getRecentDays(ctx, req)
	case "log_temp_item":
		result, err = srv.logTempItem(ctx, req)
	case "delete_temp_item":
		result, err = srv.deleteTempItem(ctx, req)
	case "get_tracking_contract":
		result, err = srv.getTrackingContract(ctx, req)
	case "get_inventory":
		result, err = srv.getInventory(ctx, req)
	case "consume_product":
		result, err = srv.consumeProduct(ctx, req)
	case "get_shopping_list":
		result, err = srv.getShoppingList(ctx, req)
	case "add_to_shopping_list":
		result, err = srv.addToShoppingList(ctx, req)
	case "remove_from_shopping_list":
		result, err = srv.removeFromShoppingList(ctx, req)
	case "get_meal_plan":
		result, err = srv.getMealPlan(ctx, req)
	case "add_meal_to_plan":
		result, err = srv.addMealToPlan(ctx, req)
	case "mark_meal_done":
		result, err = srv.markMealDone(ctx, req)
	case "get_recipes":
		result, err = srv.getRecipes(ctx, req)
	case "get_cookable_recipes":
		result, err = srv.getCookableRecipes(ctx, req)
	case "create_product":
		result, err = srv.createProduct(ctx, req)
	case "create_recipe":
		result, err = srv.createRecipe(ctx, req)
	case "add_recipe_ingredient":
		result, err = srv.addRecipeIngredient(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestLogAndDeleteTempItem(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "log_temp_item", map[string]interface{}{
		"name": "Ramen", "calories": 550.0, "carbs": 70.0, "fats": 20.0, "protein": 18.0,
		"day": "2026-08-30",
	})
	if r.IsError {
		t.Fatalf("log failed: %s", resultText(r))
	}
	var created struct {
		ID  int    `json:"id"`
		Day string `json:"day"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.ID <= 0 || created.Day != "2026-08-30" {
		t.Errorf("created = %+v", created)
	}

	r = callTool(t, srv, "delete_temp_item", map[string]interface{}{"id": float64(created.ID)})
	if r.IsError {
		t.Errorf("delete failed: %s", resultText(r))
	}

	r = callTool(t, srv, "delete_temp_item", map[string]interface{}{"id": float64(created.ID)})
	if !r.IsError {
		t.Error("second delete should error")
	}
}

func TestLogTempItem_RequiresMacros(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "log_temp_item", map[string]interface{}{"name": "Mystery"})
	if !r.IsError {
		t.Error("missing macro arguments should error")
	}
}

func TestGetDayMacros_IncludesLoggedItems(t *testing.T) {
	srv, _ := testServer(t)

	callTool(t, srv, "log_temp_item", map[string]interface{}{
		"name": "Bagel", "calories": 280.0, "carbs": 55.0, "fats": 2.0, "protein": 10.0,
		"day": "2026-08-30",
	})

	r := callTool(t, srv, "get_day_macros", map[string]interface{}{"day": "2026-08-30"})
	if r.IsError {
		t.Fatalf("get_day_macros failed: %s", resultText(r))
	}
	var summary macros.DaySummary
	if err := json.Unmarshal([]byte(resultText(r)), &summary); err != nil {
		t.Fatal(err)
	}
	if summary.Consumed.Calories != 280 {
		t.Errorf("consumed calories = %d, want 280", summary.Consumed.Calories)
	}
	if summary.Goal.Calories == 0 {
		t.Error("goal should carry defaults")
	}
}

func TestGetRecentDays_Paginates(t *testing.T) {
	srv, _ := testServer(t)

	days := []string{"2026-08-27", "2026-08-28", "2026-08-29", "2026-08-30"}
	for _, day := range days {
		callTool(t, srv, "log_temp_item", map[string]interface{}{
			"name": "x", "calories": 100.0, "carbs": 10.0, "fats": 3.0, "protein": 5.0, "day": day,
		})
	}

	r := callTool(t, srv, "get_recent_days", map[string]interface{}{"page": float64(0), "limit": float64(2)})
	var page macros.DayPage
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatal(err)
	}
	if page.TotalDays != 4 || page.TotalPages != 2 || len(page.Days) != 2 {
		t.Errorf("page = %+v", page)
	}
	if page.Days[0].Day != "2026-08-30" {
		t.Errorf("first day = %q, want most recent", page.Days[0].Day)
	}
}

func TestGetTrackingContract(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_tracking_contract", map[string]interface{}{})
	if !strings.Contains(resultText(r), "logical day") {
		t.Error("contract text should describe logical days")
	}
}

func TestGetInventory_FlattensStockShapes(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/stock/overview"] = []any{
		map[string]any{
			"product":          map[string]any{"name": "Milk"},
			"amount":           2.0,
			"best_before_date": "2026-09-05",
		},
		map[string]any{"name": "Oats", "stock_amount": 1.0},
	}

	r := callTool(t, srv, "get_inventory", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("get_inventory failed: %s", resultText(r))
	}
	var lines []struct {
		Name     string `json:"name"`
		Quantity any    `json:"quantity"`
		Expiry   any    `json:"expiry"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &lines); err != nil {
		t.Fatal(err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	if lines[0].Name != "Milk" || lines[0].Expiry != "2026-09-05" {
		t.Errorf("milk line = %+v", lines[0])
	}
	if lines[1].Name != "Oats" || lines[1].Quantity != 1.0 {
		t.Errorf("oats line = %+v", lines[1])
	}
}

func TestConsumeProduct_WithMealPlanLogging(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["POST /api/stock/products/5/consume"] = map[string]any{}
	fb.Routes["GET /api/objects/products/5"] = map[string]any{"id": 5, "name": "Yogurt", "qu_id_stock": 2}
	fb.Routes["GET /api/objects/quantity_units/2"] = map[string]any{"id": 2}
	fb.Routes["POST /api/objects/meal_plan"] = map[string]any{"created_object_id": "31"}

	r := callTool(t, srv, "consume_product", map[string]interface{}{
		"product_id": float64(5), "quantity": 1.0, "add_to_meal_plan": true,
	})
	if r.IsError {
		t.Fatalf("consume failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "logged to meal plan") {
		t.Errorf("result = %s", resultText(r))
	}

	var sawCreate bool
	for _, call := range fb.Calls {
		if call == "POST /api/objects/meal_plan" {
			sawCreate = true
		}
	}
	if !sawCreate {
		t.Error("meal plan entry was not created")
	}
}

func TestMarkMealDone(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/objects/meal_plan/12"] = map[string]any{"id": 12, "done": "0"}
	fb.Routes["PUT /api/objects/meal_plan/12"] = map[string]any{}

	r := callTool(t, srv, "mark_meal_done", map[string]interface{}{"entry_id": float64(12)})
	if r.IsError {
		t.Fatalf("mark_meal_done failed: %s", resultText(r))
	}
}

func TestGetShoppingList_ResolvesProductNames(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/objects/shopping_list"] = []any{
		map[string]any{"id": 1, "product_id": "5", "amount": 2},
		map[string]any{"id": 2, "product_id": 99, "amount": 1},
	}
	fb.Routes["GET /api/objects/products"] = []any{
		map[string]any{"id": 5, "name": "Milk"},
	}

	r := callTool(t, srv, "get_shopping_list", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("get_shopping_list failed: %s", resultText(r))
	}
	var items []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &items); err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %+v", items)
	}
	if items[0]["product_name"] != "Milk" {
		t.Errorf("item 0 = %+v, want product_name Milk", items[0])
	}
	if _, ok := items[1]["product_name"]; ok {
		t.Errorf("unknown product should stay unnamed: %+v", items[1])
	}
}

func TestShoppingListAddAndRemove(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["POST /api/stock/shoppinglist/add-product"] = map[string]any{}
	fb.Routes["POST /api/stock/shoppinglist/remove-product"] = map[string]any{}

	r := callTool(t, srv, "add_to_shopping_list", map[string]interface{}{"product_id": float64(5)})
	if r.IsError {
		t.Fatalf("add failed: %s", resultText(r))
	}
	r = callTool(t, srv, "remove_from_shopping_list", map[string]interface{}{
		"product_id": float64(5), "quantity": 2.0,
	})
	if r.IsError {
		t.Fatalf("remove failed: %s", resultText(r))
	}

	want := []string{"POST /api/stock/shoppinglist/add-product", "POST /api/stock/shoppinglist/remove-product"}
	for _, call := range want {
		var seen bool
		for _, got := range fb.Calls {
			if got == call {
				seen = true
			}
		}
		if !seen {
			t.Errorf("missing backend call %s", call)
		}
	}
}

func TestGetMealPlan_RangeFilters(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/objects/meal_plan"] = []any{
		map[string]any{"id": 1, "day": "2026-08-29"},
		map[string]any{"id": 2, "day": "2026-08-30"},
	}

	r := callTool(t, srv, "get_meal_plan", map[string]interface{}{
		"start": "2026-08-30", "end": "2026-08-31",
	})
	if r.IsError {
		t.Fatalf("get_meal_plan failed: %s", resultText(r))
	}
	var entries []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0]["day"] != "2026-08-30" {
		t.Errorf("entries = %+v", entries)
	}
}

func TestGetRecipes(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/objects/recipes"] = []any{
		map[string]any{"id": 1, "name": "Chili"},
	}

	r := callTool(t, srv, "get_recipes", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("get_recipes failed: %s", resultText(r))
	}
	var recipes []map[string]any
	if err := json.Unmarshal([]byte(resultText(r)), &recipes); err != nil {
		t.Fatal(err)
	}
	if len(recipes) != 1 || recipes[0]["name"] != "Chili" {
		t.Errorf("recipes = %+v", recipes)
	}
}

func TestGetCookableRecipes_FiltersByFulfillment(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/objects/recipes"] = []any{
		map[string]any{"id": 1, "name": "Chili"},
		map[string]any{"id": 2, "name": "Omelette"},
	}
	fb.Routes["GET /api/recipes/1/fulfillment"] = map[string]any{
		"requirements_fulfilled": true, "possible_servings": 4,
	}
	fb.Routes["GET /api/recipes/2/fulfillment"] = map[string]any{
		"requirements_fulfilled": false, "missing_products_count": 2,
	}

	r := callTool(t, srv, "get_cookable_recipes", map[string]interface{}{})
	if r.IsError {
		t.Fatalf("get_cookable_recipes failed: %s", resultText(r))
	}
	var cookable []struct {
		ID               int      `json:"id"`
		Name             string   `json:"name"`
		PossibleServings *float64 `json:"possible_servings"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &cookable); err != nil {
		t.Fatal(err)
	}
	if len(cookable) != 1 || cookable[0].Name != "Chili" {
		t.Fatalf("cookable = %+v", cookable)
	}
	if cookable[0].PossibleServings == nil || *cookable[0].PossibleServings != 4 {
		t.Errorf("possible servings = %v, want 4", cookable[0].PossibleServings)
	}
}

func TestCreateProduct_PlaceholderWritesEstimates(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/objects/products"] = []any{}
	fb.Routes["POST /api/objects/products"] = map[string]any{"created_object_id": "9"}
	fb.Routes["PUT /api/objects/products/9/userfields"] = map[string]any{}

	r := callTool(t, srv, "create_product", map[string]interface{}{
		"name":               "Chicken Breast",
		"estimated_calories": 165.0, "estimated_carbs": 0.0,
		"estimated_fats": 3.6, "estimated_protein": 31.0,
	})
	if r.IsError {
		t.Fatalf("create_product failed: %s", resultText(r))
	}
	var created struct {
		ProductID int    `json:"product_id"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.ProductID != 9 {
		t.Errorf("product_id = %d, want 9", created.ProductID)
	}
	if !strings.Contains(created.Message, "placeholder") {
		t.Errorf("message = %q", created.Message)
	}

	var wroteUserfields bool
	for _, call := range fb.Calls {
		if call == "PUT /api/objects/products/9/userfields" {
			wroteUserfields = true
		}
	}
	if !wroteUserfields {
		t.Error("estimates were not written to product userfields")
	}
}

func TestCreateProduct_ReusesExistingName(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["GET /api/objects/products"] = []any{
		map[string]any{"id": 7, "name": "Chicken Breast"},
	}

	r := callTool(t, srv, "create_product", map[string]interface{}{"name": "chicken breast"})
	if r.IsError {
		t.Fatalf("create_product failed: %s", resultText(r))
	}
	var created struct {
		ProductID int `json:"product_id"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &created); err != nil {
		t.Fatal(err)
	}
	if created.ProductID != 7 {
		t.Errorf("product_id = %d, want existing 7", created.ProductID)
	}
	for _, call := range fb.Calls {
		if call == "POST /api/objects/products" {
			t.Error("existing product should not be recreated")
		}
	}
}

func TestCreateRecipeAndIngredient(t *testing.T) {
	srv, fb := testServer(t)
	fb.Routes["POST /api/objects/recipes"] = map[string]any{"created_object_id": 21}
	fb.Routes["POST /api/objects/recipes_pos"] = map[string]any{"created_object_id": 33}

	r := callTool(t, srv, "create_recipe", map[string]interface{}{
		"name": "Chili", "base_servings": float64(4),
	})
	if r.IsError {
		t.Fatalf("create_recipe failed: %s", resultText(r))
	}
	var recipe struct {
		RecipeID int `json:"recipe_id"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &recipe); err != nil {
		t.Fatal(err)
	}
	if recipe.RecipeID != 21 {
		t.Errorf("recipe_id = %d, want 21", recipe.RecipeID)
	}

	r = callTool(t, srv, "add_recipe_ingredient", map[string]interface{}{
		"recipe_id": float64(21), "product_id": float64(5), "amount": 2.0,
	})
	if r.IsError {
		t.Fatalf("add_recipe_ingredient failed: %s", resultText(r))
	}
	var row struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &row); err != nil {
		t.Fatal(err)
	}
	if row.ID != 33 {
		t.Errorf("ingredient id = %d, want 33", row.ID)
	}
}

func TestAddRecipeIngredient_RequiresProduct(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_recipe_ingredient", map[string]interface{}{"recipe_id": float64(1)})
	if !r.IsError {
		t.Error("missing product_id should error")
	}
}

func TestAddMealToPlan_ReportsBadReferences(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "add_meal_to_plan", map[string]interface{}{
		"day": "2026-08-30", "type": "recipe", "recipe_id": float64(404),
	})
	if !r.IsError {
		t.Error("dangling recipe reference should error")
	}
}
