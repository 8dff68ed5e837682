// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes pantry tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/pantry/internal/grocy"
	"github.com/starford/pantry/internal/ledger"
	"github.com/starford/pantry/internal/macros"
)

// Server wraps the MCP server with pantry tools.
type Server struct {
	mcp     *server.MCPServer
	agg     *macros.Aggregator
	store   ledger.Store
	backend *grocy.Client
}

// New creates a new MCP server with all pantry tools registered.
func New(agg *macros.Aggregator, store ledger.Store, backend *grocy.Client) *Server {
	s := &Server{agg: agg, store: store, backend: backend}

	s.mcp = server.NewMCPServer(
		"Pantry",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("get_day_macros",
		mcp.WithDescription("Daily nutrition summary: consumed, planned, and goal macros. "+
			"Read the pantry://macro-tracking resource or the get_tracking_contract tool "+
			"to understand day boundaries before computing days yourself."),
		mcp.WithString("day", mcp.Description("Day in YYYY-MM-DD (defaults to the current logical day)")),
	), s.getDayMacros)

	s.mcp.AddTool(mcp.NewTool("get_recent_days",
		mcp.WithDescription("Paginated summaries of recent days with any macro activity, most recent first."),
		mcp.WithNumber("page", mcp.Description("Page number, 0-indexed (default 0)")),
		mcp.WithNumber("limit", mcp.Description("Days per page (default 4)")),
	), s.getRecentDays)

	s.mcp.AddTool(mcp.NewTool("log_temp_item",
		mcp.WithDescription("Log an ad-hoc consumed item (restaurant food, snacks) with macro totals. "+
			"Use for anything that is not a tracked product."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Item name")),
		mcp.WithNumber("calories", mcp.Required(), mcp.Description("Total calories")),
		mcp.WithNumber("carbs", mcp.Required(), mcp.Description("Carbs in grams")),
		mcp.WithNumber("fats", mcp.Required(), mcp.Description("Fats in grams")),
		mcp.WithNumber("protein", mcp.Required(), mcp.Description("Protein in grams")),
		mcp.WithString("day", mcp.Description("Day in YYYY-MM-DD (defaults to the current logical day)")),
	), s.logTempItem)

	s.mcp.AddTool(mcp.NewTool("delete_temp_item",
		mcp.WithDescription("Delete a previously logged temp item by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Temp item id")),
	), s.deleteTempItem)

	s.mcp.AddTool(mcp.NewTool("get_tracking_contract",
		mcp.WithDescription("Returns the macro tracking contract: day boundaries, consumed sources, "+
			"and when to use temp items vs meal plan entries."),
	), s.getTrackingContract)

	s.mcp.AddTool(mcp.NewTool("get_inventory",
		mcp.WithDescription("Current inventory with product names, quantities, and expiry dates."),
	), s.getInventory)

	s.mcp.AddTool(mcp.NewTool("add_product_quantity",
		mcp.WithDescription("Add (purchase) quantity to a product's inventory."),
		mcp.WithNumber("product_id", mcp.Required(), mcp.Description("Product id")),
		mcp.WithNumber("quantity", mcp.Required(), mcp.Description("Quantity to add")),
	), s.addProductQuantity)

	s.mcp.AddTool(mcp.NewTool("consume_product",
		mcp.WithDescription("Consume (remove) quantity from a product's inventory. "+
			"Set add_to_meal_plan=true to also record it on today's meal plan as done, "+
			"which includes it in consumed macros."),
		mcp.WithNumber("product_id", mcp.Required(), mcp.Description("Product id")),
		mcp.WithNumber("quantity", mcp.Required(), mcp.Description("Quantity to consume")),
		mcp.WithBoolean("add_to_meal_plan", mcp.Description("Also log to today's meal plan (default false)")),
	), s.consumeProduct)

	s.mcp.AddTool(mcp.NewTool("get_shopping_list",
		mcp.WithDescription("Current shopping list items."),
	), s.getShoppingList)

	s.mcp.AddTool(mcp.NewTool("add_to_shopping_list",
		mcp.WithDescription("Add a product to the shopping list."),
		mcp.WithNumber("product_id", mcp.Required(), mcp.Description("Product id")),
		mcp.WithNumber("quantity", mcp.Description("Quantity (default 1)")),
	), s.addToShoppingList)

	s.mcp.AddTool(mcp.NewTool("remove_from_shopping_list",
		mcp.WithDescription("Remove a product from the shopping list."),
		mcp.WithNumber("product_id", mcp.Required(), mcp.Description("Product id")),
		mcp.WithNumber("quantity", mcp.Description("Quantity (default 1)")),
	), s.removeFromShoppingList)

	s.mcp.AddTool(mcp.NewTool("get_meal_plan",
		mcp.WithDescription("Meal plan entries, optionally restricted to a date range."),
		mcp.WithString("start", mcp.Description("Range start, YYYY-MM-DD")),
		mcp.WithString("end", mcp.Description("Range end, YYYY-MM-DD")),
	), s.getMealPlan)

	s.mcp.AddTool(mcp.NewTool("add_meal_to_plan",
		mcp.WithDescription("Add a recipe or product to the meal plan."),
		mcp.WithString("day", mcp.Required(), mcp.Description("Day in YYYY-MM-DD")),
		mcp.WithString("type", mcp.Required(), mcp.Description("'recipe' or 'product'")),
		mcp.WithNumber("recipe_id", mcp.Description("Recipe id when type=recipe")),
		mcp.WithNumber("product_id", mcp.Description("Product id when type=product")),
		mcp.WithNumber("recipe_servings", mcp.Description("Servings when type=recipe")),
		mcp.WithNumber("product_amount", mcp.Description("Amount when type=product")),
	), s.addMealToPlan)

	s.mcp.AddTool(mcp.NewTool("mark_meal_done",
		mcp.WithDescription("Mark a meal plan entry as consumed; this includes it in consumed macro totals."),
		mcp.WithNumber("entry_id", mcp.Required(), mcp.Description("Meal plan entry id")),
	), s.markMealDone)

	s.mcp.AddTool(mcp.NewTool("get_recipes",
		mcp.WithDescription("List all recipes."),
	), s.getRecipes)

	s.mcp.AddTool(mcp.NewTool("get_cookable_recipes",
		mcp.WithDescription("Recipes whose ingredients are fully in stock right now, "+
			"with how many servings are possible."),
	), s.getCookableRecipes)

	s.mcp.AddTool(mcp.NewTool("create_product",
		mcp.WithDescription("Create a product, reusing an existing one with the same name. "+
			"Provide estimated macros to create a placeholder for planning before purchase."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Product name")),
		mcp.WithNumber("estimated_calories", mcp.Description("Estimated calories per serving")),
		mcp.WithNumber("estimated_carbs", mcp.Description("Estimated carbs in grams per serving")),
		mcp.WithNumber("estimated_fats", mcp.Description("Estimated fats in grams per serving")),
		mcp.WithNumber("estimated_protein", mcp.Description("Estimated protein in grams per serving")),
	), s.createProduct)

	s.mcp.AddTool(mcp.NewTool("create_recipe",
		mcp.WithDescription("Create a recipe. Add ingredients with add_recipe_ingredient afterwards."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Recipe name")),
		mcp.WithNumber("base_servings", mcp.Description("Servings the recipe yields (default 1)")),
		mcp.WithString("description", mcp.Description("Optional description")),
	), s.createRecipe)

	s.mcp.AddTool(mcp.NewTool("add_recipe_ingredient",
		mcp.WithDescription("Add an ingredient row to a recipe."),
		mcp.WithNumber("recipe_id", mcp.Required(), mcp.Description("Recipe id")),
		mcp.WithNumber("product_id", mcp.Required(), mcp.Description("Product id")),
		mcp.WithNumber("amount", mcp.Required(), mcp.Description("Amount in the ingredient's quantity unit")),
		mcp.WithNumber("qu_id", mcp.Description("Quantity unit id")),
		mcp.WithString("note", mcp.Description("Optional note")),
	), s.addRecipeIngredient)

	// Resource: macro tracking contract.
	s.mcp.AddResource(
		mcp.NewResource("pantry://macro-tracking", "Macro Tracking Contract",
			mcp.WithResourceDescription("How logical days, consumed sources, and temp items work."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readTrackingResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) getDayMacros(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day := req.GetString("day", "")
	if day == "" {
		day = s.agg.Clock().CurrentDay()
	}
	summary, err := s.agg.DaySummary(ctx, day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(summary), nil
}

func (s *Server) getRecentDays(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	page := req.GetInt("page", 0)
	limit := req.GetInt("limit", 0)
	return jsonResult(s.agg.RecentDays(ctx, page, limit)), nil
}

func (s *Server) logTempItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	calories, err := req.RequireFloat("calories")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	carbs, err := req.RequireFloat("carbs")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fats, err := req.RequireFloat("fats")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	protein, err := req.RequireFloat("protein")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	day := req.GetString("day", "")
	if day == "" {
		day = s.agg.Clock().CurrentDay()
	}

	id, err := s.store.CreateTempItem(name, calories, carbs, fats, protein, day)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok", "id": id, "day": day}), nil
}

func (s *Server) deleteTempItem(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	deleted, err := s.store.DeleteTempItem(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !deleted {
		return mcp.NewToolResultError(fmt.Sprintf("temp item %d not found", id)), nil
	}
	return jsonResult(map[string]any{"status": "ok", "message": fmt.Sprintf("deleted temp item %d", id)}), nil
}

func (s *Server) getTrackingContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(TrackingContract), nil
}

func (s *Server) readTrackingResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "pantry://macro-tracking",
			MIMEType: "text/markdown",
			Text:     TrackingContract,
		},
	}, nil
}

func (s *Server) getInventory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := s.backend.StockOverview(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Flatten the drifting stock shapes into what the agent needs.
	type stockLine struct {
		Name     string `json:"name"`
		Quantity any    `json:"quantity"`
		Expiry   any    `json:"expiry,omitempty"`
	}
	var lines []stockLine
	for _, item := range raw {
		var line stockLine
		if product, ok := item["product"].(map[string]any); ok {
			line.Name, _ = product["name"].(string)
		}
		if line.Name == "" {
			line.Name, _ = item["name"].(string)
		}
		for _, key := range []string{"amount", "stock_amount", "quantity"} {
			if v, ok := item[key]; ok {
				line.Quantity = v
				break
			}
		}
		for _, key := range []string{"best_before_date", "due_date"} {
			if v, ok := item[key]; ok {
				line.Expiry = v
				break
			}
		}
		lines = append(lines, line)
	}
	return jsonResult(lines), nil
}

func (s *Server) addProductQuantity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID, err := req.RequireInt("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	quantity, err := req.RequireFloat("quantity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.backend.AddProductQuantity(ctx, productID, quantity); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok",
		"message": fmt.Sprintf("increased product %d by %g", productID, quantity)}), nil
}

func (s *Server) consumeProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID, err := req.RequireInt("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	quantity, err := req.RequireFloat("quantity")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	addToMealPlan := req.GetBool("add_to_meal_plan", false)

	if err := s.backend.ConsumeProductQuantity(ctx, productID, quantity); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message := fmt.Sprintf("consumed product %d by %g", productID, quantity)

	if addToMealPlan {
		today := s.agg.Clock().CurrentDay()
		fields := grocy.Object{
			"day":            today,
			"type":           "product",
			"product_id":     productID,
			"product_amount": quantity,
			"done":           true,
		}
		if product, err := s.backend.GetProduct(ctx, productID); err == nil {
			for _, key := range []string{"qu_id_stock", "qu_id_purchase"} {
				if qu, ok := product[key]; ok && qu != nil {
					fields["product_qu_id"] = qu
					break
				}
			}
		}
		if _, err := s.backend.CreateMealPlanEntry(ctx, fields); err != nil {
			message += fmt.Sprintf(" (meal plan error: %v)", err)
		} else {
			message += " and logged to meal plan"
		}
	}

	return jsonResult(map[string]any{"status": "ok", "message": message}), nil
}

func (s *Server) getShoppingList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.backend.ShoppingListItems(ctx, 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	// Shopping list rows only carry product ids; resolve names so the
	// agent does not have to.
	if names, err := s.backend.ProductNameMap(ctx); err == nil {
		for _, item := range items {
			if id, ok := grocy.Userfields(item).FloatOK("product_id"); ok {
				if name, ok := names[int(id)]; ok {
					item["product_name"] = name
				}
			}
		}
	}
	return jsonResult(items), nil
}

func (s *Server) addToShoppingList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID, err := req.RequireInt("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	quantity := req.GetFloat("quantity", 1)
	if err := s.backend.ShoppingListAdd(ctx, productID, quantity, 0); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok",
		"message": fmt.Sprintf("added product %d x%g to shopping list", productID, quantity)}), nil
}

func (s *Server) removeFromShoppingList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	productID, err := req.RequireInt("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	quantity := req.GetFloat("quantity", 1)
	if err := s.backend.ShoppingListRemove(ctx, productID, quantity, 0); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok",
		"message": fmt.Sprintf("removed product %d x%g from shopping list", productID, quantity)}), nil
}

func (s *Server) getMealPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start := req.GetString("start", "")
	end := req.GetString("end", "")

	var entries []grocy.MealPlanEntry
	var err error
	if start != "" && end != "" {
		entries, err = s.backend.MealPlanRange(ctx, start, end)
	} else {
		entries, err = s.backend.ListMealPlan(ctx)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]grocy.Object, len(entries))
	for i, e := range entries {
		out[i] = e.Object
	}
	return jsonResult(out), nil
}

func (s *Server) addMealToPlan(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	day, err := req.RequireString("day")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entryType, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields := grocy.Object{"day": day, "type": entryType}
	if id := req.GetInt("recipe_id", 0); id != 0 {
		fields["recipe_id"] = id
	}
	if id := req.GetInt("product_id", 0); id != 0 {
		fields["product_id"] = id
	}
	if servings := req.GetFloat("recipe_servings", 0); servings != 0 {
		fields["recipe_servings"] = servings
	}
	if amount := req.GetFloat("product_amount", 0); amount != 0 {
		fields["product_amount"] = amount
	}

	id, err := s.backend.CreateMealPlanEntry(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok", "id": id}), nil
}

func (s *Server) markMealDone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entryID, err := req.RequireInt("entry_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.backend.MarkMealPlanDone(ctx, entryID); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok",
		"message": fmt.Sprintf("marked entry %d as done", entryID)}), nil
}

func (s *Server) getRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipes, err := s.backend.ListRecipes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(recipes), nil
}

func (s *Server) getCookableRecipes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipes, err := s.backend.CookableRecipes(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if recipes == nil {
		recipes = []grocy.CookableRecipe{}
	}
	return jsonResult(recipes), nil
}

func (s *Server) createProduct(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	id, err := s.backend.EnsureProductExists(ctx, name, grocy.Object{"name": name})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Estimated macros mark the product as a planning placeholder until
	// real stock replaces it.
	estimates := grocy.Userfields{}
	for key, field := range map[string]string{
		"estimated_calories": "Calories_Per_Serving",
		"estimated_carbs":    "Carbs",
		"estimated_fats":     "Fats",
		"estimated_protein":  "Protein",
	} {
		if v := req.GetFloat(key, -1); v >= 0 {
			estimates[field] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	message := fmt.Sprintf("created product %q", name)
	if len(estimates) > 0 {
		estimates["placeholder"] = "1"
		if err := s.backend.SetProductUserfields(ctx, id, estimates); err != nil {
			message += fmt.Sprintf(" (userfield error: %v)", err)
		} else {
			message = fmt.Sprintf("created placeholder product %q", name)
		}
	}
	return jsonResult(map[string]any{"status": "ok", "product_id": id, "message": message}), nil
}

func (s *Server) createRecipe(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields := grocy.Object{
		"name":          name,
		"base_servings": req.GetFloat("base_servings", 1),
	}
	if desc := req.GetString("description", ""); desc != "" {
		fields["description"] = desc
	}
	id, err := s.backend.CreateRecipe(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok", "recipe_id": id}), nil
}

func (s *Server) addRecipeIngredient(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recipeID, err := req.RequireInt("recipe_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	productID, err := req.RequireInt("product_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	amount, err := req.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields := grocy.Object{
		"recipe_id":  recipeID,
		"product_id": productID,
		"amount":     amount,
	}
	if quID := req.GetInt("qu_id", 0); quID != 0 {
		fields["qu_id"] = quID
	}
	if note := req.GetString("note", ""); note != "" {
		fields["note"] = note
	}
	id, err := s.backend.AddRecipeIngredient(ctx, fields)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"status": "ok", "id": id}), nil
}
