package api

import (
	"github.com/starford/pantry/internal/macros"
)

// CreateTempItemRequest is the request body for logging a temp item.
// Macros are totals for the logged portion, not per-serving values.
type CreateTempItemRequest struct {
	Name     string  `json:"name" example:"late night snack" validate:"required"`
	Calories float64 `json:"calories" example:"150"`
	Carbs    float64 `json:"carbs" example:"15"`
	Fats     float64 `json:"fats" example:"5"`
	Protein  float64 `json:"protein" example:"5"`
	Day      string  `json:"day,omitempty" example:"2025-03-01"`
}

// CreateTempItemResponse reports the created temp item.
type CreateTempItemResponse struct {
	ID  int    `json:"id" validate:"required"`
	Day string `json:"day" validate:"required"`
}

// SetConfigRequest is the request body for a config upsert.
type SetConfigRequest struct {
	Value string `json:"value" validate:"required"`
}

// ConfigResponse is a single config entry.
type ConfigResponse struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// StockAmountRequest is the request body for stock add/consume.
type StockAmountRequest struct {
	Amount float64  `json:"amount" example:"2" validate:"required"`
	Price  *float64 `json:"price,omitempty" example:"3.49"`
}

// ShoppingItemRequest is the request body for shopping list add/remove.
type ShoppingItemRequest struct {
	ProductID      int     `json:"product_id" example:"5" validate:"required"`
	Amount         float64 `json:"amount" example:"1"`
	ShoppingListID int     `json:"shopping_list_id,omitempty" example:"1"`
}

// StatusResponse is a generic ok envelope for mutations.
type StatusResponse struct {
	Status  string `json:"status" example:"ok" validate:"required"`
	Message string `json:"message,omitempty"`
}

// DaySummary is the day aggregation response (aliased from the engine).
type DaySummary = macros.DaySummary

// DayPage is the paginated recent-days response (aliased from the engine).
type DayPage = macros.DayPage

func okBody(msg string) StatusResponse {
	return StatusResponse{Status: "ok", Message: msg}
}
