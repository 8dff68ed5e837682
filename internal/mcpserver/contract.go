package mcpserver

// TrackingContract describes the macro-tracking model that LLM consumers
// should follow when logging food or reading daily summaries.
const TrackingContract = `# Pantry Macro Tracking Contract

## Logical days

A tracking day is a YYYY-MM-DD bucket whose boundary is a configurable
hour (default 06:00), not midnight. Food logged at 05:30 belongs to the
PREVIOUS day. Omit the "day" argument to target the current logical day;
never compute it yourself from the wall clock.

## Where consumed macros come from

A day's consumed totals combine two disjoint sources:

1. Meal plan entries marked done. Recipe entries contribute per-serving
   recipe userfields (recipe_calories, recipe_carbs, recipe_fats,
   recipe_proteins) multiplied by servings. Product entries contribute
   per-serving product userfields (Calories_Per_Serving, Carbs, Fats,
   Protein) multiplied by amount.
2. Temp items: ad-hoc logged foods with macro TOTALS (not per-serving).

## Rules

1. To log food that exists as a product, prefer consume_product with
   add_to_meal_plan=true so inventory and macros stay in sync.
2. To log restaurant food or anything without a product record, use
   log_temp_item with total macros for the portion eaten.
3. Meal plan entries only count as consumed after mark_meal_done.
4. "planned" in a day summary is the full scheduled budget for the day,
   independent of what was actually eaten.
5. Macro values missing on a product or recipe contribute zero; they are
   never an error. Suggest the user fill in nutrition userfields when
   totals look too low.
`
