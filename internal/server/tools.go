// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-baby-meals/internal/catalog"
	"mcp-baby-meals/internal/models"
	"mcp-baby-meals/internal/safety"
)

var errInvalidParams = errors.New("invalid parameters")

type CheckSafetyParams struct {
	BabyID string            `json:"baby_id" jsonschema_description:"Baby to check the meal for"`
	Items  []models.MealItem `json:"items" jsonschema_description:"Proposed meal items, each with food_id or free_text"`
}

type LogMealParams struct {
	BabyID    string            `json:"baby_id" jsonschema_description:"Baby who ate the meal"`
	MealDate  string            `json:"meal_date,omitempty" jsonschema_description:"Date of the meal (YYYY-MM-DD, defaults to today)"`
	MealTime  string            `json:"meal_time,omitempty" jsonschema_description:"Time of the meal (HH:MM, defaults to now)"`
	MealType  string            `json:"meal_type,omitempty" jsonschema:"enum=breakfast,enum=lunch,enum=dinner,enum=snack" jsonschema_description:"Kind of meal"`
	Items     []models.MealItem `json:"items" jsonschema_description:"Foods eaten, each with food_id or free_text and a portion_tag"`
	Reactions []string          `json:"reactions,omitempty" jsonschema_description:"Reactions observed during or after the meal"`
	Notes     string            `json:"notes,omitempty" jsonschema_description:"Free-form notes"`
}

// UpdateMealParams changes only the fields that are set.
type UpdateMealParams struct {
	ID        string            `json:"id" jsonschema_description:"Meal identifier"`
	MealDate  string            `json:"meal_date,omitempty" jsonschema_description:"Date of the meal (YYYY-MM-DD)"`
	MealTime  string            `json:"meal_time,omitempty" jsonschema_description:"Time of the meal (HH:MM)"`
	MealType  string            `json:"meal_type,omitempty" jsonschema:"enum=breakfast,enum=lunch,enum=dinner,enum=snack" jsonschema_description:"Kind of meal"`
	Items     []models.MealItem `json:"items,omitempty" jsonschema_description:"Replacement list of foods eaten"`
	Reactions []string          `json:"reactions,omitempty" jsonschema_description:"Replacement list of reactions"`
	Notes     *string           `json:"notes,omitempty" jsonschema_description:"Free-form notes"`
}

type GetMealsParams struct {
	BabyID    string `json:"baby_id,omitempty" jsonschema_description:"Only meals for this baby"`
	StartDate string `json:"start_date,omitempty" jsonschema_description:"Start date for meal query (YYYY-MM-DD)"`
	EndDate   string `json:"end_date,omitempty" jsonschema_description:"End date for meal query (YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" jsonschema_description:"Maximum number of meals to return"`
}

type IDParams struct {
	ID string `json:"id" jsonschema_description:"Record identifier"`
}

type AddBabyParams struct {
	Name                string   `json:"name" jsonschema_description:"Baby's name"`
	DateOfBirth         string   `json:"date_of_birth" jsonschema_description:"Date of birth (YYYY-MM-DD)"`
	KnownAllergies      []string `json:"known_allergies,omitempty" jsonschema_description:"Confirmed allergies"`
	SuspectedAllergies  []string `json:"suspected_allergies,omitempty" jsonschema_description:"Suspected allergies"`
	PediatricianContact string   `json:"pediatrician_contact,omitempty" jsonschema_description:"Pediatrician contact details"`
}

// UpdateBabyParams changes only the fields that are set.
type UpdateBabyParams struct {
	ID                  string   `json:"id" jsonschema_description:"Baby identifier"`
	Name                string   `json:"name,omitempty" jsonschema_description:"Baby's name"`
	DateOfBirth         string   `json:"date_of_birth,omitempty" jsonschema_description:"Date of birth (YYYY-MM-DD)"`
	KnownAllergies      []string `json:"known_allergies,omitempty" jsonschema_description:"Confirmed allergies (replaces the list)"`
	SuspectedAllergies  []string `json:"suspected_allergies,omitempty" jsonschema_description:"Suspected allergies (replaces the list)"`
	PediatricianContact string   `json:"pediatrician_contact,omitempty" jsonschema_description:"Pediatrician contact details"`
}

type SearchFoodsParams struct {
	Query        string `json:"query,omitempty" jsonschema_description:"Text matched against name, category and tags"`
	Category     string `json:"category,omitempty" jsonschema_description:"Only foods in this category"`
	AllergenFree bool   `json:"allergen_free,omitempty" jsonschema_description:"Only foods without listed allergens"`
}

type BabyParams struct {
	BabyID string `json:"baby_id" jsonschema_description:"Baby identifier"`
}

type ListRulesParams struct {
	BabyID string `json:"baby_id,omitempty" jsonschema_description:"Only rules that apply at this baby's current age"`
}

type LogReactionParams struct {
	BabyID       string                 `json:"baby_id" jsonschema_description:"Baby who was exposed"`
	Allergen     string                 `json:"allergen" jsonschema_description:"Allergen the baby was exposed to"`
	ExposureDate string                 `json:"exposure_date,omitempty" jsonschema_description:"Date of exposure (YYYY-MM-DD, defaults to today)"`
	Reaction     *models.ReactionDetail `json:"reaction,omitempty" jsonschema_description:"Reaction details, if any"`
	Notes        string                 `json:"notes,omitempty" jsonschema_description:"Free-form notes"`
}

type BabyView struct {
	models.Baby
	AgeMonths int `json:"age_months"`
}

type FoodView struct {
	models.Food
	AgeSuitability string   `json:"age_suitability"`
	Highlights     []string `json:"nutrition_highlights,omitempty"`
}

type LoggedMeal struct {
	Meal   *models.Meal        `json:"meal"`
	Alerts []models.SafetyRule `json:"alerts"`
}

// extractParams safely extracts parameters from the request arguments
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	// Convert the Arguments map to JSON bytes, then unmarshal to target
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal arguments: %w", errInvalidParams, err)
	}

	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return fmt.Errorf("%w: %w", errInvalidParams, err)
	}

	return nil
}

func requireField(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", errInvalidParams, name)
	}
	return nil
}

// handleCheckSafety runs the safety engine without storing anything
func (s *MealLogServer) handleCheckSafety(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params CheckSafetyParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("baby_id", params.BabyID); err != nil {
		return nil, err
	}

	report, err := s.safety.Report(ctx, params.BabyID, params.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to check safety rules: %w", err)
	}

	return s.createJSONResponse(report)
}

// handleLogMeal stores a meal and reports the safety rules it triggers
func (s *MealLogServer) handleLogMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("baby_id", params.BabyID); err != nil {
		return nil, err
	}
	if len(params.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", errInvalidParams)
	}

	now := s.now()
	if params.MealDate == "" {
		params.MealDate = now.Format(models.DateLayout)
	}
	if params.MealTime == "" {
		params.MealTime = now.Format("15:04")
	}

	meal := &models.Meal{
		BabyID:    params.BabyID,
		MealDate:  params.MealDate,
		MealTime:  params.MealTime,
		MealType:  models.MealType(strings.ToLower(params.MealType)),
		Items:     params.Items,
		Reactions: params.Reactions,
		Notes:     params.Notes,
	}

	if err := s.storage.SaveMeal(ctx, meal); err != nil {
		return nil, fmt.Errorf("failed to save meal: %w", err)
	}

	alerts, err := s.safety.CheckSafetyRules(ctx, meal.BabyID, meal.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to check safety rules: %w", err)
	}

	s.logger.Info("meal logged",
		slog.String("meal_id", meal.ID),
		slog.String("baby_id", meal.BabyID),
		slog.String("items", formatItemsList(meal.Items)),
		slog.Int("alerts", len(alerts)),
	)

	return s.createJSONResponse(LoggedMeal{Meal: meal, Alerts: alerts})
}

// handleUpdateMeal edits a stored meal and re-runs the safety rules on its items
func (s *MealLogServer) handleUpdateMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UpdateMealParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("id", params.ID); err != nil {
		return nil, err
	}
	if params.Items != nil && len(params.Items) == 0 {
		return nil, fmt.Errorf("%w: at least one item is required", errInvalidParams)
	}

	meal, err := s.storage.GetMeal(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.MealDate != "" {
		meal.MealDate = params.MealDate
	}
	if params.MealTime != "" {
		meal.MealTime = params.MealTime
	}
	if params.MealType != "" {
		meal.MealType = models.MealType(strings.ToLower(params.MealType))
	}
	if params.Items != nil {
		meal.Items = params.Items
	}
	if params.Reactions != nil {
		meal.Reactions = params.Reactions
	}
	if params.Notes != nil {
		meal.Notes = *params.Notes
	}

	if err := s.storage.UpdateMeal(ctx, meal); err != nil {
		return nil, fmt.Errorf("failed to update meal: %w", err)
	}

	alerts, err := s.safety.CheckSafetyRules(ctx, meal.BabyID, meal.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to check safety rules: %w", err)
	}

	s.logger.Info("meal updated",
		slog.String("meal_id", meal.ID),
		slog.String("items", formatItemsList(meal.Items)),
		slog.Int("alerts", len(alerts)),
	)

	return s.createJSONResponse(LoggedMeal{Meal: meal, Alerts: alerts})
}

// handleGetMeals retrieves meals from storage
func (s *MealLogServer) handleGetMeals(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GetMealsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	// Set defaults
	if params.Limit <= 0 {
		params.Limit = 20
	}

	meals, err := s.storage.GetMeals(ctx, params.BabyID, params.StartDate, params.EndDate, params.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve meals: %w", err)
	}

	return s.createJSONResponse(meals)
}

func (s *MealLogServer) handleDeleteMeal(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params IDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("id", params.ID); err != nil {
		return nil, err
	}

	if err := s.storage.DeleteMeal(ctx, params.ID); err != nil {
		return nil, err
	}

	return s.createJSONResponse(map[string]string{"deleted": params.ID})
}

func (s *MealLogServer) handleAddBaby(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params AddBabyParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("name", params.Name); err != nil {
		return nil, err
	}

	dob, err := time.Parse(models.DateLayout, params.DateOfBirth)
	if err != nil {
		return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", errInvalidParams)
	}

	baby := &models.Baby{
		Name:                params.Name,
		DateOfBirth:         dob,
		KnownAllergies:      params.KnownAllergies,
		SuspectedAllergies:  params.SuspectedAllergies,
		PediatricianContact: params.PediatricianContact,
	}
	if err := s.storage.SaveBaby(ctx, baby); err != nil {
		return nil, fmt.Errorf("failed to save baby: %w", err)
	}

	return s.createJSONResponse(s.babyView(*baby))
}

func (s *MealLogServer) handleListBabies(ctx context.Context, _ *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	babies, err := s.storage.ListBabies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list babies: %w", err)
	}

	views := make([]BabyView, 0, len(babies))
	for _, b := range babies {
		views = append(views, s.babyView(b))
	}

	return s.createJSONResponse(views)
}

func (s *MealLogServer) handleGetBaby(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params IDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("id", params.ID); err != nil {
		return nil, err
	}

	baby, err := s.storage.GetBaby(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	return s.createJSONResponse(s.babyView(*baby))
}

func (s *MealLogServer) handleUpdateBaby(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UpdateBabyParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("id", params.ID); err != nil {
		return nil, err
	}

	baby, err := s.storage.GetBaby(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.Name != "" {
		baby.Name = params.Name
	}
	if params.DateOfBirth != "" {
		dob, err := time.Parse(models.DateLayout, params.DateOfBirth)
		if err != nil {
			return nil, fmt.Errorf("%w: date_of_birth must be YYYY-MM-DD", errInvalidParams)
		}
		baby.DateOfBirth = dob
	}
	if params.KnownAllergies != nil {
		baby.KnownAllergies = params.KnownAllergies
	}
	if params.SuspectedAllergies != nil {
		baby.SuspectedAllergies = params.SuspectedAllergies
	}
	if params.PediatricianContact != "" {
		baby.PediatricianContact = params.PediatricianContact
	}

	if err := s.storage.UpdateBaby(ctx, baby); err != nil {
		return nil, fmt.Errorf("failed to update baby: %w", err)
	}

	return s.createJSONResponse(s.babyView(*baby))
}

func (s *MealLogServer) handleDeleteBaby(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params IDParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("id", params.ID); err != nil {
		return nil, err
	}

	if err := s.storage.DeleteBaby(ctx, params.ID); err != nil {
		return nil, err
	}

	return s.createJSONResponse(map[string]string{"deleted": params.ID})
}

func (s *MealLogServer) babyView(b models.Baby) BabyView {
	return BabyView{Baby: b, AgeMonths: safety.AgeInMonths(b.DateOfBirth, s.now())}
}

// handleSearchFoods answers food library queries
func (s *MealLogServer) handleSearchFoods(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params SearchFoodsParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	category := models.Category(strings.ToLower(params.Category))
	if category != "" && !category.IsValid() {
		return nil, fmt.Errorf("%w: unknown category %q", errInvalidParams, params.Category)
	}

	foods, err := s.storage.ListFoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list foods: %w", err)
	}

	matched := catalog.Filter(foods, catalog.Query{
		Text:         params.Query,
		Category:     category,
		AllergenFree: params.AllergenFree,
	})

	views := make([]FoodView, 0, len(matched))
	for _, f := range matched {
		views = append(views, FoodView{
			Food:           f,
			AgeSuitability: catalog.AgeSuitability(f),
			Highlights:     catalog.NutritionHighlights(f),
		})
	}

	return s.createJSONResponse(views)
}

func (s *MealLogServer) handleListRules(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ListRulesParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}

	rules, err := s.storage.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}

	if params.BabyID != "" {
		baby, err := s.storage.GetBaby(ctx, params.BabyID)
		if err != nil {
			return nil, err
		}

		age := safety.AgeInMonths(baby.DateOfBirth, s.now())
		eligible := []models.SafetyRule{}
		for _, r := range rules {
			if safety.Eligible(r, age) {
				eligible = append(eligible, r)
			}
		}
		rules = eligible
	}

	safety.SortBySeverity(rules)
	return s.createJSONResponse(rules)
}

func (s *MealLogServer) handleLogReaction(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params LogReactionParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("baby_id", params.BabyID); err != nil {
		return nil, err
	}
	if err := requireField("allergen", params.Allergen); err != nil {
		return nil, err
	}

	if params.ExposureDate == "" {
		params.ExposureDate = s.now().Format(models.DateLayout)
	}

	exp := &models.Exposure{
		BabyID:       params.BabyID,
		Allergen:     params.Allergen,
		ExposureDate: params.ExposureDate,
		Reaction:     params.Reaction,
		Notes:        params.Notes,
	}
	if err := s.storage.SaveExposure(ctx, exp); err != nil {
		return nil, fmt.Errorf("failed to save reaction: %w", err)
	}

	if exp.Reaction != nil && exp.Reaction.Severity == models.ReactionEmergency {
		s.logger.Warn("emergency reaction logged",
			slog.String("baby_id", exp.BabyID),
			slog.String("allergen", exp.Allergen),
		)
	}

	return s.createJSONResponse(exp)
}

func (s *MealLogServer) handleGetReactions(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params BabyParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	if err := requireField("baby_id", params.BabyID); err != nil {
		return nil, err
	}

	exposures, err := s.storage.ListExposures(ctx, params.BabyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reactions: %w", err)
	}

	return s.createJSONResponse(exposures)
}

func formatItemsList(items []models.MealItem) string {
	var itemStrings []string
	for _, item := range items {
		itemStrings = append(itemStrings, fmt.Sprintf("%s (%s)", item.Label(), item.PortionTag))
	}
	return strings.Join(itemStrings, "; ")
}

type toolDef struct {
	name        string
	description string
	params      any
	handler     toolHandler
}

func (s *MealLogServer) toolDefs() []toolDef {
	return []toolDef{
		{"check_safety", "Check proposed meal items against the feeding safety rules for a baby's age", CheckSafetyParams{}, s.handleCheckSafety},
		{"log_meal", "Log a meal and report the safety rules it triggers", LogMealParams{}, s.handleLogMeal},
		{"update_meal", "Edit a logged meal and re-check its items against the safety rules", UpdateMealParams{}, s.handleUpdateMeal},
		{"get_meals", "List logged meals, newest first", GetMealsParams{}, s.handleGetMeals},
		{"delete_meal", "Delete a logged meal", IDParams{}, s.handleDeleteMeal},
		{"add_baby", "Add a baby profile", AddBabyParams{}, s.handleAddBaby},
		{"list_babies", "List baby profiles with their current age", nil, s.handleListBabies},
		{"get_baby", "Get a baby profile with its current age", IDParams{}, s.handleGetBaby},
		{"update_baby", "Update a baby profile", UpdateBabyParams{}, s.handleUpdateBaby},
		{"delete_baby", "Delete a baby profile with its meals and reactions", IDParams{}, s.handleDeleteBaby},
		{"search_foods", "Search the food library", SearchFoodsParams{}, s.handleSearchFoods},
		{"list_rules", "List feeding safety rules, optionally only those for a baby's age", ListRulesParams{}, s.handleListRules},
		{"log_reaction", "Log an allergen exposure and any reaction", LogReactionParams{}, s.handleLogReaction},
		{"get_reactions", "List a baby's allergen exposures and reactions", BabyParams{}, s.handleGetReactions},
	}
}

// registerTools exposes every tool on the HTTP endpoint and on the MCP session.
func (s *MealLogServer) registerTools() {
	s.tools = make(map[string]toolHandler)

	for _, def := range s.toolDefs() {
		s.tools[def.name] = def.handler
		s.server.RegisterTool(&protocol.Tool{
			Name:        def.name,
			Description: def.description,
			InputSchema: inputSchema(def.params),
		}, s.mcpHandler(def.name))

		s.logger.Debug("registered tool", slog.String("tool", def.name))
	}
}
