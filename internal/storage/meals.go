// internal/storage/meals.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mcp-baby-meals/internal/models"
)

const mealTimeLayout = "15:04"

func validateMeal(meal *models.Meal) error {
	if meal.BabyID == "" {
		return fmt.Errorf("%w: baby id is required", ErrInvalidMeal)
	}
	if _, err := time.Parse(models.DateLayout, meal.MealDate); err != nil {
		return fmt.Errorf("%w: meal date %q must be YYYY-MM-DD", ErrInvalidMeal, meal.MealDate)
	}
	if _, err := time.Parse(mealTimeLayout, meal.MealTime); err != nil {
		return fmt.Errorf("%w: meal time %q must be HH:MM", ErrInvalidMeal, meal.MealTime)
	}
	if !meal.MealType.IsValid() {
		return fmt.Errorf("%w: unknown meal type %q", ErrInvalidMeal, meal.MealType)
	}
	return nil
}

func (s *SQLiteStorage) SaveMeal(ctx context.Context, meal *models.Meal) error {
	if err := validateMeal(meal); err != nil {
		return err
	}

	if meal.ID == "" {
		meal.ID = uuid.NewString()
	}
	now := s.now()
	meal.CreatedAt = now
	meal.UpdatedAt = now
	if meal.Items == nil {
		meal.Items = []models.MealItem{}
	}

	items, err := encodeJSON(meal.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	reactions, err := encodeStrings(meal.Reactions)
	if err != nil {
		return fmt.Errorf("failed to encode reactions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM babies WHERE id = ?`, meal.BabyID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up baby: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("baby %s: %w", meal.BabyID, ErrNotFound)
	}

	mealQuery := `
        INSERT INTO meals (id, baby_id, meal_date, meal_time, meal_type, items, reactions, notes, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = tx.ExecContext(ctx, mealQuery,
		meal.ID, meal.BabyID, meal.MealDate, meal.MealTime, string(meal.MealType),
		items, reactions, meal.Notes, formatTime(meal.CreatedAt), formatTime(meal.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert meal: %w", err)
	}

	return tx.Commit()
}

// UpdateMeal rewrites a stored meal. The baby and creation time are kept;
// meal.BabyID and meal.CreatedAt are refreshed from the stored row.
func (s *SQLiteStorage) UpdateMeal(ctx context.Context, meal *models.Meal) error {
	if meal.ID == "" {
		return fmt.Errorf("%w: meal id is required", ErrInvalidMeal)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	var babyID, createdAtStr string
	err = tx.QueryRowContext(ctx, `SELECT baby_id, created_at FROM meals WHERE id = ?`, meal.ID).
		Scan(&babyID, &createdAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("meal %s: %w", meal.ID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to look up meal: %w", err)
	}

	meal.BabyID = babyID
	if err := validateMeal(meal); err != nil {
		return err
	}
	if meal.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return fmt.Errorf("failed to parse created_at: %w", err)
	}
	meal.UpdatedAt = s.now()
	if meal.Items == nil {
		meal.Items = []models.MealItem{}
	}

	items, err := encodeJSON(meal.Items)
	if err != nil {
		return fmt.Errorf("failed to encode items: %w", err)
	}
	reactions, err := encodeStrings(meal.Reactions)
	if err != nil {
		return fmt.Errorf("failed to encode reactions: %w", err)
	}

	query := `
        UPDATE meals
        SET meal_date = ?, meal_time = ?, meal_type = ?, items = ?, reactions = ?, notes = ?, updated_at = ?
        WHERE id = ?
    `
	res, err := tx.ExecContext(ctx, query,
		meal.MealDate, meal.MealTime, string(meal.MealType), items, reactions, meal.Notes,
		formatTime(meal.UpdatedAt), meal.ID)
	if err != nil {
		return fmt.Errorf("failed to update meal: %w", err)
	}
	if err := expectOneRow(res, "meal", meal.ID); err != nil {
		return err
	}

	return tx.Commit()
}

// GetMeal returns one meal by id.
func (s *SQLiteStorage) GetMeal(ctx context.Context, id string) (*models.Meal, error) {
	rows, err := s.db.QueryContext(ctx, mealColumns+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query meal: %w", err)
	}
	defer rows.Close()

	meals, err := scanMeals(rows)
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, fmt.Errorf("meal %s: %w", id, ErrNotFound)
	}
	return &meals[0], nil
}

const mealColumns = `
        SELECT id, baby_id, meal_date, meal_time, meal_type, items, reactions, notes, created_at, updated_at
        FROM meals`

// GetMeals returns a baby's meals, newest first. Empty dates leave that end of
// the range open; an empty babyID returns meals for every baby.
func (s *SQLiteStorage) GetMeals(ctx context.Context, babyID, startDate, endDate string, limit int) ([]models.Meal, error) {
	query := mealColumns + " WHERE 1=1"
	args := []interface{}{}

	if babyID != "" {
		query += " AND baby_id = ?"
		args = append(args, babyID)
	}
	if startDate != "" {
		query += " AND meal_date >= ?"
		args = append(args, startDate)
	}
	if endDate != "" {
		query += " AND meal_date <= ?"
		args = append(args, endDate)
	}

	query += " ORDER BY meal_date DESC, meal_time DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()

	return scanMeals(rows)
}

func scanMeals(rows *sql.Rows) ([]models.Meal, error) {
	meals := []models.Meal{}
	for rows.Next() {
		var meal models.Meal
		var mealType, itemsStr, reactionsStr, createdAtStr, updatedAtStr string

		err := rows.Scan(
			&meal.ID, &meal.BabyID, &meal.MealDate, &meal.MealTime, &mealType,
			&itemsStr, &reactionsStr, &meal.Notes, &createdAtStr, &updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}

		meal.MealType = models.MealType(mealType)
		if err := json.Unmarshal([]byte(itemsStr), &meal.Items); err != nil {
			return nil, fmt.Errorf("failed to decode items for meal %s: %w", meal.ID, err)
		}
		if meal.Reactions, err = decodeStrings(reactionsStr); err != nil {
			return nil, fmt.Errorf("failed to decode reactions for meal %s: %w", meal.ID, err)
		}
		if meal.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if meal.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		meals = append(meals, meal)
	}

	return meals, rows.Err()
}

func (s *SQLiteStorage) DeleteMeal(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete meal: %w", err)
	}
	return expectOneRow(res, "meal", id)
}
