// internal/storage/exposures.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mcp-baby-meals/internal/models"
)

func (s *SQLiteStorage) SaveExposure(ctx context.Context, exp *models.Exposure) error {
	if exp.BabyID == "" {
		return fmt.Errorf("%w: baby id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(exp.Allergen) == "" {
		return fmt.Errorf("%w: allergen is required", ErrInvalidInput)
	}
	if _, err := time.Parse(models.DateLayout, exp.ExposureDate); err != nil {
		return fmt.Errorf("%w: exposure date %q must be YYYY-MM-DD", ErrInvalidInput, exp.ExposureDate)
	}
	if r := exp.Reaction; r != nil {
		if r.Type != "" && !r.Type.IsValid() {
			return fmt.Errorf("%w: unknown reaction type %q", ErrInvalidInput, r.Type)
		}
		if r.Severity != "" && !r.Severity.IsValid() {
			return fmt.Errorf("%w: unknown reaction severity %q", ErrInvalidInput, r.Severity)
		}
	}

	var exists int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM babies WHERE id = ?`, exp.BabyID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to look up baby: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("baby %s: %w", exp.BabyID, ErrNotFound)
	}

	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	now := s.now()
	exp.CreatedAt = now
	exp.UpdatedAt = now

	var reaction sql.NullString
	if exp.Reaction != nil {
		encoded, err := encodeJSON(exp.Reaction)
		if err != nil {
			return fmt.Errorf("failed to encode reaction: %w", err)
		}
		reaction = sql.NullString{String: encoded, Valid: true}
	}

	query := `
        INSERT INTO exposures (id, baby_id, allergen, exposure_date, reaction, notes, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := s.db.ExecContext(ctx, query,
		exp.ID, exp.BabyID, exp.Allergen, exp.ExposureDate, reaction, exp.Notes,
		formatTime(exp.CreatedAt), formatTime(exp.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert exposure: %w", err)
	}

	return nil
}

// ListExposures returns a baby's exposure history, most recent first.
func (s *SQLiteStorage) ListExposures(ctx context.Context, babyID string) ([]models.Exposure, error) {
	query := `
        SELECT id, baby_id, allergen, exposure_date, reaction, notes, created_at, updated_at
        FROM exposures
        WHERE baby_id = ?
        ORDER BY exposure_date DESC, created_at DESC
    `
	rows, err := s.db.QueryContext(ctx, query, babyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query exposures: %w", err)
	}
	defer rows.Close()

	exposures := []models.Exposure{}
	for rows.Next() {
		var exp models.Exposure
		var reaction sql.NullString
		var createdAtStr, updatedAtStr string

		err := rows.Scan(&exp.ID, &exp.BabyID, &exp.Allergen, &exp.ExposureDate,
			&reaction, &exp.Notes, &createdAtStr, &updatedAtStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exposure: %w", err)
		}

		if reaction.Valid {
			exp.Reaction = &models.ReactionDetail{}
			if err := json.Unmarshal([]byte(reaction.String), exp.Reaction); err != nil {
				return nil, fmt.Errorf("failed to decode reaction for %s: %w", exp.ID, err)
			}
		}
		if exp.CreatedAt, err = parseTime(createdAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse created_at: %w", err)
		}
		if exp.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
			return nil, fmt.Errorf("failed to parse updated_at: %w", err)
		}

		exposures = append(exposures, exp)
	}

	return exposures, rows.Err()
}
