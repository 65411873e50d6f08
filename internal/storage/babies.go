// internal/storage/babies.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"mcp-baby-meals/internal/models"
)

var (
	ErrInvalidBaby  = errors.New("invalid baby")
	ErrInvalidMeal  = errors.New("invalid meal")
	ErrInvalidInput = errors.New("invalid input")
)

func (s *SQLiteStorage) validateBaby(baby *models.Baby) error {
	if strings.TrimSpace(baby.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidBaby)
	}
	if baby.DateOfBirth.IsZero() {
		return fmt.Errorf("%w: date of birth is required", ErrInvalidBaby)
	}
	if baby.DateOfBirth.After(s.now()) {
		return fmt.Errorf("%w: date of birth is in the future", ErrInvalidBaby)
	}
	return nil
}

// SaveBaby inserts a new baby, assigning an id when none is set.
func (s *SQLiteStorage) SaveBaby(ctx context.Context, baby *models.Baby) error {
	if err := s.validateBaby(baby); err != nil {
		return err
	}

	if baby.ID == "" {
		baby.ID = uuid.NewString()
	}
	now := s.now()
	baby.CreatedAt = now
	baby.UpdatedAt = now

	known, err := encodeStrings(baby.KnownAllergies)
	if err != nil {
		return fmt.Errorf("failed to encode known allergies: %w", err)
	}
	suspected, err := encodeStrings(baby.SuspectedAllergies)
	if err != nil {
		return fmt.Errorf("failed to encode suspected allergies: %w", err)
	}

	query := `
        INSERT INTO babies (id, name, date_of_birth, known_allergies, suspected_allergies,
            pediatrician_contact, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = s.db.ExecContext(ctx, query,
		baby.ID, baby.Name, baby.DateOfBirth.Format(models.DateLayout), known, suspected,
		baby.PediatricianContact, formatTime(baby.CreatedAt), formatTime(baby.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert baby: %w", err)
	}

	return nil
}

// UpdateBaby replaces the mutable fields of an existing baby.
func (s *SQLiteStorage) UpdateBaby(ctx context.Context, baby *models.Baby) error {
	if err := s.validateBaby(baby); err != nil {
		return err
	}

	known, err := encodeStrings(baby.KnownAllergies)
	if err != nil {
		return fmt.Errorf("failed to encode known allergies: %w", err)
	}
	suspected, err := encodeStrings(baby.SuspectedAllergies)
	if err != nil {
		return fmt.Errorf("failed to encode suspected allergies: %w", err)
	}

	baby.UpdatedAt = s.now()
	query := `
        UPDATE babies
        SET name = ?, date_of_birth = ?, known_allergies = ?, suspected_allergies = ?,
            pediatrician_contact = ?, updated_at = ?
        WHERE id = ?
    `
	res, err := s.db.ExecContext(ctx, query,
		baby.Name, baby.DateOfBirth.Format(models.DateLayout), known, suspected,
		baby.PediatricianContact, formatTime(baby.UpdatedAt), baby.ID)
	if err != nil {
		return fmt.Errorf("failed to update baby: %w", err)
	}

	return expectOneRow(res, "baby", baby.ID)
}

func (s *SQLiteStorage) GetBaby(ctx context.Context, id string) (*models.Baby, error) {
	query := `
        SELECT id, name, date_of_birth, known_allergies, suspected_allergies,
            pediatrician_contact, created_at, updated_at
        FROM babies
        WHERE id = ?
    `
	baby, err := scanBaby(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("baby %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return baby, nil
}

func (s *SQLiteStorage) ListBabies(ctx context.Context) ([]models.Baby, error) {
	query := `
        SELECT id, name, date_of_birth, known_allergies, suspected_allergies,
            pediatrician_contact, created_at, updated_at
        FROM babies
        ORDER BY created_at DESC
    `
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query babies: %w", err)
	}
	defer rows.Close()

	babies := []models.Baby{}
	for rows.Next() {
		baby, err := scanBaby(rows)
		if err != nil {
			return nil, err
		}
		babies = append(babies, *baby)
	}

	return babies, rows.Err()
}

func (s *SQLiteStorage) DeleteBaby(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM babies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete baby: %w", err)
	}
	return expectOneRow(res, "baby", id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBaby(row rowScanner) (*models.Baby, error) {
	baby := &models.Baby{}
	var dobStr, knownStr, suspectedStr, createdAtStr, updatedAtStr string

	err := row.Scan(
		&baby.ID, &baby.Name, &dobStr, &knownStr, &suspectedStr,
		&baby.PediatricianContact, &createdAtStr, &updatedAtStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan baby: %w", err)
	}

	if baby.DateOfBirth, err = time.Parse(models.DateLayout, dobStr); err != nil {
		return nil, fmt.Errorf("failed to parse date_of_birth: %w", err)
	}
	if baby.KnownAllergies, err = decodeStrings(knownStr); err != nil {
		return nil, fmt.Errorf("failed to decode known_allergies: %w", err)
	}
	if baby.SuspectedAllergies, err = decodeStrings(suspectedStr); err != nil {
		return nil, fmt.Errorf("failed to decode suspected_allergies: %w", err)
	}
	if baby.CreatedAt, err = parseTime(createdAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if baby.UpdatedAt, err = parseTime(updatedAtStr); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return baby, nil
}

func expectOneRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
