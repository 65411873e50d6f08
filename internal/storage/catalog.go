// internal/storage/catalog.go
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"mcp-baby-meals/internal/models"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// SeedCatalog upserts foods and rules in one transaction. The seeded entries
// take the first positions in the order given; rows the catalog no longer
// names keep their relative order after them.
func (s *SQLiteStorage) SeedCatalog(ctx context.Context, foods []models.Food, rules []models.SafetyRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE foods SET position = position + ?`, len(foods)); err != nil {
		return fmt.Errorf("failed to shift food positions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE rules SET position = position + ?`, len(rules)); err != nil {
		return fmt.Errorf("failed to shift rule positions: %w", err)
	}

	for i := range foods {
		if err := upsertFood(ctx, tx, &foods[i], i, true); err != nil {
			return err
		}
	}
	for i := range rules {
		if err := upsertRule(ctx, tx, &rules[i], i, true); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStorage) UpsertFood(ctx context.Context, food *models.Food) error {
	pos, err := s.nextPosition(ctx, "foods")
	if err != nil {
		return err
	}
	return upsertFood(ctx, s.db, food, pos, false)
}

func (s *SQLiteStorage) UpsertRule(ctx context.Context, rule *models.SafetyRule) error {
	pos, err := s.nextPosition(ctx, "rules")
	if err != nil {
		return err
	}
	return upsertRule(ctx, s.db, rule, pos, false)
}

func (s *SQLiteStorage) nextPosition(ctx context.Context, table string) (int, error) {
	var pos int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(position) + 1, 0) FROM "+table).Scan(&pos)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s position: %w", table, err)
	}
	return pos, nil
}

// repositionClause moves an existing row to the position given on insert.
const repositionClause = `,
            position = excluded.position`

// upsertFood inserts food at pos. An existing row keeps its position unless reposition is set.
func upsertFood(ctx context.Context, db execer, food *models.Food, pos int, reposition bool) error {
	allergens, err := encodeStrings(food.Allergens)
	if err != nil {
		return fmt.Errorf("failed to encode allergens: %w", err)
	}
	tags, err := encodeStrings(food.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
        INSERT INTO foods (id, name, category, allergens, tags, choking_form_notes, iron_mg_per_100g, position)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            category = excluded.category,
            allergens = excluded.allergens,
            tags = excluded.tags,
            choking_form_notes = excluded.choking_form_notes,
            iron_mg_per_100g = excluded.iron_mg_per_100g`
	if reposition {
		query += repositionClause
	}
	var iron sql.NullFloat64
	if food.IronMgPer100g != nil {
		iron = sql.NullFloat64{Float64: *food.IronMgPer100g, Valid: true}
	}

	_, err = db.ExecContext(ctx, query,
		food.ID, food.Name, string(food.Category), allergens, tags,
		food.ChokingFormNotes, iron, pos)
	if err != nil {
		return fmt.Errorf("failed to upsert food %s: %w", food.ID, err)
	}
	return nil
}

func upsertRule(ctx context.Context, db execer, rule *models.SafetyRule, pos int, reposition bool) error {
	tags, err := encodeStrings(rule.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	query := `
        INSERT INTO rules (rule_key, short_text, severity, publisher, url, published_at,
            last_verified_at, direct_quote, age_min_months, age_max_months, tags, position)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(rule_key) DO UPDATE SET
            short_text = excluded.short_text,
            severity = excluded.severity,
            publisher = excluded.publisher,
            url = excluded.url,
            published_at = excluded.published_at,
            last_verified_at = excluded.last_verified_at,
            direct_quote = excluded.direct_quote,
            age_min_months = excluded.age_min_months,
            age_max_months = excluded.age_max_months,
            tags = excluded.tags`
	if reposition {
		query += repositionClause
	}
	_, err = db.ExecContext(ctx, query,
		rule.RuleKey, rule.ShortText, string(rule.Severity), rule.Publisher, rule.URL,
		formatTime(rule.PublishedAt), formatTime(rule.LastVerifiedAt), rule.DirectQuote,
		rule.AgeMinMonths, rule.AgeMaxMonths, tags, pos)
	if err != nil {
		return fmt.Errorf("failed to upsert rule %s: %w", rule.RuleKey, err)
	}
	return nil
}

// ListFoods returns the food catalog in catalog order.
func (s *SQLiteStorage) ListFoods(ctx context.Context) ([]models.Food, error) {
	query := `
        SELECT id, name, category, allergens, tags, choking_form_notes, iron_mg_per_100g
        FROM foods
        ORDER BY position, id
    `
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query foods: %w", err)
	}
	defer rows.Close()

	foods := []models.Food{}
	for rows.Next() {
		var food models.Food
		var category, allergensStr, tagsStr string
		var iron sql.NullFloat64

		err := rows.Scan(&food.ID, &food.Name, &category, &allergensStr, &tagsStr,
			&food.ChokingFormNotes, &iron)
		if err != nil {
			return nil, fmt.Errorf("failed to scan food: %w", err)
		}

		food.Category = models.Category(category)
		if food.Allergens, err = decodeStrings(allergensStr); err != nil {
			return nil, fmt.Errorf("failed to decode allergens for %s: %w", food.ID, err)
		}
		if food.Tags, err = decodeStrings(tagsStr); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", food.ID, err)
		}
		if iron.Valid {
			v := iron.Float64
			food.IronMgPer100g = &v
		}

		foods = append(foods, food)
	}

	return foods, rows.Err()
}

// ListRules returns the rule catalog in catalog order.
func (s *SQLiteStorage) ListRules(ctx context.Context) ([]models.SafetyRule, error) {
	query := `
        SELECT rule_key, short_text, severity, publisher, url, published_at,
            last_verified_at, direct_quote, age_min_months, age_max_months, tags
        FROM rules
        ORDER BY position, rule_key
    `
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	rules := []models.SafetyRule{}
	for rows.Next() {
		var rule models.SafetyRule
		var severity, publishedStr, verifiedStr, tagsStr string

		err := rows.Scan(&rule.RuleKey, &rule.ShortText, &severity, &rule.Publisher, &rule.URL,
			&publishedStr, &verifiedStr, &rule.DirectQuote,
			&rule.AgeMinMonths, &rule.AgeMaxMonths, &tagsStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.Severity = models.Severity(severity)
		if rule.PublishedAt, err = parseTime(publishedStr); err != nil {
			return nil, fmt.Errorf("failed to parse published_at for %s: %w", rule.RuleKey, err)
		}
		if rule.LastVerifiedAt, err = parseTime(verifiedStr); err != nil {
			return nil, fmt.Errorf("failed to parse last_verified_at for %s: %w", rule.RuleKey, err)
		}
		if rule.Tags, err = decodeStrings(tagsStr); err != nil {
			return nil, fmt.Errorf("failed to decode tags for %s: %w", rule.RuleKey, err)
		}

		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

func (s *SQLiteStorage) CatalogSize(ctx context.Context) (foods, rules int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM foods`).Scan(&foods); err != nil {
		return 0, 0, fmt.Errorf("failed to count foods: %w", err)
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rules`).Scan(&rules); err != nil {
		return 0, 0, fmt.Errorf("failed to count rules: %w", err)
	}
	return foods, rules, nil
}
