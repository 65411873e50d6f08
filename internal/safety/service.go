package safety

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mcp-baby-meals/internal/catalog"
	"mcp-baby-meals/internal/models"
	"mcp-baby-meals/internal/storage"
)

type BabyProvider interface {
	GetBaby(ctx context.Context, id string) (*models.Baby, error)
}

type FoodCatalogProvider interface {
	ListFoods(ctx context.Context) ([]models.Food, error)
}

type RuleCatalogProvider interface {
	ListRules(ctx context.Context) ([]models.SafetyRule, error)
}

// Observer is notified after every check. Metrics collectors implement it.
type Observer interface {
	ObserveCheck(alerts []models.SafetyRule)
}

// Report is the result of a check along with what the caller needs to render it.
type Report struct {
	BabyID     string              `json:"baby_id"`
	Found      bool                `json:"baby_found"`
	AgeMonths  int                 `json:"age_months"`
	Alerts     []models.SafetyRule `json:"alerts"`
	Unresolved []UnresolvedItem    `json:"unresolved,omitempty"`
	CheckedAt  time.Time           `json:"checked_at"`
}

// UnresolvedItem is a meal item that matched no catalog food.
type UnresolvedItem struct {
	Item        models.MealItem `json:"item"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

const maxSuggestions = 3

type Service struct {
	babies   BabyProvider
	foods    FoodCatalogProvider
	rules    RuleCatalogProvider
	observer Observer
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

func NewService(babies BabyProvider, foods FoodCatalogProvider, rules RuleCatalogProvider, opts ...Option) *Service {
	s := &Service{
		babies: babies,
		foods:  foods,
		rules:  rules,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CheckSafetyRules fetches current snapshots and runs Check over them.
func (s *Service) CheckSafetyRules(ctx context.Context, babyID string, items []models.MealItem) ([]models.SafetyRule, error) {
	report, err := s.Report(ctx, babyID, items)
	if err != nil {
		return nil, err
	}
	return report.Alerts, nil
}

func (s *Service) Report(ctx context.Context, babyID string, items []models.MealItem) (*Report, error) {
	now := s.now()
	report := &Report{
		BabyID:    babyID,
		Alerts:    []models.SafetyRule{},
		CheckedAt: now,
	}

	baby, err := s.babies.GetBaby(ctx, babyID)
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug("safety check for unknown baby", slog.String("baby_id", babyID))
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch baby: %w", err)
	}

	foods, err := s.foods.ListFoods(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch foods: %w", err)
	}
	rules, err := s.rules.ListRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rules: %w", err)
	}

	report.Found = true
	report.AgeMonths = AgeInMonths(baby.DateOfBirth, now)
	report.Alerts = Evaluate(*baby, foods, rules, items, now)

	for _, item := range items {
		if _, ok := ResolveFood(item, foods); ok {
			continue
		}
		report.Unresolved = append(report.Unresolved, UnresolvedItem{
			Item:        item,
			Suggestions: catalog.Suggest(foods, item.FreeText, maxSuggestions),
		})
	}

	s.logger.Debug("safety check",
		slog.String("baby_id", babyID),
		slog.Int("age_months", report.AgeMonths),
		slog.Int("items", len(items)),
		slog.Int("alerts", len(report.Alerts)),
		slog.Int("unresolved", len(report.Unresolved)),
	)

	if s.observer != nil {
		s.observer.ObserveCheck(report.Alerts)
	}

	return report, nil
}
