package safety_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-baby-meals/internal/models"
	"mcp-baby-meals/internal/safety"
	"mcp-baby-meals/internal/storage"
)

type fakeStore struct {
	babies   map[string]models.Baby
	foods    []models.Food
	rules    []models.SafetyRule
	babyErr  error
	foodErr  error
	ruleErr  error
	ruleHits int
}

func (f *fakeStore) GetBaby(_ context.Context, id string) (*models.Baby, error) {
	if f.babyErr != nil {
		return nil, f.babyErr
	}
	b, ok := f.babies[id]
	if !ok {
		return nil, fmt.Errorf("baby %s: %w", id, storage.ErrNotFound)
	}
	return &b, nil
}

func (f *fakeStore) ListFoods(context.Context) ([]models.Food, error) {
	return f.foods, f.foodErr
}

func (f *fakeStore) ListRules(context.Context) ([]models.SafetyRule, error) {
	f.ruleHits++
	return f.rules, f.ruleErr
}

type recordingObserver struct {
	calls  int
	alerts int
}

func (r *recordingObserver) ObserveCheck(alerts []models.SafetyRule) {
	r.calls++
	r.alerts += len(alerts)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		babies: map[string]models.Baby{
			"b1": {ID: "b1", Name: "Ada", DateOfBirth: bornMonthsAgo(7)},
		},
		foods: []models.Food{
			{ID: "f1", Name: "Peanut Butter", Allergens: []string{"peanut"}},
			{ID: "f2", Name: "Sweet Potato"},
		},
		rules: []models.SafetyRule{
			rule("peanut-intro", models.SeverityDanger, 0, 24, "peanut"),
		},
	}
}

func TestServiceReport(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	obs := &recordingObserver{}
	svc := safety.NewService(store, store, store,
		safety.WithClock(func() time.Time { return now }),
		safety.WithObserver(obs),
	)

	report, err := svc.Report(context.Background(), "b1", []models.MealItem{
		{FoodID: "f1", PortionTag: "taste"},
		{FreeText: "swet potatoe"},
		{FreeText: "kale"},
	})
	require.NoError(t, err)

	assert.True(t, report.Found)
	assert.Equal(t, 7, report.AgeMonths)
	assert.Equal(t, now, report.CheckedAt)
	assert.Equal(t, []string{"peanut-intro"}, keys(report.Alerts))

	require.Len(t, report.Unresolved, 2)
	assert.Equal(t, "swet potatoe", report.Unresolved[0].Item.FreeText)
	assert.Empty(t, report.Unresolved[1].Suggestions)

	assert.Equal(t, 1, obs.calls)
	assert.Equal(t, 1, obs.alerts)
}

func TestServiceUnknownBaby(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	svc := safety.NewService(store, store, store)

	alerts, err := svc.CheckSafetyRules(context.Background(), "missing", []models.MealItem{{FoodID: "f1"}})
	require.NoError(t, err)
	assert.NotNil(t, alerts)
	assert.Empty(t, alerts)
	assert.Zero(t, store.ruleHits)
}

func TestServiceProviderErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")

	tcs := map[string]struct {
		setup   func(*fakeStore)
		wantMsg string
	}{
		"baby lookup fails": {
			setup:   func(f *fakeStore) { f.babyErr = boom },
			wantMsg: "failed to fetch baby",
		},
		"food catalog fails": {
			setup:   func(f *fakeStore) { f.foodErr = boom },
			wantMsg: "failed to fetch foods",
		},
		"rule catalog fails": {
			setup:   func(f *fakeStore) { f.ruleErr = boom },
			wantMsg: "failed to fetch rules",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := newFakeStore()
			tc.setup(store)
			svc := safety.NewService(store, store, store)

			_, err := svc.CheckSafetyRules(context.Background(), "b1", []models.MealItem{{FoodID: "f1"}})
			require.ErrorIs(t, err, boom)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}
