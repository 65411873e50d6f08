package storage_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-baby-meals/internal/models"
	"mcp-baby-meals/internal/storage"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	s, err := storage.NewSQLiteStorage(
		filepath.Join(t.TempDir(), "meals.db"),
		storage.WithClock(func() time.Time { return fixedNow }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s
}

func addBaby(t *testing.T, s *storage.SQLiteStorage) *models.Baby {
	t.Helper()

	baby := &models.Baby{
		Name:           "Ada",
		DateOfBirth:    time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC),
		KnownAllergies: []string{"peanut"},
	}
	require.NoError(t, s.SaveBaby(context.Background(), baby))

	return baby
}

func TestBabies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStorage(t)

	baby := addBaby(t, s)
	assert.NotEmpty(t, baby.ID)
	assert.Equal(t, fixedNow, baby.CreatedAt)

	got, err := s.GetBaby(ctx, baby.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)
	assert.Equal(t, baby.DateOfBirth, got.DateOfBirth)
	assert.Equal(t, []string{"peanut"}, got.KnownAllergies)
	assert.Nil(t, got.SuspectedAllergies)

	got.SuspectedAllergies = []string{"egg"}
	got.PediatricianContact = "Dr. Lee 555-0100"
	require.NoError(t, s.UpdateBaby(ctx, got))

	got, err = s.GetBaby(ctx, baby.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"egg"}, got.SuspectedAllergies)
	assert.Equal(t, "Dr. Lee 555-0100", got.PediatricianContact)

	babies, err := s.ListBabies(ctx)
	require.NoError(t, err)
	assert.Len(t, babies, 1)

	require.NoError(t, s.DeleteBaby(ctx, baby.ID))
	_, err = s.GetBaby(ctx, baby.ID)
	require.ErrorIs(t, err, storage.ErrNotFound)
	require.ErrorIs(t, s.DeleteBaby(ctx, baby.ID), storage.ErrNotFound)
}

func TestSaveBabyValidation(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		baby models.Baby
	}{
		"missing name": {
			baby: models.Baby{DateOfBirth: fixedNow.AddDate(0, -3, 0)},
		},
		"missing date of birth": {
			baby: models.Baby{Name: "Ada"},
		},
		"date of birth in the future": {
			baby: models.Baby{Name: "Ada", DateOfBirth: fixedNow.AddDate(0, 0, 1)},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := newStorage(t)
			err := s.SaveBaby(context.Background(), &tc.baby)
			require.ErrorIs(t, err, storage.ErrInvalidBaby)
		})
	}
}

func TestCatalog(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStorage(t)

	iron := 2.6
	foods := []models.Food{
		{ID: "pb", Name: "Peanut Butter", Category: models.CategoryProtein, Allergens: []string{"peanut"}},
		{ID: "beef", Name: "Ground Beef", Category: models.CategoryProtein, Tags: []string{"iron-rich"}, IronMgPer100g: &iron},
		{ID: "apple", Name: "Apple", Category: models.CategoryFruit, ChokingFormNotes: "grate raw apple"},
	}
	rules := []models.SafetyRule{
		{
			RuleKey: "peanut-intro", ShortText: "Introduce peanut", Severity: models.SeverityInfo,
			PublishedAt: time.Date(2017, 1, 5, 0, 0, 0, 0, time.UTC), AgeMinMonths: 4, AgeMaxMonths: 11,
			Tags: []string{"peanut"},
		},
		{RuleKey: "honey", Severity: models.SeverityDanger, AgeMaxMonths: 11, Tags: []string{"honey"}},
	}
	require.NoError(t, s.SeedCatalog(ctx, foods, rules))

	gotFoods, err := s.ListFoods(ctx)
	require.NoError(t, err)
	require.Len(t, gotFoods, 3)
	assert.Equal(t, []string{"pb", "beef", "apple"}, []string{gotFoods[0].ID, gotFoods[1].ID, gotFoods[2].ID})
	assert.Equal(t, []string{"peanut"}, gotFoods[0].Allergens)
	require.NotNil(t, gotFoods[1].IronMgPer100g)
	assert.InDelta(t, 2.6, *gotFoods[1].IronMgPer100g, 0.001)
	assert.Nil(t, gotFoods[0].IronMgPer100g)
	assert.Equal(t, "grate raw apple", gotFoods[2].ChokingFormNotes)

	gotRules, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, gotRules, 2)
	assert.Equal(t, "peanut-intro", gotRules[0].RuleKey)
	assert.Equal(t, models.SeverityInfo, gotRules[0].Severity)
	assert.True(t, rules[0].PublishedAt.Equal(gotRules[0].PublishedAt))
	assert.Equal(t, 4, gotRules[0].AgeMinMonths)

	// Seeding again updates in place.
	foods[0].Name = "Smooth Peanut Butter"
	require.NoError(t, s.SeedCatalog(ctx, foods, rules))

	nFoods, nRules, err := s.CatalogSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, nFoods)
	assert.Equal(t, 2, nRules)

	require.NoError(t, s.UpsertFood(ctx, &models.Food{ID: "egg", Name: "Egg", Category: models.CategoryProtein}))
	gotFoods, err = s.ListFoods(ctx)
	require.NoError(t, err)
	require.Len(t, gotFoods, 4)
	assert.Equal(t, "Smooth Peanut Butter", gotFoods[0].Name)
	assert.Equal(t, "egg", gotFoods[3].ID)

	require.NoError(t, s.UpsertRule(ctx, &models.SafetyRule{RuleKey: "egg-intro", Severity: models.SeverityInfo}))
	gotRules, err = s.ListRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, "egg-intro", gotRules[2].RuleKey)
}

func TestSeedCatalogReorders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStorage(t)

	foodIDs := func() []string {
		t.Helper()
		foods, err := s.ListFoods(ctx)
		require.NoError(t, err)
		ids := []string{}
		for _, f := range foods {
			ids = append(ids, f.ID)
		}
		return ids
	}

	peas := models.Food{ID: "peas", Name: "Peas", Category: models.CategoryVegetable}
	require.NoError(t, s.SeedCatalog(ctx, []models.Food{
		{ID: "zz-pb", Name: "Peanut Butter", Category: models.CategoryProtein, Allergens: []string{"peanut"}},
		peas,
	}, nil))
	assert.Equal(t, []string{"zz-pb", "peas"}, foodIDs())

	// The newer catalog's order wins; the food it dropped moves after it.
	require.NoError(t, s.SeedCatalog(ctx, []models.Food{
		{ID: "aa-pea-soup", Name: "Pea Soup", Category: models.CategoryVegetable},
		peas,
	}, nil))
	assert.Equal(t, []string{"aa-pea-soup", "peas", "zz-pb"}, foodIDs())

	require.NoError(t, s.SeedCatalog(ctx, []models.Food{
		peas,
		{ID: "aa-pea-soup", Name: "Pea Soup", Category: models.CategoryVegetable},
	}, nil))
	assert.Equal(t, []string{"peas", "aa-pea-soup", "zz-pb"}, foodIDs())

	require.NoError(t, s.SeedCatalog(ctx, nil, []models.SafetyRule{
		{RuleKey: "a", Severity: models.SeverityInfo},
		{RuleKey: "b", Severity: models.SeverityInfo},
		{RuleKey: "c", Severity: models.SeverityInfo},
	}))
	require.NoError(t, s.SeedCatalog(ctx, nil, []models.SafetyRule{
		{RuleKey: "c", Severity: models.SeverityInfo},
		{RuleKey: "b", Severity: models.SeverityInfo},
	}))
	rules, err := s.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{rules[0].RuleKey, rules[1].RuleKey, rules[2].RuleKey})

	require.NoError(t, s.UpsertFood(ctx, &models.Food{ID: "egg", Name: "Egg", Category: models.CategoryProtein}))
	assert.Equal(t, []string{"peas", "aa-pea-soup", "zz-pb", "egg"}, foodIDs())
}

func TestMeals(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStorage(t)
	baby := addBaby(t, s)

	for _, m := range []models.Meal{
		{BabyID: baby.ID, MealDate: "2025-02-01", MealTime: "08:00", MealType: models.Breakfast},
		{BabyID: baby.ID, MealDate: "2025-02-02", MealTime: "12:30", MealType: models.Lunch},
		{BabyID: baby.ID, MealDate: "2025-02-02", MealTime: "18:00", MealType: models.Dinner},
	} {
		m.Items = []models.MealItem{{FoodID: "pb", PortionTag: "taste"}, {FreeText: "banana", PortionTag: "1 tbsp"}}
		m.Reactions = []string{"rash"}
		require.NoError(t, s.SaveMeal(ctx, &m))
		assert.NotEmpty(t, m.ID)
	}

	meals, err := s.GetMeals(ctx, baby.ID, "", "", 10)
	require.NoError(t, err)
	require.Len(t, meals, 3)
	assert.Equal(t, "18:00", meals[0].MealTime)
	assert.Equal(t, "2025-02-01", meals[2].MealDate)
	assert.Equal(t, models.MealItem{FreeText: "banana", PortionTag: "1 tbsp"}, meals[0].Items[1])
	assert.Equal(t, []string{"rash"}, meals[0].Reactions)

	meals, err = s.GetMeals(ctx, baby.ID, "2025-02-02", "2025-02-02", 10)
	require.NoError(t, err)
	assert.Len(t, meals, 2)

	meals, err = s.GetMeals(ctx, baby.ID, "", "", 1)
	require.NoError(t, err)
	assert.Len(t, meals, 1)

	meals, err = s.GetMeals(ctx, "someone-else", "", "", 10)
	require.NoError(t, err)
	assert.Empty(t, meals)

	require.NoError(t, s.DeleteMeal(ctx, meals0ID(t, s, baby.ID)))
	require.ErrorIs(t, s.DeleteMeal(ctx, "missing"), storage.ErrNotFound)

	// Deleting the baby cascades to meals.
	require.NoError(t, s.DeleteBaby(ctx, baby.ID))
	meals, err = s.GetMeals(ctx, baby.ID, "", "", 10)
	require.NoError(t, err)
	assert.Empty(t, meals)
}

func meals0ID(t *testing.T, s *storage.SQLiteStorage, babyID string) string {
	t.Helper()

	meals, err := s.GetMeals(context.Background(), babyID, "", "", 1)
	require.NoError(t, err)
	require.NotEmpty(t, meals)

	return meals[0].ID
}

func TestSaveMealValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStorage(t)
	baby := addBaby(t, s)

	tcs := map[string]struct {
		meal    models.Meal
		wantErr error
	}{
		"missing baby id": {
			meal:    models.Meal{MealDate: "2025-02-01", MealTime: "08:00"},
			wantErr: storage.ErrInvalidMeal,
		},
		"bad date": {
			meal:    models.Meal{BabyID: baby.ID, MealDate: "02/01/2025", MealTime: "08:00"},
			wantErr: storage.ErrInvalidMeal,
		},
		"bad time": {
			meal:    models.Meal{BabyID: baby.ID, MealDate: "2025-02-01", MealTime: "8am"},
			wantErr: storage.ErrInvalidMeal,
		},
		"bad meal type": {
			meal:    models.Meal{BabyID: baby.ID, MealDate: "2025-02-01", MealTime: "08:00", MealType: "brunch"},
			wantErr: storage.ErrInvalidMeal,
		},
		"unknown baby": {
			meal:    models.Meal{BabyID: "missing", MealDate: "2025-02-01", MealTime: "08:00"},
			wantErr: storage.ErrNotFound,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.SaveMeal(ctx, &tc.meal), tc.wantErr)
		})
	}
}

func TestUpdateMeal(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	clock := fixedNow
	s, err := storage.NewSQLiteStorage(
		filepath.Join(t.TempDir(), "meals.db"),
		storage.WithClock(func() time.Time { return clock }),
	)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	baby := &models.Baby{Name: "Ada", DateOfBirth: time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, s.SaveBaby(ctx, baby))

	meal := &models.Meal{
		BabyID:   baby.ID,
		MealDate: "2025-02-01",
		MealTime: "08:00",
		MealType: models.Breakfast,
		Items:    []models.MealItem{{FreeText: "honey"}},
	}
	require.NoError(t, s.SaveMeal(ctx, meal))

	clock = fixedNow.Add(time.Hour)
	update := &models.Meal{
		ID:        meal.ID,
		BabyID:    "someone-else",
		MealDate:  "2025-02-01",
		MealTime:  "08:30",
		MealType:  models.Snack,
		Items:     []models.MealItem{{FoodID: "pb", PortionTag: "taste"}},
		Reactions: []string{"hives"},
		Notes:     "swapped the honey",
	}
	require.NoError(t, s.UpdateMeal(ctx, update))
	assert.Equal(t, baby.ID, update.BabyID, "a meal cannot move to another baby")
	assert.True(t, fixedNow.Equal(update.CreatedAt))
	assert.Equal(t, clock, update.UpdatedAt)

	got, err := s.GetMeal(ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, baby.ID, got.BabyID)
	assert.Equal(t, "08:30", got.MealTime)
	assert.Equal(t, models.Snack, got.MealType)
	assert.Equal(t, []models.MealItem{{FoodID: "pb", PortionTag: "taste"}}, got.Items)
	assert.Equal(t, []string{"hives"}, got.Reactions)
	assert.Equal(t, "swapped the honey", got.Notes)
	assert.True(t, fixedNow.Equal(got.CreatedAt))
	assert.True(t, clock.Equal(got.UpdatedAt))

	tcs := map[string]struct {
		meal    models.Meal
		wantErr error
	}{
		"missing id": {
			meal:    models.Meal{MealDate: "2025-02-01", MealTime: "08:00"},
			wantErr: storage.ErrInvalidMeal,
		},
		"unknown meal": {
			meal:    models.Meal{ID: "missing", MealDate: "2025-02-01", MealTime: "08:00"},
			wantErr: storage.ErrNotFound,
		},
		"bad time": {
			meal:    models.Meal{ID: meal.ID, MealDate: "2025-02-01", MealTime: "8am"},
			wantErr: storage.ErrInvalidMeal,
		},
	}
	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, s.UpdateMeal(ctx, &tc.meal), tc.wantErr)
		})
	}

	_, err = s.GetMeal(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err = s.GetMeal(ctx, meal.ID)
	require.NoError(t, err)
	assert.Equal(t, "08:30", got.MealTime, "a rejected update leaves the meal alone")
}

func TestExposures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newStorage(t)
	baby := addBaby(t, s)

	require.NoError(t, s.SaveExposure(ctx, &models.Exposure{
		BabyID: baby.ID, Allergen: "egg", ExposureDate: "2025-01-10",
	}))
	require.NoError(t, s.SaveExposure(ctx, &models.Exposure{
		BabyID:       baby.ID,
		Allergen:     "peanut",
		ExposureDate: "2025-02-10",
		Reaction: &models.ReactionDetail{
			Type:     models.ReactionSkin,
			Severity: models.ReactionMild,
			Symptoms: []string{"Hives"},
		},
		Notes: "around the mouth",
	}))

	exposures, err := s.ListExposures(ctx, baby.ID)
	require.NoError(t, err)
	require.Len(t, exposures, 2)
	assert.Equal(t, "peanut", exposures[0].Allergen)
	require.NotNil(t, exposures[0].Reaction)
	assert.Equal(t, []string{"Hives"}, exposures[0].Reaction.Symptoms)
	assert.Nil(t, exposures[1].Reaction)

	err = s.SaveExposure(ctx, &models.Exposure{BabyID: baby.ID, Allergen: "egg", ExposureDate: "2025-01-10",
		Reaction: &models.ReactionDetail{Type: "itchy"}})
	require.ErrorIs(t, err, storage.ErrInvalidInput)

	err = s.SaveExposure(ctx, &models.Exposure{BabyID: "missing", Allergen: "egg", ExposureDate: "2025-01-10"})
	require.ErrorIs(t, err, storage.ErrNotFound)
}
