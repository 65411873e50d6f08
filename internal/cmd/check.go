package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"mcp-baby-meals/internal/models"
	"mcp-baby-meals/internal/safety"
	"mcp-baby-meals/internal/storage"
)

var (
	checkBaby    string
	checkDOB     string
	checkFoodIDs []string
	checkItems   []string
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check a proposed meal against the safety rules",
	Long: `Run the safety rules for a stored baby (--baby) or for a date of birth
(--dob) against catalog foods (--food-id) and free-text items (--item).

  baby-meals check --dob 2024-11-01 --food-id honey --item "peanut butter"`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().StringVarP(&checkBaby, "baby", "b", "", "ID of a stored baby")
	checkCmd.Flags().StringVar(&checkDOB, "dob", "", "Date of birth (YYYY-MM-DD) instead of a stored baby")
	checkCmd.Flags().StringArrayVar(&checkFoodIDs, "food-id", nil, "Catalog food id (repeatable)")
	checkCmd.Flags().StringArrayVarP(&checkItems, "item", "i", nil, "Free-text food description (repeatable)")
	checkCmd.MarkFlagsMutuallyExclusive("baby", "dob")
	checkCmd.MarkFlagsOneRequired("baby", "dob")
}

// dobBaby stands in for a stored baby when only a date of birth is known.
type dobBaby struct {
	dob time.Time
}

func (d dobBaby) GetBaby(_ context.Context, id string) (*models.Baby, error) {
	return &models.Baby{ID: id, DateOfBirth: d.dob}, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	items := make([]models.MealItem, 0, len(checkFoodIDs)+len(checkItems))
	for _, id := range checkFoodIDs {
		items = append(items, models.MealItem{FoodID: id})
	}
	for _, text := range checkItems {
		items = append(items, models.MealItem{FreeText: text})
	}
	if len(items) == 0 {
		return errors.New("at least one --food-id or --item is required")
	}

	stor, err := openStorage(cmd.Context())
	if err != nil {
		return err
	}
	defer stor.Close()

	var babies safety.BabyProvider = stor
	babyID := checkBaby
	if checkDOB != "" {
		dob, err := time.Parse(models.DateLayout, checkDOB)
		if err != nil {
			return fmt.Errorf("invalid --dob %q: expected YYYY-MM-DD", checkDOB)
		}
		if dob.After(now()) {
			return fmt.Errorf("%w: --dob %q is in the future", storage.ErrInvalidBaby, checkDOB)
		}
		babies = dobBaby{dob: dob}
		babyID = "dob:" + checkDOB
	}

	svc := safety.NewService(babies, stor, stor, safety.WithClock(now), safety.WithLogger(logger))
	report, err := svc.Report(cmd.Context(), babyID, items)
	if err != nil {
		return err
	}
	if !report.Found {
		return fmt.Errorf("baby %s: %w", babyID, storage.ErrNotFound)
	}

	printReport(cmd.OutOrStdout(), report)
	return nil
}

func printReport(w io.Writer, r *safety.Report) {
	fmt.Fprintf(w, "Age: %d months\n", r.AgeMonths)

	if len(r.Alerts) == 0 {
		fmt.Fprintln(w, "No safety rules triggered")
	}
	for _, a := range r.Alerts {
		fmt.Fprintf(w, "[%s] %s: %s\n", strings.ToUpper(string(a.Severity)), a.RuleKey, a.ShortText)
		source := a.Publisher
		if !a.LastVerifiedAt.IsZero() {
			source += ", verified " + humanize.Time(a.LastVerifiedAt)
		}
		fmt.Fprintf(w, "    %s\n", source)
		if a.URL != "" {
			fmt.Fprintf(w, "    %s\n", a.URL)
		}
	}

	for _, u := range r.Unresolved {
		line := fmt.Sprintf("Not in catalog: %q", u.Item.Label())
		if len(u.Suggestions) > 0 {
			line += fmt.Sprintf(" (did you mean %s?)", strings.Join(u.Suggestions, ", "))
		}
		fmt.Fprintln(w, line)
	}
}
