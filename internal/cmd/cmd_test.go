package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcp-baby-meals/internal/config"
	"mcp-baby-meals/internal/storage"
)

// run executes the root command with args against a fresh flag state.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(resetFlag)
	}
	rootCmd.PersistentFlags().VisitAll(resetFlag)

	now = func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { now = time.Now })

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlag(f *pflag.Flag) {
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		_ = sv.Replace([]string{})
	} else {
		_ = f.Value.Set(f.DefValue)
	}
	f.Changed = false
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "baby-meals version 1.0.0")
}

func TestSeedAndCheck(t *testing.T) {
	db := filepath.Join(t.TempDir(), "meals.db")

	out, err := run(t, "seed", "--db-path", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 18 foods and 10 rules")
	assert.Contains(t, out, "Catalog now holds 18 foods and 10 rules")

	out, err = run(t, "check", "--db-path", db, "--log-level", "error",
		"--dob", "2024-11-01", "--food-id", "honey", "--item", "dragon fruit")
	require.NoError(t, err)
	assert.Contains(t, out, "Age: 7 months")
	assert.Contains(t, out, "[DANGER] honey-botulism")
	assert.Contains(t, out, "[CAUTION] added-sugar")
	assert.Contains(t, out, `Not in catalog: "dragon fruit"`)
	assert.Less(t, bytes.Index([]byte(out), []byte("DANGER")), bytes.Index([]byte(out), []byte("CAUTION")))
}

func TestCheckSeedsEmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "meals.db")

	out, err := run(t, "check", "--db-path", db, "--log-level", "error",
		"--dob", "2023-01-01", "--item", "banana")
	require.NoError(t, err)
	assert.Contains(t, out, "No safety rules triggered")
}

func TestCheckErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "meals.db")

	_, err := run(t, "check", "--db-path", db, "--log-level", "error", "--baby", "nobody", "--food-id", "egg")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = run(t, "check", "--db-path", db, "--log-level", "error", "--dob", "2024-11-01")
	assert.ErrorContains(t, err, "at least one")

	_, err = run(t, "check", "--db-path", db, "--log-level", "error", "--dob", "11/01/2024", "--item", "egg")
	assert.ErrorContains(t, err, "invalid --dob")

	_, err = run(t, "check", "--db-path", db, "--log-level", "error", "--dob", "2025-07-01", "--item", "egg")
	assert.ErrorIs(t, err, storage.ErrInvalidBaby)

	_, err = run(t, "check", "--db-path", db, "--log-level", "error",
		"--baby", "b1", "--dob", "2024-11-01", "--item", "egg")
	assert.Error(t, err)

	_, err = run(t, "check", "--db-path", db, "--log-level", "loud", "--dob", "2024-11-01", "--item", "egg")
	assert.Error(t, err)
}

func TestServeRejectsUnknownTransport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "meals.db")

	_, err := run(t, "serve", "--db-path", db, "--log-level", "error", "--transport", "grpc")
	assert.ErrorIs(t, err, config.ErrInvalid)
}
