package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitescan/internal/config"
	"github.com/nao1215/sitescan/internal/database"
)

// defaultHistoryLimit is the number of runs listed per seed.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [seed]",
		Short: "Show recorded scan runs",
		Long: `History shows the runs stored in the run history database.

Without arguments, it lists every seed that has been scanned.
With a seed, it lists the runs of that seed, newest first.

Examples:
  # List all scanned seeds
  sitescan history

  # List the runs of a seed
  sitescan history https://example.com/

  # Show what the latest run found that the previous one did not (and vice versa)
  sitescan history --compare https://example.com/

  # Show one run and every address it discovered
  sitescan history --run 3f2b9c4e-...

  # Machine readable output
  sitescan history --json https://example.com/`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list (0 = all)")
	cmd.Flags().Bool("compare", false,
		"Compare the discovered addresses of the latest two runs of the seed")
	cmd.Flags().String("run", "",
		"Show one run and its addresses by ID")
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON")
	cmd.Flags().String("db-dir", "",
		"Directory of the SQLite history database (default: XDG data directory)")
	cmd.Flags().String("db-dsn", "",
		"PostgreSQL connection URL for the history database")

	return cmd
}

// historyOptions are the parsed history flags.
type historyOptions struct {
	seed    string
	limit   int
	compare bool
	runID   string
	json    bool
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	var opts historyOptions
	var err error
	if len(args) == 1 {
		if seeds := normalizeSeeds(args); len(seeds) == 1 {
			opts.seed = seeds[0]
		}
	}
	if opts.limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return err
	}
	if opts.compare, err = cmd.Flags().GetBool("compare"); err != nil {
		return err
	}
	if opts.runID, err = cmd.Flags().GetString("run"); err != nil {
		return err
	}
	if opts.json, err = cmd.Flags().GetBool("json"); err != nil {
		return err
	}
	if opts.compare && opts.seed == "" {
		return errors.New("--compare requires a seed")
	}

	cfg := config.NewConfig()
	cfg.DBDir = config.XDGDataDir()
	if err := config.ApplyEnv(cfg); err != nil {
		return fmt.Errorf("invalid environment: %w", err)
	}
	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("db-dsn") {
		if cfg.DatabaseDSN, err = cmd.Flags().GetString("db-dsn"); err != nil {
			return err
		}
	}

	setupLogger(cmd)

	ctx := cmd.Context()
	db, err := database.Connect(ctx, cfg.DatabaseDSN, cfg.DBDir)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-only use

	return showHistory(ctx, db, cmd.OutOrStdout(), opts)
}

// showHistory dispatches to the requested history view.
func showHistory(ctx context.Context, db *database.RunDB, out io.Writer, opts historyOptions) error {
	switch {
	case opts.runID != "":
		return showRun(ctx, db, out, opts.runID, opts.json)
	case opts.compare:
		return compareRuns(ctx, db, out, opts.seed, opts.json)
	case opts.seed != "":
		return listRuns(ctx, db, out, opts.seed, opts.limit, opts.json)
	default:
		return listSeeds(ctx, db, out, opts.json)
	}
}

// runView is the JSON form of a stored run.
type runView struct {
	ID         string         `json:"id"`
	Seed       string         `json:"seed"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Duration   string         `json:"duration"`
	Passes     int            `json:"passes"`
	Discovered int            `json:"discovered"`
	Visited    int            `json:"visited"`
	Denied     int            `json:"denied"`
	Records    int            `json:"records"`
	Changes    int            `json:"changes"`
	Errors     int            `json:"errors"`
	Downloads  int            `json:"downloads"`
	Keywords   map[string]int `json:"top_keywords,omitempty"`
}

func newRunView(r database.RunSummary) runView {
	v := runView{
		ID:         r.ID,
		Seed:       r.Seed,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Duration:   r.Duration().Round(time.Millisecond).String(),
		Passes:     r.Passes,
		Discovered: r.Discovered,
		Visited:    r.Visited,
		Denied:     r.Denied,
		Records:    r.Records,
		Changes:    r.Changes,
		Errors:     r.Errors,
		Downloads:  r.Downloads,
	}
	if len(r.Keywords) > 0 {
		v.Keywords = make(map[string]int, len(r.Keywords))
		for _, kw := range r.Keywords {
			v.Keywords[kw.Word] = kw.Count
		}
	}
	return v
}

func writeJSON(out io.Writer, v any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// listSeeds lists every seed that has runs in the database.
func listSeeds(ctx context.Context, db *database.RunDB, out io.Writer, asJSON bool) error {
	seeds, err := db.Seeds(ctx)
	if err != nil {
		return fmt.Errorf("failed to list seeds: %w", err)
	}

	if asJSON {
		if seeds == nil {
			seeds = []string{}
		}
		return writeJSON(out, seeds)
	}

	if len(seeds) == 0 {
		fmt.Fprintln(out, "No scanned seeds found in the database.")
		fmt.Fprintln(out, "\nUse 'sitescan scan <seed>' to scan a site.")
		return nil
	}

	fmt.Fprintf(out, "Scanned seeds (%d):\n\n", len(seeds))
	for _, seed := range seeds {
		fmt.Fprintf(out, "  • %s\n", seed)
	}
	fmt.Fprintln(out, "\nUse 'sitescan history <seed>' to see the runs of a seed.")
	return nil
}

// listRuns lists the runs of a seed, newest first.
func listRuns(ctx context.Context, db *database.RunDB, out io.Writer, seed string, limit int, asJSON bool) error {
	runs, err := db.ListRuns(ctx, seed, limit)
	if err != nil {
		return fmt.Errorf("failed to get run history: %w", err)
	}

	if asJSON {
		views := make([]runView, 0, len(runs))
		for _, r := range runs {
			views = append(views, newRunView(r))
		}
		return writeJSON(out, views)
	}

	if len(runs) == 0 {
		fmt.Fprintf(out, "No runs found for %s\n", seed)
		fmt.Fprintln(out, "\nUse 'sitescan scan' to scan this site.")
		return nil
	}

	fmt.Fprintf(out, "Run history for %s (%d runs):\n\n", seed, len(runs))
	fmt.Fprintf(out, "  %-36s  %-19s  %8s  %6s  %10s  %7s  %6s  %6s\n",
		"ID", "Started", "Duration", "Passes", "Discovered", "Visited", "Denied", "Errors")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 112))
	for _, r := range runs {
		fmt.Fprintf(out, "  %-36s  %-19s  %8s  %6d  %10d  %7d  %6d  %6d\n",
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration().Round(time.Second),
			r.Passes, r.Discovered, r.Visited, r.Denied, r.Errors,
		)
	}

	fmt.Fprintln(out, "\nUse 'sitescan history --compare <seed>' to compare the latest two runs.")
	fmt.Fprintln(out, "Use 'sitescan history --run <id>' to see the addresses of a run.")
	return nil
}

// runDetail is the JSON form of one run with its addresses.
type runDetail struct {
	Run       runView       `json:"run"`
	Addresses []addressView `json:"addresses"`
}

type addressView struct {
	Address string `json:"address"`
	Depth   int    `json:"depth"`
	Visited bool   `json:"visited"`
	Denied  bool   `json:"denied"`
}

// showRun prints one run and every address it discovered.
func showRun(ctx context.Context, db *database.RunDB, out io.Writer, id string, asJSON bool) error {
	run, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	addrs, err := db.Addresses(ctx, id)
	if err != nil {
		return err
	}

	if asJSON {
		detail := runDetail{Run: newRunView(*run), Addresses: make([]addressView, 0, len(addrs))}
		for _, a := range addrs {
			detail.Addresses = append(detail.Addresses, addressView(a))
		}
		return writeJSON(out, detail)
	}

	fmt.Fprintf(out, "Run %s\n", run.ID)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "Seed:       %s\n", run.Seed)
	fmt.Fprintf(out, "Started:    %s\n", run.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Duration:   %s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(out, "Passes:     %d\n", run.Passes)
	fmt.Fprintf(out, "Records:    %d\n", run.Records)
	fmt.Fprintf(out, "Changes:    %d\n", run.Changes)
	fmt.Fprintf(out, "Downloads:  %d\n", run.Downloads)
	fmt.Fprintf(out, "Errors:     %d\n", run.Errors)

	fmt.Fprintf(out, "\nAddresses (%d):\n", len(addrs))
	for _, a := range addrs {
		state := "pending"
		switch {
		case a.Denied:
			state = "denied"
		case a.Visited:
			state = "visited"
		}
		fmt.Fprintf(out, "  [%-7s] d=%d  %s\n", state, a.Depth, a.Address)
	}
	return nil
}

// comparisonView is the JSON form of a comparison.
type comparisonView struct {
	Seed     string   `json:"seed"`
	Previous runView  `json:"previous"`
	Current  runView  `json:"current"`
	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
}

// compareRuns compares the discovered sets of the latest two runs of seed.
func compareRuns(ctx context.Context, db *database.RunDB, out io.Writer, seed string, asJSON bool) error {
	cmp, err := db.CompareLatest(ctx, seed)
	if err != nil {
		if errors.Is(err, database.ErrNotEnoughRuns) {
			return fmt.Errorf("%w (run 'sitescan scan %s' again to create one)", err, seed)
		}
		return fmt.Errorf("failed to compare runs: %w", err)
	}

	if asJSON {
		v := comparisonView{
			Seed:     seed,
			Previous: newRunView(cmp.Older),
			Current:  newRunView(cmp.Newer),
			Added:    cmp.Added,
			Removed:  cmp.Removed,
		}
		if v.Added == nil {
			v.Added = []string{}
		}
		if v.Removed == nil {
			v.Removed = []string{}
		}
		return writeJSON(out, v)
	}

	fmt.Fprintf(out, "Run Comparison: %s\n", seed)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nPrevious run: %s (%s)\n", cmp.Older.ID, cmp.Older.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current run:  %s (%s)\n", cmp.Newer.ID, cmp.Newer.StartedAt.Local().Format("2006-01-02 15:04:05"))

	fmt.Fprintf(out, "\n  %-12s  %-10s  %-10s  %s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 45))
	for _, row := range []struct {
		name     string
		prev, cur int
	}{
		{"Discovered", cmp.Older.Discovered, cmp.Newer.Discovered},
		{"Visited", cmp.Older.Visited, cmp.Newer.Visited},
		{"Denied", cmp.Older.Denied, cmp.Newer.Denied},
		{"Records", cmp.Older.Records, cmp.Newer.Records},
		{"Errors", cmp.Older.Errors, cmp.Newer.Errors},
	} {
		fmt.Fprintf(out, "  %-12s  %-10d  %-10d  %s\n", row.name, row.prev, row.cur, formatDelta(row.cur-row.prev))
	}

	if !cmp.HasChanges() {
		fmt.Fprintln(out, "\nNo changes in the discovered addresses.")
		return nil
	}
	if len(cmp.Added) > 0 {
		fmt.Fprintf(out, "\nNew addresses (%d):\n", len(cmp.Added))
		for _, a := range cmp.Added {
			fmt.Fprintf(out, "  + %s\n", a)
		}
	}
	if len(cmp.Removed) > 0 {
		fmt.Fprintf(out, "\nGone addresses (%d):\n", len(cmp.Removed))
		for _, a := range cmp.Removed {
			fmt.Fprintf(out, "  - %s\n", a)
		}
	}
	return nil
}

// formatDelta formats a count difference with its sign.
func formatDelta(delta int) string {
	switch {
	case delta > 0:
		return fmt.Sprintf("+%d", delta)
	case delta < 0:
		return fmt.Sprintf("%d", delta)
	default:
		return "±0"
	}
}
