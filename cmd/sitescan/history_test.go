package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitescan/internal/database"
	"github.com/nao1215/sitescan/internal/model"
)

const historySeed = "https://example.com/"

// seedHistory stores two runs of historySeed: the newer one found /new and
// lost /old.
func seedHistory(t *testing.T) (dir string, older, newer *model.RunState) {
	t.Helper()

	dir = t.TempDir()
	db, err := database.Open(t.Context(), dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	now := time.Now()
	older = model.NewRunState(historySeed)
	older.StartedAt = now.Add(-time.Hour)
	older.Addresses.AddAtDepth(historySeed, 0)
	older.Addresses.AddAtDepth(historySeed+"old", 1)
	older.Finish()

	newer = model.NewRunState(historySeed)
	newer.StartedAt = now
	newer.Addresses.AddAtDepth(historySeed, 0)
	newer.Addresses.AddAtDepth(historySeed+"new", 1)
	newer.Addresses.MarkVisited(historySeed)
	newer.MergeKeywords(map[string]int{"shop": 3})
	newer.Finish()

	for _, s := range []*model.RunState{older, newer} {
		if err := db.SaveRun(t.Context(), s); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	return dir, older, newer
}

func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append([]string{"history"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()
	if cmd.Use != "history [seed]" {
		t.Errorf("expected use 'history [seed]', got %q", cmd.Use)
	}
	for _, name := range []string{"limit", "compare", "run", "json", "db-dir", "db-dsn"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
	if err := cmd.Args(cmd, []string{"a", "b"}); err == nil {
		t.Error("expected at most one argument")
	}
}

func TestHistoryCmd(t *testing.T) {
	t.Parallel()

	// Subtests share one SQLite file and run sequentially.
	dir, older, newer := seedHistory(t)

	t.Run("lists seeds", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Scanned seeds (1)") || !strings.Contains(out, historySeed) {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("lists runs newest first", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dir, historySeed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		iNew, iOld := strings.Index(out, newer.ID), strings.Index(out, older.ID)
		if iNew < 0 || iOld < 0 || iNew > iOld {
			t.Errorf("expected newer run before older run:\n%s", out)
		}
	})

	t.Run("seed without scheme is normalized", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dir, "--json", "--limit", "1", "example.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// "example.com/" becomes http://, which has no runs.
		if strings.TrimSpace(out) != "[]" {
			t.Errorf("expected empty list, got %s", out)
		}
	})

	t.Run("json run list", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dir, "--json", "--limit", "1", historySeed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var runs []runView
		if err := json.Unmarshal([]byte(out), &runs); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if len(runs) != 1 || runs[0].ID != newer.ID || runs[0].Discovered != 2 || runs[0].Visited != 1 {
			t.Errorf("runs = %+v", runs)
		}
		if runs[0].Keywords["shop"] != 3 {
			t.Errorf("keywords = %v", runs[0].Keywords)
		}
	})

	t.Run("shows one run with addresses", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dir, "--run", newer.ID)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"Run " + newer.ID, "Addresses (2)", "[visited]", historySeed + "new"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("unknown run", func(t *testing.T) {
		_, err := runHistory(t, "--db-dir", dir, "--run", "does-not-exist")
		if !errors.Is(err, database.ErrRunNotFound) {
			t.Errorf("expected ErrRunNotFound, got %v", err)
		}
	})

	t.Run("compares the latest two runs", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dir, "--compare", historySeed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"+ " + historySeed + "new", "- " + historySeed + "old"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("json comparison", func(t *testing.T) {
		out, err := runHistory(t, "--db-dir", dir, "--compare", "--json", historySeed)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var cmp comparisonView
		if err := json.Unmarshal([]byte(out), &cmp); err != nil {
			t.Fatalf("invalid JSON: %v\n%s", err, out)
		}
		if cmp.Previous.ID != older.ID || cmp.Current.ID != newer.ID {
			t.Errorf("compared %s -> %s", cmp.Previous.ID, cmp.Current.ID)
		}
		if len(cmp.Added) != 1 || len(cmp.Removed) != 1 {
			t.Errorf("added = %v, removed = %v", cmp.Added, cmp.Removed)
		}
	})

	t.Run("compare needs two runs", func(t *testing.T) {
		_, err := runHistory(t, "--db-dir", dir, "--compare", "https://unknown.example/")
		if !errors.Is(err, database.ErrNotEnoughRuns) {
			t.Errorf("expected ErrNotEnoughRuns, got %v", err)
		}
	})

	t.Run("compare needs a seed", func(t *testing.T) {
		if _, err := runHistory(t, "--db-dir", dir, "--compare"); err == nil {
			t.Error("expected error")
		}
	})
}

func TestHistoryCmd_EmptyDatabase(t *testing.T) {
	t.Parallel()

	out, err := runHistory(t, "--db-dir", t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No scanned seeds") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestFormatDelta(t *testing.T) {
	t.Parallel()

	tests := map[int]string{3: "+3", -2: "-2", 0: "±0"}
	for in, want := range tests {
		if got := formatDelta(in); got != want {
			t.Errorf("formatDelta(%d) = %q, want %q", in, got, want)
		}
	}
}
