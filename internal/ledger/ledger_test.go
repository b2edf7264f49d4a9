// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pdiddy/pagestamp/pkg/types"
)

func testLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "state", "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func recordRun(t *testing.T, l *Ledger, files []types.FileResult) int64 {
	t.Helper()
	ctx := context.Background()
	cfg := types.DefaultStampConfig()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	id, err := l.BeginRun(ctx, cfg, started)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.FinishRun(ctx, id, files, started.Add(time.Minute)); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestOpenCreatesSchemaTwice(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	for i := 0; i < 2; i++ {
		l, err := Open(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i+1, err)
		}
		l.Close()
	}
}

func TestFinishRunAndRecent(t *testing.T) {
	l := testLedger(t)

	first := recordRun(t, l, []types.FileResult{
		{InputPath: "input/a.pdf", OutputPath: "output/a-PROCESADO.pdf", Status: types.StampDone, Pages: 3},
	})
	second := recordRun(t, l, []types.FileResult{
		{InputPath: "input/a.pdf", OutputPath: "output/a-PROCESADO.pdf", Status: types.StampSkipped},
		{InputPath: "input/b.pdf", OutputPath: "output/b-PROCESADO.pdf", Status: types.StampFailed, Err: errors.New("unreadable source")},
	})
	if second <= first {
		t.Fatalf("run ids not increasing: %d then %d", first, second)
	}

	entries, err := l.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	newest := entries[0]
	if newest.RunID != second || newest.InputPath != "input/b.pdf" || newest.Status != types.StampFailed {
		t.Errorf("newest entry = %+v", newest)
	}
	if newest.Error != "unreadable source" {
		t.Errorf("error = %q, want %q", newest.Error, "unreadable source")
	}

	oldest := entries[2]
	if oldest.RunID != first || oldest.Pages != 3 || oldest.Error != "" {
		t.Errorf("oldest entry = %+v", oldest)
	}
	if !oldest.RecordedAt.Equal(time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC)) {
		t.Errorf("recorded_at = %v", oldest.RecordedAt)
	}
}

func TestFinishRunCounts(t *testing.T) {
	l := testLedger(t)
	id := recordRun(t, l, []types.FileResult{
		{InputPath: "a.pdf", Status: types.StampDone, Pages: 1},
		{InputPath: "b.pdf", Status: types.StampDone, Pages: 2},
		{InputPath: "c.pdf", Status: types.StampSkipped},
		{InputPath: "d.pdf", Status: types.StampFailed, Err: errors.New("boom")},
	})

	var stamped, skipped, failed int
	var finished string
	err := l.db.QueryRow(`SELECT stamped, skipped, failed, finished_at FROM runs WHERE id = ?`, id).
		Scan(&stamped, &skipped, &failed, &finished)
	if err != nil {
		t.Fatal(err)
	}
	if stamped != 2 || skipped != 1 || failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 2/1/1", stamped, skipped, failed)
	}
	if finished == "" {
		t.Error("finished_at not set")
	}
}

func TestRecentLimit(t *testing.T) {
	l := testLedger(t)
	var files []types.FileResult
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		files = append(files, types.FileResult{InputPath: name, Status: types.StampDone, Pages: 1})
	}
	recordRun(t, l, files)

	entries, err := l.Recent(context.Background(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].InputPath != "d.pdf" || entries[1].InputPath != "c.pdf" {
		t.Errorf("order = %s, %s; want d.pdf, c.pdf", entries[0].InputPath, entries[1].InputPath)
	}
}

func TestRecentEmpty(t *testing.T) {
	entries, err := testLedger(t).Recent(context.Background(), 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries from an empty ledger", len(entries))
	}
}
