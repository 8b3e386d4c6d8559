package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"squish/internal/codec"
	"squish/internal/processor"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testReport(started time.Time) processor.BatchReport {
	return processor.BatchReport{
		Spec: processor.TargetSpec{
			TargetBytes:       200 * 1024,
			OutputFormat:      codec.JPEG,
			Naming:            processor.NamingPrefix,
			MaxSearchAttempts: 10,
		},
		OutputDir: "out",
		Outcomes: []processor.JobOutcome{
			{Index: 0, RelPath: "a.png", OutputPath: "out/a_200kb.png", Status: processor.StatusCopied, OriginalBytes: 100, FinalBytes: 100, Method: -1, TargetMet: true, Format: codec.PNG},
			{Index: 1, RelPath: "b.jpg", OutputPath: "out/b_200kb.jpg", Status: processor.StatusCompressed, OriginalBytes: 900, FinalBytes: 200, Param: 63, HasParam: true, Method: -1, Attempts: 5, TargetMet: true, Format: codec.JPEG, Elapsed: 1200 * time.Millisecond},
			{Index: 2, RelPath: "c.jpg", OutputPath: "out/c_200kb.jpg", Status: processor.StatusFailed, OriginalBytes: 700, Method: -1, ErrorKind: "decode", Err: errors.New("decode failed: bad header")},
		},
		Summary: processor.Summary{
			Total: 3, Succeeded: 2, Failed: 1, Copied: 1, Compressed: 1,
			BytesBefore: 1000, BytesAfter: 300,
		},
		Started:  started,
		Finished: started.Add(3 * time.Second),
	}
}

func TestSaveAndListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	firstID, err := store.SaveReport(ctx, testReport(base))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	second := testReport(base.Add(time.Hour))
	second.Cancelled = true
	second.Summary.Skipped = 2
	secondID, err := store.SaveReport(ctx, second)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != secondID || runs[1].ID != firstID {
		t.Fatalf("runs = %+v", runs)
	}
	r := runs[0]
	if !r.Cancelled || r.Naming != "prefix" || r.OutputFormat != "jpeg" || r.TargetBytes != 200*1024 {
		t.Fatalf("run = %+v", r)
	}
	if r.Summary.Succeeded != 2 || r.Summary.BytesAfter != 300 || r.Summary.Skipped != 2 {
		t.Fatalf("summary = %+v", r.Summary)
	}
	if !r.Started.Equal(base.Add(time.Hour)) {
		t.Fatalf("started = %v", r.Started)
	}

	limited, err := store.ListRuns(ctx, 1)
	if err != nil || len(limited) != 1 {
		t.Fatalf("limited list = %d, %v", len(limited), err)
	}
}

func TestOutcomes(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.SaveReport(ctx, testReport(time.Now()))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	outcomes, err := store.Outcomes(ctx, id)
	if err != nil {
		t.Fatalf("outcomes: %v", err)
	}
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}

	if outcomes[0].HasParam || outcomes[0].Status != "COPIED" {
		t.Fatalf("copied outcome = %+v", outcomes[0])
	}
	b := outcomes[1]
	if !b.HasParam || b.Param != 63 || b.Method != -1 || !b.TargetMet || b.Elapsed != 1200*time.Millisecond {
		t.Fatalf("compressed outcome = %+v", b)
	}
	if outcomes[2].ErrorKind != "decode" || outcomes[2].Error != "decode failed: bad header" {
		t.Fatalf("failed outcome = %+v", outcomes[2])
	}

	if _, err := store.Outcomes(ctx, id+100); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.SaveReport(context.Background(), testReport(time.Now())); err != nil {
		t.Fatalf("save: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	var version int
	if err := store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version); err != nil {
		t.Fatalf("version: %v", err)
	}
	if version != len(migrations) {
		t.Fatalf("schema version %d, want %d", version, len(migrations))
	}
	runs, err := store.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("runs after reopen = %d, %v", len(runs), err)
	}
}

func TestDefaultPathFromEnv(t *testing.T) {
	t.Setenv(EnvPath, "/tmp/custom.db")
	if got := DefaultPath(); got != "/tmp/custom.db" {
		t.Fatalf("DefaultPath() = %s", got)
	}
	t.Setenv(EnvPath, "")
	if got := DefaultPath(); got != defaultPath {
		t.Fatalf("DefaultPath() = %s", got)
	}
}

func TestRollbackOnError(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := runInTransaction(ctx, store.db, func(ctx context.Context) error {
		if _, err := store.SaveReport(ctx, testReport(time.Now())); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil || len(runs) != 0 {
		t.Fatalf("runs after rollback = %d, %v", len(runs), err)
	}
}
