package janitor_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"winenotes/internal/janitor"
	"winenotes/internal/logging"
	"winenotes/internal/testsupport"
)

func newJanitor(t *testing.T, clock *testsupport.FakeClock, remove func(string) error) *janitor.Janitor {
	t.Helper()
	return janitor.New(janitor.Options{Clock: clock, RetryDelay: 60 * time.Second, Remove: remove}, logging.NewNop())
}

func makeDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "WineTasting_1700000000000")
	testsupport.WriteFile(t, filepath.Join(dir, "images", "bottle_1_1.jpg"), 8)
	return dir
}

func TestScheduleRemovesAfterGrace(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Unix(1700000000, 0))
	j := newJanitor(t, clock, nil)
	dir := makeDir(t)

	task := j.Schedule(dir, 60*time.Second)
	if _, err := os.Stat(dir); err != nil {
		t.Fatal("directory removed synchronously")
	}

	clock.Advance(59 * time.Second)
	if _, err := os.Stat(dir); err != nil {
		t.Fatal("directory removed before grace elapsed")
	}
	if j.Pending() != 1 {
		t.Fatalf("expected 1 pending task, got %d", j.Pending())
	}

	clock.Advance(time.Second)
	testsupport.AssertMissing(t, dir)
	if task.Outcome() != janitor.OutcomeRemoved {
		t.Fatalf("unexpected outcome %v", task.Outcome())
	}
	if j.Pending() != 0 {
		t.Fatalf("expected no pending tasks, got %d", j.Pending())
	}
}

func TestScheduleZeroGraceIsStillDeferred(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Unix(0, 0))
	j := newJanitor(t, clock, nil)
	dir := makeDir(t)

	task := j.Schedule(dir, 0)
	if _, err := os.Stat(dir); err != nil {
		t.Fatal("zero grace must not remove on the caller's goroutine")
	}
	clock.Advance(0)
	testsupport.AssertMissing(t, dir)
	<-task.Done()
}

func TestMissingDirectoryCountsAsRemoved(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Unix(0, 0))
	var calls atomic.Int32
	j := newJanitor(t, clock, func(string) error {
		calls.Add(1)
		return nil
	})

	task := j.Schedule(filepath.Join(t.TempDir(), "gone"), time.Second)
	clock.Advance(time.Second)
	if task.Outcome() != janitor.OutcomeRemoved {
		t.Fatalf("unexpected outcome %v", task.Outcome())
	}
	if calls.Load() != 0 {
		t.Fatal("remove should not be called for a missing path")
	}
}

func TestRetryOnceThenSucceed(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Unix(0, 0))
	var calls atomic.Int32
	j := newJanitor(t, clock, func(path string) error {
		if calls.Add(1) == 1 {
			return errors.New("device busy")
		}
		return os.RemoveAll(path)
	})
	dir := makeDir(t)

	task := j.Schedule(dir, 10*time.Second)
	clock.Advance(10 * time.Second)
	if calls.Load() != 1 {
		t.Fatalf("expected first attempt, got %d", calls.Load())
	}
	if task.Outcome() != janitor.OutcomePending {
		t.Fatalf("task should wait for retry, got %v", task.Outcome())
	}

	clock.Advance(59 * time.Second)
	if calls.Load() != 1 {
		t.Fatal("retry fired early")
	}
	clock.Advance(time.Second)
	if calls.Load() != 2 {
		t.Fatalf("expected retry, got %d calls", calls.Load())
	}
	testsupport.AssertMissing(t, dir)
	if task.Outcome() != janitor.OutcomeRemoved {
		t.Fatalf("unexpected outcome %v", task.Outcome())
	}
}

func TestGivesUpAfterSecondFailure(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Unix(0, 0))
	var calls atomic.Int32
	j := newJanitor(t, clock, func(string) error {
		calls.Add(1)
		return errors.New("permission denied")
	})
	dir := makeDir(t)

	task := j.Schedule(dir, time.Second)
	clock.Advance(time.Hour)

	if calls.Load() != 2 {
		t.Fatalf("expected exactly two attempts, got %d", calls.Load())
	}
	if task.Outcome() != janitor.OutcomeFailed {
		t.Fatalf("unexpected outcome %v", task.Outcome())
	}
	if clock.Timers() != 0 {
		t.Fatalf("no timers should remain armed, got %d", clock.Timers())
	}
	if _, err := os.Stat(dir); err != nil {
		t.Fatal("directory should remain after giving up")
	}
}

func TestCancel(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Unix(0, 0))
	j := newJanitor(t, clock, nil)
	dir := makeDir(t)

	task := j.Schedule(dir, time.Minute)
	if !task.Cancel() {
		t.Fatal("expected cancel to succeed")
	}
	if task.Cancel() {
		t.Fatal("second cancel should report false")
	}
	clock.Advance(time.Hour)
	if _, err := os.Stat(dir); err != nil {
		t.Fatal("canceled task removed the directory")
	}
	if task.Outcome() != janitor.OutcomeCanceled {
		t.Fatalf("unexpected outcome %v", task.Outcome())
	}
}

func TestStopRunsDueTasksAndCancelsTheRest(t *testing.T) {
	clock := testsupport.NewFakeClock(time.Unix(0, 0))
	j := newJanitor(t, clock, nil)
	dueDir := makeDir(t)
	laterDir := makeDir(t)

	due := j.Schedule(dueDir, 0)
	later := j.Schedule(laterDir, time.Minute)

	if err := j.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	testsupport.AssertMissing(t, dueDir)
	if due.Outcome() != janitor.OutcomeRemoved {
		t.Fatalf("due task outcome %v", due.Outcome())
	}
	if later.Outcome() != janitor.OutcomeCanceled {
		t.Fatalf("later task outcome %v", later.Outcome())
	}
	if _, err := os.Stat(laterDir); err != nil {
		t.Fatal("not-yet-due directory should remain")
	}

	after := j.Schedule(laterDir, 0)
	if after.Outcome() != janitor.OutcomeCanceled {
		t.Fatal("schedule after stop should be skipped")
	}
}

func TestSweepRemovesOnlyStaleTransientDirs(t *testing.T) {
	root := t.TempDir()
	clock := testsupport.NewFakeClock(time.Now())
	j := newJanitor(t, clock, nil)

	stale := filepath.Join(root, "WineTasting_1")
	fresh := filepath.Join(root, "WineTasting_Import_2")
	foreign := filepath.Join(root, "keep-me")
	for _, dir := range []string{stale, fresh, foreign} {
		if err := os.Mkdir(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	old := time.Now().Add(-48 * time.Hour)
	for _, dir := range []string{stale, foreign} {
		if err := os.Chtimes(dir, old, old); err != nil {
			t.Fatal(err)
		}
	}

	result := j.Sweep(context.Background(), root, 24*time.Hour)
	if len(result.Removed) != 1 || result.Removed[0] != stale {
		t.Fatalf("unexpected removals: %v", result.Removed)
	}
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh dir should remain")
	}
	if _, err := os.Stat(foreign); err != nil {
		t.Fatal("non-transient dir should remain")
	}

	all := j.Sweep(context.Background(), root, 0)
	if len(all.Removed) != 1 || all.Removed[0] != fresh {
		t.Fatalf("zero max age should remove remaining transient dirs: %v", all.Removed)
	}
}

func TestSweepSkipsScheduledPaths(t *testing.T) {
	root := t.TempDir()
	clock := testsupport.NewFakeClock(time.Now())
	j := newJanitor(t, clock, nil)
	dir := filepath.Join(root, "WineTasting_9")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	j.Schedule(dir, time.Minute)

	if result := j.Sweep(context.Background(), root, 0); len(result.Removed) != 0 {
		t.Fatalf("sweep removed a scheduled dir: %v", result.Removed)
	}
}

func TestSweepInvalidPaths(t *testing.T) {
	j := newJanitor(t, testsupport.NewFakeClock(time.Now()), nil)
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := j.Sweep(context.Background(), dir, time.Hour)
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestList(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteFile(t, filepath.Join(root, "WineTasting_1", "WineTastingData.json"), 10)
	testsupport.WriteFile(t, filepath.Join(root, "WineTasting_1", "images", "a.jpg"), 5)
	testsupport.WriteFile(t, filepath.Join(root, "other", "x"), 5)

	dirs, err := janitor.List(root)
	if err != nil {
		t.Fatal(err)
	}
	if len(dirs) != 1 {
		t.Fatalf("expected 1 dir, got %+v", dirs)
	}
	if dirs[0].Size != 15 {
		t.Fatalf("expected size 15, got %d", dirs[0].Size)
	}

	missing, err := janitor.List(filepath.Join(root, "nope"))
	if err != nil || missing != nil {
		t.Fatalf("missing root: %v %v", missing, err)
	}
}
