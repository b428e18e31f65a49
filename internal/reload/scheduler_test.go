package reload

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"lexidx/internal/lexicon"
)

type countingReloader struct {
	calls atomic.Int32
	err   error
}

func (c *countingReloader) Reload() (lexicon.LoadInfo, error) {
	c.calls.Add(1)
	return lexicon.LoadInfo{}, c.err
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestScheduleRunsReload(t *testing.T) {
	s := newTestScheduler(t)
	r := &countingReloader{}
	if err := s.Schedule("en", "* * * * * *", r); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for r.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reload never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestScheduledReloadFailureKeepsJob(t *testing.T) {
	s := newTestScheduler(t)
	r := &countingReloader{err: errors.New("gone")}
	if err := s.Schedule("en", "* * * * * *", r); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for r.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("reload never ran")
		}
		time.Sleep(50 * time.Millisecond)
	}
	if !s.HasJob(JobName("en")) {
		t.Error("job removed after a failed reload")
	}
}

func TestScheduleRejectsDuplicate(t *testing.T) {
	s := newTestScheduler(t)
	r := &countingReloader{}
	if err := s.Schedule("en", "0 * * * *", r); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if err := s.Schedule("en", "0 * * * *", r); err == nil {
		t.Fatal("expected duplicate job error")
	}
}

func TestScheduleRejectsBadCron(t *testing.T) {
	s := newTestScheduler(t)
	if err := s.Schedule("en", "every tuesday", &countingReloader{}); err == nil {
		t.Fatal("expected invalid cron error")
	}
	if s.HasJob(JobName("en")) {
		t.Error("invalid job was registered")
	}
}

func TestRemoveAndListJobs(t *testing.T) {
	s := newTestScheduler(t)
	r := &countingReloader{}
	for _, name := range []string{"en", "de"} {
		if err := s.Schedule(name, "30 2 * * *", r); err != nil {
			t.Fatalf("Schedule(%s): %v", name, err)
		}
	}

	jobs := s.ListJobs()
	if len(jobs) != 2 {
		t.Fatalf("ListJobs returned %d jobs, want 2", len(jobs))
	}
	for _, j := range jobs {
		if j.Schedule != "30 2 * * *" || j.ID == "" {
			t.Errorf("unexpected job info: %+v", j)
		}
	}

	s.RemoveJob(JobName("en"))
	s.RemoveJob("missing")
	if s.HasJob(JobName("en")) || !s.HasJob(JobName("de")) {
		t.Error("RemoveJob removed the wrong job")
	}
}
