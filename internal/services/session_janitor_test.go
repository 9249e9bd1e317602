package services

import (
	"errors"
	"testing"
	"time"
)

type recordingPurger struct {
	cutoffs []time.Time
	removed int64
	err     error
}

func (purger *recordingPurger) PurgeOlderThan(cutoff time.Time) (int64, error) {
	purger.cutoffs = append(purger.cutoffs, cutoff)
	return purger.removed, purger.err
}

func TestSessionJanitorRunOnceUsesTTLCutoff(t *testing.T) {
	purger := &recordingPurger{removed: 3}
	janitor := NewSessionJanitor(purger, 48*time.Hour, nil)
	now := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
	janitor.now = func() time.Time { return now }

	if removed := janitor.RunOnce(); removed != 3 {
		t.Fatalf("expected 3 removed sessions, got %d", removed)
	}
	if len(purger.cutoffs) != 1 {
		t.Fatalf("expected one purge call, got %d", len(purger.cutoffs))
	}
	want := time.Date(2024, time.March, 8, 9, 0, 0, 0, time.UTC)
	if !purger.cutoffs[0].Equal(want) {
		t.Fatalf("expected cutoff %s, got %s", want, purger.cutoffs[0])
	}
}

func TestSessionJanitorRunOnceSwallowsErrors(t *testing.T) {
	purger := &recordingPurger{removed: 7, err: errors.New("database is locked")}
	janitor := NewSessionJanitor(purger, time.Hour, nil)

	if removed := janitor.RunOnce(); removed != 0 {
		t.Fatalf("expected 0 on failure, got %d", removed)
	}
}
