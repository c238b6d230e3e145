package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/madhasoeki/scalevxmailketing/platform/logger"
)

type fakeSweepConfig struct {
	expiry   time.Duration
	interval time.Duration
	loc      *time.Location
}

func (f fakeSweepConfig) GetFollowUpExpiry() time.Duration { return f.expiry }
func (f fakeSweepConfig) GetSweepInterval() time.Duration  { return f.interval }
func (f fakeSweepConfig) GetLocation() *time.Location      { return f.loc }

type fakeExpirer struct {
	cutoff time.Time
	now    time.Time
	moved  int
	err    error
}

func (f *fakeExpirer) SweepExpired(_ context.Context, cutoff, now time.Time) (int, error) {
	f.cutoff = cutoff
	f.now = now
	return f.moved, f.err
}

func TestSweepOnce(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		t.Fatalf("loading location: %v", err)
	}

	expirer := &fakeExpirer{moved: 3}
	sweeper := NewSweeper(expirer, fakeSweepConfig{
		expiry:   7 * 24 * time.Hour,
		interval: time.Hour,
		loc:      loc,
	}, logger.New("development"))

	fixed := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	sweeper.now = func() time.Time { return fixed }

	moved, err := sweeper.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce returned error: %v", err)
	}
	if moved != 3 {
		t.Errorf("moved = %d, want 3", moved)
	}

	wantCutoff := fixed.In(loc).Add(-7 * 24 * time.Hour)
	if !expirer.cutoff.Equal(wantCutoff) {
		t.Errorf("cutoff = %v, want %v", expirer.cutoff, wantCutoff)
	}
	if !expirer.now.Equal(fixed) {
		t.Errorf("now = %v, want %v", expirer.now, fixed)
	}
}

func TestLeadExpirySweepTaskPayload(t *testing.T) {
	task, err := NewLeadExpirySweepTask(LeadExpirySweepPayload{TriggeredBy: "admin"})
	if err != nil {
		t.Fatalf("NewLeadExpirySweepTask returned error: %v", err)
	}
	if task.Type() != TaskLeadExpirySweep {
		t.Errorf("task type = %q, want %q", task.Type(), TaskLeadExpirySweep)
	}
	payload, err := ParseLeadExpirySweepPayload(task)
	if err != nil {
		t.Fatalf("ParseLeadExpirySweepPayload returned error: %v", err)
	}
	if payload.TriggeredBy != "admin" {
		t.Errorf("TriggeredBy = %q, want admin", payload.TriggeredBy)
	}
}
