package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

type fakeSchedulerConfig struct {
	redisURL string
}

func (f fakeSchedulerConfig) GetRedisURL() string       { return f.redisURL }
func (f fakeSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (f fakeSchedulerConfig) GetAsynqQueueName() string { return "default" }
func (f fakeSchedulerConfig) GetAsynqConcurrency() int  { return 1 }
func (f fakeSchedulerConfig) GetSweepCronSpec() string  { return "@every 1h" }

func TestClientEnqueuesSweepTask(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewClient(fakeSchedulerConfig{redisURL: "redis://" + mr.Addr()})
	if err != nil {
		t.Fatalf("NewClient returned error: %v", err)
	}
	defer client.Close()

	err = client.EnqueueLeadExpirySweep(context.Background(), LeadExpirySweepPayload{TriggeredBy: "admin"})
	if err != nil {
		t.Fatalf("EnqueueLeadExpirySweep returned error: %v", err)
	}

	found := false
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "asynq:") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected asynq task data in redis after enqueue")
	}
}

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(fakeSchedulerConfig{}); err == nil {
		t.Fatal("expected an error without a redis url")
	}
	if _, err := NewWorker(fakeSchedulerConfig{}, nil, nil); err == nil {
		t.Fatal("expected an error without a redis url")
	}
	if _, err := NewPeriodic(fakeSchedulerConfig{}, nil); err == nil {
		t.Fatal("expected an error without a redis url")
	}
}
