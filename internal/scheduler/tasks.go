// Package scheduler runs the background side of the funnel: the periodic
// follow-up expiry sweep, dispatched through asynq when Redis is available
// and a plain ticker otherwise.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskLeadExpirySweep = "leads.expiry.sweep"

type LeadExpirySweepPayload struct {
	TriggeredBy string `json:"triggeredBy"` // "cron" or "admin"
}

func NewLeadExpirySweepTask(payload LeadExpirySweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadExpirySweep, data), nil
}

func ParseLeadExpirySweepPayload(task *asynq.Task) (LeadExpirySweepPayload, error) {
	var payload LeadExpirySweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LeadExpirySweepPayload{}, err
	}
	return payload, nil
}
