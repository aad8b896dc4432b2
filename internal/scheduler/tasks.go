package scheduler

import (
	"encoding/json"

	"outreach_backend/internal/batches"

	"github.com/hibiken/asynq"
)

const TaskBatchAction = "batches.action"

const TaskCycleRun = "cycle.run"

const TaskCompanyInfoRefresh = "oracle.company_info.refresh"

// BatchActionPayload is one operator decision on a batch proposal.
type BatchActionPayload = batches.Action

func NewBatchActionTask(payload BatchActionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchAction, data), nil
}

func ParseBatchActionPayload(task *asynq.Task) (BatchActionPayload, error) {
	var payload BatchActionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BatchActionPayload{}, err
	}
	return payload, nil
}

// NewCycleRunTask carries no per-trigger data in its payload so that
// asynq.Unique collapses concurrent triggers into one queued cycle.
func NewCycleRunTask() *asynq.Task {
	return asynq.NewTask(TaskCycleRun, nil)
}

func NewCompanyInfoRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskCompanyInfoRefresh, nil)
}
