package task

import "rpa/runner/internal/domain"

const OrderRetryTaskType = "OrderRetryTask"

// OrderRetryTask carries a row that did not reach a receipt so a later run can replay it
type OrderRetryTask struct {
	RunID      string          `json:"run_id"`
	Row        domain.OrderRow `json:"row"`
	State      domain.RowState `json:"state"`       // abandoned or failed
	RetryCount int             `json:"retry_count"` // number of replays so far
	Error      string          `json:"error"`
}

func (t *OrderRetryTask) TaskType() string {
	return OrderRetryTaskType
}

func (t *OrderRetryTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
