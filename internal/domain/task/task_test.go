package task

import (
	"testing"

	"rpa/runner/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestOrderRetryTaskValue(t *testing.T) {
	original := &OrderRetryTask{
		RunID:      "run-1",
		Row:        domain.OrderRow{domain.ColumnOrderNumber: "12", domain.ColumnHead: "3"},
		State:      domain.RowStateAbandoned,
		RetryCount: 2,
		Error:      "receipt never appeared",
	}

	data, err := original.TaskValue()
	require.NoError(t, err)
	require.Contains(t, string(data), `"state":"abandoned"`)

	decoded, err := UnmarshalTask[*OrderRetryTask](data)
	require.NoError(t, err)
	require.Equal(t, OrderRetryTaskType, decoded.TaskType())
	require.Equal(t, "12", decoded.Row.OrderNumber())
	require.Equal(t, 2, decoded.RetryCount)
}
