package queue

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"rpa/runner/internal/domain/task"
)

type unackedMessage struct {
	Message
	seq    int
	readAt time.Time
}

// MemoryQueue keeps tasks for the lifetime of the process
type MemoryQueue struct {
	mu      sync.Mutex
	seq     int
	pending map[string][]Message
	unacked map[string]unackedMessage
	now     func() time.Time
}

func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{
		pending: make(map[string][]Message),
		unacked: make(map[string]unackedMessage),
		now:     time.Now,
	}
}

func (q *MemoryQueue) AddTask(_ context.Context, t task.Task) (string, error) {
	value, err := t.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	q.seq++
	id := strconv.Itoa(q.seq)
	q.pending[t.TaskType()] = append(q.pending[t.TaskType()], Message{ID: id, TaskType: t.TaskType(), TaskData: value})
	return id, nil
}

func (q *MemoryQueue) GetTask(_ context.Context, taskType string) (*Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	msgs := q.pending[taskType]
	if len(msgs) == 0 {
		return nil, nil
	}
	msg := msgs[0]
	q.pending[taskType] = msgs[1:]

	seq, _ := strconv.Atoi(msg.ID)
	q.unacked[msg.ID] = unackedMessage{Message: msg, seq: seq, readAt: q.now()}
	return &msg, nil
}

func (q *MemoryQueue) AckTask(_ context.Context, _ string, msgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.unacked[msgID]; !ok {
		return fmt.Errorf("unknown message %s", msgID)
	}
	delete(q.unacked, msgID)
	return nil
}

func (q *MemoryQueue) AutoClaim(_ context.Context, taskType string, minIdle time.Duration) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var stale []unackedMessage
	for id, msg := range q.unacked {
		if msg.TaskType != taskType || now.Sub(msg.readAt) < minIdle {
			continue
		}
		msg.readAt = now
		q.unacked[id] = msg
		stale = append(stale, msg)
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].seq < stale[j].seq })

	claimed := make([]Message, len(stale))
	for i, msg := range stale {
		claimed[i] = msg.Message
	}
	return claimed, nil
}

// Len returns the number of tasks of taskType not yet read
func (q *MemoryQueue) Len(taskType string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending[taskType])
}

// Unacked returns the number of tasks of taskType read but not acked yet
func (q *MemoryQueue) Unacked(taskType string) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, msg := range q.unacked {
		if msg.TaskType == taskType {
			n++
		}
	}
	return n
}
