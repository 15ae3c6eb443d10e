package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"rpa/runner/internal/domain/task"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Message is one task read from a queue
type Message struct {
	ID       string
	TaskType string
	TaskData []byte
}

type Queue interface {
	AddTask(ctx context.Context, task task.Task) (string, error) // Returns message ID
	// GetTask returns the next unread task of taskType, or nil when there is none.
	GetTask(ctx context.Context, taskType string) (*Message, error)
	AckTask(ctx context.Context, taskType, msgID string) error
	// AutoClaim takes over tasks that were read but not acked for at least minIdle,
	// for instance by a run that was interrupted. They stay pending until acked.
	AutoClaim(ctx context.Context, taskType string, minIdle time.Duration) ([]Message, error)
}

type RedisQueue struct {
	redisClient  *redis.Client
	streamPrefix string
	groupName    string
	consumer     string
	block        time.Duration
}

func NewRedisQueue(ctx context.Context, redisClient *redis.Client, keyPrefix, groupName string, taskTypes ...string) (*RedisQueue, error) {
	q := &RedisQueue{
		redisClient:  redisClient,
		streamPrefix: keyPrefix + "stream:",
		groupName:    groupName,
		consumer:     "runner",
		block:        time.Second,
	}

	for _, taskType := range taskTypes {
		if err := q.createGroup(ctx, q.streamPrefix+taskType); err != nil {
			return nil, fmt.Errorf("failed to create consumer group for %s: %w", taskType, err)
		}
	}

	return q, nil
}

func (q *RedisQueue) createGroup(ctx context.Context, stream string) error {
	err := q.redisClient.XGroupCreateMkStream(ctx, stream, q.groupName, "0").Err()
	if err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP") {
		log.Debugf("Group %s already exists for stream %s", q.groupName, stream)
		return nil
	}
	if err == nil {
		log.Infof("✅ Stream %s and consumer group %s ready", stream, q.groupName)
	}
	return err
}

func (q *RedisQueue) AddTask(ctx context.Context, task task.Task) (string, error) {
	taskType := task.TaskType()
	streamName := q.streamPrefix + taskType

	taskValue, err := task.TaskValue()
	if err != nil {
		return "", fmt.Errorf("failed to serialize task: %w", err)
	}

	messageID, err := q.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: streamName,
		Values: map[string]interface{}{
			"task_type": taskType,
			"task_data": string(taskValue),
		},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to add task to Redis stream %s: %w", streamName, err)
	}

	log.Debugf("Added task %s to stream %s with message ID: %s", taskType, streamName, messageID)
	return messageID, nil
}

func (q *RedisQueue) GetTask(ctx context.Context, taskType string) (*Message, error) {
	stream := q.streamPrefix + taskType
	result, err := q.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.groupName,
		Consumer: q.consumer,
		Streams:  []string{stream, ">"},
		Count:    1,
		Block:    q.block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read from Redis stream %s: %w", stream, err)
	}

	if len(result) == 0 || len(result[0].Messages) == 0 {
		return nil, nil
	}

	return toMessage(result[0].Messages[0])
}

func toMessage(msg redis.XMessage) (*Message, error) {
	gotType, _ := msg.Values["task_type"].(string)
	data, ok := msg.Values["task_data"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid task data in message %s", msg.ID)
	}

	return &Message{ID: msg.ID, TaskType: gotType, TaskData: []byte(data)}, nil
}

func (q *RedisQueue) AckTask(ctx context.Context, taskType, msgID string) error {
	if err := q.redisClient.XAck(ctx, q.streamPrefix+taskType, q.groupName, msgID).Err(); err != nil {
		return fmt.Errorf("failed to ack message %s: %w", msgID, err)
	}
	return nil
}

func (q *RedisQueue) AutoClaim(ctx context.Context, taskType string, minIdle time.Duration) ([]Message, error) {
	stream := q.streamPrefix + taskType

	var claimed []Message
	start := "0-0"
	for {
		result, next, err := q.redisClient.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   stream,
			Group:    q.groupName,
			Consumer: q.consumer,
			MinIdle:  minIdle,
			Start:    start,
			Count:    100,
		}).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("failed to claim messages from Redis stream %s: %w", stream, err)
		}

		for _, xmsg := range result {
			msg, err := toMessage(xmsg)
			if err != nil {
				log.Errorf("❌ Skipping claimed message: %v", err)
				continue
			}
			claimed = append(claimed, *msg)
		}

		if len(result) == 0 || next == "" || next == "0-0" {
			break
		}
		start = next
	}

	if len(claimed) > 0 {
		log.Infof("🔄 Auto-claimed %d messages from %s", len(claimed), stream)
	}
	return claimed, nil
}
