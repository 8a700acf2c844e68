// Package queue is the durable task log: a single Redis stream with a
// consumer group providing at-least-once delivery to competing workers.
package queue

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

// EventSendMessage is the only event type the dispatch worker consumes.
const EventSendMessage = "send_message"

// SendTask is one recipient/template/account-pool unit of work. It lives
// only inside a queue event and is never persisted standalone.
type SendTask struct {
	CampaignID uint                   `json:"campaign_id"`
	Recipient  string                 `json:"recipient"`
	TemplateID uint                   `json:"template_id"`
	AccountIDs []uint                 `json:"account_ids"`
	Delay      float64                `json:"delay"`
	Variables  map[string]interface{} `json:"variables"`
	ABTestID   *uint                  `json:"ab_test_id,omitempty"`
}

// Event is one stream entry as handed to a consumer.
type Event struct {
	ID   string
	Type string
	Data []byte
}

// Queue wraps one named stream and one consumer group.
type Queue struct {
	rdb    *redis.Client
	stream string
	group  string
}

func New(rdb *redis.Client, stream, group string) *Queue {
	return &Queue{rdb: rdb, stream: stream, group: group}
}

// Append durably adds an event to the stream. It never blocks on
// consumers; per-producer FIFO order is preserved by the stream itself.
func (q *Queue) Append(ctx context.Context, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]interface{}{
			"type": eventType,
			"data": string(data),
		},
	}).Err()
}

// EnsureGroup creates the consumer group if it does not exist yet.
// Creating it twice is not an error.
func (q *Queue) EnsureGroup(ctx context.Context) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

// ReadNext blocks up to block for the next unassigned event for this
// consumer. Returns zero events on timeout.
func (q *Queue) ReadNext(ctx context.Context, consumer string, block time.Duration) ([]Event, error) {
	streams, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    1,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			events = append(events, decodeMessage(msg))
		}
	}
	return events, nil
}

// Ack marks an event processed for the group. Events left unacked when a
// consumer dies stay pending and are claimable by other consumers.
func (q *Queue) Ack(ctx context.Context, eventID string) error {
	return q.rdb.XAck(ctx, q.stream, q.group, eventID).Err()
}

// ClaimStale transfers ownership of events that have been pending longer
// than minIdle to this consumer, so work from crashed consumers is
// redelivered rather than lost.
func (q *Queue) ClaimStale(ctx context.Context, consumer string, minIdle time.Duration) ([]Event, error) {
	msgs, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0",
		Count:    100,
	}).Result()
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, msg := range msgs {
		events = append(events, decodeMessage(msg))
	}
	return events, nil
}

func decodeMessage(msg redis.XMessage) Event {
	ev := Event{ID: msg.ID}
	if t, ok := msg.Values["type"].(string); ok {
		ev.Type = t
	}
	if d, ok := msg.Values["data"].(string); ok {
		ev.Data = []byte(d)
	}
	return ev
}
