package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

const publishTimeout = 5 * time.Second

// Publisher sends one envelope per committed mutation to the events channel.
// It is called only after the triggering write has landed in the store, and
// it never fails the mutation: delivery errors are logged and swallowed.
type Publisher struct {
	rc      *redis.Client
	channel string
	board   string
	logger  *log.Logger
}

func NewPublisher(rc *redis.Client, channel, board string, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Publisher{rc: rc, channel: channel, board: board, logger: logger}
}

func (p *Publisher) TaskCreated(t domain.Task) {
	p.publish(TaskCreated, struct {
		Task domain.Task `json:"task"`
	}{t})
}

func (p *Publisher) TaskUpdated(t domain.Task) {
	p.publish(TaskUpdated, struct {
		Task domain.Task `json:"task"`
	}{t})
}

func (p *Publisher) TaskDeleted(taskID string) {
	p.publish(TaskDeleted, struct {
		TaskID string `json:"taskId"`
	}{taskID})
}

func (p *Publisher) TaskMoved(mv domain.TaskMove) {
	p.publish(TaskMoved, mv)
}

func (p *Publisher) Seeded(sum domain.SeedSummary) {
	p.publish(TasksSeeded, struct {
		Message string             `json:"message"`
		Data    domain.SeedSummary `json:"data"`
	}{"Database seeded successfully", sum})
}

func (p *Publisher) Cleared() {
	p.publish(TasksCleared, struct {
		Message string `json:"message"`
	}{"Database cleared successfully"})
}

func (p *Publisher) publish(event string, payload any) {
	if p.rc == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		p.logger.Errorf("marshal %s payload: %v", event, err)
		return
	}
	env := Envelope{Board: p.board, Event: event, Data: data}
	raw, err := json.Marshal(env)
	if err != nil {
		p.logger.Errorf("marshal %s envelope: %v", event, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.rc.Publish(ctx, p.channel, raw).Err(); err != nil {
		p.logger.Errorf("publish %s: %v", event, err)
	}
}
