package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/streadway/amqp"

	"vardhanvasista/fresalyzer/internal/models"
)

const (
	StageStarted   = "started"
	StageItem      = "item"
	StageCompleted = "completed"
	StageAborted   = "aborted"
)

// ProgressEvent describes how far a batch has got.
type ProgressEvent struct {
	RunID      uuid.UUID   `json:"run_id"`
	Mode       models.Mode `json:"mode"`
	Stage      string      `json:"stage"`
	Index      int         `json:"index"`
	Total      int         `json:"total"`
	Name       string      `json:"name,omitempty"`
	Percentage float64     `json:"percentage,omitempty"`
	Error      string      `json:"error,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ProgressPublisher is best effort: failures are logged, never returned.
type ProgressPublisher interface {
	Publish(ctx context.Context, event ProgressEvent)
}

type logProgress struct{}

func NewLogProgress() ProgressPublisher {
	return logProgress{}
}

func (logProgress) Publish(_ context.Context, e ProgressEvent) {
	switch e.Stage {
	case StageStarted:
		log.Printf("🔄 Run %s (%s) started with %d items", e.RunID, e.Mode, e.Total)
	case StageItem:
		if e.Error != "" {
			log.Printf("❌ [%d/%d] %s: %s", e.Index+1, e.Total, e.Name, e.Error)
			return
		}
		log.Printf("✅ [%d/%d] %s: %.1f%%", e.Index+1, e.Total, e.Name, e.Percentage)
	case StageCompleted:
		log.Printf("✅ Run %s completed", e.RunID)
	case StageAborted:
		log.Printf("❌ Run %s aborted: %s", e.RunID, e.Error)
	}
}

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type brokerProgress struct {
	exchange string
	open     func() (amqpChannel, error)
}

// NewBrokerProgress publishes progress events as JSON to a topic exchange
// with routing key "run.<id>.<stage>".
func NewBrokerProgress(conn *amqp.Connection, exchange string) (ProgressPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &brokerProgress{
		exchange: exchange,
		open: func() (amqpChannel, error) {
			return conn.Channel()
		},
	}, nil
}

func (b *brokerProgress) Publish(_ context.Context, e ProgressEvent) {
	ch, err := b.open()
	if err != nil {
		log.Printf("⚠️  Failed to open progress channel: %v", err)
		return
	}
	defer ch.Close()

	body, err := json.Marshal(e)
	if err != nil {
		log.Printf("⚠️  Failed to encode progress event: %v", err)
		return
	}

	routingKey := fmt.Sprintf("run.%s.%s", e.RunID, e.Stage)
	err = ch.Publish(b.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Timestamp:   e.Timestamp,
		Body:        body,
	})
	if err != nil {
		log.Printf("⚠️  Failed to publish progress for run %s: %v", e.RunID, err)
	}
}

type multiProgress []ProgressPublisher

// NewMultiProgress fans each event out to every publisher in order.
func NewMultiProgress(publishers ...ProgressPublisher) ProgressPublisher {
	return multiProgress(publishers)
}

func (m multiProgress) Publish(ctx context.Context, e ProgressEvent) {
	for _, p := range m {
		p.Publish(ctx, e)
	}
}
