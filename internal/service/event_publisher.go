package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gatherly/rsvp-admission/internal/domain"
	"github.com/gatherly/rsvp-admission/pkg/kafka"
)

// AdmissionEventType identifies an admission stream message
type AdmissionEventType string

const (
	AdmissionEventSeatGranted    AdmissionEventType = "admission.seat_granted"
	AdmissionEventWaitlistJoined AdmissionEventType = "admission.waitlist_joined"
	AdmissionEventPromoted       AdmissionEventType = "admission.promoted"
	AdmissionEventConverted      AdmissionEventType = "admission.converted"
	AdmissionEventExpired        AdmissionEventType = "admission.expired"
	AdmissionEventRemoved        AdmissionEventType = "admission.removed"
)

// EventPublisher defines the interface for publishing admission events
type EventPublisher interface {
	// PublishSeatGranted publishes a direct seat grant
	PublishSeatGranted(ctx context.Context, record *domain.AttendeeRecord) error

	// PublishWaitlistJoined publishes a new waitlist entry
	PublishWaitlistJoined(ctx context.Context, entry *domain.WaitlistEntry) error

	// PublishPromoted publishes a waiting entry's promotion
	PublishPromoted(ctx context.Context, entry *domain.WaitlistEntry) error

	// PublishConverted publishes a conversion into a seat
	PublishConverted(ctx context.Context, entry *domain.WaitlistEntry) error

	// PublishExpired publishes an unanswered notification expiring
	PublishExpired(ctx context.Context, entry *domain.WaitlistEntry) error

	// PublishRemoved publishes a caller-initiated removal
	PublishRemoved(ctx context.Context, entry *domain.WaitlistEntry) error

	// Close closes the event publisher
	Close() error
}

// admissionEvent is the envelope written to the admission topic
type admissionEvent struct {
	ID        string             `json:"id"`
	Type      AdmissionEventType `json:"type"`
	EventID   string             `json:"event_id"`
	Source    string             `json:"source"`
	Timestamp time.Time          `json:"timestamp"`
	Data      any                `json:"data"`
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "admission-events"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "rsvp-admission"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "rsvp-admission-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		LingerMs:      10,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
	}, nil
}

// PublishSeatGranted publishes a direct seat grant
func (p *KafkaEventPublisher) PublishSeatGranted(ctx context.Context, record *domain.AttendeeRecord) error {
	return p.publish(ctx, AdmissionEventSeatGranted, record.EventID, record)
}

// PublishWaitlistJoined publishes a new waitlist entry
func (p *KafkaEventPublisher) PublishWaitlistJoined(ctx context.Context, entry *domain.WaitlistEntry) error {
	return p.publish(ctx, AdmissionEventWaitlistJoined, entry.EventID, entry)
}

// PublishPromoted publishes a waiting entry's promotion
func (p *KafkaEventPublisher) PublishPromoted(ctx context.Context, entry *domain.WaitlistEntry) error {
	return p.publish(ctx, AdmissionEventPromoted, entry.EventID, entry)
}

// PublishConverted publishes a conversion into a seat
func (p *KafkaEventPublisher) PublishConverted(ctx context.Context, entry *domain.WaitlistEntry) error {
	return p.publish(ctx, AdmissionEventConverted, entry.EventID, entry)
}

// PublishExpired publishes an unanswered notification expiring
func (p *KafkaEventPublisher) PublishExpired(ctx context.Context, entry *domain.WaitlistEntry) error {
	return p.publish(ctx, AdmissionEventExpired, entry.EventID, entry)
}

// PublishRemoved publishes a caller-initiated removal
func (p *KafkaEventPublisher) PublishRemoved(ctx context.Context, entry *domain.WaitlistEntry) error {
	return p.publish(ctx, AdmissionEventRemoved, entry.EventID, entry)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

// publish marshals the envelope and produces it keyed by event id, so all
// admission events for one event land on the same partition in order
func (p *KafkaEventPublisher) publish(ctx context.Context, eventType AdmissionEventType, eventID string, data any) error {
	envelope := admissionEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		EventID:   eventID,
		Source:    p.serviceName,
		Timestamp: time.Now(),
		Data:      data,
	}

	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal admission event: %w", err)
	}

	p.producer.ProduceAsync(ctx, p.topic, eventID, payload, nil)
	return nil
}

// NoOpEventPublisher implements EventPublisher without a broker. Used when
// Kafka is unreachable and in tests.
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (p *NoOpEventPublisher) PublishSeatGranted(ctx context.Context, record *domain.AttendeeRecord) error {
	return nil
}

func (p *NoOpEventPublisher) PublishWaitlistJoined(ctx context.Context, entry *domain.WaitlistEntry) error {
	return nil
}

func (p *NoOpEventPublisher) PublishPromoted(ctx context.Context, entry *domain.WaitlistEntry) error {
	return nil
}

func (p *NoOpEventPublisher) PublishConverted(ctx context.Context, entry *domain.WaitlistEntry) error {
	return nil
}

func (p *NoOpEventPublisher) PublishExpired(ctx context.Context, entry *domain.WaitlistEntry) error {
	return nil
}

func (p *NoOpEventPublisher) PublishRemoved(ctx context.Context, entry *domain.WaitlistEntry) error {
	return nil
}

func (p *NoOpEventPublisher) Close() error {
	return nil
}
