// Package kafka provides an audit store that appends events to a Kafka topic
// per category, so compliance events can live on a long-retention topic while
// operations events are free to expire.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	audit "docgate/pkg/platform/audit"
)

// Producer is the broker surface this store needs. Satisfied by
// internal/platform/kafka.Producer.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
	ProduceAsync(ctx context.Context, topic string, key, value []byte)
}

// Store routes each event to the topic for its category. Compliance events
// are produced synchronously (fail-closed); everything else is fire-and-
// forget.
type Store struct {
	producer Producer
	topics   map[audit.EventCategory]string
}

// Topics names the destination topic per category.
type Topics struct {
	Compliance string
	Security   string
	Operations string
}

// DefaultTopics returns the conventional topic layout under a shared prefix.
func DefaultTopics(prefix string) Topics {
	return Topics{
		Compliance: prefix + ".audit.compliance",
		Security:   prefix + ".audit.security",
		Operations: prefix + ".audit.operations",
	}
}

func New(producer Producer, topics Topics) *Store {
	return &Store{
		producer: producer,
		topics: map[audit.EventCategory]string{
			audit.CategoryCompliance: topics.Compliance,
			audit.CategorySecurity:   topics.Security,
			audit.CategoryOperations: topics.Operations,
		},
	}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	topic, ok := s.topics[event.Category]
	if !ok {
		topic = s.topics[audit.CategoryOperations]
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	key := []byte(event.CaseID)

	// Compliance events are the legal review trail; losing one is worse
	// than slowing a request down.
	if event.Category == audit.CategoryCompliance {
		return s.producer.Produce(ctx, topic, key, value)
	}

	s.producer.ProduceAsync(ctx, topic, key, value)
	return nil
}
