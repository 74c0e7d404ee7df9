package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
)

// Publisher is the part of the message broker client the AMQPSink needs.
type Publisher interface {
	Publish(routingKey string, body []byte) error
}

// AMQPSink forwards product lifecycle events to the message broker as JSON.
// Other events are ignored.
type AMQPSink struct {
	publisher Publisher
	prefix    string
}

// NewAMQPSink creates a sink publishing every event whose name starts with
// "product.".
func NewAMQPSink(publisher Publisher) *AMQPSink {
	return &AMQPSink{publisher: publisher, prefix: "product."}
}

func (s *AMQPSink) Emit(_ context.Context, e Event) {
	if s.publisher == nil || !strings.HasPrefix(e.Name, s.prefix) {
		return
	}

	fields := make(map[string]any, len(e.Fields))
	for k, v := range e.Fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		fields[k] = v
	}
	e.Fields = fields

	body, err := json.Marshal(e)
	if err != nil {
		log.Printf("Failed to marshal event %s: %v", e.Name, err)
		return
	}
	if err := s.publisher.Publish(e.Name, body); err != nil {
		log.Printf("Warning: Failed to publish event %s: %v", e.Name, err)
	}
}
