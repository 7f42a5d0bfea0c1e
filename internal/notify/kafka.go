package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by KafkaSink.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events as JSON to a topic, keyed by user ID.
// The writer is created on first use.
type KafkaSink struct {
	brokers []string
	topic   string

	mu     sync.Mutex
	writer MessageWriter
}

// NewKafkaSink creates a KafkaSink for topic.
func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{brokers: brokers, topic: topic}
}

// NewKafkaSinkWithWriter creates a KafkaSink around an existing writer.
func NewKafkaSinkWithWriter(w MessageWriter, topic string) *KafkaSink {
	return &KafkaSink{topic: topic, writer: w}
}

// Name implements Sink.
func (s *KafkaSink) Name() string {
	return "kafka"
}

// Send implements Sink.
func (s *KafkaSink) Send(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		value, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode %s event: %w", e.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(e.UserID, 10)),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
			},
		})
	}

	if err := s.writerForTopic().WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", s.topic, err)
	}
	return nil
}

// Close releases the writer if one was created.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		return nil
	}
	err := s.writer.Close()
	s.writer = nil
	return err
}

func (s *KafkaSink) writerForTopic() MessageWriter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.writer == nil {
		s.writer = &kafka.Writer{
			Addr:         kafka.TCP(s.brokers...),
			Topic:        s.topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			Compression:  kafka.Snappy,
		}
	}
	return s.writer
}
