package notifier

import (
	"context"

	"github.com/segmentio/kafka-go"
)

// PublishResult holds the outcome of an asynchronous publication
type PublishResult struct {
	Error error
}

// Notifier announces completed runs to downstream consumers that want to
// react to roster refreshes without polling the snapshot. Best-effort only;
// the canonical artifact is the source of truth.
type Notifier interface {
	// PublishAsync sends a run summary asynchronously. The returned channel
	// receives the result when the write completes.
	PublishAsync(ctx context.Context, key, value []byte) <-chan PublishResult

	// Close gracefully shuts down the notifier
	Close() error
}

// KafkaNotifier implements Notifier using kafka-go
type KafkaNotifier struct {
	writer *kafka.Writer
}

// Config holds Kafka notifier configuration
type Config struct {
	Brokers []string
	Topic   string
}

// NewKafkaNotifier creates a new KafkaNotifier instance
func NewKafkaNotifier(cfg Config) *KafkaNotifier {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Async:    true,
		Balancer: &kafka.LeastBytes{},
	}

	return &KafkaNotifier{writer: writer}
}

// PublishAsync sends a message without blocking the pipeline
func (n *KafkaNotifier) PublishAsync(ctx context.Context, key, value []byte) <-chan PublishResult {
	resultChan := make(chan PublishResult, 1)

	go func() {
		err := n.writer.WriteMessages(ctx, kafka.Message{Key: key, Value: value})
		resultChan <- PublishResult{Error: err}
		close(resultChan)
	}()

	return resultChan
}

// Close gracefully shuts down the notifier
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
