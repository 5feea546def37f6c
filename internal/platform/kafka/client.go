package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"
)

// NewProducerClient builds a plain synchronous producer client. The default
// partitioner hashes record keys, which is what keeps all events of one
// aggregate on a single partition.
func NewProducerClient(brokers []string) (*kgo.Client, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create producer client: %w", err)
	}
	return cl, nil
}

// NewTransactionalClient builds a producer client whose writes are only
// visible to read-committed consumers after the transaction commits.
func NewTransactionalClient(brokers []string, transactionalID string) (*kgo.Client, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.TransactionalID(transactionalID),
	)
	if err != nil {
		return nil, fmt.Errorf("create transactional client: %w", err)
	}
	return cl, nil
}

// ConsumerConfig describes a group consumer subscription.
type ConsumerConfig struct {
	Brokers []string
	GroupID string
	Topics  []string
	// FromBeginning controls where a group with no committed offsets starts:
	// the log start when true, the log end when false.
	FromBeginning bool
}

// NewConsumerClient builds a group consumer client. Auto-commit is disabled;
// callers commit records only after they have been fully processed, which is
// what gives the pipeline its at-least-once guarantee. Fetches are
// read-committed so aborted transactional batches are never observed.
func NewConsumerClient(cfg ConsumerConfig) (*kgo.Client, error) {
	reset := kgo.NewOffset().AtEnd()
	if cfg.FromBeginning {
		reset = kgo.NewOffset().AtStart()
	}
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.GroupID),
		kgo.ConsumeTopics(cfg.Topics...),
		kgo.ConsumeResetOffset(reset),
		kgo.DisableAutoCommit(),
		kgo.FetchIsolationLevel(kgo.ReadCommitted()),
	)
	if err != nil {
		return nil, fmt.Errorf("create consumer client: %w", err)
	}
	return cl, nil
}

// Ping dials the cluster once; used by the readiness endpoint.
func Ping(ctx context.Context, brokers []string) error {
	cl, err := kgo.NewClient(kgo.SeedBrokers(brokers...))
	if err != nil {
		return err
	}
	defer cl.Close()
	return cl.Ping(ctx)
}
