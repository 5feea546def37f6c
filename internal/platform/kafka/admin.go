package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

// TopicSpec describes a topic to provision.
type TopicSpec struct {
	Name              string
	Partitions        int32
	ReplicationFactor int16
	Configs           map[string]*string
}

// EnsureTopics creates the given topics if they do not already exist.
// Safe to call on every startup.
func EnsureTopics(ctx context.Context, cl *kgo.Client, specs []TopicSpec) error {
	adm := kadm.NewClient(cl)
	for _, spec := range specs {
		resps, err := adm.CreateTopics(ctx, spec.Partitions, spec.ReplicationFactor, spec.Configs, spec.Name)
		if err != nil {
			return fmt.Errorf("create topic %s: %w", spec.Name, err)
		}
		for _, resp := range resps {
			if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
				return fmt.Errorf("create topic %s: %w", resp.Topic, resp.Err)
			}
		}
	}
	return nil
}

// ListStartOffsets returns the log-start offset of every partition of the
// given topics, keyed by topic then partition. Used for replays.
func ListStartOffsets(ctx context.Context, cl *kgo.Client, topics ...string) (map[string]map[int32]int64, error) {
	adm := kadm.NewClient(cl)
	listed, err := adm.ListStartOffsets(ctx, topics...)
	if err != nil {
		return nil, fmt.Errorf("list start offsets: %w", err)
	}
	if err := listed.Error(); err != nil {
		return nil, fmt.Errorf("list start offsets: %w", err)
	}
	offsets := make(map[string]map[int32]int64)
	listed.Each(func(lo kadm.ListedOffset) {
		if offsets[lo.Topic] == nil {
			offsets[lo.Topic] = make(map[int32]int64)
		}
		offsets[lo.Topic][lo.Partition] = lo.Offset
	})
	return offsets, nil
}
