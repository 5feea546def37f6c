package kafka

import (
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-level view of a consumed Kafka record. Handlers
// depend on this type instead of the client library so they stay testable
// without a broker.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   []Header
	Timestamp time.Time
}

// Header is a single Kafka record header.
type Header struct {
	Key   string
	Value []byte
}

// Header returns the value of the first header with the given key, or "".
func (m *Message) Header(key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// MessageFromRecord converts a fetched record into a Message.
func MessageFromRecord(rec *kgo.Record) *Message {
	headers := make([]Header, 0, len(rec.Headers))
	for _, h := range rec.Headers {
		headers = append(headers, Header{Key: h.Key, Value: h.Value})
	}
	return &Message{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       rec.Key,
		Value:     rec.Value,
		Headers:   headers,
		Timestamp: rec.Timestamp,
	}
}
