package kafka

import (
	"context"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// InjectTraceHeaders appends W3C trace context headers to a record before it
// is produced.
func InjectTraceHeaders(ctx context.Context, rec *kgo.Record) {
	carrier := &recordCarrier{headers: rec.Headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	rec.Headers = carrier.headers
}

// ExtractTraceContext returns a context carrying any trace context found in
// the message headers.
func ExtractTraceContext(ctx context.Context, msg *Message) context.Context {
	carrier := &messageCarrier{msg: msg}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

type recordCarrier struct {
	headers []kgo.RecordHeader
}

func (c *recordCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *recordCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *recordCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kgo.RecordHeader{Key: key, Value: []byte(value)})
}

type messageCarrier struct {
	msg *Message
}

func (c *messageCarrier) Get(key string) string {
	return c.msg.Header(key)
}

func (c *messageCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *messageCarrier) Set(key, value string) {
	for i := range c.msg.Headers {
		if c.msg.Headers[i].Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, Header{Key: key, Value: []byte(value)})
}

var (
	_ propagation.TextMapCarrier = (*recordCarrier)(nil)
	_ propagation.TextMapCarrier = (*messageCarrier)(nil)
)
