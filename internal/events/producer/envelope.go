package producer

import (
	"encoding/json"
	"time"

	"edustream/internal/events"
)

const timestampFormat = time.RFC3339Nano

func marshalEvent(event events.Event) ([]byte, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, &events.ValidationError{Field: "data", Reason: err.Error()}
	}
	return body, nil
}
