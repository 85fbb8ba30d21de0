// Package inbox fans newly created messages out to the recipients' open
// Server-Sent Events streams. Delivery is best effort: nothing is queued for a
// user who has no stream open, and a slow stream drops events instead of
// holding up the sender.
package inbox

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// EventMessage is the SSE event name used for a newly delivered message.
const EventMessage = "message"

// Event is one Server-Sent Event.
type Event struct {
	// Name becomes the `event:` line. Empty means the default "message" type on the client.
	Name string
	// Data is the payload. It is written as one `data:` line per line of text.
	Data string
}

// NewJSONEvent marshals payload into the data of a named event.
func NewJSONEvent(name string, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s event: %w", name, err)
	}
	return Event{Name: name, Data: string(raw)}, nil
}

// WriteTo writes the event in text/event-stream framing.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	if e.Name != "" {
		b.WriteString("event: ")
		b.WriteString(e.Name)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(e.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
