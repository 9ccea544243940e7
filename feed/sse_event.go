package feed

import (
	"fmt"
	"io"
	"strings"
)

// Event is one Server-Sent Event.
type Event struct {
	// ID lets a reconnecting client tell where it left off (`id:` field).
	ID string
	// Name is the event type (`event:` field); empty means the default "message".
	Name string
	// Data is the payload (`data:` field). Multi-line data is split across
	// several `data:` lines as the SSE format requires.
	Data string
}

// NewEvent creates an event of type name carrying data.
func NewEvent(name, data string) Event {
	return Event{Name: name, Data: data}
}

// WriteTo writes e in text/event-stream framing.
func (e Event) WriteTo(w io.Writer) (int64, error) {
	var b strings.Builder
	if e.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", e.ID)
	}
	if e.Name != "" {
		fmt.Fprintf(&b, "event: %s\n", e.Name)
	}
	for _, line := range strings.Split(e.Data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	n, err := io.WriteString(w, b.String())
	return int64(n), err
}
