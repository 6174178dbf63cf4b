package tracker

import (
	"fmt"
	"time"

	"github.com/udisondev/geozone/internal/zone"
)

// EventKind is the type of a containment transition.
type EventKind uint8

const (
	// Enter: the entity is inside a zone it was not inside at the previous check.
	Enter EventKind = iota + 1
	// Exit: the entity left a zone it was inside at the previous check.
	Exit
	// Inside is a per-check heartbeat while the entity stays in a zone.
	Inside
)

func (k EventKind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	case Inside:
		return "inside"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is a containment transition for one (entity, zone) pair.
type Event struct {
	Kind      EventKind     `json:"kind"`
	EntityID  string        `json:"entity_id"`
	ZoneID    string        `json:"zone_id"`
	Metadata  zone.Metadata `json:"metadata,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%s) entity=%s", e.Kind, e.ZoneID, e.EntityID)
}
