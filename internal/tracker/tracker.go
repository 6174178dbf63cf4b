// Package tracker turns point-in-zone lookups into enter, exit and inside
// events per tracked entity.
package tracker

import (
	"log/slog"
	"time"

	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/perf"
	"github.com/udisondev/geozone/internal/stats"
	"github.com/udisondev/geozone/internal/zone"
)

// DefaultMovementEpsilon is the displacement below which a check is skipped.
const DefaultMovementEpsilon = 0.5

// Options configures a Tracker.
type Options struct {
	// MovementEpsilon: a check is skipped when the entity moved strictly less
	// than this distance since its last performed check. Zero disables skipping.
	MovementEpsilon float64

	// Verify rechecks every zone returned by the index with the reference
	// ray-casting test and drops disagreements.
	Verify bool

	Stats  *stats.Collector
	Timers *perf.TimerPool
	Logger *slog.Logger
}

type entityState struct {
	inside []*zone.Zone
	pos    geom.Point
	at     time.Time
}

// Tracker holds per-entity containment state.
//
// An entity's containment set always reflects its last performed check: a
// skipped check reuses the previous set and leaves the stored position and
// timestamp alone. Entities never expire; callers Untrack them.
// Tracker is not safe for concurrent use.
type Tracker struct {
	index   zone.Querier
	epsilon float64
	verify  bool
	stats   *stats.Collector
	timers  *perf.TimerPool
	logger  *slog.Logger

	entities map[string]*entityState
	scratch  []*zone.Zone
}

// New creates a tracker querying index.
func New(index zone.Querier, opts Options) *Tracker {
	if opts.Timers == nil {
		opts.Timers = perf.NewTimerPool(4)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Tracker{
		index:    index,
		epsilon:  max(opts.MovementEpsilon, 0),
		verify:   opts.Verify,
		stats:    opts.Stats,
		timers:   opts.Timers,
		logger:   opts.Logger,
		entities: make(map[string]*entityState),
	}
}

// Check updates the containment state of entityID at (x, y) and returns the
// resulting events.
func (t *Tracker) Check(entityID string, x, y float64, now time.Time) []Event {
	return t.CheckInto(nil, entityID, x, y, now)
}

// CheckInto is Check appending to dst. Within one call events are grouped as
// enters, then insides, then exits; each zone gets at most one event.
func (t *Tracker) CheckInto(dst []Event, entityID string, x, y float64, now time.Time) []Event {
	timer := t.timers.Acquire()
	timer.Start()

	p := geom.Point{X: x, Y: y}
	st, known := t.entities[entityID]
	if known {
		skip := st.pos.Dist(p) < t.epsilon
		t.stats.RecordMovement(skip)
		if skip {
			t.finish(timer)
			return dst
		}
	} else {
		st = &entityState{}
		t.entities[entityID] = st
	}

	t.scratch = t.lookup(t.scratch[:0], p)

	var enters, insides, exits int
	for _, z := range t.scratch {
		if !containsZone(st.inside, z.ID) {
			enters++
			dst = append(dst, Event{Kind: Enter, EntityID: entityID, ZoneID: z.ID, Metadata: z.Metadata, Timestamp: now})
		}
	}
	for _, z := range t.scratch {
		if containsZone(st.inside, z.ID) {
			insides++
			dst = append(dst, Event{Kind: Inside, EntityID: entityID, ZoneID: z.ID, Metadata: z.Metadata, Timestamp: now})
		}
	}
	for _, z := range st.inside {
		if !containsZone(t.scratch, z.ID) {
			exits++
			dst = append(dst, Event{Kind: Exit, EntityID: entityID, ZoneID: z.ID, Metadata: z.Metadata, Timestamp: now})
		}
	}

	clear(st.inside)
	st.inside = append(st.inside[:0], t.scratch...)
	st.pos = p
	st.at = now
	clear(t.scratch)

	t.stats.RecordEvents(enters, exits, insides)
	t.finish(timer)

	return dst
}

// lookup запрашивает индекс и, при включенной проверке, отсеивает ложные попадания.
func (t *Tracker) lookup(dst []*zone.Zone, p geom.Point) []*zone.Zone {
	qt := t.timers.Acquire()
	qt.Start()
	dst = t.index.Lookup(dst, p.X, p.Y)
	t.stats.RecordQuery(qt.Stop())
	t.timers.Release(qt)

	if !t.verify {
		return dst
	}

	kept := dst[:0]
	for _, z := range dst {
		if geom.PointInPolygon(p, z.Points) {
			kept = append(kept, z)
			continue
		}
		t.stats.RecordVerifyMismatch()
		t.logger.Debug("index result rejected by verification", "zone", z.ID, "x", p.X, "y", p.Y)
	}

	return kept
}

func (t *Tracker) finish(timer *perf.Timer) {
	t.stats.RecordCheck(timer.Stop())
	t.timers.Release(timer)
}

// Untrack drops the state of an entity. No exit events are produced; the
// next Check for this id starts from an empty containment set.
func (t *Tracker) Untrack(entityID string) {
	delete(t.entities, entityID)
}

// Leave returns exit events for every zone the entity was last known to be
// inside, then untracks it. Use it instead of Untrack when consumers need a
// closing exit, for example on disconnect.
func (t *Tracker) Leave(entityID string, now time.Time) []Event {
	st, ok := t.entities[entityID]
	if !ok {
		return nil
	}
	delete(t.entities, entityID)

	events := make([]Event, 0, len(st.inside))
	for _, z := range st.inside {
		events = append(events, Event{Kind: Exit, EntityID: entityID, ZoneID: z.ID, Metadata: z.Metadata, Timestamp: now})
	}
	t.stats.RecordEvents(0, len(events), 0)

	return events
}

// Tracked reports whether the entity has state.
func (t *Tracker) Tracked(entityID string) bool {
	_, ok := t.entities[entityID]
	return ok
}

// Inside returns the ids of the zones the entity was inside at its last check.
func (t *Tracker) Inside(entityID string) []string {
	st, ok := t.entities[entityID]
	if !ok {
		return nil
	}

	ids := make([]string, len(st.inside))
	for i, z := range st.inside {
		ids[i] = z.ID
	}
	return ids
}

// LastCheck returns the position and time of the entity's last performed check.
func (t *Tracker) LastCheck(entityID string) (geom.Point, time.Time, bool) {
	st, ok := t.entities[entityID]
	if !ok {
		return geom.Point{}, time.Time{}, false
	}
	return st.pos, st.at, true
}

// Len returns the number of tracked entities.
func (t *Tracker) Len() int { return len(t.entities) }

// containsZone: линейный поиск, наборы зон на сущность малы.
func containsZone(zones []*zone.Zone, id string) bool {
	for _, z := range zones {
		if z.ID == id {
			return true
		}
	}
	return false
}
