package tracker

import "time"

// SchedulerConfig describes distance-scaled check frequency: entities close
// to a point of interest are checked every NearInterval, entities farther
// than FarDistance every FarInterval, linearly interpolated in between.
type SchedulerConfig struct {
	NearDistance float64       `yaml:"near_distance"`
	FarDistance  float64       `yaml:"far_distance"`
	NearInterval time.Duration `yaml:"near_interval"`
	FarInterval  time.Duration `yaml:"far_interval"`
}

// DefaultSchedulerConfig returns SchedulerConfig with sensible defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		NearDistance: 500,
		FarDistance:  5000,
		NearInterval: 100 * time.Millisecond,
		FarInterval:  2 * time.Second,
	}
}

// Scheduler decides which entities are due for a check on the current tick.
// It is owned by the caller's tick loop; the Tracker never throttles itself.
// Scheduler is not safe for concurrent use.
type Scheduler struct {
	cfg  SchedulerConfig
	last map[string]time.Time
}

// NewScheduler creates a scheduler. Inverted distances or intervals are swapped.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.FarDistance < cfg.NearDistance {
		cfg.NearDistance, cfg.FarDistance = cfg.FarDistance, cfg.NearDistance
	}
	if cfg.FarInterval < cfg.NearInterval {
		cfg.NearInterval, cfg.FarInterval = cfg.FarInterval, cfg.NearInterval
	}

	return &Scheduler{cfg: cfg, last: make(map[string]time.Time)}
}

// Interval returns the check interval for an entity dist away from the
// point of interest.
func (s *Scheduler) Interval(dist float64) time.Duration {
	c := s.cfg
	switch {
	case dist <= c.NearDistance:
		return c.NearInterval
	case dist >= c.FarDistance:
		return c.FarInterval
	}

	f := (dist - c.NearDistance) / (c.FarDistance - c.NearDistance)
	return c.NearInterval + time.Duration(f*float64(c.FarInterval-c.NearInterval))
}

// Due reports whether the entity should be checked at now and, if so,
// records now as its last check time. Unknown entities are always due.
func (s *Scheduler) Due(entityID string, dist float64, now time.Time) bool {
	if last, ok := s.last[entityID]; ok && now.Sub(last) < s.Interval(dist) {
		return false
	}

	s.last[entityID] = now
	return true
}

// Forget drops the schedule of an entity.
func (s *Scheduler) Forget(entityID string) {
	delete(s.last, entityID)
}

// Len returns the number of scheduled entities.
func (s *Scheduler) Len() int { return len(s.last) }
