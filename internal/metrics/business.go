package metrics

import "time"

// IncrementPresenceSet increments the setPresence counter
func (m *Metrics) IncrementPresenceSet() {
	m.safeExecute("IncrementPresenceSet", func() {
		m.PresenceSetTotal.Inc()
	})
}

// IncrementPresenceCleared increments the clearPresence counter
func (m *Metrics) IncrementPresenceCleared() {
	m.safeExecute("IncrementPresenceCleared", func() {
		m.PresenceClearedTotal.Inc()
	})
}

// RecordCountCacheHit increments the count cache hit counter
func (m *Metrics) RecordCountCacheHit() {
	m.safeExecute("RecordCountCacheHit", func() {
		m.CountCacheHitsTotal.Inc()
	})
}

// RecordCountCacheMiss increments the count cache miss counter
func (m *Metrics) RecordCountCacheMiss() {
	m.safeExecute("RecordCountCacheMiss", func() {
		m.CountCacheMissesTotal.Inc()
	})
}

// RecordCountCacheError increments the absorbed cache failure counter
func (m *Metrics) RecordCountCacheError() {
	m.safeExecute("RecordCountCacheError", func() {
		m.CountCacheErrorsTotal.Inc()
	})
}

// RecordRecompute records the duration of one count recompute
func (m *Metrics) RecordRecompute(duration time.Duration) {
	m.safeExecute("RecordRecompute", func() {
		m.RecomputeDuration.Observe(duration.Seconds())
	})
}

// SetPresenceActiveTotal sets the active presence gauge
func (m *Metrics) SetPresenceActiveTotal(count int64) {
	m.safeExecute("SetPresenceActiveTotal", func() {
		m.PresenceActiveTotal.Set(float64(count))
	})
}
