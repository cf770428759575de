package zlog

import "sync/atomic"

// Metrics holds atomic counters, never reset during a process lifetime,
// matching the teacher's handler.Stats shape (separate atomic fields plus
// a GetSnapshot-style accessor) adapted to spec.md §4.8's fixed counter set.
type Metrics struct {
	total      atomic.Uint64
	dropped    atomic.Uint64
	perLevel   [len(allLevels)]atomic.Uint64
	sequence   atomic.Uint64
}

func newMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) acceptRecord(level Level) uint64 {
	m.total.Add(1)
	if idx := int(level); idx >= 0 && idx < len(m.perLevel) {
		m.perLevel[idx].Add(1)
	}
	return m.sequence.Add(1)
}

func (m *Metrics) addDropped(n uint64) {
	m.dropped.Add(n)
}

// TotalLogs returns the number of accepted records.
func (m *Metrics) TotalLogs() uint64 { return m.total.Load() }

// Dropped returns the number of records discarded by queue overflow plus
// residual-at-shutdown.
func (m *Metrics) Dropped() uint64 { return m.dropped.Load() }

// PerLevel returns the accepted-record count for a single level (the
// original C++ source's getLevelLogCount, supplemented per SPEC_FULL.md).
func (m *Metrics) PerLevel(level Level) uint64 {
	idx := int(level)
	if idx < 0 || idx >= len(m.perLevel) {
		return 0
	}
	return m.perLevel[idx].Load()
}

// Snapshot is a point-in-time copy of every counter, including QueueSize
// which is sampled under the queue lock by the caller (Service.MetricsSnapshot).
type Snapshot struct {
	TotalLogs  uint64
	PerLevel   map[Level]uint64
	Dropped    uint64
	QueueSize  int
}

func (m *Metrics) snapshot(queueSize int) Snapshot {
	perLevel := make(map[Level]uint64, len(allLevels))
	for _, lvl := range allLevels {
		perLevel[lvl] = m.PerLevel(lvl)
	}
	return Snapshot{
		TotalLogs: m.TotalLogs(),
		PerLevel:  perLevel,
		Dropped:   m.Dropped(),
		QueueSize: queueSize,
	}
}
