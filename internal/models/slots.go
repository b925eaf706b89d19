package models

// Slot is a named display cell of the stats table.
type Slot struct {
	ID    string
	Value Value
}

// slotMetric pairs a slot ID prefix with the triple it is filled from.
type slotMetric struct {
	id  string
	get func(*Stats) Triple
}

var slotMetrics = []slotMetric{
	{"numberOfRequests", func(s *Stats) Triple { return s.NumberOfRequests }},
	{"minResponseTime", func(s *Stats) Triple { return s.MinResponseTime }},
	{"maxResponseTime", func(s *Stats) Triple { return s.MaxResponseTime }},
	{"meanResponseTime", func(s *Stats) Triple { return s.MeanResponseTime }},
	{"standardDeviation", func(s *Stats) Triple { return s.StandardDeviation }},
	{"percentiles1", func(s *Stats) Triple { return s.Percentiles1 }},
	{"percentiles2", func(s *Stats) Triple { return s.Percentiles2 }},
	{"percentiles3", func(s *Stats) Triple { return s.Percentiles3 }},
	{"percentiles4", func(s *Stats) Triple { return s.Percentiles4 }},
	{"meanNumberOfRequestsPerSecond", func(s *Stats) Triple { return s.MeanNumberOfRequestsPerSecond }},
}

// SlotMetricIDs returns the ten metric IDs in display order.
func SlotMetricIDs() []string {
	ids := make([]string, len(slotMetrics))
	for i, m := range slotMetrics {
		ids[i] = m.id
	}
	return ids
}

// SlotIDs returns all thirty slot IDs in display order.
func SlotIDs() []string {
	ids := make([]string, 0, len(slotMetrics)*3)
	for _, m := range slotMetrics {
		ids = append(ids, m.id, m.id+"OK", m.id+"KO")
	}
	return ids
}

// Fill copies every metric cell of stats into its display slot.
// Values are copied verbatim, no-data markers included.
func Fill(stats *Stats) []Slot {
	slots := make([]Slot, 0, len(slotMetrics)*3)
	for _, m := range slotMetrics {
		t := m.get(stats)
		slots = append(slots,
			Slot{ID: m.id, Value: t.Total},
			Slot{ID: m.id + "OK", Value: t.OK},
			Slot{ID: m.id + "KO", Value: t.KO},
		)
	}
	return slots
}

// SlotMap returns the filled slots keyed by slot ID.
func SlotMap(stats *Stats) map[string]Value {
	slots := Fill(stats)
	out := make(map[string]Value, len(slots))
	for _, s := range slots {
		out[s.ID] = s.Value
	}
	return out
}

// MetricTriple returns the triple behind a metric ID, if the ID is known.
func MetricTriple(stats *Stats, id string) (Triple, bool) {
	for _, m := range slotMetrics {
		if m.id == id {
			return m.get(stats), true
		}
	}
	return Triple{}, false
}
