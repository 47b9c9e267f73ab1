// Package ping holds latency probe results recorded by the hub.
package ping

// Result is one probe measurement. Latencies are nil when the probe got no reply.
type Result struct {
	Probe  string   `json:"id"`
	Target string   `json:"h"`
	Avg    *float64 `json:"avg"`
	Min    *float64 `json:"min"`
	Max    *float64 `json:"max"`
	Loss   float64  `json:"loss"` // percent
}
