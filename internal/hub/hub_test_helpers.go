//go:build testing
// +build testing

package hub

import "github.com/henrygd/beszel/internal/hub/charts"

// TESTING ONLY: GetChartManager returns the chart manager
func (h *Hub) GetChartManager() *charts.Manager {
	return h.cm
}
