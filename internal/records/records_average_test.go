package records_test

import (
	"testing"
	"time"

	"github.com/henrygd/beszel/internal/records"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rows(stats ...string) []records.StatsRecord {
	out := make([]records.StatsRecord, len(stats))
	for i, s := range stats {
		out[i] = records.StatsRecord{Stats: []byte(s)}
	}
	return out
}

func TestResolutions(t *testing.T) {
	assert.Equal(t, []string{"1m", "10m", "20m", "120m", "480m"}, records.RecordTypes())

	res, ok := records.ResolutionForChart("1w")
	require.True(t, ok)
	assert.Equal(t, "120m", res.RecordType)
	assert.Equal(t, 2*time.Hour, res.Interval)
	assert.Equal(t, 7*24*time.Hour, res.Retention)

	_, ok = records.ResolutionForChart("1m")
	assert.False(t, ok, "record types are not chart types")

	for _, r := range records.Resolutions {
		assert.Zero(t, r.Retention%r.Interval, "%s retention is a whole number of intervals", r.ChartType)
	}
}

func TestFormatDate(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	date := time.Date(2024, 3, 1, 14, 30, 5, 0, loc)
	assert.Equal(t, "2024-03-01 12:30:05.000Z", records.FormatDate(date))
}

func TestAverageSystemStats(t *testing.T) {
	avg := records.AverageSystemStats(rows(
		`{"cpu":10,"mp":40,"la":[1,2,3],"b":[100,200],"t":{"cpu":30},"efs":{"data":{"du":10}},"bat":[80,1]}`,
		`{"cpu":20.5,"mp":60,"la":[3,4,5],"b":[300,400],"t":{"cpu":41},"efs":{"data":{"du":20}},"bat":[90,2]}`,
		`not json`,
	))

	assert.Equal(t, 15.25, avg.Cpu)
	assert.Equal(t, 20.5, avg.MaxCpu)
	assert.Equal(t, 50.0, avg.MemPct)
	assert.Equal(t, [3]float64{2, 3, 4}, avg.LoadAvg)
	assert.Equal(t, [2]uint64{200, 300}, avg.Bandwidth)
	assert.Equal(t, 35.5, avg.Temperatures["cpu"])
	require.Contains(t, avg.ExtraFs, "data")
	assert.Equal(t, 15.0, avg.ExtraFs["data"].DiskUsed)
	assert.Equal(t, [2]uint8{85, 2}, avg.Battery)
}

func TestAverageSystemStatsTemperaturesSubset(t *testing.T) {
	// temperatures average over the records that reported them
	avg := records.AverageSystemStats(rows(
		`{"cpu":10,"t":{"cpu":50}}`,
		`{"cpu":20}`,
	))
	assert.Equal(t, 15.0, avg.Cpu)
	assert.Equal(t, 50.0, avg.Temperatures["cpu"])
}

func TestAverageSystemStatsEmpty(t *testing.T) {
	avg := records.AverageSystemStats(nil)
	require.NotNil(t, avg)
	assert.Zero(t, avg.Cpu)
	assert.Nil(t, avg.Temperatures)
}

func TestAveragePingResults(t *testing.T) {
	results := records.AveragePingResults(rows(
		`[{"id":"p1","h":"1.1.1.1","avg":10,"min":5,"max":20,"loss":0},{"id":"p2","h":"9.9.9.9","avg":null,"min":null,"max":null,"loss":100}]`,
		`[{"id":"p1","avg":null,"min":null,"max":null,"loss":100}]`,
		`[{"id":"p1","h":"1.1.1.1","avg":20,"min":8,"max":30,"loss":0}]`,
		`{"broken":true}`,
	))

	require.Len(t, results, 2)

	p1 := results[0]
	assert.Equal(t, "p1", p1.Probe)
	assert.Equal(t, "1.1.1.1", p1.Target)
	require.NotNil(t, p1.Avg)
	assert.Equal(t, 15.0, *p1.Avg, "latency averages over replies only")
	assert.Equal(t, 5.0, *p1.Min)
	assert.Equal(t, 30.0, *p1.Max)
	assert.Equal(t, 33.33, p1.Loss)

	p2 := results[1]
	assert.Equal(t, "p2", p2.Probe)
	assert.Nil(t, p2.Avg, "no replies keeps latency null")
	assert.Nil(t, p2.Min)
	assert.Nil(t, p2.Max)
	assert.Equal(t, 100.0, p2.Loss)
}
