// Package records handles creating longer records and deleting old records.
package records

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/henrygd/beszel/internal/entities/ping"
	"github.com/henrygd/beszel/internal/entities/system"

	"github.com/goccy/go-json"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Collections holding stats records of every resolution.
const (
	SystemStatsCollection = "system_stats"
	PingStatsCollection   = "ping_stats"
)

// Resolution describes one record type: how far apart its records are and
// how long they are kept. The retention is also the span of the matching chart.
type Resolution struct {
	RecordType string
	ChartType  string
	Interval   time.Duration
	Retention  time.Duration
	// number of shorter records needed to create one record of this type
	minShorterRecords int
}

// Resolutions lists record types from shortest to longest.
var Resolutions = []Resolution{
	{RecordType: "1m", ChartType: "1h", Interval: time.Minute, Retention: time.Hour},
	// 9 instead of 10 to allow for edge case timing or short pauses
	{RecordType: "10m", ChartType: "12h", Interval: 10 * time.Minute, Retention: 12 * time.Hour, minShorterRecords: 9},
	{RecordType: "20m", ChartType: "24h", Interval: 20 * time.Minute, Retention: 24 * time.Hour, minShorterRecords: 2},
	{RecordType: "120m", ChartType: "1w", Interval: 120 * time.Minute, Retention: 7 * 24 * time.Hour, minShorterRecords: 6},
	{RecordType: "480m", ChartType: "30d", Interval: 480 * time.Minute, Retention: 30 * 24 * time.Hour, minShorterRecords: 4},
}

// ResolutionForChart returns the resolution backing a chart type such as "1h".
func ResolutionForChart(chartType string) (Resolution, bool) {
	for _, r := range Resolutions {
		if r.ChartType == chartType {
			return r, true
		}
	}
	return Resolution{}, false
}

// RecordTypes returns the record type names in order.
func RecordTypes() []string {
	names := make([]string, len(Resolutions))
	for i, r := range Resolutions {
		names[i] = r.RecordType
	}
	return names
}

type RecordManager struct {
	app core.App
}

// StatsRecord is the stats column of a stats record.
type StatsRecord struct {
	Stats []byte `db:"stats"`
}

func NewRecordManager(app core.App) *RecordManager {
	return &RecordManager{app}
}

// FormatDate formats t the way PocketBase stores datetime columns.
func FormatDate(t time.Time) string {
	return t.UTC().Format(types.DefaultDateLayout)
}

// CreateLongerRecords averages shorter records into the next longer type
func (rm *RecordManager) CreateLongerRecords() {
	err := rm.app.RunInTransaction(func(txApp core.App) error {
		var systems []struct {
			Id string `db:"id"`
		}
		if err := txApp.DB().NewQuery("SELECT id FROM systems WHERE status='up'").All(&systems); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, sys := range systems {
			for i := 1; i < len(Resolutions); i++ {
				shorter, longer := Resolutions[i-1], Resolutions[i]
				for _, collectionName := range [2]string{SystemStatsCollection, PingStatsCollection} {
					if err := rm.createLongerRecord(txApp, collectionName, sys.Id, shorter, longer, now); err != nil {
						txApp.Logger().Error("failed to create longer record", "collection", collectionName, "type", longer.RecordType, "err", err)
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		rm.app.Logger().Error("failed to create longer records", "err", err)
	}
}

func (rm *RecordManager) createLongerRecord(txApp core.App, collectionName, systemId string, shorter, longer Resolution, now time.Time) error {
	// 10m records are created every run, longer ones only if none exists in their window.
	// add one minute padding because longer records are created slightly after the job starts
	if longer.RecordType != "10m" {
		count, err := txApp.CountRecords(collectionName, dbx.NewExp(
			"system = {:system} AND type = {:type} AND created > {:created}",
			dbx.Params{"system": systemId, "type": longer.RecordType, "created": FormatDate(now.Add(-longer.Interval + time.Minute))},
		))
		if err != nil || count > 0 {
			return err
		}
	}

	var rows []StatsRecord
	err := txApp.DB().
		Select("stats").
		From(collectionName).
		AndWhere(dbx.NewExp(
			"system={:system} AND type={:type} AND created > {:created}",
			dbx.Params{"system": systemId, "type": shorter.RecordType, "created": FormatDate(now.Add(-longer.Interval))},
		)).
		All(&rows)
	if err != nil || len(rows) < longer.minShorterRecords || len(rows) == 0 {
		return err
	}

	collection, err := txApp.FindCachedCollectionByNameOrId(collectionName)
	if err != nil {
		return err
	}
	record := core.NewRecord(collection)
	record.Set("system", systemId)
	record.Set("type", longer.RecordType)
	switch collectionName {
	case SystemStatsCollection:
		record.Set("stats", AverageSystemStats(rows))
	case PingStatsCollection:
		record.Set("stats", AveragePingResults(rows))
	}
	return txApp.SaveNoValidate(record)
}

// AverageSystemStats averages the stats column of system_stats rows.
// Rows that fail to decode are skipped.
func AverageSystemStats(rows []StatsRecord) *system.Stats {
	sum := &system.Stats{}
	var stats system.Stats
	var count, tempCount float64
	var batterySum int

	for _, row := range rows {
		stats = system.Stats{}
		if err := json.Unmarshal(row.Stats, &stats); err != nil {
			continue
		}
		count++
		sum.Cpu += stats.Cpu
		sum.Mem += stats.Mem
		sum.MemUsed += stats.MemUsed
		sum.MemPct += stats.MemPct
		sum.MemBuffCache += stats.MemBuffCache
		sum.MemZfsArc += stats.MemZfsArc
		sum.Swap += stats.Swap
		sum.SwapUsed += stats.SwapUsed
		sum.DiskTotal += stats.DiskTotal
		sum.DiskUsed += stats.DiskUsed
		sum.DiskPct += stats.DiskPct
		sum.DiskReadPs += stats.DiskReadPs
		sum.DiskWritePs += stats.DiskWritePs
		sum.NetworkSent += stats.NetworkSent
		sum.NetworkRecv += stats.NetworkRecv
		for i := range stats.LoadAvg {
			sum.LoadAvg[i] += stats.LoadAvg[i]
		}
		sum.Bandwidth[0] += stats.Bandwidth[0]
		sum.Bandwidth[1] += stats.Bandwidth[1]
		sum.DiskIO[0] += stats.DiskIO[0]
		sum.DiskIO[1] += stats.DiskIO[1]
		// uint8 is not big enough for the sum
		batterySum += int(stats.Battery[0])
		sum.Battery[1] = stats.Battery[1]
		sum.MaxCpu = max(sum.MaxCpu, stats.MaxCpu, stats.Cpu)
		sum.MaxNetworkSent = max(sum.MaxNetworkSent, stats.MaxNetworkSent, stats.NetworkSent)
		sum.MaxNetworkRecv = max(sum.MaxNetworkRecv, stats.MaxNetworkRecv, stats.NetworkRecv)

		if stats.Temperatures != nil {
			if sum.Temperatures == nil {
				sum.Temperatures = make(map[string]float64, len(stats.Temperatures))
			}
			tempCount++
			for key, value := range stats.Temperatures {
				sum.Temperatures[key] += value
			}
		}
		for key, value := range stats.ExtraFs {
			if value == nil {
				continue
			}
			if sum.ExtraFs == nil {
				sum.ExtraFs = make(map[string]*system.FsStats, len(stats.ExtraFs))
			}
			fs, ok := sum.ExtraFs[key]
			if !ok {
				fs = &system.FsStats{}
				sum.ExtraFs[key] = fs
			}
			fs.DiskTotal += value.DiskTotal
			fs.DiskUsed += value.DiskUsed
			fs.DiskReadPs += value.DiskReadPs
			fs.DiskWritePs += value.DiskWritePs
		}
	}

	if count == 0 {
		return sum
	}
	sum.Cpu = twoDecimals(sum.Cpu / count)
	sum.Mem = twoDecimals(sum.Mem / count)
	sum.MemUsed = twoDecimals(sum.MemUsed / count)
	sum.MemPct = twoDecimals(sum.MemPct / count)
	sum.MemBuffCache = twoDecimals(sum.MemBuffCache / count)
	sum.MemZfsArc = twoDecimals(sum.MemZfsArc / count)
	sum.Swap = twoDecimals(sum.Swap / count)
	sum.SwapUsed = twoDecimals(sum.SwapUsed / count)
	sum.DiskTotal = twoDecimals(sum.DiskTotal / count)
	sum.DiskUsed = twoDecimals(sum.DiskUsed / count)
	sum.DiskPct = twoDecimals(sum.DiskPct / count)
	sum.DiskReadPs = twoDecimals(sum.DiskReadPs / count)
	sum.DiskWritePs = twoDecimals(sum.DiskWritePs / count)
	sum.NetworkSent = twoDecimals(sum.NetworkSent / count)
	sum.NetworkRecv = twoDecimals(sum.NetworkRecv / count)
	for i := range sum.LoadAvg {
		sum.LoadAvg[i] = twoDecimals(sum.LoadAvg[i] / count)
	}
	sum.Bandwidth[0] /= uint64(count)
	sum.Bandwidth[1] /= uint64(count)
	sum.DiskIO[0] /= uint64(count)
	sum.DiskIO[1] /= uint64(count)
	sum.Battery[0] = uint8(batterySum / int(count))
	if tempCount > 0 {
		for key := range sum.Temperatures {
			sum.Temperatures[key] = twoDecimals(sum.Temperatures[key] / tempCount)
		}
	}
	for _, fs := range sum.ExtraFs {
		fs.DiskTotal = twoDecimals(fs.DiskTotal / count)
		fs.DiskUsed = twoDecimals(fs.DiskUsed / count)
		fs.DiskReadPs = twoDecimals(fs.DiskReadPs / count)
		fs.DiskWritePs = twoDecimals(fs.DiskWritePs / count)
	}
	return sum
}

// AveragePingResults averages probe results per probe id.
// Latencies average over replies only and stay nil if no probe got one.
func AveragePingResults(rows []StatsRecord) []ping.Result {
	type acc struct {
		target                string
		avg, min, max, loss   float64
		replies, measurements int
		hasMin                bool
	}
	sums := make(map[string]*acc)
	var order []string

	for _, row := range rows {
		var results []ping.Result
		if err := json.Unmarshal(row.Stats, &results); err != nil {
			continue
		}
		for _, r := range results {
			a, ok := sums[r.Probe]
			if !ok {
				a = &acc{}
				sums[r.Probe] = a
				order = append(order, r.Probe)
			}
			if r.Target != "" {
				a.target = r.Target
			}
			a.loss += r.Loss
			a.measurements++
			if r.Avg == nil {
				continue
			}
			a.replies++
			a.avg += *r.Avg
			if r.Min != nil {
				if !a.hasMin {
					a.min, a.hasMin = *r.Min, true
				}
				a.min = min(a.min, *r.Min)
			}
			if r.Max != nil {
				a.max = max(a.max, *r.Max)
			}
		}
	}

	out := make([]ping.Result, 0, len(order))
	for _, id := range order {
		a := sums[id]
		r := ping.Result{
			Probe:  id,
			Target: a.target,
			Loss:   twoDecimals(a.loss / float64(a.measurements)),
		}
		if a.replies > 0 {
			avg := twoDecimals(a.avg / float64(a.replies))
			minLatency, maxLatency := a.min, a.max
			r.Avg, r.Min, r.Max = &avg, &minLatency, &maxLatency
		}
		out = append(out, r)
	}
	return out
}

// DeleteOldRecords deletes stats records older than the retention of their type
func (rm *RecordManager) DeleteOldRecords() {
	err := rm.app.RunInTransaction(func(txApp core.App) error {
		for _, collection := range [2]string{SystemStatsCollection, PingStatsCollection} {
			if err := deleteOldStats(txApp, collection, time.Now()); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		rm.app.Logger().Error("failed to delete old records", "err", err)
	}
}

func deleteOldStats(app core.App, collection string, now time.Time) error {
	var conditionParts []string
	params := dbx.Params{}
	for i, r := range Resolutions {
		typeParam := fmt.Sprintf("type%d", i)
		dateParam := fmt.Sprintf("date%d", i)
		conditionParts = append(conditionParts, fmt.Sprintf("(type = {:%s} AND created < {:%s})", typeParam, dateParam))
		params[typeParam] = r.RecordType
		params[dateParam] = FormatDate(now.Add(-r.Retention))
	}
	rawQuery := fmt.Sprintf("DELETE FROM %s WHERE %s", collection, strings.Join(conditionParts, " OR "))
	if _, err := app.DB().NewQuery(rawQuery).Bind(params).Execute(); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, err)
	}
	return nil
}

/* Round float to two decimals */
func twoDecimals(value float64) float64 {
	return math.Round(value*100) / 100
}
