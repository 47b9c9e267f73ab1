package charts

import (
	"fmt"
	"time"

	"github.com/henrygd/beszel/internal/entities/ping"
	"github.com/henrygd/beszel/internal/entities/system"
	"github.com/henrygd/beszel/internal/records"
	"github.com/henrygd/beszel/internal/timeseries"

	"github.com/goccy/go-json"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// Source loads stored records as samples, oldest first.
type Source interface {
	SystemStats(systemId, recordType string, since time.Time) ([]timeseries.Sample, error)
	PingStats(systemId, recordType string, since time.Time) ([]timeseries.Sample, error)
}

// DBSource reads records from the hub database.
type DBSource struct {
	app core.App
}

func NewDBSource(app core.App) *DBSource {
	return &DBSource{app: app}
}

type statsRow struct {
	Stats   []byte         `db:"stats"`
	Created types.DateTime `db:"created"`
}

func (s *DBSource) rows(collection, systemId, recordType string, since time.Time) ([]statsRow, error) {
	var rows []statsRow
	err := s.app.DB().
		Select("stats", "created").
		From(collection).
		AndWhere(dbx.NewExp(
			"system={:system} AND type={:type} AND created > {:created}",
			dbx.Params{"system": systemId, "type": recordType, "created": records.FormatDate(since)},
		)).
		OrderBy("created ASC").
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}
	return rows, nil
}

// SystemStats returns system_stats records of recordType created after since.
// Records with a stats column that fails to decode are skipped.
func (s *DBSource) SystemStats(systemId, recordType string, since time.Time) ([]timeseries.Sample, error) {
	rows, err := s.rows(records.SystemStatsCollection, systemId, recordType, since)
	if err != nil {
		return nil, err
	}
	samples := make([]timeseries.Sample, 0, len(rows))
	for _, row := range rows {
		var stats system.Stats
		if err := json.Unmarshal(row.Stats, &stats); err != nil {
			s.app.Logger().Warn("Skipping system_stats record", "system", systemId, "err", err)
			continue
		}
		samples = append(samples, StatsSample(row.Created.Time(), &stats))
	}
	return samples, nil
}

// PingStats returns ping_stats records of recordType created after since.
func (s *DBSource) PingStats(systemId, recordType string, since time.Time) ([]timeseries.Sample, error) {
	rows, err := s.rows(records.PingStatsCollection, systemId, recordType, since)
	if err != nil {
		return nil, err
	}
	samples := make([]timeseries.Sample, 0, len(rows))
	for _, row := range rows {
		var results []ping.Result
		if err := json.Unmarshal(row.Stats, &results); err != nil {
			s.app.Logger().Warn("Skipping ping_stats record", "system", systemId, "err", err)
			continue
		}
		samples = append(samples, PingSample(row.Created.Time(), results))
	}
	return samples, nil
}

// StatsSample flattens stats into a sample keyed by chart key.
func StatsSample(t time.Time, stats *system.Stats) timeseries.Sample {
	sample := timeseries.NewSample(t)
	for _, field := range system.StatsFields {
		sample.Set(field.Key, field.Value(stats))
	}
	for name, temp := range stats.Temperatures {
		sample.Set("t."+name, temp)
	}
	for name, fs := range stats.ExtraFs {
		if fs == nil {
			continue
		}
		prefix := "efs." + name + "."
		sample.Set(prefix+"d", fs.DiskTotal)
		sample.Set(prefix+"du", fs.DiskUsed)
		sample.Set(prefix+"r", fs.DiskReadPs)
		sample.Set(prefix+"w", fs.DiskWritePs)
	}
	return sample
}

// PingSample flattens probe results into a sample keyed by "<probe>.<field>".
// Missing replies become explicit nulls and the probe target is kept as a label.
func PingSample(t time.Time, results []ping.Result) timeseries.Sample {
	sample := timeseries.NewSample(t)
	for _, r := range results {
		prefix := r.Probe + "."
		setOrNull(&sample, prefix+"avg", r.Avg)
		setOrNull(&sample, prefix+"min", r.Min)
		setOrNull(&sample, prefix+"max", r.Max)
		sample.Set(prefix+"loss", r.Loss)
		if r.Target != "" {
			if sample.Labels == nil {
				sample.Labels = make(map[string]string)
			}
			sample.Labels[prefix+"target"] = r.Target
		}
	}
	return sample
}

func setOrNull(s *timeseries.Sample, key string, v *float64) {
	if v == nil {
		s.SetNull(key)
		return
	}
	s.Set(key, *v)
}
