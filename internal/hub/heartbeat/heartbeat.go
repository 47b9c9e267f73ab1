// Package heartbeat sends periodic outbound pings to an external monitoring
// endpoint (e.g. Uptime Kuma, Healthchecks.io) with a summary of systems and
// how fresh their stats are.
package heartbeat

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/henrygd/beszel"
	"github.com/henrygd/beszel/internal/records"

	"github.com/goccy/go-json"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/spf13/cast"
)

// Default values for heartbeat configuration.
const (
	defaultInterval   = 60  // seconds
	defaultStaleAfter = 180 // seconds
	httpTimeout       = 10 * time.Second
)

// Payload is the JSON body sent with each heartbeat request.
type Payload struct {
	// Status is "error" when any system is down, "warn" when an up system
	// has no recent stats, and "ok" otherwise.
	Status    string         `json:"status"`
	Timestamp string         `json:"timestamp"`
	Msg       string         `json:"msg"`
	Systems   SystemsSummary `json:"systems"`
	Down      []SystemInfo   `json:"down_systems,omitempty"`
	Stale     []StaleSystem  `json:"stale_systems,omitempty"`
	Version   string         `json:"beszel_version"`
}

// SystemsSummary contains counts of systems by status.
type SystemsSummary struct {
	Total   int `json:"total"`
	Up      int `json:"up"`
	Down    int `json:"down"`
	Paused  int `json:"paused"`
	Pending int `json:"pending"`
}

// SystemInfo identifies a system that is currently down.
type SystemInfo struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
	Host string `json:"host" db:"host"`
}

// StaleSystem is an up system without a recent 1m stats record.
// LastStats is empty if the system never reported.
type StaleSystem struct {
	SystemInfo
	LastStats string `json:"last_stats,omitempty"`
}

// Config holds heartbeat settings read from environment variables.
type Config struct {
	URL        string        // endpoint to ping
	Interval   int           // seconds between pings
	Method     string        // HTTP method (GET, HEAD or POST, default POST)
	StaleAfter time.Duration // age of the newest stats record before a system is stale
}

// Heartbeat manages the periodic outbound health check.
type Heartbeat struct {
	app    core.App
	config Config
	client *http.Client
}

// New creates a Heartbeat if configuration is present.
// Returns nil if HEARTBEAT_URL is not set (feature disabled).
func New(app core.App, getEnv func(string) (string, bool)) *Heartbeat {
	if app == nil {
		return nil
	}
	url, _ := getEnv("HEARTBEAT_URL")
	url = strings.TrimSpace(url)
	if url == "" {
		return nil
	}

	config := Config{
		URL:        url,
		Interval:   defaultInterval,
		Method:     http.MethodPost,
		StaleAfter: defaultStaleAfter * time.Second,
	}
	if v, ok := getEnv("HEARTBEAT_INTERVAL"); ok {
		if parsed, err := cast.ToIntE(v); err == nil && parsed > 0 {
			config.Interval = parsed
		}
	}
	if v, ok := getEnv("HEARTBEAT_METHOD"); ok {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v == http.MethodGet || v == http.MethodHead {
			config.Method = v
		}
	}
	if v, ok := getEnv("HEARTBEAT_STALE_AFTER"); ok {
		if parsed, err := cast.ToIntE(v); err == nil && parsed > 0 {
			config.StaleAfter = time.Duration(parsed) * time.Second
		}
	}

	return &Heartbeat{
		app:    app,
		config: config,
		client: &http.Client{Timeout: httpTimeout},
	}
}

// Start begins the heartbeat loop. It blocks until stop is closed.
func (hb *Heartbeat) Start(stop <-chan struct{}) {
	hb.app.Logger().Info("Heartbeat enabled",
		"url", hb.config.URL,
		"interval", fmt.Sprintf("%ds", hb.config.Interval),
		"method", hb.config.Method,
	)

	hb.send()

	ticker := time.NewTicker(time.Duration(hb.config.Interval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			hb.send()
		}
	}
}

// Send performs a single heartbeat ping.
func (hb *Heartbeat) Send() error {
	return hb.send()
}

// GetConfig returns the current heartbeat configuration.
func (hb *Heartbeat) GetConfig() Config {
	return hb.config
}

func (hb *Heartbeat) send() error {
	var req *http.Request
	var err error

	if hb.config.Method == http.MethodPost {
		payload, buildErr := hb.BuildPayload(time.Now())
		if buildErr != nil {
			hb.app.Logger().Error("Heartbeat: failed to build payload", "err", buildErr)
			return buildErr
		}
		body, jsonErr := json.Marshal(payload)
		if jsonErr != nil {
			return jsonErr
		}
		req, err = http.NewRequest(http.MethodPost, hb.config.URL, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		req, err = http.NewRequest(hb.config.Method, hb.config.URL, nil)
	}
	if err != nil {
		hb.app.Logger().Error("Heartbeat: failed to create request", "err", err)
		return err
	}

	req.Header.Set("User-Agent", "Beszel-Heartbeat")

	resp, err := hb.client.Do(req)
	if err != nil {
		hb.app.Logger().Error("Heartbeat: request failed", "url", hb.config.URL, "err", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		hb.app.Logger().Warn("Heartbeat: non-success response", "url", hb.config.URL, "status", resp.StatusCode)
		return fmt.Errorf("heartbeat endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// BuildPayload summarizes systems as of now.
func (hb *Heartbeat) BuildPayload(now time.Time) (*Payload, error) {
	db := hb.app.DB()

	var systemCounts []struct {
		Status string `db:"status"`
		Count  int    `db:"cnt"`
	}
	err := db.NewQuery("SELECT status, COUNT(*) as cnt FROM systems GROUP BY status").All(&systemCounts)
	if err != nil {
		return nil, fmt.Errorf("query system counts: %w", err)
	}

	summary := SystemsSummary{}
	for _, sc := range systemCounts {
		switch sc.Status {
		case "up":
			summary.Up = sc.Count
		case "down":
			summary.Down = sc.Count
		case "paused":
			summary.Paused = sc.Count
		case "pending":
			summary.Pending = sc.Count
		}
		summary.Total += sc.Count
	}

	var downSystems []SystemInfo
	err = db.NewQuery("SELECT id, name, host FROM systems WHERE status = 'down' ORDER BY name").All(&downSystems)
	if err != nil {
		return nil, fmt.Errorf("query down systems: %w", err)
	}

	var staleRows []struct {
		SystemInfo
		Last types.DateTime `db:"last"`
	}
	err = db.NewQuery(fmt.Sprintf(`
		SELECT s.id, s.name, s.host, MAX(ss.created) AS last
		FROM systems s
		LEFT JOIN %s ss ON ss.system = s.id AND ss.type = {:type}
		WHERE s.status = 'up'
		GROUP BY s.id
		HAVING last IS NULL OR last < {:cutoff}
		ORDER BY s.name
	`, records.SystemStatsCollection)).
		Bind(dbx.Params{"type": records.Resolutions[0].RecordType, "cutoff": records.FormatDate(now.Add(-hb.config.StaleAfter))}).
		All(&staleRows)
	if err != nil {
		return nil, fmt.Errorf("query stale systems: %w", err)
	}
	stale := make([]StaleSystem, 0, len(staleRows))
	for _, row := range staleRows {
		s := StaleSystem{SystemInfo: row.SystemInfo}
		if !row.Last.IsZero() {
			s.LastStats = row.Last.Time().UTC().Format(time.RFC3339)
		}
		stale = append(stale, s)
	}

	status := "ok"
	msg := "All systems operational"
	switch {
	case summary.Down > 0:
		status = "error"
		names := make([]string, len(downSystems))
		for i, ds := range downSystems {
			names[i] = ds.Name
		}
		msg = fmt.Sprintf("%d system(s) down: %s", summary.Down, strings.Join(names, ", "))
	case len(stale) > 0:
		status = "warn"
		msg = fmt.Sprintf("%d system(s) without recent stats", len(stale))
	}

	return &Payload{
		Status:    status,
		Timestamp: now.UTC().Format(time.RFC3339),
		Msg:       msg,
		Systems:   summary,
		Down:      downSystems,
		Stale:     stale,
		Version:   beszel.Version,
	}, nil
}
