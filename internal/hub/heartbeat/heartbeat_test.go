//go:build testing
// +build testing

package heartbeat_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/henrygd/beszel/internal/hub/heartbeat"
	beszeltests "github.com/henrygd/beszel/internal/tests"

	"github.com/goccy/go-json"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("returns nil when app is missing", func(t *testing.T) {
		hb := heartbeat.New(nil, envGetter(map[string]string{
			"HEARTBEAT_URL": "https://heartbeat.example.com/ping",
		}))
		assert.Nil(t, hb)
	})

	t.Run("returns nil when URL is missing", func(t *testing.T) {
		app := newTestHub(t)
		hb := heartbeat.New(app.App, func(string) (string, bool) {
			return "", false
		})
		assert.Nil(t, hb)
	})

	t.Run("parses and normalizes config values", func(t *testing.T) {
		app := newTestHub(t)
		hb := heartbeat.New(app.App, envGetter(map[string]string{
			"HEARTBEAT_URL":         "  https://heartbeat.example.com/ping  ",
			"HEARTBEAT_INTERVAL":    "90",
			"HEARTBEAT_METHOD":      "head",
			"HEARTBEAT_STALE_AFTER": "300",
		}))
		require.NotNil(t, hb)
		cfg := hb.GetConfig()
		assert.Equal(t, "https://heartbeat.example.com/ping", cfg.URL)
		assert.Equal(t, 90, cfg.Interval)
		assert.Equal(t, http.MethodHead, cfg.Method)
		assert.Equal(t, 5*time.Minute, cfg.StaleAfter)
	})

	t.Run("ignores invalid values", func(t *testing.T) {
		app := newTestHub(t)
		hb := heartbeat.New(app.App, envGetter(map[string]string{
			"HEARTBEAT_URL":         "https://heartbeat.example.com/ping",
			"HEARTBEAT_INTERVAL":    "soon",
			"HEARTBEAT_METHOD":      "DELETE",
			"HEARTBEAT_STALE_AFTER": "-1",
		}))
		require.NotNil(t, hb)
		cfg := hb.GetConfig()
		assert.Equal(t, 60, cfg.Interval)
		assert.Equal(t, http.MethodPost, cfg.Method)
		assert.Equal(t, 3*time.Minute, cfg.StaleAfter)
	})
}

func TestSendGET(t *testing.T) {
	app := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "Beszel-Heartbeat", r.Header.Get("User-Agent"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	hb := heartbeat.New(app.App, envGetter(map[string]string{
		"HEARTBEAT_URL":    server.URL,
		"HEARTBEAT_METHOD": "GET",
	}))
	require.NotNil(t, hb)

	require.NoError(t, hb.Send())
}

func TestSendReturnsErrorOnHTTPFailureStatus(t *testing.T) {
	app := newTestHub(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	hb := heartbeat.New(app.App, envGetter(map[string]string{
		"HEARTBEAT_URL":    server.URL,
		"HEARTBEAT_METHOD": "GET",
	}))
	require.NotNil(t, hb)

	err := hb.Send()
	require.Error(t, err)
	assert.ErrorContains(t, err, "heartbeat endpoint returned status 500")
}

func TestSendPOST(t *testing.T) {
	app := newTestHub(t)
	user := createTestUser(t, app)
	createTestSystem(t, app, user.Id, "web-1", "10.0.0.1", "up")

	captured := make(chan heartbeat.Payload, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload heartbeat.Payload
		require.NoError(t, json.Unmarshal(body, &payload))
		captured <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	hb := heartbeat.New(app.App, envGetter(map[string]string{"HEARTBEAT_URL": server.URL}))
	require.NotNil(t, hb)
	require.NoError(t, hb.Send())

	payload := <-captured
	assert.Equal(t, "warn", payload.Status, "system without stats is stale")
	assert.Equal(t, 1, payload.Systems.Up)
	require.Len(t, payload.Stale, 1)
	assert.Equal(t, "web-1", payload.Stale[0].Name)
	assert.Empty(t, payload.Stale[0].LastStats)
}

func TestBuildPayload(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name          string
		setup         func(t *testing.T, app *beszeltests.TestHub, user *core.Record)
		expectStatus  string
		expectMsgPart string
		expectDown    int
		expectStale   []string
		expectSummary heartbeat.SystemsSummary
	}{
		{
			name: "error when at least one system is down",
			setup: func(t *testing.T, app *beszeltests.TestHub, user *core.Record) {
				createTestSystem(t, app, user.Id, "db-1", "10.0.0.1", "down")
				web := createTestSystem(t, app, user.Id, "web-1", "10.0.0.2", "up")
				createStats(t, app, web.Id, now.Add(-time.Minute))
			},
			expectStatus:  "error",
			expectMsgPart: "1 system(s) down: db-1",
			expectDown:    1,
			expectSummary: heartbeat.SystemsSummary{Total: 2, Up: 1, Down: 1},
		},
		{
			name: "warn when up systems have no recent stats",
			setup: func(t *testing.T, app *beszeltests.TestHub, user *core.Record) {
				fresh := createTestSystem(t, app, user.Id, "api-1", "10.1.0.1", "up")
				createStats(t, app, fresh.Id, now.Add(-time.Minute))
				old := createTestSystem(t, app, user.Id, "api-2", "10.1.0.2", "up")
				createStats(t, app, old.Id, now.Add(-10*time.Minute))
				createTestSystem(t, app, user.Id, "api-3", "10.1.0.3", "up")
			},
			expectStatus:  "warn",
			expectMsgPart: "2 system(s) without recent stats",
			expectStale:   []string{"api-2", "api-3"},
			expectSummary: heartbeat.SystemsSummary{Total: 3, Up: 3},
		},
		{
			name: "ok when up systems report and none are down",
			setup: func(t *testing.T, app *beszeltests.TestHub, user *core.Record) {
				node := createTestSystem(t, app, user.Id, "node-1", "10.2.0.1", "up")
				createStats(t, app, node.Id, now.Add(-30*time.Second))
				createTestSystem(t, app, user.Id, "node-2", "10.2.0.2", "paused")
				createTestSystem(t, app, user.Id, "node-3", "10.2.0.3", "pending")
			},
			expectStatus:  "ok",
			expectMsgPart: "All systems operational",
			expectSummary: heartbeat.SystemsSummary{Total: 3, Up: 1, Paused: 1, Pending: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestHub(t)
			user := createTestUser(t, app)
			tt.setup(t, app, user)

			hb := heartbeat.New(app.App, envGetter(map[string]string{"HEARTBEAT_URL": "http://127.0.0.1"}))
			require.NotNil(t, hb)

			payload, err := hb.BuildPayload(now)
			require.NoError(t, err)

			assert.Equal(t, tt.expectStatus, payload.Status)
			assert.Contains(t, payload.Msg, tt.expectMsgPart)
			assert.Len(t, payload.Down, tt.expectDown)
			assert.Equal(t, tt.expectSummary, payload.Systems)

			var staleNames []string
			for _, s := range payload.Stale {
				staleNames = append(staleNames, s.Name)
			}
			assert.Equal(t, tt.expectStale, staleNames)
		})
	}
}

func newTestHub(t *testing.T) *beszeltests.TestHub {
	t.Helper()
	app, err := beszeltests.NewTestHub(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(app.Cleanup)
	return app
}

func createTestUser(t *testing.T, app *beszeltests.TestHub) *core.Record {
	t.Helper()
	user, err := beszeltests.CreateUser(app.App, "admin@example.com", "password123")
	require.NoError(t, err)
	return user
}

func createTestSystem(t *testing.T, app *beszeltests.TestHub, userID, name, host, status string) *core.Record {
	t.Helper()
	system, err := beszeltests.CreateRecord(app.App, "systems", map[string]any{
		"name":   name,
		"host":   host,
		"users":  []string{userID},
		"status": status,
	})
	require.NoError(t, err)
	return system
}

func createStats(t *testing.T, app *beszeltests.TestHub, systemID string, created time.Time) {
	t.Helper()
	record, err := beszeltests.CreateRecord(app.App, "system_stats", map[string]any{
		"system": systemID,
		"type":   "1m",
		"stats":  map[string]any{"cpu": 1},
	})
	require.NoError(t, err)
	record.SetRaw("created", created.UTC().Format(types.DefaultDateLayout))
	require.NoError(t, app.SaveNoValidate(record))
}

func envGetter(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}
