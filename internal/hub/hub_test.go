//go:build testing
// +build testing

package hub_test

import (
	"net/http"
	"testing"

	"github.com/henrygd/beszel"
	"github.com/henrygd/beszel/internal/hub"
	"github.com/henrygd/beszel/internal/hub/charts"
	beszelTests "github.com/henrygd/beszel/internal/tests"

	"github.com/pocketbase/pocketbase/core"
	pbTests "github.com/pocketbase/pocketbase/tests"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("CHART_MAX_POINTS", "100")
	value, ok := hub.GetEnv("CHART_MAX_POINTS")
	assert.True(t, ok)
	assert.Equal(t, "100", value)

	// prefixed key wins
	t.Setenv("BESZEL_HUB_CHART_MAX_POINTS", "200")
	value, ok = hub.GetEnv("CHART_MAX_POINTS")
	assert.True(t, ok)
	assert.Equal(t, "200", value)

	_, ok = hub.GetEnv("NOT_SET_ANYWHERE")
	assert.False(t, ok)
}

func TestApiRoutesAuthentication(t *testing.T) {
	hub, _ := beszelTests.NewTestHub(t.TempDir())
	defer hub.Cleanup()

	hub.StartHub()

	user, err := beszelTests.CreateUser(hub, "testuser@example.com", "password123")
	require.NoError(t, err, "Failed to create test user")
	userToken, err := user.NewAuthToken()
	require.NoError(t, err, "Failed to create auth token")

	otherUser, err := beszelTests.CreateUser(hub, "other@example.com", "password123")
	require.NoError(t, err, "Failed to create other user")

	superUser, err := beszelTests.CreateRecord(hub, core.CollectionNameSuperusers, map[string]any{
		"email":    "superuser@example.com",
		"password": "password123",
	})
	require.NoError(t, err, "Failed to create superuser")
	superUserToken, err := superUser.NewAuthToken()
	require.NoError(t, err, "Failed to create superuser auth token")

	system, err := beszelTests.CreateRecord(hub, "systems", map[string]any{
		"name":   "test-system",
		"users":  []string{user.Id},
		"host":   "127.0.0.1",
		"status": "up",
	})
	require.NoError(t, err, "Failed to create test system")
	otherSystem, err := beszelTests.CreateRecord(hub, "systems", map[string]any{
		"name":  "other-system",
		"users": []string{otherUser.Id},
		"host":  "127.0.0.2",
	})
	require.NoError(t, err, "Failed to create other system")

	for _, cpu := range []float64{12.5, 14} {
		_, err = beszelTests.CreateRecord(hub, "system_stats", map[string]any{
			"system": system.Id,
			"type":   "1m",
			"stats":  map[string]any{"cpu": cpu, "mp": 40},
		})
		require.NoError(t, err, "Failed to create system stats")
	}

	testAppFactory := func(t testing.TB) *pbTests.TestApp {
		return hub.TestApp
	}

	scenarios := []beszelTests.ApiScenario{
		{
			Name:            "GET /chart-data - no auth should fail",
			Method:          http.MethodGet,
			URL:             "/api/beszel/chart-data?system=" + system.Id + "&chart=1h",
			ExpectedStatus:  401,
			ExpectedContent: []string{"requires valid"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /chart-data - invalid auth token should fail",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + system.Id + "&chart=1h",
			Headers: map[string]string{
				"Authorization": "invalid-token",
			},
			ExpectedStatus:  401,
			ExpectedContent: []string{"requires valid"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /chart-data - with auth should succeed",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + system.Id + "&chart=1h&keys=cpu",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:     200,
			ExpectedContent:    []string{"\"chart\":\"1h\"", "\"interval\":60", "\"cpu\":", "\"coverage\":"},
			NotExpectedContent: []string{"\"mp\":"},
			TestAppFactory:     testAppFactory,
		},
		{
			Name:   "GET /chart-data - cbor format should succeed",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + system.Id + "&chart=1h&format=cbor",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:  200,
			ExpectedContent: []string{"points", "coverage"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /chart-data - cbor accept header should succeed",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + system.Id + "&chart=1h&keys=cpu",
			Headers: map[string]string{
				"Authorization": userToken,
				"Accept":        "application/cbor",
			},
			ExpectedStatus:     200,
			ExpectedContent:    []string{"points", "coverage"},
			NotExpectedContent: []string{"\"points\":"},
			TestAppFactory:     testAppFactory,
			AfterTestFunc: func(t testing.TB, app *pbTests.TestApp, res *http.Response) {
				assert.Equal(t, "application/cbor", res.Header.Get("Content-Type"))
			},
		},
		{
			Name:   "GET /chart-data - format param overrides accept header",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + system.Id + "&chart=1h&format=json",
			Headers: map[string]string{
				"Authorization": userToken,
				"Accept":        "application/cbor",
			},
			ExpectedStatus:  200,
			ExpectedContent: []string{"\"points\":"},
			TestAppFactory:  testAppFactory,
			AfterTestFunc: func(t testing.TB, app *pbTests.TestApp, res *http.Response) {
				assert.Contains(t, res.Header.Get("Content-Type"), "application/json")
			},
		},
		{
			Name:   "GET /chart-data - missing system should fail",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?chart=1h",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:  400,
			ExpectedContent: []string{"Missing system"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /chart-data - unknown system should fail",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=doesnotexist123&chart=1h",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:  404,
			ExpectedContent: []string{"System not found"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /chart-data - system of another user should fail",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + otherSystem.Id + "&chart=1h",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:  403,
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /chart-data - unknown chart should fail",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + system.Id + "&chart=2h",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:  400,
			ExpectedContent: []string{"unknown chart type"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /chart-data - unknown kind should fail",
			Method: http.MethodGet,
			URL:    "/api/beszel/chart-data?system=" + system.Id + "&chart=1h&kind=gpu",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:  400,
			ExpectedContent: []string{"unknown series kind"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /config-yaml - regular user should fail",
			Method: http.MethodGet,
			URL:    "/api/beszel/config-yaml",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus: 403,
			TestAppFactory: testAppFactory,
		},
		{
			Name:   "GET /config-yaml - superuser should succeed",
			Method: http.MethodGet,
			URL:    "/api/beszel/config-yaml",
			Headers: map[string]string{
				"Authorization": superUserToken,
			},
			ExpectedStatus:  200,
			ExpectedContent: []string{"test-system", "testuser@example.com"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:            "GET /version - no auth should fail",
			Method:          http.MethodGet,
			URL:             "/api/beszel/version",
			ExpectedStatus:  401,
			ExpectedContent: []string{"requires valid"},
			TestAppFactory:  testAppFactory,
		},
		{
			Name:   "GET /version - with auth should succeed",
			Method: http.MethodGet,
			URL:    "/api/beszel/version",
			Headers: map[string]string{
				"Authorization": userToken,
			},
			ExpectedStatus:  200,
			ExpectedContent: []string{"\"v\":\"" + beszel.Version + "\""},
			TestAppFactory:  testAppFactory,
		},
	}

	for _, scenario := range scenarios {
		scenario.Test(t)
	}
}

func TestNewStatsInvalidateChartCache(t *testing.T) {
	hub, err := beszelTests.NewTestHub(t.TempDir())
	require.NoError(t, err)
	defer hub.Cleanup()

	require.NoError(t, hub.StartHub())

	user, err := beszelTests.CreateUser(hub, "testuser@example.com", "password123")
	require.NoError(t, err)
	system, err := beszelTests.CreateRecord(hub, "systems", map[string]any{
		"name":  "test-system",
		"users": []string{user.Id},
		"host":  "127.0.0.1",
	})
	require.NoError(t, err)

	cm := hub.GetChartManager()
	req := charts.Request{System: system.Id, Chart: "1h", Keys: []string{"cpu"}}

	resp, err := cm.Series(req)
	require.NoError(t, err)
	assert.Empty(t, resp.Points)

	_, err = beszelTests.CreateRecord(hub, "system_stats", map[string]any{
		"system": system.Id,
		"type":   "1m",
		"stats":  map[string]any{"cpu": 5},
	})
	require.NoError(t, err)

	resp, err = cm.Series(req)
	require.NoError(t, err)
	require.Len(t, resp.Points, 60)
	cpu, ok := resp.Points[59].Value("cpu")
	assert.True(t, ok)
	assert.Equal(t, 5.0, cpu)
	assert.Equal(t, 1, resp.Coverage["cpu"].Present)
}
