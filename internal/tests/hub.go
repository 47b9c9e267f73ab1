// Package tests provides helpers for testing the application.
package tests

import (
	"github.com/henrygd/beszel/internal/hub"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tests"

	_ "github.com/henrygd/beszel/internal/migrations"
)

// TestHub is a wrapper hub instance used for testing.
type TestHub struct {
	core.App
	*tests.TestApp
	*hub.Hub
}

// ApiScenario re-exports the PocketBase request scenario runner.
type ApiScenario = tests.ApiScenario

// NewTestHub creates and initializes a test application instance.
//
// It is the caller's responsibility to call app.Cleanup() when the app is no longer needed.
func NewTestHub(optTestDataDir ...string) (*TestHub, error) {
	var testDataDir string
	if len(optTestDataDir) > 0 {
		testDataDir = optTestDataDir[0]
	}

	return NewTestHubWithConfig(core.BaseAppConfig{
		DataDir:       testDataDir,
		EncryptionEnv: "pb_test_env",
	})
}

// NewTestHubWithConfig creates and initializes a test application instance
// from the provided config.
//
// It is the caller's responsibility to call app.Cleanup() when the app is no longer needed.
func NewTestHubWithConfig(config core.BaseAppConfig) (*TestHub, error) {
	testApp, err := tests.NewTestAppWithConfig(config)
	if err != nil {
		return nil, err
	}

	return &TestHub{
		App:     testApp,
		TestApp: testApp,
		Hub:     hub.NewHub(testApp),
	}, nil
}

// CreateUser creates a user record with the given credentials.
func CreateUser(app core.App, email string, password string) (*core.Record, error) {
	return CreateRecord(app, "users", map[string]any{
		"email":    email,
		"password": password,
	})
}

// CreateRecord creates and saves a record in the named collection.
func CreateRecord(app core.App, collectionName string, fields map[string]any) (*core.Record, error) {
	collection, err := app.FindCachedCollectionByNameOrId(collectionName)
	if err != nil {
		return nil, err
	}
	record := core.NewRecord(collection)
	record.Load(fields)
	return record, app.Save(record)
}
