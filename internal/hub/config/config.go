// Package config provides functions for syncing systems with the config.yml file
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"gopkg.in/yaml.v3"
)

const fileName = "config.yml"

type config struct {
	Systems []systemConfig `yaml:"systems"`
}

type systemConfig struct {
	Name  string   `yaml:"name"`
	Host  string   `yaml:"host"`
	Users []string `yaml:"users,omitempty"`
}

// SyncSystems makes the systems collection match config.yml in the data dir.
// Systems are matched by name and host. Systems missing from the file are
// deleted along with their stats. A missing file leaves systems untouched.
func SyncSystems(app core.App) error {
	configData, err := os.ReadFile(filepath.Join(app.DataDir(), fileName))
	if err != nil {
		return nil
	}

	var config config
	if err := yaml.Unmarshal(configData, &config); err != nil {
		return fmt.Errorf("failed to parse %s: %w", fileName, err)
	}
	if len(config.Systems) == 0 {
		app.Logger().Warn("No systems defined in " + fileName)
		return nil
	}

	users, err := app.FindAllRecords("users", dbx.NewExp("id != ''"))
	if err != nil {
		return err
	}
	userEmailToID := make(map[string]string, len(users))
	for _, user := range users {
		userEmailToID[user.GetString("email")] = user.Id
	}

	for i := range config.Systems {
		sys := &config.Systems[i]
		userIDs := make([]string, 0, len(sys.Users))
		for _, email := range sys.Users {
			if id, ok := userEmailToID[email]; ok {
				userIDs = append(userIDs, id)
			} else {
				app.Logger().Warn("User not found", "email", email, "system", sys.Name)
			}
		}
		// default to first user if none are defined or none were found
		if len(userIDs) == 0 {
			if len(users) > 0 {
				userIDs = append(userIDs, users[0].Id)
			} else {
				app.Logger().Warn("System has no users", "system", sys.Name)
			}
		}
		sys.Users = userIDs
	}

	return app.RunInTransaction(func(txApp core.App) error {
		existing, err := txApp.FindAllRecords("systems", dbx.NewExp("id != ''"))
		if err != nil {
			return err
		}
		existingByKey := make(map[string]*core.Record, len(existing))
		for _, record := range existing {
			existingByKey[systemKey(record.GetString("name"), record.GetString("host"))] = record
		}

		collection, err := txApp.FindCachedCollectionByNameOrId("systems")
		if err != nil {
			return err
		}
		for _, sys := range config.Systems {
			key := systemKey(sys.Name, sys.Host)
			record, ok := existingByKey[key]
			if ok {
				delete(existingByKey, key)
			} else {
				record = core.NewRecord(collection)
				record.Set("name", sys.Name)
				record.Set("host", sys.Host)
				record.Set("status", "pending")
			}
			record.Set("users", sys.Users)
			if err := txApp.Save(record); err != nil {
				return fmt.Errorf("failed to save system %s: %w", sys.Name, err)
			}
		}

		for _, record := range existingByKey {
			if err := txApp.Delete(record); err != nil {
				return err
			}
		}
		app.Logger().Info("Systems synced with "+fileName, "systems", len(config.Systems))
		return nil
	})
}

func systemKey(name, host string) string {
	return name + "\x00" + host
}

// generateYAML renders the current systems in config.yml format
func generateYAML(app core.App) (string, error) {
	systems, err := app.FindRecordsByFilter("systems", "id != ''", "name", -1, 0)
	if err != nil {
		return "", err
	}

	var userIDs []string
	for _, sys := range systems {
		for _, id := range sys.GetStringSlice("users") {
			if !slices.Contains(userIDs, id) {
				userIDs = append(userIDs, id)
			}
		}
	}
	users, err := app.FindRecordsByIds("users", userIDs)
	if err != nil {
		return "", err
	}
	emails := make(map[string]string, len(users))
	for _, user := range users {
		emails[user.Id] = user.GetString("email")
	}

	config := config{Systems: make([]systemConfig, 0, len(systems))}
	for _, sys := range systems {
		sysConfig := systemConfig{
			Name: sys.GetString("name"),
			Host: sys.GetString("host"),
		}
		for _, id := range sys.GetStringSlice("users") {
			if email, ok := emails[id]; ok {
				sysConfig.Users = append(sysConfig.Users, email)
			}
		}
		config.Systems = append(config.Systems, sysConfig)
	}

	yamlData, err := yaml.Marshal(&config)
	if err != nil {
		return "", err
	}
	yamlData = append([]byte("# users is optional and defaults to the first created user.\n\n"), yamlData...)
	return string(yamlData), nil
}

// GetYamlConfig returns the current systems as config.yml content
func GetYamlConfig(e *core.RequestEvent) error {
	configContent, err := generateYAML(e.App)
	if err != nil {
		return err
	}
	return e.JSON(200, map[string]string{"config": configContent})
}
