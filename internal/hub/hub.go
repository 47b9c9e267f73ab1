// Package hub wires stored stats, retention jobs and the chart API into PocketBase.
package hub

import (
	"net/http"
	"os"

	"github.com/henrygd/beszel"
	"github.com/henrygd/beszel/internal/hub/charts"
	"github.com/henrygd/beszel/internal/hub/config"
	"github.com/henrygd/beszel/internal/hub/heartbeat"
	"github.com/henrygd/beszel/internal/records"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type Hub struct {
	core.App
	rm *records.RecordManager
	cm *charts.Manager
	hb *heartbeat.Heartbeat
	// closed on terminate to stop the heartbeat loop
	hbStop chan struct{}
}

// NewHub creates a new Hub instance with default configuration
func NewHub(app core.App) *Hub {
	hub := &Hub{}
	hub.App = app

	hub.rm = records.NewRecordManager(hub)
	hub.cm = charts.NewManager(hub, charts.NewDBSource(hub), GetEnv)
	hub.hb = heartbeat.New(hub, GetEnv)
	return hub
}

// GetEnv retrieves an environment variable with a "BESZEL_HUB_" prefix, or falls back to the unprefixed key.
func GetEnv(key string) (value string, exists bool) {
	if value, exists = os.LookupEnv("BESZEL_HUB_" + key); exists {
		return value, exists
	}
	return os.LookupEnv(key)
}

func (h *Hub) StartHub() error {
	h.App.OnServe().BindFunc(func(e *core.ServeEvent) error {
		if err := h.initialize(e); err != nil {
			return err
		}
		// sync systems with config
		if err := config.SyncSystems(e.App); err != nil {
			return err
		}
		if err := h.registerApiRoutes(e); err != nil {
			return err
		}
		if err := h.registerCronJobs(e); err != nil {
			return err
		}
		if h.hb != nil && h.hbStop == nil {
			h.hbStop = make(chan struct{})
			go h.hb.Start(h.hbStop)
		}
		return e.Next()
	})

	// new stats make cached series of the system stale
	h.App.OnRecordAfterCreateSuccess(records.SystemStatsCollection, records.PingStatsCollection).BindFunc(func(e *core.RecordEvent) error {
		h.cm.Invalidate(e.Record.GetString("system"))
		return e.Next()
	})

	h.App.OnTerminate().BindFunc(func(e *core.TerminateEvent) error {
		h.cm.Close()
		if h.hbStop != nil {
			close(h.hbStop)
			h.hbStop = nil
		}
		return e.Next()
	})

	if pb, ok := h.App.(*pocketbase.PocketBase); ok {
		if err := pb.Start(); err != nil {
			return err
		}
	}

	return nil
}

// initialize sets access rules that depend on the environment
func (h *Hub) initialize(e *core.ServeEvent) error {
	// allow all users to access systems if SHARE_ALL_SYSTEMS is set
	readRule := "@request.auth.id != \"\""
	statsReadRule := readRule
	if shareAllSystems, _ := GetEnv("SHARE_ALL_SYSTEMS"); shareAllSystems != "true" {
		// default is to only show systems that the user id is assigned to
		readRule += " && users.id ?= @request.auth.id"
		statsReadRule += " && system.users.id ?= @request.auth.id"
	}

	systemsCollection, err := e.App.FindCollectionByNameOrId("systems")
	if err != nil {
		return err
	}
	systemsCollection.ListRule = &readRule
	systemsCollection.ViewRule = &readRule
	if err := e.App.Save(systemsCollection); err != nil {
		return err
	}

	for _, name := range [2]string{records.SystemStatsCollection, records.PingStatsCollection} {
		collection, err := e.App.FindCollectionByNameOrId(name)
		if err != nil {
			return err
		}
		collection.ListRule = &statsReadRule
		collection.ViewRule = &statsReadRule
		if err := e.App.Save(collection); err != nil {
			return err
		}
	}
	return nil
}

// registerCronJobs sets up scheduled tasks
func (h *Hub) registerCronJobs(_ *core.ServeEvent) error {
	// delete old stats records once every hour
	h.Cron().MustAdd("delete old records", "8 * * * *", h.rm.DeleteOldRecords)
	// create longer records every 10 minutes
	h.Cron().MustAdd("create longer records", "*/10 * * * *", h.rm.CreateLongerRecords)
	return nil
}

// RollupRecords runs both retention jobs once
func (h *Hub) RollupRecords() {
	h.rm.CreateLongerRecords()
	h.rm.DeleteOldRecords()
}

// custom api routes
func (h *Hub) registerApiRoutes(se *core.ServeEvent) error {
	apiAuth := se.Router.Group("/api/beszel")
	apiAuth.Bind(apis.RequireAuth())

	// get chart series aligned to the chart grid
	apiAuth.GET("/chart-data", h.cm.HandleChartData)
	// get config.yml content
	apiAuth.GET("/config-yaml", config.GetYamlConfig).Bind(apis.RequireSuperuserAuth())
	// get hub version
	apiAuth.GET("/version", func(e *core.RequestEvent) error {
		return e.JSON(http.StatusOK, map[string]string{"v": beszel.Version})
	})
	return nil
}
