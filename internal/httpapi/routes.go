// Package httpapi exposes the record and report services over HTTP.
package httpapi

import (
	"github.com/gin-gonic/gin"

	"github.com/Requip-Digital/Inspection-Tool/internal/inspection"
	"github.com/Requip-Digital/Inspection-Tool/internal/metrics"
	"github.com/Requip-Digital/Inspection-Tool/internal/report"
)

// Dependencies are the services the router serves
type Dependencies struct {
	Records *inspection.Service
	Reports *report.Service
	// Store is health-checked when it implements Pinger
	Store   interface{}
	Version string
}

// SetupRoutes configures the router
func SetupRoutes(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())

	health := NewHealthController(deps.Store, deps.Version)
	router.GET("/health", health.Check)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	templates := NewTemplateController(deps.Records.Registry())
	records := NewRecordController(deps.Records)
	reports := NewReportController(deps.Records, deps.Reports)

	api := router.Group("/api")
	{
		api.GET("/templates", templates.List)
		api.GET("/templates/:family/:role", templates.Get)
		api.GET("/templates/:family/:role/schema", templates.Schema)

		owned := api.Group("", OwnerMiddleware())

		projects := owned.Group("/projects")
		{
			projects.POST("", records.CreateProject)
			projects.GET("", records.ListProjects)
			projects.GET("/:id", records.GetProject)
			projects.PUT("/:id", records.UpdateProject)
			projects.DELETE("/:id", records.DeleteProject)
			projects.POST("/:id/machines", records.CreateMachine)
			projects.GET("/:id/machines", records.ListMachines)
			projects.GET("/:id/report", reports.Export)
		}

		machines := owned.Group("/machines")
		{
			machines.GET("/:id", records.GetMachine)
			machines.GET("/:id/form", records.MachineForm)
			machines.PUT("/:id", records.UpdateMachine)
			machines.DELETE("/:id", records.DeleteMachine)
			machines.POST("/:id/reapply", records.ReapplyTemplate)
		}
	}

	return router
}
