package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Requip-Digital/Inspection-Tool/internal/inspection"
	"github.com/Requip-Digital/Inspection-Tool/internal/record"
)

// RecordController serves projects and machines of the requesting owner
type RecordController struct {
	records *inspection.Service
}

// NewRecordController creates a record controller
func NewRecordController(records *inspection.Service) *RecordController {
	return &RecordController{records: records}
}

type projectBody struct {
	Name    string         `json:"name"`
	Family  string         `json:"family"`
	Details map[string]any `json:"details"`
}

type projectPatch struct {
	Name    *string        `json:"name"`
	Details map[string]any `json:"details"`
}

type machineBody struct {
	Name        string         `json:"name"`
	SheetNumber int            `json:"sheetNumber"`
	Values      map[string]any `json:"values"`
}

type machinePatch struct {
	Name        *string        `json:"name"`
	SheetNumber *int           `json:"sheetNumber"`
	Values      map[string]any `json:"values"`
}

// CreateProject creates an empty project
func (c *RecordController) CreateProject(ctx *gin.Context) {
	var body projectBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	p, err := c.records.CreateProject(ctx.Request.Context(), inspection.CreateProjectRequest{
		Owner:   ownerOf(ctx),
		Name:    body.Name,
		Family:  body.Family,
		Details: body.Details,
	})
	if err != nil {
		Fail(ctx, "failed to create project", err)
		return
	}
	Created(ctx, p)
}

// ListProjects lists the owner's projects
func (c *RecordController) ListProjects(ctx *gin.Context) {
	projects, err := c.records.ListProjects(ctx.Request.Context(), ownerOf(ctx))
	if err != nil {
		Fail(ctx, "failed to list projects", err)
		return
	}
	if projects == nil {
		projects = []*record.Project{}
	}
	Success(ctx, projects)
}

// GetProject returns one project
func (c *RecordController) GetProject(ctx *gin.Context) {
	p, err := c.records.GetProject(ctx.Request.Context(), ctx.Param("id"), ownerOf(ctx))
	if err != nil {
		Fail(ctx, "project not found", err)
		return
	}
	Success(ctx, p)
}

// UpdateProject changes the name or details of a project
func (c *RecordController) UpdateProject(ctx *gin.Context) {
	var body projectPatch
	if err := ctx.ShouldBindJSON(&body); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	p, err := c.records.UpdateProject(ctx.Request.Context(), inspection.UpdateProjectRequest{
		ID:      ctx.Param("id"),
		Owner:   ownerOf(ctx),
		Name:    body.Name,
		Details: body.Details,
	})
	if err != nil {
		Fail(ctx, "failed to update project", err)
		return
	}
	Success(ctx, p)
}

// DeleteProject removes a project and its machines
func (c *RecordController) DeleteProject(ctx *gin.Context) {
	res, err := c.records.DeleteProject(ctx.Request.Context(), ctx.Param("id"), ownerOf(ctx))
	if err != nil {
		Fail(ctx, "failed to delete project", err)
		return
	}
	Success(ctx, res)
}

// CreateMachine adds a machine to the project in the path
func (c *RecordController) CreateMachine(ctx *gin.Context) {
	var body machineBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	m, err := c.records.CreateMachine(ctx.Request.Context(), inspection.CreateMachineRequest{
		Owner:       ownerOf(ctx),
		ProjectID:   ctx.Param("id"),
		Name:        body.Name,
		SheetNumber: body.SheetNumber,
		Values:      body.Values,
	})
	if err != nil {
		Fail(ctx, "failed to create machine", err)
		return
	}
	Created(ctx, m)
}

// ListMachines lists the machines of the project in the path
func (c *RecordController) ListMachines(ctx *gin.Context) {
	machines, err := c.records.ListMachines(ctx.Request.Context(), ctx.Param("id"), ownerOf(ctx))
	if err != nil {
		Fail(ctx, "failed to list machines", err)
		return
	}
	if machines == nil {
		machines = []*record.Machine{}
	}
	Success(ctx, machines)
}

// GetMachine returns one machine with its template snapshot
func (c *RecordController) GetMachine(ctx *gin.Context) {
	m, err := c.records.GetMachine(ctx.Request.Context(), ctx.Param("id"), ownerOf(ctx))
	if err != nil {
		Fail(ctx, "machine not found", err)
		return
	}
	Success(ctx, m)
}

// MachineForm returns the edit-form values of a machine
func (c *RecordController) MachineForm(ctx *gin.Context) {
	m, err := c.records.GetMachine(ctx.Request.Context(), ctx.Param("id"), ownerOf(ctx))
	if err != nil {
		Fail(ctx, "machine not found", err)
		return
	}
	Success(ctx, gin.H{
		"id":          m.ID,
		"name":        m.Name,
		"sheetNumber": m.SheetNumber,
		"values":      record.FormValues(m),
	})
}

// UpdateMachine changes machine attributes and values
func (c *RecordController) UpdateMachine(ctx *gin.Context) {
	var body machinePatch
	if err := ctx.ShouldBindJSON(&body); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	m, err := c.records.UpdateMachine(ctx.Request.Context(), inspection.UpdateMachineRequest{
		ID:          ctx.Param("id"),
		Owner:       ownerOf(ctx),
		Name:        body.Name,
		SheetNumber: body.SheetNumber,
		Values:      body.Values,
	})
	if err != nil {
		Fail(ctx, "failed to update machine", err)
		return
	}
	Success(ctx, m)
}

// DeleteMachine removes a machine
func (c *RecordController) DeleteMachine(ctx *gin.Context) {
	id := ctx.Param("id")
	if err := c.records.DeleteMachine(ctx.Request.Context(), id, ownerOf(ctx)); err != nil {
		Fail(ctx, "failed to delete machine", err)
		return
	}
	Success(ctx, gin.H{"id": id})
}

// ReapplyTemplate refreshes a machine's snapshot from the current template
func (c *RecordController) ReapplyTemplate(ctx *gin.Context) {
	m, err := c.records.ReapplyTemplate(ctx.Request.Context(), ctx.Param("id"), ownerOf(ctx))
	if err != nil {
		Fail(ctx, "failed to reapply template", err)
		return
	}
	Success(ctx, m)
}
