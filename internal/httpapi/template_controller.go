package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

// TemplateController serves the read-only template registry
type TemplateController struct {
	registry *template.Registry
}

// NewTemplateController creates a template controller
func NewTemplateController(registry *template.Registry) *TemplateController {
	return &TemplateController{registry: registry}
}

// List returns every template with the registry version
func (c *TemplateController) List(ctx *gin.Context) {
	Success(ctx, gin.H{
		"version":         c.registry.Version(),
		"families":        c.registry.Families(),
		"templates":       c.registry.All(),
		"extendedDetails": c.registry.ExtendedDetails(),
	})
}

// Get returns one template by family and role
func (c *TemplateController) Get(ctx *gin.Context) {
	tmpl, ok := c.lookup(ctx)
	if !ok {
		return
	}
	Success(ctx, tmpl)
}

// Schema returns the JSON schema values of a template are validated against
func (c *TemplateController) Schema(ctx *gin.Context) {
	tmpl, ok := c.lookup(ctx)
	if !ok {
		return
	}
	Success(ctx, tmpl.Schema())
}

func (c *TemplateController) lookup(ctx *gin.Context) (*template.Template, bool) {
	family := ctx.Param("family")
	role := template.Role(ctx.Param("role"))
	tmpl, found := c.registry.Lookup(family, role)
	if !found {
		Error(ctx, http.StatusNotFound, "template not found", family+"/"+string(role))
		return nil, false
	}
	return tmpl, true
}
