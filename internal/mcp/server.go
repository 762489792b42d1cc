package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/config"
	"github.com/Requip-Digital/Inspection-Tool/internal/descriptions"
	"github.com/Requip-Digital/Inspection-Tool/internal/inspection"
	"github.com/Requip-Digital/Inspection-Tool/internal/report"
)

// Server exposes the record and report services as MCP tools
type Server struct {
	config    *config.Config
	records   *inspection.Service
	reports   *report.Service
	mcpServer *server.MCPServer
	tools     []string
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, records *inspection.Service, reports *report.Service) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if records == nil {
		return nil, fmt.Errorf("record service cannot be nil")
	}
	if reports == nil {
		return nil, fmt.Errorf("report service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		records:   records,
		reports:   reports,
		mcpServer: mcpServer,
	}
	s.registerTools()

	return s, nil
}

// Tools lists the registered tool names in registration order
func (s *Server) Tools() []string {
	return append([]string(nil), s.tools...)
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.tools = append(s.tools, tool.Name)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool(
		"inspection_templates",
		mcp.WithDescription(descriptions.GetToolDescription("inspection_templates")),
		mcp.WithString("family",
			mcp.Description("Only show the templates of this family"),
		),
	), s.handleTemplates)

	s.addTool(mcp.NewTool(
		"project_create",
		mcp.WithDescription(descriptions.GetToolDescription("project_create")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Project name")),
		mcp.WithString("family", mcp.Required(), mcp.Description("Equipment family, e.g. Toyota")),
		mcp.WithObject("details", mcp.Description("Project detail values keyed by field name")),
	), s.handleProjectCreate)

	s.addTool(mcp.NewTool(
		"project_update",
		mcp.WithDescription(descriptions.GetToolDescription("project_update")),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("name", mcp.Description("New project name")),
		mcp.WithObject("details", mcp.Description("Detail values keyed by field name")),
	), s.handleProjectUpdate)

	s.addTool(mcp.NewTool(
		"project_get",
		mcp.WithDescription(descriptions.GetToolDescription("project_get")),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.handleProjectGet)

	s.addTool(mcp.NewTool(
		"project_list",
		mcp.WithDescription(descriptions.GetToolDescription("project_list")),
	), s.handleProjectList)

	s.addTool(mcp.NewTool(
		"project_delete",
		mcp.WithDescription(descriptions.GetToolDescription("project_delete")),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
	), s.handleProjectDelete)

	s.addTool(mcp.NewTool(
		"machine_create",
		mcp.WithDescription(descriptions.GetToolDescription("machine_create")),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Machine name")),
		mcp.WithNumber("sheet_number", mcp.Description("Inspection sheet number")),
		mcp.WithObject("values", mcp.Description("Field values keyed by field name")),
	), s.handleMachineCreate)

	s.addTool(mcp.NewTool(
		"machine_get",
		mcp.WithDescription(descriptions.GetToolDescription("machine_get")),
		mcp.WithString("machine_id", mcp.Required(), mcp.Description("Machine id")),
	), s.handleMachineGet)

	s.addTool(mcp.NewTool(
		"machine_update",
		mcp.WithDescription(descriptions.GetToolDescription("machine_update")),
		mcp.WithString("machine_id", mcp.Required(), mcp.Description("Machine id")),
		mcp.WithString("name", mcp.Description("New machine name")),
		mcp.WithNumber("sheet_number", mcp.Description("New sheet number")),
		mcp.WithObject("values", mcp.Description("Field values keyed by field name")),
	), s.handleMachineUpdate)

	s.addTool(mcp.NewTool(
		"machine_delete",
		mcp.WithDescription(descriptions.GetToolDescription("machine_delete")),
		mcp.WithString("machine_id", mcp.Required(), mcp.Description("Machine id")),
	), s.handleMachineDelete)

	s.addTool(mcp.NewTool(
		"machine_reapply_template",
		mcp.WithDescription(descriptions.GetToolDescription("machine_reapply_template")),
		mcp.WithString("machine_id", mcp.Required(), mcp.Description("Machine id")),
	), s.handleMachineReapply)

	s.addTool(mcp.NewTool(
		"report_export",
		mcp.WithDescription(descriptions.GetToolDescription("report_export")),
		mcp.WithString("project_id", mcp.Required(), mcp.Description("Project id")),
		mcp.WithString("directory",
			mcp.Description("Directory receiving the report (uses the output directory if empty)"),
		),
	), s.handleReportExport)

	s.addTool(mcp.NewTool(
		"report_inspect",
		mcp.WithDescription(descriptions.GetToolDescription("report_inspect")),
		mcp.WithString("path", mcp.Required(), mcp.Description("Full path to the report PDF")),
		mcp.WithBoolean("include_text", mcp.Description("Include the extracted text of every page")),
	), s.handleReportInspect)

	s.addTool(mcp.NewTool(
		"report_list",
		mcp.WithDescription(descriptions.GetToolDescription("report_list")),
		mcp.WithString("query", mcp.Description("Only list reports whose project name matches")),
	), s.handleReportList)
}

// Handler functions

func (s *Server) handleTemplates(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	registry := s.records.Registry()
	family := optionalString(request, "family")

	var b strings.Builder
	fmt.Fprintf(&b, "Template set version: %s\n", registry.Version())
	for _, tmpl := range registry.All() {
		if family != "" && tmpl.Name != family {
			continue
		}
		fmt.Fprintf(&b, "\n%s (%s, id %s)\n", tmpl.Name, tmpl.Role, tmpl.ID)
		for _, sec := range tmpl.Sections {
			fmt.Fprintf(&b, "  %s\n", sec.Name)
			for _, f := range sec.Fields {
				line := fmt.Sprintf("    • %s [%s]", f.Name, f.Type)
				if f.Required {
					line += " required"
				}
				if len(f.Options) > 0 {
					line += " options: " + strings.Join(f.Options, ", ")
				}
				b.WriteString(line + "\n")
			}
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleProjectCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	family, err := request.RequireString("family")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	p, err := s.records.CreateProject(ctx, inspection.CreateProjectRequest{
		Owner:   s.config.Owner,
		Name:    name,
		Family:  family,
		Details: optionalObject(request, "details"),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created project %s (%s)\nID: %s\n", p.Name, p.Family, p.ID)), nil
}

func (s *Server) handleProjectUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := inspection.UpdateProjectRequest{
		ID:      id,
		Owner:   s.config.Owner,
		Details: optionalObject(request, "details"),
	}
	if name, ok := request.GetArguments()["name"].(string); ok {
		req.Name = &name
	}
	p, err := s.records.UpdateProject(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fmt.Sprintf("Updated project %s", p.ID), p)
}

func (s *Server) handleProjectGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	p, err := s.records.GetProject(ctx, id, s.config.Owner)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fmt.Sprintf("Project %s", p.Name), p)
}

func (s *Server) handleProjectList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.records.ListProjects(ctx, s.config.Owner)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(projects) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No projects found for owner %s", s.config.Owner)), nil
	}

	text := fmt.Sprintf("Found %d project(s):\n\n", len(projects))
	for i, p := range projects {
		text += fmt.Sprintf("%d. %s\n", i+1, p.Name)
		text += fmt.Sprintf("   ID: %s\n", p.ID)
		text += fmt.Sprintf("   Family: %s\n", p.Family)
		text += fmt.Sprintf("   Machines: %d\n", len(p.Machines))
		text += fmt.Sprintf("   Updated: %s\n\n", p.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleProjectDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.records.DeleteProject(ctx, id, s.config.Owner)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted project %s and %d machine(s)", res.ProjectID, res.MachinesRemoved)), nil
}

func (s *Server) handleMachineCreate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := request.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := inspection.CreateMachineRequest{
		Owner:     s.config.Owner,
		ProjectID: projectID,
		Name:      name,
		Values:    optionalObject(request, "values"),
	}
	if n, ok := optionalInt(request, "sheet_number"); ok {
		req.SheetNumber = n
	}
	m, err := s.records.CreateMachine(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created machine %s in project %s\nID: %s\n", m.Name, m.ProjectID, m.ID)), nil
}

func (s *Server) handleMachineGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("machine_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.records.GetMachine(ctx, id, s.config.Owner)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fmt.Sprintf("Machine %s", m.Name), m)
}

func (s *Server) handleMachineUpdate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("machine_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := inspection.UpdateMachineRequest{
		ID:     id,
		Owner:  s.config.Owner,
		Values: optionalObject(request, "values"),
	}
	if name, ok := request.GetArguments()["name"].(string); ok {
		req.Name = &name
	}
	if n, ok := optionalInt(request, "sheet_number"); ok {
		req.SheetNumber = &n
	}
	m, err := s.records.UpdateMachine(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fmt.Sprintf("Updated machine %s", m.ID), m)
}

func (s *Server) handleMachineDelete(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("machine_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.records.DeleteMachine(ctx, id, s.config.Owner); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted machine %s", id)), nil
}

func (s *Server) handleMachineReapply(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("machine_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	m, err := s.records.ReapplyTemplate(ctx, id, s.config.Owner)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(fmt.Sprintf("Reapplied the current template to machine %s", m.ID), m)
}

func (s *Server) handleReportExport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	directory := s.config.OutputDir
	if dir := optionalString(request, "directory"); dir != "" {
		directory = dir
	}

	res, err := s.reports.ExportToDir(ctx, id, s.config.Owner, directory)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatExportResult(res)), nil
}

func (s *Server) handleReportInspect(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	withText, _ := request.GetArguments()["include_text"].(bool)

	res, err := report.Inspect(path, s.config.MaxFileSize, withText)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatInspection(res)), nil
}

func (s *Server) handleReportList(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := optionalString(request, "query")
	files, err := report.ListReports(s.config.OutputDir, query)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(files) == 0 {
		text := fmt.Sprintf("No reports found in %s", s.config.OutputDir)
		if query != "" {
			text += fmt.Sprintf(" (searched for: %s)", query)
		}
		return mcp.NewToolResultText(text), nil
	}

	text := fmt.Sprintf("Found %d report(s) in %s:\n\n", len(files), s.config.OutputDir)
	for i, f := range files {
		text += fmt.Sprintf("%d. %s\n", i+1, f.Name)
		text += fmt.Sprintf("   Path: %s\n", f.Path)
		text += fmt.Sprintf("   Size: %d bytes\n", f.Size)
		text += fmt.Sprintf("   Modified: %s\n\n", f.Modified.Format("2006-01-02 15:04"))
	}
	return mcp.NewToolResultText(text), nil
}

// Formatting methods

func formatExportResult(res *report.ExportResult) string {
	text := fmt.Sprintf("Report written: %s\n", res.Path)
	text += fmt.Sprintf("Pages: %d\n", res.Pages)
	text += fmt.Sprintf("Size: %d bytes\n", res.Bytes)
	text += fmt.Sprintf("Watermarked: %t\n", res.Watermarked)
	if len(res.Warnings) > 0 {
		text += fmt.Sprintf("\n⚠️  %d warning(s):\n", len(res.Warnings))
		for _, w := range res.Warnings {
			text += fmt.Sprintf("  • %s\n", w)
		}
	}
	return text
}

func formatInspection(res *report.Inspection) string {
	text := fmt.Sprintf("Report: %s\n", res.Path)
	text += fmt.Sprintf("Size: %d bytes\n", res.Size)
	text += fmt.Sprintf("Pages: %d\n", res.Pages)
	if res.Valid {
		text += "Valid: true\n"
	} else {
		text += fmt.Sprintf("Valid: false (%s)\n", res.ValidationError)
	}
	text += fmt.Sprintf("Header on every page: %t\n", res.HeaderOnEvery)
	text += fmt.Sprintf("Machine sections: %d\n", res.MachineBanners)
	for i, page := range res.Text {
		text += fmt.Sprintf("\n--- Page %d ---\n%s\n", i+1, page)
	}
	return text
}

func jsonResult(title string, v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(title + "\n\n" + string(data)), nil
}

func optionalString(request mcp.CallToolRequest, key string) string {
	v, _ := request.GetArguments()[key].(string)
	return strings.TrimSpace(v)
}

func optionalObject(request mcp.CallToolRequest, key string) map[string]any {
	v, _ := request.GetArguments()[key].(map[string]any)
	return v
}

// optionalInt reads a JSON number argument
func optionalInt(request mcp.CallToolRequest, key string) (int, bool) {
	switch v := request.GetArguments()[key].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

// Run serves the tools over standard I/O until stdin closes or ctx ends
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve serves the tools over the given streams
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	klog.V(1).Infof("Starting inspection MCP server %s %s on stdio", s.config.ServerName, s.config.Version)

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, in, out); err != nil && ctx.Err() == nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
