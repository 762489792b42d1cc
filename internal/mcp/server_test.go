package mcp

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Requip-Digital/Inspection-Tool/internal/config"
	"github.com/Requip-Digital/Inspection-Tool/internal/descriptions"
	"github.com/Requip-Digital/Inspection-Tool/internal/inspection"
	"github.com/Requip-Digital/Inspection-Tool/internal/record"
	"github.com/Requip-Digital/Inspection-Tool/internal/report"
	"github.com/Requip-Digital/Inspection-Tool/internal/template"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	reg, err := template.DefaultRegistry()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	store := record.NewMemoryStore()
	records := inspection.NewService(store, reg, 0)
	reports := report.NewService(report.Options{
		Projects:  records,
		Templates: reg,
		Machines:  store,
		TempDir:   t.TempDir(),
	})

	cfg := config.DefaultConfig()
	cfg.OutputDir = t.TempDir()
	cfg.Owner = "tester"
	cfg.ServerName = "test-server"

	server, err := NewServer(cfg, records, reports)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func toyotaDetails() map[string]interface{} {
	return map[string]interface{}{
		"inspectionDate":   "2024-11-12",
		"city":             "Pune",
		"originallyBought": "Used",
		"mfgOrigin":        float64(2012),
		"nearestAirport":   "PNQ",
		"condition":        "Good",
	}
}

func TestNewServer(t *testing.T) {
	reg, err := template.DefaultRegistry()
	if err != nil {
		t.Fatalf("failed to load templates: %v", err)
	}
	store := record.NewMemoryStore()
	records := inspection.NewService(store, reg, 0)
	reports := report.NewService(report.Options{Projects: records, Templates: reg, Machines: store})
	cfg := config.DefaultConfig()

	tests := []struct {
		name        string
		config      *config.Config
		records     *inspection.Service
		reports     *report.Service
		expectError bool
	}{
		{name: "valid dependencies", config: cfg, records: records, reports: reports},
		{name: "nil config", config: nil, records: records, reports: reports, expectError: true},
		{name: "nil record service", config: cfg, records: nil, reports: reports, expectError: true},
		{name: "nil report service", config: cfg, records: records, reports: nil, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, err := NewServer(tt.config, tt.records, tt.reports)

			if tt.expectError && err == nil {
				t.Errorf("expected error but got none")
			}
			if !tt.expectError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.expectError && server.mcpServer == nil {
				t.Error("mcpServer should be initialized")
			}
		})
	}
}

func TestServer_ToolsRegistered(t *testing.T) {
	server := newTestServer(t)

	want := []string{
		"inspection_templates", "project_create", "project_update", "project_get",
		"project_list", "project_delete", "machine_create", "machine_get",
		"machine_update", "machine_delete", "machine_reapply_template",
		"report_export", "report_inspect", "report_list",
	}
	got := server.Tools()
	if len(got) != len(want) {
		t.Fatalf("registered %d tools, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("tool %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestServer_HandleTemplates(t *testing.T) {
	server := newTestServer(t)

	result, err := server.handleTemplates(context.Background(), callRequest(map[string]interface{}{"family": "Toyota"}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	text := extractTextFromResult(result)
	if !strings.Contains(text, "Toyota (project") || !strings.Contains(text, "Toyota (machine") {
		t.Errorf("expected both Toyota templates, got: %s", text)
	}
	if strings.Contains(text, "Picanol") {
		t.Errorf("family filter not applied: %s", text)
	}
	if !strings.Contains(text, "millMachineNo [text] required") {
		t.Errorf("expected required field marker, got: %s", text)
	}
}

func TestServer_ProjectCreateValidation(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name    string
		args    map[string]interface{}
		wantErr string
	}{
		{name: "missing name", args: map[string]interface{}{"family": "Toyota"}, wantErr: "name"},
		{name: "missing family", args: map[string]interface{}{"name": "Mill"}, wantErr: "family"},
		{name: "unknown family", args: map[string]interface{}{"name": "Mill", "family": "Sulzer"}, wantErr: "family"},
		{name: "missing required details", args: map[string]interface{}{"name": "Mill", "family": "Toyota"}, wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleProjectCreate(context.Background(), callRequest(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if !result.IsError {
				t.Fatalf("expected an error result, got: %s", extractTextFromResult(result))
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.wantErr) {
				t.Errorf("error %q does not mention %q", text, tt.wantErr)
			}
		})
	}
}

func TestServer_InvalidArguments(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()
	empty := callRequest(map[string]interface{}{})

	handlers := map[string]func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error){
		"project_get":     server.handleProjectGet,
		"project_delete":  server.handleProjectDelete,
		"project_update":  server.handleProjectUpdate,
		"machine_create":  server.handleMachineCreate,
		"machine_get":     server.handleMachineGet,
		"machine_update":  server.handleMachineUpdate,
		"machine_delete":  server.handleMachineDelete,
		"machine_reapply": server.handleMachineReapply,
		"report_export":   server.handleReportExport,
		"report_inspect":  server.handleReportInspect,
	}
	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			result, err := handler(ctx, empty)
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}
			if result == nil || !result.IsError {
				t.Errorf("expected an error result for missing arguments")
			}
		})
	}
}

func TestServer_UnknownRecords(t *testing.T) {
	server := newTestServer(t)
	ctx := context.Background()

	result, _ := server.handleProjectGet(ctx, callRequest(map[string]interface{}{"project_id": "nope"}))
	if !result.IsError {
		t.Error("expected unknown project to fail")
	}
	result, _ = server.handleReportExport(ctx, callRequest(map[string]interface{}{"project_id": "nope"}))
	if !result.IsError {
		t.Error("expected export of unknown project to fail")
	}
	result, _ = server.handleMachineGet(ctx, callRequest(map[string]interface{}{"machine_id": "nope"}))
	if !result.IsError {
		t.Error("expected unknown machine to fail")
	}
}

func TestServer_ToolsDescribed(t *testing.T) {
	server := newTestServer(t)
	for _, name := range server.Tools() {
		if descriptions.GetToolDescription(name) == "Tool description not available" {
			t.Errorf("tool %s has no description", name)
		}
	}
}

func TestOptionalInt(t *testing.T) {
	tests := []struct {
		name   string
		value  interface{}
		want   int
		wantOK bool
	}{
		{name: "json number", value: float64(7), want: 7, wantOK: true},
		{name: "int", value: 3, want: 3, wantOK: true},
		{name: "string", value: "7", wantOK: false},
		{name: "missing", value: nil, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := map[string]interface{}{}
			if tt.value != nil {
				args["n"] = tt.value
			}
			got, ok := optionalInt(callRequest(args), "n")
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("optionalInt() = %d, %t, want %d, %t", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

// extractTextFromResult returns the first text content of a tool result
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}
