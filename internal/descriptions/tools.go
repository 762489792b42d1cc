package descriptions

import "sort"

// Tool descriptions with practical examples, shown to MCP clients

const (
	// Templates

	InspectionTemplatesDescription = `List the equipment families and the fields their inspections capture.

**When to use:** Before creating a project or machine, to learn which family names exist and which fields are required.

**Examples:**
• "Which fields does a Toyota machine inspection need?"
• "Show the Picanol project template"

**Best practices:** Field names in the output are the keys to use in project details and machine values. Select fields only accept the listed options.`

	// Projects

	ProjectCreateDescription = `Create an empty inspection project for one equipment family.

**When to use:** Starting the inspection of a mill or a lot of machines.

**Examples:**
• "Create a Toyota project 'Pune Mill' inspected on 2024-11-12 in Pune, condition Good"

**Common workflows:**
1. inspection_templates → project_create → machine_create for every machine → report_export

**Best practices:** Every required project field must be given in details. Dates use YYYY-MM-DD.`

	ProjectUpdateDescription = `Rename a project or change some of its details.

**When to use:** Correcting project information after capture.

**Examples:**
• "Change the city of project 3f2a… to Surat"
• "Remove the asking price from the project" (send the key with a null value)

**Best practices:** Only the given details change; the rest are kept.`

	ProjectGetDescription = `Show one project with its details and machine list.`

	ProjectListDescription = `List all projects of the current owner with their machine counts.`

	ProjectDeleteDescription = `Delete a project together with every machine recorded under it.

**Best practices:** This cannot be undone. Export the report first if it is still needed.`

	// Machines

	MachineCreateDescription = `Record one inspected machine under a project.

**When to use:** Capturing the inspection sheet of a machine.

**Examples:**
• "Add machine 'Loom 14', sheet 14, model JAT 710, mill machine no 114 to project 3f2a…"

**Best practices:** The machine takes the family's current machine template; later template changes do not alter it until machine_reapply_template is used. File fields hold photo names relative to the photo directory.`

	MachineGetDescription = `Show one machine with all sections, fields and captured values.`

	MachineUpdateDescription = `Change values of a machine; a null value clears the field.

**Examples:**
• "Set the warp beam diameter of machine 9c1d… to 1000"
• "Clear the fabric type of machine 9c1d…"

**Best practices:** Values are checked against the machine's own template snapshot.`

	MachineDeleteDescription = `Delete one machine and remove it from its project.`

	MachineReapplyTemplateDescription = `Refresh a machine's template snapshot from the current family template.

**When to use:** After the template set gained or reordered fields and an existing machine should show them.

**Best practices:** Values of fields that still exist are kept; values of removed fields are dropped.`

	// Reports

	ReportExportDescription = `Render a project as a paginated PDF inspection report.

**When to use:** Handing the inspection results to a buyer or archiving them.

**Why it's useful:** The report carries the header on every page, a project information table and one section per machine with its photos, and is watermarked with the generation time.

**Examples:**
• "Export the report of project 3f2a…"
• "Export project 3f2a… into /srv/share/reports"

**Common workflows:**
1. report_export → report_inspect to check the result → share the file

**Best practices:** Warnings in the result name machines that were skipped and photos that could not be embedded.`

	ReportInspectDescription = `Check an exported report: page count, structural validity, the header on every page and the number of machine sections.

**When to use:** Verifying a report before sending it, or after editing records to see the change reflected.

**Best practices:** include_text returns the text of every page, useful to confirm values made it into the report.`

	ReportListDescription = `List the reports in the output directory, newest first.

**Examples:**
• "Which reports have been exported?"
• "Find the report of the Surat mill" (query: surat)`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"inspection_templates":     InspectionTemplatesDescription,
	"project_create":           ProjectCreateDescription,
	"project_update":           ProjectUpdateDescription,
	"project_get":              ProjectGetDescription,
	"project_list":             ProjectListDescription,
	"project_delete":           ProjectDeleteDescription,
	"machine_create":           MachineCreateDescription,
	"machine_get":              MachineGetDescription,
	"machine_update":           MachineUpdateDescription,
	"machine_delete":           MachineDeleteDescription,
	"machine_reapply_template": MachineReapplyTemplateDescription,
	"report_export":            ReportExportDescription,
	"report_inspect":           ReportInspectDescription,
	"report_list":              ReportListDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the described tool names in sorted order
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
