package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/Requip-Digital/Inspection-Tool/internal/inspection"
	"github.com/Requip-Digital/Inspection-Tool/internal/report"
)

// ReportController streams project reports as PDF downloads
type ReportController struct {
	records *inspection.Service
	reports *report.Service
}

// NewReportController creates a report controller
func NewReportController(records *inspection.Service, reports *report.Service) *ReportController {
	return &ReportController{records: records, reports: reports}
}

// attachment writes the download headers before the first body byte, so a
// failure before any output can still answer with a JSON error
type attachment struct {
	ctx      *gin.Context
	filename string
	started  bool
}

func (a *attachment) Write(p []byte) (int, error) {
	if !a.started {
		a.started = true
		h := a.ctx.Writer.Header()
		h.Set("Content-Type", "application/pdf")
		h.Set("Content-Disposition", `attachment; filename="`+a.filename+`"`)
		a.ctx.Status(http.StatusOK)
	}
	return a.ctx.Writer.Write(p)
}

// Export renders the project in the path and streams it to the client
func (c *ReportController) Export(ctx *gin.Context) {
	id, owner := ctx.Param("id"), ownerOf(ctx)
	p, err := c.records.GetProject(ctx.Request.Context(), id, owner)
	if err != nil {
		Fail(ctx, "project not found", err)
		return
	}

	out := &attachment{ctx: ctx, filename: report.Filename(p.Name)}
	res, err := c.reports.Export(ctx.Request.Context(), id, owner, out)
	if err != nil {
		if !out.started {
			Fail(ctx, "failed to export report", err)
			return
		}
		klog.Errorf("report %s aborted mid-stream: %v", id, err)
		ctx.Abort()
		return
	}
	for _, w := range res.Warnings {
		klog.Warningf("report %s: %s", id, w)
	}
	klog.V(1).Infof("report %s streamed: %d pages, %d bytes", id, res.Pages, res.Bytes)
}
