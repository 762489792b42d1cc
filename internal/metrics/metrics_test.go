package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestRecordReport(t *testing.T) {
	okBefore := testutil.ToFloat64(reportsTotal.WithLabelValues("ok"))
	failedBefore := testutil.ToFloat64(reportsTotal.WithLabelValues("failed"))

	RecordReport(true, 3, 0.2)
	RecordReport(false, 0, 0.1)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(reportsTotal.WithLabelValues("ok")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(reportsTotal.WithLabelValues("failed")))
}

func TestRecordOperation(t *testing.T) {
	before := testutil.ToFloat64(recordsTotal.WithLabelValues("machine", "create"))
	RecordOperation("machine", "create")
	assert.Equal(t, before+1, testutil.ToFloat64(recordsTotal.WithLabelValues("machine", "create")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordAPIRequest(http.MethodGet, "/healthz", http.StatusOK, 0.01)
	RecordReportWarning("RESOLUTION")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "inspection_api_requests_total"))
	assert.True(t, strings.Contains(body, `inspection_report_warnings_total{type="RESOLUTION"}`))
}

func TestUpdateDatabaseConnections(t *testing.T) {
	assert.Error(t, UpdateDatabaseConnections(nil))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	assert.NoError(t, UpdateDatabaseConnections(db))
}
