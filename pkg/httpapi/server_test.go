package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/agentops-dev/substrate/pkg/apperrors"
	"github.com/agentops-dev/substrate/pkg/compliance"
	"github.com/agentops-dev/substrate/pkg/httpapi"
	"github.com/agentops-dev/substrate/pkg/kernel"
	"github.com/agentops-dev/substrate/pkg/packet"
	"github.com/agentops-dev/substrate/pkg/research"
	"github.com/agentops-dev/substrate/pkg/tracing"
)

type fakeResearch struct {
	runResult    *research.FinalOutput
	runThread    string
	runErr       error
	resumeResult *research.FinalOutput
	resumeFound  bool
	resumeErr    error
	status       research.Status
	statusFound  bool
	statusErr    error
}

func (f *fakeResearch) Run(ctx context.Context, threadID, agentID, query string) (string, *research.FinalOutput, error) {
	if threadID == "" {
		threadID = f.runThread
	}
	return threadID, f.runResult, f.runErr
}

func (f *fakeResearch) Resume(ctx context.Context, threadID string) (*research.FinalOutput, bool, error) {
	return f.resumeResult, f.resumeFound, f.resumeErr
}

func (f *fakeResearch) Status(ctx context.Context, threadID string) (research.Status, bool, error) {
	return f.status, f.statusFound, f.statusErr
}

type fakeCompliance struct {
	report    compliance.ComplianceReport
	reportErr error
	exported  []packet.Packet
	exportErr error
}

func (f *fakeCompliance) Generate(ctx context.Context, from, to time.Time) (compliance.ComplianceReport, error) {
	return f.report, f.reportErr
}

func (f *fakeCompliance) Export(ctx context.Context, from, to time.Time) ([]packet.Packet, error) {
	return f.exported, f.exportErr
}

type fakeKernelSource struct {
	kernels map[kernel.Name]kernel.Kernel
}

func (f *fakeKernelSource) Kernels() map[kernel.Name]kernel.Kernel {
	return f.kernels
}

func newTestRouter(research *fakeResearch, comp *fakeCompliance, kernels *fakeKernelSource) *gin.Engine {
	gin.SetMode(gin.TestMode)
	sampler := tracing.NewSampler(1.0, 1.0)
	srv := httpapi.NewServer(research, comp, kernels, sampler, nil, nil)
	router := gin.New()
	srv.RegisterRoutes(router)
	return router
}

func TestHandleResearchRunReturnsResult(t *testing.T) {
	fr := &fakeResearch{runThread: "fallback-thread", runResult: &research.FinalOutput{Summary: "done"}}
	router := newTestRouter(fr, &fakeCompliance{}, &fakeKernelSource{})

	body, _ := json.Marshal(map[string]string{"query": "what happened"})
	req := httptest.NewRequest(http.MethodPost, "/research/run", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "fallback-thread", resp["thread_id"])
}

func TestHandleResearchRunRejectsMissingQuery(t *testing.T) {
	router := newTestRouter(&fakeResearch{}, &fakeCompliance{}, &fakeKernelSource{})

	req := httptest.NewRequest(http.MethodPost, "/research/run", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleResearchResumeReportsNoCheckpoint(t *testing.T) {
	fr := &fakeResearch{resumeFound: false}
	router := newTestRouter(fr, &fakeCompliance{}, &fakeKernelSource{})

	body, _ := json.Marshal(map[string]string{"thread_id": "t1"})
	req := httptest.NewRequest(http.MethodPost, "/research/resume", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "no_checkpoint", resp["result"])
}

func TestHandleResearchStatusNotFoundReturns404(t *testing.T) {
	fr := &fakeResearch{statusFound: false}
	router := newTestRouter(fr, &fakeCompliance{}, &fakeKernelSource{})

	req := httptest.NewRequest(http.MethodGet, "/research/unknown-thread/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleResearchStatusMapsInfrastructureErrorTo500(t *testing.T) {
	fr := &fakeResearch{statusErr: apperrors.ErrConnectionFailed}
	router := newTestRouter(fr, &fakeCompliance{}, &fakeKernelSource{})

	req := httptest.NewRequest(http.MethodGet, "/research/t1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleComplianceReportRejectsBadDates(t *testing.T) {
	router := newTestRouter(&fakeResearch{}, &fakeCompliance{}, &fakeKernelSource{})

	req := httptest.NewRequest(http.MethodGet, "/compliance/report?from=not-a-date&to=2026-01-01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleComplianceReportReturnsReport(t *testing.T) {
	fc := &fakeCompliance{report: compliance.ComplianceReport{TotalAudits: 42}}
	router := newTestRouter(&fakeResearch{}, fc, &fakeKernelSource{})

	req := httptest.NewRequest(http.MethodGet, "/compliance/report?from=2026-01-01&to=2026-01-31", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report compliance.ComplianceReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Equal(t, 42, report.TotalAudits)
}

func TestHandleModulesStatusOrdersByModuleID(t *testing.T) {
	kernels := &fakeKernelSource{kernels: map[kernel.Name]kernel.Kernel{
		kernel.NameSafety: {Name: kernel.NameSafety, State: kernel.StateActivated},
		kernel.NameMaster: {Name: kernel.NameMaster, State: kernel.StateActivated, Content: map[string]any{"description": "master law"}},
	}}
	router := newTestRouter(&fakeResearch{}, &fakeCompliance{}, kernels)

	req := httptest.NewRequest(http.MethodGet, "/modules/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Count   int `json:"count"`
		Modules []struct {
			ModuleID   string `json:"module_id"`
			Definition string `json:"definition"`
			Status     string `json:"status"`
		} `json:"modules"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	require.Equal(t, "Master", resp.Modules[0].ModuleID)
	require.Equal(t, "master law", resp.Modules[0].Definition)
	require.Equal(t, "Safety", resp.Modules[1].ModuleID)
}

func TestTraceparentMiddlewarePropagatesIncomingHeader(t *testing.T) {
	router := newTestRouter(&fakeResearch{statusFound: true}, &fakeCompliance{}, &fakeKernelSource{})

	incoming := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	req := httptest.NewRequest(http.MethodGet, "/research/t1/status", nil)
	req.Header.Set("traceparent", incoming)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	got := rec.Header().Get("traceparent")
	require.Contains(t, got, "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestTraceparentMiddlewareGeneratesRootWhenAbsent(t *testing.T) {
	router := newTestRouter(&fakeResearch{statusFound: true}, &fakeCompliance{}, &fakeKernelSource{})

	req := httptest.NewRequest(http.MethodGet, "/research/t1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	got := rec.Header().Get("traceparent")
	require.Len(t, got, len("00-xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx-xxxxxxxxxxxxxxxx-01"))
}

func TestHealthEndpointReportsHealthy(t *testing.T) {
	router := newTestRouter(&fakeResearch{}, &fakeCompliance{}, &fakeKernelSource{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}
