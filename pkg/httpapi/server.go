// Package httpapi is the gin-based HTTP boundary: the Research API, the
// Compliance API, and the observability endpoints, wired together as a
// single Server struct bundling its dependencies before being handed to
// gin's router.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agentops-dev/substrate/pkg/compliance"
	"github.com/agentops-dev/substrate/pkg/kernel"
	"github.com/agentops-dev/substrate/pkg/packet"
	"github.com/agentops-dev/substrate/pkg/research"
	"github.com/agentops-dev/substrate/pkg/tracing"
)

// ResearchService is the subset of *research.Runner the Research API
// handlers call. Narrowed to an interface so tests can substitute a fake
// without standing up Temporal.
type ResearchService interface {
	Run(ctx context.Context, threadID, agentID, query string) (string, *research.FinalOutput, error)
	Resume(ctx context.Context, threadID string) (*research.FinalOutput, bool, error)
	Status(ctx context.Context, threadID string) (research.Status, bool, error)
}

// ComplianceService is the subset of *compliance.Reporter the Compliance
// API handlers call.
type ComplianceService interface {
	Generate(ctx context.Context, from, to time.Time) (compliance.ComplianceReport, error)
	Export(ctx context.Context, from, to time.Time) ([]packet.Packet, error)
}

// KernelSource is the subset of *kernel.Loader GET /modules/status reads.
type KernelSource interface {
	Kernels() map[kernel.Name]kernel.Kernel
}

// Server bundles every dependency the HTTP handlers call into. It holds no
// HTTP-framework state itself so handlers stay unit-testable against a
// plain *Server plus httptest.
type Server struct {
	runner     ResearchService
	reporter   ComplianceService
	kernels    KernelSource
	sampler    *tracing.Sampler
	metricsReg *prometheus.Registry
	log        *slog.Logger
}

// NewServer builds a Server. metricsReg is the dedicated Prometheus
// registry GET /metrics exposes; pass nil to fall back to the global
// default registry.
func NewServer(runner ResearchService, reporter ComplianceService, kernels KernelSource, sampler *tracing.Sampler, metricsReg *prometheus.Registry, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{runner: runner, reporter: reporter, kernels: kernels, sampler: sampler, metricsReg: metricsReg, log: log}
}

// metricsHandler returns the promhttp handler bound to s.metricsReg, or the
// default global registry's handler if none was supplied.
func (s *Server) metricsHandler() http.Handler {
	if s.metricsReg == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.metricsReg, promhttp.HandlerOpts{})
}

// RegisterRoutes mounts every §6 endpoint onto an existing gin.Engine, so
// callers control middleware ordering and server lifecycle themselves.
func (s *Server) RegisterRoutes(router *gin.Engine) {
	router.Use(TraceContextMiddleware(s.sampler))

	router.POST("/research/run", s.handleResearchRun)
	router.POST("/research/resume", s.handleResearchResume)
	router.GET("/research/:thread_id/status", s.handleResearchStatus)

	router.GET("/compliance/report", s.handleComplianceReport)
	router.GET("/compliance/export", s.handleComplianceExport)

	router.GET("/metrics", gin.WrapH(s.metricsHandler()))
	router.GET("/modules/status", s.handleModulesStatus)

	router.GET("/health", s.handleHealth)
}
