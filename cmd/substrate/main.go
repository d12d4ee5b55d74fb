// Command substrate is the composition root: it wires the Postgres pool,
// Redis eventbus, kernel loader, metrics/tracing plane, dispatch registry,
// research orchestrator, and compliance reporter into a single process
// exposing the gin HTTP boundary and a Temporal worker before starting gin.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.temporal.io/sdk/activity"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/agentops-dev/substrate/pkg/compliance"
	"github.com/agentops-dev/substrate/pkg/config"
	"github.com/agentops-dev/substrate/pkg/contextassembly"
	"github.com/agentops-dev/substrate/pkg/dispatch"
	"github.com/agentops-dev/substrate/pkg/eventbus"
	"github.com/agentops-dev/substrate/pkg/graphstate"
	"github.com/agentops-dev/substrate/pkg/httpapi"
	"github.com/agentops-dev/substrate/pkg/hydrator"
	"github.com/agentops-dev/substrate/pkg/kernel"
	"github.com/agentops-dev/substrate/pkg/metrics"
	"github.com/agentops-dev/substrate/pkg/packet"
	"github.com/agentops-dev/substrate/pkg/research"
	"github.com/agentops-dev/substrate/pkg/semanticindex"
	"github.com/agentops-dev/substrate/pkg/storage"
	"github.com/agentops-dev/substrate/pkg/tracing"
	"github.com/agentops-dev/substrate/pkg/version"
	"github.com/agentops-dev/substrate/pkg/workerpool"
)

func main() {
	configPath := flag.String("config", getEnv("SUBSTRATE_CONFIG", "./deploy/config/substrate.yaml"), "path to the substrate YAML manifest")
	envPath := flag.String("env-file", getEnv("SUBSTRATE_ENV_FILE", "./deploy/config/.env"), "path to a .env file to load before reading configuration")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		log.Printf("warning: could not load %s: %v", *envPath, err)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	log.Info("starting substrate", "version", version.Full())

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg, err := storage.LoadConfigFromEnv()
	if err != nil {
		log.Error("failed to load database config", "error", err)
		os.Exit(1)
	}
	if err := storage.RunMigrations(dbCfg); err != nil {
		log.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}
	pool, err := storage.NewPool(ctx, dbCfg)
	if err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	log.Info("connected to postgres")

	redisClient := eventbus.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	defer redisClient.Close()
	if err := eventbus.Ping(ctx, redisClient); err != nil {
		log.Warn("redis unreachable, hydrator cache invalidation will not fan out across instances", "error", err)
	}
	bus := eventbus.New(redisClient, "substrate:invalidate")

	packets := packet.NewPostgresStore(pool)
	// semIndex backs retrieval tools a deployment registers on the
	// dispatcher (RAGRetrieval-shaped tool calls, spec §4.2). It also backs
	// the context assembler's archival-tier page fault via
	// contextassembly.SemanticIndexRetriever, once a deployment supplies the
	// embedding strategy a page fault's query vector requires — that
	// strategy, like Planner/Synthesizer/CriticJudge below, is a pluggable
	// boundary this process does not bundle a concrete implementation of.
	semIndex := semanticindex.NewPostgresIndex(pool)
	_ = semIndex
	graph := graphstate.NewPostgresStore(pool)

	promProvider, promReg, err := metrics.NewPrometheusProvider()
	if err != nil {
		log.Error("failed to build prometheus exporter", "error", err)
		os.Exit(1)
	}
	metricsRegistry := metrics.NewRegistry(promProvider)

	sampler := tracing.NewSampler(cfg.Observability.SamplingRate, cfg.Observability.ErrorSamplingRate)
	exporters := buildExporters(cfg, packets, log)
	composite := tracing.NewCompositeExporter(exporters, cfg.Observability.BatchSize, time.Duration(cfg.Observability.BatchTimeoutSec)*time.Second)
	tracer := tracing.NewTracer(sampler, composite)

	auditPool := workerpool.New("dispatch-audit", 4, 256)
	auditPool.Start(ctx)
	defer auditPool.Stop()

	loader := kernel.NewLoader()
	hyd := hydrator.New(graph, loader, bus, log)
	go func() {
		if err := hyd.ListenForRemoteInvalidation(ctx); err != nil && ctx.Err() == nil {
			log.Warn("hydrator remote invalidation listener stopped", "error", err)
		}
	}()

	registry := dispatch.NewRegistry()
	auditSink := dispatch.NewPostgresAuditSink(pool)
	governance := &hydrator.DirectiveGovernanceEngine{Hydrator: hyd}
	dispatcher := dispatch.NewDispatcher(registry, governance, packets, auditSink, metricsRegistry, tracer, auditPool, 30*time.Second)

	reporter := compliance.NewReporter(packets, registry)

	temporalClient, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		log.Error("failed to connect to temporal", "error", err)
		os.Exit(1)
	}
	defer temporalClient.Close()

	checkpointer := research.NewCheckpointer(packets)
	runner := research.NewRunner(temporalClient, checkpointer, cfg.Temporal.TaskQueue)

	toolAdapter := &dispatch.ResearchToolAdapter{Dispatcher: dispatcher}
	contextAssembler := contextassembly.New(packets, tracer)
	startResearchWorker(temporalClient, checkpointer, packets, toolAdapter, contextAssembler, cfg.Temporal.TaskQueue, log)

	srv := httpapi.NewServer(runner, reporter, loader, sampler, promReg, log)

	gin.SetMode(getEnv("GIN_MODE", gin.ReleaseMode))
	router := gin.Default()
	srv.RegisterRoutes(router)

	httpSrv := startHTTPServer(router, cfg.HTTP.Addr, log)

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

// startHTTPServer runs router on addr in the background and returns the
// *http.Server so the caller can Shutdown it on ctx cancellation.
func startHTTPServer(router *gin.Engine, addr string, log *slog.Logger) *http.Server {
	srv := &http.Server{Addr: addr, Handler: router}
	go func() {
		log.Info("http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server failed", "error", err)
		}
	}()
	return srv
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// buildExporters assembles the composite trace exporter from whichever
// sinks cfg.Observability.Exporters names, per spec §6.7.
func buildExporters(cfg config.Config, packets packet.Store, log *slog.Logger) []tracing.Exporter {
	var exporters []tracing.Exporter
	for _, name := range cfg.Observability.Exporters {
		switch name {
		case "console":
			exporters = append(exporters, tracing.NewConsoleExporter(os.Stdout))
		case "file":
			path := cfg.Observability.FileExportPath
			if path == "" {
				path = "./substrate-spans.jsonl"
			}
			f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				log.Warn("failed to open trace export file, skipping", "path", path, "error", err)
				continue
			}
			exporters = append(exporters, tracing.NewFileExporter(f))
		case "substrate":
			if cfg.Observability.SubstrateEnabled {
				exporters = append(exporters, tracing.NewPacketStoreExporter(packets))
			}
		}
	}
	return exporters
}

// startResearchWorker registers the research DAG's workflow and activities
// with a dedicated Temporal worker and starts it in the background.
func startResearchWorker(temporalClient temporalclient.Client, checkpointer *research.Checkpointer, packets packet.Store, tools research.ToolRegistry, contextAssembler *contextassembly.Assembler, taskQueue string, log *slog.Logger) {
	if taskQueue == "" {
		taskQueue = research.TaskQueue
	}
	w := worker.New(temporalClient, taskQueue, worker.Options{})

	w.RegisterWorkflowWithOptions(research.ResearchWorkflow, workflow.RegisterOptions{Name: research.WorkflowName})

	// Planner, Synthesizer and CriticJudge are pluggable LLM-backed
	// strategies a deployment supplies; this process wires the
	// orchestration plumbing around them but does not bundle a concrete
	// LLM client. Tools is backed by the dispatch registry (C7), so
	// research_node's tool calls run through the same governance/audit
	// pipeline as every other tool invocation.
	acts := &research.Activities{Tools: tools, Checkpointer: checkpointer, Packets: packets, ContextAssembler: contextAssembler, Log: log}
	for name, fn := range map[string]any{
		"PlanActivity":        acts.PlanActivity,
		"ResearchActivity":    acts.ResearchActivity,
		"CriticActivity":      acts.CriticActivity,
		"FinalizeActivity":    acts.FinalizeActivity,
		"StoreInsightsActivity": acts.StoreInsightsActivity,
		"CheckpointActivity":  acts.CheckpointActivity,
	} {
		w.RegisterActivityWithOptions(fn, activity.RegisterOptions{Name: name})
	}

	go func() {
		if err := w.Run(worker.InterruptCh()); err != nil {
			log.Error("research worker stopped", "error", err)
		}
	}()
}
