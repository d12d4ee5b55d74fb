package hydrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/agentops-dev/substrate/pkg/apperrors"
	"github.com/agentops-dev/substrate/pkg/eventbus"
	"github.com/agentops-dev/substrate/pkg/graphstate"
	"github.com/agentops-dev/substrate/pkg/kernel"
)

// invalidationReason labels the eventbus.Event emitted on cache busts, purely
// for log/metric correlation on subscribing instances.
const invalidationReason = "hydration_invalidated"

// KernelSource exposes the subset of a kernel.Loader the hydrator needs: the
// currently activated kernel set, read for the Safety kernel's constraints.
type KernelSource interface {
	Kernels() map[kernel.Name]kernel.Kernel
}

// Hydrator fuses C8 kernels with C3 graph state into cached
// HydratedAgentContext values. Cached entries are evicted only through
// Invalidate/InvalidateAll (locally, or by another instance over the bus);
// graph-state mutations and kernel reloads do not evict them on their own.
type Hydrator struct {
	graph   graphstate.Store
	kernels KernelSource
	bus     *eventbus.Bus

	mu    sync.RWMutex
	cache map[string]HydratedAgentContext

	log *slog.Logger
}

// New builds a Hydrator. bus may be nil: cross-instance invalidation
// fan-out is then simply skipped and only the local cache is kept coherent.
func New(graph graphstate.Store, kernels KernelSource, bus *eventbus.Bus, log *slog.Logger) *Hydrator {
	if log == nil {
		log = slog.Default()
	}
	return &Hydrator{
		graph:   graph,
		kernels: kernels,
		bus:     bus,
		cache:   make(map[string]HydratedAgentContext),
		log:     log,
	}
}

// Hydrate returns the cached context for agentID, loading and fusing it from
// C8/C3 on a cache miss. Two consecutive calls with no intervening mutation
// return structurally identical contexts (spec §8 hydrator scenario).
func (h *Hydrator) Hydrate(ctx context.Context, agentID string) (HydratedAgentContext, error) {
	h.mu.RLock()
	if cached, ok := h.cache[agentID]; ok {
		h.mu.RUnlock()
		return cached, nil
	}
	h.mu.RUnlock()

	state, found, err := h.graph.Load(ctx, agentID)
	if err != nil {
		return HydratedAgentContext{}, fmt.Errorf("load agent state for hydration %s: %w", agentID, err)
	}
	if !found {
		return HydratedAgentContext{}, fmt.Errorf("hydrate %s: %w", agentID, apperrors.ErrNotFound)
	}

	hc := buildContext(state, h.safetyConstraints())

	h.mu.Lock()
	h.cache[agentID] = hc
	h.mu.Unlock()

	return hc, nil
}

// Invalidate evicts agentID's cached context and publishes the eviction on
// the bus. pkg/graphstate's mutations do not call it.
func (h *Hydrator) Invalidate(ctx context.Context, agentID string) {
	h.mu.Lock()
	delete(h.cache, agentID)
	h.mu.Unlock()

	if h.bus == nil {
		return
	}
	h.bus.Publish(ctx, eventbus.Event{Subject: agentID, Reason: invalidationReason})
}

// InvalidateAll clears the entire cache, since a kernel change can affect
// every agent's SafetyConstraints/SystemPrompt. kernel.Loader.Reload does
// not call it.
func (h *Hydrator) InvalidateAll(ctx context.Context) {
	h.mu.Lock()
	h.cache = make(map[string]HydratedAgentContext)
	h.mu.Unlock()

	if h.bus == nil {
		return
	}
	h.bus.Publish(ctx, eventbus.Event{Subject: "*", Reason: invalidationReason})
}

// ListenForRemoteInvalidation subscribes to the shared bus and evicts local
// cache entries other instances report as invalidated. It returns once the
// subscription is started; eviction continues in the background until ctx
// is cancelled.
func (h *Hydrator) ListenForRemoteInvalidation(ctx context.Context) error {
	if h.bus == nil {
		return nil
	}
	return h.bus.Subscribe(ctx, func(evt eventbus.Event) {
		if evt.Reason != invalidationReason {
			return
		}
		h.mu.Lock()
		if evt.Subject == "*" {
			h.cache = make(map[string]HydratedAgentContext)
		} else {
			delete(h.cache, evt.Subject)
		}
		h.mu.Unlock()
	})
}

// safetyConstraints extracts the Safety kernel's "constraints" string array,
// if the kernel is activated and carries one. Absence is not an error: not
// every deployment loads a Safety kernel with this field populated.
func (h *Hydrator) safetyConstraints() []string {
	if h.kernels == nil {
		return nil
	}
	safety, ok := h.kernels.Kernels()[kernel.NameSafety]
	if !ok || safety.State != kernel.StateActivated || safety.Content == nil {
		return nil
	}
	raw, ok := safety.Content["constraints"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
