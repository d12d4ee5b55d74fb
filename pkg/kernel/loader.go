package kernel

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

// KernelValidationResult is Phase 1's per-kernel output.
type KernelValidationResult struct {
	Name        Name
	ContentHash string
	Valid       bool
	Error       string
}

// Activator injects one kernel's content into the components that consume
// it, run during Phase 2. Returning an error transitions the kernel to
// FAILED and aborts remaining activations (spec §4.8).
type Activator func(k Kernel) error

// Loader runs the two-phase LOAD/ACTIVATE protocol over a fixed set of
// manifests and schemas.
type Loader struct {
	schemas    map[Name]*jsonschema.Schema
	activators map[Name]Activator
	kernels    map[Name]Kernel
}

// NewLoader builds an empty Loader; schemas and activators are registered
// per kernel name before Load/Activate are called.
func NewLoader() *Loader {
	return &Loader{
		schemas:    make(map[Name]*jsonschema.Schema),
		activators: make(map[Name]Activator),
		kernels:    make(map[Name]Kernel),
	}
}

// RegisterSchema compiles schemaJSON and associates it with name.
func (l *Loader) RegisterSchema(name Name, schemaJSON []byte) error {
	var doc any
	if err := json.Unmarshal(schemaJSON, &doc); err != nil {
		return fmt.Errorf("unmarshal schema for %s: %w", name, apperrors.ErrSchemaViolation)
	}
	c := jsonschema.NewCompiler()
	resourceID := string(name) + ".schema.json"
	if err := c.AddResource(resourceID, doc); err != nil {
		return fmt.Errorf("add schema resource for %s: %w", name, apperrors.ErrSchemaViolation)
	}
	schema, err := c.Compile(resourceID)
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", name, apperrors.ErrSchemaViolation)
	}
	l.schemas[name] = schema
	return nil
}

// RegisterActivator associates an Activator with name, run during Phase 2.
func (l *Loader) RegisterActivator(name Name, activator Activator) {
	l.activators[name] = activator
}

// Load runs Phase 1 over manifests in Order. A schema violation on any
// kernel is a hard failure: no kernel partial-loads, so the whole batch is
// rejected and l.kernels is left untouched.
func (l *Loader) Load(manifests map[Name]Manifest) ([]KernelValidationResult, error) {
	results := make([]KernelValidationResult, 0, len(Order))
	staged := make(map[Name]Kernel, len(Order))

	for _, name := range Order {
		manifest, ok := manifests[name]
		if !ok {
			continue
		}

		var content map[string]any
		if err := json.Unmarshal(manifest.RawJSON, &content); err != nil {
			return results, fmt.Errorf("parse manifest %s: %w", name, apperrors.ErrSchemaViolation)
		}

		if schema, ok := l.schemas[name]; ok {
			var doc any
			if err := json.Unmarshal(manifest.RawJSON, &doc); err != nil {
				return results, fmt.Errorf("parse manifest %s for validation: %w", name, apperrors.ErrSchemaViolation)
			}
			if err := schema.Validate(doc); err != nil {
				results = append(results, KernelValidationResult{Name: name, Valid: false, Error: err.Error()})
				return results, fmt.Errorf("kernel %s failed schema validation: %w", name, apperrors.ErrSchemaViolation)
			}
		}

		hash := ContentHash(manifest.RawJSON)
		staged[name] = Kernel{Name: name, ContentHash: hash, Content: content, State: StateLoaded}
		results = append(results, KernelValidationResult{Name: name, ContentHash: hash, Valid: true})
	}

	l.kernels = staged
	return results, nil
}

// ActivationResult is Phase 2's per-kernel outcome.
type ActivationResult struct {
	Name  Name
	State ActivationState
	Error string
}

// Activate runs Phase 2: activates loaded kernels in Order, transitioning
// each LOADED -> VALIDATED -> ACTIVATED. An activation failure transitions
// that kernel to FAILED and aborts remaining activations.
func (l *Loader) Activate() []ActivationResult {
	var results []ActivationResult
	for _, name := range Order {
		k, ok := l.kernels[name]
		if !ok {
			continue
		}
		k.State = StateValidated

		activator, hasActivator := l.activators[name]
		if hasActivator {
			if err := activator(k); err != nil {
				k.State = StateFailed
				l.kernels[name] = k
				results = append(results, ActivationResult{Name: name, State: StateFailed, Error: err.Error()})
				return results
			}
		}

		k.State = StateActivated
		l.kernels[name] = k
		results = append(results, ActivationResult{Name: name, State: StateActivated})
	}
	return results
}

// Kernels returns the current staged/activated kernel set.
func (l *Loader) Kernels() map[Name]Kernel {
	return l.kernels
}

// ContentHash computes the integrity hash used by both Load and the
// separate integrity-verification routine.
func ContentHash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
