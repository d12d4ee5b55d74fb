package kernel

// ReloadResult is the outcome of a hot reload: the integrity diff against
// the previously stored hashes, plus the fresh activation outcomes.
type ReloadResult struct {
	Changes     []Change
	Validation  []KernelValidationResult
	Activations []ActivationResult
}

// Reload re-runs Phase 1 + Phase 2 (`reload_kernels`, spec §4.8). It is
// idempotent when manifests are unchanged: Changes will be empty and
// Activations will reflect the same steady state.
func (l *Loader) Reload(manifests map[Name]Manifest, storedHashes map[Name]string) (ReloadResult, error) {
	changes := VerifyIntegrity(manifests, storedHashes)

	validation, err := l.Load(manifests)
	if err != nil {
		return ReloadResult{Changes: changes, Validation: validation}, err
	}

	activations := l.Activate()
	return ReloadResult{Changes: changes, Validation: validation, Activations: activations}, nil
}

// StoredHashes extracts a Name->hash map from the loader's currently
// loaded kernels, suitable as the storedHashes input to a later Reload
// call or VerifyIntegrity check.
func (l *Loader) StoredHashes() map[Name]string {
	out := make(map[Name]string, len(l.kernels))
	for name, k := range l.kernels {
		out[name] = k.ContentHash
	}
	return out
}
