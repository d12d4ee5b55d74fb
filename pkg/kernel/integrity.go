package kernel

import (
	"fmt"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

// ChangeKind categorizes an integrity-verification finding.
type ChangeKind string

const (
	ChangeNew      ChangeKind = "NEW"
	ChangeModified ChangeKind = "MODIFIED"
	ChangeDeleted  ChangeKind = "DELETED"
)

// Change is one manifest's drift from its stored content hash.
type Change struct {
	Name Name
	Kind ChangeKind
}

// VerifyIntegrity rehashes the on-disk manifests and compares them against
// storedHashes, returning every drift categorized NEW/MODIFIED/DELETED
// (spec §4.8). Manifests present in both with matching hashes are omitted.
func VerifyIntegrity(manifests map[Name]Manifest, storedHashes map[Name]string) []Change {
	var changes []Change

	for name, manifest := range manifests {
		hash := ContentHash(manifest.RawJSON)
		stored, existed := storedHashes[name]
		switch {
		case !existed:
			changes = append(changes, Change{Name: name, Kind: ChangeNew})
		case stored != hash:
			changes = append(changes, Change{Name: name, Kind: ChangeModified})
		}
	}

	for name := range storedHashes {
		if _, present := manifests[name]; !present {
			changes = append(changes, Change{Name: name, Kind: ChangeDeleted})
		}
	}

	return changes
}

// RequiresPrivilegedAuthorization reports whether changes contains a
// MODIFIED entry for a sensitive kernel (Safety, Master), which the
// runtime may refuse to start on without an explicit authorization.
func RequiresPrivilegedAuthorization(changes []Change) (Name, bool) {
	for _, c := range changes {
		if c.Kind == ChangeModified && IsSensitive(c.Name) {
			return c.Name, true
		}
	}
	return "", false
}

// EnforceIntegrity returns an error if changes require privileged
// authorization and authorized is false.
func EnforceIntegrity(changes []Change, authorized bool) error {
	if name, needsAuth := RequiresPrivilegedAuthorization(changes); needsAuth && !authorized {
		return fmt.Errorf("kernel %s modified without privileged authorization: %w", name, apperrors.ErrUnapprovedAction)
	}
	return nil
}
