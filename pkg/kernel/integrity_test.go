package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agentops-dev/substrate/pkg/apperrors"
)

func TestVerifyIntegrityCategorizesChanges(t *testing.T) {
	manifests := map[Name]Manifest{
		NameMaster: {Name: NameMaster, RawJSON: []byte(`{"version": 2}`)},
		NameSafety: {Name: NameSafety, RawJSON: []byte(`{"rules": []}`)},
	}
	storedHashes := map[Name]string{
		NameMaster:   ContentHash([]byte(`{"version": 1}`)),
		NameIdentity: ContentHash([]byte(`{"name": "x"}`)),
	}

	changes := VerifyIntegrity(manifests, storedHashes)

	byName := map[Name]ChangeKind{}
	for _, c := range changes {
		byName[c.Name] = c.Kind
	}
	require.Equal(t, ChangeModified, byName[NameMaster])
	require.Equal(t, ChangeNew, byName[NameSafety])
	require.Equal(t, ChangeDeleted, byName[NameIdentity])
}

func TestRequiresPrivilegedAuthorizationOnlyForSensitiveKernels(t *testing.T) {
	changes := []Change{
		{Name: NameCognitive, Kind: ChangeModified},
		{Name: NameSafety, Kind: ChangeModified},
	}
	name, needsAuth := RequiresPrivilegedAuthorization(changes)
	require.True(t, needsAuth)
	require.Equal(t, NameSafety, name)

	_, needsAuth = RequiresPrivilegedAuthorization([]Change{{Name: NameCognitive, Kind: ChangeModified}})
	require.False(t, needsAuth)
}

func TestEnforceIntegrityRejectsUnauthorizedSensitiveChange(t *testing.T) {
	changes := []Change{{Name: NameMaster, Kind: ChangeModified}}

	err := EnforceIntegrity(changes, false)
	require.Error(t, err)
	require.ErrorIs(t, err, apperrors.ErrUnapprovedAction)

	require.NoError(t, EnforceIntegrity(changes, true))
}

func TestReloadIsIdempotentWhenManifestsUnchanged(t *testing.T) {
	l := NewLoader()
	manifests := map[Name]Manifest{
		NameMaster: {Name: NameMaster, RawJSON: []byte(`{"version": 1}`)},
		NameSafety: {Name: NameSafety, RawJSON: []byte(`{"rules": []}`)},
	}

	first, err := l.Reload(manifests, map[Name]string{})
	require.NoError(t, err)
	require.Len(t, first.Changes, 2)
	require.Len(t, first.Activations, 2)

	second, err := l.Reload(manifests, l.StoredHashes())
	require.NoError(t, err)
	require.Empty(t, second.Changes)
	require.Len(t, second.Activations, 2)
	for _, a := range second.Activations {
		require.Equal(t, StateActivated, a.State)
	}
}
