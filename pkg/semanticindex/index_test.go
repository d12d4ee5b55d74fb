package semanticindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCosineSimilarityIdenticalVectors(t *testing.T) {
	score, err := CosineSimilarity([]float64{1, 0, 0}, []float64{1, 0, 0})
	require.NoError(t, err)
	require.InDelta(t, 1.0, score, 1e-9)
}

func TestCosineSimilarityOrthogonalVectors(t *testing.T) {
	score, err := CosineSimilarity([]float64{1, 0}, []float64{0, 1})
	require.NoError(t, err)
	require.InDelta(t, 0.0, score, 1e-9)
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float64{1, 0}, []float64{1, 0, 0})
	require.Error(t, err)
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	score, err := CosineSimilarity([]float64{0, 0}, []float64{1, 1})
	require.NoError(t, err)
	require.Equal(t, 0.0, score)
}
