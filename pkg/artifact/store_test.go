package artifact

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/linear"
	"github.com/CS-UWC/OralSmart-sub001/pkg/ml/preprocess"
)

func sampleArtifact() *Artifact {
	return &Artifact{
		ID:             uuid.New(),
		FeatureVersion: "2",
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Labels:         []string{"low", "medium", "high"},
		Features:       []string{"plaque", "total_dmft_score"},
		Scaler:         preprocess.Scaler{Mean: []float64{0.5, 3}, Scale: []float64{0.5, 2}},
		Weights: linear.Weights{
			Bias:         []float64{0.1, 0, -0.1},
			Coefficients: [][]float64{{-1, -2}, {0, 0}, {1, 2}},
		},
		Importance: []FeatureScore{{Name: "total_dmft_score", Score: 1.33}, {Name: "plaque", Score: 0.66}},
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	a := sampleArtifact()
	require.NoError(t, store.Save(a))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, a, loaded)
	assert.Equal(t, []string{"total_dmft_score"}, loaded.TopFeatures(1))
}

func TestLoadMissing(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	_, err = store.Load()
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadMismatchedParts(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	a := sampleArtifact()
	require.NoError(t, store.Save(a))

	other := sampleArtifact()
	other.ID = uuid.New()
	payload := []byte(`{"id":"` + other.ID.String() + `","features":["plaque","total_dmft_score"],"scaler":{"mean":[0,0],"scale":[1,1]}}`)
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), a.ID.String(), scalerFile), payload, 0o644))

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestLoadTruncatedClassifier(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	a := sampleArtifact()
	require.NoError(t, store.Save(a))
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), a.ID.String(), classifierFile), []byte(`{"id":`), 0o644))

	_, err = store.Load()
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestFailedSaveKeepsPrevious(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	good := sampleArtifact()
	require.NoError(t, store.Save(good))

	bad := sampleArtifact()
	bad.ID = uuid.New()
	bad.Weights.Coefficients = [][]float64{{1}, {1}, {1}}
	assert.ErrorIs(t, store.Save(bad), ErrCorrupt)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, good.ID, loaded.ID)
}

func TestPruneKeepsCurrentAndPrevious(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	var ids []uuid.UUID
	for i := 0; i < 4; i++ {
		a := sampleArtifact()
		ids = append(ids, a.ID)
		require.NoError(t, store.Save(a))
		time.Sleep(5 * time.Millisecond)
	}
	for i, id := range ids {
		_, err := store.LoadID(id)
		if i >= 2 {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, ErrCorrupt)
		}
	}
}

func TestSaveSucceedsWhenPruneFails(t *testing.T) {
	var attempts int
	removeAll = func(string) error {
		attempts++
		return errors.New("device busy")
	}
	t.Cleanup(func() { removeAll = os.RemoveAll })

	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	var last *Artifact
	for i := 0; i < 4; i++ {
		last = sampleArtifact()
		require.NoError(t, store.Save(last))
		time.Sleep(5 * time.Millisecond)
	}
	assert.Positive(t, attempts)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, last.ID, loaded.ID)
}

func TestValidateRejectsNonFiniteParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(a *Artifact)
	}{
		{"nan mean", func(a *Artifact) { a.Scaler.Mean[1] = math.NaN() }},
		{"inf scale", func(a *Artifact) { a.Scaler.Scale[0] = math.Inf(1) }},
		{"nan bias", func(a *Artifact) { a.Weights.Bias[2] = math.NaN() }},
		{"inf coefficient", func(a *Artifact) { a.Weights.Coefficients[1][0] = math.Inf(-1) }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := sampleArtifact()
			tc.mutate(a)
			assert.ErrorIs(t, a.Validate(), ErrCorrupt)

			store, err := NewStore(t.TempDir())
			require.NoError(t, err)
			assert.ErrorIs(t, store.Save(a), ErrCorrupt)
			_, err = store.Load()
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
	assert.NoError(t, sampleArtifact().Validate())
}
