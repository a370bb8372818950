package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/CS-UWC/OralSmart-sub001/pkg/common/logger"
	"github.com/CS-UWC/OralSmart-sub001/pkg/features"
)

var ErrNotCached = errors.New("no cached feature vector for patient")

// CachedVector is the last feature vector extracted for a patient.
type CachedVector struct {
	PatientID string          `json:"patient_id"`
	Vector    features.Vector `json:"vector"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// VectorCache holds the latest feature vector per patient.
type VectorCache interface {
	Put(ctx context.Context, patientID string, v features.Vector) error
	Get(ctx context.Context, patientID string) (CachedVector, error)
}

func key(patientID string) string {
	return fmt.Sprintf("risk:features:%s", patientID)
}

// FeatureStore caches vectors in Redis for the online prediction path.
type FeatureStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewFeatureStore(client redis.Cmdable, ttl time.Duration) *FeatureStore {
	return &FeatureStore{client: client, ttl: ttl}
}

func (f *FeatureStore) Put(ctx context.Context, patientID string, v features.Vector) error {
	data, err := json.Marshal(CachedVector{PatientID: patientID, Vector: v, UpdatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	logger.Log.WithFields(map[string]interface{}{
		"key":  key(patientID),
		"size": len(data),
	}).Debug("Caching features")
	return f.client.Set(ctx, key(patientID), data, f.ttl).Err()
}

func (f *FeatureStore) Get(ctx context.Context, patientID string) (CachedVector, error) {
	data, err := f.client.Get(ctx, key(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return CachedVector{}, ErrNotCached
	}
	if err != nil {
		return CachedVector{}, err
	}
	var cv CachedVector
	if err := json.Unmarshal(data, &cv); err != nil {
		return CachedVector{}, fmt.Errorf("decode cached vector: %w", err)
	}
	return cv, nil
}

// MemoryStore is the in-process VectorCache used when Redis is disabled.
type MemoryStore struct {
	items *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{items: cache.New(ttl, 10*time.Minute)}
}

func (m *MemoryStore) Put(_ context.Context, patientID string, v features.Vector) error {
	values := append([]float64(nil), v.Values...)
	m.items.Set(key(patientID), CachedVector{
		PatientID: patientID,
		Vector:    features.Vector{Version: v.Version, Values: values},
		UpdatedAt: time.Now().UTC(),
	}, cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, patientID string) (CachedVector, error) {
	item, ok := m.items.Get(key(patientID))
	if !ok {
		return CachedVector{}, ErrNotCached
	}
	return item.(CachedVector), nil
}
