// Package baselinestore persists baselines in a local bbolt database. The
// core stays I/O free; this is the persistence collaborator it hands
// baselines to.
package baselinestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"mcpdrift/internal/domain"
)

var ErrStoreClosed = errors.New("baseline store is closed")

// BaselineInfo is a listing entry without the full fingerprint payload.
type BaselineInfo struct {
	Key         string    `json:"key"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Hash        string    `json:"hash"`
	ToolCount   int       `json:"toolCount"`
	Accepted    bool      `json:"accepted"`
}

// Store owns one bbolt database of baselines.
type Store struct {
	mu     sync.RWMutex
	db     *bolt.DB
	logger *zap.Logger
	closed bool
}

// Open opens (creating if needed) the baseline database at path.
func Open(path string, logger *zap.Logger) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, fmt.Errorf("baseline db path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(trimmed), 0o755); err != nil {
		return nil, fmt.Errorf("ensure baseline dir: %w", err)
	}
	options := &bolt.Options{Timeout: time.Second}
	db, err := bolt.Open(trimmed, 0o600, options)
	if err != nil {
		return nil, fmt.Errorf("open baseline db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, logger: logger.Named("baselinestore")}, nil
}

// Close closes the underlying database. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// Save persists a baseline and marks it latest. The returned key identifies
// the entry for later loads.
func (s *Store) Save(baseline domain.Baseline) (string, error) {
	raw, err := json.Marshal(baseline)
	if err != nil {
		return "", fmt.Errorf("marshal baseline: %w", err)
	}
	key := baselineKey(baseline)
	err = s.update(func(tx *bolt.Tx) error {
		entries, meta, err := storeBuckets(tx)
		if err != nil {
			return err
		}
		if err := entries.Put([]byte(key), raw); err != nil {
			return fmt.Errorf("put baseline: %w", err)
		}
		return meta.Put([]byte(latestKey), []byte(key))
	})
	if err != nil {
		return "", err
	}
	s.logger.Info("baseline saved",
		zap.String("key", key),
		zap.String("hash", baseline.Hash),
		zap.Int("tools", len(baseline.Tools)))
	return key, nil
}

// Load reads a baseline by key. Older-format baselines are brought to the
// current format through the migration engine; a baseline from a newer
// format surfaces the downgrade error unchanged.
func (s *Store) Load(key string) (domain.Baseline, error) {
	var raw []byte
	err := s.view(func(tx *bolt.Tx) error {
		entries, _, err := storeBuckets(tx)
		if err != nil {
			return err
		}
		value := entries.Get([]byte(key))
		if value == nil {
			return domain.ErrBaselineNotFound
		}
		raw = append([]byte(nil), value...)
		return nil
	})
	if err != nil {
		return domain.Baseline{}, err
	}

	var baseline domain.Baseline
	if err := json.Unmarshal(raw, &baseline); err != nil {
		return domain.Baseline{}, fmt.Errorf("decode baseline %q: %w", key, err)
	}

	migrated, err := domain.MigrateBaseline(baseline)
	if err != nil {
		return domain.Baseline{}, err
	}
	if migrated.Version != baseline.Version {
		s.logger.Info("baseline migrated on load",
			zap.String("key", key),
			zap.String("from", baseline.Version),
			zap.String("to", migrated.Version))
	}
	return migrated, nil
}

// Latest loads the most recently saved baseline.
func (s *Store) Latest() (domain.Baseline, error) {
	var key string
	err := s.view(func(tx *bolt.Tx) error {
		_, meta, err := storeBuckets(tx)
		if err != nil {
			return err
		}
		value := meta.Get([]byte(latestKey))
		if value == nil {
			return domain.ErrBaselineNotFound
		}
		key = string(value)
		return nil
	})
	if err != nil {
		return domain.Baseline{}, err
	}
	return s.Load(key)
}

// List returns summaries of all stored baselines, newest first.
func (s *Store) List() ([]BaselineInfo, error) {
	var infos []BaselineInfo
	err := s.view(func(tx *bolt.Tx) error {
		entries, _, err := storeBuckets(tx)
		if err != nil {
			return err
		}
		return entries.ForEach(func(key, value []byte) error {
			var baseline domain.Baseline
			if err := json.Unmarshal(value, &baseline); err != nil {
				s.logger.Warn("skip undecodable baseline", zap.String("key", string(key)), zap.Error(err))
				return nil
			}
			infos = append(infos, BaselineInfo{
				Key:         string(key),
				Version:     baseline.Version,
				GeneratedAt: baseline.Metadata.GeneratedAt,
				Hash:        baseline.Hash,
				ToolCount:   len(baseline.Tools),
				Accepted:    baseline.Acceptance != nil,
			})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].GeneratedAt.Equal(infos[j].GeneratedAt) {
			return infos[i].GeneratedAt.After(infos[j].GeneratedAt)
		}
		return infos[i].Key > infos[j].Key
	})
	return infos, nil
}

func (s *Store) view(fn func(tx *bolt.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.View(fn)
}

func (s *Store) update(fn func(tx *bolt.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	return s.db.Update(fn)
}

// keyTimeFormat is fixed-width so lexicographic key order is chronological.
// RFC3339Nano drops trailing zeros, which would sort whole-second keys after
// sub-second ones within the same second.
const keyTimeFormat = "2006-01-02T15:04:05.000000000Z"

func baselineKey(baseline domain.Baseline) string {
	generated := baseline.Metadata.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	suffix := baseline.Hash
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return generated.UTC().Format(keyTimeFormat) + "_" + suffix
}
