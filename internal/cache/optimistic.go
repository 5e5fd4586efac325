package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
)

type snapshotEntry struct {
	key       Key
	present   bool
	data      []byte
	stale     bool
	updatedAt time.Time
}

// Snapshot копия записей кеша до оптимистичной записи.
type Snapshot struct {
	entries []snapshotEntry
}

// Keys возвращает ключи, попавшие в снимок.
func (s *Snapshot) Keys() []Key {
	if s == nil {
		return nil
	}
	keys := make([]Key, 0, len(s.entries))
	for _, e := range s.entries {
		keys = append(keys, e.key)
	}
	return keys
}

// Merge добавляет в снимок записи other, которых в нём ещё нет.
func (s *Snapshot) Merge(other *Snapshot) *Snapshot {
	if s == nil {
		return other
	}
	if other == nil {
		return s
	}
	seen := make(map[Key]struct{}, len(s.entries))
	for _, e := range s.entries {
		seen[e.key] = struct{}{}
	}
	for _, e := range other.entries {
		if _, ok := seen[e.key]; !ok {
			s.entries = append(s.entries, e)
		}
	}
	return s
}

// Snapshot сохраняет текущее состояние указанных ключей, включая отсутствующие.
func (c *QueryCache) Snapshot(ctx context.Context, keys []Key) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked(ctx, keys)
}

func (c *QueryCache) snapshotLocked(ctx context.Context, keys []Key) (*Snapshot, error) {
	const op = "cache.Snapshot"

	snap := &Snapshot{entries: make([]snapshotEntry, 0, len(keys))}
	for _, key := range keys {
		se := snapshotEntry{key: key}
		if e, ok := c.entries[key.String()]; ok && e.hasData {
			data, found, err := c.store.Get(ctx, key.String())
			if err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
			if found {
				se.present = true
				se.data = data
				se.stale = e.stale
				se.updatedAt = e.updatedAt
			}
		}
		snap.entries = append(snap.entries, se)
	}
	return snap, nil
}

// Rollback возвращает записи из снимка в точности к сохранённому состоянию.
// Записи, которых не было в момент снимка, удаляются.
func (c *QueryCache) Rollback(ctx context.Context, snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollbackLocked(ctx, snap)
}

func (c *QueryCache) rollbackLocked(ctx context.Context, snap *Snapshot) error {
	const op = "cache.Rollback"

	for _, se := range snap.entries {
		k := se.key.String()
		if !se.present {
			if err := c.store.Delete(ctx, k); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
			if e, ok := c.entries[k]; ok {
				e.hasData = false
				e.stale = false
				e.updatedAt = time.Time{}
			}
			continue
		}
		if err := c.store.Set(ctx, k, se.data); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		e := c.entryLocked(se.key)
		e.hasData = true
		e.stale = se.stale
		e.updatedAt = se.updatedAt
	}
	return nil
}

// ApplyOptimistic отменяет загрузки по match, сохраняет снимок и применяет patch
// к каждой закешированной записи. patch возвращает false, если запись не меняется.
// При ошибке записи кеш возвращается к снимку.
func ApplyOptimistic[T any](ctx context.Context, c *QueryCache, match Matcher, patch func(Key, T) (T, bool)) (*Snapshot, error) {
	const op = "cache.ApplyOptimistic"

	c.mu.Lock()
	defer c.mu.Unlock()

	c.cancelLocked(match)
	snap, err := c.snapshotLocked(ctx, c.keysLocked(match))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := updateLocked(ctx, c, snap.Keys(), patch); err != nil {
		if rbErr := c.rollbackLocked(ctx, snap); rbErr != nil {
			c.log.Error("failed to roll back optimistic write", slog.String("op", op), sl.Err(rbErr))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

// UpdateMatching применяет patch к закешированным записям без снимка.
// Используется для записи подтверждённых сервером значений.
func UpdateMatching[T any](ctx context.Context, c *QueryCache, match Matcher, patch func(Key, T) (T, bool)) error {
	const op = "cache.UpdateMatching"

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := updateLocked(ctx, c, c.keysLocked(match), patch); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func updateLocked[T any](ctx context.Context, c *QueryCache, keys []Key, patch func(Key, T) (T, bool)) error {
	for _, key := range keys {
		data, found, err := c.store.Get(ctx, key.String())
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		var current T
		if err := json.Unmarshal(data, &current); err != nil {
			return err
		}
		next, changed := patch(key, current)
		if !changed {
			continue
		}
		if err := c.setLocked(ctx, key, next); err != nil {
			return err
		}
	}
	return nil
}
