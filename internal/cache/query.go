package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/magabrotheeeer/fintrack-gateway/internal/lib/sl"
	"github.com/magabrotheeeer/fintrack-gateway/internal/metrics"
)

// ErrCancelled возвращается, если загрузка была отменена через CancelQueries,
// а в кеше для ключа ещё нет данных.
var ErrCancelled = errors.New("query cancelled")

// Key составной ключ запроса: область (тип сущности) и нормализованные параметры.
type Key struct {
	Scope  string
	Params string
}

// String возвращает строковое представление ключа для хранилища.
func (k Key) String() string {
	if k.Params == "" {
		return k.Scope
	}
	return k.Scope + "?" + k.Params
}

// Matcher отбирает ключи для групповых операций.
type Matcher func(Key) bool

// ScopeMatcher совпадает со всеми ключами области, с любыми параметрами.
func ScopeMatcher(scope string) Matcher {
	return func(k Key) bool { return k.Scope == scope }
}

// ExactMatcher совпадает только с указанным ключом.
func ExactMatcher(key Key) Matcher {
	return func(k Key) bool { return k == key }
}

// AnyOf объединяет несколько matcher'ов.
func AnyOf(matchers ...Matcher) Matcher {
	return func(k Key) bool {
		for _, m := range matchers {
			if m(k) {
				return true
			}
		}
		return false
	}
}

// FetchFunc загружает значение для ключа из внешнего источника.
type FetchFunc func(ctx context.Context) (any, error)

type entry struct {
	key       Key
	hasData   bool
	stale     bool
	updatedAt time.Time
	usedAt    time.Time
	gen       uint64
	cancel    context.CancelFunc
}

// DefaultGCTime время, после которого неиспользуемая запись удаляется из кеша.
const DefaultGCTime = 5 * time.Minute

// QueryCache кеш запросов. Передаётся явно во все сервисы.
//
// Порядок записей по ключу: последний записавший побеждает. Чтобы загрузка не
// затёрла оптимистичное значение, перед записью нужно вызвать CancelQueries.
// Записи, к которым не обращались дольше gcTime, удаляет Collect.
type QueryCache struct {
	store  Store
	log    *slog.Logger
	now    func() time.Time
	gcTime time.Duration

	mu      sync.Mutex
	entries map[string]*entry
	group   singleflight.Group
}

// Option настройка QueryCache.
type Option func(*QueryCache)

// WithGCTime задаёт время жизни неиспользуемой записи. Неположительное значение
// оставляет DefaultGCTime.
func WithGCTime(d time.Duration) Option {
	return func(c *QueryCache) {
		if d > 0 {
			c.gcTime = d
		}
	}
}

// New создаёт кеш запросов поверх хранилища.
func New(store Store, log *slog.Logger, opts ...Option) *QueryCache {
	c := &QueryCache{
		store:   store,
		log:     log,
		now:     time.Now,
		gcTime:  DefaultGCTime,
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *QueryCache) entryLocked(key Key) *entry {
	e, ok := c.entries[key.String()]
	if !ok {
		e = &entry{key: key}
		c.entries[key.String()] = e
	}
	e.usedAt = c.now()
	return e
}

// Fetch возвращает свежее значение из кеша или загружает его через fn.
// Значение считается свежим, если оно не помечено устаревшим и моложе staleTime.
// Одновременные загрузки одного ключа объединяются. Общая загрузка не зависит
// от контекста вызывающего: уход одного клиента не обрывает её для остальных,
// он лишь перестаёт ждать. Прервать загрузку можно только через CancelQueries.
func (c *QueryCache) Fetch(ctx context.Context, key Key, staleTime time.Duration, out any, fn FetchFunc) error {
	const op = "cache.Fetch"

	c.mu.Lock()
	if e, ok := c.entries[key.String()]; ok && e.hasData && !e.stale && c.now().Sub(e.updatedAt) < staleTime {
		e.usedAt = c.now()
		found, err := c.getLocked(ctx, key, out)
		c.mu.Unlock()
		if err == nil && found {
			metrics.CacheRequests.WithLabelValues(key.Scope, "hit").Inc()
			return nil
		}
		if err != nil {
			c.log.Warn("failed to read cached query", slog.String("key", key.String()), sl.Err(err))
		}
	} else {
		c.mu.Unlock()
	}

	metrics.CacheRequests.WithLabelValues(key.Scope, "miss").Inc()
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key.String(), func() (any, error) {
		return c.load(loadCtx, key, fn)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
	if res.Err != nil {
		return fmt.Errorf("%s: %w", op, res.Err)
	}
	if err := json.Unmarshal(res.Val.([]byte), out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *QueryCache) load(ctx context.Context, key Key, fn FetchFunc) ([]byte, error) {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	e := c.entryLocked(key)
	gen := e.gen
	e.cancel = cancel
	c.mu.Unlock()

	result, fetchErr := fn(fetchCtx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if e.gen != gen {
		metrics.CacheRequests.WithLabelValues(key.Scope, "superseded").Inc()
		return c.currentLocked(ctx, key)
	}
	e.cancel = nil
	if fetchErr != nil {
		return nil, fetchErr
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	if err := c.store.Set(ctx, key.String(), data); err != nil {
		c.log.Warn("failed to store query result", slog.String("key", key.String()), sl.Err(err))
		return data, nil
	}
	e.hasData = true
	e.stale = false
	e.updatedAt = c.now()
	return data, nil
}

// currentLocked возвращает то, что лежит в кеше после отмены загрузки.
func (c *QueryCache) currentLocked(ctx context.Context, key Key) ([]byte, error) {
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return nil, ErrCancelled
	}
	data, found, err := c.store.Get(ctx, key.String())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrCancelled
	}
	return data, nil
}

// Get читает значение из кеша без загрузки.
func (c *QueryCache) Get(ctx context.Context, key Key, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.getLocked(ctx, key, out)
}

func (c *QueryCache) getLocked(ctx context.Context, key Key, out any) (bool, error) {
	const op = "cache.Get"
	e, ok := c.entries[key.String()]
	if !ok || !e.hasData {
		return false, nil
	}
	e.usedAt = c.now()
	data, found, err := c.store.Get(ctx, key.String())
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if !found {
		e.hasData = false
		return false, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return true, nil
}

// Set записывает значение и помечает его свежим.
func (c *QueryCache) Set(ctx context.Context, key Key, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setLocked(ctx, key, value)
}

func (c *QueryCache) setLocked(ctx context.Context, key Key, value any) error {
	const op = "cache.Set"
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := c.store.Set(ctx, key.String(), data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	e := c.entryLocked(key)
	e.hasData = true
	e.stale = false
	e.updatedAt = c.now()
	return nil
}

// CancelQueries отменяет загрузки по совпавшим ключам. Результаты отменённых
// загрузок в кеш не попадают.
func (c *QueryCache) CancelQueries(match Matcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked(match)
}

func (c *QueryCache) cancelLocked(match Matcher) {
	for _, e := range c.entries {
		if !match(e.key) {
			continue
		}
		if e.cancel != nil {
			e.cancel()
			e.cancel = nil
		}
		e.gen++
	}
}

// Invalidate помечает совпавшие записи устаревшими, следующий Fetch их перезагрузит.
func (c *QueryCache) Invalidate(match Matcher) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if match(e.key) {
			e.stale = true
		}
	}
}

// Remove отменяет загрузки и удаляет совпавшие записи.
func (c *QueryCache) Remove(ctx context.Context, match Matcher) error {
	const op = "cache.Remove"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if !match(e.key) {
			continue
		}
		if e.cancel != nil {
			e.cancel()
		}
		e.gen++
		if err := c.store.Delete(ctx, k); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		delete(c.entries, k)
	}
	return nil
}

// Keys возвращает ключи записей с данными, отсортированные по строковому виду.
func (c *QueryCache) Keys(match Matcher) []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keysLocked(match)
}

func (c *QueryCache) keysLocked(match Matcher) []Key {
	keys := make([]Key, 0)
	for _, e := range c.entries {
		if e.hasData && match(e.key) {
			keys = append(keys, e.key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// IsStale сообщает, помечена ли запись устаревшей. Для отсутствующей записи true.
func (c *QueryCache) IsStale(key Key) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	return !ok || !e.hasData || e.stale
}

// Collect удаляет записи, к которым не обращались дольше gcTime, вместе с данными
// в хранилище. Записи с идущей загрузкой не трогаются. Возвращает число удалённых.
func (c *QueryCache) Collect(ctx context.Context) (int, error) {
	const op = "cache.Collect"

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for k, e := range c.entries {
		if e.cancel != nil || now.Sub(e.usedAt) < c.gcTime {
			continue
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return removed, fmt.Errorf("%s: %w", op, err)
		}
		delete(c.entries, k)
		metrics.CacheRequests.WithLabelValues(e.key.Scope, "evicted").Inc()
		removed++
	}
	return removed, nil
}

// RunGC вызывает Collect каждые interval до отмены ctx.
func (c *QueryCache) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = c.gcTime / 5
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := c.Collect(ctx)
			if err != nil {
				c.log.Warn("failed to collect idle queries", sl.Err(err))
				continue
			}
			if removed > 0 {
				c.log.Debug("collected idle queries", slog.Int("removed", removed))
			}
		}
	}
}
