package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	DefaultRetention = 12 * time.Hour
	DefaultTimeout   = 3 * time.Second
)

type Recorder interface {
	CacheResult(op, result string)
}

type envelope struct {
	StoredAt time.Time          `msgpack:"t"`
	Payload  msgpack.RawMessage `msgpack:"p"`
}

// Cache envuelve un Store con sello de tiempo, ventana de frescura y
// timeout acotado. Cualquier falla se registra y se trata como miss.
type Cache struct {
	store     Store
	log       *slog.Logger
	rec       Recorder
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
}

type Option func(*Cache)

func WithRetention(d time.Duration) Option { return func(c *Cache) { c.retention = d } }
func WithTimeout(d time.Duration) Option   { return func(c *Cache) { c.timeout = d } }
func WithRecorder(r Recorder) Option       { return func(c *Cache) { c.rec = r } }

func New(store Store, log *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		store:     store,
		log:       log,
		retention: DefaultRetention,
		timeout:   DefaultTimeout,
		now:       time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	return c
}

// Load decodifica en dst la entrada de key si existe y está fresca.
func (c *Cache) Load(ctx context.Context, key string, dst any) bool {
	if c == nil || c.store == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.fail("get", key, err)
		return false
	}
	if !found {
		c.record("get", "miss")
		return false
	}
	var env envelope
	if err := msgpack.Unmarshal(raw, &env); err != nil {
		c.fail("get", key, err)
		return false
	}
	if c.now().Sub(env.StoredAt) > c.retention {
		c.record("get", "stale")
		return false
	}
	if err := msgpack.Unmarshal(env.Payload, dst); err != nil {
		c.fail("get", key, err)
		return false
	}
	c.record("get", "hit")
	return true
}

func (c *Cache) Save(ctx context.Context, key string, v any) {
	if c == nil || c.store == nil {
		return
	}
	payload, err := msgpack.Marshal(v)
	if err != nil {
		c.fail("set", key, err)
		return
	}
	raw, err := msgpack.Marshal(envelope{StoredAt: c.now(), Payload: payload})
	if err != nil {
		c.fail("set", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Set(ctx, key, raw); err != nil {
		c.fail("set", key, err)
		return
	}
	c.record("set", "ok")
}

func (c *Cache) Clear(ctx context.Context) {
	if c == nil || c.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.store.Clear(ctx); err != nil {
		c.fail("clear", "*", err)
		return
	}
	c.record("clear", "ok")
}

func (c *Cache) fail(op, key string, err error) {
	c.log.Warn("cache operation failed", slog.String("op", op), slog.String("key", key), slog.String("err", err.Error()))
	c.record(op, "error")
}

func (c *Cache) record(op, result string) {
	if c.rec != nil {
		c.rec.CacheResult(op, result)
	}
}
