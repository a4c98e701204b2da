package ingest

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/lp-report/internal/config"
	"github.com/AngelCh415/lp-report/internal/metrics"
	"github.com/AngelCh415/lp-report/internal/models"
	"github.com/AngelCh415/lp-report/internal/reconcile"
	"github.com/AngelCh415/lp-report/internal/store"
	"github.com/AngelCh415/lp-report/internal/telemetry"
)

var ErrSinkNotConfigured = errors.New("sink not configured")

// Sources son las dos hojas que alimentan la conciliación.
type Sources struct {
	Conversions RowSource
	Costs       RowSource
}

type ETL struct {
	src Sources
	c   HTTPClient
	st  *store.MemoryStore
	log *slog.Logger
	cfg config.Config
	tm  *telemetry.Metrics
	now func() time.Time

	mu sync.Mutex // un refresh a la vez
}

func NewETL(src Sources, c HTTPClient, st *store.MemoryStore, log *slog.Logger, cfg config.Config, tm *telemetry.Metrics) *ETL {
	if log == nil {
		log = slog.Default()
	}
	return &ETL{src: src, c: c, st: st, log: log, cfg: cfg, tm: tm, now: time.Now}
}

// Result resume un refresh.
type Result struct {
	Conversions  int             `json:"conversions"`
	Costs        int             `json:"costs"`
	UsingFixture bool            `json:"using_fixture"`
	Stale        bool            `json:"stale"`
	Allocation   reconcile.Stats `json:"allocation"`
}

type dataset struct {
	conversions  []models.ConversionRecord
	costs        []models.CostRecord
	usingFixture bool
}

// Run trae ambas hojas en paralelo, concilia costos y publica el snapshot.
// Ante un error de transporte se conserva el snapshot anterior.
func (e *ETL) Run(ctx context.Context, force bool) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.cfg.HTTPTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.HTTPTimeout)
		defer cancel()
	}

	ds, err := e.fetch(ctx, force, false)
	if err != nil {
		e.tm.ObserveRefresh(err)
		e.log.Error("ingest failed", slog.Bool("force", force), slog.String("err", err.Error()))
		return Result{}, err
	}
	res := e.publish(ds, false)
	e.tm.ObserveRefresh(nil)
	e.log.Info("ingest complete",
		slog.Int("conversions", res.Conversions),
		slog.Int("costs", res.Costs),
		slog.Int("direct", res.Allocation.Direct),
		slog.Int("fallback", res.Allocation.Fallback),
		slog.Int("unallocated", res.Allocation.Unallocated),
		slog.Bool("fixture", res.UsingFixture))
	return res, nil
}

// LoadCached publica lo que haya en cache, marcado stale, sin tocar la red.
// No pisa un snapshot ya revalidado. ok=false si la cache no tenía conversiones.
func (e *ETL) LoadCached(ctx context.Context) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st.Fresh() {
		return Result{}, false
	}
	ds, err := e.fetch(ctx, false, true)
	if err != nil {
		e.log.Warn("cached load failed", slog.String("err", err.Error()))
		return Result{}, false
	}
	if len(ds.conversions) == 0 {
		e.log.Info("no cached dataset")
		return Result{}, false
	}
	res := e.publish(ds, true)
	e.log.Info("serving cached dataset", slog.Int("conversions", res.Conversions), slog.Int("costs", res.Costs))
	return res, true
}

func (e *ETL) fetch(ctx context.Context, force, cacheOnly bool) (dataset, error) {
	var (
		ds                       dataset
		convFixture, costFixture bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ds.conversions, convFixture, err = e.fetchConversions(gctx, force, cacheOnly)
		return err
	})
	g.Go(func() error {
		var err error
		ds.costs, costFixture, err = e.fetchCosts(gctx, force, cacheOnly)
		return err
	})
	if err := g.Wait(); err != nil {
		return dataset{}, err
	}
	ds.usingFixture = convFixture || costFixture
	return ds, nil
}

func (e *ETL) fetchConversions(ctx context.Context, force, cacheOnly bool) ([]models.ConversionRecord, bool, error) {
	t, err := rows(ctx, e.src.Conversions, force, cacheOnly)
	if errors.Is(err, ErrSourceUnavailable) {
		if cacheOnly {
			return nil, false, nil
		}
		e.log.Warn("conversion source not configured, using fixture")
		return FixtureConversions(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("conversions: %w", err)
	}
	return ParseConversions(t), false, nil
}

// a diferencia de conversiones, una hoja de costos vacía también cae al fixture
func (e *ETL) fetchCosts(ctx context.Context, force, cacheOnly bool) ([]models.CostRecord, bool, error) {
	t, err := rows(ctx, e.src.Costs, force, cacheOnly)
	if err != nil && !errors.Is(err, ErrSourceUnavailable) {
		return nil, false, fmt.Errorf("costs: %w", err)
	}
	if err != nil || len(t.Rows) == 0 {
		if cacheOnly {
			return nil, false, nil
		}
		e.log.Warn("no cost data, using fixture")
		return FixtureCosts(), true, nil
	}
	return ParseCosts(t), false, nil
}

func rows(ctx context.Context, src RowSource, force, cacheOnly bool) (Table, error) {
	if src == nil {
		return Table{}, ErrSourceUnavailable
	}
	return src.Rows(ctx, force, cacheOnly)
}

func (e *ETL) publish(ds dataset, stale bool) Result {
	recs, stats := reconcile.Allocate(ds.conversions, ds.costs)
	e.tm.ObserveAllocation(stats.Direct, stats.Fallback, stats.Unallocated, stats.Excluded)
	e.st.Publish(store.Snapshot{
		Records:      recs,
		Options:      metrics.Options(recs),
		LoadedAt:     e.now(),
		Stale:        stale,
		UsingFixture: ds.usingFixture,
	})
	return Result{
		Conversions:  len(recs),
		Costs:        len(ds.costs),
		UsingFixture: ds.usingFixture,
		Stale:        stale,
		Allocation:   stats,
	}
}

// ExportReport firma el reporte con HMAC-SHA256 y lo envía al sink.
// Devuelve la cantidad de filas exportadas (comercios + total).
func (e *ETL) ExportReport(ctx context.Context, rep metrics.Report) (int, error) {
	if e.cfg.SinkURL == "" || e.cfg.SinkSecret == "" {
		return 0, ErrSinkNotConfigured
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return 0, fmt.Errorf("encode report: %w", err)
	}
	mac := hmac.New(sha256.New, []byte(e.cfg.SinkSecret))
	mac.Write(b)
	sig := hex.EncodeToString(mac.Sum(nil))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.SinkURL, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", sig)
	resp, err := e.c.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("export sink non-2xx: %d body=%s", resp.StatusCode, body)
	}
	n := len(rep.Merchants) + 1
	e.log.Info("report exported", slog.String("section", rep.Section), slog.Int("rows", n))
	return n, nil
}
