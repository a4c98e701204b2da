package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/AngelCh415/lp-report/internal/cache"
	"github.com/AngelCh415/lp-report/internal/telemetry"
	"github.com/AngelCh415/lp-report/internal/utils"
)

// ErrSourceUnavailable: falta API key o id de planilla; el llamador usa el fixture.
var ErrSourceUnavailable = errors.New("source unavailable")

const placeholderKey = "your_api_key_here"

// ValuesGetter lee un rango de una planilla como matriz de celdas.
type ValuesGetter interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
}

type SheetsAPI struct{ svc *sheets.Service }

// NewSheetsAPI devuelve nil (sin error) si la key no está configurada.
func NewSheetsAPI(ctx context.Context, apiKey string) (*SheetsAPI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" || apiKey == placeholderKey {
		return nil, nil
	}
	svc, err := sheets.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &SheetsAPI{svc: svc}, nil
}

func (a *SheetsAPI) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	vr, err := a.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return vr.Values, nil
}

// RowSource entrega una hoja parseada. force salta la cache; cacheOnly nunca
// va a la red y un miss devuelve tabla vacía.
type RowSource interface {
	Rows(ctx context.Context, force, cacheOnly bool) (Table, error)
}

// Sheet es una pestaña concreta de una planilla, con cache por planilla+pestaña.
type Sheet struct {
	api           ValuesGetter
	cache         *cache.Cache
	tm            *telemetry.Metrics
	log           *slog.Logger
	backoff       utils.Backoff
	SpreadsheetID string
	Name          string
}

func NewSheet(api ValuesGetter, spreadsheetID, name string, c *cache.Cache, tm *telemetry.Metrics, log *slog.Logger) *Sheet {
	if log == nil {
		log = slog.Default()
	}
	return &Sheet{
		api:           api,
		cache:         c,
		tm:            tm,
		log:           log,
		backoff:       utils.NewBackoff(200*time.Millisecond, 2),
		SpreadsheetID: spreadsheetID,
		Name:          name,
	}
}

func (s *Sheet) configured() bool {
	return s != nil && s.SpreadsheetID != "" && s.api != nil
}

func (s *Sheet) cacheKey() string { return "sheet:" + s.SpreadsheetID + ":" + s.Name }

func (s *Sheet) Rows(ctx context.Context, force, cacheOnly bool) (Table, error) {
	if !s.configured() {
		return Table{}, ErrSourceUnavailable
	}
	if !force || cacheOnly {
		var t Table
		if s.cache.Load(ctx, s.cacheKey(), &t) {
			return t, nil
		}
		if cacheOnly {
			return Table{}, nil
		}
	}

	start := time.Now()
	var values [][]any
	err := s.backoff.Do(ctx, retryable, func(i int) error {
		if i > 0 {
			s.log.Warn("retrying sheet fetch", slog.String("sheet", s.Name), slog.Int("attempt", i+1))
		}
		var err error
		values, err = s.api.Get(ctx, s.SpreadsheetID, s.Name)
		return err
	})
	s.tm.ObserveFetch(s.Name, err, time.Since(start))
	if err != nil {
		return Table{}, fmt.Errorf("fetch sheet %q: %w", s.Name, err)
	}

	t := ParseRows(values)
	s.log.Debug("sheet fetched", slog.String("sheet", s.Name), slog.Int("rows", len(t.Rows)))
	s.cache.Save(ctx, s.cacheKey(), t)
	return t, nil
}

// solo se reintenta 429, 5xx y timeouts de red
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests || gerr.Code >= 500
	}
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
