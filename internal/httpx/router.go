package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/AngelCh415/lp-report/internal/cache"
	"github.com/AngelCh415/lp-report/internal/export"
	"github.com/AngelCh415/lp-report/internal/ingest"
	"github.com/AngelCh415/lp-report/internal/metrics"
	"github.com/AngelCh415/lp-report/internal/telemetry"
	"github.com/AngelCh415/lp-report/internal/utils"
)

func NewRouter(log *slog.Logger, etl *ingest.ETL, mSvc *metrics.Service, c *cache.Cache, tm *telemetry.Metrics, origins []string) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(log, tm))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:         300,
	}))

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if !mSvc.Ready() {
			http.Error(w, "no dataset loaded", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
		w.Write([]byte("ready"))
	})
	mux.Method(http.MethodGet, "/metrics", tm.Handler())

	mux.Post("/ingest/run", func(w http.ResponseWriter, r *http.Request) {
		force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
		res, err := etl.Run(r.Context(), force)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, res)
	})

	mux.Get("/report", func(w http.ResponseWriter, r *http.Request) {
		rep, ok := report(w, r, mSvc)
		if !ok {
			return
		}
		writeJSON(w, rep)
	})

	mux.Get("/report/table", func(w http.ResponseWriter, r *http.Request) {
		rep, ok := report(w, r, mSvc)
		if !ok {
			return
		}
		writeJSON(w, export.Build(rep))
	})

	mux.Get("/report.csv", func(w http.ResponseWriter, r *http.Request) {
		rep, ok := report(w, r, mSvc)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(rep.Section)+`"`)
		// BOM para que Excel detecte UTF-8
		w.Write([]byte("\ufeff"))
		if err := export.WriteCSV(w, export.CSVTable(rep)); err != nil {
			log.Error("csv write failed", slog.String("rid", utils.RID(r.Context())), slog.String("err", err.Error()))
		}
	})

	mux.Get("/filters", func(w http.ResponseWriter, r *http.Request) {
		opts, err := mSvc.FilterOptions()
		if err != nil {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, opts)
	})

	mux.Get("/assumptions", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, mSvc.Assumptions(r.URL.Query().Get("section")))
	})

	mux.Put("/assumptions", func(w http.ResponseWriter, r *http.Request) {
		var p metrics.AssumptionsPatch
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
		if err := dec.Decode(&p); err != nil {
			http.Error(w, "bad assumptions body: "+err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(w, mSvc.UpdateAssumptions(r.URL.Query().Get("section"), p))
	})

	mux.Post("/cache/clear", func(w http.ResponseWriter, r *http.Request) {
		c.Clear(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})

	mux.Post("/export/run", func(w http.ResponseWriter, r *http.Request) {
		rep, ok := report(w, r, mSvc)
		if !ok {
			return
		}
		n, err := etl.ExportReport(r.Context(), rep)
		if errors.Is(err, ingest.ErrSinkNotConfigured) {
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(w, map[string]any{"exported": n})
	})

	return mux
}

// report resuelve el reporte del query y escribe el error si lo hay.
func report(w http.ResponseWriter, r *http.Request, mSvc *metrics.Service) (metrics.Report, bool) {
	rep, err := mSvc.Report(r.URL.Query())
	switch {
	case errors.Is(err, metrics.ErrNoData):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return rep, false
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return rep, false
	}
	return rep, true
}

func writeJSON(w http.ResponseWriter, v any) {
	b, err := json.MarshalIndent(v, "", " ")
	if err != nil {
		slog.Error("json encode failed", slog.String("err", err.Error()))
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(append(b, '\n'))
}
