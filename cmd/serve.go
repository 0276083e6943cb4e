package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/taxakollen/taxa-cli/internal/ingest"
	"github.com/taxakollen/taxa-cli/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start webhook server accepting scraped fee records",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		tables, err := loadTables()
		if err != nil {
			return eris.Wrap(err, "load reference tables")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		run, err := st.CreateRun(ctx)
		if err != nil {
			return eris.Wrap(err, "create run")
		}

		p := pipeline.New(cfg.Pipeline, tables)
		r := newRouter(p)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			if err := shutdownServer(srv, 10*time.Second); err != nil {
				zap.L().Warn("server shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("starting server", zap.Int("port", port), zap.String("run_id", run.ID))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			_ = st.FailRun(ctx, run.ID)
			return eris.Wrap(err, "server listen")
		}

		// Persist whatever the run accumulated before the signal.
		stats := p.Stats()
		if err := st.SaveClusters(cmd.Context(), run.ID, p.Clusters()); err != nil {
			_ = st.FailRun(cmd.Context(), run.ID)
			return eris.Wrap(err, "save clusters")
		}
		if err := st.CompleteRun(cmd.Context(), run.ID, &stats); err != nil {
			return eris.Wrap(err, "complete run")
		}

		p.LogSummary()
		return nil
	},
}

// shutdownServer drains in-flight requests before stopping. It runs on
// a fresh context: the signal context is already canceled by the time
// shutdown starts and would abort the drain immediately.
func shutdownServer(srv *http.Server, timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newRouter(p *pipeline.Pipeline) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{cfg.Server.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	limiter := rate.NewLimiter(rate.Limit(cfg.Server.IngestRate), cfg.Server.IngestBurst)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/stats", func(w http.ResponseWriter, req *http.Request) {
		stats := p.Stats()
		writeJSON(w, http.StatusOK, stats)
	})

	r.Get("/representatives", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, p.Representatives())
	})

	r.Post("/ingest", func(w http.ResponseWriter, req *http.Request) {
		if !limiter.Allow() {
			http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
			return
		}

		rec, err := ingest.Decode(req.Body)
		if err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}

		outcome := p.Process(rec)
		writeJSON(w, http.StatusOK, map[string]any{
			"cluster_id": outcome.ClusterID,
			"strategy":   outcome.Strategy,
			"duplicate":  outcome.Duplicate,
			"quality":    outcome.Representative.QualityScore,
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
