package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"clip-embed/internal/app"
	"clip-embed/internal/embeddings"
	"clip-embed/internal/httputil"
	"clip-embed/internal/queue"
)

const maxRequestBody = 1 << 20

type embedRequest struct {
	ImageURL string `json:"image_url" validate:"required,http_url"`
}

type similarityRequest struct {
	ImageURLs []string `json:"image_urls" validate:"required,len=2,dive,required,http_url"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx)
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			deps.Log.Error("shutdown failed", "err", err)
		}
	}()

	addr := fmt.Sprintf(":%d", deps.Config.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("embedder listening", "addr", addr, "model", deps.Config.ModelID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if deps.Queue != nil {
		g.Go(func() error {
			return deps.Queue.Serve(ctx, embedReply(deps))
		})
	}

	if err := g.Wait(); err != nil {
		deps.Log.Error("embedder stopped", "err", err)
	}
}

func newRouter(deps app.Deps) *chi.Mux {
	r := httputil.NewRouter(deps.Log, deps.Config.RequestTimeout)

	r.Post("/embed", embedHandler(deps))
	r.Post("/similarity", similarityHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	if deps.Config.MetricsEnabled {
		r.Handle("/metrics", httputil.MetricsHandler())
	}
	return r
}

func embedHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if req.ImageURL == "" {
			httputil.Fail(deps.Log, w, "invalid payload", embeddings.ErrMissingField, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		log := deps.Log.With("image_url", req.ImageURL, "request_id", middleware.GetReqID(r.Context()))
		vec, err := deps.Embedder.Embed(r.Context(), req.ImageURL)
		if err != nil {
			respondError(log, w, r, "embedding failed", err)
			return
		}
		if err := httputil.WriteJSON(w, http.StatusOK, vec); err != nil {
			log.Error("failed to write embedding", "err", err)
		}
	}
}

func similarityHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req similarityRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}

		vecs := make([]embeddings.Vector, len(req.ImageURLs))
		g, ctx := errgroup.WithContext(r.Context())
		for i, u := range req.ImageURLs {
			i, u := i, u
			g.Go(func() error {
				vec, err := deps.Embedder.Embed(ctx, u)
				if err != nil {
					return fmt.Errorf("%s: %w", u, err)
				}
				vecs[i] = vec
				return nil
			})
		}
		log := deps.Log.With("request_id", middleware.GetReqID(r.Context()))
		if err := g.Wait(); err != nil {
			respondError(log, w, r, "similarity failed", err)
			return
		}

		err := httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"similarity": embeddings.CosineSimilarity(vecs[0], vecs[1]),
		})
		if err != nil {
			log.Error("failed to write similarity", "err", err)
		}
	}
}

// embedReply answers NATS requests with the same pipeline and error mapping as /embed.
func embedReply(deps app.Deps) queue.Handler {
	return func(ctx context.Context, req queue.Request) queue.Reply {
		if err := httputil.Validator.Var(req.ImageURL, "required,http_url"); err != nil {
			deps.Log.Warn("invalid queued request", "id", req.ID, "err", err)
			return queue.Reply{Error: http.StatusText(http.StatusBadRequest)}
		}
		vec, err := deps.Embedder.Embed(ctx, req.ImageURL)
		if err != nil {
			status := statusFor(err)
			deps.Log.Error("embedding failed", "id", req.ID, "image_url", req.ImageURL, "err", err, "status", status)
			return queue.Reply{Error: http.StatusText(status)}
		}
		return queue.Reply{Embedding: vec}
	}
}

// respondError writes the status for err, unless the request timeout already
// fired and the router is answering 504 on its own.
func respondError(log *slog.Logger, w http.ResponseWriter, r *http.Request, message string, err error) {
	if httputil.TimedOut(r) {
		log.Warn(message, "err", err, "status", http.StatusGatewayTimeout)
		return
	}
	httputil.Fail(log, w, message, err, statusFor(err))
}

// statusFor maps pipeline errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, embeddings.ErrMissingField):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, embeddings.ErrFetch):
		return http.StatusBadGateway
	case errors.Is(err, embeddings.ErrDecode):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
