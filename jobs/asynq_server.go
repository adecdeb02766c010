package jobs

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"

	"github.com/showroom-dms/showroom/internal/platform/httpx"
	"github.com/showroom-dms/showroom/internal/rbac"
)

// Worker wraps the Asynq server and optional scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler allows injecting custom Asynq handlers during worker setup.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration wires a cron expression to a prepared task.
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects dependencies required to bootstrap the worker.
type WorkerConfig struct {
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Handlers  []TaskHandler
	Cron      []CronRegistration
}

// NewWorker constructs a Worker instance.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	srv := asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			QueueDefault: 1,
		},
	})
	mux := asynq.NewServeMux()
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		mux.HandleFunc(h.Type, h.Handler)
	}

	var scheduler *asynq.Scheduler
	if len(cfg.Cron) > 0 {
		scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC})
		for _, entry := range cfg.Cron {
			if entry.Spec == "" || entry.Task == nil {
				continue
			}
			if _, err := scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, err
			}
		}
	}

	return &Worker{server: srv, mux: mux, scheduler: scheduler, logger: cfg.Logger}, nil
}

// Run starts processing jobs until context cancellation.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil {
		return errors.New("worker: not configured")
	}
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			return err
		}
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- w.server.Run(w.mux)
	}()
	select {
	case <-ctx.Done():
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
		return ctx.Err()
	case err := <-errCh:
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		return err
	}
}

// Client submits jobs to the queue.
type Client struct {
	client *asynq.Client
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client}, nil
}

// EnqueueRecoveryScan queues an on-demand recovery scan.
func (c *Client) EnqueueRecoveryScan(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error) {
	task, err := NewRecoveryScanTask(requestedBy)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, asynq.Queue(QueueDefault))
}

// Close releases client resources.
func (c *Client) Close() error {
	return c.client.Close()
}

// Enqueuer is implemented by Client.
type Enqueuer interface {
	EnqueueRecoveryScan(ctx context.Context, requestedBy string) (*asynq.TaskInfo, error)
}

// Handler exposes HTTP endpoints for job observability.
type Handler struct {
	inspector *asynq.Inspector
	enqueuer  Enqueuer
	logger    *slog.Logger
	rbac      rbac.Middleware
}

// NewHandler constructs an HTTP handler for jobs endpoints. A nil inspector
// reports an empty queue.
func NewHandler(inspector *asynq.Inspector, enqueuer Enqueuer, logger *slog.Logger, rbac rbac.Middleware) *Handler {
	return &Handler{inspector: inspector, enqueuer: enqueuer, logger: logger, rbac: rbac}
}

// MountRoutes attaches job routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/health", h.health)
	r.With(h.rbac.RequireAny(rbac.PermCreditRecovery)).Post("/recovery-scan", h.enqueueRecoveryScan)
}

type queueHealth struct {
	Queue   string `json:"queue"`
	Pending int    `json:"pending"`
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if h.inspector == nil {
		httpx.JSON(w, http.StatusOK, queueHealth{Queue: QueueDefault})
		return
	}
	info, err := h.inspector.GetQueueInfo(QueueDefault)
	if err != nil {
		h.logger.Warn("jobs health", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "queue unavailable")
		return
	}
	out := queueHealth{Queue: QueueDefault}
	if info != nil {
		out.Queue = info.Queue
		out.Pending = info.Pending
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) enqueueRecoveryScan(w http.ResponseWriter, r *http.Request) {
	if h.enqueuer == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "job queue not configured")
		return
	}
	actor, err := httpx.CurrentActor(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	info, err := h.enqueuer.EnqueueRecoveryScan(r.Context(), actor.Name)
	if err != nil {
		h.logger.Error("enqueue recovery scan", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable), "could not enqueue recovery scan")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"task_id": info.ID, "queue": info.Queue})
}
