// Package admin exposes the store event handler's read-only surface and
// out-of-band controls (prune trigger, metrics, health) over fasthttp.
package admin

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"hubevents/internal/retention"
	"hubevents/pkg/config"
	"hubevents/pkg/herrors"
	"hubevents/pkg/hubevents"
	"hubevents/pkg/httpx"
	"hubevents/pkg/ingest/queue"
	"hubevents/pkg/logger"
	"hubevents/pkg/utils"
)

// ingestQueueCapacity bounds the number of submitted-but-not-yet-committed
// events buffered ahead of the commit slot.
const ingestQueueCapacity = 4096

// ingestWorkerCount is the number of goroutines draining the ingest
// queue into Service.Commit.
const ingestWorkerCount = 4

// Server hosts the admin HTTP surface: point/paginated event reads,
// usage and prunability lookups, an event submit path, an out-of-band
// prune trigger, metrics, and health probes.
type Server struct {
	svc *hubevents.Service
	cfg *config.Config

	metricsHandler fasthttp.RequestHandler
	ingestQueue    *queue.Queue
}

// NewServer builds a Server bound to svc and cfg. Callers must call
// Start to bind the listener.
func NewServer(svc *hubevents.Service, cfg *config.Config) *Server {
	return &Server{
		svc:            svc,
		cfg:            cfg,
		metricsHandler: fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler()),
		ingestQueue:    queue.NewQueue(ingestQueueCapacity),
	}
}

// Start binds the admin listener and serves until ctx is canceled. The
// returned channel receives at most one error: a fatal listen/serve
// failure, or nil-never on graceful shutdown (the caller observes that
// via ctx instead).
func (s *Server) Start(ctx context.Context) <-chan error {
	startIngestWorkers(ctx, s.svc, s.ingestQueue, ingestWorkerCount)
	go s.runMetricsPoller(ctx)

	errCh := make(chan error, 1)
	server := &fasthttp.Server{
		Handler: s.route,
		Name:    "hubeventsd",
	}

	go func() {
		if err := server.ListenAndServe(s.cfg.Addr()); err != nil {
			errCh <- err
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		done := make(chan struct{})
		go func() {
			_ = server.Shutdown()
			s.ingestQueue.CloseAndDrain()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
		}
	}()

	logger.Info("admin_server_started", "addr", s.cfg.Addr())
	return errCh
}

// logged wraps h so every dispatched request gets a request-line log entry
// before the handler runs.
func logged(h httpx.HandlerFunc) httpx.HandlerFunc {
	return func(w httpx.ResponseWriter, r *httpx.Request) {
		logger.LogRequest(r)
		h(w, r)
	}
}

func (s *Server) route(ctx *fasthttp.RequestCtx) {
	path := string(ctx.Path())
	switch {
	case path == "/metrics":
		s.metricsHandler(ctx)
	case path == "/healthz":
		httpx.FastHTTPAdapter(logged(s.healthzHandler))(ctx)
	case path == "/readyz":
		httpx.FastHTTPAdapter(logged(s.readyzHandler))(ctx)
	case path == "/v1/events" && string(ctx.Method()) == "GET":
		httpx.FastHTTPAdapter(logged(s.getEventsPageHandler))(ctx)
	case path == "/v1/events/lookup" && string(ctx.Method()) == "GET":
		httpx.FastHTTPAdapter(logged(s.getEventHandler))(ctx)
	case path == "/v1/usage" && string(ctx.Method()) == "GET":
		httpx.FastHTTPAdapter(logged(s.getUsageHandler))(ctx)
	case path == "/v1/prunable" && string(ctx.Method()) == "GET":
		httpx.FastHTTPAdapter(logged(s.isPrunableHandler))(ctx)
	case path == "/v1/prune" && string(ctx.Method()) == "POST":
		httpx.FastHTTPAdapter(logged(s.pruneHandler))(ctx)
	case path == "/v1/events/submit" && string(ctx.Method()) == "POST":
		httpx.FastHTTPAdapter(logged(s.submitHandler))(ctx)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
	}
}

func (s *Server) healthzHandler(w httpx.ResponseWriter, r *httpx.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) readyzHandler(w httpx.ResponseWriter, r *httpx.Request) {
	if !s.svc.DB.Ready() {
		writeJSON(w, 503, map[string]string{"status": "not_ready"})
		return
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

func (s *Server) getEventHandler(w httpx.ResponseWriter, r *httpx.Request) {
	q := queryArgs(r)
	id, err := strconv.ParseUint(string(q.Peek("id")), 10, 64)
	if err != nil {
		writeError(w, herrors.InvalidParam("id must be a positive integer"))
		return
	}
	ev, err := s.svc.GetEvent(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, ev)
}

func (s *Server) getEventsPageHandler(w httpx.ResponseWriter, r *httpx.Request) {
	q := queryArgs(r)
	from, _ := strconv.ParseUint(string(q.Peek("from")), 10, 64)
	n, err := strconv.Atoi(string(q.Peek("n")))
	if err != nil || n <= 0 {
		n = 100
	}
	events, next, err := s.svc.GetEventsPage(from, n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]interface{}{
		"events":             events,
		"next_page_event_id": next,
	})
}

func (s *Server) getUsageHandler(w httpx.ResponseWriter, r *httpx.Request) {
	q := queryArgs(r)
	account, err := strconv.ParseUint(string(q.Peek("account")), 10, 64)
	if err != nil {
		writeError(w, herrors.InvalidParam("account must be a positive integer"))
		return
	}
	set, err := strconv.Atoi(string(q.Peek("set")))
	if err != nil {
		writeError(w, herrors.InvalidParam("set must be a set tag integer"))
		return
	}
	usage := s.svc.GetUsage(account, hubevents.SetTag(set))
	units := s.svc.GetStorageUnitsForAccount(account)
	writeJSON(w, 200, map[string]interface{}{
		"usage":         usage,
		"storage_units": units,
	})
}

func (s *Server) isPrunableHandler(w httpx.ResponseWriter, r *httpx.Request) {
	q := queryArgs(r)
	account, err1 := strconv.ParseUint(string(q.Peek("account")), 10, 64)
	ts, err2 := strconv.ParseUint(string(q.Peek("timestamp")), 10, 32)
	hash := q.Peek("hash")
	setInt, err3 := strconv.Atoi(string(q.Peek("set")))
	if err1 != nil || err2 != nil || err3 != nil || len(hash) == 0 {
		writeError(w, herrors.InvalidParam("account, timestamp, hash, and set are required"))
		return
	}

	sizeLimit := s.cfg.Oracle.DefaultSizeLimit
	if raw := q.Peek("size_limit"); len(raw) > 0 {
		if v, err := strconv.ParseUint(string(raw), 10, 32); err == nil {
			sizeLimit = uint32(v)
		}
	}
	var timeLimit *uint32
	if raw := q.Peek("time_limit"); len(raw) > 0 {
		if v, err := strconv.ParseUint(string(raw), 10, 32); err == nil {
			tl := uint32(v)
			timeLimit = &tl
		}
	}

	msg := hubevents.Message{Account: account, Timestamp: uint32(ts), Hash: append([]byte(nil), hash...)}
	prunable, err := s.svc.IsPrunable(msg, hubevents.SetTag(setInt), sizeLimit, timeLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]bool{"prunable": prunable})
}

func (s *Server) pruneHandler(w httpx.ResponseWriter, r *httpx.Request) {
	deleted, err := retention.RunImmediate()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, 200, map[string]int{"deleted": deleted})
}

func queryArgs(r *httpx.Request) *fasthttp.Args {
	ctx, ok := r.Raw.(*fasthttp.RequestCtx)
	if !ok {
		return &fasthttp.Args{}
	}
	return ctx.QueryArgs()
}

func writeJSON(w httpx.ResponseWriter, status int, v interface{}) {
	if err := utils.JSONWrite(w, status, v); err != nil {
		logger.Error("response_encode_failed", "error", err)
	}
}

func writeError(w httpx.ResponseWriter, err error) {
	status := 500
	switch {
	case errors.Is(err, herrors.ErrInvalidParam):
		status = 400
	case errors.Is(err, herrors.ErrNotFound):
		status = 404
	case errors.Is(err, herrors.ErrTooBusy):
		status = 429
	case errors.Is(err, herrors.ErrStorageFailure):
		status = 500
	}
	utils.JSONError(w, status, err.Error())
}
