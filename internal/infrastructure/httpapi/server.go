package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"socflow/internal/application/port/input"
	"socflow/internal/application/port/output"
	"socflow/internal/domain/entity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httplog"
)

const (
	headerOrganization = "X-Organization-ID"
	headerUser         = "X-User-ID"

	maxBodyBytes = 64 << 10

	resultTTL = time.Hour
)

type Config struct {
	Addr                string
	DefaultOrganization string
}

// Server exposes the workflow engine over HTTP. Turns for one conversation are
// processed one at a time; confirmed workflows run in the background.
type Server struct {
	cfg      Config
	engine   input.WorkflowEngine
	executor input.TaskExecutor
	metrics  http.Handler
	logger   output.LoggerPort
	locks    *conversationLocks

	mu      sync.Mutex
	results map[string]storedResult
	now     func() time.Time

	baseCtx    context.Context
	cancel     context.CancelFunc
	executions sync.WaitGroup
	httpServer *http.Server
}

func NewServer(cfg Config, engine input.WorkflowEngine, executor input.TaskExecutor, metrics http.Handler, logger output.LoggerPort) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		cfg:      cfg,
		engine:   engine,
		executor: executor,
		metrics:  metrics,
		logger:   logger,
		locks:    newConversationLocks(),
		results:  make(map[string]storedResult),
		now:      time.Now,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(httplog.RequestLogger(httplog.NewLogger("socflow", httplog.Options{JSON: true})))

	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1/conversations/{id}", func(r chi.Router) {
		r.Post("/messages", s.handleMessage)
		r.Post("/workflow", s.handleStart)
		r.Get("/workflow", s.handleGetWorkflow)
		r.Delete("/workflow", s.handleClearWorkflow)
		r.Post("/workflow/complete", s.handleComplete)
		r.Get("/result", s.handleResult)
	})

	return r
}

func (s *Server) ListenAndServe() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	s.logger.Info("HTTP server listening", "addr", s.cfg.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then cancels and waits for running
// executions.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	s.cancel()
	s.executions.Wait()
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req messageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, errors.New("message is required"))
		return
	}

	unlock := s.locks.lock(conversationID)
	defer unlock()

	turn, err := s.engine.HandleMessage(r.Context(), conversationID, req.Message, s.org(r))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.afterTurn(conversationID, turn)
	writeJSON(w, http.StatusOK, toTurnDTO(turn))
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	var req startRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.TaskType == "" {
		writeError(w, http.StatusBadRequest, errors.New("task_type is required"))
		return
	}

	unlock := s.locks.lock(conversationID)
	defer unlock()

	turn, err := s.engine.StartWorkflow(r.Context(), conversationID, entity.TaskType(req.TaskType), req.Initial, s.org(r))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}

	s.afterTurn(conversationID, turn)
	writeJSON(w, http.StatusCreated, toTurnDTO(turn))
}

func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, found, err := s.engine.GetWorkflow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeEngineError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, entity.ErrNoActiveWorkflow)
		return
	}
	writeJSON(w, http.StatusOK, toWorkflowDTO(wf))
}

func (s *Server) handleClearWorkflow(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	unlock := s.locks.lock(conversationID)
	defer unlock()

	if err := s.engine.ClearWorkflow(r.Context(), conversationID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")

	unlock := s.locks.lock(conversationID)
	defer unlock()

	if err := s.engine.CompleteWorkflow(r.Context(), conversationID); err != nil {
		s.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	res, ok := s.results[chi.URLParam(r, "id")]
	s.mu.Unlock()

	if !ok || s.now().Sub(res.at) > resultTTL {
		writeError(w, http.StatusNotFound, errors.New("no execution result for conversation"))
		return
	}
	writeJSON(w, http.StatusOK, res.dto)
}

// afterTurn starts execution once a workflow is confirmed. Without an executor
// the caller completes the workflow through the complete endpoint.
func (s *Server) afterTurn(conversationID string, turn *entity.TurnResult) {
	if turn.Kind != entity.TurnReadyToExecute || s.executor == nil || turn.Workflow == nil {
		return
	}

	wf := turn.Workflow.Clone()
	s.executions.Add(1)
	go func() {
		defer s.executions.Done()
		s.execute(conversationID, wf)
	}()
}

// execute runs wf and then finishes it. The conversation may have moved on
// while the executor ran (cleared, or a new workflow started), in which case
// the outcome is dropped and the current workflow is left alone.
func (s *Server) execute(conversationID string, wf *entity.WorkflowInstance) {
	res, err := s.executor.Execute(s.baseCtx, wf)

	unlock := s.locks.lock(conversationID)
	defer unlock()

	ctx := context.WithoutCancel(s.baseCtx)
	current, found, getErr := s.engine.GetWorkflow(ctx, conversationID)
	if getErr != nil {
		s.logger.Error("Failed to load workflow after execution", "conversationId", conversationID, "workflowId", wf.ID, "error", getErr)
		return
	}
	if !found || current.ID != wf.ID || current.State != entity.StateExecuting {
		s.logger.Warn("Discarding outcome of superseded workflow", "conversationId", conversationID, "workflowId", wf.ID)
		return
	}

	s.storeResult(conversationID, toResultDTO(wf, res, err))

	if err != nil {
		s.logger.Error("Workflow execution failed", "conversationId", conversationID, "workflowId", wf.ID, "error", err)
		if clearErr := s.engine.ClearWorkflow(ctx, conversationID); clearErr != nil {
			s.logger.Error("Failed to clear workflow", "conversationId", conversationID, "error", clearErr)
		}
		return
	}

	if err := s.engine.CompleteWorkflow(ctx, conversationID); err != nil {
		s.logger.Error("Failed to complete workflow", "conversationId", conversationID, "error", err)
	}
}

type storedResult struct {
	dto resultDTO
	at  time.Time
}

// storeResult keeps the latest result per conversation and evicts results
// older than resultTTL.
func (s *Server) storeResult(conversationID string, dto resultDTO) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, r := range s.results {
		if now.Sub(r.at) > resultTTL {
			delete(s.results, id)
		}
	}
	s.results[conversationID] = storedResult{dto: dto, at: now}
}

func (s *Server) org(r *http.Request) entity.OrgContext {
	org := entity.OrgContext{
		OrganizationID: r.Header.Get(headerOrganization),
		UserID:         r.Header.Get(headerUser),
	}
	if org.OrganizationID == "" {
		org.OrganizationID = s.cfg.DefaultOrganization
	}
	return org
}

func (s *Server) writeEngineError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrUnknownTaskType):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNoActiveWorkflow):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrWorkflowActive), errors.Is(err, entity.ErrInvalidTransition):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "error", err)
	}
	writeError(w, status, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorDTO{Error: err.Error()})
}
