// Package api serves dynamic plans, plan explanations, runtime chain
// resolution and the manual preference operations over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/aegis-modelplan/internal/auth"
	"github.com/af-corp/aegis-modelplan/internal/httputil"
	"github.com/af-corp/aegis-modelplan/internal/precedence"
	"github.com/af-corp/aegis-modelplan/internal/preferences"
	"github.com/af-corp/aegis-modelplan/internal/router"
	"github.com/af-corp/aegis-modelplan/internal/scoring"
	"github.com/af-corp/aegis-modelplan/internal/telemetry"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

const maxBodyBytes = 1 << 20

// Planner builds dynamic plans and explanations.
type Planner interface {
	Plan(ctx context.Context) (*types.DynamicPlan, error)
	Explain(ctx context.Context, role types.Role) ([]scoring.ScoredCandidate, error)
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	planner  Planner
	tool     *preferences.Tool
	store    preferences.Store
	health   *router.HealthTracker
	resolver *router.Resolver
	metrics  *telemetry.Metrics
	version  string

	// catalogVersion reports the catalog binary version; nil when the
	// binary source is off.
	catalogVersion func(ctx context.Context) (string, error)

	// admin wraps handlers that need an admin key. Identity when admin
	// auth is disabled.
	admin func(http.Handler) http.Handler
}

type Options struct {
	Planner Planner
	Tool    *preferences.Tool
	Store   preferences.Store
	Health  *router.HealthTracker
	Metrics *telemetry.Metrics
	Version string
	Admin   func(http.Handler) http.Handler

	CatalogVersion func(ctx context.Context) (string, error)
}

func NewHandler(opts Options) *Handler {
	admin := opts.Admin
	if admin == nil {
		admin = func(next http.Handler) http.Handler { return next }
	}
	return &Handler{
		planner:  opts.Planner,
		tool:     opts.Tool,
		store:    opts.Store,
		health:   opts.Health,
		resolver: router.NewResolver(opts.Health),
		metrics:  opts.Metrics,
		version:  opts.Version,
		admin:    admin,

		catalogVersion: opts.CatalogVersion,
	}
}

type healthResponse struct {
	Status         string                 `json:"status"`
	Version        string                 `json:"version"`
	CatalogVersion string                 `json:"catalog_version,omitempty"`
	CatalogError   string                 `json:"catalog_error,omitempty"`
	Providers      []router.ProviderState `json:"providers"`
}

// Health handles GET /v1/health. An unreachable catalog binary degrades
// the status but still answers 200.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "healthy",
		Version:   h.version,
		Providers: h.health.Snapshot(),
	}
	if h.catalogVersion != nil {
		v, err := h.catalogVersion(r.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.CatalogError = err.Error()
		} else {
			resp.CatalogVersion = v
		}
	}
	httputil.WriteJSON(w, RequestIDFromContext(r.Context()), http.StatusOK, resp)
}

// Plan handles GET /v1/plan
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	plan, err := h.planner.Plan(r.Context())
	if err != nil {
		slog.Error("plan build failed", "request_id", reqID, "error", err)
		httputil.WriteServiceUnavailableError(w, reqID, "Plan build failed: "+err.Error())
		return
	}
	if plan == nil {
		httputil.WriteNotFoundError(w, reqID, "no_plan", "No enabled provider has a candidate model")
		return
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, plan)
}

type explainResponse struct {
	Role       types.Role                `json:"role"`
	Candidates []scoring.ScoredCandidate `json:"candidates"`
}

// Explain handles GET /v1/plan/{role}/explain
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	role, err := types.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	ranked, err := h.planner.Explain(r.Context(), role)
	if err != nil {
		slog.Error("explain failed", "request_id", reqID, "role", role, "error", err)
		httputil.WriteServiceUnavailableError(w, reqID, "Explain failed: "+err.Error())
		return
	}
	if ranked == nil {
		ranked = []scoring.ScoredCandidate{}
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, explainResponse{Role: role, Candidates: ranked})
}

type routeResponse struct {
	Role       types.Role          `json:"role"`
	Model      string              `json:"model"`
	Chain      []string            `json:"chain"`
	Provenance []precedence.Source `json:"provenance"`
	Skipped    []string            `json:"skipped,omitempty"`
}

// Route handles GET /v1/route/{role}: the role's persisted chain merged
// with the system default, resolved against provider health.
func (h *Handler) Route(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	role, err := types.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	cfg, err := h.store.Load(r.Context())
	if err != nil {
		slog.Error("load configuration failed", "request_id", reqID, "path", h.store.Path(), "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to load configuration: "+err.Error())
		return
	}

	var manual []string
	if primary := cfg.AgentPrimary(role); primary != "" {
		manual = append([]string{primary}, cfg.FallbackChain(role)...)
	}
	merged := precedence.Resolve(precedence.Input{
		Role:          role,
		Manual:        manual,
		SystemDefault: preferences.SystemDefault,
	})

	res, err := h.resolver.Resolve(merged.Chain)
	if errors.Is(err, router.ErrNoHealthyModel) {
		h.recordResolution(role, "exhausted")
		httputil.WriteServiceUnavailableError(w, reqID, "Every provider in the chain is unavailable")
		return
	}
	outcome := "primary"
	if len(res.Skipped) > 0 {
		outcome = "fallback"
	}
	h.recordResolution(role, outcome)

	httputil.WriteJSON(w, reqID, http.StatusOK, routeResponse{
		Role:       role,
		Model:      res.Model,
		Chain:      merged.Chain,
		Provenance: merged.Provenance,
		Skipped:    res.Skipped,
	})
}

func (h *Handler) recordResolution(role types.Role, outcome string) {
	if h.metrics != nil {
		h.metrics.RecordChainResolution(string(role), outcome)
	}
}

type reportRequest struct {
	Success *bool `json:"success"`
}

type reportResponse struct {
	Provider string `json:"provider"`
	State    string `json:"state"`
}

// ReportProvider handles POST /v1/providers/{provider}/report
func (h *Handler) ReportProvider(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	provider := chi.URLParam(r, "provider")

	var req reportRequest
	if err := decodeBody(r, &req); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}
	if req.Success == nil {
		httputil.WriteBadRequestError(w, reqID, "success is required")
		return
	}

	h.health.Report(provider, *req.Success)
	state := h.health.Breaker(provider).State()
	if info, ok := auth.AuthFromContext(r.Context()); ok {
		slog.Info("provider health reported", "request_id", reqID, "provider", provider, "success", *req.Success, "state", state.String(), "key_id", info.KeyID)
	}
	httputil.WriteJSON(w, reqID, http.StatusOK, reportResponse{Provider: provider, State: state.String()})
}

// Preferences handles POST /v1/preferences. show and plan are open;
// apply and reset-agent go through the admin middleware.
func (h *Handler) Preferences(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var args preferences.Args
	if err := decodeBody(r, &args); err != nil {
		httputil.WriteBadRequestError(w, reqID, "Invalid JSON: "+err.Error())
		return
	}

	run := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.runPreferences(w, r, args)
	})
	switch args.Operation {
	case preferences.OpApply, preferences.OpResetAgent:
		h.admin(run).ServeHTTP(w, r)
	default:
		run.ServeHTTP(w, r)
	}
}

func (h *Handler) runPreferences(w http.ResponseWriter, r *http.Request, args preferences.Args) {
	reqID := RequestIDFromContext(r.Context())

	res, err := h.tool.Execute(r.Context(), args)
	if err != nil {
		if h.metrics != nil {
			h.metrics.RecordPreferenceOp(args.Operation, "error")
		}
		slog.Error("preference operation failed", "request_id", reqID, "operation", args.Operation, "error", err)
		httputil.WriteInternalError(w, reqID, err.Error())
		return
	}
	if h.metrics != nil {
		h.metrics.RecordPreferenceOp(args.Operation, string(res.Outcome))
	}
	slog.Info("preference operation", "request_id", reqID, "operation", args.Operation, "outcome", res.Outcome)
	httputil.WriteJSON(w, reqID, outcomeStatus(res.Outcome), res)
}

func outcomeStatus(o preferences.Outcome) int {
	switch o {
	case preferences.OutcomeInvalid:
		return http.StatusUnprocessableEntity
	case preferences.OutcomeRefused:
		return http.StatusConflict
	case preferences.OutcomeRejected:
		return http.StatusBadRequest
	default:
		return http.StatusOK
	}
}

func decodeBody(r *http.Request, dest any) error {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dest)
}
