package preferences

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/af-corp/aegis-modelplan/internal/planconfig"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

// Operation names accepted by Tool.Execute.
const (
	OpShow       = "show"
	OpPlan       = "plan"
	OpApply      = "apply"
	OpResetAgent = "reset-agent"
)

// Operations lists the supported operations in display order.
var Operations = []string{OpShow, OpPlan, OpApply, OpResetAgent}

// Outcome classifies a Result for metrics and status codes.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeRefused  Outcome = "refused"
	OutcomeRejected Outcome = "rejected"
)

// Args are the tool inputs. Plan is an untyped payload checked by the
// Validator.
type Args struct {
	Operation string `json:"operation"`
	Plan      any    `json:"plan,omitempty"`
	Agent     string `json:"agent,omitempty"`
	Confirm   bool   `json:"confirm,omitempty"`
}

// Result is the human-readable reply of an operation.
type Result struct {
	Text    string  `json:"text"`
	Outcome Outcome `json:"outcome"`
}

// Locker serializes the read-modify-write cycle of apply and reset-agent.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// Tool implements the show, plan, apply and reset-agent operations.
type Tool struct {
	store     Store
	locker    Locker
	validator Validator
}

// NewTool returns a Tool. A nil validator means SchemaValidator.
func NewTool(store Store, locker Locker, validator Validator) *Tool {
	if validator == nil {
		validator = SchemaValidator{}
	}
	return &Tool{store: store, locker: locker, validator: validator}
}

// Execute runs one operation. Configuration read and write failures are
// returned as errors; everything else, including validation failures, is
// reported in the Result and leaves the file untouched.
func (t *Tool) Execute(ctx context.Context, args Args) (Result, error) {
	switch args.Operation {
	case OpShow:
		return t.show(ctx)
	case OpPlan:
		return t.plan(ctx, args.Plan)
	case OpApply:
		return t.apply(ctx, args.Plan, args.Confirm)
	case OpResetAgent:
		return t.resetAgent(ctx, args.Agent)
	default:
		return Result{
			Text:    fmt.Sprintf("Unsupported operation %q. Expected one of: %s", args.Operation, strings.Join(Operations, ", ")),
			Outcome: OutcomeRejected,
		}, nil
	}
}

// Preview validates raw against the current configuration and returns the
// configuration apply would write, without writing it.
func (t *Tool) Preview(ctx context.Context, raw any) (*planconfig.Config, []FieldError, error) {
	cfg, err := t.load(ctx)
	if err != nil {
		return nil, nil, err
	}
	plan, errs := t.validator.Validate(raw)
	if len(errs) > 0 {
		return nil, errs, nil
	}
	return Compile(cfg, plan), nil, nil
}

func (t *Tool) load(ctx context.Context) (*planconfig.Config, error) {
	cfg, err := t.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func (t *Tool) show(ctx context.Context) (Result, error) {
	cfg, err := t.load(ctx)
	if err != nil {
		return Result{}, err
	}
	body, err := stringify(map[string]any{"manualPlan": DeriveManualPlan(cfg)})
	if err != nil {
		return Result{}, err
	}
	return Result{Text: fmt.Sprintf("Loaded: %s\n\n%s", t.store.Path(), body), Outcome: OutcomeOK}, nil
}

type previewAgent struct {
	Model string `json:"model,omitempty"`
}

func (t *Tool) plan(ctx context.Context, raw any) (Result, error) {
	preview, errs, err := t.Preview(ctx, raw)
	if err != nil {
		return Result{}, err
	}
	if len(errs) > 0 {
		return invalidPlan(errs)
	}

	agents := make(map[types.Role]previewAgent, len(types.Roles()))
	for _, role := range types.Roles() {
		agents[role] = previewAgent{Model: preview.Agents[string(role)].Model}
	}
	body, err := stringify(map[string]any{
		"agents":   agents,
		"fallback": preview.Fallback,
	})
	if err != nil {
		return Result{}, err
	}
	return Result{Text: "Plan preview (no write):\n\n" + body, Outcome: OutcomeOK}, nil
}

func (t *Tool) apply(ctx context.Context, raw any, confirm bool) (Result, error) {
	if !confirm {
		return Result{Text: "Refusing apply without confirm=true.", Outcome: OutcomeRefused}, nil
	}

	release, err := t.locker.Acquire(ctx, t.store.Path())
	if err != nil {
		return Result{}, err
	}
	defer release()

	next, errs, err := t.Preview(ctx, raw)
	if err != nil {
		return Result{}, err
	}
	if len(errs) > 0 {
		return invalidPlan(errs)
	}

	backup, err := t.store.Save(ctx, next)
	if err != nil {
		return Result{}, fmt.Errorf("save configuration: %w", err)
	}

	path := t.store.Path()
	text := fmt.Sprintf("Applied manual plan to %s.", path)
	if backup != "" {
		text += fmt.Sprintf(" Backup written as %s.", backup)
	}
	text += " Restart OpenCode for new sessions."
	return Result{Text: text, Outcome: OutcomeOK}, nil
}

func (t *Tool) resetAgent(ctx context.Context, agent string) (Result, error) {
	role, err := types.ParseRole(agent)
	if err != nil {
		return Result{
			Text:    "Invalid agent. Expected one of: " + strings.Join(types.RoleNames(), ", "),
			Outcome: OutcomeRejected,
		}, nil
	}

	release, err := t.locker.Acquire(ctx, t.store.Path())
	if err != nil {
		return Result{}, err
	}
	defer release()

	cfg, err := t.load(ctx)
	if err != nil {
		return Result{}, err
	}
	plan := DeriveManualPlan(cfg)
	plan[role] = DeriveAgentPlan(cfg, role)

	if _, err := t.store.Save(ctx, Compile(cfg, plan)); err != nil {
		return Result{}, fmt.Errorf("save configuration: %w", err)
	}
	return Result{
		Text:    fmt.Sprintf("Reset agent %s and wrote updated plan to %s.", role, t.store.Path()),
		Outcome: OutcomeOK,
	}, nil
}

func invalidPlan(errs []FieldError) (Result, error) {
	body, err := stringify(errs)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: "Invalid plan:\n" + body, Outcome: OutcomeInvalid}, nil
}

// stringify renders v as two-space indented JSON with a trailing newline.
func stringify(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("render result: %w", err)
	}
	return string(data) + "\n", nil
}
