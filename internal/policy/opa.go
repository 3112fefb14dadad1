// Package policy admits or rejects candidate models with OPA before they
// reach planning.
package policy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/open-policy-agent/opa/rego"

	"github.com/af-corp/aegis-modelplan/internal/config"
	"github.com/af-corp/aegis-modelplan/internal/types"
)

const (
	query = "[data.modelplan.policy.allow, data.modelplan.policy.reason]"

	defaultEvaluationTimeout = 100 * time.Millisecond
)

var errNoModules = errors.New("no rego modules found")

// Input is the document a policy sees for one candidate.
type Input struct {
	Candidate types.DiscoveredModel `json:"candidate"`
	Time      InputTime             `json:"time"`
}

type InputTime struct {
	Hour int    `json:"hour"`
	Day  string `json:"day"`
}

// Rejection records why a candidate was not admitted.
type Rejection struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// Evaluator runs the admission policy.
type Evaluator struct {
	mu       sync.RWMutex
	prepared *rego.PreparedEvalQuery
	cfg      func() config.PolicyConfig
	now      func() time.Time
}

// NewEvaluator creates an evaluator. Call Load to compile policies.
func NewEvaluator(cfg func() config.PolicyConfig) *Evaluator {
	return &Evaluator{cfg: cfg, now: time.Now}
}

func (e *Evaluator) Enabled() bool { return e.cfg().Enabled }

// Load compiles the .rego files under the configured bundle path.
func (e *Evaluator) Load() error {
	cfg := e.cfg()
	modules, err := LoadRegoFiles(cfg.BundlePath)
	if err != nil {
		return fmt.Errorf("load rego files: %w", err)
	}
	if err := e.LoadFromModules(modules); err != nil {
		return err
	}
	slog.Info("opa policies loaded", "modules", len(modules), "path", cfg.BundlePath)
	return nil
}

// LoadFromModules compiles policies from module sources keyed by file name.
func (e *Evaluator) LoadFromModules(modules map[string]string) error {
	if len(modules) == 0 {
		return errNoModules
	}
	names := make([]string, 0, len(modules))
	for name := range modules {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := []func(*rego.Rego){rego.Query(query)}
	for _, name := range names {
		opts = append(opts, rego.Module(name, modules[name]))
	}

	prepared, err := rego.New(opts...).PrepareForEval(context.Background())
	if err != nil {
		return fmt.Errorf("prepare rego: %w", err)
	}

	e.mu.Lock()
	e.prepared = &prepared
	e.mu.Unlock()
	return nil
}

// Evaluate runs the policy for one input. Without compiled policies every
// candidate is rejected.
func (e *Evaluator) Evaluate(ctx context.Context, input Input) (bool, string, error) {
	e.mu.RLock()
	prepared := e.prepared
	e.mu.RUnlock()

	if prepared == nil {
		return false, "no policies loaded", nil
	}

	timeout := e.cfg().EvaluationTimeout
	if timeout == 0 {
		timeout = defaultEvaluationTimeout
	}
	evalCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	results, err := prepared.Eval(evalCtx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Sprintf("policy evaluation error: %v", err), err
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, "no policy result", nil
	}

	arr, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok || len(arr) < 2 {
		return false, "unexpected policy result format", nil
	}
	allowed, _ := arr[0].(bool)
	reason, _ := arr[1].(string)
	return allowed, reason, nil
}

// Admit returns the candidates the policy allows, in input order, and the
// rejected ones with reasons. When the evaluator is disabled every
// candidate is admitted. Evaluation errors reject the candidate.
func (e *Evaluator) Admit(ctx context.Context, models []types.DiscoveredModel) ([]types.DiscoveredModel, []Rejection) {
	if !e.Enabled() {
		return models, nil
	}

	now := e.now().UTC()
	at := InputTime{Hour: now.Hour(), Day: now.Weekday().String()}

	admitted := make([]types.DiscoveredModel, 0, len(models))
	var rejected []Rejection
	for _, m := range models {
		allowed, reason, err := e.Evaluate(ctx, Input{Candidate: m, Time: at})
		if err != nil {
			slog.Error("policy evaluation failed", "model", m.Model, "error", err)
		}
		if !allowed {
			rejected = append(rejected, Rejection{Model: m.Model, Reason: reason})
			continue
		}
		admitted = append(admitted, m)
	}
	return admitted, rejected
}
