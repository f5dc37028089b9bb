package eval

import (
	"context"
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"example.com/policy-portal/internal/model"
	"example.com/policy-portal/internal/policy"
	"example.com/policy-portal/internal/store"
)

type Engine struct {
	store *store.Store
	env   *cel.Env
}

func NewEngine(st *store.Store) (*Engine, error) {
	env, err := policy.NewEnv()
	if err != nil {
		return nil, err
	}
	return &Engine{store: st, env: env}, nil
}

type Request struct {
	Resource   string         `json:"resource"`
	Attributes map[string]any `json:"attributes"`
}

type Match struct {
	RuleID    uuid.UUID        `json:"rule_id"`
	PolicyID  uuid.UUID        `json:"policy_id"`
	Rule      string           `json:"rule"`
	Action    model.RuleAction `json:"action"`
	RiskLevel *model.RiskLevel `json:"risk_level,omitempty"`
}

type TraceItem struct {
	RuleID uuid.UUID `json:"rule_id"`
	Result bool      `json:"result"`
	Reason string    `json:"reason,omitempty"`
	Error  string    `json:"error,omitempty"`
}

type Decision struct {
	// Action is the first matching action other than Ignore, empty if none.
	Action  model.RuleAction `json:"action,omitempty"`
	Matches []Match          `json:"matches"`
	Trace   []TraceItem      `json:"trace"`
}

// Evaluate runs req against every enabled rule of every enabled policy, in
// policy priority then rule priority order.
func (e *Engine) Evaluate(ctx context.Context, req Request) (*Decision, error) {
	rules, err := e.store.FindActiveRules(ctx)
	if err != nil {
		return nil, err
	}
	if req.Attributes == nil {
		req.Attributes = map[string]any{}
	}
	d := &Decision{Matches: []Match{}, Trace: []TraceItem{}}
	for _, r := range rules {
		item := e.evaluateRule(r, req)
		d.Trace = append(d.Trace, item)
		if !item.Result {
			continue
		}
		d.Matches = append(d.Matches, Match{
			RuleID:    r.ID,
			PolicyID:  r.PolicyID,
			Rule:      r.Name,
			Action:    r.Action,
			RiskLevel: r.RiskLevel,
		})
		if d.Action == "" && r.Action != model.ActionIgnore {
			d.Action = r.Action
		}
	}
	return d, nil
}

func (e *Engine) evaluateRule(r model.Rule, req Request) TraceItem {
	item := TraceItem{RuleID: r.ID}
	scope, err := policy.ParseScope(r.Scope)
	if err != nil {
		item.Error = "scope: " + err.Error()
		return item
	}
	in, err := policy.MatchScope(scope, req.Resource)
	if err != nil {
		item.Error = "scope: " + err.Error()
		return item
	}
	if !in {
		item.Reason = "resource out of scope"
		return item
	}
	cond, err := policy.ParseConditions(r.Conditions)
	if err != nil {
		item.Error = "conditions: " + err.Error()
		return item
	}
	if cond.Expr == "" {
		item.Result = true
		return item
	}
	prog, err := policy.Compile(e.env, cond.Expr)
	if err != nil {
		item.Error = "compile: " + err.Error()
		return item
	}
	out, _, err := prog.Eval(map[string]any{
		"resource":   req.Resource,
		"attributes": req.Attributes,
	})
	if err != nil {
		item.Error = "runtime: " + err.Error()
		return item
	}
	b, ok := out.Value().(bool)
	if !ok {
		item.Error = fmt.Sprintf("non-boolean result %v", out.Value())
		return item
	}
	item.Result = b
	if !b {
		item.Reason = "conditions not met"
	}
	return item
}
