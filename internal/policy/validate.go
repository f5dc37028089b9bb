package policy

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/google/cel-go/cel"
)

// Conditions is the decoded form of a rule's conditions document. Keys other
// than expr are carried opaquely.
type Conditions struct {
	Expr string `json:"expr"`
}

// Scope is the decoded form of a rule's scope document.
type Scope struct {
	Resources []string `json:"resources"`
}

// NewEnv declares the variables a rule condition may reference.
func NewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("resource", cel.StringType),
		cel.Variable("attributes", cel.MapType(cel.StringType, cel.DynType)),
	)
}

func ParseConditions(raw []byte) (Conditions, error) {
	var c Conditions
	if len(raw) == 0 || string(raw) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("conditions must be a JSON object: %w", err)
	}
	return c, nil
}

func ParseScope(raw []byte) (Scope, error) {
	var s Scope
	if len(raw) == 0 || string(raw) == "null" {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return s, fmt.Errorf("scope must be a JSON object: %w", err)
	}
	return s, nil
}

// Compile type-checks expr and requires a boolean result.
func Compile(env *cel.Env, expr string) (cel.Program, error) {
	if expr == "" {
		return nil, errors.New("expr must not be empty")
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss := env.Check(ast)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	out := checked.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expr must evaluate to bool, got %s", out)
	}
	return env.Program(checked)
}

func ValidateConditions(raw []byte) error {
	c, err := ParseConditions(raw)
	if err != nil {
		return err
	}
	if c.Expr == "" {
		return nil
	}
	env, err := NewEnv()
	if err != nil {
		return err
	}
	if _, err := Compile(env, c.Expr); err != nil {
		return fmt.Errorf("invalid condition expr: %w", err)
	}
	return nil
}

func ValidateScope(raw []byte) error {
	s, err := ParseScope(raw)
	if err != nil {
		return err
	}
	for _, p := range s.Resources {
		if _, err := glob.Compile(p); err != nil {
			return fmt.Errorf("invalid scope pattern %q: %w", p, err)
		}
	}
	return nil
}

// MatchScope reports whether resource falls inside the scope. An empty scope
// matches everything.
func MatchScope(s Scope, resource string) (bool, error) {
	if len(s.Resources) == 0 {
		return true, nil
	}
	for _, p := range s.Resources {
		if p == "" || p == "*" {
			return true, nil
		}
		g, err := glob.Compile(p)
		if err != nil {
			return false, err
		}
		if g.Match(resource) {
			return true, nil
		}
	}
	return false, nil
}
