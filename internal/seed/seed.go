// Package seed installs the built-in policy catalogue.
package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"example.com/policy-portal/internal/model"
	"example.com/policy-portal/internal/store"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

type Catalogue struct {
	Policies []PolicySpec `yaml:"policies"`
}

type PolicySpec struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Category    model.Category `yaml:"category"`
	Priority    int            `yaml:"priority"`
	Status      *bool          `yaml:"status"`
	Rules       []RuleSpec     `yaml:"rules"`
}

type RuleSpec struct {
	Name             string           `yaml:"name"`
	Description      string           `yaml:"description"`
	Category         string           `yaml:"category"`
	Priority         int              `yaml:"priority"`
	Action           model.RuleAction `yaml:"action"`
	RiskLevel        model.RiskLevel  `yaml:"risk_level"`
	RemediationSteps string           `yaml:"remediation_steps"`
	Conditions       map[string]any   `yaml:"conditions"`
	Scope            map[string]any   `yaml:"scope"`
}

func Load(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalogue, error) {
	var c Catalogue
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	for _, p := range c.Policies {
		if p.Name == "" {
			return nil, fmt.Errorf("catalogue policy without name")
		}
		if !p.Category.Valid() {
			return nil, fmt.Errorf("policy %q: unknown category %q", p.Name, p.Category)
		}
		for _, r := range p.Rules {
			if !r.Action.Valid() {
				return nil, fmt.Errorf("rule %q: unknown action %q", r.Name, r.Action)
			}
			if r.RiskLevel != "" && !r.RiskLevel.Valid() {
				return nil, fmt.Errorf("rule %q: unknown risk level %q", r.Name, r.RiskLevel)
			}
		}
	}
	return &c, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func document(m map[string]any) (datatypes.JSON, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (r RuleSpec) rule(p *model.Policy) (*model.Rule, error) {
	cond, err := document(r.Conditions)
	if err != nil {
		return nil, fmt.Errorf("rule %q conditions: %w", r.Name, err)
	}
	scope, err := document(r.Scope)
	if err != nil {
		return nil, fmt.Errorf("rule %q scope: %w", r.Name, err)
	}
	rule := &model.Rule{
		Name:             r.Name,
		Description:      optional(r.Description),
		Category:         r.Category,
		Type:             model.TypeBuiltIn,
		Priority:         r.Priority,
		Status:           true,
		Action:           r.Action,
		RemediationSteps: optional(r.RemediationSteps),
		Conditions:       cond,
		Scope:            scope,
		PolicyID:         p.ID,
	}
	if r.RiskLevel != "" {
		lvl := r.RiskLevel
		rule.RiskLevel = &lvl
	}
	return rule, nil
}

// Apply inserts every catalogue policy that does not exist yet, as Built-in,
// together with its rules and a Create audit entry. It returns the number of
// policies inserted.
func Apply(ctx context.Context, st *store.Store, c *Catalogue, log *zap.Logger) (int, error) {
	inserted := 0
	for _, spec := range c.Policies {
		created := false
		err := st.Transaction(ctx, func(tx *store.Store) error {
			existing, err := tx.FindPolicyByName(ctx, spec.Name)
			if err != nil || existing != nil {
				return err
			}
			p := &model.Policy{
				Name:        spec.Name,
				Description: optional(spec.Description),
				Category:    spec.Category,
				Type:        model.TypeBuiltIn,
				Priority:    spec.Priority,
				Status:      spec.Status == nil || *spec.Status,
			}
			if err := tx.InsertPolicy(ctx, p); err != nil {
				return err
			}
			for _, rs := range spec.Rules {
				r, err := rs.rule(p)
				if err != nil {
					return err
				}
				if err := tx.InsertRule(ctx, r); err != nil {
					return err
				}
			}
			changes, err := json.Marshal(map[string]any{"seeded": true, "name": p.Name, "rules": len(spec.Rules)})
			if err != nil {
				return err
			}
			id := p.ID
			created = true
			return tx.InsertAudit(ctx, &model.AuditLog{
				Action:     model.AuditCreate,
				EntityType: model.EntityPolicy,
				EntityID:   p.ID,
				Changes:    changes,
				UserID:     model.SystemUserID,
				PolicyID:   &id,
			})
		})
		if err != nil {
			return inserted, fmt.Errorf("seed policy %q: %w", spec.Name, err)
		}
		if created {
			inserted++
			log.Info("seeded built-in policy", zap.String("name", spec.Name), zap.Int("rules", len(spec.Rules)))
		}
	}
	return inserted, nil
}
