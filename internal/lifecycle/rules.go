package lifecycle

import (
	"context"
	"fmt"

	"example.com/policy-portal/internal/model"
	"example.com/policy-portal/internal/store"
	"github.com/google/uuid"
)

func (s *Service) writeRuleAudit(ctx context.Context, tx *store.Store, action model.AuditAction, r *model.Rule, actor Actor) error {
	a, err := auditEntry(action, model.EntityRule, r.ID, r, actor)
	if err != nil {
		return err
	}
	policyID, ruleID := r.PolicyID, r.ID
	a.PolicyID = &policyID
	a.RuleID = &ruleID
	return tx.InsertAudit(ctx, a)
}

// CreateRule attaches a rule to a policy. Rules cannot be added to Built-in
// policies.
func (s *Service) CreateRule(ctx context.Context, policyID uuid.UUID, in RuleCreate, actor Actor) (*model.Rule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r := in.rule(policyID)
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if _, err := loadMutable(ctx, tx, policyID); err != nil {
			return err
		}
		existing, err := tx.FindRuleByName(ctx, r.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: rule %q already exists", ErrConflict, r.Name)
		}
		if err := tx.InsertRule(ctx, r); err != nil {
			return err
		}
		return s.writeRuleAudit(ctx, tx, model.AuditCreate, r, actor)
	})
	if err != nil {
		return nil, s.failed("create rule", err)
	}
	s.committed(model.EntityRule, model.AuditCreate, r.ID, actor)
	return r, nil
}

func (s *Service) ListRules(ctx context.Context, policyID uuid.UUID) ([]model.Rule, error) {
	if _, err := s.store.FindPolicyByID(ctx, policyID); err != nil {
		return nil, s.failed("list rules", err)
	}
	rs, err := s.store.FindRulesByPolicy(ctx, policyID)
	if err != nil {
		return nil, s.failed("list rules", err)
	}
	return rs, nil
}

// DeleteRule removes a single rule. Built-in rules, and rules of Built-in
// policies, are protected.
func (s *Service) DeleteRule(ctx context.Context, ruleID uuid.UUID, actor Actor) (*model.Rule, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var out *model.Rule
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		r, err := tx.FindRuleByID(ctx, ruleID)
		if err != nil {
			return err
		}
		if r.Type == model.TypeBuiltIn {
			return fmt.Errorf("%w: built-in rule %q cannot be modified", ErrForbidden, r.Name)
		}
		if _, err := loadMutable(ctx, tx, r.PolicyID); err != nil {
			return err
		}
		if err := s.writeRuleAudit(ctx, tx, model.AuditDelete, r, actor); err != nil {
			return err
		}
		out = r
		return tx.RemoveRule(ctx, ruleID)
	})
	if err != nil {
		return nil, s.failed("delete rule", err)
	}
	s.committed(model.EntityRule, model.AuditDelete, ruleID, actor)
	return out, nil
}
