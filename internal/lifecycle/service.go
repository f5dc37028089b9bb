// Package lifecycle governs how policies and their rules change. Every
// mutation commits together with exactly one audit entry.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"example.com/policy-portal/internal/metrics"
	"example.com/policy-portal/internal/model"
	"example.com/policy-portal/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type Filters = store.PolicyFilters

type Page = store.Page

type Service struct {
	store   *store.Store
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewService(st *store.Store, log *zap.Logger, m *metrics.Metrics) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: st, log: log, metrics: m}
}

func (s *Service) Store() *store.Store { return s.store }

func auditEntry(action model.AuditAction, entity string, entityID uuid.UUID, changes any, actor Actor) (*model.AuditLog, error) {
	b, err := json.Marshal(changes)
	if err != nil {
		return nil, fmt.Errorf("encode audit changes: %w", err)
	}
	return &model.AuditLog{
		Action:     action,
		EntityType: entity,
		EntityID:   entityID,
		Changes:    datatypes.JSON(b),
		UserID:     actor.ID,
	}, nil
}

func (s *Service) writeAudit(ctx context.Context, tx *store.Store, action model.AuditAction, p *model.Policy, changes any, actor Actor) error {
	a, err := auditEntry(action, model.EntityPolicy, p.ID, changes, actor)
	if err != nil {
		return err
	}
	id := p.ID
	a.PolicyID = &id
	return tx.InsertAudit(ctx, a)
}

// committed records a successful mutation after its transaction commits.
func (s *Service) committed(entity string, action model.AuditAction, id uuid.UUID, actor Actor) {
	s.metrics.ObserveMutation(entity, string(action))
	s.log.Info("mutation committed",
		zap.String("entity", entity),
		zap.String("action", string(action)),
		zap.String("id", id.String()),
		zap.String("actor", actor.ID.String()),
	)
}

func (s *Service) failed(op string, err error) error {
	err = classify(err)
	if errors.Is(err, ErrPersistence) {
		s.log.Error("operation failed", zap.String("op", op), zap.Error(err))
	}
	return err
}

func validatePage(p Page) (Page, error) {
	if p.Skip < 0 {
		return p, invalid("skip must be non-negative")
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}
	if p.Limit < 0 || p.Limit > MaxLimit {
		return p, invalid("limit must be between 1 and %d", MaxLimit)
	}
	return p, nil
}

func validateFilters(f Filters) error {
	if f.Category != nil && !f.Category.Valid() {
		return invalid("unknown category %q", *f.Category)
	}
	if f.Type != nil && !f.Type.Valid() {
		return invalid("unknown type %q", *f.Type)
	}
	return nil
}

// List returns policies matching every supplied filter, oldest first.
func (s *Service) List(ctx context.Context, f Filters, page Page) ([]model.Policy, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	page, err := validatePage(page)
	if err != nil {
		return nil, err
	}
	ps, err := s.store.FindPolicies(ctx, f, page)
	if err != nil {
		return nil, s.failed("list", err)
	}
	return ps, nil
}

func (s *Service) Count(ctx context.Context, f Filters) (int64, error) {
	if err := validateFilters(f); err != nil {
		return 0, err
	}
	n, err := s.store.CountPolicies(ctx, f)
	if err != nil {
		return 0, s.failed("count", err)
	}
	return n, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Policy, error) {
	p, err := s.store.FindPolicyByID(ctx, id)
	if err != nil {
		return nil, s.failed("get", err)
	}
	return p, nil
}

func (s *Service) Create(ctx context.Context, in PolicyCreate, actor Actor) (*model.Policy, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	p := in.policy()
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		existing, err := tx.FindPolicyByName(ctx, p.Name)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: policy %q already exists", ErrConflict, p.Name)
		}
		if err := tx.InsertPolicy(ctx, p); err != nil {
			return err
		}
		return s.writeAudit(ctx, tx, model.AuditCreate, p, snapshot(p), actor)
	})
	if err != nil {
		return nil, s.failed("create", err)
	}
	s.committed(model.EntityPolicy, model.AuditCreate, p.ID, actor)
	return p, nil
}

// loadMutable fetches a policy and rejects Built-in ones.
func loadMutable(ctx context.Context, tx *store.Store, id uuid.UUID) (*model.Policy, error) {
	p, err := tx.FindPolicyByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Type == model.TypeBuiltIn {
		return nil, fmt.Errorf("%w: built-in policy %q cannot be modified", ErrForbidden, p.Name)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in PolicyUpdate, actor Actor) (*model.Policy, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out *model.Policy
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		p, err := loadMutable(ctx, tx, id)
		if err != nil {
			return err
		}
		if in.Name != nil && *in.Name != p.Name {
			other, err := tx.FindPolicyByName(ctx, *in.Name)
			if err != nil {
				return err
			}
			if other != nil {
				return fmt.Errorf("%w: policy %q already exists", ErrConflict, *in.Name)
			}
		}
		fields := in.fields()
		if err := s.writeAudit(ctx, tx, model.AuditUpdate, p, fields, actor); err != nil {
			return err
		}
		out, err = tx.ApplyPolicyUpdate(ctx, id, fields)
		return err
	})
	if err != nil {
		return nil, s.failed("update", err)
	}
	s.committed(model.EntityPolicy, model.AuditUpdate, id, actor)
	return out, nil
}

// Delete removes the policy and its rules, returning the last stored state.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor Actor) (*model.Policy, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var out *model.Policy
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		p, err := loadMutable(ctx, tx, id)
		if err != nil {
			return err
		}
		if err := s.writeAudit(ctx, tx, model.AuditDelete, p, snapshot(p), actor); err != nil {
			return err
		}
		out = p
		return tx.RemovePolicy(ctx, id)
	})
	if err != nil {
		return nil, s.failed("delete", err)
	}
	s.committed(model.EntityPolicy, model.AuditDelete, id, actor)
	return out, nil
}

// ToggleStatus flips the enabled flag. Built-in policies may be toggled.
func (s *Service) ToggleStatus(ctx context.Context, id uuid.UUID, actor Actor) (*model.Policy, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var (
		out    *model.Policy
		action model.AuditAction
	)
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		p, err := tx.FindPolicyByID(ctx, id)
		if err != nil {
			return err
		}
		next := !p.Status
		action = model.AuditDisable
		if next {
			action = model.AuditEnable
		}
		fields := map[string]any{"status": next}
		if err := s.writeAudit(ctx, tx, action, p, fields, actor); err != nil {
			return err
		}
		out, err = tx.ApplyPolicyUpdate(ctx, id, fields)
		return err
	})
	if err != nil {
		return nil, s.failed("toggle", err)
	}
	s.committed(model.EntityPolicy, action, id, actor)
	return out, nil
}

// ListAudit returns the audit trail of a policy. The trail outlives the policy.
func (s *Service) ListAudit(ctx context.Context, policyID uuid.UUID) ([]model.AuditLog, error) {
	logs, err := s.store.FindAuditByPolicy(ctx, policyID)
	if err != nil {
		return nil, s.failed("list audit", err)
	}
	return logs, nil
}

type policySnapshot struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Category    model.Category   `json:"category"`
	Type        model.PolicyType `json:"type"`
	Priority    int              `json:"priority"`
	Status      bool             `json:"status"`
}

func snapshot(p *model.Policy) policySnapshot {
	return policySnapshot{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Type:        p.Type,
		Priority:    p.Priority,
		Status:      p.Status,
	}
}
