package store

import (
	"context"
	"errors"
	"time"

	"example.com/policy-portal/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PolicyFilters are ANDed together; nil fields match everything.
type PolicyFilters struct {
	Category *model.Category
	Type     *model.PolicyType
	Status   *bool
}

type Page struct {
	Skip  int
	Limit int
}

func (f PolicyFilters) apply(q *gorm.DB) *gorm.DB {
	if f.Category != nil {
		q = q.Where("category = ?", string(*f.Category))
	}
	if f.Type != nil {
		q = q.Where("type = ?", string(*f.Type))
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	return q
}

// FindPolicyByName returns nil without error when no policy has that name.
func (s *Store) FindPolicyByName(ctx context.Context, name string) (*model.Policy, error) {
	var p model.Policy
	err := s.conn(ctx).Where("name = ?", name).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find policy by name", err)
	}
	return &p, nil
}

func (s *Store) FindPolicyByID(ctx context.Context, id uuid.UUID) (*model.Policy, error) {
	var p model.Policy
	if err := s.conn(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, wrap("find policy", err)
	}
	return &p, nil
}

// FindPolicies orders by creation time then id so offset pagination is stable.
func (s *Store) FindPolicies(ctx context.Context, f PolicyFilters, page Page) ([]model.Policy, error) {
	ps := []model.Policy{}
	q := f.apply(s.conn(ctx).Model(&model.Policy{}))
	err := q.Order("created_at ASC, id ASC").Offset(page.Skip).Limit(page.Limit).Find(&ps).Error
	if err != nil {
		return nil, wrap("find policies", err)
	}
	return ps, nil
}

func (s *Store) CountPolicies(ctx context.Context, f PolicyFilters) (int64, error) {
	var n int64
	if err := f.apply(s.conn(ctx).Model(&model.Policy{})).Count(&n).Error; err != nil {
		return 0, wrap("count policies", err)
	}
	return n, nil
}

func (s *Store) InsertPolicy(ctx context.Context, p *model.Policy) error {
	if err := s.conn(ctx).Create(p).Error; err != nil {
		return wrap("insert policy", err)
	}
	return nil
}

// ApplyPolicyUpdate writes only the given columns, refreshes updated_at and
// returns the stored row.
func (s *Store) ApplyPolicyUpdate(ctx context.Context, id uuid.UUID, fields map[string]any) (*model.Policy, error) {
	cols := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		cols[k] = v
	}
	cols["updated_at"] = time.Now()
	res := s.conn(ctx).Model(&model.Policy{}).Where("id = ?", id).Updates(cols)
	if res.Error != nil {
		return nil, wrap("update policy", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, wrap("update policy", gorm.ErrRecordNotFound)
	}
	return s.FindPolicyByID(ctx, id)
}

// RemovePolicy deletes the policy and every rule it owns.
func (s *Store) RemovePolicy(ctx context.Context, id uuid.UUID) error {
	db := s.conn(ctx)
	if err := db.Where("policy_id = ?", id).Delete(&model.Rule{}).Error; err != nil {
		return wrap("delete policy rules", err)
	}
	res := db.Where("id = ?", id).Delete(&model.Policy{})
	if res.Error != nil {
		return wrap("delete policy", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("delete policy", gorm.ErrRecordNotFound)
	}
	return nil
}
