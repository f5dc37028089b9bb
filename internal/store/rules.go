package store

import (
	"context"
	"errors"

	"example.com/policy-portal/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (s *Store) FindRuleByName(ctx context.Context, name string) (*model.Rule, error) {
	var r model.Rule
	err := s.conn(ctx).Where("name = ?", name).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrap("find rule by name", err)
	}
	return &r, nil
}

func (s *Store) FindRuleByID(ctx context.Context, id uuid.UUID) (*model.Rule, error) {
	var r model.Rule
	if err := s.conn(ctx).First(&r, "id = ?", id).Error; err != nil {
		return nil, wrap("find rule", err)
	}
	return &r, nil
}

func (s *Store) FindRulesByPolicy(ctx context.Context, policyID uuid.UUID) ([]model.Rule, error) {
	rs := []model.Rule{}
	err := s.conn(ctx).Where("policy_id = ?", policyID).Order("priority ASC, name ASC").Find(&rs).Error
	if err != nil {
		return nil, wrap("find rules", err)
	}
	return rs, nil
}

// FindActiveRules returns enabled rules whose owning policy is also enabled,
// in evaluation order.
func (s *Store) FindActiveRules(ctx context.Context) ([]model.Rule, error) {
	rs := []model.Rule{}
	err := s.conn(ctx).Model(&model.Rule{}).
		Select("rules.*").
		Joins("JOIN policies ON policies.id = rules.policy_id").
		Where("rules.status = ? AND policies.status = ?", true, true).
		Order("policies.priority ASC, rules.priority ASC, rules.name ASC").
		Find(&rs).Error
	if err != nil {
		return nil, wrap("find active rules", err)
	}
	return rs, nil
}

func (s *Store) InsertRule(ctx context.Context, r *model.Rule) error {
	if err := s.conn(ctx).Create(r).Error; err != nil {
		return wrap("insert rule", err)
	}
	return nil
}

func (s *Store) RemoveRule(ctx context.Context, id uuid.UUID) error {
	res := s.conn(ctx).Where("id = ?", id).Delete(&model.Rule{})
	if res.Error != nil {
		return wrap("delete rule", res.Error)
	}
	if res.RowsAffected == 0 {
		return wrap("delete rule", gorm.ErrRecordNotFound)
	}
	return nil
}
