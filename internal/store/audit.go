package store

import (
	"context"

	"example.com/policy-portal/internal/model"
	"github.com/google/uuid"
)

func (s *Store) InsertAudit(ctx context.Context, a *model.AuditLog) error {
	if err := s.conn(ctx).Create(a).Error; err != nil {
		return wrap("insert audit log", err)
	}
	return nil
}

// FindAuditByPolicy lists entries referencing the policy, oldest first. Rule
// entries carry their parent policy id and are included.
func (s *Store) FindAuditByPolicy(ctx context.Context, policyID uuid.UUID) ([]model.AuditLog, error) {
	logs := []model.AuditLog{}
	err := s.conn(ctx).Where("policy_id = ?", policyID).Order("timestamp ASC, id ASC").Find(&logs).Error
	if err != nil {
		return nil, wrap("find audit logs", err)
	}
	return logs, nil
}

func (s *Store) CountAudit(ctx context.Context) (int64, error) {
	var n int64
	if err := s.conn(ctx).Model(&model.AuditLog{}).Count(&n).Error; err != nil {
		return 0, wrap("count audit logs", err)
	}
	return n, nil
}
