package model

import (
	"time"

	"example.com/policy-portal/internal/policy"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func (p *Policy) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

func (r *Rule) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if err := policy.ValidateConditions(r.Conditions); err != nil {
		return err
	}
	return policy.ValidateScope(r.Scope)
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return nil
}
