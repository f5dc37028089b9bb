package lifecycle

import (
	"encoding/json"
	"unicode/utf8"

	"example.com/policy-portal/internal/model"
	"example.com/policy-portal/internal/policy"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	maxNameLen        = 100
	maxDescriptionLen = 500
	maxCategoryLen    = 100

	DefaultLimit = 100
	MaxLimit     = 1000
)

// Actor is the authenticated identity performing a mutation.
type Actor struct {
	ID   uuid.UUID
	Name string
}

func requireActor(a Actor) error {
	if a.ID == uuid.Nil {
		return ErrUnauthenticated
	}
	return nil
}

type PolicyCreate struct {
	Name        string           `json:"name"`
	Description *string          `json:"description,omitempty"`
	Category    model.Category   `json:"category"`
	Type        model.PolicyType `json:"type"`
	Priority    *int             `json:"priority,omitempty"`
	Status      *bool            `json:"status,omitempty"`
}

// PolicyUpdate carries PATCH semantics: nil fields are left untouched.
type PolicyUpdate struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Category    *model.Category   `json:"category,omitempty"`
	Type        *model.PolicyType `json:"type,omitempty"`
	Priority    *int              `json:"priority,omitempty"`
	Status      *bool             `json:"status,omitempty"`
}

func validName(name string) error {
	if n := utf8.RuneCountInString(name); n < 1 || n > maxNameLen {
		return invalid("name must be 1-%d characters", maxNameLen)
	}
	return nil
}

func validDescription(d *string) error {
	if d != nil && utf8.RuneCountInString(*d) > maxDescriptionLen {
		return invalid("description must be at most %d characters", maxDescriptionLen)
	}
	return nil
}

func validPriority(p *int) error {
	if p != nil && *p < 0 {
		return invalid("priority must be non-negative")
	}
	return nil
}

func (in PolicyCreate) Validate() error {
	if err := validName(in.Name); err != nil {
		return err
	}
	if err := validDescription(in.Description); err != nil {
		return err
	}
	if !in.Category.Valid() {
		return invalid("unknown category %q", in.Category)
	}
	if !in.Type.Valid() {
		return invalid("unknown type %q", in.Type)
	}
	return validPriority(in.Priority)
}

func (in PolicyCreate) policy() *model.Policy {
	p := &model.Policy{
		Name:        in.Name,
		Description: in.Description,
		Category:    in.Category,
		Type:        in.Type,
		Status:      true,
	}
	if in.Priority != nil {
		p.Priority = *in.Priority
	}
	if in.Status != nil {
		p.Status = *in.Status
	}
	return p
}

func (in PolicyUpdate) Validate() error {
	if in.Name != nil {
		if err := validName(*in.Name); err != nil {
			return err
		}
	}
	if err := validDescription(in.Description); err != nil {
		return err
	}
	if in.Category != nil && !in.Category.Valid() {
		return invalid("unknown category %q", *in.Category)
	}
	if in.Type != nil && !in.Type.Valid() {
		return invalid("unknown type %q", *in.Type)
	}
	return validPriority(in.Priority)
}

// fields returns the present fields keyed by column name.
func (in PolicyUpdate) fields() map[string]any {
	f := map[string]any{}
	if in.Name != nil {
		f["name"] = *in.Name
	}
	if in.Description != nil {
		f["description"] = *in.Description
	}
	if in.Category != nil {
		f["category"] = string(*in.Category)
	}
	if in.Type != nil {
		f["type"] = string(*in.Type)
	}
	if in.Priority != nil {
		f["priority"] = *in.Priority
	}
	if in.Status != nil {
		f["status"] = *in.Status
	}
	return f
}

type RuleCreate struct {
	Name             string           `json:"name"`
	Description      *string          `json:"description,omitempty"`
	Category         string           `json:"category"`
	Type             model.PolicyType `json:"type"`
	Priority         *int             `json:"priority,omitempty"`
	Status           *bool            `json:"status,omitempty"`
	Action           model.RuleAction `json:"action"`
	RiskLevel        *model.RiskLevel `json:"risk_level,omitempty"`
	RemediationSteps *string          `json:"remediation_steps,omitempty"`
	Conditions       json.RawMessage  `json:"conditions,omitempty"`
	Scope            json.RawMessage  `json:"scope,omitempty"`
}

func (in RuleCreate) Validate() error {
	if err := validName(in.Name); err != nil {
		return err
	}
	if err := validDescription(in.Description); err != nil {
		return err
	}
	if utf8.RuneCountInString(in.Category) > maxCategoryLen {
		return invalid("category must be at most %d characters", maxCategoryLen)
	}
	if !in.Type.Valid() {
		return invalid("unknown type %q", in.Type)
	}
	if !in.Action.Valid() {
		return invalid("unknown action %q", in.Action)
	}
	if in.RiskLevel != nil && !in.RiskLevel.Valid() {
		return invalid("unknown risk level %q", *in.RiskLevel)
	}
	if err := validPriority(in.Priority); err != nil {
		return err
	}
	if err := policy.ValidateConditions(in.Conditions); err != nil {
		return invalid("%v", err)
	}
	if err := policy.ValidateScope(in.Scope); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func (in RuleCreate) rule(policyID uuid.UUID) *model.Rule {
	r := &model.Rule{
		Name:             in.Name,
		Description:      in.Description,
		Category:         in.Category,
		Type:             in.Type,
		Status:           true,
		Action:           in.Action,
		RiskLevel:        in.RiskLevel,
		RemediationSteps: in.RemediationSteps,
		Conditions:       datatypes.JSON(in.Conditions),
		Scope:            datatypes.JSON(in.Scope),
		PolicyID:         policyID,
	}
	if in.Priority != nil {
		r.Priority = *in.Priority
	}
	if in.Status != nil {
		r.Status = *in.Status
	}
	return r
}
