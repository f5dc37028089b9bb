package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Category string

const (
	CategoryCSPM        Category = "CSPM"
	CategoryPosture     Category = "Posture"
	CategoryGating      Category = "Gating"
	CategoryDrift       Category = "Drift"
	CategorySettings    Category = "Settings"
	CategoryDevOps      Category = "DevOps"
	CategoryFIM         Category = "FIM"
	CategoryAntiMalware Category = "Anti-malware"
)

var Categories = []Category{
	CategoryCSPM, CategoryPosture, CategoryGating, CategoryDrift,
	CategorySettings, CategoryDevOps, CategoryFIM, CategoryAntiMalware,
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if c == v {
			return true
		}
	}
	return false
}

// PolicyType is shared by policies and rules.
type PolicyType string

const (
	TypeDefault PolicyType = "Default"
	TypeBuiltIn PolicyType = "Built-in"
	TypeCustom  PolicyType = "Custom"
)

var PolicyTypes = []PolicyType{TypeDefault, TypeBuiltIn, TypeCustom}

func (t PolicyType) Valid() bool {
	return t == TypeDefault || t == TypeBuiltIn || t == TypeCustom
}

type Policy struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string     `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description *string    `gorm:"size:500" json:"description"`
	Category    Category   `gorm:"size:32;not null;index" json:"category"`
	Type        PolicyType `gorm:"size:16;not null;index" json:"type"`
	Priority    int        `gorm:"not null;default:0" json:"priority"`
	Status      bool       `gorm:"not null;index" json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type RuleAction string

const (
	ActionRecommendation RuleAction = "Generate a Recommendation"
	ActionAlert          RuleAction = "Generate Alert"
	ActionBlock          RuleAction = "Block"
	ActionRunAction      RuleAction = "Run an action"
	ActionIgnore         RuleAction = "Ignore"
)

func (a RuleAction) Valid() bool {
	switch a {
	case ActionRecommendation, ActionAlert, ActionBlock, ActionRunAction, ActionIgnore:
		return true
	}
	return false
}

type RiskLevel string

const (
	RiskCritical RiskLevel = "Critical"
	RiskHigh     RiskLevel = "High"
	RiskMedium   RiskLevel = "Medium"
	RiskLow      RiskLevel = "Low"
)

func (r RiskLevel) Valid() bool {
	switch r {
	case RiskCritical, RiskHigh, RiskMedium, RiskLow:
		return true
	}
	return false
}

type Rule struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Name             string         `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Description      *string        `gorm:"size:500" json:"description"`
	Category         string         `gorm:"size:100" json:"category"`
	Type             PolicyType     `gorm:"size:16;not null" json:"type"`
	Priority         int            `gorm:"not null;default:0" json:"priority"`
	Status           bool           `gorm:"not null" json:"status"`
	Action           RuleAction     `gorm:"size:32;not null" json:"action"`
	RiskLevel        *RiskLevel     `gorm:"size:16" json:"risk_level"`
	RemediationSteps *string        `json:"remediation_steps"`
	Conditions       datatypes.JSON `json:"conditions"`
	Scope            datatypes.JSON `json:"scope"`
	PolicyID         uuid.UUID      `gorm:"type:uuid;not null;index" json:"policy_id"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

type AuditAction string

const (
	AuditCreate  AuditAction = "create"
	AuditUpdate  AuditAction = "update"
	AuditDelete  AuditAction = "delete"
	AuditEnable  AuditAction = "enable"
	AuditDisable AuditAction = "disable"
)

const (
	EntityPolicy = "policy"
	EntityRule   = "rule"
)

// SystemUserID attributes changes made by the service itself (catalogue seeding).
var SystemUserID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// AuditLog rows are append-only. PolicyID and RuleID are plain references so a
// row stays untouched after the entity it describes is deleted.
type AuditLog struct {
	ID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Action     AuditAction    `gorm:"size:16;not null" json:"action"`
	EntityType string         `gorm:"size:16;not null" json:"entity_type"`
	EntityID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"entity_id"`
	Changes    datatypes.JSON `json:"changes"`
	Timestamp  time.Time      `gorm:"not null;index" json:"timestamp"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	PolicyID   *uuid.UUID     `gorm:"type:uuid;index" json:"policy_id,omitempty"`
	RuleID     *uuid.UUID     `gorm:"type:uuid;index" json:"rule_id,omitempty"`
}
