package store

import (
	"fmt"
	"strings"

	"example.com/policy-portal/internal/model"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

func isPostgres(tx *gorm.DB) bool {
	return tx.Dialector.Name() == "postgres"
}

func quoteList[T ~string](vs []T) string {
	qs := make([]string, len(vs))
	for i, v := range vs {
		qs[i] = "'" + string(v) + "'"
	}
	return strings.Join(qs, ",")
}

// Migrations lists every schema change in application order.
func Migrations() []*gormigrate.Migration {
	return []*gormigrate.Migration{
		{
			ID: "20261001_create_policy_tables",
			Migrate: func(tx *gorm.DB) error {
				if err := tx.AutoMigrate(&model.Policy{}, &model.Rule{}, &model.AuditLog{}); err != nil {
					return err
				}
				if !isPostgres(tx) {
					return nil
				}
				return tx.Exec(`ALTER TABLE rules ADD CONSTRAINT fk_rules_policy
					FOREIGN KEY (policy_id) REFERENCES policies(id) ON DELETE CASCADE;`).Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable("audit_logs", "rules", "policies")
			},
		},
		{
			ID: "20261002_policy_label_checks",
			Migrate: func(tx *gorm.DB) error {
				if !isPostgres(tx) {
					return nil
				}
				stmts := []string{
					fmt.Sprintf(`ALTER TABLE policies ADD CONSTRAINT policies_category_check CHECK (category IN (%s));`, quoteList(model.Categories)),
					fmt.Sprintf(`ALTER TABLE policies ADD CONSTRAINT policies_type_check CHECK (type IN (%s));`, quoteList(model.PolicyTypes)),
					`ALTER TABLE policies ADD CONSTRAINT policies_priority_check CHECK (priority >= 0);`,
				}
				for _, s := range stmts {
					if err := tx.Exec(s).Error; err != nil {
						return err
					}
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				if !isPostgres(tx) {
					return nil
				}
				return tx.Exec(`ALTER TABLE policies
					DROP CONSTRAINT IF EXISTS policies_category_check,
					DROP CONSTRAINT IF EXISTS policies_type_check,
					DROP CONSTRAINT IF EXISTS policies_priority_check;`).Error
			},
		},
	}
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, Migrations())
	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}
