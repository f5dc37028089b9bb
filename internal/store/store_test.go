package store_test

import (
	"context"
	"errors"
	"testing"

	"example.com/policy-portal/internal/model"
	"example.com/policy-portal/internal/store"
	"example.com/policy-portal/internal/store/storetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPolicy(name string, c model.Category, typ model.PolicyType, status bool) *model.Policy {
	return &model.Policy{Name: name, Category: c, Type: typ, Status: status}
}

func TestPolicyCRUD(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()

	p := newPolicy("Block SSH", model.CategoryFIM, model.TypeCustom, false)
	require.NoError(t, st.InsertPolicy(ctx, p))
	assert.NotEqual(t, uuid.Nil, p.ID)

	got, err := st.FindPolicyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Block SSH", got.Name)
	assert.False(t, got.Status, "explicit false status must be stored")

	byName, err := st.FindPolicyByName(ctx, "Block SSH")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, p.ID, byName.ID)

	missing, err := st.FindPolicyByName(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	updated, err := st.ApplyPolicyUpdate(ctx, p.ID, map[string]any{"priority": 7})
	require.NoError(t, err)
	assert.Equal(t, 7, updated.Priority)
	assert.Equal(t, model.CategoryFIM, updated.Category)
	assert.False(t, updated.UpdatedAt.Before(got.UpdatedAt))

	require.NoError(t, st.RemovePolicy(ctx, p.ID))
	_, err = st.FindPolicyByID(ctx, p.ID)
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestMissingPolicy(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()
	id := uuid.New()

	_, err := st.ApplyPolicyUpdate(ctx, id, map[string]any{"priority": 1})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.ErrorIs(t, st.RemovePolicy(ctx, id), store.ErrNotFound)
}

func TestDuplicateNameTranslated(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()

	require.NoError(t, st.InsertPolicy(ctx, newPolicy("dup", model.CategoryCSPM, model.TypeCustom, true)))
	err := st.InsertPolicy(ctx, newPolicy("dup", model.CategoryCSPM, model.TypeCustom, true))
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestFindPoliciesFiltersAndPaging(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()

	seed := []*model.Policy{
		newPolicy("a", model.CategoryFIM, model.TypeCustom, true),
		newPolicy("b", model.CategoryFIM, model.TypeBuiltIn, false),
		newPolicy("c", model.CategoryAntiMalware, model.TypeCustom, true),
		newPolicy("d", model.CategoryAntiMalware, model.TypeDefault, false),
		newPolicy("e", model.CategoryDevOps, model.TypeCustom, true),
	}
	for _, p := range seed {
		require.NoError(t, st.InsertPolicy(ctx, p))
	}

	fim := model.CategoryFIM
	ps, err := st.FindPolicies(ctx, store.PolicyFilters{Category: &fim}, store.Page{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, ps, 2)

	am := model.CategoryAntiMalware
	disabled := false
	ps, err = st.FindPolicies(ctx, store.PolicyFilters{Category: &am, Status: &disabled}, store.Page{Limit: 100})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "d", ps[0].Name)
	assert.Equal(t, model.CategoryAntiMalware, ps[0].Category)

	builtIn := model.TypeBuiltIn
	ps, err = st.FindPolicies(ctx, store.PolicyFilters{Type: &builtIn}, store.Page{Limit: 100})
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, model.TypeBuiltIn, ps[0].Type)

	seen := map[uuid.UUID]bool{}
	for skip := 0; skip < 6; skip += 2 {
		page, err := st.FindPolicies(ctx, store.PolicyFilters{}, store.Page{Skip: skip, Limit: 2})
		require.NoError(t, err)
		for _, p := range page {
			assert.False(t, seen[p.ID], "policy returned on two pages")
			seen[p.ID] = true
		}
	}
	assert.Len(t, seen, 5)

	n, err := st.CountPolicies(ctx, store.PolicyFilters{Category: &fim})
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestRemovePolicyCascadesRules(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()

	p := newPolicy("parent", model.CategoryGating, model.TypeCustom, true)
	other := newPolicy("other", model.CategoryGating, model.TypeCustom, true)
	require.NoError(t, st.InsertPolicy(ctx, p))
	require.NoError(t, st.InsertPolicy(ctx, other))
	for _, name := range []string{"r1", "r2"} {
		require.NoError(t, st.InsertRule(ctx, &model.Rule{Name: name, Type: model.TypeCustom, Action: model.ActionAlert, Status: true, PolicyID: p.ID}))
	}
	require.NoError(t, st.InsertRule(ctx, &model.Rule{Name: "r3", Type: model.TypeCustom, Action: model.ActionBlock, Status: true, PolicyID: other.ID}))

	require.NoError(t, st.RemovePolicy(ctx, p.ID))

	rs, err := st.FindRulesByPolicy(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, rs)

	rs, err = st.FindRulesByPolicy(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, rs, 1)
}

func TestRuleHookRejectsBadCondition(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()

	p := newPolicy("p", model.CategoryCSPM, model.TypeCustom, true)
	require.NoError(t, st.InsertPolicy(ctx, p))
	err := st.InsertRule(ctx, &model.Rule{
		Name: "bad", Type: model.TypeCustom, Action: model.ActionAlert, PolicyID: p.ID,
		Conditions: []byte(`{"expr":"resource =="}`),
	})
	assert.Error(t, err)
}

func TestFindActiveRules(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()

	on := &model.Policy{Name: "on", Category: model.CategoryCSPM, Type: model.TypeCustom, Status: true, Priority: 2}
	first := &model.Policy{Name: "first", Category: model.CategoryCSPM, Type: model.TypeCustom, Status: true, Priority: 1}
	off := &model.Policy{Name: "off", Category: model.CategoryCSPM, Type: model.TypeCustom, Status: false}
	for _, p := range []*model.Policy{on, first, off} {
		require.NoError(t, st.InsertPolicy(ctx, p))
	}
	rules := []*model.Rule{
		{Name: "on-enabled", PolicyID: on.ID, Status: true},
		{Name: "on-disabled", PolicyID: on.ID, Status: false},
		{Name: "first-enabled", PolicyID: first.ID, Status: true},
		{Name: "off-enabled", PolicyID: off.ID, Status: true},
	}
	for _, r := range rules {
		r.Type = model.TypeCustom
		r.Action = model.ActionAlert
		require.NoError(t, st.InsertRule(ctx, r))
	}

	active, err := st.FindActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "first-enabled", active[0].Name)
	assert.Equal(t, "on-enabled", active[1].Name)
}

func TestTransactionRollsBack(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.InsertPolicy(ctx, newPolicy("tx", model.CategoryDrift, model.TypeCustom, true)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	p, err := st.FindPolicyByName(ctx, "tx")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestAuditQueries(t *testing.T) {
	st := store.New(storetest.OpenSQLite(t))
	ctx := context.Background()
	policyID := uuid.New()

	for _, action := range []model.AuditAction{model.AuditCreate, model.AuditDisable} {
		require.NoError(t, st.InsertAudit(ctx, &model.AuditLog{
			Action: action, EntityType: model.EntityPolicy, EntityID: policyID,
			UserID: uuid.New(), PolicyID: &policyID,
		}))
	}
	require.NoError(t, st.InsertAudit(ctx, &model.AuditLog{
		Action: model.AuditCreate, EntityType: model.EntityPolicy, EntityID: uuid.New(), UserID: uuid.New(),
	}))

	logs, err := st.FindAuditByPolicy(ctx, policyID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, model.AuditCreate, logs[0].Action)
	assert.Equal(t, model.AuditDisable, logs[1].Action)
	assert.False(t, logs[0].Timestamp.IsZero())

	n, err := st.CountAudit(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
