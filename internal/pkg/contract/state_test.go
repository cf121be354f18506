package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wzlab/deal_go_server/internal/model"
)

func TestBuildEmptyState(t *testing.T) {
	fields, clauses := BuildEmptyState()

	assert.Len(t, fields, len(AllowedFields))
	for k, v := range fields {
		assert.Contains(t, AllowedFields, k)
		assert.Nil(t, v)
	}

	assert.Len(t, clauses, len(DefaultClauses))
	for _, c := range clauses {
		assert.Equal(t, model.ClauseActive, c.Status)
		assert.True(t, c.Editable)
	}
}

func TestApplyFieldChanges(t *testing.T) {
	fields, _ := BuildEmptyState()

	updated := ApplyFieldChanges(fields, []model.FieldChange{
		{Field: "purchase_price", Action: FieldActionUpdate, To: "350000"},
		{Field: "closing_date", Action: FieldActionUpdate, To: "2026-10-01"},
	})

	assert.Equal(t, "350000", updated["purchase_price"])
	assert.Equal(t, "2026-10-01", updated["closing_date"])
	// 入参不可被修改
	assert.Nil(t, fields["purchase_price"])
}

func TestApplyFieldChangesIgnoresUnknownField(t *testing.T) {
	fields, _ := BuildEmptyState()

	updated := ApplyFieldChanges(fields, []model.FieldChange{
		{Field: "hallucinated_field", Action: FieldActionUpdate, To: "x"},
		{Field: "purchase_price", Action: FieldActionUpdate, To: "340000"},
	})

	_, ok := updated["hallucinated_field"]
	assert.False(t, ok)
	assert.Equal(t, "340000", updated["purchase_price"])
	assert.Len(t, updated, len(AllowedFields))
}

func TestApplyFieldChangesLastWriteWins(t *testing.T) {
	fields, _ := BuildEmptyState()

	updated := ApplyFieldChanges(fields, []model.FieldChange{
		{Field: "purchase_price", Action: FieldActionUpdate, To: "350000"},
		{Field: "purchase_price", Action: FieldActionUpdate, To: "345000"},
	})

	assert.Equal(t, "345000", updated["purchase_price"])
}

func TestApplyFieldChangesRemove(t *testing.T) {
	fields, _ := BuildEmptyState()
	fields["earnest_money"] = "5000"

	updated := ApplyFieldChanges(fields, []model.FieldChange{
		{Field: "earnest_money", Action: FieldActionRemove},
	})

	assert.Contains(t, updated, "earnest_money")
	assert.Nil(t, updated["earnest_money"])
}

func TestApplyClauseActions(t *testing.T) {
	_, clauses := BuildEmptyState()

	updated := ApplyClauseActions(clauses, []model.ClauseAction{
		{ClauseKey: "inspection_contingency", Action: ClauseActionRemove},
		{ClauseKey: "closing_terms", Action: ClauseActionModify},
		{ClauseKey: "hoa_addendum", Action: ClauseActionAdd},
	})

	byKey := make(map[string]model.Clause)
	for _, c := range updated {
		byKey[c.Key] = c
	}

	assert.Equal(t, model.ClauseRemoved, byKey["inspection_contingency"].Status)
	assert.Equal(t, model.ClauseModified, byKey["closing_terms"].Status)
	assert.Equal(t, model.ClauseActive, byKey["hoa_addendum"].Status)

	// 入参不可被修改
	assert.Equal(t, model.ClauseActive, clauses[0].Status)
	assert.Len(t, clauses, len(DefaultClauses))
}

func TestApplyClauseActionsAddExistingIsNoop(t *testing.T) {
	_, clauses := BuildEmptyState()

	first := ApplyClauseActions(clauses, []model.ClauseAction{
		{ClauseKey: "closing_terms", Action: ClauseActionModify},
	})
	second := ApplyClauseActions(first, []model.ClauseAction{
		{ClauseKey: "closing_terms", Action: ClauseActionAdd},
	})

	assert.Len(t, second, len(first))
	for _, c := range second {
		if c.Key == "closing_terms" {
			assert.Equal(t, model.ClauseModified, c.Status)
		}
	}
}

func TestApplyClauseActionsUnknownKeyIgnored(t *testing.T) {
	_, clauses := BuildEmptyState()

	updated := ApplyClauseActions(clauses, []model.ClauseAction{
		{ClauseKey: "no_such_clause", Action: ClauseActionRemove},
		{ClauseKey: "no_such_clause", Action: ClauseActionModify},
	})

	assert.Equal(t, clauses, updated)
}
