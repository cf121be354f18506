// Package contract 提供合同规范状态的确定性变换：
// 字段编辑和条款编辑都是纯函数，不做任何 I/O，也不调用 AI。
package contract

import (
	"github.com/wzlab/deal_go_server/internal/model"
)

// AllowedFields 字段白名单。AI 产出中不在白名单内的字段一律静默忽略，
// 防止幻觉字段污染规范 schema
var AllowedFields = map[string]struct{}{
	"purchase_price":            {},
	"closing_date":              {},
	"inspection_period_days":    {},
	"earnest_money":             {},
	"financing_type":            {},
	"appraisal_contingency":     {},
	"title_company":             {},
	"occupancy_date":            {},
	"seller_concessions":        {},
	"effective_date":            {},
	"first_deposit_date":        {},
	"first_deposit_amount":      {},
	"financing_deadline":        {},
	"additional_deposit_date":   {},
	"additional_deposit_amount": {},
	"loan_approval_deadline":    {},
}

// DefaultClauses 新合同的默认条款集
var DefaultClauses = []string{
	"inspection_contingency",
	"financing_contingency",
	"appraisal_contingency",
	"title_contingency",
	"closing_terms",
	"earnest_money_terms",
	"seller_disclosure",
	"property_condition",
	"occupancy_terms",
}

// 字段编辑动作
const (
	FieldActionUpdate = "update"
	FieldActionRemove = "remove"
)

// 条款编辑动作
const (
	ClauseActionAdd    = "add"
	ClauseActionModify = "modify"
	ClauseActionRemove = "remove"
)

// BuildEmptyState 构造空合同状态：白名单字段全部置 nil，默认条款全部 active
func BuildEmptyState() (model.JSONMap, model.ClauseList) {
	fields := make(model.JSONMap, len(AllowedFields))
	for k := range AllowedFields {
		fields[k] = nil
	}

	clauses := make(model.ClauseList, 0, len(DefaultClauses))
	for _, key := range DefaultClauses {
		clauses = append(clauses, model.Clause{Key: key, Status: model.ClauseActive, Editable: true})
	}
	return fields, clauses
}

// ApplyFieldChanges 按列表顺序应用字段编辑，同一字段后者覆盖前者。
// 白名单外的字段忽略。不修改入参
func ApplyFieldChanges(currentFields model.JSONMap, changes []model.FieldChange) model.JSONMap {
	updated := make(model.JSONMap, len(currentFields))
	for k, v := range currentFields {
		updated[k] = v
	}

	for _, change := range changes {
		if _, ok := AllowedFields[change.Field]; !ok {
			continue
		}
		switch change.Action {
		case FieldActionUpdate, "":
			updated[change.Field] = change.To
		case FieldActionRemove:
			updated[change.Field] = nil
		}
	}
	return updated
}

// ApplyClauseActions 应用条款编辑。remove/modify 只改既有条款的状态，
// add 仅在 key 不存在时插入 active 条款，不会重置既有条款。不修改入参
func ApplyClauseActions(currentClauses model.ClauseList, actions []model.ClauseAction) model.ClauseList {
	updated := make(model.ClauseList, len(currentClauses))
	copy(updated, currentClauses)

	index := make(map[string]int, len(updated))
	for i, c := range updated {
		index[c.Key] = i
	}

	for _, action := range actions {
		i, exists := index[action.ClauseKey]
		switch action.Action {
		case ClauseActionRemove:
			if exists {
				updated[i].Status = model.ClauseRemoved
			}
		case ClauseActionModify:
			if exists {
				updated[i].Status = model.ClauseModified
			}
		case ClauseActionAdd:
			if !exists {
				updated = append(updated, model.Clause{
					Key:      action.ClauseKey,
					Status:   model.ClauseActive,
					Editable: true,
				})
				index[action.ClauseKey] = len(updated) - 1
			}
		}
	}
	return updated
}
