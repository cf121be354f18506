package llm

import (
	"encoding/json"
	"fmt"
)

// 提示词模板。截断阈值防止超长合同撑爆上下文
const maxContractChars = 15000

func truncate(text string) string {
	if len(text) > maxContractChars {
		return text[:maxContractChars]
	}
	return text
}

// BuildParsePrompt 解析合同文本，提取规范字段和条款
func BuildParsePrompt(contractText string) string {
	return fmt.Sprintf(`You are parsing a residential real estate purchase contract.

FIELDS TO EXTRACT (use null for anything not present in the text):
purchase_price, closing_date, inspection_period_days, earnest_money, financing_type,
appraisal_contingency, title_company, occupancy_date, seller_concessions, effective_date,
first_deposit_date, first_deposit_amount, financing_deadline, additional_deposit_date,
additional_deposit_amount, loan_approval_deadline

Also identify the contract_type (e.g. FAR_BAR_ASIS, FAR_BAR_STANDARD, CUSTOM) and the
clauses present, each as {"key": ..., "status": "active", "editable": true}.

Return JSON with keys: contract_type, fields, clauses, questions.
If anything is ambiguous, add a question string to the "questions" array instead of guessing.

CONTRACT TEXT:
%s`, truncate(contractText))
}

// BuildAnalyzePrompt 把自然语言变更请求解析为结构化字段编辑
func BuildAnalyzePrompt(contractType string, clauses, currentFields interface{}, changeRequestText string) string {
	clausesJSON, _ := json.Marshal(clauses)
	fieldsJSON, _ := json.Marshal(currentFields)
	return fmt.Sprintf(`You are analyzing a change request against a residential real estate contract.

CONTRACT STATE:
{"contract_type": %q, "clauses": %s}

CURRENT FIELDS:
%s

PROPOSED CHANGE (natural language, from the counterparty):
%s

Interpret the proposed change into structured edits. Each edit is
{"field": ..., "action": "update"|"remove", "from": ..., "to": ..., "confidence": 0.0-1.0}.
Clause-level edits go in clause_actions as {"clause_key": ..., "action": "add"|"modify"|"remove"}.
Recommend one of: accept, reject, counter. If countering, include counter_proposal with
the suggested field values.

Return JSON with keys: changes, clause_actions, questions, recommendation, counter_proposal.`,
		contractType, clausesJSON, fieldsJSON, changeRequestText)
}

// BuildGenerateVersionPrompt 按已确定的字段编辑重写合同文本
func BuildGenerateVersionPrompt(changes, clauseActions interface{}, originalText string) string {
	changesJSON, _ := json.MarshalIndent(changes, "", "  ")
	actionsJSON, _ := json.MarshalIndent(clauseActions, "", "  ")
	return fmt.Sprintf(`Rewrite the contract below applying EXACTLY the following edits. Do not make
any other changes. Preserve the structure, numbering and language of the original.

FIELD CHANGES:
%s

CLAUSE ACTIONS:
%s

ORIGINAL CONTRACT TEXT:
%s

Return only the complete rewritten contract text.`,
		changesJSON, actionsJSON, truncate(originalText))
}

// BuildInitialContractPrompt 从模板起草初始合同
func BuildInitialContractPrompt(templateSlug string, dealDetails interface{}) string {
	detailsJSON, _ := json.MarshalIndent(dealDetails, "", "  ")
	return fmt.Sprintf(`Draft a complete residential real estate purchase contract.

TEMPLATE TYPE: %s

DEAL DETAILS:
%s

Write a full, professional contract covering parties, property, price, deposits, financing,
inspection, title, default, risk of loss and governing law. Use the deal details verbatim
where provided; use standard boilerplate for anything unspecified.

Return only the contract text.`, templateSlug, detailsJSON)
}

// BuildTimelinePrompt 从合同文本抽取关键日期生成时间线
func BuildTimelinePrompt(contractText string) string {
	return fmt.Sprintf(`Extract the critical dates and deadlines from the contract below and
order them chronologically.

Each item is {"description": ..., "due_date": "YYYY-MM-DD", "category":
"deposit"|"inspection"|"financing"|"closing"|"other", "responsible_party": "buyer"|"seller"}.
Resolve relative deadlines (e.g. "15 days from Effective Date") against the effective date
when it is known; otherwise add a question instead of guessing.

Return JSON with key: timeline.

CONTRACT TEXT:
%s`, truncate(contractText))
}

// BuildOfferLetterPrompt 根据交易条款起草报价函
func BuildOfferLetterPrompt(dealDetails, currentFields interface{}, tone string) string {
	detailsJSON, _ := json.MarshalIndent(dealDetails, "", "  ")
	fieldsJSON, _ := json.MarshalIndent(currentFields, "", "  ")
	if tone == "" {
		tone = "professional"
	}
	return fmt.Sprintf(`Draft an OFFER LETTER from the buyer's agent to the seller.

DEAL DETAILS:
%s

CONTRACT TERMS:
%s

Tone: %s. The letter must state the headline terms (price, deposit, financing, closing date)
and present the buyer favorably without inventing facts.

Return JSON with keys: letter_text, headline_terms.`, detailsJSON, fieldsJSON, tone)
}
