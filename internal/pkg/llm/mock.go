package llm

import (
	"encoding/json"
	"strings"
)

// mock 模式下的确定性样例响应，与前端联调和测试共用

const mockParseJSON = `{
  "contract_type": "FAR_BAR_ASIS",
  "fields": {
    "purchase_price": 350000,
    "closing_date": "2025-07-15",
    "inspection_period_days": 15,
    "earnest_money": 10000,
    "financing_type": "conventional",
    "appraisal_contingency": true,
    "title_company": "First American Title",
    "occupancy_date": null,
    "seller_concessions": 5000
  },
  "clauses": [
    {"key": "inspection_contingency", "status": "active", "editable": true},
    {"key": "financing_contingency", "status": "active", "editable": true},
    {"key": "appraisal_contingency", "status": "active", "editable": true},
    {"key": "title_contingency", "status": "active", "editable": true},
    {"key": "closing_terms", "status": "active", "editable": true},
    {"key": "earnest_money_terms", "status": "active", "editable": true},
    {"key": "seller_disclosure", "status": "active", "editable": true},
    {"key": "property_condition", "status": "active", "editable": true}
  ],
  "questions": []
}`

const mockAnalyzeJSON = `{
  "changes": [
    {
      "field": "purchase_price",
      "action": "update",
      "from": "350000",
      "to": "340000",
      "confidence": 0.95
    }
  ],
  "clause_actions": [],
  "questions": [],
  "recommendation": "counter",
  "counter_proposal": {"purchase_price": 345000}
}`

const mockTimelineJSON = `{
  "timeline": [
    {"description": "Effective Date", "due_date": "2025-06-01", "category": "other", "responsible_party": "buyer"},
    {"description": "Initial Deposit Due", "due_date": "2025-06-04", "category": "deposit", "responsible_party": "buyer"},
    {"description": "Inspection Period Ends", "due_date": "2025-06-16", "category": "inspection", "responsible_party": "buyer"},
    {"description": "Loan Approval Deadline", "due_date": "2025-06-30", "category": "financing", "responsible_party": "buyer"},
    {"description": "Closing Date", "due_date": "2025-07-15", "category": "closing", "responsible_party": "seller"}
  ]
}`

const mockOfferLetterJSON = `{
  "letter_text": "Dear Seller,\n\nOn behalf of my client, I am pleased to present this offer to purchase the property located at 123 Palm Avenue, Miami, FL 33101.\n\nOFFER TERMS:\n- Purchase Price: $350,000\n- Earnest Money Deposit: $10,000\n- Financing: Conventional mortgage\n- Proposed Closing Date: July 15, 2025\n- Inspection Period: 15 days\n\nMy client is a well-qualified buyer prepared to move forward promptly. We look forward to your favorable response.\n\nSincerely,\nBuyer's Agent\n\n[Mock-generated offer letter]",
  "headline_terms": {
    "purchase_price": 350000,
    "earnest_money": 10000,
    "financing_type": "conventional",
    "closing_date": "2025-07-15"
  }
}`

// MockGenerateText 重新生成版本时的样例合同文本
const MockGenerateText = "FLORIDA AS-IS RESIDENTIAL CONTRACT FOR SALE AND PURCHASE\n\n" +
	"1. PURCHASE PRICE: $340,000.00\n\n" +
	"2. CLOSING DATE: July 15, 2025\n\n" +
	"3. INSPECTION PERIOD: 15 calendar days from Effective Date.\n\n" +
	"4. EARNEST MONEY: $10,000.00 to be deposited within 3 business days.\n\n" +
	"5. FINANCING: Conventional\n\n" +
	"6. APPRAISAL CONTINGENCY: Yes\n\n" +
	"7. TITLE COMPANY: First American Title\n\n" +
	"8. SELLER CONCESSIONS: $5,000.00 towards buyer closing costs.\n\n" +
	"[Mock-generated contract text]"

// MockGenerateInitialText 从模板起草合同时的样例文本
const MockGenerateInitialText = "FAR/BAR AS-IS RESIDENTIAL CONTRACT FOR SALE AND PURCHASE\n\n" +
	"1. PARTIES:\n" +
	"   BUYER: John Smith\n" +
	"   SELLER: Jane Doe\n\n" +
	"2. PROPERTY ADDRESS: 123 Palm Avenue, Miami, FL 33101\n" +
	"   Legal Description: Lot 5, Block 3, Coral Estates, as recorded in Plat Book 45, Page 12\n\n" +
	"3. PURCHASE PRICE: $350,000.00\n" +
	"   (a) Deposit to be held in escrow: $10,000.00\n" +
	"   (b) Balance due at closing: $340,000.00\n\n" +
	"4. FINANCING: Conventional mortgage\n\n" +
	"5. CLOSING DATE: July 15, 2025\n\n" +
	"6. INSPECTION PERIOD: 15 calendar days from Effective Date.\n" +
	"   During the Inspection Period, Buyer may have the Property inspected at Buyer's expense.\n" +
	"   If Buyer determines, in Buyer's sole discretion, that the Property is not acceptable,\n" +
	"   Buyer may terminate this Contract by delivering written notice to Seller before expiration\n" +
	"   of the Inspection Period. If Buyer timely terminates, Buyer shall be refunded the Deposit.\n\n" +
	"7. TITLE CONTINGENCY: Seller shall convey marketable title by statutory warranty deed.\n" +
	"   Title insurance commitment shall be obtained within 15 days of Effective Date.\n\n" +
	"8. AS-IS CONDITION: Buyer acknowledges and agrees that Buyer is purchasing the Property\n" +
	"   in its present \"AS IS\" condition, with all faults. Seller makes no warranties\n" +
	"   regarding the condition of the Property.\n\n" +
	"9. EARNEST MONEY: $10,000.00 to be deposited within 3 business days of Effective Date\n" +
	"   with First American Title, as escrow agent.\n\n" +
	"10. CLOSING COSTS: Buyer and Seller shall each pay their own closing costs as customary\n" +
	"    in the county where the Property is located.\n\n" +
	"11. DEFAULT: If Buyer fails to perform, Seller may retain the Deposit as liquidated damages.\n" +
	"    If Seller fails to perform, Buyer may seek specific performance or return of Deposit.\n\n" +
	"12. RISK OF LOSS: If the Property is damaged by fire or other casualty before closing,\n" +
	"    Buyer may terminate this Contract and receive a refund of the Deposit.\n\n" +
	"13. GOVERNING LAW: This Contract shall be governed by and construed in accordance with\n" +
	"    the laws of the State of Florida.\n\n" +
	"[Mock-generated contract]"

// mockJSONFor 根据提示词里的标记推断调用方，返回对应的样例 JSON
func mockJSONFor(prompt string) map[string]interface{} {
	lower := strings.ToLower(prompt)

	var raw string
	switch {
	case strings.Contains(lower, "critical dates") || strings.Contains(lower, "chronologically"):
		raw = mockTimelineJSON
	case strings.Contains(prompt, "OFFER LETTER"):
		raw = mockOfferLetterJSON
	case strings.Contains(prompt, "FIELDS TO EXTRACT"):
		raw = mockParseJSON
	default:
		raw = mockAnalyzeJSON
	}

	var result map[string]interface{}
	// 常量 JSON 保证合法
	_ = json.Unmarshal([]byte(raw), &result)
	return result
}

// mockTextFor 根据提示词返回对应的样例文本
func mockTextFor(prompt string) string {
	if strings.Contains(prompt, "TEMPLATE TYPE") {
		return MockGenerateInitialText
	}
	return MockGenerateText
}
