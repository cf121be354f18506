package dto

// CreateChangeRequestRequest 提交变更请求。Items 非空时批量创建并共享 batch_id
type CreateChangeRequestRequest struct {
	RawText string   `json:"raw_text,omitempty" binding:"omitempty,max=8000"`
	Items   []string `json:"items,omitempty" binding:"omitempty,max=20,dive,max=8000"`
}

// RejectChangeRequestRequest 拒绝变更请求
type RejectChangeRequestRequest struct {
	Reason string `json:"reason,omitempty" binding:"omitempty,max=2000"`
}

// CounterChangeRequestRequest 反提案
type CounterChangeRequestRequest struct {
	CounterText string `json:"counter_text" binding:"required,max=8000"`
}

// BatchActionRequest 对同一批次的所有 open CR 统一处置
type BatchActionRequest struct {
	BatchID     string `json:"batch_id" binding:"required,max=64"`
	Action      string `json:"action" binding:"required,oneof=accept reject counter"`
	Reason      string `json:"reason,omitempty" binding:"omitempty,max=2000"`
	CounterText string `json:"counter_text,omitempty" binding:"omitempty,max=8000"`
}

// BatchItemResult 批量处置的单项结果，前置条件不满足的项跳过而不中断
type BatchItemResult struct {
	CRID    int64  `json:"cr_id"`
	Action  string `json:"action"`
	JobID   int64  `json:"job_id,omitempty"`
	NewCRID int64  `json:"new_cr_id,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// BatchActionResponse 批量处置响应
type BatchActionResponse struct {
	BatchID  string            `json:"batch_id"`
	NewState string            `json:"new_state"`
	Results  []BatchItemResult `json:"results"`
}

// AcceptResponse 接受变更请求后的响应
type AcceptResponse struct {
	JobID    int64  `json:"job_id"`
	NewState string `json:"new_state"`
}

// RejectResponse 拒绝变更请求后的响应
type RejectResponse struct {
	NewState string `json:"new_state"`
}

// CounterResponse 反提案响应，包含新建的 CR
type CounterResponse struct {
	NewCRID    int64  `json:"new_cr_id"`
	ParentCRID int64  `json:"parent_cr_id"`
	JobID      int64  `json:"job_id"`
	NewState   string `json:"new_state"`
}
