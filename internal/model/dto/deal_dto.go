package dto

// CreateDealRequest 创建交易请求
type CreateDealRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Address     string `json:"address,omitempty" binding:"omitempty,max=500"`
	Description string `json:"description,omitempty" binding:"omitempty,max=2000"`
	DealType    string `json:"deal_type,omitempty" binding:"omitempty,oneof=sale purchase"`
	NotifyEmail string `json:"notify_email,omitempty" binding:"omitempty,email"`
}

// UpdateDealRequest 更新交易基础信息，零值字段不修改
type UpdateDealRequest struct {
	Title       string `json:"title,omitempty" binding:"omitempty,max=200"`
	Address     string `json:"address,omitempty" binding:"omitempty,max=500"`
	Description string `json:"description,omitempty" binding:"omitempty,max=2000"`
	NotifyEmail string `json:"notify_email,omitempty" binding:"omitempty,email"`
}

// DealListItem 列表项，时间统一为 RFC3339 字符串
type DealListItem struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Address      string `json:"address,omitempty"`
	DealType     string `json:"deal_type"`
	CurrentState string `json:"current_state"`
	VersionCount int64  `json:"version_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// DealListResponse 分页列表响应
type DealListResponse struct {
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
	Items    []DealListItem `json:"items"`
}

// PasteContractRequest 手动粘贴合同文本
type PasteContractRequest struct {
	Text string `json:"text" binding:"required,min=50"`
}

// GenerateInitialRequest AI 起草初始合同
type GenerateInitialRequest struct {
	TemplateSlug    string                 `json:"template_slug" binding:"required,max=60"`
	DealDetails     map[string]interface{} `json:"deal_details" binding:"required"`
	SupportingTexts []string               `json:"supporting_texts,omitempty"`
}

// GenerateOfferLetterRequest 生成报价函
type GenerateOfferLetterRequest struct {
	Prompt string `json:"prompt" binding:"required,max=4000"`
	Tone   string `json:"tone,omitempty" binding:"omitempty,oneof=professional warm concise"`
}

// DispatchResponse 异步任务派发响应
type DispatchResponse struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}

// UploadContractResponse 合同上传响应
type UploadContractResponse struct {
	VersionID     int64  `json:"version_id"`
	JobID         int64  `json:"job_id"`
	TextQualityOK bool   `json:"text_quality_ok"`
	Message       string `json:"message,omitempty"`
}
