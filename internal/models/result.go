package models

type UploadResponse struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
	Role         string `json:"role"`
}

type CreateRunRequest struct {
	Mode              Mode     `json:"mode" validate:"required,oneof=quick_check single_vs_many many_vs_single many_models_vs_one"`
	ResumeIDs         []string `json:"resume_ids" validate:"required,min=1,dive,uuid"`
	JobDescriptionIDs []string `json:"job_description_ids" validate:"required,min=1,dive,uuid"`
	Model             string   `json:"model"`
	APIKey            string   `json:"api_key"`
	Format            string   `json:"format" validate:"omitempty,oneof='LaTex' 'HTML and CSS'"`
	Length            string   `json:"length" validate:"omitempty,oneof=one multi"`
	TopN              int      `json:"top_n" validate:"gte=0"`
	FullAnalysis      bool     `json:"full_analysis"`
}

type RunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type RunDetailResponse struct {
	ID           string           `json:"id"`
	Mode         string           `json:"mode"`
	Model        string           `json:"model,omitempty"`
	Status       string           `json:"status"`
	Report       *BatchReport     `json:"report,omitempty"`
	Shortlist    []AnalysisResult `json:"shortlist,omitempty"`
	ErrorMessage *string          `json:"error_message,omitempty"`
}

type ModelInfo struct {
	ID       string `json:"id"`
	Accuracy int    `json:"reference_accuracy"`
}
