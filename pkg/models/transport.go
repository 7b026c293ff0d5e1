package models

// AnalyzeMenuImageRequest is the body of analyze_menu_image.
type AnalyzeMenuImageRequest struct {
	ImageData string `json:"image_data"`
}

// IngredientInfoRequest is the body of get_ingredient_info.
type IngredientInfoRequest struct {
	Ingredient string `json:"ingredient"`
}

// ToolResponse is returned by both operations. Result holds JSON text.
type ToolResponse struct {
	Result string `json:"result"`
	HTML   string `json:"html"`
}

// ErrorResponse is the uniform error envelope.
// Detail is only populated in development.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// NormalizeResponse describes an upload after normalization.
type NormalizeResponse struct {
	ImageData string `json:"image_data"`
	MediaType string `json:"media_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int    `json:"bytes"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status string `json:"status"`
}
