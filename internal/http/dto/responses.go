package dto

type ErrorResponse struct {
	Error     string            `json:"error"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

type SuccessResponse struct {
	OK   bool `json:"ok"`
	Data any  `json:"data"`
}

type ListResponse struct {
	OK    bool  `json:"ok"`
	Data  any   `json:"data"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type NonceResponse struct {
	Message string `json:"message"`
}

type AuthResponse struct {
	Token   string `json:"token"`
	Address string `json:"address"`
}
