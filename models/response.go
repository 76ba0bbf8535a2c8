package models

// ErrorResponse is the JSON error envelope returned by the data endpoints.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// ServiceName identifies this process in liveness responses.
const ServiceName = "web-scraper-host"
