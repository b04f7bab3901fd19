package handler

import "github.com/medtrack/careportal/internal/core/domain"

// errorResponse documents the {"error": "..."} envelope rendered by the
// HTTP error handler.
type errorResponse struct {
	Error string `json:"error"`
}

// pageView is the JSON descriptor a portal page renders to.
type pageView struct {
	Page  string             `json:"page"`
	Title string             `json:"title"`
	User  *domain.UserRecord `json:"user,omitempty"`
	Data  any                `json:"data,omitempty"`
}

type acceptedResponse struct {
	Message string `json:"message"`
}
