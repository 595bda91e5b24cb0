// internal/models/recommendation.go
package models

import (
	"strings"
	"time"
)

// Query is one user submission. Question is sent exactly as typed.
type Query struct {
	Question string `json:"question"`
	UserID   string `json:"userId"`
}

// IsBlank reports whether the question is empty after trimming whitespace.
func (q Query) IsBlank() bool {
	return strings.TrimSpace(q.Question) == ""
}

// Recommendation is a single scored car/insurance suggestion.
type Recommendation struct {
	ID                int     `json:"id"`
	Label             string  `json:"label"`
	Score             float64 `json:"score"`
	Price             float64 `json:"price"`
	InsuranceEstimate float64 `json:"insuranceEstimate"`
}

// RecommendationResponse is the success body of the recommendation service.
type RecommendationResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// ServiceErrorResponse is the body the service sends with non-2xx answers.
type ServiceErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is returned by the service's health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
}

// Submission is the settled record of one submit, kept in the history store.
type Submission struct {
	RequestID   string    `json:"requestId"`
	Question    string    `json:"question"`
	UserID      string    `json:"userId"`
	Outcome     string    `json:"outcome"`
	ErrorKind   string    `json:"errorKind,omitempty"`
	StatusCode  int       `json:"statusCode,omitempty"`
	Count       int       `json:"count"`
	SubmittedAt time.Time `json:"submittedAt"`
	DurationMs  int64     `json:"durationMs"`
}
