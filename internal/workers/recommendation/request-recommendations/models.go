// internal/workers/recommendation/request-recommendations/models.go
package requestrecommendations

import "car-recommender/internal/models"

type Input struct {
	Question string `json:"question"`
	UserID   string `json:"userId"`
}

type Output struct {
	Recommendations []models.Recommendation `json:"recommendations"`
	Count           int                     `json:"count"`
	RequestID       string                  `json:"requestId"`
}
