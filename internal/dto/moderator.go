package dto

import "modreview/internal/domain"

type UpdatePropertyRequest struct {
	Value string `json:"value"`
}

// ReviewResponse is what a moderator sees when opening a review.
type ReviewResponse struct {
	User    *domain.User     `json:"user"`
	Profile *ExternalProfile `json:"profile"`
}
