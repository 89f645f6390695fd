// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"orgadmin/internal/domain/membership"
)

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse creates a list response. A nil slice renders as [].
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}

// UpdatedResponse reports how many rows a mutation changed. Zero means the
// call was a no-op, not a failure.
type UpdatedResponse struct {
	Updated int64 `json:"updated"`
}

// FromResult creates UpdatedResponse from membership.Result.
func FromResult(r membership.Result) UpdatedResponse {
	return UpdatedResponse{Updated: r.Updated}
}
