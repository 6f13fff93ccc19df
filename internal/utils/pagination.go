package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/workspace-api/internal/constants"
)

// PaginationParams is a 1-based page request. A zero Limit means unpaged.
type PaginationParams struct {
	Page  int
	Limit int
}

// Offset returns the number of rows skipped before the page starts.
func (p PaginationParams) Offset() int {
	if p.Page < constants.MinPageSize {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// Response describes the page for a listing that matched total rows.
func (p PaginationParams) Response(total int64) PaginationResponse {
	return PaginationResponse{Page: p.Page, Limit: p.Limit, Total: total}
}

// PaginationResponse is the pagination block of list responses.
type PaginationResponse struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// GetPaginationParams reads ?page and ?limit. Unparsable values fall back to
// the defaults and oversized limits are capped.
func GetPaginationParams(c *gin.Context) PaginationParams {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < constants.MinPageSize {
		page = constants.MinPageSize
	}

	limit, err := strconv.Atoi(c.Query("limit"))
	switch {
	case err != nil || limit < constants.MinPageSize:
		limit = constants.DefaultPageSize
	case limit > constants.MaxPageSize:
		limit = constants.MaxPageSize
	}

	return PaginationParams{Page: page, Limit: limit}
}
