package utils

import (
	"fmt"
	"net/http"
	"strconv"
)

type PaginationParams struct {
	Page   int `json:"page"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ExtractPagination reads ?page= and ?limit= from the query. limit is capped
// at maxLimit.
func ExtractPagination(r *http.Request, defaultLimit, maxLimit int) (PaginationParams, error) {
	params := PaginationParams{
		Page:  1,
		Limit: defaultLimit,
	}

	if p := r.URL.Query().Get("page"); p != "" {
		val, err := strconv.Atoi(p)
		if err != nil || val <= 0 {
			return PaginationParams{}, fmt.Errorf("invalid page parameter: %s", p)
		}
		params.Page = val
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		val, err := strconv.Atoi(l)
		if err != nil || val <= 0 {
			return PaginationParams{}, fmt.Errorf("invalid limit parameter: %s", l)
		}
		params.Limit = val
	}
	if maxLimit > 0 && params.Limit > maxLimit {
		params.Limit = maxLimit
	}
	params.Offset = (params.Page - 1) * params.Limit
	return params, nil
}
