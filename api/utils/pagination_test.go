package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPagination(t *testing.T) {
	p, err := ExtractPagination(httptest.NewRequest("GET", "/imports", nil), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, PaginationParams{Page: 1, Limit: 20, Offset: 0}, p)

	p, err = ExtractPagination(httptest.NewRequest("GET", "/imports?page=3&limit=10", nil), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, PaginationParams{Page: 3, Limit: 10, Offset: 20}, p)

	p, err = ExtractPagination(httptest.NewRequest("GET", "/imports?limit=500", nil), 20, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, p.Limit)
}

func TestExtractPaginationRejectsBadValues(t *testing.T) {
	for _, q := range []string{"page=0", "page=x", "limit=-1", "limit=ten"} {
		_, err := ExtractPagination(httptest.NewRequest("GET", "/imports?"+q, nil), 20, 50)
		assert.Error(t, err, q)
	}
}
