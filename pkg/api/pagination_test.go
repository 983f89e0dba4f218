package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func ginContextWithQuery(rawQuery string) *gin.Context {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/?"+rawQuery, nil)
	return c
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		page     int64
		pageSize int64
	}{
		{"defaults", "", 1, 20},
		{"explicit values", "page=3&pageSize=50", 3, 50},
		{"page below range", "page=0", 1, 20},
		{"page size below range", "pageSize=-5", 1, 20},
		{"page size above cap", "pageSize=500", 1, 100},
		{"garbage input", "page=abc&pageSize=xyz", 1, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePagination(ginContextWithQuery(tt.query))
			assert.Equal(t, tt.page, got.Page)
			assert.Equal(t, tt.pageSize, got.PageSize)
		})
	}
}

func TestPageRequestOffsetAndLimit(t *testing.T) {
	p := PageRequest{Page: 3, PageSize: 25}
	assert.Equal(t, int64(50), p.GetOffset())
	assert.Equal(t, int64(25), p.GetLimit())
}
