// internal/utils/pagination.go
package utils

import (
	"math"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Listing endpoints (catalog, orders, payment history, notifications) share
// one query-string contract: page/limit windowing, a whitelisted sort column,
// and the catalog's search and category filters.
const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
)

type PaginationParams struct {
	Page     int    `json:"page"`
	Limit    int    `json:"limit"`
	Sort     string `json:"sort"`
	Order    string `json:"order"`
	Search   string `json:"search"`
	Category string `json:"category"`
}

type PaginationResult struct {
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	Total      int64       `json:"total"`
	TotalPages int         `json:"total_pages"`
	Data       interface{} `json:"data"`
}

// GetPaginationParams reads the listing contract off the request, clamping
// the window so a client cannot ask for an unbounded page.
func GetPaginationParams(c *gin.Context) PaginationParams {
	p := PaginationParams{
		Page:     intQuery(c, "page", defaultPage),
		Limit:    intQuery(c, "limit", defaultLimit),
		Sort:     c.DefaultQuery("sort", "created_at"),
		Order:    strings.ToLower(c.DefaultQuery("order", "desc")),
		Search:   c.Query("search"),
		Category: c.Query("category"),
	}

	if p.Page < 1 {
		p.Page = defaultPage
	}
	if p.Limit < 1 || p.Limit > maxLimit {
		p.Limit = defaultLimit
	}
	if p.Order != "asc" {
		p.Order = "desc"
	}
	return p
}

func intQuery(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return v
}

func ApplyPagination(db *gorm.DB, p PaginationParams) *gorm.DB {
	return db.Offset((p.Page - 1) * p.Limit).Limit(p.Limit)
}

// ApplySort orders by the requested column only when the caller whitelists
// it; column names must never come straight from the query string.
func ApplySort(db *gorm.DB, p PaginationParams, allowed []string) *gorm.DB {
	column := "created_at"
	for _, candidate := range allowed {
		if candidate == p.Sort {
			column = p.Sort
			break
		}
	}
	return db.Order(column + " " + p.Order)
}

func CreatePaginationResult(data interface{}, total int64, p PaginationParams) PaginationResult {
	return PaginationResult{
		Page:       p.Page,
		Limit:      p.Limit,
		Total:      total,
		TotalPages: int(math.Ceil(float64(total) / float64(p.Limit))),
		Data:       data,
	}
}

func SetPaginationHeaders(c *gin.Context, result PaginationResult) {
	c.Header("X-Total-Count", strconv.FormatInt(result.Total, 10))
	c.Header("X-Page", strconv.Itoa(result.Page))
	c.Header("X-Per-Page", strconv.Itoa(result.Limit))
	c.Header("X-Total-Pages", strconv.Itoa(result.TotalPages))
}
