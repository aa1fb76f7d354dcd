package utils

import (
	"fmt"
	"strings"

	"github.com/yourorg/quote-vault/internal/model"

	"github.com/gin-gonic/gin"
)

// SendErrorResponse sends a standardized error response
func SendErrorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{"error": message})
}

// SendListResponse sends a list with its item count
func SendListResponse(c *gin.Context, statusCode int, data interface{}, count int) {
	c.JSON(statusCode, gin.H{
		"data":  data,
		"count": count,
	})
}

// ParseDateRange reads the optional from and to query parameters.
// A missing bound is returned as the zero Date.
func ParseDateRange(c *gin.Context) (from, to model.Date, err error) {
	if v := c.Query("from"); v != "" {
		if from, err = model.ParseDate(v); err != nil {
			return model.Date{}, model.Date{}, fmt.Errorf("invalid from date %q", v)
		}
	}
	if v := c.Query("to"); v != "" {
		if to, err = model.ParseDate(v); err != nil {
			return model.Date{}, model.Date{}, fmt.Errorf("invalid to date %q", v)
		}
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return model.Date{}, model.Date{}, fmt.Errorf("to date %s is before from date %s", to, from)
	}
	return from, to, nil
}

// ParseList reads a query parameter that may be repeated or comma separated
func ParseList(c *gin.Context, key string) []string {
	var values []string
	for _, raw := range c.QueryArray(key) {
		for _, v := range strings.Split(raw, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
	}
	return values
}
