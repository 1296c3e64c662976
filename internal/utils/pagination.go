package utils

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimitOffset parses and clamps limit/offset query parameters.
// A limit above maxLimit is capped; negative offsets become zero.
func ParseLimitOffset(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	if limit < 1 {
		limit = defaultLimit
	} else if limit > maxLimit {
		limit = maxLimit
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
