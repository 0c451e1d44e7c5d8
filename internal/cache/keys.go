package cache

import (
	"fmt"

	"github.com/google/uuid"
)

const keyPrefix = "pawlogic"

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:job:%s:status", keyPrefix, jobID)
}

func JobResultKey(jobID uuid.UUID) string {
	return fmt.Sprintf("%s:job:%s:result", keyPrefix, jobID)
}

// RateLimitKey names the counter of one user for one fixed window.
func RateLimitKey(userID uuid.UUID, window int64) string {
	return fmt.Sprintf("%s:ratelimit:%s:%d", keyPrefix, userID, window)
}
