package service

import "time"

const (
	// MaxImagesPerTenant bounds the stored rows of one tenant, expired rows included.
	MaxImagesPerTenant = 5
	// Retention is how long a row lives after creation before it is reaped.
	Retention = 72 * time.Hour
)

// RetentionCutoff returns the instant before which rows are reaped at now.
func RetentionCutoff(now time.Time) time.Time {
	return now.Add(-Retention)
}
