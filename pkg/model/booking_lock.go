package model

import "time"

// ResourceGuard is the per-resource document every booking write transaction
// updates before it looks for overlaps. Two transactions touching the same
// resource therefore write-conflict and one of them is retried.
type ResourceGuard struct {
	ResourceID string    `bson:"_id" json:"resource_id"`
	Version    int64     `bson:"version" json:"version"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
}
