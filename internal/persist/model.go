// Package persist provides durable storage for queue items across process
// restarts, backed by gorm and an embedded sqlite database.
package persist

import "time"

// ItemRecord is the gorm-mapped row for a persisted queue item. Field
// names mirror queue.Item; this package does not import internal/queue to
// avoid a storage-layer dependency on scheduling types, so callers convert
// between the two.
type ItemRecord struct {
	ID         string `gorm:"primaryKey"`
	URL        string `gorm:"index"`
	Priority   int
	Status     string `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Metadata   string // JSON-encoded
	PlaylistID string `gorm:"index"`
	EngineHint string
	RetryCount int
	NextRetryAt time.Time
}

// TableName pins the table name so a later rename of the struct doesn't
// silently migrate data to a new table.
func (ItemRecord) TableName() string { return "queue_items" }

// RuleRecord is the gorm-mapped row for a persisted rule definition.
type RuleRecord struct {
	ID         string `gorm:"primaryKey"`
	Name       string
	Priority   int
	Enabled    bool
	Definition string // JSON-encoded rules.Rule
	UpdatedAt  time.Time
}

func (RuleRecord) TableName() string { return "rules" }
