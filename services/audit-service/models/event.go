package models

import "time"

// SecurityEventRecord is the persisted audit row for a security event.
// EmailEncrypted holds the subject email encrypted at rest; EmailHash
// is a keyed digest used for lookups without decryption.
type SecurityEventRecord struct {
	ID             uint   `gorm:"primaryKey"`
	EmailEncrypted string `gorm:"not null"`
	EmailHash      string `gorm:"index;not null"`
	EventType      string `gorm:"index;not null"`
	Details        string
	DeviceInfo     string
	Platform       string
	OccurredAt     int64 `gorm:"index;not null"`
	CreatedAt      time.Time
}

// ReportEventRecord is the persisted audit row for an admin mutation on
// a report.
type ReportEventRecord struct {
	ID         uint   `gorm:"primaryKey"`
	ReportID   string `gorm:"index;not null"`
	Title      string
	Action     string `gorm:"index;not null"`
	OldValue   string
	NewValue   string
	ActorID    string `gorm:"index"`
	ActorName  string
	OccurredAt int64 `gorm:"index;not null"`
	CreatedAt  time.Time
}
