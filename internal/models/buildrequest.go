package models

import "time"

// BuildRequest asks one builder to perform a build of the owning buildset's
// sourcestamps. One row is created per target builder, in the same
// transaction as the buildset itself.
type BuildRequest struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	BuildsetID  int64     `gorm:"not null;index"`
	BuilderID   int64     `gorm:"not null;index"`
	Priority    int       `gorm:"not null;default:0"`
	Complete    bool      `gorm:"not null;default:false"`
	Results     int       `gorm:"not null;default:-1"`
	SubmittedAt time.Time `gorm:"not null"`
	CompleteAt  *time.Time
	WaitedFor   bool `gorm:"not null;default:false"`
}
