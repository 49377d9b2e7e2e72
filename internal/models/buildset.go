package models

import "time"

// Buildset groups the build requests spawned by a single triggering event
// (a change, a scheduled trigger, a forced build).
type Buildset struct {
	ID               int64      `gorm:"primaryKey;autoIncrement"`
	ExternalIDString *string    `gorm:"size:256"`
	Reason           *string    `gorm:"size:256"`
	SubmittedAt      time.Time  `gorm:"not null;index"`
	Complete         bool       `gorm:"not null;default:false;index"`
	CompleteAt       *time.Time
	Results          int `gorm:"not null;default:-1"`

	SourceStamps []BuildsetSourceStamp `gorm:"foreignKey:BuildsetID"`
	Properties   []BuildsetProperty    `gorm:"foreignKey:BuildsetID"`
	Requests     []BuildRequest        `gorm:"foreignKey:BuildsetID"`
}

// BuildsetSourceStamp links a buildset to one of the sourcestamps it builds.
// Rows are created with the buildset and never updated.
type BuildsetSourceStamp struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	BuildsetID    int64 `gorm:"not null;uniqueIndex:uk_buildset_sourcestamp"`
	SourceStampID int64 `gorm:"not null;uniqueIndex:uk_buildset_sourcestamp"`
}

// BuildsetProperty is one named property of a buildset. Value holds the
// codec text form of a [value, source] pair. Property names are unique
// within a buildset.
type BuildsetProperty struct {
	BuildsetID int64  `gorm:"primaryKey;autoIncrement:false"`
	Name       string `gorm:"primaryKey;size:256;column:property_name"`
	Value      string `gorm:"type:text;not null;column:property_value"`
}
