package models

import "time"

// SourceStamp identifies a particular state of the code: a branch and
// repository plus an optional revision within them.
type SourceStamp struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	Branch     string `gorm:"size:256;index:idx_sourcestamp_branch_repo"`
	Repository string `gorm:"size:512;index:idx_sourcestamp_branch_repo"`
	Revision   string `gorm:"size:64"`
	Project    string `gorm:"size:256"`
	CreatedAt  time.Time
}

// Builder is a named target that build requests are addressed to.
type Builder struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:128;uniqueIndex"`
}
