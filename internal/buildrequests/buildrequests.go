// Package buildrequests creates and reads build request rows. Request
// creation happens on the caller's transaction handle so a buildset and
// its requests commit together.
package buildrequests

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/macdems/buildbot/internal/models"
)

// Creator inserts build request rows. It satisfies the buildsets
// package's RequestCreator interface.
type Creator struct{}

// NewCreator returns a Creator.
func NewCreator() *Creator { return &Creator{} }

// CreateBuildRequest inserts one build request for the given builder on
// the supplied transaction and returns its id.
func (c *Creator) CreateBuildRequest(tx *gorm.DB, buildsetID, builderID int64, submittedAt time.Time, waitedFor bool) (int64, error) {
	req := models.BuildRequest{
		BuildsetID:  buildsetID,
		BuilderID:   builderID,
		Priority:    0,
		Complete:    false,
		Results:     -1,
		SubmittedAt: submittedAt,
		WaitedFor:   waitedFor,
	}
	if err := tx.Create(&req).Error; err != nil {
		return 0, fmt.Errorf("buildrequests: insert request for builder %d: %w", builderID, err)
	}
	return req.ID, nil
}

// ByBuildset returns all build requests of a buildset, ordered by id.
func ByBuildset(db *gorm.DB, buildsetID int64) ([]models.BuildRequest, error) {
	var reqs []models.BuildRequest
	err := db.Where("buildset_id = ?", buildsetID).Order("id ASC").Find(&reqs).Error
	if err != nil {
		return nil, fmt.Errorf("buildrequests: list for buildset %d: %w", buildsetID, err)
	}
	return reqs, nil
}
