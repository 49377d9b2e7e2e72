// Package buildsets owns the buildset lifecycle: grouping the build
// requests triggered by a single cause into one unit, completing it
// exactly once, and answering history queries. All multi-row writes are
// transactional; property reads go through a bounded cache.
package buildsets

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/macdems/buildbot/internal/models"
	"github.com/macdems/buildbot/internal/properties"
)

// RequestCreator creates one build request row per target builder inside
// the buildset creation transaction. The build-request distribution and
// claiming logic lives with the implementation, not here.
type RequestCreator interface {
	CreateBuildRequest(tx *gorm.DB, buildsetID, builderID int64, submittedAt time.Time, waitedFor bool) (int64, error)
}

// Store provides buildset creation, completion and queries against the
// relational backend.
type Store struct {
	db       *gorm.DB
	clock    Clock
	requests RequestCreator
	cache    *PropertiesCache
}

// DefaultCacheSize bounds the properties cache when no explicit size is
// configured.
const DefaultCacheSize = 128

// NewStore creates a Store. cacheSize bounds the properties cache; zero
// or negative selects DefaultCacheSize.
func NewStore(db *gorm.DB, clock Clock, requests RequestCreator, cacheSize int) (*Store, error) {
	if clock == nil {
		clock = SystemClock{}
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	s := &Store{db: db, clock: clock, requests: requests}
	cache, err := NewPropertiesCache(cacheSize, s.loadProperties)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// AddBuildsetRequest holds the parameters of AddBuildset.
type AddBuildsetRequest struct {
	SourceStamps     []int64
	Reason           string
	Properties       properties.Set
	BuilderIDs       []int64
	ExternalIDString string
	SubmittedAt      *time.Time // nil defaults to the store clock
	WaitedFor        bool
}

// AddBuildset creates a buildset, its sourcestamp links, its property
// rows and one build request per target builder, all in one transaction.
// It returns the new buildset id and a map from builder id to the new
// build request id. The properties cache is seeded after commit.
func (s *Store) AddBuildset(req AddBuildsetRequest) (int64, map[int64]int64, error) {
	if len(req.SourceStamps) == 0 {
		return 0, nil, fmt.Errorf("buildsets: at least one sourcestamp is required")
	}
	if len(req.BuilderIDs) == 0 {
		return 0, nil, fmt.Errorf("buildsets: at least one builder is required")
	}

	submittedAt := s.clock.Now()
	if req.SubmittedAt != nil {
		submittedAt = *req.SubmittedAt
	}

	var bsid int64
	brids := make(map[int64]int64, len(req.BuilderIDs))

	err := s.db.Transaction(func(tx *gorm.DB) error {
		bs := models.Buildset{
			ExternalIDString: nullable(req.ExternalIDString),
			Reason:           nullable(req.Reason),
			SubmittedAt:      submittedAt,
			Complete:         false,
			Results:          -1,
		}
		if err := tx.Create(&bs).Error; err != nil {
			return fmt.Errorf("buildsets: insert buildset: %w", err)
		}
		bsid = bs.ID

		for _, ssid := range req.SourceStamps {
			link := models.BuildsetSourceStamp{BuildsetID: bsid, SourceStampID: ssid}
			if err := tx.Create(&link).Error; err != nil {
				return fmt.Errorf("buildsets: link sourcestamp %d: %w", ssid, err)
			}
		}

		for name, prop := range req.Properties {
			text, err := properties.Encode(prop)
			if err != nil {
				return err
			}
			row := models.BuildsetProperty{BuildsetID: bsid, Name: name, Value: text}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("buildsets: insert property %q: %w", name, err)
			}
		}

		for _, builderID := range req.BuilderIDs {
			brid, err := s.requests.CreateBuildRequest(tx, bsid, builderID, submittedAt, req.WaitedFor)
			if err != nil {
				return fmt.Errorf("buildsets: create build request for builder %d: %w", builderID, err)
			}
			brids[builderID] = brid
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	s.cache.Put(bsid, req.Properties)
	return bsid, brids, nil
}

// CompleteBuildset marks a buildset complete with the given results code.
// completeAt nil defaults to the store clock. The update is a single
// conditional write guarded on complete = false, so exactly one of any
// concurrent completion attempts succeeds; the rest get
// AlreadyCompleteError, as does completion of an unknown id.
func (s *Store) CompleteBuildset(bsid int64, results int, completeAt *time.Time) error {
	at := s.clock.Now()
	if completeAt != nil {
		at = *completeAt
	}

	res := s.db.Model(&models.Buildset{}).
		Where("id = ? AND complete = ?", bsid, false).
		Updates(map[string]interface{}{
			"complete":    true,
			"complete_at": at,
			"results":     results,
		})
	if res.Error != nil {
		return fmt.Errorf("buildsets: complete buildset %d: %w", bsid, res.Error)
	}
	if res.RowsAffected == 0 {
		return &AlreadyCompleteError{BuildsetID: bsid}
	}
	return nil
}

// nullable maps the empty string to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
