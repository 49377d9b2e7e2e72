package buildsets

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/macdems/buildbot/internal/models"
	"github.com/macdems/buildbot/internal/properties"
)

// BuildSetModel is the read-side projection of a buildset row plus its
// joined sourcestamp ids. Two models with identical field values compare
// equal with reflect.DeepEqual.
type BuildSetModel struct {
	BSID             int64
	ExternalIDString string
	Reason           string
	SourceStamps     []int64
	SubmittedAt      time.Time
	Complete         bool
	CompleteAt       *time.Time
	Results          int
}

// GetBuildset returns a single buildset, or nil when no such row exists.
// Absence is not an error.
func (s *Store) GetBuildset(bsid int64) (*BuildSetModel, error) {
	var row models.Buildset
	err := s.db.First(&row, bsid).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("buildsets: get buildset %d: %w", bsid, err)
	}

	ssids, err := s.sourceStampIDs([]int64{bsid})
	if err != nil {
		return nil, err
	}
	model := toModel(row, ssids[bsid])
	return &model, nil
}

// GetBuildsetProperties returns the property set of a buildset, served
// from the cache. Both "no properties" and "no such buildset" yield an
// empty set.
func (s *Store) GetBuildsetProperties(bsid int64) (properties.Set, error) {
	return s.cache.Get(bsid)
}

// GetBuildsets returns all buildsets, optionally filtered by completion
// state. Order is unspecified; callers sort if they need to.
func (s *Store) GetBuildsets(complete *bool) ([]BuildSetModel, error) {
	q := s.db.Model(&models.Buildset{})
	if complete != nil {
		q = q.Where("complete = ?", *complete)
	}

	var rows []models.Buildset
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("buildsets: get buildsets: %w", err)
	}
	return s.toModels(rows)
}

// GetRecentBuildsets returns the count most recently submitted buildsets
// linked to a sourcestamp with the given branch and repository, oldest
// first. Recency ties on submitted_at break on buildset id, higher id
// being more recent.
func (s *Store) GetRecentBuildsets(count int, branch, repository string) ([]BuildSetModel, error) {
	if count <= 0 {
		return []BuildSetModel{}, nil
	}

	var rows []models.Buildset
	err := s.db.Model(&models.Buildset{}).
		Distinct("buildsets.*").
		Joins("JOIN buildset_source_stamps bss ON bss.buildset_id = buildsets.id").
		Joins("JOIN source_stamps ss ON ss.id = bss.source_stamp_id").
		Where("ss.branch = ? AND ss.repository = ?", branch, repository).
		Order("buildsets.submitted_at DESC, buildsets.id DESC").
		Limit(count).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("buildsets: get recent buildsets: %w", err)
	}

	// The window was selected newest-first; callers get it oldest-first.
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return s.toModels(rows)
}

// loadProperties is the cache loader: it reads and decodes all property
// rows of one buildset.
func (s *Store) loadProperties(bsid int64) (properties.Set, error) {
	var rows []models.BuildsetProperty
	if err := s.db.Where("buildset_id = ?", bsid).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("buildsets: load properties of %d: %w", bsid, err)
	}

	set := make(properties.Set, len(rows))
	for _, row := range rows {
		prop, err := properties.Decode(row.Value)
		if err != nil {
			return nil, err
		}
		set[row.Name] = prop
	}
	return set, nil
}

// sourceStampIDs returns the sourcestamp ids of each given buildset.
func (s *Store) sourceStampIDs(bsids []int64) (map[int64][]int64, error) {
	if len(bsids) == 0 {
		return map[int64][]int64{}, nil
	}

	var links []models.BuildsetSourceStamp
	err := s.db.Where("buildset_id IN ?", bsids).
		Order("source_stamp_id ASC").
		Find(&links).Error
	if err != nil {
		return nil, fmt.Errorf("buildsets: load sourcestamp links: %w", err)
	}

	out := make(map[int64][]int64, len(bsids))
	for _, l := range links {
		out[l.BuildsetID] = append(out[l.BuildsetID], l.SourceStampID)
	}
	return out, nil
}

func (s *Store) toModels(rows []models.Buildset) ([]BuildSetModel, error) {
	bsids := make([]int64, len(rows))
	for i, row := range rows {
		bsids[i] = row.ID
	}
	ssids, err := s.sourceStampIDs(bsids)
	if err != nil {
		return nil, err
	}

	out := make([]BuildSetModel, len(rows))
	for i, row := range rows {
		out[i] = toModel(row, ssids[row.ID])
	}
	return out, nil
}

func toModel(row models.Buildset, ssids []int64) BuildSetModel {
	m := BuildSetModel{
		BSID:         row.ID,
		SourceStamps: ssids,
		SubmittedAt:  row.SubmittedAt,
		Complete:     row.Complete,
		CompleteAt:   row.CompleteAt,
		Results:      row.Results,
	}
	if row.ExternalIDString != nil {
		m.ExternalIDString = *row.ExternalIDString
	}
	if row.Reason != nil {
		m.Reason = *row.Reason
	}
	return m
}
