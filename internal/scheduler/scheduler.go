// Package scheduler fires buildset creation on a timetable. It decides
// when to build; everything about how the buildset is stored belongs to
// the buildsets package.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/macdems/buildbot/internal/buildsets"
	"github.com/macdems/buildbot/internal/config"
	"github.com/macdems/buildbot/internal/models"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// BuildsetAdder is the slice of the buildset store the scheduler needs.
type BuildsetAdder interface {
	AddBuildset(req buildsets.AddBuildsetRequest) (int64, map[int64]int64, error)
}

// Scheduler runs the configured periodic schedulers.
type Scheduler struct {
	db      *gorm.DB
	store   BuildsetAdder
	configs []config.SchedulerConfig
}

// New creates a Scheduler, rejecting unparseable cron expressions up
// front rather than at start time.
func New(db *gorm.DB, store BuildsetAdder, configs []config.SchedulerConfig) (*Scheduler, error) {
	for _, sc := range configs {
		if _, err := cronParser.Parse(sc.Cron); err != nil {
			return nil, fmt.Errorf("scheduler: %s: bad cron %q: %w", sc.Name, sc.Cron, err)
		}
	}
	return &Scheduler{db: db, store: store, configs: configs}, nil
}

// Run starts all schedulers and blocks until ctx is cancelled, then
// waits for any in-flight firing to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	c := cron.New(cron.WithParser(cronParser))
	for _, sc := range s.configs {
		sc := sc
		if _, err := c.AddFunc(sc.Cron, func() {
			if err := s.Fire(sc); err != nil {
				log.Printf("scheduler: %s: %v", sc.Name, err)
			}
		}); err != nil {
			return fmt.Errorf("scheduler: %s: %w", sc.Name, err)
		}
		log.Printf("scheduler: %s armed with %q", sc.Name, sc.Cron)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Fire creates one buildset for the given scheduler config.
func (s *Scheduler) Fire(sc config.SchedulerConfig) error {
	ssid, err := s.resolveSourceStamp(sc.Branch, sc.Repository)
	if err != nil {
		return err
	}

	bsid, brids, err := s.store.AddBuildset(buildsets.AddBuildsetRequest{
		SourceStamps: []int64{ssid},
		Reason:       fmt.Sprintf("The Periodic scheduler named '%s' triggered this build", sc.Name),
		BuilderIDs:   sc.BuilderIDs,
		WaitedFor:    sc.WaitedFor,
	})
	if err != nil {
		return err
	}
	log.Printf("scheduler: %s created buildset %d with %d requests", sc.Name, bsid, len(brids))
	return nil
}

// resolveSourceStamp finds or creates the sourcestamp row for the
// scheduler's branch and repository.
func (s *Scheduler) resolveSourceStamp(branch, repository string) (int64, error) {
	stamp := models.SourceStamp{Branch: branch, Repository: repository}
	err := s.db.Where("branch = ? AND repository = ?", branch, repository).
		FirstOrCreate(&stamp).Error
	if err != nil {
		return 0, fmt.Errorf("scheduler: resolve sourcestamp %s@%s: %w", branch, repository, err)
	}
	return stamp.ID, nil
}
