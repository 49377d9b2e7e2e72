package buildsets

import (
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/macdems/buildbot/internal/buildrequests"
	"github.com/macdems/buildbot/internal/models"
)

// testNow is the epoch the fake clock starts at in most tests.
const testNow = int64(9272359)

// fakeClock is a settable Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(epoch int64) *fakeClock {
	return &fakeClock{now: time.Unix(epoch, 0).UTC()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	// A single pooled connection keeps every query on the same in-memory
	// database and serializes concurrent writers.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.SourceStamp{},
		&models.Builder{},
		&models.Buildset{},
		&models.BuildsetSourceStamp{},
		&models.BuildsetProperty{},
		&models.BuildRequest{},
	)
	if err != nil {
		t.Fatalf("auto-migrate: %v", err)
	}
	return db
}

// testStore builds a Store over a fresh in-memory database with
// sourcestamp 234 and builders 1, 2 pre-inserted.
func testStore(t *testing.T) (*Store, *gorm.DB, *fakeClock) {
	t.Helper()
	db := testDB(t)

	fixtures := []interface{}{
		&models.SourceStamp{ID: 234, Branch: "trunk", Repository: "repo"},
		&models.Builder{ID: 1, Name: "bldr1"},
		&models.Builder{ID: 2, Name: "bldr2"},
	}
	for _, f := range fixtures {
		if err := db.Create(f).Error; err != nil {
			t.Fatalf("insert fixture: %v", err)
		}
	}

	clock := newFakeClock(testNow)
	store, err := NewStore(db, clock, buildrequests.NewCreator(), 8)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, db, clock
}

// buildsetRow describes one pre-inserted buildset for query tests.
type buildsetRow struct {
	id          int64
	complete    bool
	completeAt  int64
	results     int
	submittedAt int64
	extID       string
	reason      string
	stamps      []int64
}

func insertBuildset(t *testing.T, db *gorm.DB, row buildsetRow) {
	t.Helper()
	completeAt := time.Unix(row.completeAt, 0).UTC()
	bs := models.Buildset{
		ID:               row.id,
		ExternalIDString: &row.extID,
		Reason:           &row.reason,
		SubmittedAt:      time.Unix(row.submittedAt, 0).UTC(),
		Complete:         row.complete,
		CompleteAt:       &completeAt,
		Results:          row.results,
	}
	if err := db.Create(&bs).Error; err != nil {
		t.Fatalf("insert buildset %d: %v", row.id, err)
	}
	for _, ssid := range row.stamps {
		link := models.BuildsetSourceStamp{BuildsetID: row.id, SourceStampID: ssid}
		if err := db.Create(&link).Error; err != nil {
			t.Fatalf("link buildset %d to stamp %d: %v", row.id, ssid, err)
		}
	}
}

func epochPtr(epoch int64) *time.Time {
	at := time.Unix(epoch, 0).UTC()
	return &at
}

// utcModel normalizes a model's timestamps to UTC so structural
// comparison does not depend on the driver's time zone representation.
func utcModel(m BuildSetModel) BuildSetModel {
	m.SubmittedAt = m.SubmittedAt.UTC()
	if m.CompleteAt != nil {
		at := m.CompleteAt.UTC()
		m.CompleteAt = &at
	}
	return m
}

func utcModels(ms []BuildSetModel) []BuildSetModel {
	out := make([]BuildSetModel, len(ms))
	for i, m := range ms {
		out[i] = utcModel(m)
	}
	return out
}
