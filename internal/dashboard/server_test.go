package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/macdems/buildbot/internal/buildrequests"
	"github.com/macdems/buildbot/internal/buildsets"
	"github.com/macdems/buildbot/internal/models"
	"github.com/macdems/buildbot/internal/properties"
)

func testRouter(t *testing.T) (*gin.Engine, *buildsets.Store, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
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

	store, err := buildsets.NewStore(db, nil, buildrequests.NewCreator(), 8)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return newRouter(store), store, db
}

func addBuildset(t *testing.T, store *buildsets.Store, db *gorm.DB, branch, repo string, props properties.Set) int64 {
	t.Helper()
	stamp := models.SourceStamp{Branch: branch, Repository: repo}
	if err := db.Create(&stamp).Error; err != nil {
		t.Fatalf("insert sourcestamp: %v", err)
	}
	bsid, _, err := store.AddBuildset(buildsets.AddBuildsetRequest{
		SourceStamps: []int64{stamp.ID},
		Reason:       "because",
		Properties:   props,
		BuilderIDs:   []int64{1},
	})
	if err != nil {
		t.Fatalf("AddBuildset: %v", err)
	}
	return bsid
}

func get(t *testing.T, router *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStart_NilStore(t *testing.T) {
	err := Start(context.Background(), StartOpts{Store: nil})
	if err == nil {
		t.Fatal("expected error for nil store")
	}
	if !strings.Contains(err.Error(), "store is required") {
		t.Errorf("error = %q", err)
	}
}

func TestListBuildsets(t *testing.T) {
	router, store, db := testRouter(t)
	bsid := addBuildset(t, store, db, "trunk", "repo_a", nil)

	w := get(t, router, "/api/buildsets")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Buildsets []struct {
			BSID    int64 `json:"bsid"`
			Results int   `json:"results"`
		} `json:"buildsets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Buildsets) != 1 || resp.Buildsets[0].BSID != bsid {
		t.Errorf("buildsets = %+v", resp.Buildsets)
	}
	if resp.Buildsets[0].Results != -1 {
		t.Errorf("results = %d, want -1", resp.Buildsets[0].Results)
	}
}

func TestListBuildsets_CompleteFilter(t *testing.T) {
	router, store, db := testRouter(t)
	done := addBuildset(t, store, db, "trunk", "repo_a", nil)
	addBuildset(t, store, db, "trunk", "repo_a", nil)
	if err := store.CompleteBuildset(done, 0, nil); err != nil {
		t.Fatalf("CompleteBuildset: %v", err)
	}

	w := get(t, router, "/api/buildsets?complete=true")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Buildsets []struct {
			BSID int64 `json:"bsid"`
		} `json:"buildsets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Buildsets) != 1 || resp.Buildsets[0].BSID != done {
		t.Errorf("complete buildsets = %+v", resp.Buildsets)
	}

	if w := get(t, router, "/api/buildsets?complete=maybe"); w.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d, want 400", w.Code)
	}
}

func TestGetBuildset(t *testing.T) {
	router, store, db := testRouter(t)
	bsid := addBuildset(t, store, db, "trunk", "repo_a", nil)

	w := get(t, router, "/api/buildsets/"+jsonID(bsid))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var m struct {
		BSID   int64  `json:"bsid"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.BSID != bsid || m.Reason != "because" {
		t.Errorf("buildset = %+v", m)
	}
}

func TestGetBuildset_Errors(t *testing.T) {
	router, _, _ := testRouter(t)

	if w := get(t, router, "/api/buildsets/999"); w.Code != http.StatusNotFound {
		t.Errorf("missing buildset status = %d, want 404", w.Code)
	}
	if w := get(t, router, "/api/buildsets/abc"); w.Code != http.StatusBadRequest {
		t.Errorf("bad id status = %d, want 400", w.Code)
	}
}

func TestGetProperties(t *testing.T) {
	router, store, db := testRouter(t)
	bsid := addBuildset(t, store, db, "trunk", "repo_a", properties.Set{
		"prop1": {Value: "one", Source: "fake1"},
	})

	w := get(t, router, "/api/buildsets/"+jsonID(bsid)+"/properties")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Properties map[string][2]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, ok := resp.Properties["prop1"]
	if !ok || got[0] != "one" || got[1] != "fake1" {
		t.Errorf("properties = %+v", resp.Properties)
	}
}

func TestGetProperties_MissingBuildsetIsEmpty(t *testing.T) {
	router, _, _ := testRouter(t)

	w := get(t, router, "/api/buildsets/999/properties")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with empty set", w.Code)
	}
	var resp struct {
		Properties map[string][2]interface{} `json:"properties"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Properties) != 0 {
		t.Errorf("properties = %+v, want empty", resp.Properties)
	}
}

func TestRecentBuildsets(t *testing.T) {
	router, store, db := testRouter(t)
	older := addBuildset(t, store, db, "branch_a", "repo_a", nil)
	time.Sleep(5 * time.Millisecond)
	newer := addBuildset(t, store, db, "branch_a", "repo_a", nil)
	addBuildset(t, store, db, "other", "repo_b", nil)

	w := get(t, router, "/api/buildsets/recent?count=2&branch=branch_a&repository=repo_a")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		Buildsets []struct {
			BSID int64 `json:"bsid"`
		} `json:"buildsets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Buildsets) != 2 {
		t.Fatalf("buildsets = %+v", resp.Buildsets)
	}
	if resp.Buildsets[0].BSID != older || resp.Buildsets[1].BSID != newer {
		t.Errorf("order = %+v, want oldest first", resp.Buildsets)
	}

	if w := get(t, router, "/api/buildsets/recent?count=-1"); w.Code != http.StatusBadRequest {
		t.Errorf("bad count status = %d, want 400", w.Code)
	}
}

func jsonID(id int64) string {
	return strconv.FormatInt(id, 10)
}
