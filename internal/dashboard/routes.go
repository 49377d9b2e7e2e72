package dashboard

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/macdems/buildbot/internal/buildsets"
)

// buildsetJSON is the wire form of a buildset.
type buildsetJSON struct {
	BSID             int64      `json:"bsid"`
	ExternalIDString string     `json:"external_idstring,omitempty"`
	Reason           string     `json:"reason,omitempty"`
	SourceStamps     []int64    `json:"sourcestamps"`
	SubmittedAt      time.Time  `json:"submitted_at"`
	Complete         bool       `json:"complete"`
	CompleteAt       *time.Time `json:"complete_at,omitempty"`
	Results          int        `json:"results"`
}

func toJSON(m buildsets.BuildSetModel) buildsetJSON {
	return buildsetJSON{
		BSID:             m.BSID,
		ExternalIDString: m.ExternalIDString,
		Reason:           m.Reason,
		SourceStamps:     m.SourceStamps,
		SubmittedAt:      m.SubmittedAt,
		Complete:         m.Complete,
		CompleteAt:       m.CompleteAt,
		Results:          m.Results,
	}
}

func toJSONList(ms []buildsets.BuildSetModel) []buildsetJSON {
	out := make([]buildsetJSON, len(ms))
	for i, m := range ms {
		out[i] = toJSON(m)
	}
	return out
}

// registerRoutes sets up all API routes on the Gin router.
func registerRoutes(router *gin.Engine, store *buildsets.Store) {
	api := router.Group("/api")
	api.GET("/buildsets", listBuildsets(store))
	api.GET("/buildsets/recent", recentBuildsets(store))
	api.GET("/buildsets/:id", getBuildset(store))
	api.GET("/buildsets/:id/properties", getProperties(store))
}

func listBuildsets(store *buildsets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var complete *bool
		if raw, ok := c.GetQuery("complete"); ok {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "complete must be a boolean"})
				return
			}
			complete = &v
		}

		ms, err := store.GetBuildsets(complete)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"buildsets": toJSONList(ms)})
	}
}

func recentBuildsets(store *buildsets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		count, err := strconv.Atoi(c.DefaultQuery("count", "10"))
		if err != nil || count < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "count must be a non-negative integer"})
			return
		}
		branch := c.Query("branch")
		repository := c.Query("repository")

		ms, err := store.GetRecentBuildsets(count, branch, repository)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"buildsets": toJSONList(ms)})
	}
}

func getBuildset(store *buildsets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		bsid, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
			return
		}

		m, err := store.GetBuildset(bsid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if m == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no such buildset"})
			return
		}
		c.JSON(http.StatusOK, toJSON(*m))
	}
}

func getProperties(store *buildsets.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		bsid, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
			return
		}

		props, err := store.GetBuildsetProperties(bsid)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		// Same shape as the stored encoding: name -> [value, source].
		out := make(map[string][2]interface{}, len(props))
		for name, p := range props {
			out[name] = [2]interface{}{p.Value, p.Source}
		}
		c.JSON(http.StatusOK, gin.H{"properties": out})
	}
}
