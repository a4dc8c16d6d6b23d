package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/opencomp/recordcache/internal/records"
)

// RecordsView is the slice of the published view the handlers need.
type RecordsView interface {
	Records() []records.Record
	Index() records.Index
	UpdatedAt() time.Time
}

// RecordsController serves the published snapshot. Handlers never block and
// never fail: the worst case is stale data, which the status endpoint exposes.
type RecordsController struct {
	view RecordsView
}

func NewRecordsController(view RecordsView) *RecordsController {
	return &RecordsController{view: view}
}

// GetRecords handles GET /api/records: the full record list in fetch order.
func (rc *RecordsController) GetRecords(c *gin.Context) {
	recs := rc.view.Records()
	if recs == nil {
		recs = []records.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

// GetIndex handles GET /api/records/index: records grouped by region|event|type.
func (rc *RecordsController) GetIndex(c *gin.Context) {
	idx := rc.view.Index()
	if idx == nil {
		idx = records.Index{}
	}
	c.JSON(http.StatusOK, idx)
}

// GetStatus handles GET /api/status: freshness of the published snapshot.
func (rc *RecordsController) GetStatus(c *gin.Context) {
	updatedAt := rc.view.UpdatedAt()
	c.JSON(http.StatusOK, gin.H{
		"records":      len(rc.view.Records()),
		"updatedAt":    updatedAt.UTC().Format(time.RFC3339),
		"staleSeconds": int64(time.Since(updatedAt).Seconds()),
	})
}
