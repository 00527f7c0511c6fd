// Package adminapi is the optional HTTP/WS introspection surface for a
// cluster: Prometheus scrape endpoint, agent/queue listing, and a live
// event stream. None of it participates in driving foreground work — an
// operator can leave it disabled entirely and every other package behaves
// identically (spec.md §4.17).
package adminapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/r3e-network/jsagent/system/cluster"
	"github.com/r3e-network/jsagent/system/metrics"
	"github.com/r3e-network/jsagent/pkg/logger"
)

// Deps bundles everything the admin router needs, gin-handler style: one
// struct of service dependencies wired once at construction, read by every
// route. Clusters is keyed by cluster id so a single admin surface can
// front more than one cluster in the same process.
type Deps struct {
	Clusters map[string]*cluster.Cluster
	Metrics  *metrics.Metrics
	Hub      *Hub
	Secret   []byte
	Log      *logger.Logger
}

// NewRouter builds the gin engine. /metrics is exempt from bearer auth so a
// scraper doesn't need a token; every other route requires one whenever
// deps.Secret is non-empty.
func NewRouter(deps Deps) *gin.Engine {
	if deps.Log == nil {
		deps.Log = logger.NewDefault("adminapi")
	}
	if deps.Hub == nil {
		deps.Hub = NewHub()
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	admin := r.Group("/", requireBearer(deps.Secret))
	admin.GET("/clusters/:id/agents", deps.listAgents)
	admin.GET("/clusters/:id/agents/:agentID/queue", deps.agentQueueDepth)
	admin.GET("/ws/events", deps.streamEvents)

	return r
}

func (d Deps) cluster(c *gin.Context) (*cluster.Cluster, bool) {
	cl, ok := d.Clusters[c.Param("id")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown cluster"})
		return nil, false
	}
	return cl, true
}

func (d Deps) listAgents(c *gin.Context) {
	cl, ok := d.cluster(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"agents": cl.AgentIDs()})
}

func (d Deps) agentQueueDepth(c *gin.Context) {
	cl, ok := d.cluster(c)
	if !ok {
		return
	}
	depth, ok := cl.QueueDepth(c.Param("agentID"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown agent"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"high":   depth[0],
		"medium": depth[1],
		"low":    depth[2],
	})
}
