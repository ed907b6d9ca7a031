package rpc

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/rollupops/disputedash/cost"
	"github.com/rollupops/disputedash/events"
	"github.com/rollupops/disputedash/log"
	"github.com/rollupops/disputedash/tree"
	"github.com/rollupops/disputedash/txsender"
)

const (
	meterName = "github.com/rollupops/disputedash/rpc"

	defaultProvePriceUSD = 0.34
)

// SendTxsRequest is the body of POST /api/send-txs.
type SendTxsRequest struct {
	Count int `json:"count" binding:"required,gt=0"`
}

// BlockRangeRequest is the body of POST /api/build-tree and
// POST /api/estimate-cost.
type BlockRangeRequest struct {
	BlockStart uint64 `json:"block_start"`
	BlockEnd   uint64 `json:"block_end"`
}

// StatusResponse is the payload of GET /api/status.
type StatusResponse struct {
	L1Block        *uint64    `json:"l1_block"`
	L2Block        *uint64    `json:"l2_block"`
	Connected      bool       `json:"connected"`
	TreeLoaded     bool       `json:"tree_loaded"`
	TreeBlockRange *[2]uint64 `json:"tree_block_range"`
}

// dashboardState is the in-memory state shared across requests. It survives
// only as long as the process, the tree envelope on disk is the durable part.
type dashboardState struct {
	sync.Mutex
	treeLoaded     bool
	treeBlockRange *[2]uint64
	lastBlockRange *[2]uint64
	costData       *cost.Estimate
}

// DashboardEndpoints contains implementations for the dashboard HTTP endpoints
type DashboardEndpoints struct {
	logger      *log.Logger
	meter       metric.Meter
	readTimeout time.Duration
	l2          L2Clienter
	l2URL       string
	builder     TreeBuilder
	sender      TxBatcher
	estimator   CostEstimater
	modelCfg    cost.ModelConfig
	loadTree    EnvelopeLoader
	state       dashboardState
}

// NewDashboardEndpoints returns DashboardEndpoints
func NewDashboardEndpoints(
	logger *log.Logger,
	readTimeout time.Duration,
	l2 L2Clienter,
	l2URL string,
	builder TreeBuilder,
	sender TxBatcher,
	estimator CostEstimater,
	modelCfg cost.ModelConfig,
) *DashboardEndpoints {
	meter := otel.Meter(meterName)
	return &DashboardEndpoints{
		logger:      logger,
		meter:       meter,
		readTimeout: readTimeout,
		l2:          l2,
		l2URL:       l2URL,
		builder:     builder,
		sender:      sender,
		estimator:   estimator,
		modelCfg:    modelCfg,
		loadTree:    tree.LoadEnvelope,
	}
}

// RegisterRoutes attaches all dashboard routes to the engine.
func (d *DashboardEndpoints) RegisterRoutes(engine *gin.Engine, staticDir string) {
	engine.GET("/", d.Index(staticDir))
	engine.GET("/api/status", d.Status)
	engine.GET("/api/config", d.ConfigView)
	engine.GET("/api/last-block-range", d.LastBlockRange)
	engine.GET("/api/tree", d.Tree)
	engine.GET("/api/tree/raw", d.TreeRaw)
	engine.GET("/api/cost-model", d.CostModel)
	engine.GET("/api/cost-data", d.CostData)
	engine.GET("/api/safe-block", d.SafeBlock)
	engine.POST("/api/send-txs", d.SendTxs)
	engine.POST("/api/build-tree", d.BuildTree)
	engine.POST("/api/estimate-cost", d.EstimateCost)
}

// Index serves the dashboard frontend, or a placeholder when the static
// files are not deployed yet.
func (d *DashboardEndpoints) Index(staticDir string) gin.HandlerFunc {
	indexPath := filepath.Join(staticDir, "index.html")
	return func(c *gin.Context) {
		if _, err := os.Stat(indexPath); err == nil {
			c.File(indexPath)
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8",
			[]byte("<h1>Rollup Devnet Dashboard</h1><p>Setting up...</p>"))
	}
}

// Status returns devnet connectivity and dashboard state.
func (d *DashboardEndpoints) Status(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), d.readTimeout)
	defer cancel()
	d.count(ctx, "status")

	var l2Block *uint64
	if blockNum, err := d.l2.CurrentBlock(ctx); err == nil {
		l2Block = &blockNum
	}

	d.state.Lock()
	resp := StatusResponse{
		L2Block:        l2Block,
		Connected:      l2Block != nil,
		TreeLoaded:     d.state.treeLoaded,
		TreeBlockRange: d.state.treeBlockRange,
	}
	d.state.Unlock()

	c.JSON(http.StatusOK, resp)
}

// ConfigView returns the non-sensitive config values the frontend needs.
func (d *DashboardEndpoints) ConfigView(c *gin.Context) {
	d.count(c.Request.Context(), "config")
	c.JSON(http.StatusOK, gin.H{
		"l2_rpc":           d.l2URL,
		"tree_output_path": d.builder.OutputPath(),
		"cost_model": gin.H{
			"compressed_base_fee":  d.modelCfg.CompressedBaseFee,
			"compressed_pgu_price": d.modelCfg.CompressedPguPrice,
			"plonk_fee":            d.modelCfg.PlonkFee,
		},
	})
}

// LastBlockRange returns the block range mined by the last tx batch.
func (d *DashboardEndpoints) LastBlockRange(c *gin.Context) {
	d.count(c.Request.Context(), "last_block_range")
	d.state.Lock()
	blockRange := d.state.lastBlockRange
	d.state.Unlock()
	c.JSON(http.StatusOK, gin.H{"block_range": blockRange})
}

// Tree returns the persisted tree in hierarchical form for visualization.
func (d *DashboardEndpoints) Tree(c *gin.Context) {
	d.count(c.Request.Context(), "tree")
	envelope, err := d.loadTree(d.builder.OutputPath())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "No tree loaded", "tree": nil})
		return
	}
	c.JSON(http.StatusOK, envelope.Hierarchy())
}

// TreeRaw returns the persisted envelope as-is (BFS format).
func (d *DashboardEndpoints) TreeRaw(c *gin.Context) {
	d.count(c.Request.Context(), "tree_raw")
	envelope, err := d.loadTree(d.builder.OutputPath())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"error": "No tree loaded"})
		return
	}
	c.JSON(http.StatusOK, envelope)
}

// CostModel returns the scenario table computed from the stored estimate.
func (d *DashboardEndpoints) CostModel(c *gin.Context) {
	d.count(c.Request.Context(), "cost_model")

	d.state.Lock()
	costData := d.state.costData
	d.state.Unlock()
	if costData == nil {
		c.JSON(http.StatusOK, gin.H{"error": "No cost data available. Run estimate-cost first."})
		return
	}

	provePriceUSD := defaultProvePriceUSD
	if v, err := strconv.ParseFloat(c.Query("prove_price_usd"), 64); err == nil {
		provePriceUSD = v
	}
	c.JSON(http.StatusOK, cost.GetModel(costData.TotalPgu, provePriceUSD, d.modelCfg))
}

// CostData returns the stored cost estimation result.
func (d *DashboardEndpoints) CostData(c *gin.Context) {
	d.count(c.Request.Context(), "cost_data")
	d.state.Lock()
	costData := d.state.costData
	d.state.Unlock()
	if costData == nil {
		c.JSON(http.StatusOK, gin.H{"error": "No cost data available"})
		return
	}
	c.JSON(http.StatusOK, costData)
}

// SafeBlock returns the latest safe block number, null when the node is
// unreachable or does not expose the safe tag.
func (d *DashboardEndpoints) SafeBlock(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), d.readTimeout)
	defer cancel()
	d.count(ctx, "safe_block")

	var safe *uint64
	if blockNum, err := d.l2.SafeBlock(ctx); err == nil {
		safe = &blockNum
	}
	c.JSON(http.StatusOK, gin.H{"safe_block": safe})
}

// SendTxs sends a tx batch and streams progress via SSE.
func (d *DashboardEndpoints) SendTxs(c *gin.Context) {
	d.count(c.Request.Context(), "send_txs")
	var req SendTxsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// the batch must survive the client disconnecting mid-stream
	ch := d.sender.SendBatch(context.Background(), req.Count)
	d.stream(c, ch, func(data interface{}) {
		if summary, ok := data.(txsender.Summary); ok {
			d.state.Lock()
			d.state.lastBlockRange = &[2]uint64{summary.BlockStart, summary.BlockEnd}
			d.state.Unlock()
		}
	})
}

// BuildTree builds the commitment tree and streams progress via SSE.
func (d *DashboardEndpoints) BuildTree(c *gin.Context) {
	d.count(c.Request.Context(), "build_tree")
	var req BlockRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// fire and forget: the build persists even if the consumer goes away
	ch := d.builder.BuildTree(context.Background(), req.BlockStart, req.BlockEnd)
	d.stream(c, ch, func(interface{}) {
		d.state.Lock()
		d.state.treeLoaded = true
		d.state.treeBlockRange = &[2]uint64{req.BlockStart, req.BlockEnd}
		d.state.Unlock()
	})
}

// EstimateCost runs the external cost estimator and streams progress via SSE.
func (d *DashboardEndpoints) EstimateCost(c *gin.Context) {
	d.count(c.Request.Context(), "estimate_cost")
	var req BlockRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ch := d.estimator.Run(context.Background(), req.BlockStart, req.BlockEnd)
	d.stream(c, ch, func(data interface{}) {
		if estimate, ok := data.(*cost.Estimate); ok {
			d.state.Lock()
			d.state.costData = estimate
			d.state.Unlock()
		}
	})
}

// stream forwards a progress channel to the client as server-sent events.
// onComplete runs for the terminal Complete event before it is forwarded, so
// dashboard state is updated even when the write to the client fails.
func (d *DashboardEndpoints) stream(c *gin.Context, ch <-chan events.Event, onComplete func(data interface{})) {
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		e, ok := <-ch
		if !ok {
			return false
		}
		if e.Name == events.Complete && onComplete != nil {
			onComplete(e.Data)
		}
		c.SSEvent(string(e.Name), e.Data)
		return true
	})
}

// count bumps a per-endpoint request counter.
func (d *DashboardEndpoints) count(ctx context.Context, endpoint string) {
	counter, err := d.meter.Int64Counter(endpoint + "_requests")
	if err != nil {
		d.logger.Warnf("failed to create %s counter: %s", endpoint, err)
		return
	}
	counter.Add(ctx, 1)
}
