package apihttp

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"gexwatch/internal/aggregate"
	"gexwatch/internal/app"
	"gexwatch/internal/store"
	"gexwatch/internal/store/driftlog"
	"gexwatch/internal/pkg/symbol"

	"github.com/gin-gonic/gin"
)

const maxListLimit = 500

// PipelineAPI 供 HTTP 层调用的分析入口，由 app.Pipeline 实现。
type PipelineAPI interface {
	Ingest(ctx context.Context, raw []byte) (aggregate.Result, error)
	Analyze(ctx context.Context, sym string, req app.AnalyzeRequest) (*app.AnalysisResult, error)
	DriftReports(ctx context.Context, sym string, limit int) ([]driftlog.ReportRecord, error)
}

// SnapshotReader 快照状态只读视图。
type SnapshotReader interface {
	LoadWorking(ctx context.Context, symbol string) (store.WorkingState, bool, error)
	ListConfirmedHistory(ctx context.Context, symbol string, limit int) ([]store.ConfirmedVersion, error)
	ListSymbols(ctx context.Context) ([]string, error)
	ListMergeLog(ctx context.Context, symbol string, limit int) ([]store.MergeLogEntry, error)
}

// Router 暴露快照与分析相关的接口。
type Router struct {
	pipeline PipelineAPI
	store    SnapshotReader
}

// NewRouter 构造 API router。
func NewRouter(p PipelineAPI, st SnapshotReader) *Router {
	return &Router{pipeline: p, store: st}
}

// Register 将 /api/v1 路由挂载到给定分组下。
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.POST("/snapshot", r.handleIngest)
	group.POST("/analyze/:symbol", r.handleAnalyze)
	group.GET("/drift/:symbol", r.handleDriftReports)
	if r.store != nil {
		group.GET("/symbols", r.handleSymbols)
		group.GET("/state/:symbol", r.handleState)
		group.GET("/history/:symbol", r.handleHistory)
		group.GET("/mergelog/:symbol", r.handleMergeLog)
	}
}

func (r *Router) handleIngest(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "读取请求体失败"})
		return
	}
	res, err := r.pipeline.Ingest(c.Request.Context(), raw)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":           res.Record.Symbol,
		"outcome":          res.Outcome,
		"round":            res.Round,
		"completeness":     res.Completeness.Rate,
		"fields_added":     res.FieldsAdded,
		"fields_updated":   res.FieldsUpdated,
		"fields_preserved": res.FieldsPreserved,
		"invalid_rejected": res.InvalidRejected,
		"promoted":         res.Promoted,
		"failure_reason":   res.FailureReason,
	})
}

func (r *Router) handleAnalyze(c *gin.Context) {
	sym := pathSymbol(c)
	if sym == "" {
		return
	}
	var req app.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "请求体解析失败: " + err.Error()})
		return
	}
	res, err := r.pipeline.Analyze(c.Request.Context(), sym, req)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (r *Router) handleDriftReports(c *gin.Context) {
	sym := pathSymbol(c)
	if sym == "" {
		return
	}
	reports, err := r.pipeline.DriftReports(c.Request.Context(), sym, queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": sym, "reports": reports})
}

func (r *Router) handleSymbols(c *gin.Context) {
	symbols, err := r.store.ListSymbols(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": symbols})
}

func (r *Router) handleState(c *gin.Context) {
	sym := pathSymbol(c)
	if sym == "" {
		return
	}
	ws, ok, err := r.store.LoadWorking(c.Request.Context(), sym)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "标的 " + sym + " 尚无快照"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"symbol":       sym,
		"record":       ws.Record,
		"completeness": ws.CompletenessRate,
		"is_complete":  ws.IsComplete,
		"merge_count":  ws.MergeCount,
		"trace_id":     ws.TraceID,
	})
}

func (r *Router) handleHistory(c *gin.Context) {
	sym := pathSymbol(c)
	if sym == "" {
		return
	}
	history, err := r.store.ListConfirmedHistory(c.Request.Context(), sym, queryLimit(c, 10))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": sym, "versions": history})
}

func (r *Router) handleMergeLog(c *gin.Context) {
	sym := pathSymbol(c)
	if sym == "" {
		return
	}
	entries, err := r.store.ListMergeLog(c.Request.Context(), sym, queryLimit(c, 50))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbol": sym, "entries": entries})
}

func pathSymbol(c *gin.Context) string {
	sym := symbol.Normalize(c.Param("symbol"))
	if sym == "UNKNOWN" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol 无法识别"})
		return ""
	}
	return sym
}

func queryLimit(c *gin.Context, fallback int) int {
	raw := strings.TrimSpace(c.DefaultQuery("limit", ""))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	if n > maxListLimit {
		return maxListLimit
	}
	return n
}
