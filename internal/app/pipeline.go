package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gexwatch/internal/aggregate"
	"gexwatch/internal/config"
	"gexwatch/internal/drift"
	"gexwatch/internal/logger"
	"gexwatch/internal/marketstate"
	"gexwatch/internal/notifier"
	"gexwatch/internal/quant"
	"gexwatch/internal/ranking"
	"gexwatch/internal/render"
	"gexwatch/internal/snapshot"
	"gexwatch/internal/store"
	"gexwatch/internal/store/driftlog"
	"gexwatch/internal/technical"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// 中文说明：
// Pipeline 串起全链路：摄入合并 -> 市场状态派生 -> 量化决策 -> 策略排名，
// 以及确认快照之间的漂移监控。HTTP 层与 inbox 监听都只跟它打交道。

// Pipeline 分析管线。组件全部注入，无全局状态。
type Pipeline struct {
	cfg      *config.Config
	store    store.SnapshotStore
	driftLog *driftlog.DriftLogStore
	agg      *aggregate.Aggregator
	quantEng *quant.Engine
	rankEng  *ranking.Engine
	registry *ranking.Registry
	driftEng *drift.Engine
	notify   notifier.TextNotifier
}

// AnalyzeRequest 单标的分析请求的宏观输入。
type AnalyzeRequest struct {
	VIX      float64                    `json:"vix"`
	IVR      float64                    `json:"ivr"`
	IV30     float64                    `json:"iv30"`
	HV20     float64                    `json:"hv20"`
	Term     *marketstate.TermStructure `json:"term_structure,omitempty"`
	Scenario quant.Scenario             `json:"scenario"`
	// Closes 可选：给出日线收盘序列时，本地计算技术分与 HV20。
	Closes []float64 `json:"closes,omitempty"`
}

// AnalysisResult 单次分析的完整产出。
type AnalysisResult struct {
	Symbol      string                   `json:"symbol"`
	TraceID     string                   `json:"trace_id"`
	MarketState marketstate.Params       `json:"market_state"`
	Technical   *technical.Result        `json:"technical,omitempty"`
	Decision    *quant.Output            `json:"decision"`
	Ranking     []ranking.RankedStrategy `json:"ranking"`
}

func NewPipeline(cfg *config.Config, st store.SnapshotStore, dl *driftlog.DriftLogStore, reg *ranking.Registry, notify notifier.TextNotifier) *Pipeline {
	if notify == nil {
		notify = notifier.Nop{}
	}
	return &Pipeline{
		cfg:      cfg,
		store:    st,
		driftLog: dl,
		agg:      aggregate.New(st),
		quantEng: quant.NewEngine(cfg.Quant),
		rankEng:  ranking.NewEngine(cfg.Scoring),
		registry: reg,
		driftEng: drift.NewEngine(cfg.Drift),
		notify:   notify,
	}
}

// Aggregator 暴露给 inbox 监听器。
func (p *Pipeline) Aggregator() *aggregate.Aggregator { return p.agg }

// Ingest 解析原始负载并合并。晋升为确认快照时顺带跑一轮漂移对比。
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) (aggregate.Result, error) {
	rec, err := snapshot.ParsePayload(raw)
	if err != nil {
		return aggregate.Result{}, err
	}
	res, err := p.agg.Merge(ctx, rec.Symbol, rec, uuid.NewString())
	if err != nil {
		return res, err
	}
	if res.Promoted {
		p.OnPromotion(ctx, res.Record.Symbol)
	}
	return res, nil
}

// Analyze 对单个标的执行完整决策链。
func (p *Pipeline) Analyze(ctx context.Context, sym string, req AnalyzeRequest) (*AnalysisResult, error) {
	ws, ok, err := p.store.LoadWorking(ctx, sym)
	if err != nil {
		return nil, fmt.Errorf("读取快照失败: %w", err)
	}
	if !ok || ws.Record == nil {
		return nil, fmt.Errorf("标的 %s 尚无快照", sym)
	}

	techScore := 0.0
	var techResult *technical.Result
	hv20 := req.HV20
	if len(req.Closes) > 0 {
		tr, err := technical.Score(req.Closes)
		if err != nil {
			return nil, fmt.Errorf("技术面打分失败: %w", err)
		}
		techResult = &tr
		techScore = tr.Score
		if hv20 <= 0 {
			if hv, err := technical.HV20(req.Closes); err == nil {
				hv20 = hv
			}
		}
	}

	in := marketstate.Inputs{
		VIX:  req.VIX,
		IVR:  req.IVR,
		IV30: req.IV30,
		HV20: hv20,
	}
	if err := marketstate.ValidateInputs(in); err != nil {
		return nil, err
	}
	params, err := marketstate.Derive(in, req.Term, p.cfg.MarketState)
	if err != nil {
		return nil, err
	}

	decision, err := p.quantEng.Compute(ws.Record, req.Scenario, quant.MarketContext{
		IVR:  req.IVR,
		IV30: req.IV30,
		HV20: hv20,
	}, techScore)
	if err != nil {
		return nil, err
	}

	ranked := p.rankEng.Rank(p.candidates(), decision)

	res := &AnalysisResult{
		Symbol:      ws.Record.Symbol,
		TraceID:     uuid.NewString(),
		MarketState: params,
		Technical:   techResult,
		Decision:    decision,
		Ranking:     ranked,
	}
	logger.Infof("分析完成 %s (%s): regime=%s status=%s top=%s",
		res.Symbol, res.TraceID, params.Regime, decision.TradeStatus, topName(ranked))
	logger.InfoBlock(render.DecisionMessage(res.Symbol, decision, ranked).Render())
	return res, nil
}

// AnalyzeAll 并发分析多个标的，单标失败不拖垮整批。
func (p *Pipeline) AnalyzeAll(ctx context.Context, symbols []string, req AnalyzeRequest) (map[string]*AnalysisResult, error) {
	results := make(map[string]*AnalysisResult, len(symbols))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			res, err := p.Analyze(gctx, sym, req)
			if err != nil {
				logger.Warnf("标的 %s 分析失败: %v", sym, err)
				return nil
			}
			mu.Lock()
			results[sym] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// OnPromotion 新确认快照落库后对比上一份确认版本，落盘漂移报告。
// 监控路径永不向上抛错：失败只记日志。
func (p *Pipeline) OnPromotion(ctx context.Context, sym string) *drift.Report {
	history, err := p.store.ListConfirmedHistory(ctx, sym, 2)
	if err != nil {
		logger.Warnf("读取确认历史失败 %s: %v", sym, err)
		return nil
	}
	if len(history) < 2 {
		logger.Debugf("标的 %s 确认历史不足，跳过漂移对比", sym)
		return nil
	}
	// history 按时间倒序：0 为当前，1 为上一份
	rep := p.driftEng.Compare(history[1].Record, history[0].Record)
	if rep.Symbol == "" {
		rep.Symbol = sym
	}
	p.persistDrift(ctx, sym, rep)
	if rep.Status == drift.StatusDanger {
		if err := p.notify.SendText(render.DriftMessage(rep).Render()); err != nil {
			logger.Warnf("漂移警报推送失败 %s: %v", sym, err)
		}
	}
	return rep
}

// DriftReports 查询历史漂移报告。
func (p *Pipeline) DriftReports(ctx context.Context, sym string, limit int) ([]driftlog.ReportRecord, error) {
	if p.driftLog == nil {
		return nil, fmt.Errorf("漂移日志未启用")
	}
	return p.driftLog.ListReports(ctx, driftlog.ReportQuery{Symbol: sym, Limit: limit})
}

func (p *Pipeline) persistDrift(ctx context.Context, sym string, rep *drift.Report) {
	if p.driftLog == nil {
		return
	}
	triggered := len(rep.Changes) + len(rep.Alerts)
	rec := driftlog.ReportRecord{
		TraceID:   uuid.NewString(),
		Symbol:    sym,
		Level:     rep.Status,
		Triggered: triggered,
		Summary:   rep.Summary,
		CreatedAt: time.Now().Unix(),
	}
	if _, err := p.driftLog.Insert(ctx, rec, rep); err != nil {
		logger.Warnf("漂移报告落盘失败 %s: %v", sym, err)
	}
}

func (p *Pipeline) candidates() []ranking.Strategy {
	if p.registry != nil {
		return p.registry.Strategies()
	}
	return ranking.DefaultCatalog().Strategies
}

func topName(ranked []ranking.RankedStrategy) string {
	if len(ranked) == 0 {
		return "-"
	}
	return ranked[0].Name
}
