package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"sevenms-engine/config"
	"sevenms-engine/internal/engine"
	"sevenms-engine/internal/feed"
	"sevenms-engine/internal/market"
	"sevenms-engine/internal/proposal"
)

// One-shot analysis: run the full pipeline once for a symbol and print the
// result as JSON. Proposals are not persisted and no orders are placed.
func main() {
	symbol := flag.String("symbol", "XAUUSD", "instrument symbol to analyze")
	timeframe := flag.String("timeframe", "15M", "timeframe code (1M, 15M, 1H, 4H, D1)")
	configPath := flag.String("config", "config.json", "path to the config file")
	bars := flag.Int("bars", 0, "bar count override, 0 uses the config value")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *bars > 0 {
		cfg.FeedConfig.BarCount = *bars
	}

	tf, err := market.ParseTimeframe(*timeframe)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid timeframe: %v\n", err)
		os.Exit(1)
	}

	lvl, err := zerolog.ParseLevel(cfg.LoggingConfig.Level)
	if err != nil {
		lvl = zerolog.WarnLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()

	var provider feed.Provider
	switch cfg.FeedConfig.Provider {
	case "bridge":
		provider = feed.NewBridgeClient(feed.BridgeOptions{
			BaseURL:        cfg.BridgeConfig.BaseURL,
			RequestTimeout: time.Duration(cfg.BridgeConfig.RequestTimeoutSecs) * time.Second,
			RequestsPerSec: cfg.BridgeConfig.RequestsPerSec,
		}, logger)
	default:
		mock := feed.NewMockProvider()
		for sym, spec := range cfg.ScheduleConfig.InstrumentSpecs {
			mock.SetInstrument(market.Instrument{
				Symbol:    sym,
				PointSize: spec.PointSize,
				Digits:    spec.Digits,
				MinLot:    spec.MinLot,
				LotStep:   spec.LotStep,
			})
		}
		provider = mock
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	inst := market.Instrument{Symbol: *symbol, PointSize: 0.00001, Digits: 5, MinLot: 0.01, LotStep: 0.01}
	if spec, ok := cfg.ScheduleConfig.InstrumentSpecs[*symbol]; ok {
		inst = market.Instrument{
			Symbol:    *symbol,
			PointSize: spec.PointSize,
			Digits:    spec.Digits,
			MinLot:    spec.MinLot,
			LotStep:   spec.LotStep,
		}
	}
	if meta, err := provider.GetInstrument(ctx, *symbol); err == nil && meta != nil {
		inst = *meta
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "instrument metadata unavailable for %s, using fallback: %v\n", *symbol, err)
	}

	// A gate with no store and no bus keeps the proposal in memory only.
	gate := proposal.NewGate(nil, nil, logger)

	eng := engine.NewEngine(engine.Config{
		SwingWindow:             cfg.AnalysisConfig.SwingWindow,
		SweepMinPoints:          cfg.AnalysisConfig.SweepMinPoints,
		TwoCandleRejection:      cfg.AnalysisConfig.TwoCandleRejection,
		ShiftLookahead:          cfg.AnalysisConfig.ShiftLookahead,
		MinDisplacementPoints:   cfg.AnalysisConfig.MinDisplacementPoints,
		DisplacementRangeFactor: cfg.AnalysisConfig.DisplacementRangeFactor,
		ZoneMode:                cfg.AnalysisConfig.ZoneMode,
		MinGapPercent:           cfg.AnalysisConfig.MinGapPercent,
		TrendFilter:             cfg.AnalysisConfig.TrendFilter,
		TrendTimeframe:          market.Timeframe(cfg.AnalysisConfig.TrendTimeframe),
		StopBufferPoints:        cfg.RiskConfig.StopBufferPoints,
		RiskPercent:             cfg.RiskConfig.RiskPercent,
		RewardMultiples:         cfg.RiskConfig.RewardMultiples,
		BarCount:                cfg.FeedConfig.BarCount,
	}, provider, gate, logger)

	res, err := eng.Analyze(ctx, inst, tf, cfg.ExecutionConfig.Equity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analysis failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("%s %s: %s (stage %s)\n", res.Symbol, res.Timeframe, res.Verdict, res.Stage)
	if res.Detail != "" {
		fmt.Printf("  %s\n", res.Detail)
	}
	if res.Plan != nil {
		fmt.Printf("  %s entry %.5g stop %.5g size %.5g\n",
			res.Plan.Direction, res.Plan.Entry, res.Plan.StopLoss, res.Plan.Size)
	}

	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "encode result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
