package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"backtest-core/internal/data"
	"backtest-core/internal/engine"
	"backtest-core/internal/events"
	"backtest-core/internal/kline"
	"backtest-core/internal/ledger"
	"backtest-core/internal/order"
	"backtest-core/internal/planner"
	"backtest-core/internal/script"
	"backtest-core/internal/strategy"
	"backtest-core/pkg/config"
	"backtest-core/pkg/db"
	market "backtest-core/pkg/market/binance"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	def, err := strategy.Load(cfg.StrategyFile)
	if err != nil {
		log.Fatalf("load strategy: %v", err)
	}
	scriptBody, err := os.ReadFile(def.ScriptPath)
	if err != nil {
		log.Fatalf("read strategy script: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	rest := market.NewClient(cfg.BinanceAPIURL)
	archive := market.NewArchiveClient(cfg.BinanceDataURL)

	info, err := rest.GetSymbolInfo(ctx, def.Symbol)
	if err != nil {
		log.Fatalf("fetch symbol rules: %v", err)
	}
	sym, err := data.BuildSymbol(def.Exchange, info)
	if err != nil {
		log.Fatalf("build symbol rules: %v", err)
	}

	executionID := uuid.NewString()
	log.Printf("backtest %s: strategy=%s symbol=%s timeframe=%s range=[%s, %s)",
		executionID, def.Name, def.Symbol, def.Timeframe,
		def.Start.Format(time.RFC3339), def.End.Format(time.RFC3339))

	requested := kline.Range{Start: def.Start, End: def.End}
	pl := planner.New(data.NewSource(rest, archive), data.OSFS{}, cfg.OutputRoot, time.Now)
	plan, err := pl.Plan(def.Timeframe, requested, def.MaxNumKlines)
	if err != nil {
		log.Fatalf("plan kline range: %v", err)
	}
	log.Printf("planner: method=%s extended range=[%s, %s) apiCalls=%d dailyFiles=%d monthlyFiles=%d",
		plan.Method, plan.Range.Start.Format(time.RFC3339), plan.Range.End.Format(time.RFC3339),
		plan.APICalls, plan.DailyFiles, plan.MonthlyFiles)

	bars, err := pl.Fetch(ctx, executionID, def.Symbol, def.Timeframe, requested, def.MaxNumKlines)
	if err != nil {
		log.Fatalf("fetch klines: %v", err)
	}
	log.Printf("fetched %d klines", len(bars))

	bus := events.NewBus()
	go logEvents(bus)

	led := ledger.New(def.Name, sym, def.Timeframe, def.InitialCapital, def.MakerFeeRate, def.TakerFeeRate)
	runner := engine.New(engine.Config{
		ExecutionID:  executionID,
		Symbol:       sym,
		Ledger:       led,
		Script:       script.Script{Body: string(scriptBody), Language: def.ScriptLanguage},
		Sandbox:      &script.ProcessSandbox{Timeout: cfg.SandboxTimeout, WorkDir: cfg.SandboxWorkDir},
		Bus:          bus,
		MaxNumKlines: def.MaxNumKlines,
	})

	res, err := runner.Run(ctx, bars)
	if err != nil {
		log.Fatalf("simulation failed: %v", err)
	}

	err = database.SaveResult(ctx, db.Result{
		ExecutionID:   res.ExecutionID,
		Strategy:      def.Name,
		Exchange:      def.Exchange,
		Symbol:        def.Symbol,
		Timeframe:     string(def.Timeframe),
		BarsProcessed: res.BarsProcessed,
		Ledger:        res.Ledger,
		OpeningTrades: res.OpeningTrades,
		ClosedTrades:  res.ClosedTrades,
		OrdersByStatus: map[string]any{
			"opening":   res.Orders.Opening,
			"triggered": res.Orders.Triggered,
			"filled":    res.Orders.Filled,
			"canceled":  res.Orders.Canceled,
			"rejected":  res.Orders.Rejected,
			"submitted": res.Orders.Submitted,
		},
	})
	if err != nil {
		log.Fatalf("persist result: %v", err)
	}

	log.Printf("done: bars=%d equity=%s netReturn=%s maxRunup=%s maxDrawdown=%s trades(open=%d closed=%d)",
		res.BarsProcessed, res.Ledger.Equity, res.Ledger.NetReturn,
		res.Ledger.MaxRunup, res.Ledger.MaxDrawdown,
		len(res.OpeningTrades), len(res.ClosedTrades))
}

// logEvents mirrors order and trade activity onto the process log until the
// process exits.
func logEvents(bus *events.Bus) {
	fills, _ := bus.Subscribe(events.TopicOrderFilled, 64)
	rejects, _ := bus.Subscribe(events.TopicOrderRejected, 64)
	cancels, _ := bus.Subscribe(events.TopicOrderCanceled, 64)
	for {
		select {
		case msg := <-fills:
			if o, ok := msg.Payload.(order.Order); ok {
				log.Printf("order %s filled: %s %s qty=%s price=%s fee=%s %s",
					o.ID, o.Side, o.Kind, o.Quantity, o.FilledPrice, o.Fee.Amount, o.Fee.Currency)
			}
		case msg := <-rejects:
			if o, ok := msg.Payload.(order.Order); ok {
				log.Printf("order %s rejected: %s", o.ID, o.Reason)
			}
		case msg := <-cancels:
			if o, ok := msg.Payload.(order.Order); ok {
				log.Printf("order %s canceled", o.ID)
			}
		}
	}
}
