package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/himanshu0o7/CryptoFuturesBot/internal/config"
	"github.com/himanshu0o7/CryptoFuturesBot/internal/domain"
)

// HistoryProvider supplies historical snapshots so strategy windows start warm
// instead of waiting a full lookback of live cycles.
type HistoryProvider interface {
	GetHistoricalSnapshots(ctx context.Context, symbol string, limit int) ([]domain.MarketSnapshot, error)
}

// Orchestrator owns the trading loop. Each tick it runs one cycle: resolve
// in-flight orders, then for every symbol fetch a snapshot, check exits,
// generate a signal, size it and execute. Per-symbol work runs concurrently
// under a semaphore; a cycle that overruns its deadline is cut off and logged,
// it never delays the next tick.
type Orchestrator struct {
	cfg       config.Config
	exchange  domain.Exchange
	history   HistoryProvider
	signals   *SignalEngine
	risk      *RiskEngine
	executor  *OrderExecutor
	portfolio *PortfolioManager
	notifier  domain.Notifier

	mu      sync.RWMutex
	windows map[string]*domain.SnapshotWindow
	cycles  int64
}

func NewOrchestrator(
	cfg config.Config,
	exchange domain.Exchange,
	history HistoryProvider,
	signals *SignalEngine,
	risk *RiskEngine,
	executor *OrderExecutor,
	portfolio *PortfolioManager,
	notifier domain.Notifier,
) *Orchestrator {
	windows := make(map[string]*domain.SnapshotWindow, len(cfg.Symbols))
	for _, sym := range cfg.Symbols {
		windows[sym] = domain.NewSnapshotWindow(sym, cfg.WindowSize)
	}
	return &Orchestrator{
		cfg:       cfg,
		exchange:  exchange,
		history:   history,
		signals:   signals,
		risk:      risk,
		executor:  executor,
		portfolio: portfolio,
		notifier:  notifier,
		windows:   windows,
	}
}

// Run starts the trading loop and blocks until ctx is cancelled.
func (o *Orchestrator) Run(ctx context.Context) {
	o.warmup(ctx)

	mode := "LIVE"
	if o.cfg.DryRun {
		mode = "DRY RUN"
	}
	log.Printf("🚀 Bot started in %s mode: %d symbols, cycle every %v",
		mode, len(o.cfg.Symbols), o.cfg.CycleInterval)
	if o.notifier != nil {
		o.notifier.Notify(domain.EventBotStatus, "Bot started",
			fmt.Sprintf("%s mode, %d symbols", mode, len(o.cfg.Symbols)), nil)
	}

	ticker := time.NewTicker(o.cfg.CycleInterval)
	defer ticker.Stop()

	// Working orders are re-polled between cycles so fills are booked at the
	// executor's poll cadence instead of waiting for the next full cycle.
	pollEvery := o.cfg.Executor.PollInterval
	if pollEvery <= 0 {
		pollEvery = o.cfg.CycleInterval
	}
	pollTicker := time.NewTicker(pollEvery)
	defer pollTicker.Stop()

	o.Cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("Bot stopping...")
			if o.notifier != nil {
				o.notifier.Notify(domain.EventBotStatus, "Bot stopped", "", nil)
			}
			return
		case <-ticker.C:
			o.Cycle(ctx)
		case <-pollTicker.C:
			o.resolveInflight(ctx)
		}
	}
}

// warmup backfills each symbol's window from historical data.
func (o *Orchestrator) warmup(ctx context.Context) {
	if o.history == nil {
		return
	}
	for _, sym := range o.cfg.Symbols {
		snaps, err := o.history.GetHistoricalSnapshots(ctx, sym, o.cfg.WindowSize)
		if err != nil {
			log.Printf("Warmup failed for %s: %v", sym, err)
			continue
		}
		o.mu.Lock()
		for _, s := range snaps {
			o.windows[sym].Append(s)
		}
		o.mu.Unlock()
		log.Printf("Warmed up %s with %d snapshots", sym, len(snaps))
	}
}

// Cycle runs one full pass over all symbols.
func (o *Orchestrator) Cycle(ctx context.Context) {
	start := time.Now()

	cycleCtx := ctx
	var cancel context.CancelFunc
	if o.cfg.MaxCycleDuration > 0 {
		cycleCtx, cancel = context.WithTimeout(ctx, o.cfg.MaxCycleDuration)
		defer cancel()
	}

	o.resolveInflight(cycleCtx)

	var wg sync.WaitGroup
	sem := make(chan struct{}, 10) // limit concurrent exchange calls

	for _, sym := range o.cfg.Symbols {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			if err := o.processSymbol(cycleCtx, symbol); err != nil {
				log.Printf("Cycle error for %s: %v", symbol, err)
				if domain.IsInvariant(err) && o.notifier != nil {
					o.notifier.Notify(domain.EventCycleError, "Invariant violation: "+symbol, err.Error(),
						map[string]string{"symbol": symbol})
				}
			}
		}(sym)
	}
	wg.Wait()

	o.mu.Lock()
	o.cycles++
	cycles := o.cycles
	o.mu.Unlock()

	elapsed := time.Since(start)
	if o.cfg.MaxCycleDuration > 0 && elapsed > o.cfg.MaxCycleDuration {
		log.Printf("⚠️ Cycle %d overran deadline: took %v (max %v)", cycles, elapsed, o.cfg.MaxCycleDuration)
	} else {
		log.Printf("Cycle %d completed in %v", cycles, elapsed)
	}
}

// resolveInflight polls orders left non-terminal by earlier cycles and books
// the ones that reached a terminal state.
func (o *Orchestrator) resolveInflight(ctx context.Context) {
	for _, order := range o.executor.InflightOrders() {
		if err := o.executor.Poll(ctx, order); err != nil {
			log.Printf("Poll failed for %s order %s: %v",
				order.Proposal.Symbol, order.ClientOrderID, err)
			continue
		}
		if order.Terminal() {
			o.settle(ctx, order, "")
		}
	}
}

func (o *Orchestrator) processSymbol(ctx context.Context, symbol string) error {
	snap, err := o.exchange.GetMarketSnapshot(ctx, symbol)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	o.mu.Lock()
	window := o.windows[symbol]
	window.Append(*snap)
	o.mu.Unlock()

	// A working order occupies the symbol. Until it resolves, the portfolio
	// does not reflect the capital it commits, so sizing another proposal now
	// could open two positions for the same symbol.
	if o.executor.HasInflight(symbol) {
		log.Printf("Skipping %s: order still working", symbol)
		return nil
	}

	// Exits first: an open position is evaluated against its brackets and age
	// before any new entry is considered.
	if pos := o.portfolio.Position(symbol); pos != nil {
		if reason := o.exitReason(pos, snap.LastPrice); reason != "" {
			return o.closePosition(ctx, pos, snap.LastPrice, reason)
		}
	}

	sig := o.signals.Generate(window)
	if sig.Flat() {
		return nil
	}
	log.Printf("Signal %s %s (%.0f%% via %s): %s",
		sig.Direction, symbol, sig.Confidence*100, sig.Strategy, sig.Reason)

	proposal, err := o.risk.Size(sig, o.portfolio.State())
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicatePosition),
			errors.Is(err, ErrInsufficientCapital),
			errors.Is(err, ErrExposureLimit),
			errors.Is(err, ErrSizeTooSmall):
			log.Printf("Signal for %s not actionable: %v", symbol, err)
			return nil
		default:
			return fmt.Errorf("sizing: %w", err)
		}
	}

	return o.execute(ctx, proposal, "")
}

// exitReason checks bracket levels and position age.
func (o *Orchestrator) exitReason(pos *domain.Position, price float64) string {
	if reason := pos.ShouldExit(price); reason != "" {
		return reason
	}
	if o.cfg.MaxPositionAge > 0 && time.Since(pos.OpenedAt) > o.cfg.MaxPositionAge {
		return "MAX_TIME"
	}
	return ""
}

// ClosePosition flattens the open position for symbol at the current market
// price. Exposed for the operator HTTP surface.
func (o *Orchestrator) ClosePosition(ctx context.Context, symbol, reason string) error {
	pos := o.portfolio.Position(symbol)
	if pos == nil {
		return fmt.Errorf("no open position for %s", symbol)
	}
	if o.executor.HasInflight(symbol) {
		return fmt.Errorf("an order for %s is still working", symbol)
	}
	snap, err := o.exchange.GetMarketSnapshot(ctx, symbol)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	return o.closePosition(ctx, pos, snap.LastPrice, reason)
}

func (o *Orchestrator) closePosition(ctx context.Context, pos *domain.Position, price float64, reason string) error {
	log.Printf("Exit condition for %s: %s at %.4f", pos.Symbol, reason, price)
	proposal := o.risk.CloseProposal(pos, price, reason)
	return o.execute(ctx, proposal, reason)
}

// execute submits a proposal and books the result if it finished within the
// cycle. Live orders that are still working stay with the executor and are
// resolved at the start of a later cycle.
func (o *Orchestrator) execute(ctx context.Context, proposal *domain.OrderProposal, exitReason string) error {
	order, err := o.executor.Submit(ctx, proposal)
	if err != nil {
		return fmt.Errorf("submit %s: %w", proposal.Symbol, err)
	}
	if order.Terminal() {
		o.settle(ctx, order, exitReason)
	}
	return nil
}

// settle books a terminal order and, for live entries, arms exchange-side
// brackets on the resulting position.
func (o *Orchestrator) settle(ctx context.Context, order *domain.Order, exitReason string) {
	if err := o.portfolio.Apply(order, exitReason); err != nil {
		log.Printf("Failed to book order %s: %v", order.ClientOrderID, err)
		if domain.IsInvariant(err) && o.notifier != nil {
			o.notifier.Notify(domain.EventCycleError, "Booking failed: "+order.Proposal.Symbol,
				err.Error(), map[string]string{"symbol": order.Proposal.Symbol})
		}
		return
	}

	if o.cfg.DryRun || order.Proposal.ReduceOnly || order.Status != domain.OrderFilled {
		return
	}
	placer, ok := o.exchange.(domain.BracketPlacer)
	if !ok {
		return
	}
	pos := o.portfolio.Position(order.Proposal.Symbol)
	if pos == nil {
		return
	}
	slID, tpID, err := placer.PlaceBracketOrders(ctx, pos)
	if err != nil {
		// The cycle monitor still enforces the levels, so the position is not
		// unprotected, only slower to exit.
		log.Printf("Failed to arm brackets for %s: %v", pos.Symbol, err)
		return
	}
	order.SLOrderID = slID
	order.TPOrderID = tpID
	log.Printf("Armed brackets for %s: SL order %d, TP order %d", pos.Symbol, slID, tpID)
}

// Windows returns a copy of the current snapshot windows keyed by symbol.
func (o *Orchestrator) Windows() map[string]int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make(map[string]int, len(o.windows))
	for sym, w := range o.windows {
		out[sym] = w.Len()
	}
	return out
}
