package gateway

import (
	"context"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"quote-engine-go/inventory"
	"quote-engine-go/market"
)

// PaperConfig controls the simulated exchange.
type PaperConfig struct {
	Symbol      string
	StartMid    float64
	StartEquity float64
	// VolPerStep is the stddev of one random-walk step as a fraction of mid.
	VolPerStep float64
	BookLevels int
	LevelQty   float64
	// Rate and Burst bound call frequency, mimicking exchange limits.
	Rate  float64
	Burst int
	Seed  int64
}

// Paper is an in-process exchange used by the sim runner and tests. Orders
// rest in memory and fill when the random-walk mid crosses them.
type Paper struct {
	cfg     PaperConfig
	limiter *rate.Limiter
	rng     *rand.Rand

	mu     sync.Mutex
	mid    float64
	orders map[string]OrderRequest
	pos    *inventory.Tracker
	cash   float64
}

func NewPaper(cfg PaperConfig) *Paper {
	if cfg.BookLevels <= 0 {
		cfg.BookLevels = 5
	}
	if cfg.LevelQty <= 0 {
		cfg.LevelQty = 1
	}
	if cfg.Rate <= 0 {
		cfg.Rate = 50
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 10
	}
	return &Paper{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Rate), cfg.Burst),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		mid:     cfg.StartMid,
		orders:  make(map[string]OrderRequest),
		pos:     &inventory.Tracker{},
		cash:    cfg.StartEquity,
	}
}

// Step advances the random walk one tick and fills crossed resting orders.
func (p *Paper) Step() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.mid *= 1 + p.rng.NormFloat64()*p.cfg.VolPerStep
	if p.mid <= 0 {
		p.mid = p.cfg.StartMid
	}

	for id, o := range p.orders {
		filled := (o.Side == "BUY" && p.mid <= o.Price) ||
			(o.Side == "SELL" && p.mid >= o.Price)
		if !filled {
			continue
		}
		delta := o.Size
		if o.Side == "SELL" {
			delta = -o.Size
		}
		p.pos.Update(delta, o.Price)
		p.cash -= o.Price * delta
		delete(p.orders, id)
	}
}

func (p *Paper) MarketSnapshot(ctx context.Context, symbol string) (market.Snapshot, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return market.Snapshot{}, ErrMarketDataUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	halfTick := p.mid * 0.0001
	snap := market.Snapshot{
		Mid:     p.mid,
		BestBid: p.mid - halfTick,
		BestAsk: p.mid + halfTick,
	}
	for i := 0; i < p.cfg.BookLevels; i++ {
		offset := halfTick * float64(i+1)
		snap.Bids = append(snap.Bids, market.BookLevel{Price: p.mid - offset, Qty: p.cfg.LevelQty})
		snap.Asks = append(snap.Asks, market.BookLevel{Price: p.mid + offset, Qty: p.cfg.LevelQty})
	}
	return snap, nil
}

func (p *Paper) Inventory(ctx context.Context, symbol string) (Position, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Position{}, ErrAccountDataUnavailable
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	net := p.pos.NetExposure()
	return Position{
		SignedSize: net,
		AvgEntry:   p.pos.AvgCost(),
		MarkPrice:  p.mid,
		Equity:     p.cash + net*p.mid,
	}, nil
}

func (p *Paper) Place(ctx context.Context, req OrderRequest) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", ErrOrderRejected
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.Price <= 0 || req.Size <= 0 {
		return "", ErrOrderRejected
	}
	if req.ReduceOnly {
		net := p.pos.NetExposure()
		increases := (req.Side == "BUY" && net >= 0) || (req.Side == "SELL" && net <= 0)
		if increases {
			return "", ErrOrderRejected
		}
	}

	id := uuid.NewString()
	p.orders[id] = req
	return id, nil
}

func (p *Paper) Cancel(ctx context.Context, symbol, orderID string) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return ErrCancelFailed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// 撤销已成交/不存在的订单视为成功（幂等）。
	delete(p.orders, orderID)
	return nil
}

func (p *Paper) CancelAll(ctx context.Context, symbol string) ([]string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, ErrCancelFailed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orders = make(map[string]OrderRequest)
	return nil, nil
}

// RestingOrders returns a copy of the live order map, for tests.
func (p *Paper) RestingOrders() map[string]OrderRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]OrderRequest, len(p.orders))
	for id, o := range p.orders {
		out[id] = o
	}
	return out
}

// Mid returns the current simulated mid price.
func (p *Paper) Mid() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mid
}
