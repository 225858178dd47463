package inventory

import "sync"

// Tracker 维护净仓位。正数为多头，负数为空头。
type Tracker struct {
	mu   sync.RWMutex
	net  float64
	cost float64
	mark float64
}

// Update 根据成交数量调整仓位。
func (t *Tracker) Update(deltaQty float64, price float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// 简化：加权平均成本
	totalValue := t.cost*t.net + price*deltaQty
	t.net += deltaQty
	if t.net != 0 {
		t.cost = totalValue / t.net
	} else {
		t.cost = 0
	}
}

// Sync 以交易所回报为准覆盖本地仓位。
// 引擎每个周期开始时调用，撮合回报是唯一事实来源。
func (t *Tracker) Sync(signed, avgEntry, mark float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.net = signed
	t.cost = avgEntry
	t.mark = mark
}

func (t *Tracker) NetExposure() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.net
}

func (t *Tracker) AvgCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.cost
}

// Ratio returns net exposure as a fraction of maxPosition. The result is not
// clamped; callers decide how to treat values beyond ±1.
func (t *Tracker) Ratio(maxPosition float64) float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if maxPosition <= 0 {
		return 0
	}
	return t.net / maxPosition
}
