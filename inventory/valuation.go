package inventory

// Valuation 基于当前 mark 价计算未实现盈亏。
func (t *Tracker) Valuation(mark float64) (net float64, pnl float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	net = t.net
	pnl = (mark - t.cost) * t.net
	return
}

// MarkPrice returns the last synced mark price, falling back to avg cost
// when the exchange has not reported one yet.
func (t *Tracker) MarkPrice() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.mark > 0 {
		return t.mark
	}
	return t.cost
}
