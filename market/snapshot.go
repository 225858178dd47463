package market

// BookLevel is a single aggregated price level of the order book.
type BookLevel struct {
	Price float64
	Qty   float64
}

// Snapshot represents a market snapshot.
type Snapshot struct {
	Mid       float64
	BestBid   float64
	BestAsk   float64
	Bids      []BookLevel // best-first
	Asks      []BookLevel // best-first
	Timestamp int64
}

// Usable reports whether the snapshot can drive quoting.
func (s Snapshot) Usable() bool {
	return s.Mid > 0 && s.BestBid > 0 && s.BestAsk > 0 && s.BestBid < s.BestAsk
}

// HasDepth reports whether any book levels were delivered with the snapshot.
func (s Snapshot) HasDepth() bool {
	return len(s.Bids) > 0 || len(s.Asks) > 0
}

// DepthToPrice 累计从最优档到 price 的挂单量（含该价位）。
// 买侧向下累计 bids，卖侧向上累计 asks。
func (s Snapshot) DepthToPrice(isBid bool, price float64) float64 {
	var total float64
	if isBid {
		for _, lv := range s.Bids {
			if lv.Price < price {
				break
			}
			total += lv.Qty
		}
		return total
	}
	for _, lv := range s.Asks {
		if lv.Price > price {
			break
		}
		total += lv.Qty
	}
	return total
}
