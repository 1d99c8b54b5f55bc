package models

// Quote представляет двустороннюю котировку top-of-book
//
// Котировки эфемерны: никогда не персистятся, всегда либо свежесобраны
// нормализатором, либо получены из стрима. Инвариант: Ask > Bid строго.
type Quote struct {
	Bid         float64 `json:"bid"`
	Ask         float64 `json:"ask"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// Mid возвращает среднюю цену
func (q *Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

// Spread возвращает абсолютный спред
func (q *Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// SideFor возвращает цену торгуемой стороны для открытия:
// покупатель исполняется по Ask, продавец по Bid.
func (q *Quote) SideFor(side string) float64 {
	if side == SideBuy {
		return q.Ask
	}
	return q.Bid
}

// CloseSideFor возвращает цену закрытия позиции:
// длинная позиция закрывается по Bid, короткая по Ask.
func (q *Quote) CloseSideFor(side string) float64 {
	if side == SideBuy {
		return q.Bid
	}
	return q.Ask
}
