package domain

// Stats summarises the transactions table for the dashboard. The per-method,
// per-account and per-plan counts cover successful payments only.
type Stats struct {
	Total        int            `json:"total"`
	Success      int            `json:"success"`
	Failed       int            `json:"failed"`
	Pending      int            `json:"pending"`
	TotalRevenue float64        `json:"totalRevenue"`
	ByMethod     map[string]int `json:"byMethod"`
	ByAccount    map[string]int `json:"byAccount"`
	ByPlan       map[string]int `json:"byPlan"`
}

// NewStats returns zeroed stats with the buckets the dashboard always shows.
func NewStats() Stats {
	return Stats{
		ByMethod:  map[string]int{"paypal": 0, "stripe": 0},
		ByAccount: map[string]int{"dubai": 0, "india": 0},
		ByPlan:    map[string]int{"monthly": 0, "3-months": 0, "6-months": 0},
	}
}

// ComputeStats aggregates in memory.
func ComputeStats(txs []Transaction) Stats {
	s := NewStats()
	s.Total = len(txs)
	for _, t := range txs {
		switch t.PaymentStatus {
		case StatusSuccess:
			s.Success++
			s.TotalRevenue += float64(t.Amount)
			if t.PaymentMethod != "" {
				s.ByMethod[t.PaymentMethod]++
			}
			if t.PaymentAccount != "" {
				s.ByAccount[t.PaymentAccount]++
			}
			if t.PlanID != "" {
				s.ByPlan[t.PlanID]++
			}
		case StatusFailed:
			s.Failed++
		case StatusPending:
			s.Pending++
		}
	}
	return s
}
