package repository

import (
	"time"

	"github.com/volatria/volatria-backend/internal/models"
)

// maxStep is the largest relative move between consecutive synthetic points.
const maxStep = 0.02

// generateSynthetic walks count points evenly spaced from start toward end,
// each one moving the previous price by a factor in [1-maxStep, 1+maxStep].
// uniform must return values in [0, 1).
func generateSynthetic(symbol string, base float64, start, end time.Time, count int, uniform func() float64) []models.Quote {
	if count <= 0 || base <= 0 {
		return nil
	}
	interval := end.Sub(start) / time.Duration(count)
	if interval <= 0 {
		return nil
	}

	out := make([]models.Quote, 0, count)
	price := base
	for i := 0; i < count; i++ {
		change := uniform()*2*maxStep - maxStep
		price *= 1 + change
		out = append(out, models.Quote{
			Symbol:    symbol,
			Price:     price,
			Timestamp: start.Add(time.Duration(i) * interval),
			Synthetic: true,
		})
	}
	return out
}
