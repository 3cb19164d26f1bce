package pharmacy

import (
	"context"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/internal/platform/jobs"
)

// LowStockReport logs every medicine whose stock is below threshold.
func (s *Service) LowStockReport(threshold int) jobs.Func {
	return func(ctx context.Context) error {
		items, err := s.LowStock(ctx, threshold)
		if err != nil {
			return err
		}
		for _, m := range items {
			s.logger.Warn().
				Str("medicine_id", m.ID.String()).
				Str("name", m.Name).
				Int("stock", m.Stock).
				Int("threshold", threshold).
				Msg("low stock")
		}
		if len(items) > 0 {
			s.logger.Info().Int("count", len(items)).Msg("low stock report")
		}
		return nil
	}
}
