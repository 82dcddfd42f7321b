package service

import (
	"context"
	"fmt"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/internal/document"
	"github.com/NomadCrew/nomad-budget-backend/models"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"go.uber.org/zap"
)

// ImportResult reports what an import created and what it skipped.
type ImportResult struct {
	Trips    []types.Trip       `json:"trips"`
	Expenses int                `json:"expenses"`
	Skipped  []document.Skipped `json:"skipped"`
}

// Import creates the trips and expenses of a document export under userID.
// Ids in the export are ignored; the stores assign new ones. Import stops at
// the first store failure and reports what was created until then.
func (s *TripManagementService) Import(ctx context.Context, userID string, raw []byte) (*ImportResult, error) {
	imported, skipped, err := s.decoder.Export(raw)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Trips: []types.Trip{}, Skipped: skipped}
	for i, it := range imported {
		created, err := s.create(ctx, userID, it.Trip)
		if err != nil {
			return result, err
		}
		result.Trips = append(result.Trips, *created)

		for j, e := range it.Expenses {
			e.ID = ""
			e.UserID = userID
			if _, err := s.expenses.AddExpense(ctx, userID, created.ID, e); err != nil {
				s.log.Warn("Import failed to add expense",
					zap.String("tripID", created.ID), zap.Int("index", j), zap.Error(err))
				return result, models.MapStoreError(err, func() *apperrors.AppError {
					return apperrors.TripNotFound(created.ID)
				})
			}
			result.Expenses++
		}
		s.log.Info("Imported trip",
			zap.String("tripID", created.ID),
			zap.String("source", fmt.Sprintf("trips[%d]", i)),
			zap.Int("expenses", len(it.Expenses)))
	}
	return result, nil
}
