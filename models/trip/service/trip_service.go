// Package service implements trip management: CRUD, cover images, the
// classification overview, profile stats and document imports.
package service

import (
	"context"
	"io"
	"time"

	apperrors "github.com/NomadCrew/nomad-budget-backend/errors"
	"github.com/NomadCrew/nomad-budget-backend/internal/aggregation"
	"github.com/NomadCrew/nomad-budget-backend/internal/document"
	"github.com/NomadCrew/nomad-budget-backend/internal/events"
	"github.com/NomadCrew/nomad-budget-backend/internal/notification"
	"github.com/NomadCrew/nomad-budget-backend/internal/storage"
	istore "github.com/NomadCrew/nomad-budget-backend/internal/store"
	"github.com/NomadCrew/nomad-budget-backend/models"
	"github.com/NomadCrew/nomad-budget-backend/pkg/pexels"
	"github.com/NomadCrew/nomad-budget-backend/pkg/timestamp"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CoverStore uploads and removes trip cover images.
type CoverStore interface {
	Upload(ctx context.Context, userID, tripID, filename string, r io.Reader) (*storage.Upload, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

// TripSummary is one trip in the overview with its spend.
type TripSummary struct {
	types.Trip
	TotalSpent   decimal.Decimal `json:"totalSpent"`
	PercentSpent decimal.Decimal `json:"percentSpent"`
}

// Overview groups a user's trips by classification.
type Overview struct {
	Active     []TripSummary `json:"active"`
	Upcoming   []TripSummary `json:"upcoming"`
	Historical []TripSummary `json:"historical"`
}

// TripManagementService handles core trip operations.
type TripManagementService struct {
	trips     istore.TripStore
	expenses  istore.ExpenseStore
	tracker   *notification.Tracker
	publisher types.EventPublisher
	covers    CoverStore
	pexels    pexels.CoverFinder
	decoder   *document.Decoder
	loc       *time.Location
	now       func() time.Time
	log       *zap.Logger
}

// NewTripManagementService creates a new trip management service. publisher
// may be nil when no live feed is configured.
func NewTripManagementService(
	trips istore.TripStore,
	expenses istore.ExpenseStore,
	tracker *notification.Tracker,
	publisher types.EventPublisher,
	loc *time.Location,
	logger *zap.Logger,
) *TripManagementService {
	if loc == nil {
		loc = time.UTC
	}
	return &TripManagementService{
		trips:     trips,
		expenses:  expenses,
		tracker:   tracker,
		publisher: publisher,
		decoder:   document.NewDecoder(loc),
		loc:       loc,
		now:       time.Now,
		log:       logger.Named("TripService"),
	}
}

// SetCoverStore enables cover uploads.
func (s *TripManagementService) SetCoverStore(c CoverStore) {
	s.covers = c
}

// SetPexelsClient enables default cover lookup for trips created without one.
func (s *TripManagementService) SetPexelsClient(c pexels.CoverFinder) {
	s.pexels = c
}

// SetClock overrides the time source.
func (s *TripManagementService) SetClock(now func() time.Time) {
	s.now = now
}

func tripNotFound(id string) func() *apperrors.AppError {
	return func() *apperrors.AppError { return apperrors.TripNotFound(id) }
}

func (s *TripManagementService) ListTrips(ctx context.Context, userID string) ([]types.Trip, error) {
	trips, err := s.trips.ListTrips(ctx, userID)
	if err != nil {
		return nil, models.MapStoreError(err, tripNotFound(""))
	}
	return trips, nil
}

func (s *TripManagementService) GetTrip(ctx context.Context, userID, tripID string) (*types.Trip, error) {
	trip, err := s.trips.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, models.MapStoreError(err, tripNotFound(tripID))
	}
	return trip, nil
}

// CreateTrip decodes doc and stores the trip. The creator becomes the owner
// member when no members were given.
func (s *TripManagementService) CreateTrip(ctx context.Context, userID string, doc document.Doc) (*types.Trip, error) {
	trip, err := s.decoder.Trip(doc)
	if err != nil {
		return nil, err
	}
	return s.create(ctx, userID, trip)
}

func (s *TripManagementService) create(ctx context.Context, userID string, trip types.Trip) (*types.Trip, error) {
	trip.ID = ""
	trip.UserID = userID
	trip.CreatedBy = userID
	if len(trip.Members) == 0 {
		trip.Members = []types.Member{{ID: userID, IsOwner: true}}
	}
	if trip.Image == "" {
		trip.Image = s.defaultCover(ctx, &trip)
	}

	created, err := s.trips.CreateTrip(ctx, userID, trip)
	if err != nil {
		return nil, models.MapStoreError(err, tripNotFound(""))
	}

	if _, err := s.tracker.TripCreated(ctx, userID, *created); err != nil {
		s.log.Warn("Failed to record trip creation notification", zap.String("tripID", created.ID), zap.Error(err))
	}
	s.publish(ctx, types.EventTypeTripCreated, created.ID, userID, created)
	return created, nil
}

func (s *TripManagementService) defaultCover(ctx context.Context, trip *types.Trip) string {
	if s.pexels == nil {
		return ""
	}
	url, err := s.pexels.TripCover(ctx, trip)
	if err != nil {
		s.log.Warn("Default cover lookup failed", zap.String("trip", trip.Name), zap.Error(err))
		return ""
	}
	return url
}

// UpdateTrip applies a partial update decoded from doc.
func (s *TripManagementService) UpdateTrip(ctx context.Context, userID, tripID string, doc document.Doc) (*types.Trip, error) {
	update, err := s.decoder.TripUpdate(doc)
	if err != nil {
		return nil, err
	}
	if update.IsEmpty() {
		return nil, apperrors.ValidationFailed("invalid trip update", "no fields to update")
	}
	return s.update(ctx, userID, tripID, update)
}

func (s *TripManagementService) update(ctx context.Context, userID, tripID string, update types.TripUpdate) (*types.Trip, error) {
	updated, err := s.trips.UpdateTrip(ctx, userID, tripID, update)
	if err != nil {
		return nil, models.MapStoreError(err, tripNotFound(tripID))
	}
	if _, err := s.tracker.TripUpdated(ctx, userID, *updated); err != nil {
		s.log.Warn("Failed to record trip update notification", zap.String("tripID", tripID), zap.Error(err))
	}
	s.publish(ctx, types.EventTypeTripUpdated, tripID, userID, updated)
	return updated, nil
}

func (s *TripManagementService) publish(ctx context.Context, eventType types.EventType, tripID, userID string, payload any) {
	if err := events.PublishChange(ctx, s.publisher, eventType, tripID, userID, payload); err != nil {
		s.log.Warn("Failed to publish trip change",
			zap.String("tripID", tripID),
			zap.String("eventType", string(eventType)),
			zap.Error(err))
	}
}

// DeleteTrip removes the trip, its expenses and its uploaded cover.
func (s *TripManagementService) DeleteTrip(ctx context.Context, userID, tripID string) error {
	trip, err := s.GetTrip(ctx, userID, tripID)
	if err != nil {
		return err
	}
	if err := s.trips.DeleteTrip(ctx, userID, tripID); err != nil {
		return models.MapStoreError(err, tripNotFound(tripID))
	}

	s.removeCover(ctx, trip.Image)
	if _, err := s.tracker.TripDeleted(ctx, userID, *trip); err != nil {
		s.log.Warn("Failed to record trip deletion notification", zap.String("tripID", tripID), zap.Error(err))
	}
	s.publish(ctx, types.EventTypeTripDeleted, tripID, userID, nil)
	return nil
}

// UploadCover stores a new cover image and points the trip at it. A
// previously uploaded cover is removed.
func (s *TripManagementService) UploadCover(ctx context.Context, userID, tripID, filename string, r io.Reader) (*types.Trip, error) {
	if s.covers == nil {
		return nil, apperrors.New(apperrors.ServiceUnavailableErr, "Cover uploads are not configured", "")
	}
	trip, err := s.GetTrip(ctx, userID, tripID)
	if err != nil {
		return nil, err
	}

	upload, err := s.covers.Upload(ctx, userID, tripID, filename, r)
	if err != nil {
		return nil, err
	}

	updated, err := s.update(ctx, userID, tripID, types.TripUpdate{Image: &upload.URL})
	if err != nil {
		if delErr := s.covers.Delete(ctx, upload.Key); delErr != nil {
			s.log.Warn("Failed to remove orphaned cover", zap.String("key", upload.Key), zap.Error(delErr))
		}
		return nil, err
	}
	s.removeCover(ctx, trip.Image)
	return updated, nil
}

func (s *TripManagementService) removeCover(ctx context.Context, imageURL string) {
	if s.covers == nil || imageURL == "" {
		return
	}
	key, ok := s.covers.KeyFromURL(imageURL)
	if !ok {
		return
	}
	if err := s.covers.Delete(ctx, key); err != nil {
		s.log.Warn("Failed to delete cover", zap.String("key", key), zap.Error(err))
	}
}

// Overview buckets the user's trips into active, upcoming and historical as
// of today. Trips with unusable dates are left out.
func (s *TripManagementService) Overview(ctx context.Context, userID string) (*Overview, error) {
	trips, err := s.ListTrips(ctx, userID)
	if err != nil {
		return nil, err
	}
	spent, err := s.expenses.SumByTrip(ctx, userID)
	if err != nil {
		return nil, models.MapStoreError(err, tripNotFound(""))
	}

	summarize := func(in []types.Trip) []TripSummary {
		out := make([]TripSummary, 0, len(in))
		for _, t := range in {
			total := spent[t.ID]
			out = append(out, TripSummary{
				Trip:         t,
				TotalSpent:   total,
				PercentSpent: aggregation.PercentOf(total, t.TotalBudget).Round(2),
			})
		}
		return out
	}

	buckets := aggregation.Bucket(trips, s.today())
	return &Overview{
		Active:     summarize(buckets.Active),
		Upcoming:   summarize(buckets.Upcoming),
		Historical: summarize(buckets.Historical),
	}, nil
}

// ProfileStats counts the user's trips and totals their spend.
func (s *TripManagementService) ProfileStats(ctx context.Context, userID string) (types.ProfileStats, error) {
	trips, err := s.ListTrips(ctx, userID)
	if err != nil {
		return types.ProfileStats{}, err
	}
	spent, err := s.expenses.SumByTrip(ctx, userID)
	if err != nil {
		return types.ProfileStats{}, models.MapStoreError(err, tripNotFound(""))
	}

	stats := types.ProfileStats{
		TotalTrips:  len(trips),
		ActiveTrips: len(aggregation.Bucket(trips, s.today()).Active),
		TotalSpent:  decimal.Zero,
	}
	for _, total := range spent {
		stats.TotalSpent = stats.TotalSpent.Add(total)
	}
	return stats, nil
}

func (s *TripManagementService) today() timestamp.Day {
	return timestamp.DayOf(s.now(), s.loc)
}
