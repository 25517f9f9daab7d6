package rules

import (
	"context"
	"fmt"
	"time"

	"warnengine/internal/common"
	"warnengine/internal/models"
	"warnengine/internal/repositories"
)

const CodeListingNoPhotos = "LISTING_NO_PHOTOS"

// ListingNoPhotosRule flags active listings with fewer photos than the
// threshold count.
type ListingNoPhotosRule struct {
	signals repositories.SignalRepository
}

func NewListingNoPhotosRule(signals repositories.SignalRepository) *ListingNoPhotosRule {
	return &ListingNoPhotosRule{signals: signals}
}

func (r *ListingNoPhotosRule) Code() string                  { return CodeListingNoPhotos }
func (r *ListingNoPhotosRule) EntityType() models.EntityType { return models.EntityListing }

func (r *ListingNoPhotosRule) Detect(ctx context.Context, agency *models.Agency, ec *models.EffectiveConfig, _ time.Time) ([]models.Detection, error) {
	if ec.ThresholdUnit != models.UnitCount {
		return nil, fmt.Errorf("%w: %s expects a COUNT threshold, got %s", common.ErrInvalidConfiguration, ec.Code, ec.ThresholdUnit)
	}
	listings, err := r.signals.ListListingsWithFewPhotos(ctx, agency.ID, ec.Threshold)
	if err != nil {
		return nil, err
	}

	agencyID := agency.ID
	var out []models.Detection
	for _, l := range listings {
		if !l.IsActive || l.PhotoCount >= ec.Threshold {
			continue
		}
		out = append(out, models.Detection{
			DefinitionCode:  ec.Code,
			AgencyID:        &agencyID,
			TargetUserID:    l.AgentID,
			EntityType:      models.EntityListing,
			EntityID:        l.ID,
			CurrentValue:    itoa(l.PhotoCount),
			ThresholdValue:  itoa(ec.Threshold),
			DifferenceValue: itoa(ec.Threshold - l.PhotoCount),
			Details:         models.JSONB{"listing_title": l.Title},
		})
	}
	return out, nil
}
