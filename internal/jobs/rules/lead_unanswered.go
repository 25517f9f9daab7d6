package rules

import (
	"context"
	"time"

	"warnengine/internal/models"
	"warnengine/internal/repositories"
)

const CodeLeadUnanswered = "LEAD_UNANSWERED_24H"

// LeadUnansweredRule flags leads that nobody has answered within the
// threshold. The threshold is measured in whole hours or days.
type LeadUnansweredRule struct {
	signals repositories.SignalRepository
}

func NewLeadUnansweredRule(signals repositories.SignalRepository) *LeadUnansweredRule {
	return &LeadUnansweredRule{signals: signals}
}

func (r *LeadUnansweredRule) Code() string                  { return CodeLeadUnanswered }
func (r *LeadUnansweredRule) EntityType() models.EntityType { return models.EntityLead }

func (r *LeadUnansweredRule) Detect(ctx context.Context, agency *models.Agency, ec *models.EffectiveConfig, now time.Time) ([]models.Detection, error) {
	unit, err := unitDuration(ec.ThresholdUnit)
	if err != nil {
		return nil, err
	}
	cutoff := now.Add(-time.Duration(ec.Threshold) * unit)
	leads, err := r.signals.ListUnansweredLeads(ctx, agency.ID, cutoff)
	if err != nil {
		return nil, err
	}

	agencyID := agency.ID
	var out []models.Detection
	for _, lead := range leads {
		if lead.FirstResponseAt != nil || !lead.Status.AwaitingResponse() {
			continue
		}
		waited := elapsedUnits(lead.ReceivedAt, now, unit)
		if waited < ec.Threshold {
			continue
		}

		d := models.Detection{
			DefinitionCode:  ec.Code,
			AgencyID:        &agencyID,
			EntityType:      models.EntityLead,
			EntityID:        lead.ID,
			CurrentValue:    itoa(waited),
			ThresholdValue:  itoa(ec.Threshold),
			DifferenceValue: itoa(waited - ec.Threshold),
			Details: models.JSONB{
				"lead_status": string(lead.Status),
				"received_at": lead.ReceivedAt.UTC().Format(time.RFC3339),
			},
		}
		if lead.AssignedAgentID != nil {
			d.TargetUserID = *lead.AssignedAgentID
		}
		if lead.ListingID != nil {
			d.Details["listing_id"] = lead.ListingID.String()
		}
		out = append(out, d)
	}
	return out, nil
}
