package rules

import (
	"context"
	"time"

	"warnengine/internal/models"
	"warnengine/internal/repositories"
)

const CodeAgentInactive = "AGENT_INACTIVE_30D"

// AgentInactiveRule flags agents who have not been active for the
// threshold. It has no natural recipient; the evaluator targets the
// definition's role instead.
type AgentInactiveRule struct {
	signals repositories.SignalRepository
}

func NewAgentInactiveRule(signals repositories.SignalRepository) *AgentInactiveRule {
	return &AgentInactiveRule{signals: signals}
}

func (r *AgentInactiveRule) Code() string                  { return CodeAgentInactive }
func (r *AgentInactiveRule) EntityType() models.EntityType { return models.EntityAgent }

func (r *AgentInactiveRule) Detect(ctx context.Context, agency *models.Agency, ec *models.EffectiveConfig, now time.Time) ([]models.Detection, error) {
	unit, err := unitDuration(ec.ThresholdUnit)
	if err != nil {
		return nil, err
	}
	agents, err := r.signals.ListInactiveAgents(ctx, agency.ID, now.Add(-time.Duration(ec.Threshold)*unit))
	if err != nil {
		return nil, err
	}

	agencyID := agency.ID
	var out []models.Detection
	for _, a := range agents {
		if !a.Active {
			continue
		}
		d := models.Detection{
			DefinitionCode: ec.Code,
			AgencyID:       &agencyID,
			EntityType:     models.EntityAgent,
			EntityID:       a.UserID,
			ThresholdValue: itoa(ec.Threshold),
			Details:        models.JSONB{"agent_name": a.Name},
		}
		if a.LastActiveAt == nil {
			d.CurrentValue = "never"
		} else {
			idle := elapsedUnits(*a.LastActiveAt, now, unit)
			if idle < ec.Threshold {
				continue
			}
			d.CurrentValue = itoa(idle)
			d.DifferenceValue = itoa(idle - ec.Threshold)
			d.Details["last_active_at"] = a.LastActiveAt.UTC().Format(time.RFC3339)
		}
		out = append(out, d)
	}
	return out, nil
}
