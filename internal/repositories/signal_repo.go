package repositories

import (
	"context"
	"time"

	"warnengine/internal/models"

	"github.com/google/uuid"
)

// SignalRepository reads records owned by the surrounding application.
// Nothing here writes.
type SignalRepository interface {
	ListActiveAgencies(ctx context.Context) ([]*models.Agency, error)
	GetAgency(ctx context.Context, id uuid.UUID) (*models.Agency, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindUsersByRole(ctx context.Context, agencyID uuid.UUID, role models.TargetRole) ([]*models.User, error)
	ListUnansweredLeads(ctx context.Context, agencyID uuid.UUID, receivedBefore time.Time) ([]*models.Lead, error)
	ListListingsWithFewPhotos(ctx context.Context, agencyID uuid.UUID, minPhotos int) ([]*models.Listing, error)
	ListInactiveAgents(ctx context.Context, agencyID uuid.UUID, inactiveSince time.Time) ([]*models.Agent, error)
}

type signalRepo struct {
	db DBTX
}

func NewSignalRepository(db DBTX) SignalRepository {
	return &signalRepo{db: db}
}

func (r *signalRepo) ListActiveAgencies(ctx context.Context) ([]*models.Agency, error) {
	query := `SELECT id, name, tier, active FROM agencies WHERE active ORDER BY name`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agencies []*models.Agency
	for rows.Next() {
		a := &models.Agency{}
		if err := rows.Scan(&a.ID, &a.Name, &a.Tier, &a.Active); err != nil {
			return nil, err
		}
		agencies = append(agencies, a)
	}
	return agencies, rows.Err()
}

func (r *signalRepo) GetAgency(ctx context.Context, id uuid.UUID) (*models.Agency, error) {
	a := &models.Agency{}
	query := `SELECT id, name, tier, active FROM agencies WHERE id = $1`
	if err := r.db.QueryRow(ctx, query, id).Scan(&a.ID, &a.Name, &a.Tier, &a.Active); err != nil {
		return nil, mapNoRows(err)
	}
	return a, nil
}

func (r *signalRepo) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u := &models.User{}
	query := `SELECT id, agency_id, role, name, email, phone, active FROM users WHERE id = $1`
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.AgencyID, &u.Role, &u.Name, &u.Email, &u.Phone, &u.Active)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return u, nil
}

func (r *signalRepo) FindUsersByRole(ctx context.Context, agencyID uuid.UUID, role models.TargetRole) ([]*models.User, error) {
	query := `
		SELECT id, agency_id, role, name, email, phone, active
		FROM users
		WHERE agency_id = $1 AND role = $2 AND active
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, agencyID, role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		if err := rows.Scan(&u.ID, &u.AgencyID, &u.Role, &u.Name, &u.Email, &u.Phone, &u.Active); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *signalRepo) ListUnansweredLeads(ctx context.Context, agencyID uuid.UUID, receivedBefore time.Time) ([]*models.Lead, error) {
	query := `
		SELECT id, agency_id, assigned_agent_id, listing_id, received_at, first_response_at, status
		FROM leads
		WHERE agency_id = $1 AND first_response_at IS NULL AND status IN ('NEW', 'OPENED') AND received_at <= $2
		ORDER BY received_at
	`
	rows, err := r.db.Query(ctx, query, agencyID, receivedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var leads []*models.Lead
	for rows.Next() {
		l := &models.Lead{}
		if err := rows.Scan(&l.ID, &l.AgencyID, &l.AssignedAgentID, &l.ListingID, &l.ReceivedAt, &l.FirstResponseAt, &l.Status); err != nil {
			return nil, err
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

func (r *signalRepo) ListListingsWithFewPhotos(ctx context.Context, agencyID uuid.UUID, minPhotos int) ([]*models.Listing, error) {
	query := `
		SELECT l.id, l.agency_id, l.agent_id, l.title,
			(SELECT COUNT(*) FROM listing_images i WHERE i.listing_id = l.id)::int AS photo_count,
			l.is_active
		FROM listings l
		WHERE l.agency_id = $1 AND l.is_active
			AND (SELECT COUNT(*) FROM listing_images i WHERE i.listing_id = l.id) < $2
		ORDER BY l.created_at
	`
	rows, err := r.db.Query(ctx, query, agencyID, minPhotos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		if err := rows.Scan(&l.ID, &l.AgencyID, &l.AgentID, &l.Title, &l.PhotoCount, &l.IsActive); err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (r *signalRepo) ListInactiveAgents(ctx context.Context, agencyID uuid.UUID, inactiveSince time.Time) ([]*models.Agent, error) {
	query := `
		SELECT id, agency_id, name, last_active_at, active
		FROM users
		WHERE agency_id = $1 AND role = 'AGENT' AND active
			AND (last_active_at IS NULL OR last_active_at < $2)
		ORDER BY last_active_at NULLS FIRST
	`
	rows, err := r.db.Query(ctx, query, agencyID, inactiveSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		a := &models.Agent{}
		if err := rows.Scan(&a.UserID, &a.AgencyID, &a.Name, &a.LastActiveAt, &a.Active); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}
