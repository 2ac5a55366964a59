package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/adapter"
	"github.com/edvin/civicwatch/internal/metrics"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/notify"
	"github.com/edvin/civicwatch/internal/realtime"
	"github.com/edvin/civicwatch/internal/sop"
	"github.com/edvin/civicwatch/internal/triage"
)

// ErrInvalidPayload is returned when an action payload does not decode into
// the shape required by the action.
var ErrInvalidPayload = errors.New("invalid action payload")

type IncidentService struct {
	incidents IncidentRepository
	catalog   *sop.Catalog
	alerts    *notify.Channels
	pub       realtime.Publisher
	now       func() time.Time
	logger    zerolog.Logger
}

func NewIncidentService(incidents IncidentRepository, opts Options) *IncidentService {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &IncidentService{
		incidents: incidents,
		catalog:   opts.Catalog,
		alerts:    opts.Alerts,
		pub:       opts.Publisher,
		now:       opts.Now,
		logger:    opts.Logger.With().Str("component", "incident-service").Logger(),
	}
}

// GetByID returns an incident by ID.
func (s *IncidentService) GetByID(ctx context.Context, id string) (*model.Incident, error) {
	inc, err := s.incidents.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}
	return inc, nil
}

// List returns one page of incidents matching q.
func (s *IncidentService) List(ctx context.Context, q IncidentQuery) ([]model.Incident, bool, error) {
	if q.Now.IsZero() {
		q.Now = s.now()
	}
	rows, err := s.incidents.ListIncidents(ctx, q)
	if err != nil {
		return nil, false, fmt.Errorf("list incidents: %w", err)
	}
	rows = triage.Select(rows, func(i model.Incident) bool { return q.Matches(&i) })
	items, hasMore := page(rows, q.Limit)
	return items, hasMore, nil
}

// Actions returns the action log of an incident, oldest first.
func (s *IncidentService) Actions(ctx context.Context, id string) ([]model.ActionEntry, error) {
	if _, err := s.incidents.GetIncident(ctx, id); err != nil {
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}
	entries, err := s.incidents.ListActions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list incident actions: %w", err)
	}
	return entries, nil
}

// Apply runs an authority action. The payload is validated against the
// action; the status becomes the status produced by the last action.
func (s *IncidentService) Apply(ctx context.Context, id string, action model.IncidentAction, actor string, payload json.RawMessage) (*model.Incident, error) {
	inc, err := s.incidents.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident %s: %w", id, err)
	}

	prev := inc.Status
	before := *inc
	next, err := triage.ApplyIncidentAction(prev, action)
	if err != nil {
		metrics.IncidentActions.WithLabelValues(string(action), "rejected").Inc()
		return nil, err
	}
	if err := applyPayload(inc, action, payload); err != nil {
		metrics.IncidentActions.WithLabelValues(string(action), "rejected").Inc()
		return nil, err
	}

	now := s.now()
	inc.Status = next
	inc.UpdatedAt = now
	if err := s.incidents.UpdateIncident(ctx, inc, prev); err != nil {
		return nil, fmt.Errorf("%s incident %s: %w", action, id, err)
	}

	entry := triage.NewActionEntry(inc.ID, action, actor, prev, next, payload, now)
	if err := s.incidents.AppendAction(ctx, &entry); err != nil {
		// Every status change needs its trail entry, so undo the write.
		if rerr := s.incidents.UpdateIncident(ctx, &before, next); rerr != nil {
			s.logger.Error().Err(rerr).Str("incident_id", id).Str("action", string(action)).
				Msg("incident changed without action entry")
		}
		return nil, fmt.Errorf("append incident action: %w", err)
	}

	metrics.IncidentActions.WithLabelValues(string(action), "applied").Inc()
	s.logger.Info().Str("incident_id", id).Str("action", string(action)).
		Str("from", string(prev)).Str("to", string(next)).Str("actor", actor).Msg("incident action")
	s.pub.Publish(realtime.IncidentEvent(realtime.EventIncidentUpdated, inc, now))
	if action == model.ActionPublish {
		s.deliver(ctx, inc, payload)
	}
	return inc, nil
}

// deliver sends the public alert for a published incident. Delivery is
// best effort; the action is already recorded.
func (s *IncidentService) deliver(ctx context.Context, inc *model.Incident, raw json.RawMessage) {
	if s.alerts == nil {
		return
	}
	var p model.PublishPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return
	}
	sent, err := s.alerts.Publish(ctx, p.Channel, notify.NewAlert(inc, p))
	switch {
	case err != nil:
		metrics.AlertsPublished.WithLabelValues(p.Channel, "failed").Inc()
		s.logger.Warn().Err(err).Str("incident_id", inc.ID).Str("channel", p.Channel).Msg("public alert not delivered")
	case sent:
		metrics.AlertsPublished.WithLabelValues(p.Channel, "sent").Inc()
	}
}

// applyPayload decodes the action payload and applies its effect on the
// incident record. Dispatch and publish payloads are only validated.
func applyPayload(inc *model.Incident, action model.IncidentAction, raw json.RawMessage) error {
	decode := func(v any) error {
		if len(raw) == 0 {
			return nil
		}
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("%s payload: %w", action, ErrInvalidPayload)
		}
		return nil
	}

	switch action {
	case model.ActionDispatch:
		var p model.DispatchPayload
		if err := decode(&p); err != nil {
			return err
		}
		if len(p.TeamIDs) == 0 {
			return fmt.Errorf("dispatch payload: team_ids required: %w", ErrInvalidPayload)
		}
	case model.ActionPublish:
		var p model.PublishPayload
		if err := decode(&p); err != nil {
			return err
		}
		if p.Channel == "" {
			return fmt.Errorf("publish payload: channel required: %w", ErrInvalidPayload)
		}
	case model.ActionEscalate:
		var p model.EscalatePayload
		if err := decode(&p); err != nil {
			return err
		}
		if p.EscalateTo == "" {
			return fmt.Errorf("escalate payload: escalate_to required: %w", ErrInvalidPayload)
		}
		inc.EscalatedTo = &p.EscalateTo
		inc.Contacts = append(inc.Contacts, adapter.DepartmentContact(p.EscalateTo))
	case model.ActionClose:
		var p model.ClosePayload
		if err := decode(&p); err != nil {
			return err
		}
		if p.Notes != "" {
			inc.AnalystNotes = p.Notes
		}
	}
	return nil
}

// Procedure returns the standard operating procedure for an incident.
func (s *IncidentService) Procedure(ctx context.Context, id string) (*sop.Procedure, bool, error) {
	inc, err := s.incidents.GetIncident(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("get incident %s: %w", id, err)
	}
	if s.catalog == nil {
		return nil, false, fmt.Errorf("sop catalog: %w", ErrNotFound)
	}
	p, exact := s.catalog.Lookup(inc.EventType, inc.Severity)
	return &p, exact, nil
}
