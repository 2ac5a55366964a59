package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
)

func (s *Store) CreateIncident(ctx context.Context, i *model.Incident) error {
	_, err := s.col(colIncidents).InsertOne(ctx, toIncidentDoc(i))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("insert incident for report %s: %w", i.ReportID, core.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

func (s *Store) GetIncident(ctx context.Context, id string) (*model.Incident, error) {
	return s.findIncident(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *Store) GetIncidentByReport(ctx context.Context, reportID string) (*model.Incident, error) {
	return s.findIncident(ctx, bson.D{{Key: "report_id", Value: reportID}})
}

func (s *Store) findIncident(ctx context.Context, filter bson.D) (*model.Incident, error) {
	var doc incidentDoc
	if err := s.col(colIncidents).FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	i := doc.model()
	return &i, nil
}

func (s *Store) ListIncidents(ctx context.Context, q core.IncidentQuery) ([]model.Incident, error) {
	docs, err := findPage[incidentDoc](ctx, s.col(colIncidents), incidentFilter(q), q.Cursor, q.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Incident, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) UpdateIncident(ctx context.Context, i *model.Incident, expected model.IncidentStatus) error {
	return casReplace(ctx, s.col(colIncidents), i.ID, string(expected), toIncidentDoc(i))
}

func (s *Store) AppendAction(ctx context.Context, e *model.ActionEntry) error {
	doc, err := toActionDoc(e)
	if err != nil {
		return err
	}
	if _, err := s.col(colActions).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert incident action: %w", err)
	}
	return nil
}

func (s *Store) ListActions(ctx context.Context, incidentID string) ([]model.ActionEntry, error) {
	return s.findActions(ctx, bson.D{{Key: "incident_id", Value: incidentID}})
}

func (s *Store) ListActionsByType(ctx context.Context, action model.IncidentAction) ([]model.ActionEntry, error) {
	return s.findActions(ctx, bson.D{{Key: "action", Value: string(action)}})
}

func (s *Store) findActions(ctx context.Context, filter bson.D) ([]model.ActionEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := findAll[actionDoc](ctx, s.col(colActions), filter, opts)
	if err != nil {
		return nil, err
	}
	out := make([]model.ActionEntry, 0, len(docs))
	var errs []error
	for _, d := range docs {
		e, err := d.model()
		if err != nil {
			errs = append(errs, fmt.Errorf("action %s: %w", d.ID, err))
			continue
		}
		out = append(out, e)
	}
	return out, errors.Join(errs...)
}

func (s *Store) InsertAudit(ctx context.Context, e *model.AuditEntry) error {
	doc := auditDoc{
		ID:           e.ID,
		Actor:        e.Actor,
		Role:         e.Role,
		Method:       e.Method,
		Path:         e.Path,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		StatusCode:   e.StatusCode,
		RequestBody:  string(e.RequestBody),
		CreatedAt:    e.CreatedAt,
	}
	if _, err := s.col(colAudit).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
