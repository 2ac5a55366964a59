package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
)

func (s *Store) CreateReport(ctx context.Context, r *model.Report) error {
	if _, err := s.col(colReports).InsertOne(ctx, toReportDoc(r)); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	var doc reportDoc
	if err := s.col(colReports).FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&doc); err != nil {
		return nil, notFound(err)
	}
	r := doc.model()
	return &r, nil
}

func (s *Store) ListReports(ctx context.Context, q core.ReportQuery) ([]model.Report, error) {
	docs, err := findPage[reportDoc](ctx, s.col(colReports), reportFilter(q), q.Cursor, q.Limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.Report, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

func (s *Store) UpdateReport(ctx context.Context, r *model.Report, expected model.ReportStatus) error {
	return casReplace(ctx, s.col(colReports), r.ID, string(expected), toReportDoc(r))
}

func (s *Store) AppendMedia(ctx context.Context, id string, urls []string, mediaType model.MediaType, at time.Time) error {
	set := bson.D{{Key: "updated_at", Value: at}}
	if mediaType != "" {
		set = append(set, bson.E{Key: "media_type", Value: string(mediaType)})
	}
	update := bson.D{
		{Key: "$push", Value: bson.D{{Key: "media", Value: bson.D{{Key: "$each", Value: urls}}}}},
		{Key: "$set", Value: set},
	}
	res, err := s.col(colReports).UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return fmt.Errorf("append report media: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) CountReportsByStatus(ctx context.Context) (map[model.ReportStatus]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "n", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cur, err := s.col(colReports).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count reports by status: %w", err)
	}
	defer cur.Close(ctx)

	counts := make(map[model.ReportStatus]int)
	for cur.Next(ctx) {
		var row struct {
			Status string `bson:"_id"`
			N      int    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decode status count: %w", err)
		}
		counts[model.ReportStatus(row.Status)] = row.N
	}
	return counts, cur.Err()
}

func (s *Store) CreateEscalation(ctx context.Context, e *model.Escalation) error {
	if _, err := s.col(colEscalations).InsertOne(ctx, escalationDoc(*e)); err != nil {
		return fmt.Errorf("insert escalation: %w", err)
	}
	return nil
}

func (s *Store) ListEscalations(ctx context.Context, reportID string) ([]model.Escalation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	docs, err := findAll[escalationDoc](ctx, s.col(colEscalations), bson.D{{Key: "report_id", Value: reportID}}, opts)
	if err != nil {
		return nil, err
	}
	out := make([]model.Escalation, 0, len(docs))
	for _, d := range docs {
		e := model.Escalation(d)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, nil
}
