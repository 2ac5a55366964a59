package docstore

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

func filterClauses(f triage.Filter, now time.Time, trustField string) bson.D {
	d := bson.D{}
	if f.EventType != "" && f.EventType != triage.AllEventTypes {
		d = append(d, bson.E{Key: "event_type", Value: f.EventType})
	}
	if f.MinTrust > 0 {
		d = append(d, bson.E{Key: trustField, Value: bson.D{{Key: "$gte", Value: f.MinTrust}}})
	}
	if f.Bounded() {
		cutoff := now.Add(-time.Duration(f.TimeWindow * float64(time.Hour)))
		d = append(d, bson.E{Key: "observed_at", Value: bson.D{{Key: "$gte", Value: cutoff}}})
	}
	return d
}

func reportFilter(q core.ReportQuery) bson.D {
	d := filterClauses(q.Filter, q.Now, "trust")
	status := q.Status
	if q.Filter.VerifiedOnly {
		if status != "" && status != model.ReportVerified {
			// Contradictory predicates select nothing.
			return bson.D{{Key: "_id", Value: bson.D{{Key: "$exists", Value: false}}}}
		}
		status = model.ReportVerified
	}
	if status != "" {
		d = append(d, bson.E{Key: "status", Value: string(status)})
	}
	if q.Priority != "" {
		d = append(d, bson.E{Key: "priority", Value: string(q.Priority)})
	}
	if q.Search != "" {
		d = append(d, searchClause(q.Search, "description", "location.address", "_id"))
	}
	if b := q.BBox; b != nil {
		d = append(d,
			bson.E{Key: "location.lat", Value: bson.D{{Key: "$gte", Value: b.South}, {Key: "$lte", Value: b.North}}},
			bson.E{Key: "location.lng", Value: bson.D{{Key: "$gte", Value: b.West}, {Key: "$lte", Value: b.East}}},
		)
	}
	return d
}

func incidentFilter(q core.IncidentQuery) bson.D {
	d := filterClauses(q.Filter, q.Now, "confidence")
	if q.Status != "" {
		d = append(d, bson.E{Key: "status", Value: string(q.Status)})
	}
	if q.Severity != "" {
		d = append(d, bson.E{Key: "severity", Value: string(q.Severity)})
	}
	if q.Search != "" {
		d = append(d, searchClause(q.Search, "title", "description", "location.address"))
	}
	return d
}

// searchClause is a case-insensitive substring match on any of fields.
func searchClause(term string, fields ...string) bson.E {
	re := bson.D{{Key: "$regex", Value: regexp.QuoteMeta(term)}, {Key: "$options", Value: "i"}}
	or := make(bson.A, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.D{{Key: f, Value: re}})
	}
	return bson.E{Key: "$or", Value: or}
}

// olderThan selects documents after (createdAt, id) in newest-first order.
func olderThan(createdAt time.Time, id string) bson.E {
	return bson.E{Key: "$and", Value: bson.A{
		bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "created_at", Value: bson.D{{Key: "$lt", Value: createdAt}}}},
			bson.D{
				{Key: "created_at", Value: createdAt},
				{Key: "_id", Value: bson.D{{Key: "$lt", Value: id}}},
			},
		}}},
	}}
}
