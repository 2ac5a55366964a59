package core

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

// DefaultSearchLimit caps each record type when the caller gives no limit.
const DefaultSearchLimit = 5

// SearchResult is one hit of a cross-record search.
type SearchResult struct {
	Type      string          `json:"type"`
	ID        string          `json:"id"`
	Label     string          `json:"label"`
	EventType model.EventType `json:"event_type"`
	Status    string          `json:"status"`
}

// SearchService searches reports and incidents together.
type SearchService struct {
	reports   ReportRepository
	incidents IncidentRepository
}

func NewSearchService(reports ReportRepository, incidents IncidentRepository) *SearchService {
	return &SearchService{reports: reports, incidents: incidents}
}

// Search matches query against report and incident text in parallel and
// returns up to limit hits per type, reports first.
func (s *SearchService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	var reports, incidents []SearchResult
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		q := ReportQuery{Filter: triage.DefaultFilter(), Search: query, Limit: limit}
		rows, err := s.reports.ListReports(ctx, q)
		if err != nil {
			return fmt.Errorf("search reports: %w", err)
		}
		for _, r := range rows {
			if !q.Matches(&r) {
				continue
			}
			reports = append(reports, SearchResult{
				Type:      "report",
				ID:        r.ID,
				Label:     label(r.Description),
				EventType: r.EventType,
				Status:    string(r.Status),
			})
			if len(reports) == limit {
				break
			}
		}
		return nil
	})

	g.Go(func() error {
		q := IncidentQuery{Filter: triage.DefaultFilter(), Search: query, Limit: limit}
		rows, err := s.incidents.ListIncidents(ctx, q)
		if err != nil {
			return fmt.Errorf("search incidents: %w", err)
		}
		for _, i := range rows {
			if !q.Matches(&i) {
				continue
			}
			incidents = append(incidents, SearchResult{
				Type:      "incident",
				ID:        i.ID,
				Label:     i.Title,
				EventType: i.EventType,
				Status:    string(i.Status),
			})
			if len(incidents) == limit {
				break
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	all := make([]SearchResult, 0, len(reports)+len(incidents))
	all = append(all, reports...)
	return append(all, incidents...), nil
}

const labelLength = 80

// label shortens a description to a single display line.
func label(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > labelLength {
		return string(r[:labelLength-3]) + "..."
	}
	return s
}
