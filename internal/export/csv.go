// Package export renders incidents as CSV, GeoJSON and CAP 1.2 alerts.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/edvin/civicwatch/internal/model"
)

// PhoneMask replaces phone numbers in free text when PII masking is on.
const PhoneMask = "XXX-XXX-XXXX"

var phonePattern = regexp.MustCompile(`\+?[0-9]{1,4}?[-.\s]?\(?[0-9]{1,3}?\)?[-.\s]?[0-9]{3,4}[-.\s]?[0-9]{3,6}`)

// MaskPII masks phone numbers in s.
func MaskPII(s string) string {
	return phonePattern.ReplaceAllString(s, PhoneMask)
}

var csvHeader = []string{
	"ID", "Title", "Event Type", "Severity", "Status", "Confidence",
	"Timestamp", "District", "State", "Address", "Latitude", "Longitude",
	"Affected Population", "Description", "Analyst Notes", "Weapon Linked",
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// WriteCSV writes one row per incident. With maskPII, phone numbers in the
// address, description and notes are replaced.
func WriteCSV(w io.Writer, incidents []model.Incident, maskPII bool) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	text := func(s string) string {
		if maskPII {
			return MaskPII(s)
		}
		return s
	}
	for _, i := range incidents {
		population := ""
		if i.AffectedPopulation != nil {
			population = strconv.Itoa(*i.AffectedPopulation)
		}
		timestamp := ""
		if !i.Timestamp.IsZero() {
			timestamp = i.Timestamp.UTC().Format(time.RFC3339)
		}
		row := []string{
			i.ID,
			i.Title,
			string(i.EventType),
			string(i.Severity),
			string(i.Status),
			strconv.FormatFloat(i.Confidence, 'f', -1, 64),
			timestamp,
			i.Location.District,
			i.Location.State,
			text(i.Location.Address),
			strconv.FormatFloat(i.Location.Lat, 'f', 6, 64),
			strconv.FormatFloat(i.Location.Lng, 'f', 6, 64),
			population,
			text(i.Description),
			text(i.AnalystNotes),
			yesNo(i.EventType.Violent()),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", i.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
