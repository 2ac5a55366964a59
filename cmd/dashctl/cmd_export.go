package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/civicwatch/internal/core"
	"github.com/edvin/civicwatch/internal/export"
	"github.com/edvin/civicwatch/internal/model"
	"github.com/edvin/civicwatch/internal/triage"
)

var exportFlags struct {
	format    string
	maskPII   bool
	eventType string
	status    string
	id        string
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write incidents as CSV, GeoJSON or a CAP alert to stdout",
	RunE:  runExport,
}

func init() {
	f := exportCmd.Flags()
	f.StringVar(&exportFlags.format, "format", "csv", "Output format: csv, geojson or cap")
	f.BoolVar(&exportFlags.maskPII, "mask-pii", false, "Mask phone numbers and emails in CSV descriptions")
	f.StringVar(&exportFlags.eventType, "event-type", triage.AllEventTypes, "Event type or all")
	f.StringVar(&exportFlags.status, "status", "", "Incident status")
	f.StringVar(&exportFlags.id, "id", "", "Incident ID (required for cap)")
}

func runExport(cmd *cobra.Command, _ []string) error {
	q := core.IncidentQuery{Filter: triage.DefaultFilter()}
	if e := exportFlags.eventType; e != triage.AllEventTypes {
		if !model.EventType(e).Known() {
			return fmt.Errorf("unknown event type %q", e)
		}
		q.Filter.EventType = e
	}
	if exportFlags.status != "" {
		st, ok := model.ParseIncidentStatus(exportFlags.status)
		if !ok {
			return fmt.Errorf("unknown incident status %q", exportFlags.status)
		}
		q.Status = st
	}
	if exportFlags.format == "cap" && exportFlags.id == "" {
		return errors.New("--id is required for cap")
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	svc, backend, err := openServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	out := cmd.OutOrStdout()
	switch exportFlags.format {
	case "cap":
		inc, err := svc.Incident.GetByID(ctx, exportFlags.id)
		if err != nil {
			return err
		}
		alert := export.NewCAPAlert(inc, export.CAPOptions{Sender: cfg.CAPSender, WebBase: cfg.PublicBaseURL}, time.Now().UTC())
		return export.WriteCAP(out, alert)
	case "csv", "geojson":
		incidents, _, err := svc.Incident.List(ctx, q)
		if err != nil {
			return err
		}
		logger.Debug().Int("incidents", len(incidents)).Str("format", exportFlags.format).Msg("exporting")
		if exportFlags.format == "csv" {
			return export.WriteCSV(out, incidents, exportFlags.maskPII)
		}
		return export.WriteGeoJSON(out, incidents)
	}
	return fmt.Errorf("unknown format %q", exportFlags.format)
}
