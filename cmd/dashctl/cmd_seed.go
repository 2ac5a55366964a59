package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/edvin/civicwatch/internal/adapter"
)

type seedFile struct {
	Reports []adapter.CrimeReport `yaml:"reports"`
}

var seedFlags struct {
	file string
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Import crime reports from a YAML seed file",
	Long:  "Import relational crime reports from a YAML file. Verified rows also\ncreate their incidents.",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVarP(&seedFlags.file, "file", "f", "seeds/reports.yaml", "Seed file")
}

func loadSeed(path string) ([]adapter.CrimeReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(f.Reports) == 0 {
		return nil, fmt.Errorf("seed file %s has no reports", path)
	}
	return f.Reports, nil
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	rows, err := loadSeed(seedFlags.file)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, backend, err := openServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Close(ctx)

	res, err := svc.Report.Import(ctx, rows)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Imported:  %d reports\n", res.Imported)
	fmt.Fprintf(out, "Incidents: %d\n", res.Incidents)
	for _, c := range res.UnknownCategories {
		fmt.Fprintf(out, "Unknown category: %s\n", c)
	}
	return nil
}
