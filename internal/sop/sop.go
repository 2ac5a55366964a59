// Package sop holds the standard operating procedures shown next to an
// incident, keyed by event type and severity.
package sop

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/edvin/civicwatch/internal/model"
)

//go:embed default.yaml
var defaultCatalog []byte

// AnySeverity matches every severity of an event type.
const AnySeverity = "*"

// Step is one ordered action of a procedure.
type Step struct {
	Step        int    `json:"step" yaml:"step"`
	Action      string `json:"action" yaml:"action"`
	Responsible string `json:"responsible" yaml:"responsible"`
	Timeframe   string `json:"timeframe" yaml:"timeframe"`
	Priority    string `json:"priority" yaml:"priority"`
}

// Procedure is the mapping for one event type and severity.
type Procedure struct {
	EventType string          `json:"event_type" yaml:"event_type"`
	Severity  string          `json:"severity" yaml:"severity"`
	Steps     []Step          `json:"steps" yaml:"steps"`
	Contacts  []model.Contact `json:"contacts" yaml:"contacts"`
}

type catalogFile struct {
	Procedures []Procedure `yaml:"procedures"`
}

// Catalog answers procedure lookups. It is immutable after load.
type Catalog struct {
	procedures []Procedure
	index      map[string]int
}

// Load reads a catalog from path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read sop catalog: %w", err)
		}
		data = b
	}
	return Parse(data)
}

// Parse decodes a YAML catalog. Steps are sorted by step number.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sop catalog: %w", err)
	}
	if len(f.Procedures) == 0 {
		return nil, fmt.Errorf("parse sop catalog: no procedures defined")
	}

	c := &Catalog{index: make(map[string]int, len(f.Procedures))}
	for i, p := range f.Procedures {
		if p.EventType == "" || p.Severity == "" {
			return nil, fmt.Errorf("parse sop catalog: procedure %d: event_type and severity are required", i)
		}
		k := key(p.EventType, p.Severity)
		if _, dup := c.index[k]; dup {
			return nil, fmt.Errorf("parse sop catalog: duplicate procedure %s/%s", p.EventType, p.Severity)
		}
		sort.SliceStable(p.Steps, func(a, b int) bool { return p.Steps[a].Step < p.Steps[b].Step })
		c.index[k] = len(c.procedures)
		c.procedures = append(c.procedures, p)
	}
	return c, nil
}

// Lookup returns the procedure for an exact event type and severity, then
// the event type's "*" entry, then the first procedure of the catalog.
// The boolean reports whether a specific match was found.
func (c *Catalog) Lookup(e model.EventType, s model.Severity) (Procedure, bool) {
	if i, ok := c.index[key(string(e), string(s))]; ok {
		return c.procedures[i], true
	}
	if i, ok := c.index[key(string(e), AnySeverity)]; ok {
		return c.procedures[i], true
	}
	return c.procedures[0], false
}

// All returns every procedure in catalog order.
func (c *Catalog) All() []Procedure {
	return append([]Procedure(nil), c.procedures...)
}

func key(eventType, severity string) string {
	return eventType + "/" + severity
}
