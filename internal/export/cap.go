package export

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/edvin/civicwatch/internal/model"
)

// CAPNamespace is the OASIS CAP 1.2 namespace.
const CAPNamespace = "urn:oasis:names:tc:emergency:cap:1.2"

// capRadiusKm is the alert circle radius around the incident.
const capRadiusKm = 5

type CAPAlert struct {
	XMLName    xml.Name `xml:"urn:oasis:names:tc:emergency:cap:1.2 alert"`
	Identifier string   `xml:"identifier"`
	Sender     string   `xml:"sender"`
	Sent       string   `xml:"sent"`
	Status     string   `xml:"status"`
	MsgType    string   `xml:"msgType"`
	Scope      string   `xml:"scope"`
	Info       CAPInfo  `xml:"info"`
}

type CAPInfo struct {
	Category    string         `xml:"category"`
	Event       string         `xml:"event"`
	Urgency     string         `xml:"urgency"`
	Severity    string         `xml:"severity"`
	Certainty   string         `xml:"certainty"`
	Headline    string         `xml:"headline"`
	Description string         `xml:"description"`
	Instruction string         `xml:"instruction"`
	Web         string         `xml:"web,omitempty"`
	Parameters  []CAPParameter `xml:"parameter"`
	Area        CAPArea        `xml:"area"`
}

type CAPParameter struct {
	ValueName string `xml:"valueName"`
	Value     string `xml:"value"`
}

// WeaponLinkedParameter names the CAP parameter flagging violent event types.
const WeaponLinkedParameter = "weaponLinked"

type CAPArea struct {
	AreaDesc string `xml:"areaDesc"`
	Circle   string `xml:"circle,omitempty"`
}

// CAPOptions identify the issuing system.
type CAPOptions struct {
	Sender  string
	WebBase string
}

// CAPUrgency maps incident severity to CAP urgency.
func CAPUrgency(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "Immediate"
	case model.SeverityHigh:
		return "Expected"
	}
	return "Future"
}

// CAPSeverity maps incident severity to the CAP severity vocabulary.
func CAPSeverity(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "Extreme"
	case model.SeverityHigh:
		return "Severe"
	case model.SeverityModerate:
		return "Moderate"
	case model.SeverityLow:
		return "Minor"
	}
	return "Unknown"
}

// NewCAPAlert builds a public CAP alert for an incident.
func NewCAPAlert(i *model.Incident, opts CAPOptions, sent time.Time) CAPAlert {
	var area []string
	for _, p := range []string{i.Location.Address, i.Location.District, i.Location.State} {
		if p != "" {
			area = append(area, p)
		}
	}
	circle := ""
	if i.Location.Mappable() {
		circle = fmt.Sprintf("%g,%g %d", i.Location.Lat, i.Location.Lng, capRadiusKm)
	}
	web := ""
	if opts.WebBase != "" {
		web = strings.TrimRight(opts.WebBase, "/") + "/incidents/" + i.ID
	}
	return CAPAlert{
		Identifier: i.ID,
		Sender:     opts.Sender,
		Sent:       sent.UTC().Format(time.RFC3339),
		Status:     "Actual",
		MsgType:    "Alert",
		Scope:      "Public",
		Info: CAPInfo{
			Category:    "Security",
			Event:       strings.ReplaceAll(string(i.EventType), "_", " "),
			Urgency:     CAPUrgency(i.Severity),
			Severity:    CAPSeverity(i.Severity),
			Certainty:   "Observed",
			Headline:    i.Title,
			Description: i.Description,
			Instruction: "Follow local authority guidelines and emergency procedures.",
			Web:         web,
			Parameters: []CAPParameter{
				{ValueName: WeaponLinkedParameter, Value: fmt.Sprint(i.EventType.Violent())},
			},
			Area:        CAPArea{AreaDesc: strings.Join(area, ", "), Circle: circle},
		},
	}
}

// WriteCAP writes the alert as an indented XML document.
func WriteCAP(w io.Writer, a CAPAlert) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(a); err != nil {
		return fmt.Errorf("encode cap alert: %w", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}
