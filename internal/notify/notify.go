// Package notify delivers published incident alerts to public channels.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/model"
)

// Alert is the public notice sent when an authority publishes an incident.
type Alert struct {
	IncidentID string
	Title      string
	EventType  model.EventType
	Severity   model.Severity
	Area       string
	TemplateID string
	Languages  []string
}

// NewAlert builds the alert for inc as published with p.
func NewAlert(inc *model.Incident, p model.PublishPayload) Alert {
	area := inc.Location.Address
	if area == "" {
		area = inc.Location.District
	}
	return Alert{
		IncidentID: inc.ID,
		Title:      inc.Title,
		EventType:  inc.EventType,
		Severity:   inc.Severity,
		Area:       area,
		TemplateID: p.TemplateID,
		Languages:  p.Languages,
	}
}

// Text renders the alert as a plain-text message.
func (a Alert) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", strings.ToUpper(string(a.Severity)), a.Title)
	if a.Area != "" {
		fmt.Fprintf(&b, "Area: %s\n", a.Area)
	}
	fmt.Fprintf(&b, "Type: %s\n", strings.ReplaceAll(string(a.EventType), "_", " "))
	fmt.Fprintf(&b, "Ref: %s", a.IncidentID)
	return b.String()
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// Channels routes alerts by publish channel name. Channels without a
// notifier are recorded on the incident only.
type Channels struct {
	byName map[string]Notifier
	logger zerolog.Logger
}

func NewChannels(logger zerolog.Logger) *Channels {
	return &Channels{
		byName: make(map[string]Notifier),
		logger: logger.With().Str("component", "notify").Logger(),
	}
}

// Register binds a channel name to a notifier.
func (c *Channels) Register(name string, n Notifier) {
	c.byName[name] = n
}

// Names lists the channels with a notifier.
func (c *Channels) Names() []string {
	names := make([]string, 0, len(c.byName))
	for n := range c.byName {
		names = append(names, n)
	}
	return names
}

// Publish sends a to the named channel. It reports whether a notifier was
// bound to the channel.
func (c *Channels) Publish(ctx context.Context, channel string, a Alert) (bool, error) {
	n, ok := c.byName[channel]
	if !ok {
		c.logger.Debug().Str("channel", channel).Str("incident_id", a.IncidentID).Msg("no notifier for channel")
		return false, nil
	}
	if err := n.Notify(ctx, a); err != nil {
		return true, fmt.Errorf("notify %s: %w", channel, err)
	}
	c.logger.Info().Str("channel", channel).Str("incident_id", a.IncidentID).Msg("alert published")
	return true, nil
}
