package push

import "encoding/json"

// Payload is the JSON body of a push message.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	Tag   string `json:"tag,omitempty"`
	Data  Data   `json:"data,omitempty"`
}

// Data carries the structured part of a payload. URL is the deep link
// opened when the notification is tapped.
type Data struct {
	URL string `json:"url,omitempty"`
}

// Defaults fills the gaps in incoming payloads. A zero value shows empty
// notifications; most hosts want StandardDefaults as a base.
type Defaults struct {
	Title string
	Body  string
	Icon  string
	Badge string

	// URL is the deep link used when the payload carries none. Also the
	// landing spot for targets that fail origin validation.
	URL string
}

// StandardDefaults returns the stock defaults for hosts that do not
// configure their own.
func StandardDefaults() Defaults {
	return Defaults{
		Title: "New notification",
		Body:  "You have an update waiting.",
		URL:   "/",
	}
}

// DecodePayload parses raw into a Payload, falling back to d field by field.
// It never fails: garbage in, default notification out.
func DecodePayload(raw []byte, d Defaults) Payload {
	var p Payload
	if len(raw) == 0 || json.Unmarshal(raw, &p) != nil {
		p = Payload{}
	}
	if p.Title == "" {
		p.Title = d.Title
	}
	if p.Body == "" {
		p.Body = d.Body
	}
	if p.Icon == "" {
		p.Icon = d.Icon
	}
	if p.Badge == "" {
		p.Badge = d.Badge
	}
	if p.Data.URL == "" {
		p.Data.URL = d.URL
	}
	return p
}
