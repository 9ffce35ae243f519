package identity

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// Attribute is one trait of the rendered metadata document.
type Attribute struct {
	TraitType   string `json:"trait_type"`
	Value       any    `json:"value"`
	DisplayType string `json:"display_type,omitempty"`
}

// Metadata is the descriptive document rendered for an identity.
type Metadata struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Image       string      `json:"image"`
	Attributes  []Attribute `json:"attributes"`
}

// Reputation tiers, lowest first.
var tiers = []struct {
	min  int64
	name string
}{
	{0, "Rookie"},
	{100, "Contender"},
	{500, "Veteran"},
	{2000, "Champion"},
	{10000, "Legend"},
}

// Tier names the reputation band of rep.
func Tier(rep int64) string {
	name := tiers[0].name
	for _, t := range tiers {
		if rep >= t.min {
			name = t.name
		}
	}
	return name
}

// TokenMetadata renders the document for identity id from its current stats.
func (r *Registry) TokenMetadata(id uint64) (Metadata, error) {
	rec, err := r.RecordByID(id)
	if err != nil {
		return Metadata{}, fmt.Errorf("identity.token_metadata: %w", err)
	}
	return render(rec), nil
}

// TokenURI returns the metadata document as a base64 JSON data URI.
func (r *Registry) TokenURI(id uint64) (string, error) {
	md, err := r.TokenMetadata(id)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(md)
	if err != nil {
		return "", fmt.Errorf("identity.token_uri: %w", err)
	}
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(b), nil
}

func render(rec Record) Metadata {
	tier := Tier(rec.Reputation)
	return Metadata{
		Name:        fmt.Sprintf("Arena Identity #%d", rec.ID),
		Description: "Non-transferable arena participation credential. Stats reflect settled challenges.",
		Image:       "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg(rec, tier))),
		Attributes: []Attribute{
			{TraitType: "Tier", Value: tier},
			{TraitType: "Reputation", Value: rec.Reputation, DisplayType: "number"},
			{TraitType: "Arena Points", Value: rec.ArenaPoints, DisplayType: "number"},
			{TraitType: "Wins", Value: rec.Wins, DisplayType: "number"},
			{TraitType: "Participation", Value: rec.Participation, DisplayType: "number"},
			{TraitType: "Member Since", Value: rec.CreatedAt.Unix(), DisplayType: "date"},
		},
	}
}

func svg(rec Record, tier string) string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg" width="350" height="350" viewBox="0 0 350 350">`)
	b.WriteString(`<rect width="100%" height="100%" fill="#101820"/>`)
	lines := []string{
		fmt.Sprintf("Arena Identity #%d", rec.ID),
		"Tier: " + tier,
		fmt.Sprintf("Reputation: %d", rec.Reputation),
		fmt.Sprintf("Arena Points: %d", rec.ArenaPoints),
		fmt.Sprintf("Wins: %d", rec.Wins),
		fmt.Sprintf("Participation: %d", rec.Participation),
		string(rec.Owner),
	}
	for i, l := range lines {
		size := 16
		if i == 0 {
			size = 22
		}
		if i == len(lines)-1 {
			size = 10
		}
		fmt.Fprintf(&b, `<text x="20" y="%d" fill="#f2aa4c" font-family="monospace" font-size="%d">%s</text>`,
			50+i*40, size, html.EscapeString(l))
	}
	b.WriteString(`</svg>`)
	return b.String()
}
