// Package services is the static directory of emergency & crisis support numbers.
package services

import (
	"context"
	"fmt"

	"github.com/Daskott/safecall/server/dial"
)

const (
	DialAction = "dial"
	TextAction = "text"

	EmergencyKind = "emergency"
	SupportKind   = "support"
)

type Entry struct {
	Name        string `json:"name"`
	Number      string `json:"number"`
	Description string `json:"description"`
	Available   string `json:"available,omitempty"`
	Action      string `json:"action"`
}

var emergencyNumbers = []Entry{
	{Name: "Emergency (911)", Number: "911", Description: "Police, Fire, Medical emergencies", Action: DialAction},
	{Name: "Police", Number: "911", Description: "Law enforcement assistance", Action: DialAction},
	{Name: "Fire Department", Number: "911", Description: "Fire emergencies and rescue", Action: DialAction},
	{Name: "Medical Emergency", Number: "911", Description: "Ambulance and medical help", Action: DialAction},
}

var supportNumbers = []Entry{
	{
		Name:        "National Suicide Prevention Lifeline",
		Number:      "988",
		Description: "24/7 crisis support and suicide prevention",
		Available:   "24/7",
		Action:      DialAction,
	},
	{
		Name:        "Crisis Text Line",
		Number:      "741741",
		Description: "Text HOME for crisis support",
		Available:   "24/7",
		Action:      TextAction,
	},
	{
		Name:        "National Domestic Violence Hotline",
		Number:      "1-800-799-7233",
		Description: "Support for domestic violence situations",
		Available:   "24/7",
		Action:      DialAction,
	},
	{
		Name:        "Poison Control",
		Number:      "1-800-222-1222",
		Description: "Poisoning emergencies and information",
		Available:   "24/7",
		Action:      DialAction,
	},
}

type Directory struct {
	dialer dial.Dialer
}

func NewDirectory(dialer dial.Dialer) *Directory {
	return &Directory{dialer: dialer}
}

// EmergencyNumbers returns a copy of the emergency table, callers can't mutate it.
func (d *Directory) EmergencyNumbers() []Entry {
	return copyEntries(emergencyNumbers)
}

// SupportNumbers returns a copy of the crisis support table.
func (d *Directory) SupportNumbers() []Entry {
	return copyEntries(supportNumbers)
}

// Find looks an entry up by table kind & position in that table.
func (d *Directory) Find(kind string, index int) (Entry, error) {
	var table []Entry
	switch kind {
	case EmergencyKind:
		table = emergencyNumbers
	case SupportKind:
		table = supportNumbers
	default:
		return Entry{}, fmt.Errorf("unknown service kind '%v', must be '%v' or '%v'", kind, EmergencyKind, SupportKind)
	}

	if index < 0 || index >= len(table) {
		return Entry{}, fmt.Errorf("no %v service at index %v", kind, index)
	}

	return table[index], nil
}

// Contact performs the entry's action: open the dialer, or tell the user
// what to text. Nothing is sent by us.
func (d *Directory) Contact(ctx context.Context, entry Entry) (dial.Intent, error) {
	if entry.Action == TextAction {
		return d.dialer.Text(ctx, entry.Number, entry.Name)
	}
	return d.dialer.Dial(ctx, entry.Number, entry.Name)
}

func copyEntries(entries []Entry) []Entry {
	result := make([]Entry, len(entries))
	copy(result, entries)
	return result
}
