package sla

import (
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titler = cases.Title(language.English)

// WriteText prints domains the way operators are used to reading them: one
// block per domain with every schedule tier, configured or not.
func WriteText(w io.Writer, domains []Domain) error {
	if len(domains) == 0 {
		_, err := fmt.Fprintln(w, "No SLA domains found.")
		return err
	}

	if _, err := fmt.Fprintf(w, "Total SLA domains retrieved: %d\n", len(domains)); err != nil {
		return err
	}
	for _, d := range domains {
		if _, err := fmt.Fprintf(w, "SLA Domain Name: %s, ID: %s\n", d.Name, d.ID); err != nil {
			return err
		}
		for _, tier := range d.SnapshotSchedule.Tiers() {
			if _, err := fmt.Fprintln(w, FormatTier(tier)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}

// FormatTier renders one tier as a single line.
func FormatTier(t Tier) string {
	name := titler.String(t.Name)
	if t.Schedule == nil || t.Schedule.BasicSchedule == nil {
		return fmt.Sprintf("%s Schedule: Not configured", name)
	}
	b := t.Schedule.BasicSchedule
	return fmt.Sprintf("%s Schedule: Frequency: %d, Retention: %d %s", name, b.Frequency, b.Retention, b.RetentionUnit)
}

// WriteJSON prints domains as an indented JSON array. An empty result is "[]".
func WriteJSON(w io.Writer, domains []Domain) error {
	if domains == nil {
		domains = []Domain{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(domains)
}
