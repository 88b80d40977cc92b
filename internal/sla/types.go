// Package sla lists SLA domains and their snapshot schedules.
package sla

// BasicSchedule is the frequency and retention of one schedule tier.
type BasicSchedule struct {
	Frequency     int    `json:"frequency"`
	Retention     int    `json:"retention"`
	RetentionUnit string `json:"retentionUnit"`
}

// Schedule wraps the basic schedule of a tier. A tier that is not configured
// is a nil *Schedule.
type Schedule struct {
	BasicSchedule *BasicSchedule `json:"basicSchedule"`
}

// SnapshotSchedule holds every tier of an SLA domain.
type SnapshotSchedule struct {
	Hourly  *Schedule `json:"hourly"`
	Daily   *Schedule `json:"daily"`
	Weekly  *Schedule `json:"weekly"`
	Monthly *Schedule `json:"monthly"`
	Yearly  *Schedule `json:"yearly"`
}

// Tier is one named entry of a SnapshotSchedule.
type Tier struct {
	Name     string
	Schedule *Schedule
}

// Tiers returns the schedule tiers from most to least frequent.
func (s SnapshotSchedule) Tiers() []Tier {
	return []Tier{
		{Name: "hourly", Schedule: s.Hourly},
		{Name: "daily", Schedule: s.Daily},
		{Name: "weekly", Schedule: s.Weekly},
		{Name: "monthly", Schedule: s.Monthly},
		{Name: "yearly", Schedule: s.Yearly},
	}
}

// Domain is a global SLA domain.
type Domain struct {
	Name             string           `json:"name"`
	ID               string           `json:"id"`
	SnapshotSchedule SnapshotSchedule `json:"snapshotSchedule"`
}

// slaDomainsData is the "data" object of one slaDomains page.
type slaDomainsData struct {
	SLADomains struct {
		PageInfo struct {
			EndCursor   *string `json:"endCursor"`
			HasNextPage bool    `json:"hasNextPage"`
		} `json:"pageInfo"`
		Edges []struct {
			Node Domain `json:"node"`
		} `json:"edges"`
	} `json:"slaDomains"`
}
