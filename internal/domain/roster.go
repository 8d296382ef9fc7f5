package domain

// RosterTeam is one team entry of a league roster.
type RosterTeam struct {
	Name      string `json:"name"`
	Canonical string `json:"canonical"`
	ShortName string `json:"shortName"`
}

// Roster lists the teams of a league in one season.
type Roster struct {
	League string       `json:"league"`
	Season string       `json:"season"`
	Teams  []RosterTeam `json:"teams"`
}
