package league

type ThiefCurationDeck struct {
	ID         int64 `db:"id" json:"id"`
	WeekID     int64 `db:"week_id" json:"week_id"`
	TeamID     int64 `db:"team_id" json:"team_id"`
	SlotNumber int   `db:"slot_number" json:"slot_number"`
	DeckID     int64 `db:"deck_id" json:"deck_id"`
}

type ThiefSteal struct {
	ID             int64 `db:"id" json:"id"`
	WeekID         int64 `db:"week_id" json:"week_id"`
	StealingTeamID int64 `db:"stealing_team_id" json:"stealing_team_id"`
	CurationDeckID int64 `db:"curation_deck_id" json:"curation_deck_id"`
}

// ThiefQuota returns how many decks a team must steal. The floor team
// takes floor(T/2), the other team ceil(T/2).
func ThiefQuota(teamSize int, isFloorTeam bool) int {
	if isFloorTeam {
		return teamSize / 2
	}
	return (teamSize + 1) / 2
}
