package league

// Format selects the deck-provision and match protocol for a week.
type Format string

const (
	ArchonStandard Format = "archon_standard"
	Triad          Format = "triad"
	SealedArchon   Format = "sealed_archon"
	SealedAlliance Format = "sealed_alliance"
	Alliance       Format = "alliance"
	Thief          Format = "thief"
	Adaptive       Format = "adaptive"
)

func (f Format) Valid() bool {
	switch f {
	case ArchonStandard, Triad, SealedArchon, SealedAlliance, Alliance, Thief, Adaptive:
		return true
	}
	return false
}

// SlotsPerUser is the number of deck-selection slots a player fills.
func (f Format) SlotsPerUser() int {
	if f == Triad {
		return 3
	}
	return 1
}

// IsSealed reports whether decks must come from a generated pool.
func (f Format) IsSealed() bool {
	return f == SealedArchon || f == SealedAlliance
}

// IsAlliance reports whether players build pod-based alliance decks
// instead of submitting whole-deck selections.
func (f Format) IsAlliance() bool {
	return f == Alliance || f == SealedAlliance
}

// UsesCuration reports whether the week passes through the curation
// and steal phases before deck selection opens.
func (f Format) UsesCuration() bool {
	return f == Thief
}

// DefaultBestOf returns the series length the format fixes, or 0 when
// the week may choose.
func (f Format) DefaultBestOf() int {
	switch f {
	case Triad:
		return 3
	case Alliance, SealedAlliance:
		return 1
	}
	return 0
}
