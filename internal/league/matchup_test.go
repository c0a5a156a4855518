package league

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestWinCounts(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()
	pm := &PlayerMatchup{Player1: p1, Player2: p2}

	games := []Game{
		{GameNumber: 1, WinnerID: p1},
		{GameNumber: 2, WinnerID: p2},
		{GameNumber: 3, WinnerID: p1},
	}

	w1, w2 := WinCounts(pm, games)
	assert.Equal(t, 2, w1)
	assert.Equal(t, 1, w2)
}

func TestDecidedWinner(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()
	pm := &PlayerMatchup{Player1: p1, Player2: p2}

	games := []Game{{GameNumber: 1, WinnerID: p1}}
	assert.Equal(t, uuid.Nil, DecidedWinner(pm, games, 2))

	games = append(games, Game{GameNumber: 2, WinnerID: p1})
	assert.Equal(t, p1, DecidedWinner(pm, games, 2))

	// Best-of-one decides immediately.
	assert.Equal(t, p1, DecidedWinner(pm, games[:1], 1))
}

func TestOpponent(t *testing.T) {
	p1 := uuid.New()
	p2 := uuid.New()
	pm := &PlayerMatchup{Player1: p1, Player2: p2}

	assert.Equal(t, p2, pm.Opponent(p1))
	assert.Equal(t, p1, pm.Opponent(p2))
	assert.Equal(t, uuid.Nil, pm.Opponent(uuid.New()))
}

func TestWeekWinsNeeded(t *testing.T) {
	assert.Equal(t, 1, (&Week{BestOfN: 1}).WinsNeeded())
	assert.Equal(t, 2, (&Week{BestOfN: 3}).WinsNeeded())
	assert.Equal(t, 3, (&Week{BestOfN: 5}).WinsNeeded())
}
