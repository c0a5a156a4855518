package league

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnakeOrderReversesOddRounds(t *testing.T) {
	teams := []int64{10, 20, 30}

	order := SnakeOrder(teams, 2)

	assert.Equal(t, []int64{10, 20, 30, 30, 20, 10}, order)
}

func TestSnakeOrderSingleRound(t *testing.T) {
	teams := []int64{1, 2}

	order := SnakeOrder(teams, 1)

	assert.Equal(t, []int64{1, 2}, order)
}

func TestSnakeOrderZeroRounds(t *testing.T) {
	order := SnakeOrder([]int64{1, 2}, 0)

	assert.Empty(t, order)
}
