package game

import (
	"math/rand"
	"testing"

	"rams/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDeck(t *testing.T) {
	deck := CreateDeck()
	assert.Len(t, deck, 36)

	seen := make(map[model.Card]bool)
	for _, c := range deck {
		assert.False(t, seen[c], "duplicate %s", c)
		seen[c] = true
	}
	for _, s := range model.Suits {
		for _, r := range model.Ranks {
			assert.True(t, seen[model.Card{Rank: r, Suit: s}])
		}
	}
}

func TestShuffleIsPermutation(t *testing.T) {
	deck := CreateDeck()
	orig := append([]model.Card(nil), deck...)

	for seed := int64(1); seed <= 20; seed++ {
		shuffled := Shuffle(deck, rand.New(rand.NewSource(seed)))
		assert.ElementsMatch(t, orig, shuffled)
	}
	assert.Equal(t, orig, deck, "input must not be modified")
}

func TestShuffleDeterministicPerSeed(t *testing.T) {
	a := Shuffle(CreateDeck(), rand.New(rand.NewSource(99)))
	b := Shuffle(CreateDeck(), rand.New(rand.NewSource(99)))
	assert.Equal(t, a, b)
}

func TestDealConservation(t *testing.T) {
	deck := Shuffle(CreateDeck(), rand.New(rand.NewSource(3)))
	hands, rest, err := Deal(deck, 4, 5)
	require.NoError(t, err)

	require.Len(t, hands, 4)
	all := make([]model.Card, 0, len(deck))
	for _, h := range hands {
		assert.Len(t, h, 5)
		all = append(all, h...)
	}
	assert.Len(t, rest, 16)
	all = append(all, rest...)
	assert.ElementsMatch(t, deck, all)
}

func TestDealRoundRobin(t *testing.T) {
	deck := CreateDeck()
	hands, rest, err := Deal(deck, 4, 5)
	require.NoError(t, err)

	// seat p receives deck[p], deck[p+4], deck[p+8], ...
	for p, h := range hands {
		for i, c := range h {
			assert.Equal(t, deck[p+4*i], c)
		}
	}
	trump, ok := TrumpCard(rest)
	assert.True(t, ok)
	assert.Equal(t, deck[20], trump)
}

func TestDealShortDeck(t *testing.T) {
	_, _, err := Deal(CreateDeck()[:10], 4, 5)
	assert.ErrorIs(t, err, ErrShortDeck)

	_, ok := TrumpCard(nil)
	assert.False(t, ok)
}
