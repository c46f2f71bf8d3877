package game

import (
	"errors"
	"math/rand"

	"rams/internal/model"
)

var ErrShortDeck = errors.New("not enough cards to deal")

// CreateDeck returns the 36-card deck, suit-major then rank-minor.
func CreateDeck() []model.Card {
	deck := make([]model.Card, 0, len(model.Suits)*len(model.Ranks))
	for _, s := range model.Suits {
		for _, r := range model.Ranks {
			deck = append(deck, model.Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// Shuffle returns a uniformly permuted copy of deck. The input is not modified.
func Shuffle(deck []model.Card, rng *rand.Rand) []model.Card {
	shuffled := make([]model.Card, len(deck))
	copy(shuffled, deck)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// Deal draws perPlayer cards for each seat from the top of the deck (index 0),
// one card per seat per pass. It returns the hands and the undealt remainder.
func Deal(deck []model.Card, players, perPlayer int) ([][]model.Card, []model.Card, error) {
	need := players * perPlayer
	if players <= 0 || perPlayer <= 0 || len(deck) < need {
		return nil, nil, ErrShortDeck
	}
	hands := make([][]model.Card, players)
	for p := range hands {
		hands[p] = make([]model.Card, 0, perPlayer)
	}
	idx := 0
	for pass := 0; pass < perPlayer; pass++ {
		for p := 0; p < players; p++ {
			hands[p] = append(hands[p], deck[idx])
			idx++
		}
	}
	rest := append([]model.Card(nil), deck[idx:]...)
	return hands, rest, nil
}

// TrumpCard is the first undealt card, the one right after the last dealt card.
func TrumpCard(rest []model.Card) (model.Card, bool) {
	if len(rest) == 0 {
		return model.Card{}, false
	}
	return rest[0], true
}
