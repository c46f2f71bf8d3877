package game

import (
	"errors"

	"rams/internal/model"
)

var ErrEmptyTrick = errors.New("trick has no cards")

// IsValidMove reports whether card may be played from hand given the lead suit.
// Trump never overrides the obligation to follow suit.
func IsValidMove(hand []model.Card, card model.Card, lead *model.Suit) bool {
	if lead == nil {
		return true
	}
	if card.Suit == *lead {
		return true
	}
	return !hasSuit(hand, *lead)
}

// beats reports whether challenger takes the trick from the current winner.
func beats(challenger, winner model.Card, trump model.Suit) bool {
	if challenger.Suit == trump && winner.Suit != trump {
		return true
	}
	return challenger.Suit == winner.Suit && challenger.Points() > winner.Points()
}

// ResolveTrick returns the seat that wins the trick and the sum of its card points.
func ResolveTrick(table []model.TableCard, trump model.Suit) (int, int, error) {
	if len(table) == 0 {
		return -1, 0, ErrEmptyTrick
	}
	best := table[0]
	points := best.Card.Points()
	for _, tc := range table[1:] {
		points += tc.Card.Points()
		if beats(tc.Card, best.Card, trump) {
			best = tc
		}
	}
	return best.PlayerID, points, nil
}

// LegalIndexes lists the hand positions that may be played.
func LegalIndexes(hand []model.Card, lead *model.Suit) []int {
	out := make([]int, 0, len(hand))
	for i, c := range hand {
		if IsValidMove(hand, c, lead) {
			out = append(out, i)
		}
	}
	return out
}

// CheckForAutoWin reports whether the hand holds all four jacks.
func CheckForAutoWin(hand []model.Card) bool {
	return model.JackComboOf(hand) == model.JacksFour
}

func hasSuit(cards []model.Card, suit model.Suit) bool {
	for _, c := range cards {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

func removeAt(hand []model.Card, i int) []model.Card {
	out := make([]model.Card, 0, len(hand)-1)
	out = append(out, hand[:i]...)
	return append(out, hand[i+1:]...)
}
