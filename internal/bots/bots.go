package bots

import (
	"math/rand"

	"rams/internal/model"
)

// View is the part of the table a seat is allowed to see: its own hand and
// whatever lies face up.
type View struct {
	Seat    int
	Hand    []model.Card
	Lead    *model.Suit
	Trump   model.Suit
	Table   []model.TableCard
	Balance int64
	MinBet  int64
	MaxBet  int64
}

type Bot interface {
	ChooseBet(v View) int64
	ChooseCard(v View) int
	ShouldDeclare(v View) bool
}

// Simple is the rule-based opponent.
type Simple struct {
	RNG *rand.Rand
}

func NewSimple(seed int64) *Simple {
	return &Simple{RNG: rand.New(rand.NewSource(seed))}
}

func (b *Simple) ChooseBet(v View) int64 {
	return ChooseBetAmount(b.RNG, v.Balance, v.MinBet, v.MaxBet)
}

func (b *Simple) ChooseCard(v View) int {
	return ChooseCard(v.Hand, v.Lead, v.Trump, v.Table)
}

func (b *Simple) ShouldDeclare(v View) bool {
	return ShouldDeclare(v.Hand)
}

// ChooseBetAmount picks uniformly from [minBet, min(maxBet, balance/2)] and
// never more than balance. A balance below minBet yields 0 (sit out).
func ChooseBetAmount(rng *rand.Rand, balance, minBet, maxBet int64) int64 {
	if balance < minBet || minBet > maxBet {
		return 0
	}
	hi := balance / 2
	if hi > maxBet {
		hi = maxBet
	}
	if hi < minBet {
		hi = minBet
	}
	bet := minBet + rng.Int63n(hi-minBet+1)
	if bet > balance {
		bet = balance
	}
	return bet
}

// ChooseCard returns the hand index to play, or -1 for an empty hand.
func ChooseCard(hand []model.Card, lead *model.Suit, trump model.Suit, table []model.TableCard) int {
	if len(hand) == 0 {
		return -1
	}
	if lead == nil {
		return len(hand) / 2
	}

	best := 0
	for _, tc := range table {
		if tc.Card.Suit == *lead && tc.Card.Points() > best {
			best = tc.Card.Points()
		}
	}
	winning := lowest(hand, func(c model.Card) bool { return c.Suit == *lead && c.Points() > best })
	if winning >= 0 {
		return winning
	}
	if i := lowest(hand, func(c model.Card) bool { return c.Suit == *lead }); i >= 0 {
		return i
	}
	if i := lowest(hand, func(c model.Card) bool { return c.Suit == trump }); i >= 0 {
		return i
	}
	return lowest(hand, func(model.Card) bool { return true })
}

// ShouldDeclare reports whether the jack declaration pays for this hand.
func ShouldDeclare(hand []model.Card) bool {
	return model.JackComboOf(hand) != model.JacksNone
}

// lowest returns the index of the lowest-valued card matching keep, first index on ties.
func lowest(hand []model.Card, keep func(model.Card) bool) int {
	idx := -1
	for i, c := range hand {
		if !keep(c) {
			continue
		}
		if idx < 0 || c.Points() < hand[idx].Points() {
			idx = i
		}
	}
	return idx
}
