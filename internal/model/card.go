package model

import (
	"encoding/json"
	"fmt"
)

type Suit int

type Rank int

type Color string

const (
	SuitSpades Suit = iota
	SuitHearts
	SuitDiamonds
	SuitClubs
)

// Ranks are ordered as they are printed on the cards. Trick strength comes
// from Points, not from this order.
const (
	Rank6 Rank = iota
	Rank7
	Rank8
	Rank9
	Rank10
	RankJ
	RankQ
	RankK
	RankA
)

const (
	ColorRed   Color = "red"
	ColorBlack Color = "black"
)

var (
	Suits = []Suit{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}
	Ranks = []Rank{Rank6, Rank7, Rank8, Rank9, Rank10, RankJ, RankQ, RankK, RankA}
)

var rankPoints = [...]int{
	Rank6:  6,
	Rank7:  7,
	Rank8:  8,
	Rank9:  9,
	Rank10: 10,
	RankJ:  2,
	RankQ:  3,
	RankK:  4,
	RankA:  11,
}

// Points is the trick value of the rank. Unknown ranks are worth nothing.
func (r Rank) Points() int {
	if r < Rank6 || r > RankA {
		return 0
	}
	return rankPoints[r]
}

func (s Suit) String() string {
	switch s {
	case SuitSpades:
		return "S"
	case SuitHearts:
		return "H"
	case SuitDiamonds:
		return "D"
	case SuitClubs:
		return "C"
	default:
		return "?"
	}
}

// Symbol returns the suit glyph used in the game log.
func (s Suit) Symbol() string {
	switch s {
	case SuitSpades:
		return "♠"
	case SuitHearts:
		return "♥"
	case SuitDiamonds:
		return "♦"
	case SuitClubs:
		return "♣"
	default:
		return "?"
	}
}

func (r Rank) String() string {
	switch r {
	case Rank6:
		return "6"
	case Rank7:
		return "7"
	case Rank8:
		return "8"
	case Rank9:
		return "9"
	case Rank10:
		return "10"
	case RankJ:
		return "J"
	case RankQ:
		return "Q"
	case RankK:
		return "K"
	case RankA:
		return "A"
	default:
		return "?"
	}
}

func ParseSuit(s string) (Suit, error) {
	switch s {
	case "S", "♠":
		return SuitSpades, nil
	case "H", "♥":
		return SuitHearts, nil
	case "D", "♦":
		return SuitDiamonds, nil
	case "C", "♣":
		return SuitClubs, nil
	default:
		return SuitSpades, fmt.Errorf("invalid suit %q", s)
	}
}

func ParseRank(s string) (Rank, error) {
	for _, r := range Ranks {
		if r.String() == s {
			return r, nil
		}
	}
	return Rank6, fmt.Errorf("invalid rank %q", s)
}

func (s Suit) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Suit) UnmarshalText(b []byte) error {
	v, err := ParseSuit(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (r Rank) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Rank) UnmarshalText(b []byte) error {
	v, err := ParseRank(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

func (s Suit) Color() Color {
	if s == SuitHearts || s == SuitDiamonds {
		return ColorRed
	}
	return ColorBlack
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func (c Card) Color() Color {
	return c.Suit.Color()
}

func (c Card) Points() int {
	return c.Rank.Points()
}

func (c Card) String() string {
	return c.Rank.String() + c.Suit.Symbol()
}

// MarshalJSON adds the derived color so clients do not have to know the suit table.
func (c Card) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Rank  Rank  `json:"rank"`
		Suit  Suit  `json:"suit"`
		Color Color `json:"color"`
	}{c.Rank, c.Suit, c.Color()})
}

func (c *Card) UnmarshalJSON(b []byte) error {
	var raw struct {
		Rank Rank `json:"rank"`
		Suit Suit `json:"suit"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Rank, c.Suit = raw.Rank, raw.Suit
	return nil
}

// JackCombo is the jack holding the declaration rule pays for.
type JackCombo int

const (
	JacksNone JackCombo = iota
	JacksPair
	JacksFour
)

// CountJacks returns the number of jacks in hand split by color.
func CountJacks(hand []Card) (red, black int) {
	for _, c := range hand {
		if c.Rank != RankJ {
			continue
		}
		if c.Color() == ColorRed {
			red++
		} else {
			black++
		}
	}
	return red, black
}

// JackComboOf classifies hand: all four jacks, or both jacks of one color.
func JackComboOf(hand []Card) JackCombo {
	red, black := CountJacks(hand)
	switch {
	case red+black == 4:
		return JacksFour
	case red == 2 || black == 2:
		return JacksPair
	default:
		return JacksNone
	}
}
