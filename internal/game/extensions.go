package game

import (
	"fmt"
	"sort"

	"rams/internal/model"
)

const (
	RuleJacks = "jacks"
	RuleFold  = "fold"
)

// Extension is an optional rule a seat may invoke during the declaring phase.
type Extension interface {
	Name() string
	Eligible(g *model.GameState, seat int) bool
	Apply(g *model.GameState, seat int) error
}

var extensions = map[string]Extension{
	RuleJacks: JackDeclaration{},
	RuleFold:  Fold{},
}

// Extensions lists the registered rule names in a stable order.
func Extensions() []string {
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyExtension runs the named rule for seat. The state is untouched on error.
func ApplyExtension(g *model.GameState, seat int, name string) error {
	if !g.Rules.ExtendedRules {
		return ErrRulesDisabled
	}
	if g.Phase != model.PhaseDeclaring {
		return ErrWrongPhase
	}
	p, err := player(g, seat)
	if err != nil {
		return err
	}
	if p.Folded {
		return ErrSeatFolded
	}
	ext, ok := extensions[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownRule, name)
	}
	return ext.Apply(g, seat)
}

// JackDeclaration pays a bonus for four jacks, or for two jacks of one color.
type JackDeclaration struct{}

func (JackDeclaration) Name() string { return RuleJacks }

func (JackDeclaration) Eligible(g *model.GameState, seat int) bool {
	p := g.Players[seat]
	return !p.Declared && jackBonus(g.Rules, p.Hand) > 0
}

func (j JackDeclaration) Apply(g *model.GameState, seat int) error {
	if !j.Eligible(g, seat) {
		return ErrNotEligible
	}
	p := &g.Players[seat]
	p.Bonus = jackBonus(g.Rules, p.Hand)
	p.Balance += g.Rules.DeclareAdvance
	p.Declared = true
	if CheckForAutoWin(p.Hand) {
		addLog(g, fmt.Sprintf("%s declared four jacks", p.Name))
	} else {
		addLog(g, fmt.Sprintf("%s declared a pair of jacks (+%d)", p.Name, p.Bonus))
	}
	return nil
}

func jackBonus(r model.Rules, hand []model.Card) int {
	switch model.JackComboOf(hand) {
	case model.JacksFour:
		return r.FourJacksBonus
	case model.JacksPair:
		return r.JackPairBonus
	default:
		return 0
	}
}

// Fold takes the seat out of the round. The first fold of a game is free.
type Fold struct{}

func (Fold) Name() string { return RuleFold }

func (Fold) Eligible(g *model.GameState, seat int) bool {
	return !g.Players[seat].Folded && len(activeSeats(g)) > 1
}

func (f Fold) Apply(g *model.GameState, seat int) error {
	if !f.Eligible(g, seat) {
		return ErrLastSeat
	}
	p := &g.Players[seat]
	var penalty int64
	if p.FoldsUsed > 0 {
		penalty = min(g.Rules.FoldPenalty, p.Balance)
	}
	p.Balance -= penalty
	p.FoldsUsed++
	p.Folded = true
	addLog(g, fmt.Sprintf("%s folded (-%d)", p.Name, penalty))
	return ApplyAdvance(g, seat)
}
