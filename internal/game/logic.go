package game

import (
	"fmt"
	"math/rand"

	"rams/internal/bots"
	"rams/internal/model"
)

const maxLogLines = 10

var botNames = []string{"Bot 1", "Bot 2", "Bot 3"}

// NewGame returns an idle table in the menu phase.
func NewGame(r model.Rules) model.GameState {
	return model.GameState{
		Rules: r,
		Phase: model.PhaseMenu,
		Round: 1,
		Trick: 1,
		Table: []model.TableCard{},
		Log:   []string{},
	}
}

// StartGame seats the human and the bots, deals the first round and opens betting.
func StartGame(g *model.GameState, humanName string, humanBalance int64, rng *rand.Rand) error {
	if g.Phase != model.PhaseMenu {
		return ErrWrongPhase
	}
	if humanName == "" {
		humanName = "You"
	}
	next := NewGame(g.Rules)
	next.Players = make([]model.Player, g.Rules.Players)
	for i := range next.Players {
		p := model.Player{ID: i}
		if i == model.HumanSeat {
			p.Name = humanName
			p.Balance = humanBalance
		} else {
			p.Name = botName(i)
			p.IsBot = true
			p.Balance = g.Rules.BotStake
		}
		next.Players[i] = p
	}
	if err := dealRound(&next, rng); err != nil {
		return err
	}
	addLog(&next, "Game started")
	addLog(&next, fmt.Sprintf("Trump: %s", next.Trump.Symbol()))
	*g = next
	return nil
}

// Replay deals the next round of the game to the same table, keeping balances.
func Replay(g *model.GameState, rng *rand.Rand) error {
	if g.Phase != model.PhaseResult {
		return ErrWrongPhase
	}
	if g.Round >= g.Rules.Rounds {
		return ErrGameOver
	}
	next := g.Clone()
	next.Round++
	if err := dealRound(&next, rng); err != nil {
		return err
	}
	addLog(&next, fmt.Sprintf("Round %d, trump: %s", next.Round, next.Trump.Symbol()))
	*g = next
	return nil
}

// Reset discards the table and returns to the menu. Safe to call from any phase.
func Reset(g *model.GameState) {
	*g = NewGame(g.Rules)
}

func dealRound(g *model.GameState, rng *rand.Rand) error {
	deck := Shuffle(CreateDeck(), rng)
	hands, rest, err := Deal(deck, g.Rules.Players, g.Rules.HandSize)
	if err != nil {
		return err
	}
	trump, ok := TrumpCard(rest)
	if !ok {
		return ErrShortDeck
	}
	for i := range g.Players {
		p := &g.Players[i]
		p.Hand = hands[i]
		p.Bet = 0
		p.HasBet = false
		p.Tricks = 0
		p.Points = 0
		p.Folded = false
		p.Declared = false
		p.Ready = false
		p.Bonus = 0
	}
	g.Trump = trump.Suit
	g.TrumpCard = &trump
	g.LeadSuit = nil
	g.Table = []model.TableCard{}
	g.Pot = 0
	g.Trick = 1
	g.CurrentPlayer = model.HumanSeat
	g.Result = nil
	g.Phase = model.PhaseBetting
	return nil
}

// ApplyBet deducts amount from the seat and adds it to the pot. A seat that
// cannot cover the minimum bet may only bet 0 and sits the round's betting out.
func ApplyBet(g *model.GameState, seat int, amount int64) error {
	if g.Phase != model.PhaseBetting {
		return ErrWrongPhase
	}
	p, err := player(g, seat)
	if err != nil {
		return err
	}
	if p.HasBet {
		return ErrAlreadyActed
	}
	switch {
	case amount == 0 && p.Balance < g.Rules.MinBet:
		p.HasBet = true
		addLog(g, fmt.Sprintf("%s cannot cover the minimum bet", p.Name))
	case amount < g.Rules.MinBet || amount > g.Rules.MaxBet:
		return fmt.Errorf("%w: must be between %d and %d", ErrInvalidBet, g.Rules.MinBet, g.Rules.MaxBet)
	case amount > p.Balance:
		return fmt.Errorf("%w: %d exceeds balance %d", ErrInvalidBet, amount, p.Balance)
	default:
		p.Balance -= amount
		p.Bet = amount
		p.HasBet = true
		g.Pot += amount
		addLog(g, fmt.Sprintf("%s bet %d", p.Name, amount))
	}

	for _, other := range g.Players {
		if !other.HasBet {
			return nil
		}
	}
	if g.Rules.ExtendedRules {
		g.Phase = model.PhaseDeclaring
		return nil
	}
	startPlay(g)
	return nil
}

// ApplyAdvance marks the seat as done with declarations. Play starts once every
// seat is done.
func ApplyAdvance(g *model.GameState, seat int) error {
	if g.Phase != model.PhaseDeclaring {
		return ErrWrongPhase
	}
	p, err := player(g, seat)
	if err != nil {
		return err
	}
	p.Ready = true
	for _, other := range g.Players {
		if !other.Ready {
			return nil
		}
	}
	startPlay(g)
	return nil
}

func startPlay(g *model.GameState) {
	active := activeSeats(g)
	if len(active) == 1 {
		addLog(g, fmt.Sprintf("%s is the only seat left", g.Players[active[0]].Name))
		settle(g)
		return
	}
	g.Phase = model.PhasePlaying
	g.CurrentPlayer = active[0]
}

// ApplyPlay plays the card at index from the seat's hand into the current trick.
func ApplyPlay(g *model.GameState, seat, index int) error {
	if g.Phase != model.PhasePlaying {
		return ErrWrongPhase
	}
	p, err := player(g, seat)
	if err != nil {
		return err
	}
	if seat != g.CurrentPlayer {
		return ErrNotYourTurn
	}
	if index < 0 || index >= len(p.Hand) {
		return ErrBadCardIndex
	}
	card := p.Hand[index]
	if !IsValidMove(p.Hand, card, g.LeadSuit) {
		return fmt.Errorf("%w %s", ErrIllegalMove, g.LeadSuit.Symbol())
	}

	p.Hand = removeAt(p.Hand, index)
	if len(g.Table) == 0 {
		lead := card.Suit
		g.LeadSuit = &lead
	}
	g.Table = append(g.Table, model.TableCard{PlayerID: seat, Card: card})
	addLog(g, fmt.Sprintf("%s played %s", p.Name, card))

	if len(g.Table) < len(activeSeats(g)) {
		g.CurrentPlayer = nextActive(g, seat)
		return nil
	}
	return finishTrick(g)
}

func finishTrick(g *model.GameState) error {
	winner, points, err := ResolveTrick(g.Table, g.Trump)
	if err != nil {
		return err
	}
	w := &g.Players[winner]
	w.Tricks++
	w.Points += points
	addLog(g, fmt.Sprintf("%s took trick %d (+%d)", w.Name, g.Trick, points))

	g.Table = []model.TableCard{}
	g.LeadSuit = nil
	g.CurrentPlayer = winner
	if g.Trick >= g.Rules.Tricks {
		settle(g)
		return nil
	}
	g.Trick++
	return nil
}

// settle charges zero-trick penalties and pays the pot to the round winner.
func settle(g *model.GameState) {
	res := &model.RoundResult{
		Round:     g.Round,
		WinnerID:  -1,
		Pot:       g.Pot,
		Totals:    make([]int, len(g.Players)),
		Penalties: make([]int64, len(g.Players)),
	}
	played := false
	for _, p := range g.Players {
		played = played || p.Tricks > 0
	}
	for i := range g.Players {
		p := &g.Players[i]
		res.Totals[i] = p.Total()
		// a round settled before any trick charges nobody
		if !played || p.Folded || p.Tricks > 0 {
			continue
		}
		pen := min(g.Rules.ZeroTrickPenalty, p.Balance)
		p.Balance -= pen
		res.Penalties[i] = pen
	}
	for i, p := range g.Players {
		if p.Folded {
			continue
		}
		if res.WinnerID < 0 || p.Total() > g.Players[res.WinnerID].Total() {
			res.WinnerID = i
		}
	}
	if res.WinnerID >= 0 {
		w := &g.Players[res.WinnerID]
		w.Balance += g.Pot
		res.WinnerName = w.Name
		addLog(g, fmt.Sprintf("%s wins the pot of %d", w.Name, g.Pot))
	}
	g.Pot = 0
	g.Result = res
	g.Phase = model.PhaseResult
}

// ActingSeat returns the seat expected to act next, if any. During betting and
// declaring bots act before the human so the human sees their choices.
func ActingSeat(g *model.GameState) (int, bool) {
	switch g.Phase {
	case model.PhaseBetting:
		return pendingSeat(g, func(p model.Player) bool { return !p.HasBet })
	case model.PhaseDeclaring:
		return pendingSeat(g, func(p model.Player) bool { return !p.Ready })
	case model.PhasePlaying:
		return g.CurrentPlayer, true
	default:
		return -1, false
	}
}

func pendingSeat(g *model.GameState, pending func(model.Player) bool) (int, bool) {
	human := -1
	for i, p := range g.Players {
		if !pending(p) {
			continue
		}
		if p.IsBot {
			return i, true
		}
		if human < 0 {
			human = i
		}
	}
	return human, human >= 0
}

// IsBotTurn reports whether the next action belongs to a bot seat.
func IsBotTurn(g *model.GameState) bool {
	seat, ok := ActingSeat(g)
	return ok && g.Players[seat].IsBot
}

// BotView exposes only what the seat may legitimately see.
func BotView(g *model.GameState, seat int) bots.View {
	p := g.Players[seat]
	v := bots.View{
		Seat:    seat,
		Hand:    append([]model.Card(nil), p.Hand...),
		Trump:   g.Trump,
		Table:   append([]model.TableCard(nil), g.Table...),
		Balance: p.Balance,
		MinBet:  g.Rules.MinBet,
		MaxBet:  g.Rules.MaxBet,
	}
	if g.LeadSuit != nil {
		lead := *g.LeadSuit
		v.Lead = &lead
	}
	return v
}

// ComputeBotAction asks bot for the move of the seat that is due to act.
func ComputeBotAction(g *model.GameState, bot bots.Bot) (int, model.Move, error) {
	if !IsBotTurn(g) {
		return -1, model.Move{}, ErrNotBotTurn
	}
	seat, _ := ActingSeat(g)
	v := BotView(g, seat)
	switch g.Phase {
	case model.PhaseBetting:
		return seat, model.Move{Kind: model.MoveBet, Amount: bot.ChooseBet(v)}, nil
	case model.PhaseDeclaring:
		if !g.Players[seat].Declared && bot.ShouldDeclare(v) {
			return seat, model.Move{Kind: model.MoveDeclare, Rule: RuleJacks}, nil
		}
		return seat, model.Move{Kind: model.MoveAdvance}, nil
	default:
		return seat, model.Move{Kind: model.MovePlay, CardIndex: bot.ChooseCard(v)}, nil
	}
}

// ApplyMove dispatches a move to the matching reducer.
func ApplyMove(g *model.GameState, seat int, m model.Move) error {
	switch m.Kind {
	case model.MoveBet:
		return ApplyBet(g, seat, m.Amount)
	case model.MoveDeclare:
		return ApplyExtension(g, seat, m.Rule)
	case model.MoveFold:
		return ApplyExtension(g, seat, RuleFold)
	case model.MoveAdvance:
		return ApplyAdvance(g, seat)
	case model.MovePlay:
		return ApplyPlay(g, seat, m.CardIndex)
	default:
		return fmt.Errorf("unknown move kind %d", m.Kind)
	}
}

func player(g *model.GameState, seat int) (*model.Player, error) {
	if seat < 0 || seat >= len(g.Players) {
		return nil, ErrUnknownSeat
	}
	return &g.Players[seat], nil
}

func activeSeats(g *model.GameState) []int {
	out := make([]int, 0, len(g.Players))
	for i, p := range g.Players {
		if !p.Folded {
			out = append(out, i)
		}
	}
	return out
}

func nextActive(g *model.GameState, from int) int {
	n := len(g.Players)
	for i := 1; i <= n; i++ {
		s := (from + i) % n
		if !g.Players[s].Folded {
			return s
		}
	}
	return from
}

func botName(seat int) string {
	if seat-1 < len(botNames) {
		return botNames[seat-1]
	}
	return fmt.Sprintf("Bot %d", seat)
}

func addLog(g *model.GameState, line string) {
	g.Log = append(g.Log, line)
	if len(g.Log) > maxLogLines {
		g.Log = append([]string(nil), g.Log[len(g.Log)-maxLogLines:]...)
	}
}
