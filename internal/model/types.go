package model

// Phase is the lifecycle stage of the table.
type Phase string

const (
	PhaseMenu      Phase = "menu"
	PhaseBetting   Phase = "betting"
	PhaseDeclaring Phase = "declaring"
	PhasePlaying   Phase = "playing"
	PhaseResult    Phase = "result"
)

const HumanSeat = 0

type Rules struct {
	Players          int   `json:"players"`
	HandSize         int   `json:"handSize"`
	Tricks           int   `json:"tricks"`
	Rounds           int   `json:"rounds"`
	MinBet           int64 `json:"minBet"`
	MaxBet           int64 `json:"maxBet"`
	BotStake         int64 `json:"botStake"`
	ZeroTrickPenalty int64 `json:"zeroTrickPenalty"`
	FoldPenalty      int64 `json:"foldPenalty"`
	DeclareAdvance   int64 `json:"declareAdvance"`
	FourJacksBonus   int   `json:"fourJacksBonus"`
	JackPairBonus    int   `json:"jackPairBonus"`
	ExtendedRules    bool  `json:"extendedRules"`
}

func ClassicPreset() Rules {
	return Rules{
		Players:          4,
		HandSize:         5,
		Tricks:           5,
		Rounds:           5,
		MinBet:           10,
		MaxBet:           500,
		BotStake:         1000,
		ZeroTrickPenalty: 10,
		FoldPenalty:      25,
		DeclareAdvance:   10,
		FourJacksBonus:   1000,
		JackPairBonus:    5,
		ExtendedRules:    true,
	}
}

type Player struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	IsBot     bool   `json:"isBot"`
	Balance   int64  `json:"balance"`
	Bet       int64  `json:"bet"`
	HasBet    bool   `json:"hasBet"`
	Ready     bool   `json:"ready"`
	Hand      []Card `json:"hand"`
	Tricks    int    `json:"tricks"`
	Points    int    `json:"points"`
	FoldsUsed int    `json:"foldsUsed"`
	Folded    bool   `json:"folded"`
	Declared  bool   `json:"declared"`
	Bonus     int    `json:"bonus"`
}

// Total is the score compared at settlement.
func (p Player) Total() int {
	return p.Points + p.Bonus
}

type TableCard struct {
	PlayerID int  `json:"playerId"`
	Card     Card `json:"card"`
}

type RoundResult struct {
	Round      int     `json:"round"`
	WinnerID   int     `json:"winnerId"`
	WinnerName string  `json:"winnerName"`
	Pot        int64   `json:"pot"`
	Totals     []int   `json:"totals"`
	Penalties  []int64 `json:"penalties"`
}

type GameState struct {
	Rules         Rules        `json:"rules"`
	Phase         Phase        `json:"phase"`
	Players       []Player     `json:"players"`
	CurrentPlayer int          `json:"currentPlayer"`
	Round         int          `json:"round"`
	Trick         int          `json:"trick"`
	Trump         Suit         `json:"trump"`
	TrumpCard     *Card        `json:"trumpCard,omitempty"`
	LeadSuit      *Suit        `json:"leadSuit"`
	Table         []TableCard  `json:"table"`
	Pot           int64        `json:"pot"`
	Log           []string     `json:"log"`
	Result        *RoundResult `json:"result,omitempty"`
}

// Clone returns a deep copy safe to hand to readers outside the writer lock.
func (g GameState) Clone() GameState {
	out := g
	out.Players = make([]Player, len(g.Players))
	for i, p := range g.Players {
		p.Hand = append([]Card(nil), p.Hand...)
		out.Players[i] = p
	}
	out.Table = append([]TableCard(nil), g.Table...)
	out.Log = append([]string(nil), g.Log...)
	if g.TrumpCard != nil {
		c := *g.TrumpCard
		out.TrumpCard = &c
	}
	if g.LeadSuit != nil {
		s := *g.LeadSuit
		out.LeadSuit = &s
	}
	if g.Result != nil {
		r := *g.Result
		r.Totals = append([]int(nil), g.Result.Totals...)
		r.Penalties = append([]int64(nil), g.Result.Penalties...)
		out.Result = &r
	}
	return out
}

// MoveKind identifies an engine-level action taken by a seat.
type MoveKind int

const (
	MoveBet MoveKind = iota
	MoveDeclare
	MoveFold
	MoveAdvance
	MovePlay
)

type Move struct {
	Kind      MoveKind
	Amount    int64
	CardIndex int
	Rule      string
}

// Profile is the persisted per-device state of the human player.
type Profile struct {
	Balance       int64   `json:"balance"`
	WalletAddress string  `json:"walletAddress"`
	SoundEnabled  bool    `json:"soundEnabled"`
	Volume        float64 `json:"volume"`
}

type PublicPlayer struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	IsBot    bool   `json:"isBot"`
	Balance  int64  `json:"balance"`
	Bet      int64  `json:"bet"`
	HandSize int    `json:"handSize"`
	Tricks   int    `json:"tricks"`
	Points   int    `json:"points"`
	Bonus    int    `json:"bonus"`
	Folded   bool   `json:"folded"`
}

// TableView is what the presentation layer sees: public state plus the human hand.
type TableView struct {
	Phase         Phase          `json:"phase"`
	Players       []PublicPlayer `json:"players"`
	CurrentPlayer int            `json:"currentPlayer"`
	Round         int            `json:"round"`
	Trick         int            `json:"trick"`
	Trump         Suit           `json:"trump"`
	TrumpCard     *Card          `json:"trumpCard,omitempty"`
	LeadSuit      *Suit          `json:"leadSuit"`
	Table         []TableCard    `json:"table"`
	Pot           int64          `json:"pot"`
	MinBet        int64          `json:"minBet"`
	MaxBet        int64          `json:"maxBet"`
	Log           []string       `json:"log"`
	Result        *RoundResult   `json:"result,omitempty"`
	MyHand        []Card         `json:"myHand"`
	Profile       Profile        `json:"profile"`
}

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type Action struct {
	Type    string `json:"type"`
	Value   int64  `json:"value"`
	Payload string `json:"payload"`
}

// RoundRecord is one settled round. WinnerID is the winning seat, -1 when
// nobody won.
type RoundRecord struct {
	Round      int
	WinnerID   int
	WinnerName string
	Pot        int64
	Players    []Player
}

type PlayerStat struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	TotalRounds int    `json:"totalRounds"`
	Wins        int    `json:"wins"`
	TotalPoints int    `json:"totalPoints"`
	Winnings    int64  `json:"winnings"`
}
