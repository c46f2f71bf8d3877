package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"rams/internal/bots"
	"rams/internal/model"
	"rams/internal/ports"

	"github.com/sirupsen/logrus"
)

const (
	writeQueueSize = 64
	writeTimeout   = 5 * time.Second
)

// Store is everything the manager persists to.
type Store interface {
	ports.KeyValueStore
	ports.HistoryRecorder
	ports.TableStore
}

// Publisher receives a fresh view after every committed change, short table
// announcements, and the round history each time a round is recorded.
type Publisher interface {
	BroadcastState(v model.TableView)
	BroadcastInfo(text string)
	BroadcastStats(stats []model.PlayerStat)
}

type Options struct {
	Rules      model.Rules
	PlayerName string
	Seed       int64
	BotDelay   time.Duration
	Store      Store
	Wallet     ports.FundsTransfer
	Notifier   ports.Notifier
	Publisher  Publisher
	Log        logrus.FieldLogger
}

// Manager owns the only GameState of the process. Every mutation goes through
// its mutex, one intent at a time; callers only ever see copies.
type Manager struct {
	mu      sync.Mutex
	state   model.GameState
	profile model.Profile
	rng     *rand.Rand
	bots    map[int]bots.Bot
	name    string

	walletMu   sync.Mutex
	botsActive atomic.Bool

	store    Store
	wallet   ports.FundsTransfer
	notifier ports.Notifier
	pub      Publisher
	log      logrus.FieldLogger
	botDelay time.Duration

	writes  chan writeJob
	writeWG sync.WaitGroup
	closed  bool
}

type writeJob struct {
	name string
	run  func(ctx context.Context) error
}

func NewManager(opts Options) *Manager {
	log := opts.Log
	if log == nil {
		log = logrus.New()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	m := &Manager{
		state:    NewGame(opts.Rules),
		profile:  DefaultProfile(),
		rng:      rand.New(rand.NewSource(seed)),
		bots:     make(map[int]bots.Bot),
		name:     opts.PlayerName,
		store:    opts.Store,
		wallet:   opts.Wallet,
		notifier: opts.Notifier,
		pub:      opts.Publisher,
		log:      log,
		botDelay: opts.BotDelay,
		writes:   make(chan writeJob, writeQueueSize),
	}
	for seat := 1; seat < opts.Rules.Players; seat++ {
		m.bots[seat] = bots.NewSimple(seed + int64(seat))
	}

	m.writeWG.Add(1)
	go m.writeLoop()
	return m
}

// Restore loads the persisted profile and, when one was saved mid-game, the
// last table. Failures are logged and the defaults kept.
func (m *Manager) Restore(ctx context.Context) {
	var kv ports.KeyValueStore
	if m.store != nil {
		kv = m.store
	}
	profile := LoadProfile(ctx, kv, m.log)
	if profile.WalletAddress != "" && m.wallet != nil {
		if err := m.wallet.Connect(ctx, profile.WalletAddress); err != nil {
			m.log.WithError(err).Warn("saved wallet did not reconnect")
			profile.WalletAddress = ""
		}
	}

	m.mu.Lock()
	m.profile = profile
	m.mu.Unlock()

	if m.store == nil {
		return
	}
	saved, ok, err := m.store.LoadTable(ctx)
	if err != nil {
		m.log.WithError(err).Warn("could not load saved table")
		return
	}
	if !ok || saved.Phase == model.PhaseMenu || len(saved.Players) != saved.Rules.Players {
		return
	}

	m.mu.Lock()
	m.state = saved
	m.mu.Unlock()
	m.log.WithFields(logrus.Fields{
		"phase": saved.Phase,
		"round": saved.Round,
	}).Info("resumed saved table")
}

// Close flushes pending writes. The manager must not be used afterwards.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.writes)
	m.mu.Unlock()
	m.writeWG.Wait()
}

func (m *Manager) Snapshot() model.GameState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

func (m *Manager) Profile() model.Profile {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.profile
}

// View returns what the human seat is allowed to see.
func (m *Manager) View() model.TableView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.viewLocked()
}

func (m *Manager) Stats(ctx context.Context) ([]model.PlayerStat, error) {
	if m.store == nil {
		return []model.PlayerStat{}, nil
	}
	return m.store.PlayerStats(ctx)
}

// --- human intents ---

func (m *Manager) Start() error {
	return m.intent("start", func(g *model.GameState) error {
		return StartGame(g, m.name, m.profile.Balance, m.rng)
	})
}

func (m *Manager) PlaceBet(amount int64) error {
	return m.intent("bet", func(g *model.GameState) error {
		return ApplyBet(g, model.HumanSeat, amount)
	})
}

func (m *Manager) Declare(rule string) error {
	return m.intent("declare", func(g *model.GameState) error {
		return ApplyMove(g, model.HumanSeat, model.Move{Kind: model.MoveDeclare, Rule: rule})
	})
}

func (m *Manager) Fold() error {
	return m.intent("fold", func(g *model.GameState) error {
		return ApplyMove(g, model.HumanSeat, model.Move{Kind: model.MoveFold})
	})
}

func (m *Manager) Advance() error {
	return m.intent("advance", func(g *model.GameState) error {
		return ApplyAdvance(g, model.HumanSeat)
	})
}

func (m *Manager) PlayCard(index int) error {
	return m.intent("play_card", func(g *model.GameState) error {
		return ApplyPlay(g, model.HumanSeat, index)
	})
}

func (m *Manager) Replay() error {
	return m.intent("replay", func(g *model.GameState) error {
		return Replay(g, m.rng)
	})
}

// Reset abandons the table from any phase. The persisted balance only moves
// at settlement, so an abandoned round costs the human nothing.
func (m *Manager) Reset() error {
	return m.intent("reset", func(g *model.GameState) error {
		Reset(g)
		return nil
	})
}

// --- bots ---

// StepBot applies one bot move. It reports false when no bot is due.
func (m *Manager) StepBot() (bool, error) {
	err := m.update(func(g *model.GameState) error {
		seat, ok := ActingSeat(g)
		if !ok || !g.Players[seat].IsBot {
			return ErrNotBotTurn
		}
		bot, ok := m.bots[seat]
		if !ok {
			return fmt.Errorf("no strategy for seat %d: %w", seat, ErrUnknownSeat)
		}
		seat, move, err := ComputeBotAction(g, bot)
		if err != nil {
			return err
		}
		if err := ApplyMove(g, seat, move); err != nil {
			return fmt.Errorf("bot %d: %w", seat, err)
		}
		return nil
	})
	if errors.Is(err, ErrNotBotTurn) {
		return false, nil
	}
	if err != nil {
		m.log.WithError(err).Error("bot move rejected")
		return false, err
	}
	return true, nil
}

// RunBots plays bot turns until the human is due or the round ends, pausing
// BotDelay before each move. Only one runner is active at a time.
func (m *Manager) RunBots(ctx context.Context) error {
	for {
		if !m.botsActive.CompareAndSwap(false, true) {
			return nil
		}
		err := m.runBots(ctx)
		m.botsActive.Store(false)
		// a move may have made a bot due after the runner decided to stop
		if err != nil || !m.botDue() {
			return err
		}
	}
}

func (m *Manager) runBots(ctx context.Context) error {
	for m.botDue() {
		if m.botDelay > 0 {
			t := time.NewTimer(m.botDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		acted, err := m.StepBot()
		if err != nil || !acted {
			return err
		}
	}
	return nil
}

func (m *Manager) botDue() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return IsBotTurn(&m.state)
}

// --- profile ---

func (m *Manager) SetSound(enabled bool) {
	m.mu.Lock()
	m.profile.SoundEnabled = enabled
	m.enqueueSet(KeySoundEnabled, fmt.Sprint(enabled))
	view := m.viewLocked()
	m.mu.Unlock()
	m.publish(view)
}

func (m *Manager) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume %v out of range [0, 1]", v)
	}
	m.mu.Lock()
	m.profile.Volume = v
	m.enqueueSet(KeyVolume, formatVolume(v))
	view := m.viewLocked()
	m.mu.Unlock()
	m.publish(view)
	return nil
}

// --- wallet ---

func (m *Manager) ConnectWallet(ctx context.Context, address string) error {
	m.walletMu.Lock()
	defer m.walletMu.Unlock()

	if err := m.wallet.Connect(ctx, address); err != nil {
		m.notify(ports.EventError)
		return fmt.Errorf("%w: %w", ErrExternalService, err)
	}

	m.mu.Lock()
	m.profile.WalletAddress = address
	m.enqueueSet(KeyWalletAddress, address)
	view := m.viewLocked()
	m.mu.Unlock()

	m.notify(ports.EventSuccess)
	m.publish(view)
	return nil
}

func (m *Manager) Deposit(ctx context.Context, amount int64) error {
	return m.transfer(ctx, "deposit", amount, m.wallet.Deposit)
}

func (m *Manager) Withdraw(ctx context.Context, amount int64) error {
	return m.transfer(ctx, "withdraw", amount, m.wallet.Withdraw)
}

// transfer validates and calls the service without holding the state lock.
// A withdrawal reserves its amount before the call and gets it back if the
// call fails; a deposit is credited only once the service confirmed.
func (m *Manager) transfer(ctx context.Context, kind string, amount int64, call func(context.Context, int64) error) error {
	m.walletMu.Lock()
	defer m.walletMu.Unlock()

	withdraw := kind == "withdraw"

	m.mu.Lock()
	err := m.checkTransferLocked(withdraw, amount)
	if err == nil && withdraw {
		m.adjustBalanceLocked(-amount)
	}
	view := m.viewLocked()
	m.mu.Unlock()
	if err != nil {
		m.notify(ports.EventError)
		return err
	}
	if withdraw {
		m.publish(view)
	}

	entry := m.log.WithFields(logrus.Fields{"kind": kind, "amount": amount})
	if err := call(ctx, amount); err != nil {
		entry.WithError(err).Warn("transfer failed")
		if withdraw {
			m.mu.Lock()
			m.adjustBalanceLocked(amount)
			view = m.viewLocked()
			m.mu.Unlock()
			m.publish(view)
		}
		m.notify(ports.EventError)
		return fmt.Errorf("%w: %w", ErrExternalService, err)
	}

	if !withdraw {
		m.mu.Lock()
		m.adjustBalanceLocked(amount)
		view = m.viewLocked()
		m.mu.Unlock()
	}

	entry.Info("ledger updated")
	m.notify(ports.EventChip)
	m.notify(ports.EventSuccess)
	m.publish(view)
	return nil
}

func (m *Manager) checkTransferLocked(withdraw bool, amount int64) error {
	switch {
	case amount <= 0:
		return fmt.Errorf("%w: amount %d", ErrInsufficientFunds, amount)
	case withdraw && amount > m.availableLocked():
		return fmt.Errorf("%w: %d exceeds balance %d", ErrInsufficientFunds, amount, m.availableLocked())
	case m.profile.WalletAddress == "":
		return ErrWalletNotConnected
	}
	return nil
}

// adjustBalanceLocked moves the profile and, while seated, the seat balance
// by delta and persists both.
func (m *Manager) adjustBalanceLocked(delta int64) {
	m.profile.Balance += delta
	if len(m.state.Players) > model.HumanSeat {
		m.state.Players[model.HumanSeat].Balance += delta
		m.enqueueTable()
	}
	m.enqueueSet(KeyBalance, formatBalance(m.profile.Balance))
}

// availableLocked is the human balance the wallet may draw on: the seat
// balance while seated, the profile otherwise.
func (m *Manager) availableLocked() int64 {
	if len(m.state.Players) > model.HumanSeat {
		return m.state.Players[model.HumanSeat].Balance
	}
	return m.profile.Balance
}

// --- commit path ---

// intent runs a human action and reports rejections with an error cue.
func (m *Manager) intent(name string, fn func(g *model.GameState) error) error {
	err := m.update(fn)
	if err != nil {
		m.log.WithError(err).WithField("intent", name).Info("intent rejected")
		m.notify(ports.EventError)
	}
	return err
}

// update applies fn to the state under the lock. On error the reducer has
// left the state untouched and nothing is published.
func (m *Manager) update(fn func(g *model.GameState) error) error {
	m.mu.Lock()
	before := m.state.Clone()
	if err := fn(&m.state); err != nil {
		m.mu.Unlock()
		return err
	}
	cues := cuesFor(&before, &m.state)
	infos := announcementsFor(&before, &m.state)
	m.afterCommitLocked(&before)
	view := m.viewLocked()
	m.mu.Unlock()

	for _, c := range cues {
		m.notify(c)
	}
	m.publish(view)
	if m.pub != nil {
		for _, text := range infos {
			m.pub.BroadcastInfo(text)
		}
	}
	return nil
}

func (m *Manager) afterCommitLocked(before *model.GameState) {
	g := &m.state
	if g.Phase == model.PhaseResult && before.Phase != model.PhaseResult {
		m.profile.Balance = g.Players[model.HumanSeat].Balance
		m.enqueueSet(KeyBalance, formatBalance(m.profile.Balance))
		m.enqueueRecord(roundRecord(g))
		m.log.WithFields(logrus.Fields{
			"round":  g.Round,
			"winner": g.Result.WinnerName,
			"pot":    g.Result.Pot,
		}).Info("round settled")
	}
	if g.Phase == model.PhaseMenu {
		m.enqueue("delete table", func(ctx context.Context) error {
			return m.store.DeleteTable(ctx)
		})
		return
	}
	m.enqueueTable()
}

func roundRecord(g *model.GameState) model.RoundRecord {
	rec := model.RoundRecord{
		Round:    g.Round,
		WinnerID: g.Result.WinnerID,
		Pot:      g.Result.Pot,
		Players:  make([]model.Player, len(g.Players)),
	}
	if g.Result.WinnerID >= 0 {
		rec.WinnerName = g.Result.WinnerName
	}
	for i, p := range g.Players {
		p.Hand = nil
		rec.Players[i] = p
	}
	return rec
}

// cuesFor derives the sound cues of one committed transition.
func cuesFor(before, after *model.GameState) []ports.EventKind {
	var cues []ports.EventKind
	if after.Phase == model.PhaseBetting && before.Phase != model.PhaseBetting {
		cues = append(cues, ports.EventShuffle, ports.EventDeal)
	}
	if after.Pot > before.Pot {
		cues = append(cues, ports.EventBetPlaced, ports.EventChip)
	}
	tricksBefore, tricksAfter := 0, 0
	for _, p := range before.Players {
		tricksBefore += p.Tricks
	}
	for _, p := range after.Players {
		tricksAfter += p.Tricks
	}
	if len(after.Table) > len(before.Table) || tricksAfter > tricksBefore {
		cues = append(cues, ports.EventCardPlaced)
	}
	if tricksAfter > tricksBefore {
		cues = append(cues, ports.EventTrickWon)
	}
	if after.Phase == model.PhaseResult && before.Phase != model.PhaseResult {
		cues = append(cues, ports.EventRoundWon)
		if after.Result != nil && after.Result.WinnerID == model.HumanSeat {
			cues = append(cues, ports.EventSuccess)
		}
	}
	return cues
}

// announcementsFor returns the info lines of one committed transition: the
// trump when a round is dealt and the outcome when it settles.
func announcementsFor(before, after *model.GameState) []string {
	var out []string
	if after.Phase == model.PhaseBetting && before.Phase != model.PhaseBetting {
		out = append(out, fmt.Sprintf("Round %d, trump %s", after.Round, after.Trump.Symbol()))
	}
	if after.Phase == model.PhaseResult && before.Phase != model.PhaseResult && after.Result != nil {
		if after.Result.WinnerID >= 0 {
			out = append(out, fmt.Sprintf("Round %d won by %s, pot %d", after.Round, after.Result.WinnerName, after.Result.Pot))
		} else {
			out = append(out, fmt.Sprintf("Round %d ended without a winner", after.Round))
		}
	}
	return out
}

func (m *Manager) viewLocked() model.TableView {
	g := &m.state
	v := model.TableView{
		Phase:         g.Phase,
		Players:       make([]model.PublicPlayer, len(g.Players)),
		CurrentPlayer: g.CurrentPlayer,
		Round:         g.Round,
		Trick:         g.Trick,
		Trump:         g.Trump,
		Table:         append([]model.TableCard{}, g.Table...),
		Pot:           g.Pot,
		MinBet:        g.Rules.MinBet,
		MaxBet:        g.Rules.MaxBet,
		Log:           append([]string{}, g.Log...),
		MyHand:        []model.Card{},
		Profile:       m.profile,
	}
	if g.TrumpCard != nil {
		c := *g.TrumpCard
		v.TrumpCard = &c
	}
	if g.LeadSuit != nil {
		s := *g.LeadSuit
		v.LeadSuit = &s
	}
	if g.Result != nil {
		r := *g.Result
		r.Totals = append([]int(nil), g.Result.Totals...)
		r.Penalties = append([]int64(nil), g.Result.Penalties...)
		v.Result = &r
	}
	for i, p := range g.Players {
		v.Players[i] = model.PublicPlayer{
			ID:       p.ID,
			Name:     p.Name,
			IsBot:    p.IsBot,
			Balance:  p.Balance,
			Bet:      p.Bet,
			HandSize: len(p.Hand),
			Tricks:   p.Tricks,
			Points:   p.Points,
			Bonus:    p.Bonus,
			Folded:   p.Folded,
		}
		if i == model.HumanSeat {
			v.MyHand = append(v.MyHand, p.Hand...)
		}
	}
	return v
}

func (m *Manager) notify(kind ports.EventKind) {
	if m.notifier != nil {
		m.notifier.Notify(kind)
	}
}

func (m *Manager) publish(v model.TableView) {
	if m.pub != nil {
		m.pub.BroadcastState(v)
	}
}

// --- background writes ---

func (m *Manager) enqueueTable() {
	snapshot := m.state.Clone()
	m.enqueue("save table", func(ctx context.Context) error {
		return m.store.SaveTable(ctx, snapshot)
	})
}

func (m *Manager) enqueueSet(key, value string) {
	m.enqueue("set "+key, func(ctx context.Context) error {
		return m.store.Set(ctx, key, value)
	})
}

// enqueueRecord writes the round and then pushes the refreshed stats.
func (m *Manager) enqueueRecord(rec model.RoundRecord) {
	m.enqueue("record round", func(ctx context.Context) error {
		if err := m.store.RecordRound(ctx, rec); err != nil {
			return err
		}
		if m.pub == nil {
			return nil
		}
		stats, err := m.store.PlayerStats(ctx)
		if err != nil {
			return fmt.Errorf("stats after round %d: %w", rec.Round, err)
		}
		m.pub.BroadcastStats(stats)
		return nil
	})
}

// enqueue hands a write to the writer goroutine. Callers hold m.mu. A full
// queue drops the write rather than stall the table.
func (m *Manager) enqueue(name string, run func(ctx context.Context) error) {
	if m.store == nil || m.closed {
		return
	}
	select {
	case m.writes <- writeJob{name: name, run: run}:
	default:
		m.log.WithField("write", name).Warn("write queue full, dropping")
	}
}

func (m *Manager) writeLoop() {
	defer m.writeWG.Done()
	for job := range m.writes {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := job.run(ctx); err != nil {
			m.log.WithError(err).WithField("write", job.name).Warn("persistence write failed")
		}
		cancel()
	}
}
