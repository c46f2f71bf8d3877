package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"

	"rams/internal/model"
	"rams/internal/ports"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	kv      map[string]string
	getErr  error
	rounds  []model.RoundRecord
	table   *model.GameState
	deletes int
}

func newMemStore() *memStore {
	return &memStore{kv: make(map[string]string)}
}

func (s *memStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.kv[key]
	return v, ok, nil
}

func (s *memStore) Set(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = value
	return nil
}

func (s *memStore) RecordRound(ctx context.Context, rec model.RoundRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds = append(s.rounds, rec)
	return nil
}

func (s *memStore) PlayerStats(ctx context.Context) ([]model.PlayerStat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return []model.PlayerStat{{ID: model.HumanSeat, Name: "Tester", TotalRounds: len(s.rounds)}}, nil
}

func (s *memStore) SaveTable(ctx context.Context, g model.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = &g
	return nil
}

func (s *memStore) LoadTable(ctx context.Context) (model.GameState, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.table == nil {
		return model.GameState{}, false, nil
	}
	return s.table.Clone(), true, nil
}

func (s *memStore) DeleteTable(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = nil
	s.deletes++
	return nil
}

type fakeWallet struct {
	mu    sync.Mutex
	err   error
	calls []string

	// when set, Withdraw signals entered and waits for release
	entered chan struct{}
	release chan struct{}
}

func (w *fakeWallet) record(call string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.calls = append(w.calls, call)
	return w.err
}

func (w *fakeWallet) Connect(ctx context.Context, address string) error {
	return w.record("connect")
}

func (w *fakeWallet) Deposit(ctx context.Context, amount int64) error {
	return w.record("deposit")
}

func (w *fakeWallet) Withdraw(ctx context.Context, amount int64) error {
	if w.release != nil {
		w.entered <- struct{}{}
		<-w.release
	}
	return w.record("withdraw")
}

func blockingWallet() *fakeWallet {
	return &fakeWallet{entered: make(chan struct{}), release: make(chan struct{})}
}

type recorder struct {
	mu     sync.Mutex
	events []ports.EventKind
	views  []model.TableView
	infos  []string
	stats  [][]model.PlayerStat
}

func (r *recorder) Notify(kind ports.EventKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, kind)
}

func (r *recorder) BroadcastState(v model.TableView) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
}

func (r *recorder) BroadcastInfo(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, text)
}

func (r *recorder) BroadcastStats(stats []model.PlayerStat) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = append(r.stats, stats)
}

func (r *recorder) Infos() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.infos...)
}

func (r *recorder) StatsPushes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stats)
}

func (r *recorder) Events() []ports.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.EventKind(nil), r.events...)
}

func (r *recorder) ViewCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newTestManager(t *testing.T, store *memStore, w *fakeWallet, rec *recorder) *Manager {
	t.Helper()
	m := NewManager(Options{
		Rules:      model.ClassicPreset(),
		PlayerName: "Tester",
		Seed:       42,
		Store:      store,
		Wallet:     w,
		Notifier:   rec,
		Publisher:  rec,
		Log:        quietLogger(),
	})
	m.Restore(context.Background())
	t.Cleanup(m.Close)
	return m
}

// playRound drives the human seat with simple choices until the round settles.
func playRound(t *testing.T, m *Manager) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, m.RunBots(ctx))
	for i := 0; m.Snapshot().Phase != model.PhaseResult; i++ {
		require.Less(t, i, 50, "round must finish")
		g := m.Snapshot()
		switch g.Phase {
		case model.PhaseBetting:
			require.NoError(t, m.PlaceBet(10))
		case model.PhaseDeclaring:
			require.NoError(t, m.Advance())
		case model.PhasePlaying:
			legal := LegalIndexes(g.Players[model.HumanSeat].Hand, g.LeadSuit)
			require.NotEmpty(t, legal)
			require.NoError(t, m.PlayCard(legal[0]))
		}
		require.NoError(t, m.RunBots(ctx))
	}
}

func TestManagerPlaysRound(t *testing.T) {
	store := newMemStore()
	rec := &recorder{}
	m := newTestManager(t, store, &fakeWallet{}, rec)

	require.NoError(t, m.Start())
	g := m.Snapshot()
	assert.Equal(t, "Tester", g.Players[0].Name)
	assert.Equal(t, int64(1000), g.Players[0].Balance)

	playRound(t, m)
	g = m.Snapshot()
	require.NotNil(t, g.Result)
	assert.Equal(t, g.Players[0].Balance, m.Profile().Balance)

	m.Close()
	assert.Equal(t, formatBalance(g.Players[0].Balance), store.kv[KeyBalance])
	require.Len(t, store.rounds, 1)
	assert.Equal(t, 1, store.rounds[0].Round)
	assert.Equal(t, g.Result.WinnerName, store.rounds[0].WinnerName)
	assert.Equal(t, g.Result.WinnerID, store.rounds[0].WinnerID)
	require.NotNil(t, store.table)
	assert.Equal(t, model.PhaseResult, store.table.Phase)

	events := rec.Events()
	for _, want := range []ports.EventKind{
		ports.EventShuffle, ports.EventDeal, ports.EventBetPlaced, ports.EventChip,
		ports.EventCardPlaced, ports.EventTrickWon, ports.EventRoundWon,
	} {
		assert.Contains(t, events, want)
	}
	assert.NotContains(t, events, ports.EventError)

	infos := rec.Infos()
	require.Len(t, infos, 2)
	assert.Equal(t, "Round 1, trump "+g.Trump.Symbol(), infos[0])
	if g.Result.WinnerID >= 0 {
		assert.Equal(t, fmt.Sprintf("Round 1 won by %s, pot %d", g.Result.WinnerName, g.Result.Pot), infos[1])
	} else {
		assert.Equal(t, "Round 1 ended without a winner", infos[1])
	}

	require.Equal(t, 1, rec.StatsPushes(), "stats follow the history write")
	assert.Equal(t, 1, rec.stats[0][0].TotalRounds)
}

func TestManagerRejectedIntent(t *testing.T) {
	rec := &recorder{}
	m := newTestManager(t, newMemStore(), &fakeWallet{}, rec)
	require.NoError(t, m.Start())

	views := rec.ViewCount()
	before := m.Snapshot()
	assert.ErrorIs(t, m.PlayCard(0), ErrWrongPhase)
	assert.ErrorIs(t, m.PlaceBet(1), ErrInvalidBet)
	assert.ErrorIs(t, m.Replay(), ErrWrongPhase)

	assert.Equal(t, before, m.Snapshot())
	assert.Equal(t, views, rec.ViewCount(), "rejections publish nothing")
	assert.Contains(t, rec.Events(), ports.EventError)
}

func TestManagerReplayAndReset(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, &fakeWallet{}, &recorder{})
	require.NoError(t, m.Start())
	playRound(t, m)

	require.NoError(t, m.Replay())
	g := m.Snapshot()
	assert.Equal(t, 2, g.Round)
	assert.Equal(t, model.PhaseBetting, g.Phase)

	require.NoError(t, m.Reset())
	require.NoError(t, m.Reset())
	g = m.Snapshot()
	assert.Equal(t, model.PhaseMenu, g.Phase)
	assert.Equal(t, 1, g.Round)
	assert.Empty(t, g.Players)

	m.Close()
	assert.Nil(t, store.table)
	assert.Equal(t, 2, store.deletes)
}

func TestManagerRestoreProfile(t *testing.T) {
	store := newMemStore()
	store.kv[KeyBalance] = "250"
	store.kv[KeySoundEnabled] = "false"
	store.kv[KeyVolume] = "loud"
	store.kv[KeyWalletAddress] = "0:" + hex64

	m := newTestManager(t, store, &fakeWallet{}, &recorder{})
	p := m.Profile()
	assert.Equal(t, int64(250), p.Balance)
	assert.False(t, p.SoundEnabled)
	assert.Equal(t, 0.7, p.Volume)
	assert.Equal(t, "0:"+hex64, p.WalletAddress)

	require.NoError(t, m.Start())
	assert.Equal(t, int64(250), m.Snapshot().Players[0].Balance)
}

func TestManagerRestoreFallsBackToDefaults(t *testing.T) {
	store := newMemStore()
	store.kv[KeyBalance] = "-3"
	m := newTestManager(t, store, &fakeWallet{}, &recorder{})
	assert.Equal(t, DefaultProfile(), m.Profile())

	store = newMemStore()
	store.getErr = errors.New("disk gone")
	m = newTestManager(t, store, &fakeWallet{}, &recorder{})
	assert.Equal(t, DefaultProfile(), m.Profile())
}

func TestManagerResumesSavedTable(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, &fakeWallet{}, &recorder{})
	require.NoError(t, m.Start())
	require.NoError(t, m.PlaceBet(20))
	want := m.Snapshot()
	m.Close()

	resumed := newTestManager(t, store, &fakeWallet{}, &recorder{})
	assert.Equal(t, want, resumed.Snapshot())
}

const hex64 = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestManagerWallet(t *testing.T) {
	store := newMemStore()
	w := &fakeWallet{}
	rec := &recorder{}
	m := newTestManager(t, store, w, rec)
	ctx := context.Background()

	assert.ErrorIs(t, m.Deposit(ctx, 100), ErrWalletNotConnected)
	assert.Empty(t, w.calls, "service is not called before validation passes")

	w.err = errors.New("rejected")
	assert.ErrorIs(t, m.ConnectWallet(ctx, "nope"), ErrExternalService)
	assert.Empty(t, m.Profile().WalletAddress)

	w.err = nil
	require.NoError(t, m.ConnectWallet(ctx, "0:"+hex64))
	assert.Equal(t, "0:"+hex64, m.Profile().WalletAddress)

	calls := len(w.calls)
	assert.ErrorIs(t, m.Deposit(ctx, 0), ErrInsufficientFunds)
	assert.ErrorIs(t, m.Withdraw(ctx, -5), ErrInsufficientFunds)
	assert.ErrorIs(t, m.Withdraw(ctx, 5000), ErrInsufficientFunds)
	assert.Len(t, w.calls, calls)

	require.NoError(t, m.Deposit(ctx, 100))
	assert.Equal(t, int64(1100), m.Profile().Balance)
	require.NoError(t, m.Withdraw(ctx, 300))
	assert.Equal(t, int64(800), m.Profile().Balance)

	w.err = errors.New("chain unavailable")
	assert.ErrorIs(t, m.Deposit(ctx, 50), ErrExternalService)
	assert.Equal(t, int64(800), m.Profile().Balance, "failed transfer leaves the ledger alone")

	m.Close()
	assert.Equal(t, "800", store.kv[KeyBalance])
	assert.Equal(t, "0:"+hex64, store.kv[KeyWalletAddress])
	assert.Contains(t, rec.Events(), ports.EventSuccess)
}

func TestManagerDepositWhileSeated(t *testing.T) {
	m := newTestManager(t, newMemStore(), &fakeWallet{}, &recorder{})
	ctx := context.Background()
	require.NoError(t, m.ConnectWallet(ctx, "0:"+hex64))
	require.NoError(t, m.Start())
	require.NoError(t, m.PlaceBet(100))

	assert.ErrorIs(t, m.Withdraw(ctx, 950), ErrInsufficientFunds)
	require.NoError(t, m.Deposit(ctx, 50))
	assert.Equal(t, int64(950), m.Snapshot().Players[0].Balance)
	assert.Equal(t, int64(1050), m.Profile().Balance)
}

func TestManagerWithdrawReservesFunds(t *testing.T) {
	store := newMemStore()
	w := blockingWallet()
	m := newTestManager(t, store, w, &recorder{})
	ctx := context.Background()
	require.NoError(t, m.ConnectWallet(ctx, "0:"+hex64))
	require.NoError(t, m.Start())

	done := make(chan error, 1)
	go func() { done <- m.Withdraw(ctx, 1000) }()
	<-w.entered

	assert.Equal(t, int64(0), m.Snapshot().Players[0].Balance)
	assert.Equal(t, int64(0), m.Profile().Balance)
	assert.ErrorIs(t, m.PlaceBet(500), ErrInvalidBet, "reserved funds cannot be bet")

	close(w.release)
	require.NoError(t, <-done)
	g := m.Snapshot()
	assert.Equal(t, int64(0), g.Players[0].Balance)
	assert.Equal(t, int64(0), g.Pot)
	assert.Equal(t, int64(0), m.Profile().Balance)

	m.Close()
	assert.Equal(t, "0", store.kv[KeyBalance])
}

func TestManagerFailedWithdrawRefunds(t *testing.T) {
	store := newMemStore()
	w := blockingWallet()
	m := newTestManager(t, store, w, &recorder{})
	ctx := context.Background()
	require.NoError(t, m.ConnectWallet(ctx, "0:"+hex64))
	require.NoError(t, m.Start())
	w.err = errors.New("chain unavailable")

	done := make(chan error, 1)
	go func() { done <- m.Withdraw(ctx, 300) }()
	<-w.entered
	assert.Equal(t, int64(700), m.Snapshot().Players[0].Balance)
	require.NoError(t, m.PlaceBet(100))

	close(w.release)
	assert.ErrorIs(t, <-done, ErrExternalService)
	assert.Equal(t, int64(900), m.Snapshot().Players[0].Balance)
	assert.Equal(t, int64(1000), m.Profile().Balance)

	m.Close()
	assert.Equal(t, "1000", store.kv[KeyBalance])
}

func TestManagerSettings(t *testing.T) {
	store := newMemStore()
	m := newTestManager(t, store, &fakeWallet{}, &recorder{})

	m.SetSound(false)
	require.NoError(t, m.SetVolume(0.25))
	assert.Error(t, m.SetVolume(1.5))

	p := m.Profile()
	assert.False(t, p.SoundEnabled)
	assert.Equal(t, 0.25, p.Volume)

	m.Close()
	assert.Equal(t, "false", store.kv[KeySoundEnabled])
	assert.Equal(t, "0.25", store.kv[KeyVolume])
}

func TestManagerView(t *testing.T) {
	m := newTestManager(t, newMemStore(), &fakeWallet{}, &recorder{})
	require.NoError(t, m.Start())

	v := m.View()
	g := m.Snapshot()
	assert.Equal(t, model.PhaseBetting, v.Phase)
	assert.Equal(t, g.Players[0].Hand, v.MyHand)
	require.Len(t, v.Players, 4)
	for i, p := range v.Players {
		assert.Equal(t, len(g.Players[i].Hand), p.HandSize)
	}
	assert.Equal(t, g.Rules.MinBet, v.MinBet)
}

func TestStepBotWhenHumanDue(t *testing.T) {
	m := newTestManager(t, newMemStore(), &fakeWallet{}, &recorder{})
	acted, err := m.StepBot()
	assert.NoError(t, err)
	assert.False(t, acted)
}
