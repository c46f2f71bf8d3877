package ports

import (
	"context"

	"rams/internal/model"
)

// KeyValueStore persists small string values such as the balance and settings.
type KeyValueStore interface {
	// Get returns the stored value and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
}

// HistoryRecorder stores finished rounds for the stats view.
type HistoryRecorder interface {
	RecordRound(ctx context.Context, rec model.RoundRecord) error
	PlayerStats(ctx context.Context) ([]model.PlayerStat, error)
}

// TableStore keeps the last committed table so a restart can resume it.
type TableStore interface {
	SaveTable(ctx context.Context, g model.GameState) error
	LoadTable(ctx context.Context) (model.GameState, bool, error)
	DeleteTable(ctx context.Context) error
}

// EventKind names an audio/haptic cue.
type EventKind string

const (
	EventShuffle    EventKind = "shuffle"
	EventDeal       EventKind = "deal"
	EventCardPlaced EventKind = "cardPlaced"
	EventTrickWon   EventKind = "trickWon"
	EventBetPlaced  EventKind = "betPlaced"
	EventChip       EventKind = "chip"
	EventRoundWon   EventKind = "roundWon"
	EventError      EventKind = "error"
	EventSuccess    EventKind = "success"
)

// Notifier receives fire-and-forget cues. Implementations must not block.
type Notifier interface {
	Notify(kind EventKind)
}

// FundsTransfer moves money between the table ledger and an external wallet.
// A nil error means the transfer happened; any error means it did not.
type FundsTransfer interface {
	Connect(ctx context.Context, address string) error
	Deposit(ctx context.Context, amount int64) error
	Withdraw(ctx context.Context, amount int64) error
}
