package game

import "errors"

var (
	ErrWrongPhase         = errors.New("action not allowed in current phase")
	ErrUnknownSeat        = errors.New("seat not found")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrAlreadyActed       = errors.New("seat already acted in this phase")
	ErrInvalidBet         = errors.New("invalid bet")
	ErrIllegalMove        = errors.New("must follow the lead suit")
	ErrBadCardIndex       = errors.New("card index out of range")
	ErrSeatFolded         = errors.New("seat has folded")
	ErrUnknownRule        = errors.New("unknown rule extension")
	ErrRulesDisabled      = errors.New("extended rules are disabled")
	ErrNotEligible        = errors.New("hand does not qualify")
	ErrLastSeat           = errors.New("last active seat cannot fold")
	ErrGameOver           = errors.New("all rounds of the game have been played")
	ErrNotBotTurn         = errors.New("no bot is due to act")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrWalletNotConnected = errors.New("wallet not connected")
	ErrExternalService    = errors.New("funds transfer failed")
)
