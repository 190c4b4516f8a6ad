// Package comm defines the wire envelope and typed payloads exchanged
// over the websocket transport (spec §6), adapted from the teacher's
// internal/comm package.
package comm

import "encoding/json"

// WSMessage is the envelope every client<->server frame uses:
// {"event": "...", "payload": {...}}. SocketID is never serialised and
// nothing in this module sets it; a send to one connection passes the
// socket id to bus.Hub.SendToSocket instead.
type WSMessage struct {
	Event    string          `json:"event"`
	Payload  json.RawMessage `json:"payload"`
	SocketID string          `json:"-"`
}

// Server -> client event names (spec §6 table).
const (
	EventFullSyncState     = "FULL_SYNC_STATE"
	EventGameStateUpdate   = "GAME_STATE_UPDATE"
	EventPriceUpdate       = "PRICE_UPDATE"
	EventNewsUpdate        = "NEWS_UPDATE"
	EventLeaderboardUpdate = "LEADERBOARD_UPDATE"
	EventContractSettled   = "CONTRACT_SETTLED"
	EventAssetsUpdate      = "ASSETS_UPDATE"
	EventTradeSuccess      = "TRADE_SUCCESS"
	EventTradeError        = "TRADE_ERROR"
	EventMiniGameSync      = "MINIGAME_SYNC"
	EventMiniGameEvent     = "MINIGAME_EVENT"
	EventMiniGameCountdown = "MINIGAME_COUNTDOWN"
	EventClearNews         = "CLEAR_NEWS"
	EventForceLogout       = "FORCE_LOGOUT"
	EventLoanConfigUpdate  = "LOAN_CONFIG_UPDATE"
	EventLoanSharkVisit    = "LOAN_SHARK_VISIT_UPDATE"
	EventUserDataUpdated   = "USER_DATA_UPDATED"
)

// Client -> server ingress event names (spec §6 table).
const (
	InEventBuyStock            = "BUY_STOCK"
	InEventSellStock           = "SELL_STOCK"
	InEventBuyContract         = "BUY_CONTRACT"
	InEventCancelContract      = "CANCEL_CONTRACT"
	InEventBorrowMoney         = "BORROW_MONEY"
	InEventRepayMoney          = "REPAY_MONEY"
	InEventVisitLoanShark      = "VISIT_LOAN_SHARK"
	InEventMiniGameAction      = "MINIGAME_ACTION"
	InEventAdminMiniGameAction = "ADMIN_MINIGAME_ACTION"
)

type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func MustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		// All payload types here are local structs with no cyclic or
		// unsupported fields; a marshal failure is a programming error.
		panic(err)
	}
	return data
}

func NewMessage(event string, payload interface{}) *WSMessage {
	return &WSMessage{Event: event, Payload: MustMarshal(payload)}
}
