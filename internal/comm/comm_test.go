package comm

import (
	"encoding/json"
	"testing"
)

func TestNewMessageMarshalsPayload(t *testing.T) {
	msg := NewMessage(EventTradeError, TradeErrorPayload{Kind: "VALIDATION", Message: "bad quantity"})
	if msg.Event != EventTradeError {
		t.Fatalf("expected event %s, got %s", EventTradeError, msg.Event)
	}

	var got TradeErrorPayload
	if err := json.Unmarshal(msg.Payload, &got); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if got.Kind != "VALIDATION" || got.Message != "bad quantity" {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestNewMessageWithNilPayloadMarshalsNull(t *testing.T) {
	msg := NewMessage(EventForceLogout, nil)
	if string(msg.Payload) != "null" {
		t.Fatalf("expected null payload, got %s", msg.Payload)
	}
}

func TestWSMessageRoundTripsThroughJSON(t *testing.T) {
	raw := []byte(`{"event":"BUY_STOCK","payload":{"quantity":5}}`)
	var msg WSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Event != InEventBuyStock {
		t.Fatalf("expected event %s, got %s", InEventBuyStock, msg.Event)
	}

	var payload struct {
		Quantity int64 `json:"quantity"`
	}
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("unexpected payload unmarshal error: %v", err)
	}
	if payload.Quantity != 5 {
		t.Fatalf("expected quantity 5, got %d", payload.Quantity)
	}
}
