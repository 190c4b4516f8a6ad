package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/avvvet/marketday/internal/apperr"
	"github.com/avvvet/marketday/internal/bus"
	"github.com/avvvet/marketday/internal/clockengine"
	"github.com/avvvet/marketday/internal/comm"
	"github.com/avvvet/marketday/internal/models"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades the connection and registers it, grounded on
// the teacher's socketsvc HandleWebSocket/handleConnection pair. Since
// this route sits outside the jwtauth middleware group (chi's
// Verifier/Authenticator only run on ordinary HTTP requests, not the
// upgrade handshake), the token is decoded by hand from the ?token=
// query parameter before the upgrade is accepted (spec §6).
func (a *App) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	claims, err := a.auth.Decode(tokenString)
	if err != nil {
		http.Error(w, "invalid or missing token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.log.WithError(err).Error("ws: upgrade failed")
		return
	}

	socketID := uuid.New().String()
	wsConn := &bus.Conn{Socket: conn, UserID: claims.UserID, Role: claims.Role}
	a.hub.Register(socketID, wsConn)
	_ = a.store.RecordConnect(context.Background(), socketID, claims.UserID, claims.Role)
	a.log.WithField("socket_id", socketID).WithField("user_id", claims.UserID).Info("ws: connected")

	go a.handleConnection(conn, socketID, claims.UserID, claims.Role)
}

func (a *App) handleConnection(conn *websocket.Conn, socketID string, userID int64, role models.Role) {
	defer func() {
		conn.Close()
		a.hub.Unregister(socketID)
		_ = a.store.RecordDisconnect(context.Background(), socketID)
		a.log.WithField("socket_id", socketID).Info("ws: disconnected")
	}()

	if err := a.sendFullSync(socketID, userID); err != nil {
		a.log.WithError(err).Error("ws: full sync failed")
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				a.log.WithError(err).WithField("socket_id", socketID).Error("ws: unexpected close")
			}
			break
		}

		var msg comm.WSMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			a.hub.SendToSocket(socketID, comm.NewMessage(comm.EventTradeError, comm.TradeErrorPayload{
				Kind: string(apperr.KindValidation), Message: "invalid message format",
			}))
			continue
		}

		if err := a.dispatchInbound(userID, role, msg); err != nil {
			a.hub.SendToSocket(socketID, comm.NewMessage(comm.EventTradeError, comm.TradeErrorPayload{
				Kind: string(apperr.KindOf(err)), Message: err.Error(),
			}))
		}
	}
}

// dispatchInbound routes one client->server frame to the trading or
// mini-game engine (spec §6 ingress table). Admin-only actions are
// rejected here before ever reaching the mini-game engine's own
// command dispatch.
func (a *App) dispatchInbound(userID int64, role models.Role, msg comm.WSMessage) error {
	ctx := context.Background()

	switch msg.Event {
	case comm.InEventBuyStock:
		var req struct {
			Quantity int64 `json:"quantity"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid payload")
		}
		u, err := a.trading.BuyStock(ctx, userID, req.Quantity)
		if err != nil {
			return err
		}
		a.pushTradeSuccess(userID, "BUY_STOCK", u)
		return nil

	case comm.InEventSellStock:
		var req struct {
			Quantity int64 `json:"quantity"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid payload")
		}
		u, err := a.trading.SellStock(ctx, userID, req.Quantity)
		if err != nil {
			return err
		}
		a.pushTradeSuccess(userID, "SELL_STOCK", u)
		return nil

	case comm.InEventBuyContract:
		var req struct {
			Type     models.ContractType `json:"type"`
			Leverage int                 `json:"leverage"`
			Quantity int64               `json:"quantity"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid payload")
		}
		order, u, err := a.trading.OpenContract(ctx, userID, req.Type, req.Leverage, req.Quantity)
		if err != nil {
			return err
		}
		a.pushTradeSuccessDetail(userID, "BUY_CONTRACT", u, order)
		return nil

	case comm.InEventCancelContract:
		refunded, u, err := a.trading.CancelContracts(ctx, userID)
		if err != nil {
			return err
		}
		a.pushTradeSuccessDetail(userID, "CANCEL_CONTRACT", u, refunded)
		return nil

	case comm.InEventBorrowMoney:
		var req struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid payload")
		}
		u, err := a.trading.Borrow(ctx, userID, req.Amount)
		if err != nil {
			return err
		}
		a.pushTradeSuccess(userID, "BORROW_MONEY", u)
		return nil

	case comm.InEventRepayMoney:
		var req struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid payload")
		}
		u, err := a.trading.Repay(ctx, userID, req.Amount)
		if err != nil {
			return err
		}
		a.pushTradeSuccess(userID, "REPAY_MONEY", u)
		return nil

	case comm.InEventVisitLoanShark:
		u, err := a.trading.VisitLoanShark(ctx, userID)
		if err != nil {
			return err
		}
		a.hub.SendToUser(userID, comm.NewMessage(comm.EventLoanSharkVisit, u))
		return nil

	case comm.InEventMiniGameAction:
		var req struct {
			Action string          `json:"action"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid payload")
		}
		return a.minigame.HandlePlayerAction(ctx, userID, req.Action, req.Data)

	case comm.InEventAdminMiniGameAction:
		if role != models.RoleAdmin {
			_ = a.store.WriteAudit(ctx, userID, "IGNORED_ADMIN_ACTION", "minigame", msg.Event, "non-admin sender")
			return apperr.New(apperr.KindPermission, "admin role required")
		}
		var req struct {
			Command string          `json:"command"`
			Data    json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return apperr.New(apperr.KindValidation, "invalid payload")
		}
		return a.minigame.HandleAdminCommand(ctx, userID, req.Command, req.Data)

	default:
		_ = a.store.WriteAudit(ctx, userID, "IGNORED_INBOUND_EVENT", "socket", msg.Event, "unknown event")
		return apperr.New(apperr.KindValidation, "unknown event")
	}
}

func (a *App) pushTradeSuccess(userID int64, action string, u *models.User) {
	a.hub.SendToUser(userID, comm.NewMessage(comm.EventTradeSuccess, comm.TradeSuccessPayload{
		Action: action, Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt,
	}))
	a.hub.SendToUser(userID, comm.NewMessage(comm.EventAssetsUpdate, comm.AssetsUpdatePayload{
		Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt, DailyBorrowed: u.DailyBorrowed,
	}))
}

func (a *App) pushTradeSuccessDetail(userID int64, action string, u *models.User, detail interface{}) {
	a.hub.SendToUser(userID, comm.NewMessage(comm.EventTradeSuccess, comm.TradeSuccessPayload{
		Action: action, Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt, Detail: detail,
	}))
	a.hub.SendToUser(userID, comm.NewMessage(comm.EventAssetsUpdate, comm.AssetsUpdatePayload{
		Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt, DailyBorrowed: u.DailyBorrowed,
	}))
}

// sendFullSync pushes the single FULL_SYNC_STATE frame a freshly
// connected socket needs to render without waiting on the next 1s tick
// (spec §4.6).
func (a *App) sendFullSync(socketID string, userID int64) error {
	ctx := context.Background()

	gs, err := a.store.GetGameStatus(ctx)
	if err != nil {
		return err
	}
	state := clockengine.Derive(gs, time.Now())
	price := state.InitialPrice
	if d := a.cache.Day(state.CurrentDay); d != nil {
		price = d.Price
	}

	history := a.cache.History(state.CurrentDay)
	entries := make([]comm.PriceHistoryEntry, 0, len(history))
	for _, d := range history {
		entries = append(entries, comm.PriceHistoryEntry{
			Day: d.Day, Price: d.Price, Title: d.Title, News: d.News, EffectiveTrend: string(d.EffectiveTrend),
		})
	}

	u, err := a.store.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}

	orders, err := a.store.ListOpenContractsByUser(ctx, userID)
	if err != nil {
		return err
	}
	views := make([]comm.ContractView, 0, len(orders))
	for _, o := range orders {
		views = append(views, comm.ContractView{
			ID: o.ID, Type: string(o.Type), Leverage: o.Leverage, Quantity: o.Quantity,
			Margin: o.Margin, EntryPrice: o.EntryPrice,
		})
	}

	rows, err := a.store.TopLeaderboard(ctx, price, 100)
	if err != nil {
		return err
	}

	a.hub.SendToSocket(socketID, comm.NewMessage(comm.EventFullSyncState, comm.FullSyncStatePayload{
		GameState: comm.GameStateUpdatePayload{
			CurrentDay: state.CurrentDay, IsGameStarted: state.IsStarted, Countdown: state.SecondsToNextDay,
			TotalDays: state.TotalDays, MaxLeverage: state.MaxLeverage,
		},
		Price:   price,
		History: entries,
		Assets: comm.AssetsUpdatePayload{
			Cash: u.Cash, Stocks: u.Stocks, Debt: u.Debt, DailyBorrowed: u.DailyBorrowed,
		},
		ActiveContracts: views,
		Leaderboard:     rows,
	}))
	return nil
}
