// Package httpapi is the admin/auth HTTP surface plus the /ws upgrade
// endpoint (spec §6), assembled the way the teacher's
// internal/gamesvc/handlers and internal/socketsvc/handlers are, merged
// into one router since this module is a single process rather than a
// split gamesvc/socketsvc pair.
package httpapi

import (
	config "github.com/avvvet/marketday/configs"
	"github.com/avvvet/marketday/internal/authtoken"
	"github.com/avvvet/marketday/internal/bus"
	"github.com/avvvet/marketday/internal/clockengine"
	"github.com/avvvet/marketday/internal/minigame"
	"github.com/avvvet/marketday/internal/script"
	"github.com/avvvet/marketday/internal/store"
	"github.com/avvvet/marketday/internal/tick"
	"github.com/avvvet/marketday/internal/trading"
	"github.com/sirupsen/logrus"
)

// App holds every collaborator a handler might need, threaded through
// from cmd/serverd's wiring (spec §9 "engine depends on... providers
// injected at construction").
type App struct {
	store    *store.Store
	cache    *script.Cache
	clock    *clockengine.Engine
	trading  *trading.Engine
	minigame *minigame.Engine
	hub      *bus.Hub
	auth     *authtoken.Issuer
	tick     *tick.Loop
	balance  *config.GameBalance
	log      *logrus.Entry
}

func New(
	st *store.Store,
	cache *script.Cache,
	clock *clockengine.Engine,
	trd *trading.Engine,
	mg *minigame.Engine,
	hub *bus.Hub,
	auth *authtoken.Issuer,
	loop *tick.Loop,
	balance *config.GameBalance,
	log *logrus.Entry,
) *App {
	return &App{
		store: st, cache: cache, clock: clock, trading: trd, minigame: mg,
		hub: hub, auth: auth, tick: loop, balance: balance, log: log,
	}
}
