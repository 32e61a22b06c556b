// Package app wires the circulation service together.
package app

import (
	"net/http"
	"time"

	"libralend/internal/billing"
	"libralend/internal/cart"
	"libralend/internal/catalog"
	"libralend/internal/circulation"
	"libralend/internal/clients"
	"libralend/internal/config"
	"libralend/internal/httpapi"
	"libralend/internal/loan"
	"libralend/internal/membership"
	"libralend/internal/port"
	"libralend/internal/stock"

	"github.com/rs/zerolog"
)

type App struct {
	Router   http.Handler
	Sessions *cart.Sessions
	Service  circulation.Service
}

// New builds every component on top of db. Borrowers are looked up in the
// local directory unless cfg.MembershipServiceURL points at a remote one.
func New(cfg config.Config, db port.Store, publisher port.Publisher, logger zerolog.Logger) *App {
	members := membership.NewService(db, cfg.RegisterRatePerMinute, logger)
	var borrowers port.BorrowerDirectory = members
	if cfg.MembershipServiceURL != "" {
		borrowers = clients.NewMembershipClient(cfg.MembershipServiceURL, logger)
		logger.Info().Str("url", cfg.MembershipServiceURL).Msg("using remote membership service")
	}

	stockLedger := stock.NewLedger(db, logger)
	sessions := cart.NewSessions(stockLedger, cfg.SessionTTL, cfg.SessionCapacity, logger)
	loanLedger := loan.NewLedger(db, borrowers, time.Now, logger)
	engine := billing.NewEngine(db, billing.Fees{RatePerDay: cfg.FeeRatePerDay, Flat: cfg.FeeFlat}, logger)
	svc := circulation.NewService(circulation.Deps{
		Store:     db,
		Sessions:  sessions,
		Loans:     loanLedger,
		Stock:     stockLedger,
		Billing:   engine,
		Publisher: publisher,
		Logger:    logger,
	})

	router := httpapi.NewRouter(logger,
		catalog.NewHandler(catalog.NewService(db, logger)),
		membership.NewHandler(members),
		stock.NewHandler(stockLedger),
		cart.NewHandler(sessions),
		loan.NewHandler(loanLedger),
		circulation.NewHandler(svc),
		billing.NewHandler(engine),
		httpapi.NewJournalHandler(db.Journal()),
	)
	return &App{Router: router, Sessions: sessions, Service: svc}
}
