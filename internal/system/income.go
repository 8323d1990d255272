package system

import (
	"github.com/duskwatch/server/internal/core/event"
	"github.com/duskwatch/server/internal/world"
	"go.uber.org/zap"
)

// IncomeSystem credits the wallet at the start of every day after the first.
// Purely event driven; it is not registered with the runner.
type IncomeSystem struct {
	wallet *world.Wallet
	amount int
	log    *zap.Logger
	sub    *event.Subscription
}

func NewIncomeSystem(wallet *world.Wallet, perDay int, bus *event.Bus, log *zap.Logger) *IncomeSystem {
	s := &IncomeSystem{wallet: wallet, amount: perDay, log: log}
	s.sub = event.Subscribe(bus, s.onDay)
	return s
}

func (s *IncomeSystem) onDay(ev event.DayChanged) {
	if ev.Day <= 1 || s.amount <= 0 {
		return
	}
	s.wallet.Add(s.amount)
	s.log.Debug("daily income",
		zap.Int("day", ev.Day),
		zap.Int("amount", s.amount),
		zap.Int("balance", s.wallet.Balance()))
}

func (s *IncomeSystem) Close() { s.sub.Unsubscribe() }
