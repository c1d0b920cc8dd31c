package main

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/parkaro/internal/automation"
	"github.com/Spok95/parkaro/internal/config"
	"github.com/Spok95/parkaro/internal/domain/pricing"
	"github.com/Spok95/parkaro/internal/infra/db"
	"github.com/Spok95/parkaro/internal/infra/lock"
	"github.com/Spok95/parkaro/internal/infra/payments"
	"github.com/Spok95/parkaro/internal/lifecycle"
	"github.com/Spok95/parkaro/internal/notify"
	"github.com/Spok95/parkaro/internal/storage"
	"github.com/Spok95/parkaro/internal/storage/memory"
	"github.com/Spok95/parkaro/internal/storage/postgres"
)

type app struct {
	manager *lifecycle.Manager
	sweeper *automation.Sweeper
	runner  *automation.Runner
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// build собирает зависимости. Внешние каналы (RabbitMQ, Telegram, Redis) необязательны:
// без настроек они просто не подключаются.
func build(ctx context.Context, cfg config.Config, log *slog.Logger, inMemory bool) (*app, error) {
	a := &app{}
	fan := notify.Fanout{notify.NewLog(log)}

	var store storage.Store
	if inMemory {
		store = demoStore()
		log.Info("using in-memory store")
	} else {
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		log.Info("db connected")
		store = postgres.New(pool)
		fan = append(fan, notify.NewJournal(pool))
	}

	if cfg.AMQP.URL != "" {
		pub, err := notify.DialRabbit(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = pub.Close() })
		fan = append(fan, notify.NewAMQP(pub))
		log.Info("rabbitmq connected", "exchange", cfg.AMQP.Exchange)
	}

	if cfg.Telegram.Token != "" {
		api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("telegram: %w", err)
		}
		fan = append(fan, notify.NewTelegram(api, cfg.Telegram.OpsChatID))
		log.Info("telegram notifications enabled", "bot", api.Self.UserName)
	}

	var guard automation.Guard
	if cfg.Redis.Addr != "" {
		rdb, err := lock.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			a.close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		guard = lock.New(rdb)
		log.Info("redis lock enabled", "addr", cfg.Redis.Addr)
	}

	a.manager = lifecycle.New(store, pricing.NewEngine(cfg.Location()), payments.NewStub(), log,
		lifecycle.WithNotifier(fan),
		lifecycle.WithReservationTTL(cfg.Booking.ReservationTTL),
		lifecycle.WithCurrency(cfg.App.Currency),
		lifecycle.WithNotifyTimeout(cfg.Booking.NotifyTimeout),
	)
	a.sweeper = automation.New(store, fan, log).
		WithOvertimeReason(cfg.Booking.OvertimeReason).
		WithReminderWindow(cfg.Booking.ReminderWindow).
		WithNotifyTimeout(cfg.Booking.NotifyTimeout)
	a.runner = automation.NewRunner(a.sweeper, guard, log, cfg.Sweep.Interval, cfg.Sweep.LockTTL)
	return a, nil
}

// demoStore — те же демо-данные, что и у команды seed, но в памяти.
func demoStore() *memory.Store {
	s := memory.New()
	loc := s.AddLocation(demoLocation())
	for _, sl := range demoSlots(loc.ID) {
		s.AddSlot(sl)
	}
	s.AddVehicle(demoVehicle())
	for _, r := range demoRules(loc.ID) {
		s.AddRule(r)
	}
	for _, p := range demoPolicies() {
		s.AddPolicy(p)
	}
	return s
}
