// Package app wires the services of one saldo session together.
package app

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"saldo/internal/amqp"
	"saldo/internal/api"
	"saldo/internal/config"
	"saldo/internal/core"
	"saldo/internal/log"
	"saldo/internal/notify"
	"saldo/internal/services"
	"saldo/internal/session"
	"saldo/internal/storage"
)

// App owns one store per collection and the services bound to them. The
// stores are created once and shared by every reader.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Sessions session.Store
	Client   *api.Client

	Auth       *services.AuthService
	Incomes    *services.IncomeService
	Expenses   *services.ExpenseService
	Savings    *services.SavingsService
	Categories *services.CategoryService
	Templates  *services.TemplateService
	Budgets    *services.BudgetService

	pingers []func(ctx context.Context) error
	closers []func() error
}

type options struct {
	sessions  session.Store
	publisher services.ChangePublisher
	notifier  notify.Notifier
	apiOpts   []api.Option
}

// Option customizes New.
type Option func(*options)

// WithSessionStore overrides the store selected by config.
func WithSessionStore(st session.Store) Option {
	return func(o *options) { o.sessions = st }
}

// WithPublisher overrides the AMQP publisher selected by config.
func WithPublisher(p services.ChangePublisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithNotifier sets the notifier used outside of a request.
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithAPIOptions passes options to the REST client.
func WithAPIOptions(opts ...api.Option) Option {
	return func(o *options) { o.apiOpts = append(o.apiOpts, opts...) }
}

// New builds the container. Resources opened here are released by Close.
func New(cfg *config.Config, logger *log.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if logger == nil {
		logger = log.Discard()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger.WithComponent(log.ComponentApp)}

	sessions, err := a.openSessions(o.sessions)
	if err != nil {
		return nil, err
	}
	a.Sessions = sessions

	client, err := api.NewClient(cfg.APIURL, cfg.APITimeout, session.Tokens(sessions),
		append([]api.Option{api.WithLogger(logger)}, o.apiOpts...)...)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("api client: %w", err)
	}
	a.Client = client

	publisher := o.publisher
	if publisher == nil && cfg.RequiresAMQP() {
		publisher = a.openPublisher(logger)
	}

	deps := services.Deps{Notifier: o.notifier, Publisher: publisher, Logger: logger}
	a.Incomes = services.NewIncomeService(api.Incomes(client), deps)
	a.Expenses = services.NewExpenseService(api.Expenses(client), deps)
	a.Savings = services.NewSavingsService(api.SavingsEntries(client), deps)
	a.Categories = services.NewCategoryService(api.BudgetCategories(client), deps)
	a.Templates = services.NewTemplateService(api.CategoryTemplates(client), deps)
	a.Budgets = services.NewBudgetService(api.MonthlyBudgets(client), deps)

	a.Auth = services.NewAuthService(client, sessions, deps)
	a.Auth.OnLogout(func(context.Context) { a.Reset() })

	return a, nil
}

func (a *App) openSessions(override session.Store) (session.Store, error) {
	if override != nil {
		return override, nil
	}
	if a.Config.SessionBackend != "sqlite" {
		return session.NewMemory(), nil
	}
	repo, err := storage.NewSQLiteRepository(a.Config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	a.pingers = append(a.pingers, repo.Ping)
	a.closers = append(a.closers, repo.Close)
	a.Logger.Info("Using SQLite session store", "db_path", a.Config.SQLiteDBPath)
	return repo, nil
}

// openPublisher connects to the broker. Change events are optional, so a
// broker that is down only disables them.
func (a *App) openPublisher(logger *log.Logger) services.ChangePublisher {
	client, err := amqp.NewClient(a.Config.AMQPURL, a.Config.AMQPExchange, a.Config.AMQPQueue, logger)
	if err != nil {
		a.Logger.Warn("Failed to initialize AMQP client, continuing without change events", log.FieldError, err.Error())
		return nil
	}
	a.pingers = append(a.pingers, func(context.Context) error { return client.Ping() })
	a.closers = append(a.closers, client.Close)
	a.Logger.Info("Initialized AMQP client", "exchange", a.Config.AMQPExchange, "queue", a.Config.AMQPQueue)
	return client
}

// RefreshAll loads every collection. Budgets go first so that incomes and
// categories can be scoped to the active one.
func (a *App) RefreshAll(ctx context.Context) error {
	a.Budgets.List(ctx, 0)

	var budgetID int64
	if b := a.Budgets.Active(); b != nil {
		budgetID = b.ID
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { a.Incomes.List(gctx, budgetID); return nil })
	g.Go(func() error { a.Categories.List(gctx, budgetID); return nil })
	g.Go(func() error { a.Expenses.List(gctx, 0); return nil })
	g.Go(func() error { a.Savings.List(gctx, 0); return nil })
	g.Go(func() error { a.Templates.List(gctx, 0); return nil })
	return g.Wait()
}

// Dashboard summarizes what is currently loaded.
func (a *App) Dashboard() core.Overview {
	return services.Summary(a.Incomes, a.Expenses, a.Savings, a.Categories, a.Budgets)
}

// Reset empties every store.
func (a *App) Reset() {
	a.Incomes.Reset()
	a.Expenses.Reset()
	a.Savings.Reset()
	a.Categories.Reset()
	a.Templates.Reset()
	a.Budgets.Reset()
}

// Ready reports whether the storage and broker connections are usable.
func (a *App) Ready(ctx context.Context) error {
	for _, ping := range a.pingers {
		if err := ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Close tears the stores down and releases connections. Results that arrive
// afterwards are dropped.
func (a *App) Close() error {
	if a.Budgets != nil {
		a.Incomes.Close()
		a.Expenses.Close()
		a.Savings.Close()
		a.Categories.Close()
		a.Templates.Close()
		a.Budgets.Close()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
