// Package simulation drives the banks through their period protocol with a
// small economy of firms, households and capitalists.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"credit-circuit/banking"
	"credit-circuit/model"
)

// ReportSaver receives the reports of each closed period.
type ReportSaver interface {
	SaveReports(ctx context.Context, reports []model.BankReport) error
}

// Config sizes the circuit.
type Config struct {
	Seed       int64
	Firms      int
	Households int
	Banks      []string
	Params     banking.Params
	Logger     *slog.Logger
}

// Circuit owns the sector and the agents around it. A period is run as:
// open, firms borrow and produce, households consume, debt recovery,
// dividends, close. Given the seed, a run is fully reproducible.
//
// Circuit is safe for concurrent use: HTTP handlers may read accounts and
// queue shocks while periods run.
type Circuit struct {
	mu          sync.Mutex
	sector      *banking.Sector
	rng         *rand.Rand
	capitalists *Capitalists
	firms       []*Firm
	households  []*Household
	store       ReportSaver
	log         *slog.Logger
	pending     *banking.Params
	firmSeq     int
}

// New builds the sector and the agents. store may be nil.
func New(cfg Config, store ReportSaver) (*Circuit, error) {
	if cfg.Firms <= 0 || cfg.Households <= 0 {
		return nil, fmt.Errorf("circuit needs firms and households, got %d and %d", cfg.Firms, cfg.Households)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sector, err := banking.NewSector(banking.SectorConfig{
		Banks:  cfg.Banks,
		Params: cfg.Params,
		Seed:   cfg.Seed,
		Logger: logger,
	})
	if err != nil {
		return nil, err
	}

	c := &Circuit{
		sector: sector,
		rng:    sector.Random(),
		store:  store,
		log:    logger,
	}
	for i := 0; i < cfg.Households; i++ {
		h := &Household{
			name:     fmt.Sprintf("household-%d", i+1),
			accounts: make(map[string]*banking.Account),
		}
		for _, b := range sector.Banks() {
			h.accounts[b.Name()] = b.OpenAccount(h)
		}
		c.households = append(c.households, h)
	}
	for i := 0; i < cfg.Firms; i++ {
		c.firms = append(c.firms, c.newFirm())
	}
	for i, h := range c.households {
		f := c.firms[i%len(c.firms)]
		f.workers = append(f.workers, h)
		f.size++
	}

	c.capitalists = &Capitalists{households: c.households, rng: c.rng, log: logger}
	sector.SetCapitalists(c.capitalists)
	return c, nil
}

func (c *Circuit) newFirm() *Firm {
	c.firmSeq++
	f := &Firm{name: fmt.Sprintf("firm-%d", c.firmSeq), kind: banking.Amortizing}
	if c.firmSeq%2 == 0 {
		f.kind = banking.NonAmortizing
	}
	f.account = c.sector.OpenAccount(f)
	return f
}

// Period is the last closed period.
func (c *Circuit) Period() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sector.Period()
}

// Params returns the parameters that will apply to the next period.
func (c *Circuit) Params() banking.Params {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		return *c.pending
	}
	return c.sector.Params()
}

// QueueShock schedules new parameters for every bank from the next period on.
func (c *Circuit) QueueShock(p banking.Params) error {
	_, err := c.MergeShock(func(banking.Params) banking.Params { return p })
	return err
}

// MergeShock builds the next period's parameters from the ones already
// scheduled and queues them. Concurrent partial shocks all take effect.
func (c *Circuit) MergeShock(merge func(banking.Params) banking.Params) (banking.Params, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	base := c.sector.Params()
	if c.pending != nil {
		base = *c.pending
	}
	p := merge(base)
	if err := p.Validate(); err != nil {
		return banking.Params{}, err
	}
	c.pending = &p
	return p, nil
}

// AccountSummaries returns the accounts of bank, cancelled ones included.
func (c *Circuit) AccountSummaries(bank string) ([]model.AccountSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, b := range c.sector.Banks() {
		if b.Name() != bank {
			continue
		}
		accounts := b.Accounts()
		out := make([]model.AccountSummary, len(accounts))
		for i, a := range accounts {
			out[i] = a.Summary()
		}
		return out, true
	}
	return nil, false
}

// Run steps through periods until done, the context ends or a protocol
// violation stops the run.
func (c *Circuit) Run(ctx context.Context, periods int) error {
	for i := 0; i < periods; i++ {
		if _, err := c.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Step runs one period and saves its reports.
func (c *Circuit) Step(ctx context.Context) ([]model.BankReport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.pending != nil {
		if err := c.sector.SetParams(*c.pending); err != nil {
			return nil, err
		}
		c.log.Info("parameter shock applied", "period", c.sector.Period()+1, "normal_rate", c.pending.NormalRate.String())
		c.pending = nil
	}
	c.replaceFailedFirms()

	now := c.sector.Period() + 1
	reports, err := c.period(now)
	if err != nil {
		c.log.Error("period aborted", "period", now, "error", err)
		return nil, fmt.Errorf("period %d: %w", now, err)
	}

	if c.store != nil {
		if err := c.store.SaveReports(ctx, reports); err != nil {
			return nil, fmt.Errorf("saving period %d: %w", now, err)
		}
	}
	for _, r := range reports {
		c.log.Info("period closed",
			"period", r.Period,
			"bank", r.Bank,
			"capital", r.Capital,
			"assets", r.Assets,
			"bankruptcies", r.Bankruptcies,
			"dividend", r.DividendPaid,
		)
	}
	return reports, nil
}

func (c *Circuit) period(now int) ([]model.BankReport, error) {
	if err := c.sector.Open(now); err != nil {
		return nil, err
	}
	for _, h := range c.households {
		h.income = 0
	}
	for _, f := range c.firms {
		f.sales = 0
		if f.failed {
			continue
		}
		if err := f.finance(now); err != nil {
			return nil, err
		}
		if err := f.produce(); err != nil {
			return nil, err
		}
	}

	byBank := make(map[string][]*Firm)
	for _, f := range c.firms {
		if !f.failed && f.inventory > 0 {
			bank := f.account.Bank().Name()
			byBank[bank] = append(byBank[bank], f)
		}
	}
	pick := func(bank string) *Firm {
		candidates := byBank[bank]
		if len(candidates) == 0 {
			return nil
		}
		return candidates[c.rng.Intn(len(candidates))]
	}
	for _, i := range c.rng.Perm(len(c.households)) {
		if err := c.households[i].consume(pick); err != nil {
			return nil, err
		}
	}

	if err := c.sector.DebtRecovery(); err != nil {
		return nil, err
	}
	if err := c.sector.PayDividends(); err != nil {
		return nil, err
	}
	return c.sector.Close()
}

// replaceFailedFirms starts a new firm for each failed one and hands it the
// workers.
func (c *Circuit) replaceFailedFirms() {
	for i, f := range c.firms {
		if !f.failed {
			continue
		}
		next := c.newFirm()
		next.workers = f.workers
		next.size = len(f.workers)
		c.firms[i] = next
		c.log.Info("firm replaced", "failed", f.name, "new", next.name)
	}
}
