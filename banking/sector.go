package banking

import (
	"fmt"
	"log/slog"
	"math/rand"

	"credit-circuit/model"
)

// SectorConfig configures a new Sector.
type SectorConfig struct {
	// Banks names the banks to create; at least one is required.
	Banks  []string
	Params Params
	Seed   int64
	Logger *slog.Logger
	// Period is the last period already closed.
	Period int
}

// Sector owns the banks and runs their period protocol in lockstep.
// It also stands between the banks and the capitalists: shareholder
// selection and forced corporation sales go through it.
type Sector struct {
	banks       []*Bank
	rng         *rand.Rand
	capitalists Capitalists
	log         *slog.Logger
	period      int
}

// NewSector creates the banks. All randomness in the sector, including the
// banks' recovery order, comes from one source seeded with cfg.Seed.
func NewSector(cfg SectorConfig) (*Sector, error) {
	if len(cfg.Banks) == 0 {
		return nil, ErrNoBank
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Sector{
		rng:    rand.New(rand.NewSource(cfg.Seed)),
		log:    logger,
		period: cfg.Period,
	}
	seen := make(map[string]bool, len(cfg.Banks))
	for _, name := range cfg.Banks {
		if seen[name] {
			return nil, fmt.Errorf("%w: bank %q named twice", ErrBadParams, name)
		}
		seen[name] = true
		b, err := NewBank(Options{
			Name:   name,
			Params: cfg.Params,
			Random: s.rng,
			Logger: logger,
			Owners: s,
			Buyer:  s,
			Period: cfg.Period,
		})
		if err != nil {
			return nil, err
		}
		s.banks = append(s.banks, b)
	}
	return s, nil
}

// SetCapitalists installs the collaborator that supplies shareholders and
// buys foreclosed corporations. Until it is set, ownership stays pending.
func (s *Sector) SetCapitalists(c Capitalists) {
	s.capitalists = c
}

// Random is the sector's seeded source, shared with collaborators that must
// draw from the same sequence.
func (s *Sector) Random() *rand.Rand { return s.rng }

// Period is the current (or last closed) period.
func (s *Sector) Period() int { return s.period }

// Banks returns the banks in creation order.
func (s *Sector) Banks() []*Bank {
	out := make([]*Bank, len(s.banks))
	copy(out, s.banks)
	return out
}

// Params returns the parameters of the first bank.
func (s *Sector) Params() Params { return s.banks[0].params }

// SetParams applies a parameter shock to every bank.
func (s *Sector) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	for _, b := range s.banks {
		b.params = p
	}
	return nil
}

// OpenAccount opens an account for holder with one of the banks, drawn at
// random when there are several.
func (s *Sector) OpenAccount(holder Holder) *Account {
	b := s.banks[0]
	if len(s.banks) > 1 {
		b = s.banks[s.rng.Intn(len(s.banks))]
	}
	return b.OpenAccount(holder)
}

// SelectCapitalOwner delegates to the capitalists.
func (s *Sector) SelectCapitalOwner(n int) []Shareholder {
	if s.capitalists == nil {
		return nil
	}
	return s.capitalists.SelectCapitalOwner(n)
}

// BuyCorporation delegates the forced sale of a corporation to the capitalists.
func (s *Sector) BuyCorporation(c Corporation) ([]Instrument, error) {
	if s.capitalists == nil {
		return nil, nil
	}
	return s.capitalists.BuyCorporation(c)
}

// Open starts period now at every bank.
func (s *Sector) Open(now int) error {
	if now != s.period+1 {
		return fmt.Errorf("open sector at period %d after %d: %w", now, s.period, ErrAnachronism)
	}
	for _, b := range s.banks {
		if err := b.Open(now); err != nil {
			return err
		}
	}
	s.period = now
	return nil
}

// DebtRecovery runs debt recovery at every bank.
func (s *Sector) DebtRecovery() error {
	for _, b := range s.banks {
		if err := b.DebtRecovery(); err != nil {
			return err
		}
	}
	return nil
}

// PayDividends runs the dividend step at every bank.
func (s *Sector) PayDividends() error {
	for _, b := range s.banks {
		if err := b.PayDividend(); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every bank and returns their reports in bank order.
func (s *Sector) Close() ([]model.BankReport, error) {
	reports := make([]model.BankReport, 0, len(s.banks))
	for _, b := range s.banks {
		r, err := b.Close()
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	return reports, nil
}
