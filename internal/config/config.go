package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/hakimelghazi/orbital-market/internal/engine"
)

type Config struct {
	ListenAddr    string        `yaml:"listen_addr"`
	DatabaseURL   string        `yaml:"database_url"`
	LogLevel      string        `yaml:"log_level"`
	CommandBuffer int           `yaml:"command_buffer"`
	QuoteInterval time.Duration `yaml:"quote_interval"`
	Markets       []Market      `yaml:"markets"`
	Traders       []Trader      `yaml:"traders"`
	Orders        []SeedOrder   `yaml:"orders"`
}

type Market struct {
	Name     string          `yaml:"name"`
	ID       uuid.UUID       `yaml:"id"`
	Position engine.Position `yaml:"position"`
}

type Trader struct {
	Name     string    `yaml:"name"`
	ID       uuid.UUID `yaml:"id"`
	Capacity int64     `yaml:"capacity"`
	Credits  int64     `yaml:"credits"`
	// Goods is the starting stock.
	Goods map[engine.Commodity]int64 `yaml:"goods"`
}

// SeedOrder is placed on its market at startup. Market and Trader are names.
type SeedOrder struct {
	Market    string           `yaml:"market"`
	Trader    string           `yaml:"trader"`
	Side      string           `yaml:"side"`
	Commodity engine.Commodity `yaml:"commodity"`
	Amount    int64            `yaml:"amount"`
	Price     int64            `yaml:"price"`
}

func Default() Config {
	return Config{
		ListenAddr:    ":8080",
		LogLevel:      "info",
		CommandBuffer: 1024,
		QuoteInterval: 5 * time.Second,
	}
}

// Load reads a YAML file over the defaults, then applies LISTEN_ADDR and DATABASE_URL
// from the environment. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.CommandBuffer < 0 {
		errs = append(errs, errors.New("command_buffer must not be negative"))
	}
	if c.QuoteInterval <= 0 {
		errs = append(errs, errors.New("quote_interval must be positive"))
	}

	markets := make(map[string]bool, len(c.Markets))
	ids := make(map[uuid.UUID]bool, len(c.Markets))
	for i := range c.Markets {
		m := &c.Markets[i]
		if m.Name == "" {
			errs = append(errs, fmt.Errorf("markets[%d]: name required", i))
			continue
		}
		if markets[m.Name] {
			errs = append(errs, fmt.Errorf("market %q defined twice", m.Name))
		}
		markets[m.Name] = true
		if m.ID == uuid.Nil {
			m.ID = nameID("market", m.Name)
		}
		if ids[m.ID] {
			errs = append(errs, fmt.Errorf("market %q reuses id %s", m.Name, m.ID))
		}
		ids[m.ID] = true
	}

	traders := make(map[string]bool, len(c.Traders))
	for i := range c.Traders {
		tr := &c.Traders[i]
		if tr.Name == "" {
			errs = append(errs, fmt.Errorf("traders[%d]: name required", i))
			continue
		}
		if traders[tr.Name] {
			errs = append(errs, fmt.Errorf("trader %q defined twice", tr.Name))
		}
		traders[tr.Name] = true
		if tr.ID == uuid.Nil {
			tr.ID = nameID("trader", tr.Name)
		}
		if tr.Capacity < 0 {
			errs = append(errs, fmt.Errorf("trader %q: capacity must not be negative", tr.Name))
		}
		var stock int64
		for c, n := range tr.Goods {
			if n < 0 {
				errs = append(errs, fmt.Errorf("trader %q: negative %s stock", tr.Name, c))
			}
			stock += n
		}
		if stock > tr.Capacity {
			errs = append(errs, fmt.Errorf("trader %q: goods exceed capacity", tr.Name))
		}
	}

	for i, o := range c.Orders {
		if !markets[o.Market] {
			errs = append(errs, fmt.Errorf("orders[%d]: unknown market %q", i, o.Market))
		}
		if !traders[o.Trader] {
			errs = append(errs, fmt.Errorf("orders[%d]: unknown trader %q", i, o.Trader))
		}
		if _, err := engine.ParseSide(o.Side); err != nil {
			errs = append(errs, fmt.Errorf("orders[%d]: %w", i, err))
		}
		if o.Amount <= 0 {
			errs = append(errs, fmt.Errorf("orders[%d]: amount must be positive", i))
		}
		if o.Price < 0 {
			errs = append(errs, fmt.Errorf("orders[%d]: price must not be negative", i))
		}
	}
	return errors.Join(errs...)
}

// nameID derives a stable id so configs may omit ids.
func nameID(kind, name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("orbital-market/"+kind+"/"+name))
}

func (c *Config) Market(name string) (Market, bool) {
	for _, m := range c.Markets {
		if m.Name == name {
			return m, true
		}
	}
	return Market{}, false
}

func (c *Config) Trader(name string) (Trader, bool) {
	for _, tr := range c.Traders {
		if tr.Name == name {
			return tr, true
		}
	}
	return Trader{}, false
}

// SeedOrders turns Orders into engine orders in file order. Call after Validate.
func (c *Config) SeedOrders() ([]engine.Order, error) {
	out := make([]engine.Order, 0, len(c.Orders))
	for i, so := range c.Orders {
		m, ok := c.Market(so.Market)
		if !ok {
			return nil, fmt.Errorf("orders[%d]: unknown market %q", i, so.Market)
		}
		tr, ok := c.Trader(so.Trader)
		if !ok {
			return nil, fmt.Errorf("orders[%d]: unknown trader %q", i, so.Trader)
		}
		side, err := engine.ParseSide(so.Side)
		if err != nil {
			return nil, fmt.Errorf("orders[%d]: %w", i, err)
		}
		if side == engine.SideBuy {
			out = append(out, engine.NewBuyOrder(so.Commodity, tr.ID, m.ID, m.Position, so.Amount, so.Price))
		} else {
			out = append(out, engine.NewSellOrder(so.Commodity, tr.ID, m.ID, m.Position, so.Amount, so.Price))
		}
	}
	return out, nil
}
