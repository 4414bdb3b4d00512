package agent

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/itemforge/matchbot/pkg/models"
)

const (
	// MaxTradesPerAccount caps how many offers one matching round sends to a
	// single counterparty.
	MaxTradesPerAccount = 5

	// MaxItemsPerTrade caps the combined item count of one offer, matching
	// the Steam trade window limit.
	MaxItemsPerTrade = 255
)

// Config is the agent's bot roster, loaded from a TOML file.
type Config struct {
	// LoadBalancingDelaySeconds staggers the bots' matching triggers so they
	// do not all hit the directory at once. Defaults to 15 minutes.
	LoadBalancingDelaySeconds int `toml:"load_balancing_delay_seconds"`

	// MinItemsCount overrides the announce threshold for every bot when
	// positive.
	MinItemsCount int `toml:"min_items_count"`

	Bots []BotConfig `toml:"bots"`
}

// BotConfig is one bot account's roster entry.
type BotConfig struct {
	Name       string `toml:"name"`
	SteamID    uint64 `toml:"steam_id"`
	TradeToken string `toml:"trade_token"`
	APIKey     string `toml:"api_key"`

	// IdentitySecret enables mobile-authenticator confirmations. Bots
	// without one cannot participate in matching at all.
	IdentitySecret string `toml:"identity_secret"`

	// MatchableTypes lists asset type names; empty means every type the
	// directory accepts.
	MatchableTypes []string `toml:"matchable_types"`

	TradingPreferences []string `toml:"trading_preferences"`
}

// LoadConfig reads and validates the roster at path.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Bots) == 0 {
		return fmt.Errorf("no bots configured")
	}
	seen := make(map[string]struct{}, len(c.Bots))
	for i, b := range c.Bots {
		if b.Name == "" {
			return fmt.Errorf("bot #%d has no name", i+1)
		}
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("duplicate bot name %q", b.Name)
		}
		seen[b.Name] = struct{}{}
		if b.SteamID == 0 {
			return fmt.Errorf("bot %q has no steam_id", b.Name)
		}
		if b.APIKey == "" {
			return fmt.Errorf("bot %q has no api_key", b.Name)
		}
		if _, err := b.Types(); err != nil {
			return fmt.Errorf("bot %q: %w", b.Name, err)
		}
		if _, err := b.Preferences(); err != nil {
			return fmt.Errorf("bot %q: %w", b.Name, err)
		}
	}
	return nil
}

// LoadBalancingDelay returns the configured trigger stagger step.
func (c *Config) LoadBalancingDelay() time.Duration {
	if c.LoadBalancingDelaySeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.LoadBalancingDelaySeconds) * time.Second
}

// Types resolves the entry's matchable type names. An empty list means the
// full directory-accepted set.
func (b BotConfig) Types() (models.TypeSet, error) {
	if len(b.MatchableTypes) == 0 {
		return models.MatchableTypes(), nil
	}
	set := make(models.TypeSet, len(b.MatchableTypes))
	for _, name := range b.MatchableTypes {
		t, err := models.ParseAssetType(name)
		if err != nil {
			return nil, err
		}
		set[t] = struct{}{}
	}
	return set, nil
}

// Preferences resolves the entry's trading preference names into a bitmask.
func (b BotConfig) Preferences() (models.TradingPreferences, error) {
	return models.ParseTradingPreferences(b.TradingPreferences)
}

// HasAuthenticator reports whether the entry carries a mobile-authenticator
// identity secret.
func (b BotConfig) HasAuthenticator() bool {
	return b.IdentitySecret != ""
}
