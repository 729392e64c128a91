package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// BillingConfig holds the billing knobs that operators tune per deployment.
type BillingConfig struct {
	// NumberPrefix is the billing number prefix, e.g. INV-202601-0001.
	NumberPrefix string `mapstructure:"numberPrefix"`
	// SequenceDigits is the zero-padded width of the per-month sequence.
	SequenceDigits int `mapstructure:"sequenceDigits"`
	// TaxRate is applied to the subtotal when building a billing. 0 disables tax.
	TaxRate float64 `mapstructure:"taxRate"`
	// DefaultDueDays is used when a generation request omits the due date.
	DefaultDueDays int `mapstructure:"defaultDueDays"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		NumberPrefix:   "INV",
		SequenceDigits: 4,
		TaxRate:        0,
		DefaultDueDays: 14,
	}
}

// BillingConfigHolder serves the current BillingConfig and hot-reloads it
// when the config file changes on disk.
type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig
}

func NewBillingConfigHolder() (*BillingConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/propline/config") // Volume-mounted config
	v.AddConfigPath("/etc/propline")            // System config
	v.AddConfigPath(".")                        // Current directory (dev mode)

	v.SetEnvPrefix("PROPLINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
		defaults := DefaultBillingConfig()
		v.SetDefault("billing.numberPrefix", defaults.NumberPrefix)
		v.SetDefault("billing.sequenceDigits", defaults.SequenceDigits)
		v.SetDefault("billing.taxRate", defaults.TaxRate)
		v.SetDefault("billing.defaultDueDays", defaults.DefaultDueDays)
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated BillingConfig
			if err := v.UnmarshalKey("billing", &updated); err != nil {
				log.Printf("[billing-config] reload failed: %v", err)
				return
			}
			if err := validateBillingConfig(updated); err != nil {
				log.Printf("[billing-config] invalid config ignored: %v", err)
				return
			}
			holder.current.Store(updated)
			log.Printf("[billing-config] reloaded from %s", e.Name)
		})
	}

	return holder, nil
}

// NewStaticBillingConfigHolder pins the holder to the given config with no
// file watching.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

func validateBillingConfig(cfg BillingConfig) error {
	if strings.TrimSpace(cfg.NumberPrefix) == "" {
		return errors.New("billing.numberPrefix cannot be empty")
	}
	if cfg.SequenceDigits < 1 || cfg.SequenceDigits > 9 {
		return errors.New("billing.sequenceDigits must be between 1 and 9")
	}
	if cfg.TaxRate < 0 || cfg.TaxRate >= 1 {
		return errors.New("billing.taxRate must be in [0, 1)")
	}
	if cfg.DefaultDueDays < 0 {
		return errors.New("billing.defaultDueDays cannot be negative")
	}
	return nil
}
