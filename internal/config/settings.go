package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/lightningshop/jobtrack/internal/invoice/format"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Settings are the business defaults read from jobtrack.yml.
type Settings struct {
	Currency   string             `mapstructure:"currency" json:"currency"`
	Branding   Branding           `mapstructure:"branding" json:"branding"`
	Calculator CalculatorDefaults `mapstructure:"calculator" json:"calculator"`
	Invoice    InvoiceDefaults    `mapstructure:"invoice" json:"invoice"`
}

type Branding struct {
	CompanyName    string `mapstructure:"companyName" json:"company_name"`
	CompanyAddress string `mapstructure:"companyAddress" json:"company_address"`
	CompanyPhone   string `mapstructure:"companyPhone" json:"company_phone"`
	CompanyEmail   string `mapstructure:"companyEmail" json:"company_email"`
	AccentColor    string `mapstructure:"accentColor" json:"accent_color"`
	DefaultTaxBps  int64  `mapstructure:"defaultTaxBps" json:"default_tax_bps"`
	DefaultNotes   string `mapstructure:"defaultNotes" json:"default_notes"`
}

type CalculatorDefaults struct {
	RatePerSqft float64 `mapstructure:"ratePerSqft" json:"rate_per_sqft"`
	Multiplier  float64 `mapstructure:"multiplier" json:"multiplier"`
}

type InvoiceDefaults struct {
	NumberTemplate string `mapstructure:"numberTemplate" json:"number_template"`
	DueDays        int    `mapstructure:"dueDays" json:"due_days"`
}

const settingsRoot = "jobtrack"

func DefaultSettings() Settings {
	return Settings{
		Currency: "USD",
		Branding: Branding{
			CompanyName:    "Lightning Shop LLC",
			CompanyAddress: "Homestead, FL",
			AccentColor:    "#5BB6FF",
			DefaultTaxBps:  0,
			DefaultNotes:   "Thank you for your business.",
		},
		Calculator: CalculatorDefaults{
			RatePerSqft: 0.22,
			Multiplier:  1.0,
		},
		Invoice: InvoiceDefaults{
			NumberTemplate: format.DefaultInvoiceNumberTemplate,
			DueDays:        0,
		},
	}
}

type SettingsHolder struct {
	current atomic.Value // holds Settings
}

// NewStaticSettings returns a holder that never reloads.
func NewStaticSettings(s Settings) *SettingsHolder {
	holder := &SettingsHolder{}
	holder.current.Store(s)
	return holder
}

func NewSettingsHolder(cfg Config, log *zap.Logger) (*SettingsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("settings")

	v := viper.New()
	setSettingsDefaults(v)

	if cfg.SettingsFile != "" {
		v.SetConfigFile(cfg.SettingsFile)
	} else {
		v.SetConfigName("jobtrack")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/jobtrack")
		v.AddConfigPath(".")
	}

	// jobtrack.branding.defaultTaxBps -> JOBTRACK_BRANDING_DEFAULTTAXBPS
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	found := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		found = false
	}

	cfgSettings, err := decodeSettings(v)
	if err != nil {
		return nil, err
	}

	holder := &SettingsHolder{}
	holder.current.Store(cfgSettings)

	if found && cfg.SettingsWatch {
		v.OnConfigChange(func(e fsnotify.Event) {
			if err := holder.reload(v); err != nil {
				log.Warn("settings reload ignored", zap.String("file", e.Name), zap.Error(err))
				return
			}
			log.Info("settings reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *SettingsHolder) Get() Settings {
	return h.current.Load().(Settings)
}

func (h *SettingsHolder) reload(v *viper.Viper) error {
	updated, err := decodeSettings(v)
	if err != nil {
		return err
	}
	h.current.Store(updated)
	return nil
}

func setSettingsDefaults(v *viper.Viper) {
	d := DefaultSettings()
	v.SetDefault(settingsRoot+".currency", d.Currency)
	v.SetDefault(settingsRoot+".branding.companyName", d.Branding.CompanyName)
	v.SetDefault(settingsRoot+".branding.companyAddress", d.Branding.CompanyAddress)
	v.SetDefault(settingsRoot+".branding.companyPhone", d.Branding.CompanyPhone)
	v.SetDefault(settingsRoot+".branding.companyEmail", d.Branding.CompanyEmail)
	v.SetDefault(settingsRoot+".branding.accentColor", d.Branding.AccentColor)
	v.SetDefault(settingsRoot+".branding.defaultTaxBps", d.Branding.DefaultTaxBps)
	v.SetDefault(settingsRoot+".branding.defaultNotes", d.Branding.DefaultNotes)
	v.SetDefault(settingsRoot+".calculator.ratePerSqft", d.Calculator.RatePerSqft)
	v.SetDefault(settingsRoot+".calculator.multiplier", d.Calculator.Multiplier)
	v.SetDefault(settingsRoot+".invoice.numberTemplate", d.Invoice.NumberTemplate)
	v.SetDefault(settingsRoot+".invoice.dueDays", d.Invoice.DueDays)
}

func decodeSettings(v *viper.Viper) (Settings, error) {
	// Unmarshal goes through AllSettings, which merges nested defaults
	// with a partial file.
	var root struct {
		Jobtrack Settings `mapstructure:"jobtrack"`
	}
	if err := v.Unmarshal(&root); err != nil {
		return Settings{}, err
	}
	s := root.Jobtrack
	s.Currency = strings.ToUpper(strings.TrimSpace(s.Currency))
	if err := validateSettings(s); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func validateSettings(s Settings) error {
	if len(s.Currency) != 3 {
		return fmt.Errorf("%s.currency must be a 3-letter code, got %q", settingsRoot, s.Currency)
	}
	if s.Branding.DefaultTaxBps < 0 {
		return errors.New(settingsRoot + ".branding.defaultTaxBps cannot be negative")
	}
	if s.Calculator.RatePerSqft < 0 || s.Calculator.Multiplier < 0 {
		return errors.New(settingsRoot + ".calculator values cannot be negative")
	}
	if strings.TrimSpace(s.Invoice.NumberTemplate) == "" {
		return errors.New(settingsRoot + ".invoice.numberTemplate cannot be empty")
	}
	if err := format.ValidateTemplate(s.Invoice.NumberTemplate); err != nil {
		return fmt.Errorf("%s.invoice.numberTemplate: %w", settingsRoot, err)
	}
	if s.Invoice.DueDays < 0 {
		return errors.New(settingsRoot + ".invoice.dueDays cannot be negative")
	}
	return nil
}
