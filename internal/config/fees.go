package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"text/template"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// FeeSettings is the hot-reloadable part of the configuration, read from fees.yml.
type FeeSettings struct {
	Currency      string             `mapstructure:"currency"`
	Timezone      string             `mapstructure:"timezone"`
	ClassLabels   []string           `mapstructure:"classes"`
	Templates     MessageTemplates   `mapstructure:"templates"`
	Notifications NotificationPolicy `mapstructure:"notifications"`
}

type MessageTemplates struct {
	FeeAssigned      string `mapstructure:"fee_assigned"`
	PaymentReminder  string `mapstructure:"payment_reminder"`
	PaymentConfirmed string `mapstructure:"payment_confirmed"`
}

type NotificationPolicy struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
	// PendingGrace is how long a pending outbox row may sit before the worker picks it up.
	PendingGrace time.Duration `mapstructure:"pending_grace"`
	Concurrency  int           `mapstructure:"concurrency"`
}

const (
	DefaultFeeAssignedTemplate      = "New Fee Assignment: Your child {{.ChildName}} has been assigned a fee of {{.Currency}} {{.Amount}} for {{.PeriodLabel}}. Due date: {{.DueDate}}. Please make payment before the due date."
	DefaultPaymentReminderTemplate  = "Payment Reminder: The fee of {{.Currency}} {{.Amount}} for {{.ChildName}} for {{.PeriodLabel}} was due on {{.DueDate}}. Please make the payment as soon as possible."
	DefaultPaymentConfirmedTemplate = "Payment Confirmed: We have received the payment of {{.Currency}} {{.Amount}} for {{.ChildName}} for {{.PeriodLabel}}. Transaction ID: {{.TransactionID}}. Thank you!"
)

func DefaultFeeSettings() FeeSettings {
	return FeeSettings{
		Currency:    "MVR",
		Timezone:    "UTC",
		ClassLabels: []string{"Playgroup", "Nursery", "LKG", "UKG"},
		Templates: MessageTemplates{
			FeeAssigned:      DefaultFeeAssignedTemplate,
			PaymentReminder:  DefaultPaymentReminderTemplate,
			PaymentConfirmed: DefaultPaymentConfirmedTemplate,
		},
		Notifications: NotificationPolicy{
			MaxAttempts:    5,
			InitialBackoff: time.Minute,
			MaxBackoff:     time.Hour,
			PendingGrace:   2 * time.Minute,
			Concurrency:    8,
		},
	}
}

// Location returns the school's time zone used to decide what "today" is.
func (s FeeSettings) Location() *time.Location {
	name := strings.TrimSpace(s.Timezone)
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// IsValidClass reports whether label belongs to the configured class set.
func (s FeeSettings) IsValidClass(label string) bool {
	label = strings.TrimSpace(label)
	for _, c := range s.ClassLabels {
		if strings.EqualFold(c, label) {
			return true
		}
	}
	return false
}

// CanonicalClass returns the configured spelling of label.
func (s FeeSettings) CanonicalClass(label string) string {
	label = strings.TrimSpace(label)
	for _, c := range s.ClassLabels {
		if strings.EqualFold(c, label) {
			return c
		}
	}
	return label
}

type FeeSettingsHolder struct {
	current atomic.Value // holds FeeSettings
}

// NewStaticFeeSettings returns a holder that never reloads.
func NewStaticFeeSettings(s FeeSettings) *FeeSettingsHolder {
	holder := &FeeSettingsHolder{}
	holder.current.Store(s)
	return holder
}

func NewFeeSettingsHolder() (*FeeSettingsHolder, error) {
	v := viper.New()

	v.SetConfigName("fees")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/feefriend/config")
	v.AddConfigPath("/etc/feefriend")
	v.AddConfigPath(".")

	v.SetEnvPrefix("FEEFRIEND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setFeeDefaults(v, DefaultFeeSettings())

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg FeeSettings
	if err := v.UnmarshalKey("fees", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateFeeSettings(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticFeeSettings(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated FeeSettings
		if err := v.UnmarshalKey("fees", &updated); err != nil {
			log.Printf("[fee-settings] reload failed: %v", err)
			return
		}
		if err := ValidateFeeSettings(updated); err != nil {
			log.Printf("[fee-settings] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[fee-settings] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *FeeSettingsHolder) Get() FeeSettings {
	return h.current.Load().(FeeSettings)
}

func setFeeDefaults(v *viper.Viper, d FeeSettings) {
	v.SetDefault("fees.currency", d.Currency)
	v.SetDefault("fees.timezone", d.Timezone)
	v.SetDefault("fees.classes", d.ClassLabels)
	v.SetDefault("fees.templates.fee_assigned", d.Templates.FeeAssigned)
	v.SetDefault("fees.templates.payment_reminder", d.Templates.PaymentReminder)
	v.SetDefault("fees.templates.payment_confirmed", d.Templates.PaymentConfirmed)
	v.SetDefault("fees.notifications.max_attempts", d.Notifications.MaxAttempts)
	v.SetDefault("fees.notifications.initial_backoff", d.Notifications.InitialBackoff)
	v.SetDefault("fees.notifications.max_backoff", d.Notifications.MaxBackoff)
	v.SetDefault("fees.notifications.pending_grace", d.Notifications.PendingGrace)
	v.SetDefault("fees.notifications.concurrency", d.Notifications.Concurrency)
}

func ValidateFeeSettings(cfg FeeSettings) error {
	if strings.TrimSpace(cfg.Currency) == "" {
		return errors.New("fees.currency cannot be empty")
	}
	if len(cfg.ClassLabels) == 0 {
		return errors.New("fees.classes cannot be empty")
	}
	if cfg.Notifications.MaxAttempts < 1 {
		return errors.New("fees.notifications.max_attempts must be at least 1")
	}
	if cfg.Notifications.InitialBackoff <= 0 || cfg.Notifications.MaxBackoff < cfg.Notifications.InitialBackoff {
		return errors.New("fees.notifications backoff window is invalid")
	}
	for name, text := range map[string]string{
		"fee_assigned":      cfg.Templates.FeeAssigned,
		"payment_reminder":  cfg.Templates.PaymentReminder,
		"payment_confirmed": cfg.Templates.PaymentConfirmed,
	} {
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("fees.templates.%s cannot be empty", name)
		}
		if _, err := template.New(name).Parse(text); err != nil {
			return fmt.Errorf("fees.templates.%s: %w", name, err)
		}
	}
	return nil
}
