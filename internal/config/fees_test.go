package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFeeSettingsAreValid(t *testing.T) {
	require.NoError(t, ValidateFeeSettings(DefaultFeeSettings()))
}

func TestValidateFeeSettingsRejectsBrokenTemplate(t *testing.T) {
	cfg := DefaultFeeSettings()
	cfg.Templates.PaymentReminder = "{{.ChildName"

	err := ValidateFeeSettings(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "payment_reminder")
}

func TestValidateFeeSettingsRejectsBackoffWindow(t *testing.T) {
	cfg := DefaultFeeSettings()
	cfg.Notifications.MaxBackoff = 10 * time.Second

	assert.Error(t, ValidateFeeSettings(cfg))
}

func TestClassLabelsMatchCaseInsensitively(t *testing.T) {
	cfg := DefaultFeeSettings()

	assert.True(t, cfg.IsValidClass("lkg"))
	assert.Equal(t, "LKG", cfg.CanonicalClass(" lkg "))
	assert.False(t, cfg.IsValidClass("Grade 1"))
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultFeeSettings()
	cfg.Timezone = "Not/AZone"

	assert.Equal(t, time.UTC, cfg.Location())
}

func TestStaticHolderReturnsStoredSettings(t *testing.T) {
	cfg := DefaultFeeSettings()
	cfg.Currency = "USD"

	holder := NewStaticFeeSettings(cfg)
	assert.Equal(t, "USD", holder.Get().Currency)
}
