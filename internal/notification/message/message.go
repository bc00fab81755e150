// Package message renders the SMS texts sent for fee lifecycle events.
package message

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/config"
	"github.com/Wafapreschool/lovalance-fee-friend-sub000/internal/notification/domain"
	"github.com/shopspring/decimal"
)

// DueDateLayout prints dates as M/D/YYYY, e.g. 3/15/2025.
const DueDateLayout = "1/2/2006"

type Data struct {
	ChildName     string
	Currency      string
	Amount        string
	PeriodLabel   string
	DueDate       string
	TransactionID string
}

// FeeData fills Data from fee fields; the currency comes from settings.
func FeeData(settings config.FeeSettings, childName string, amount decimal.Decimal, periodLabel string, dueDate time.Time) Data {
	return Data{
		ChildName:   childName,
		Currency:    settings.Currency,
		Amount:      amount.String(),
		PeriodLabel: periodLabel,
		DueDate:     dueDate.Format(DueDateLayout),
	}
}

func Render(t domain.Type, templates config.MessageTemplates, data Data) (string, error) {
	var text string
	switch t {
	case domain.TypeFeeAssigned:
		text = templates.FeeAssigned
	case domain.TypePaymentReminder:
		text = templates.PaymentReminder
	case domain.TypePaymentConfirmed:
		text = templates.PaymentConfirmed
	default:
		return "", domain.ErrInvalidType
	}

	tmpl, err := template.New(string(t)).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse %s template: %w", t, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s template: %w", t, err)
	}
	return buf.String(), nil
}
