package template

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	InvoiceNotification = "INVOICE_NOTIFICATION"
	PaymentConfirmation = "PAYMENT_CONFIRMATION"
	PaymentReminder     = "PAYMENT_REMINDER"
	BroadcastAlert      = "BROADCAST_ALERT"
)

var placeholderRe = regexp.MustCompile(`\{[a-zA-Z]+\}`)

var templates = map[string]string{
	InvoiceNotification: `*📋 INVOICE NOTIFICATION*
━━━━━━━━━━━━━━━━━━━━━

Dear *{userName}*,

Your invoice has been generated.

*📊 INVOICE DETAILS*
━━━━━━━━━━━━
• *Invoice ID:* {formattedId}
• *Package:* {packageName} {packageSpeed}
• *Billing Period:* {billingPeriod}
• *Amount:* {amount}
• *Due Date:* {dueDate}

*🔗 VIEW INVOICE*
━━━━━━━━━━━━
Click here to view your invoice:
{invoiceLink}

Please make payment before the due date to avoid service interruption.

Thank you for choosing WeCloud Internet Services! 🌟`,

	PaymentConfirmation: `*💰 PAYMENT CONFIRMATION*
━━━━━━━━━━━━━━━━━━━━━

Dear *{userName}*,

We have received your payment of *{amount}* for invoice *#{formattedId}*.

Thank you for your business! 🌟

WeCloud Internet Services`,

	PaymentReminder: `*⚠️ PAYMENT REMINDER*
━━━━━━━━━━━━━━━━━━━━━

Dear *{userName}*,

This is a friendly reminder that your invoice #{formattedId} is due soon.

*📊 INVOICE DETAILS*
━━━━━━━━━━━━
• *Amount Due:* {amount}
• *Due Date:* {dueDate}

*🔗 VIEW INVOICE*
━━━━━━━━━━━━
Click here to view your invoice:
{invoiceLink}

Please make payment before the due date to avoid service interruption.

Thank you for choosing WeCloud Internet Services! 🌟`,

	BroadcastAlert: `*📢 IMPORTANT NOTICE*
━━━━━━━━━━━━━━━━━━━━━

Dear *{userName}*,

{message}

Thank you for choosing WeCloud Internet Services! 🌟`,
}

// Render substitutes the given fields into the named template. Placeholders
// with no matching field render as an empty string, never the raw token.
func Render(name string, fields map[string]string) string {
	tpl, ok := templates[name]
	if !ok {
		return ""
	}

	for key, value := range fields {
		tpl = strings.ReplaceAll(tpl, "{"+key+"}", value)
	}

	return placeholderRe.ReplaceAllString(tpl, "")
}

// FormatAmount renders a money value like "PKR 1,500.00".
func FormatAmount(amount decimal.Decimal) string {
	fixed := amount.StringFixed(2)

	parts := strings.SplitN(fixed, ".", 2)
	whole := parts[0]

	negative := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")

	var grouped strings.Builder
	for i, digit := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String()
	if len(parts) == 2 {
		out += "." + parts[1]
	}
	if negative {
		out = "-" + out
	}
	return "PKR " + out
}

// FormatLongDate renders a date like "June 10, 2025".
func FormatLongDate(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("January 2, 2006")
}

// FormatBillingPeriod renders a 0-indexed month and year like "June 2025".
func FormatBillingPeriod(month, year int) string {
	if month < 0 || month > 11 {
		return ""
	}
	return fmt.Sprintf("%s %d", time.Month(month+1).String(), year)
}
