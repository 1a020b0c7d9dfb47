// Package notify sends the customer confirmation SMS through Twilio.
// A venue without Twilio credentials runs in a valid "not configured" steady
// state where every dispatch is skipped, never failed.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-faster/errors"
	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/quickserve/kiosk/internal/domain/settlement"
)

var _ settlement.Notifier = (*Dispatcher)(nil)

// Config holds the SMS provider credentials and message context.
// Empty credentials mean the provider is not configured.
type Config struct {
	AccountSID  string
	AuthToken   string
	FromNumber  string
	CountryCode string
	VenueName   string
}

// Dispatcher implements settlement.Notifier on top of the Twilio REST API.
// The capability is resolved once at construction, not re-checked per call.
type Dispatcher struct {
	client     *twilio.RestClient
	from       string
	venueName  string
	norm       Normalizer
	configured bool
}

// NewDispatcher creates a Dispatcher. When any credential is missing the
// dispatcher is permanently in the skipped state.
func NewDispatcher(cfg Config) *Dispatcher {
	d := &Dispatcher{
		from:       cfg.FromNumber,
		venueName:  cfg.VenueName,
		norm:       NewNormalizer(cfg.CountryCode),
		configured: cfg.AccountSID != "" && cfg.AuthToken != "" && cfg.FromNumber != "",
	}
	if d.configured {
		d.client = twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
	}
	return d
}

// Configured reports whether the provider credentials are present.
func (d *Dispatcher) Configured() bool {
	return d.configured
}

// Notify sends the order confirmation message. The tri-state outcome never
// blocks settlement: a missing provider yields NotifyNotConfigured, a
// provider failure yields NotifyFailed with the cause.
func (d *Dispatcher) Notify(_ context.Context, n settlement.Notification) (settlement.NotifyStatus, error) {
	if !d.configured {
		return settlement.NotifyNotConfigured, nil
	}

	to, err := d.norm.Normalize(n.Phone)
	if err != nil {
		return settlement.NotifyFailed, errors.Wrap(err, "normalize phone")
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(d.from)
	params.SetBody(ComposeMessage(d.venueName, n))

	resp, err := d.client.Api.CreateMessage(params)
	if err != nil {
		return settlement.NotifyFailed, errors.Wrap(err, "send sms")
	}
	if resp.Sid == nil {
		return settlement.NotifyFailed, errors.New("provider returned no message id")
	}
	return settlement.NotifySent, nil
}

// ComposeMessage builds the confirmation SMS body: greeting, bill number,
// amount, and the receipt link when one exists.
func ComposeMessage(venueName string, n settlement.Notification) string {
	name := n.CustomerName
	if name == "" {
		name = "Valued Customer"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s, thank you for your order at %s!\n\n", name, venueName)
	fmt.Fprintf(&b, "Bill No: %s\n", n.BillNumber)
	fmt.Fprintf(&b, "Amount: %s\n", n.Amount.StringFixed(0))
	if n.ReceiptURL != "" {
		fmt.Fprintf(&b, "\nDownload your receipt: %s\n", n.ReceiptURL)
	}
	b.WriteString("\nVisit us again soon!")
	return b.String()
}
