package notifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
)

// SendErrorKind classifies a failed send
type SendErrorKind string

const (
	// SendInvalidContact means the destination number is unusable; retrying will not help
	SendInvalidContact SendErrorKind = "invalid_contact"
	// SendTransportFailure means the message did not go out; the caller may retry
	SendTransportFailure SendErrorKind = "transport_failure"
)

// SendError describes why a notification was not delivered
type SendError struct {
	Kind    SendErrorKind
	Contact string
	Err     error
}

func (e *SendError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("send to %s: %s: %v", e.Contact, e.Kind, e.Err)
	}
	return fmt.Sprintf("send to %s: %s", e.Contact, e.Kind)
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// Notifier sends one outbound message per confirmed call
type Notifier interface {
	Send(ctx context.Context, contact, body string) error
}

// Twilio error codes for destination numbers that can never receive the message
var invalidContactCodes = map[int]bool{
	21211: true, // invalid 'To' number
	21214: true, // 'To' number not reachable
	21408: true, // permission not enabled for region
	21614: true, // not a mobile number
}

// TwilioNotifier delivers notifications as SMS through the Twilio API
type TwilioNotifier struct {
	client *twilio.RestClient
	from   string
}

// NewTwilioNotifier creates a notifier sending from the given Twilio number
func NewTwilioNotifier(accountSID, authToken, from string, timeout time.Duration) *TwilioNotifier {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	client.SetTimeout(timeout)
	return &TwilioNotifier{client: client, from: from}
}

// Send delivers body to contact as a single SMS
func (n *TwilioNotifier) Send(ctx context.Context, contact, body string) error {
	if err := ctx.Err(); err != nil {
		return &SendError{Kind: SendTransportFailure, Contact: contact, Err: err}
	}

	params := &openapi.CreateMessageParams{}
	params.SetTo(contact)
	params.SetFrom(n.from)
	params.SetBody(body)

	if _, err := n.client.Api.CreateMessage(params); err != nil {
		if restErr, ok := err.(*twclient.TwilioRestError); ok && invalidContactCodes[restErr.Code] {
			return &SendError{Kind: SendInvalidContact, Contact: contact, Err: err}
		}
		return &SendError{Kind: SendTransportFailure, Contact: contact, Err: err}
	}
	return nil
}

var e164Re = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)

// NormalizeContact turns user phone input into an E.164 number. Bare digit
// strings get the default country prefix; anything else must already carry
// a plus-prefixed country code.
func NormalizeContact(raw, defaultPrefix string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(raw))

	if cleaned == "" {
		return "", &SendError{Kind: SendInvalidContact, Contact: raw}
	}
	if !strings.HasPrefix(cleaned, "+") {
		cleaned = defaultPrefix + cleaned
	}
	if !e164Re.MatchString(cleaned) {
		return "", &SendError{Kind: SendInvalidContact, Contact: raw}
	}
	return cleaned, nil
}
