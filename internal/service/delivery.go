package service

import (
	"context"
	"fmt"
	"log"

	"github.com/thatlq1812/signature-system/internal/domain"
)

// OtpSender delivers a one-time code over an out-of-band channel.
// Implementations are fallible boundary I/O (email/SMS providers) and are
// swappable for testing. A delivery failure never invalidates the stored
// code; only verification logic does that.
type OtpSender interface {
	Send(ctx context.Context, recipient, code string) error
}

// Notifier informs the requester that a request reached SIGNED.
type Notifier interface {
	NotifySigned(ctx context.Context, requestedBy, signerName, documentName string) error
}

// logEmailSender writes the code to the service log instead of calling a
// real provider. Used for local development; production wires an SMTP or
// provider-backed implementation.
type logEmailSender struct{}

func NewLogEmailSender() OtpSender { return &logEmailSender{} }

func (s *logEmailSender) Send(ctx context.Context, recipient, code string) error {
	log.Printf("[otp-email] to=%s code=%s", recipient, code)
	return nil
}

type logSmsSender struct{}

func NewLogSmsSender() OtpSender { return &logSmsSender{} }

func (s *logSmsSender) Send(ctx context.Context, recipient, code string) error {
	log.Printf("[otp-sms] to=%s code=%s", recipient, code)
	return nil
}

type logNotifier struct{}

func NewLogNotifier() Notifier { return &logNotifier{} }

func (n *logNotifier) NotifySigned(ctx context.Context, requestedBy, signerName, documentName string) error {
	log.Printf("[notify] requested_by=%s: %s signed %q", requestedBy, signerName, documentName)
	return nil
}

// wrapDeliveryError tags provider failures so callers can distinguish a
// flaky channel from a wrong code.
func wrapDeliveryError(channel string, err error) error {
	return fmt.Errorf("%s delivery failed: %v: %w", channel, err, domain.ErrDeliveryFailure)
}
