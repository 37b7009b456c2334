// Package delivery hands a rendered report to the local mail system and/or the filesystem.
package delivery

import (
	"errors"
	"fmt"
	"strings"
)

// Error variables for delivery errors
var (
	// ErrInvalidTarget is returned for a target other than file, mail or both
	ErrInvalidTarget = errors.New("invalid delivery target")
	// ErrNoMailer is returned when mail delivery is requested without a mailer
	ErrNoMailer = errors.New("no mailer configured")
	// ErrNoRecipient is returned when a message has no recipient
	ErrNoRecipient = errors.New("no mail recipient")
	// ErrMailFailed wraps every mailer failure
	ErrMailFailed = errors.New("mail delivery failed")
	// ErrSaveFailed wraps every file write failure
	ErrSaveFailed = errors.New("saving report failed")
	// ErrNothingDelivered is returned when the report was neither mailed nor saved
	ErrNothingDelivered = errors.New("report was neither mailed nor saved")
)

// Target selects where a report goes.
type Target string

// Delivery targets
const (
	TargetFile Target = "file"
	TargetMail Target = "mail"
	TargetBoth Target = "both"
)

// ParseTarget parses a delivery target name.
func ParseTarget(s string) (Target, error) {
	switch t := Target(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetFile, TargetMail, TargetBoth:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q (want file, mail or both)", ErrInvalidTarget, s)
	}
}

// Mails reports whether the target includes mail.
func (t Target) Mails() bool {
	return t == TargetMail || t == TargetBoth
}

// Saves reports whether the target always writes a file.
func (t Target) Saves() bool {
	return t == TargetFile || t == TargetBoth
}
