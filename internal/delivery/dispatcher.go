package delivery

import (
	"context"
	"errors"

	"github.com/obentoo/aptaudit/internal/common/logger"
)

// Envelope carries the message fields that do not depend on the document.
type Envelope struct {
	From    string
	To      []string
	Subject string
	HTML    bool
}

// Outcome records what happened to one document.
type Outcome struct {
	// SavedPath is the absolute path of the written file, empty when nothing was saved
	SavedPath string
	// Mailed is true when the mailer accepted the message
	Mailed bool
	// MailErr is the mail failure, if mail was attempted
	MailErr error
	// SaveErr is the file write failure, if a write was attempted
	SaveErr error
}

// Delivered reports whether the document reached at least one destination.
func (o Outcome) Delivered() bool {
	return o.Mailed || o.SavedPath != ""
}

// Err returns ErrNothingDelivered joined with the underlying failures, or nil.
func (o Outcome) Err() error {
	if o.Delivered() {
		return nil
	}
	return errors.Join(ErrNothingDelivered, o.MailErr, o.SaveErr)
}

// Dispatcher routes a rendered document to its targets.
type Dispatcher struct {
	target   Target
	output   string
	mailer   Mailer
	envelope Envelope
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithMailer sets the mailer used for mail and both targets.
func WithMailer(m Mailer) Option {
	return func(d *Dispatcher) {
		d.mailer = m
	}
}

// WithEnvelope sets the sender, recipients, subject and body type of mailed reports.
func WithEnvelope(e Envelope) Option {
	return func(d *Dispatcher) {
		d.envelope = e
	}
}

// NewDispatcher creates a dispatcher that saves to output when a file is needed.
func NewDispatcher(target Target, output string, opts ...Option) *Dispatcher {
	d := &Dispatcher{target: target, output: output}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Deliver sends doc to the configured target.
// For mail, a failed send falls back to saving the file. For both, the file
// is written first and a mail failure is only reported.
func (d *Dispatcher) Deliver(ctx context.Context, doc string) Outcome {
	var out Outcome

	if d.target.Saves() {
		d.save(doc, &out)
	}

	if d.target.Mails() {
		out.MailErr = d.mail(ctx, doc)
		if out.MailErr == nil {
			out.Mailed = true
			logger.Info("Report mailed to %v", d.envelope.To)
		} else {
			logger.Warn("%v", out.MailErr)
			if !d.target.Saves() {
				logger.Warn("Saving the report to %s instead", d.output)
				d.save(doc, &out)
			}
		}
	}

	return out
}

func (d *Dispatcher) save(doc string, out *Outcome) {
	path, err := WriteAtomic(d.output, []byte(doc))
	if err != nil {
		out.SaveErr = err
		logger.Warn("%v", err)
		return
	}
	out.SavedPath = path
	logger.Info("Report saved to %s", path)
}

func (d *Dispatcher) mail(ctx context.Context, doc string) error {
	if d.mailer == nil {
		return ErrNoMailer
	}
	if len(d.envelope.To) == 0 {
		return ErrNoRecipient
	}
	return d.mailer.Send(ctx, Message{
		From:    d.envelope.From,
		To:      d.envelope.To,
		Subject: d.envelope.Subject,
		HTML:    d.envelope.HTML,
		Body:    doc,
	})
}
