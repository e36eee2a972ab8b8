// Package mail delivers the emails the server sends on its own behalf, such as login codes.
package mail

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonathan/marketing-hub/internal/templates"
)

// DefaultFrom is the sender used when none is configured.
const DefaultFrom = "Marketing Hub <noreply@example.com>"

// Message is a single outgoing email with HTML and plain-text bodies.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

// OTPMessage builds the login-code email for recipient. The greeting uses the
// local part of the address when no name is known.
func OTPMessage(from, to, name, code string, ttl time.Duration) (*Message, error) {
	return systemMessage(from, to, "otp", map[string]string{
		"name":        displayName(to, name),
		"code":        code,
		"ttl_minutes": strconv.Itoa(int(ttl / time.Minute)),
	})
}

// WelcomeMessage builds the email sent when an account is created on first login.
func WelcomeMessage(from, to, name string) (*Message, error) {
	return systemMessage(from, to, "welcome", map[string]string{"name": displayName(to, name)})
}

func displayName(to, name string) string {
	if name != "" {
		return name
	}
	if at := strings.Index(to, "@"); at > 0 {
		return to[:at]
	}
	return to
}

// systemMessage renders the <kind>_subject and <kind>_html entries of the system file.
func systemMessage(from, to, kind string, vars map[string]string) (*Message, error) {
	if from == "" {
		from = DefaultFrom
	}

	subject, err := templates.Get(templates.SystemFile, kind+"_subject")
	if err != nil {
		return nil, err
	}
	body, err := templates.Get(templates.SystemFile, kind+"_html")
	if err != nil {
		return nil, err
	}

	subject, _ = templates.Render(subject, vars)
	html, _ := templates.Render(body, vars)
	text, err := templates.PlainText(html)
	if err != nil {
		return nil, fmt.Errorf("failed to build plain-text body: %w", err)
	}

	return &Message{From: from, To: to, Subject: subject, HTML: html, Text: text}, nil
}

// LogMailer writes messages to the process log instead of delivering them.
// Development servers use it so login codes are visible in the console.
type LogMailer struct {
	// Verbose includes the plain-text body in the log line.
	Verbose bool
}

// Send implements Mailer.
func (m *LogMailer) Send(_ context.Context, msg *Message) error {
	if msg.To == "" {
		return fmt.Errorf("message has no recipient")
	}
	if m.Verbose {
		log.Printf("[mail] to=%s subject=%q\n%s", msg.To, msg.Subject, msg.Text)
		return nil
	}
	log.Printf("[mail] to=%s subject=%q", msg.To, msg.Subject)
	return nil
}

// Recorder keeps sent messages in memory. Tests use it to read delivered codes.
type Recorder struct {
	mu   sync.Mutex
	sent []*Message
	err  error
}

// Send implements Mailer. It fails with the error set by FailWith, if any.
func (r *Recorder) Send(_ context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	m := *msg
	r.sent = append(r.sent, &m)
	return nil
}

// FailWith makes subsequent sends return err. A nil err restores delivery.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Sent returns a copy of the delivered messages in send order.
func (r *Recorder) Sent() []*Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]*Message(nil), r.sent...)
}

// Last returns the most recent message sent to recipient, or nil.
func (r *Recorder) Last(to string) *Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.sent) - 1; i >= 0; i-- {
		if strings.EqualFold(r.sent[i].To, to) {
			return r.sent[i]
		}
	}
	return nil
}

var (
	_ Mailer = (*LogMailer)(nil)
	_ Mailer = (*Recorder)(nil)
)
