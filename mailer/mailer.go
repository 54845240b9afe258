// Package mailer implements the bulk-mail composer: parsing recipient
// lists and substituting per-recipient placeholders into a shared
// template. Actual delivery is out of scope; the Sender only logs what
// would go out and reports the count.
package mailer

import (
	"strings"

	"go.uber.org/zap"
)

// Recipient is one entry of the pasted recipient list.
type Recipient struct {
	Email    string
	FullName string
}

// Vars are the five free-form template variables shared by every
// recipient of a campaign.
type Vars [5]string

// ParseRecipients reads a newline-separated list in the form
// "email@example.com, Full Name". Lines without both parts are skipped.
func ParseRecipients(text string) []Recipient {
	var recipients []Recipient
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		if len(parts) != 2 {
			continue
		}
		email := strings.TrimSpace(parts[0])
		fullName := strings.TrimSpace(parts[1])
		if email == "" {
			continue
		}
		recipients = append(recipients, Recipient{Email: email, FullName: fullName})
	}
	return recipients
}

// Personalize substitutes the %<...> placeholders of a campaign template
// for one recipient. Unknown placeholders are left as-is.
func Personalize(content string, r Recipient, vars Vars) string {
	return strings.NewReplacer(
		"%<email>", r.Email,
		"%<full_name>", r.FullName,
		"%<var_1>", vars[0],
		"%<var_2>", vars[1],
		"%<var_3>", vars[2],
		"%<var_4>", vars[3],
		"%<var_5>", vars[4],
	).Replace(content)
}

// Sender composes and "sends" a campaign. Delivery is a log line per
// recipient until a real mail backend is wired in.
type Sender struct {
	log *zap.Logger
}

// NewSender creates a Sender logging through the given logger.
func NewSender(log *zap.Logger) *Sender {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sender{log: log}
}

// SendBulk personalizes content for every recipient and returns how many
// mails were composed.
func (s *Sender) SendBulk(recipients []Recipient, content string, vars Vars) int {
	sent := 0
	for _, r := range recipients {
		personalized := Personalize(content, r, vars)
		s.log.Info("sending mail",
			zap.String("to", r.Email),
			zap.String("name", r.FullName),
			zap.Int("bytes", len(personalized)))
		sent++
	}
	return sent
}
