// Package email sends workflow notifications over SMTP.
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/smtp"
	"strings"

	"github.com/robert-strong/speak-about-ai-website-sub005/internal/views"
	"github.com/robert-strong/speak-about-ai-website-sub005/internal/workflow"
	"github.com/robert-strong/speak-about-ai-website-sub005/shared/models"
)

// Config holds SMTP configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	// Agency receives response and confirmation notices.
	Agency string
}

// sendFunc matches smtp.SendMail.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Service implements the proposal and firm offer notifiers.
type Service struct {
	config   Config
	sendMail sendFunc
}

// NewService creates a new email service.
func NewService(config Config) *Service {
	return &Service{
		config:   config,
		sendMail: smtp.SendMail,
	}
}

// IsConfigured returns true if SMTP is configured.
func (s *Service) IsConfigured() bool {
	return s.config.Host != "" && s.config.From != ""
}

// message is the data every template receives.
type message struct {
	Heading  string
	Greeting string
	Lines    []string
	Link     string
	Button   string
}

// ProposalSent emails the client a link to their proposal.
func (s *Service) ProposalSent(ctx context.Context, p *models.Proposal, link string) error {
	greeting := "Hello,"
	if p.ClientName != "" {
		greeting = fmt.Sprintf("Hi %s,", firstName(p.ClientName))
	}
	lines := []string{
		fmt.Sprintf("Your speaker proposal for %s is ready for review.", orDefault(p.EventTitle, "your event")),
		fmt.Sprintf("Proposal %s totals %s and is valid through %s.", p.ProposalNumber, views.FormatMoney(p.Total), views.FormatDate(p.ValidUntil)),
	}
	return s.deliver(ctx, p.ClientEmail, "Your proposal "+p.ProposalNumber, message{
		Heading:  "Your Speaker Proposal",
		Greeting: greeting,
		Lines:    lines,
		Link:     link,
		Button:   "Review Proposal",
	})
}

// ProposalResponded tells the agency a client accepted or declined.
func (s *Service) ProposalResponded(ctx context.Context, p *models.Proposal, link string) error {
	verb, who, note := "declined", deref(p.RejectedBy), deref(p.RejectionReason)
	if p.Status == workflow.ProposalAccepted {
		verb, who, note = "accepted", deref(p.AcceptedBy), deref(p.AcceptanceNotes)
	}
	lines := []string{
		fmt.Sprintf("%s (%s) %s proposal %s for %s.", orDefault(who, p.ClientName), p.ClientCompany, verb, p.ProposalNumber, p.EventTitle),
	}
	if note != "" {
		lines = append(lines, "Note: "+note)
	}
	return s.deliver(ctx, s.config.Agency, fmt.Sprintf("Proposal %s %s", p.ProposalNumber, verb), message{
		Heading: "Proposal " + strings.ToUpper(verb[:1]) + verb[1:],
		Lines:   lines,
		Link:    link,
		Button:  "View Proposal",
	})
}

// OfferSent emails the speaker their firm offer review link.
func (s *Service) OfferSent(ctx context.Context, o *models.FirmOffer, link string) error {
	greeting := "Hello,"
	if o.SpeakerProgram.SpeakerName != "" {
		greeting = fmt.Sprintf("Hi %s,", firstName(o.SpeakerProgram.SpeakerName))
	}
	event := o.EventOverview.EventName
	if event == "" && o.Parent != nil {
		event = o.Parent.EventTitle
	}
	lines := []string{
		fmt.Sprintf("We have a firm offer for %s. Please review the details and confirm or decline.", orDefault(event, "an upcoming event")),
	}
	if o.FinancialDetails.SpeakerFee > 0 {
		lines = append(lines, "Speaker fee: "+views.FormatMoney(o.FinancialDetails.SpeakerFee))
	}
	return s.deliver(ctx, o.SpeakerProgram.SpeakerEmail, "Firm offer: "+orDefault(event, "speaking engagement"), message{
		Heading:  "Firm Offer for Review",
		Greeting: greeting,
		Lines:    lines,
		Link:     link,
		Button:   "Review Offer",
	})
}

// OfferResponded tells the agency the speaker answered.
func (s *Service) OfferResponded(ctx context.Context, o *models.FirmOffer, link string) error {
	verb := "declined"
	if o.SpeakerConfirmed != nil && *o.SpeakerConfirmed {
		verb = "confirmed"
	}
	lines := []string{
		fmt.Sprintf("%s %s firm offer #%d for %s.", orDefault(o.SpeakerProgram.SpeakerName, "The speaker"), verb, o.ID, o.EventOverview.EventName),
	}
	if notes := deref(o.SpeakerNotes); notes != "" {
		lines = append(lines, "Notes: "+notes)
	}
	return s.deliver(ctx, s.config.Agency, fmt.Sprintf("Firm offer #%d %s", o.ID, verb), message{
		Heading: "Speaker Response",
		Lines:   lines,
		Link:    link,
		Button:  "View Offer",
	})
}

// ConfirmationSubmitted tells the agency a client finished the wizard.
func (s *Service) ConfirmationSubmitted(ctx context.Context, o *models.FirmOffer, p *models.Proposal) error {
	c := o.Confirmation
	lines := []string{
		fmt.Sprintf("%s <%s> submitted event details for %s (%s).", c.SubmittedBy, c.SubmittedEmail, p.EventTitle, p.ProposalNumber),
		fmt.Sprintf("Draft firm offer #%d is ready to review and send to the speaker.", o.ID),
	}
	return s.deliver(ctx, s.config.Agency, "Event details submitted for "+p.ProposalNumber, message{
		Heading: "Confirmation Submitted",
		Lines:   lines,
	})
}

// deliver renders and sends a message, skipping when SMTP is unset or the
// recipient is unknown.
func (s *Service) deliver(ctx context.Context, to, subject string, msg message) error {
	if !s.IsConfigured() {
		slog.InfoContext(ctx, "email not configured, skipping", "subject", subject)
		return nil
	}
	if to == "" {
		slog.WarnContext(ctx, "no recipient, skipping email", "subject", subject)
		return nil
	}

	body, err := render(msg)
	if err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}
	if err := s.send(to, subject, body); err != nil {
		return err
	}
	slog.InfoContext(ctx, "sent email", "subject", subject)
	return nil
}

// send sends an email via SMTP.
func (s *Service) send(to, subject, htmlBody string) error {
	var auth smtp.Auth
	if s.config.User != "" {
		auth = smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)
	}

	headers := [][2]string{
		{"From", s.config.From},
		{"To", to},
		{"Subject", subject},
		{"MIME-Version", "1.0"},
		{"Content-Type", "text/html; charset=UTF-8"},
	}

	var b strings.Builder
	for _, h := range headers {
		fmt.Fprintf(&b, "%s: %s\r\n", h[0], h[1])
	}
	b.WriteString("\r\n")
	b.WriteString(htmlBody)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	if err := s.sendMail(addr, auth, s.config.From, []string{to}, []byte(b.String())); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}

const layout = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #1f2937; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #1E68C6; color: white; padding: 20px; border-radius: 8px 8px 0 0; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .btn { display: inline-block; background: #1E68C6; color: white; padding: 12px 24px; border-radius: 6px; text-decoration: none; margin-top: 16px; }
        .footer { padding: 20px; text-align: center; color: #6b7280; font-size: 12px; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header"><h1 style="margin: 0; font-size: 22px;">{{.Heading}}</h1></div>
        <div class="content">
            {{with .Greeting}}<p>{{.}}</p>{{end}}
            {{range .Lines}}<p>{{.}}</p>{{end}}
            {{if .Link}}<div style="text-align: center;"><a href="{{.Link}}" class="btn">{{.Button}}</a></div>{{end}}
        </div>
        <div class="footer"><p>Speak About AI</p></div>
    </div>
</body>
</html>
`

var tmpl = template.Must(template.New("email").Parse(layout))

func render(msg message) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, msg); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func firstName(full string) string {
	if f := strings.Fields(full); len(f) > 0 {
		return f[0]
	}
	return full
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
