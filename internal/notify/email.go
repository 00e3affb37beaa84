package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"
)

// EmailSender отправка одного письма
type EmailSender interface {
	Send(ctx context.Context, to []string, subject, htmlBody string) error
}

// ResendSender отправляет письма через Resend
type ResendSender struct {
	client *resend.Client
	from   string
}

func NewResendSender(apiKey, from string) *ResendSender {
	return &ResendSender{client: resend.NewClient(apiKey), from: from}
}

func (s *ResendSender) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    htmlBody,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}

type Email struct {
	sender EmailSender
	users  UserDirectory
}

func NewEmail(sender EmailSender, users UserDirectory) *Email {
	return &Email{sender: sender, users: users}
}

func (e *Email) Notify(ctx context.Context, event Event) error {
	users, err := e.users.GetByIDs(ctx, event.Recipients)
	if err != nil {
		return fmt.Errorf("get recipients: %w", err)
	}

	var to []string
	for _, id := range event.Recipients {
		if u := users[id]; u != nil && u.Email != "" {
			to = append(to, u.Email)
		}
	}
	if len(to) == 0 {
		return nil
	}

	return e.sender.Send(ctx, to, Subject(event), textToHTML(Text(event)))
}

func textToHTML(text string) string {
	lines := strings.Split(html.EscapeString(text), "\n")
	return "<p>" + strings.Join(lines, "<br>") + "</p>"
}
