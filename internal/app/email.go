package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/core"
	"github.com/leozw/ssl-verifier/internal/credentials"
	"github.com/leozw/ssl-verifier/internal/notify"
	"github.com/leozw/ssl-verifier/internal/report"
	"github.com/leozw/ssl-verifier/internal/tabular"
)

var (
	ErrNoSender     = errors.New("no sender credentials: set smtp.from and smtp.password or save credentials")
	ErrNoRecipients = errors.New("no recipients: set smtp.to")
)

type Sender struct {
	Email    string
	Password string
	Provider notify.Provider
}

// ResolveSender prefers the configured smtp.from/smtp.password pair and
// falls back to the credential store.
func (a *App) ResolveSender() (*Sender, error) {
	smtp := a.Config.SMTP
	if smtp.From != "" && smtp.Password != "" {
		return &Sender{Email: smtp.From, Password: smtp.Password, Provider: notify.DetectProvider(smtp.From)}, nil
	}

	creds, err := a.Credentials.Load()
	if errors.Is(err, credentials.ErrNotFound) {
		return nil, ErrNoSender
	}
	if err != nil {
		return nil, err
	}

	provider, ok := notify.ParseProvider(creds.Provider)
	if !ok {
		provider = notify.DetectProvider(creds.Email)
	}
	return &Sender{Email: creds.Email, Password: creds.Password, Provider: provider}, nil
}

// EmailReport sends the HTML summary of b with the report files that exist
// attached.
func (a *App) EmailReport(ctx context.Context, b *core.BatchResult, files tabular.ReportFiles) error {
	recipients := a.Config.SMTP.Recipients()
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	sender, err := a.ResolveSender()
	if err != nil {
		return err
	}

	html, err := report.RenderHTML(b)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	var attachments []notify.Attachment
	for _, path := range files.All() {
		att, err := notify.AttachFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return fmt.Errorf("attach %s: %w", path, err)
		}
		attachments = append(attachments, att)
	}

	host, port := sender.Provider.Server(a.Config.SMTP.Host, a.Config.SMTP.Port)
	a.Logger.Info("Sending report",
		zap.String("provider", string(sender.Provider)),
		zap.String("server", host),
		zap.Int("port", port),
		zap.Strings("to", recipients),
		zap.Int("attachments", len(attachments)),
	)

	mailer := notify.NewMailer(notify.Config{
		Host:     host,
		Port:     port,
		Username: sender.Email,
		Password: sender.Password,
	}, a.Logger)

	return mailer.Send(ctx, notify.Message{
		From:        sender.Email,
		To:          recipients,
		Subject:     report.Subject(b.CheckedAt),
		HTML:        html,
		Attachments: attachments,
	})
}
