package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const defaultDialTimeout = 30 * time.Second

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	// TLSConfig is used for STARTTLS. Nil verifies against Host.
	TLSConfig *tls.Config
	Timeout   time.Duration
}

type Attachment struct {
	Name string
	Data []byte
}

// AttachFile reads path into an attachment named after the file.
func AttachFile(path string) (Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Attachment{}, err
	}
	return Attachment{Name: filepath.Base(path), Data: data}, nil
}

type Message struct {
	From        string
	To          []string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type Mailer struct {
	cfg    Config
	logger *zap.Logger
}

func NewMailer(cfg Config, logger *zap.Logger) *Mailer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultDialTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger}
}

// Send delivers msg. STARTTLS is used when the server offers it and PLAIN
// auth when a password is configured. Failures are *DeliveryError values.
func (m *Mailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return deliveryError(ErrProtocol, "rcpt", errors.New("no recipients"))
	}
	mm, err := buildMessage(msg)
	if err != nil {
		return deliveryError(ErrProtocol, "build", err)
	}

	client, err := mail.NewClient(m.cfg.Host, m.clientOptions(msg.From)...)
	if err != nil {
		return deliveryError(ErrProtocol, "client", err)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	log := m.logger.With(zap.String("server", addr), zap.String("from", msg.From))
	log.Info("Sending report email", zap.Strings("to", msg.To), zap.Int("attachments", len(msg.Attachments)))

	if err := client.DialWithContext(ctx); err != nil {
		kind := classifyDial(err)
		return deliveryError(kind, dialOp(kind), err)
	}
	defer client.Close()

	if err := client.Send(mm); err != nil {
		kind, op := classifySend(err)
		return deliveryError(kind, op, err)
	}

	log.Info("Report email sent")
	return nil
}

func (m *Mailer) clientOptions(from string) []mail.Option {
	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(m.cfg.Timeout),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
	}
	if m.cfg.TLSConfig != nil {
		opts = append(opts, mail.WithTLSConfig(m.cfg.TLSConfig))
	}
	if m.cfg.Password != "" {
		username := m.cfg.Username
		if username == "" {
			username = from
		}
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	return opts
}

func buildMessage(msg Message) (*mail.Msg, error) {
	mm := mail.NewMsg()
	if err := mm.From(msg.From); err != nil {
		return nil, err
	}
	if err := mm.To(msg.To...); err != nil {
		return nil, err
	}
	mm.Subject(msg.Subject)
	mm.SetDate()
	mm.SetBodyString(mail.TypeTextHTML, msg.HTML)

	for _, a := range msg.Attachments {
		if err := mm.AttachReader(a.Name, bytes.NewReader(a.Data)); err != nil {
			return nil, err
		}
	}
	return mm, nil
}

// classifyDial sorts failures of the connect, STARTTLS and AUTH phase.
// PLAIN refused over a plaintext link is a transport policy failure, not a
// credential one.
func classifyDial(err error) error {
	msg := strings.ToLower(err.Error())
	var tpErr *textproto.Error
	switch {
	case strings.Contains(msg, "unencrypted connection"):
		return ErrProtocol
	case errors.As(err, &tpErr):
		if tpErr.Code >= 530 && tpErr.Code <= 535 {
			return ErrAuth
		}
		return ErrProtocol
	case strings.Contains(msg, "smtp auth failed"):
		return ErrAuth
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ErrConnect
	}
	return ErrProtocol
}

func dialOp(kind error) string {
	switch kind {
	case ErrAuth:
		return "auth"
	case ErrProtocol:
		return "handshake"
	}
	return "dial"
}

// classifySend maps a go-mail send failure to a kind and the SMTP step
// that failed.
func classifySend(err error) (error, string) {
	var sendErr *mail.SendError
	if !errors.As(err, &sendErr) {
		return ErrProtocol, "send"
	}
	switch sendErr.Reason {
	case mail.ErrConnCheck:
		return ErrConnect, "noop"
	case mail.ErrSMTPMailFrom:
		return ErrProtocol, "mail"
	case mail.ErrSMTPRcptTo:
		return ErrProtocol, "rcpt"
	case mail.ErrSMTPData, mail.ErrSMTPDataClose, mail.ErrWriteContent:
		return ErrProtocol, "data"
	}
	return ErrProtocol, "send"
}
