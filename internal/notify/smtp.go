package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

// SMTPSender sends email through a workspace-configured SMTP relay.
// Workspaces bring their own relay credentials; the config is validated when
// stored, so a non-nil config here is assumed well formed.
type SMTPSender struct {
	cfg    *workspace.EmailConfig
	logger *logging.Logger

	// sendMail is swappable in tests.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender creates a sender for the given workspace SMTP config.
// Returns nil when the config is nil.
func NewSMTPSender(cfg *workspace.EmailConfig, logger *logging.Logger) *SMTPSender {
	if cfg == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SMTPSender{cfg: cfg, logger: logger, sendMail: smtp.SendMail}
}

// Send delivers the message through the relay. The context is consulted
// before dialing; net/smtp does not support mid-send cancellation.
func (s *SMTPSender) Send(ctx context.Context, msg EmailMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	from := s.cfg.FromEmail
	fromHeader := from
	if s.cfg.FromName != "" {
		fromHeader = fmt.Sprintf("%s <%s>", s.cfg.FromName, from)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", fromHeader)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	if msg.HTML != "" {
		b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.HTML)
	} else {
		b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
		b.WriteString(msg.Body)
	}

	if err := s.sendMail(addr, auth, from, []string{msg.To}, []byte(b.String())); err != nil {
		return fmt.Errorf("notify: smtp send failed: %w", err)
	}

	s.logger.Info("email sent via workspace smtp", "to", msg.To, "relay", addr)
	return nil
}

var _ EmailSender = (*SMTPSender)(nil)

// Resolver picks the email sender for a workspace: the workspace's own SMTP
// relay when configured, otherwise the platform sender. Returns nil when
// neither exists; callers treat nil as "email unconfigured" and skip.
type Resolver struct {
	platform EmailSender
	logger   *logging.Logger
}

// NewResolver creates a resolver with an optional platform-wide sender.
func NewResolver(platform EmailSender, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{platform: platform, logger: logger}
}

// ForWorkspace returns the sender to use for the given workspace.
func (r *Resolver) ForWorkspace(ws *workspace.Workspace) EmailSender {
	if ws != nil && ws.EmailConfig != nil {
		if sender := NewSMTPSender(ws.EmailConfig, r.logger); sender != nil {
			return sender
		}
	}
	return r.platform
}
