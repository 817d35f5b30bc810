package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/careops/platform/internal/workspace"
	"github.com/careops/platform/pkg/logging"
)

func TestSMTPSenderBuildsMessage(t *testing.T) {
	cfg := &workspace.EmailConfig{
		Host:      "smtp.example.com",
		Port:      587,
		Username:  "ops",
		Password:  "secret",
		FromEmail: "hello@clinic.com",
		FromName:  "River Dental",
	}
	sender := NewSMTPSender(cfg, logging.Default())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	sender.sendMail = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	err := sender.Send(context.Background(), EmailMessage{
		To:      "pat@example.com",
		Subject: "Booking confirmed",
		Body:    "See you Monday at 09:00.",
	})
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if gotAddr != "smtp.example.com:587" {
		t.Errorf("expected relay addr, got %s", gotAddr)
	}
	if gotFrom != "hello@clinic.com" {
		t.Errorf("expected from address, got %s", gotFrom)
	}
	if len(gotTo) != 1 || gotTo[0] != "pat@example.com" {
		t.Errorf("expected single recipient, got %v", gotTo)
	}
	body := string(gotMsg)
	if !strings.Contains(body, "Subject: Booking confirmed") {
		t.Errorf("expected subject header in message: %s", body)
	}
	if !strings.Contains(body, "From: River Dental <hello@clinic.com>") {
		t.Errorf("expected display-name from header in message: %s", body)
	}
	if !strings.Contains(body, "See you Monday at 09:00.") {
		t.Errorf("expected body in message: %s", body)
	}
}

func TestSMTPSenderNilConfig(t *testing.T) {
	if sender := NewSMTPSender(nil, nil); sender != nil {
		t.Fatal("expected nil sender for nil config")
	}
}

func TestSMTPSenderCancelledContext(t *testing.T) {
	cfg := &workspace.EmailConfig{Host: "smtp.example.com", Port: 587, FromEmail: "a@b.c"}
	sender := NewSMTPSender(cfg, nil)
	sender.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("sendMail should not be reached with a cancelled context")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sender.Send(ctx, EmailMessage{To: "x@y.z"}); err == nil {
		t.Fatal("expected context error")
	}
}

func TestResolverPrefersWorkspaceSMTP(t *testing.T) {
	platform := NewStubEmailSender(nil)
	resolver := NewResolver(platform, nil)

	ws := &workspace.Workspace{
		EmailConfig: &workspace.EmailConfig{Host: "smtp.example.com", Port: 25, FromEmail: "a@b.c"},
	}
	if _, ok := resolver.ForWorkspace(ws).(*SMTPSender); !ok {
		t.Fatal("expected workspace smtp sender")
	}

	if got := resolver.ForWorkspace(&workspace.Workspace{}); got != EmailSender(platform) {
		t.Fatal("expected platform sender fallback")
	}

	bare := NewResolver(nil, nil)
	if got := bare.ForWorkspace(&workspace.Workspace{}); got != nil {
		t.Fatal("expected nil sender when nothing configured")
	}
}
