package notify

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/emersion/go-message/mail"

	"socdash/internal/config"
)

func TestBuildInvitationMessage(t *testing.T) {
	link := "http://localhost:3000/activate?token=abc123"
	raw, err := BuildInvitationMessage(
		"SOC Dashboard <noreply@example.com>",
		"analyst@example.com",
		"analyst",
		link,
	)
	if err != nil {
		t.Fatalf("build message: %v", err)
	}

	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("parse message: %v", err)
	}
	defer mr.Close()

	if subj, err := mr.Header.Subject(); err != nil || subj == "" {
		t.Fatalf("expected a subject, got %q err=%v", subj, err)
	}
	to, err := mr.Header.AddressList("To")
	if err != nil || len(to) != 1 || to[0].Address != "analyst@example.com" {
		t.Fatalf("unexpected To header: %v err=%v", to, err)
	}
	from, err := mr.Header.AddressList("From")
	if err != nil || len(from) != 1 || from[0].Address != "noreply@example.com" {
		t.Fatalf("unexpected From header: %v err=%v", from, err)
	}

	var contentTypes []string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next part: %v", err)
		}
		ih, ok := p.Header.(*mail.InlineHeader)
		if !ok {
			t.Fatalf("unexpected part header %T", p.Header)
		}
		ct, _, err := ih.ContentType()
		if err != nil {
			t.Fatalf("part content type: %v", err)
		}
		contentTypes = append(contentTypes, ct)

		body, err := io.ReadAll(p.Body)
		if err != nil {
			t.Fatalf("read part: %v", err)
		}
		if !strings.Contains(string(body), link) {
			t.Fatalf("part %s misses activation link: %s", ct, body)
		}
		if !strings.Contains(string(body), "analyst") {
			t.Fatalf("part %s misses role: %s", ct, body)
		}
	}
	if len(contentTypes) != 2 || contentTypes[0] != "text/plain" || contentTypes[1] != "text/html" {
		t.Fatalf("expected text and html alternatives, got %v", contentTypes)
	}
}

func TestNewSenderSelection(t *testing.T) {
	if _, ok := NewSender(config.Config{InviteSender: "log"}).(LogSender); !ok {
		t.Fatalf("expected LogSender for log mode")
	}
	if _, ok := NewSender(config.Config{InviteSender: "smtp"}).(SMTPSender); !ok {
		t.Fatalf("expected SMTPSender for smtp mode")
	}
}
