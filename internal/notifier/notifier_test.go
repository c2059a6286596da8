package notifier

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

type stubSender struct {
	sent []EmailMessage
	err  error
}

func (s *stubSender) Send(_ context.Context, msg EmailMessage) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func TestEmailNotifierSendsPerReminder(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	n := NewEmailNotifier(EmailConfig{From: "noreply@example.com"}, sender)

	reminders := []Reminder{
		{Email: "a@example.com", Day: "2025-06-01"},
		{Email: "b@example.com", Day: "2025-06-01"},
	}
	if err := n.Notify(context.Background(), reminders); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(sender.sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sender.sent))
	}
	first := sender.sent[0]
	if len(first.To) != 1 || first.To[0] != "a@example.com" {
		t.Fatalf("unexpected recipient: %v", first.To)
	}
	if first.Subject != "Daily wellness check-in" {
		t.Fatalf("unexpected default subject: %q", first.Subject)
	}
	if !strings.Contains(first.Body, "2025-06-01") {
		t.Fatalf("body missing day: %q", first.Body)
	}
}

func TestEmailNotifierSkipsEmpty(t *testing.T) {
	t.Parallel()

	sender := &stubSender{}
	n := NewEmailNotifier(EmailConfig{}, sender)
	if err := n.Notify(context.Background(), nil); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("expected no messages, got %d", len(sender.sent))
	}
}

func TestEmailNotifierSendFailure(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("smtp down")
	n := NewEmailNotifier(EmailConfig{}, &stubSender{err: wantErr})
	err := n.Notify(context.Background(), []Reminder{{Email: "a@example.com", Day: "2025-06-01"}})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped send error, got %v", err)
	}
}

func TestLogNotifierPrints(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	n := NewLogNotifier(log.New(&buf, "", 0))
	reminders := []Reminder{{Email: "a@example.com", Day: "2025-06-01"}}
	if err := n.Notify(context.Background(), reminders); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if !strings.Contains(buf.String(), "a@example.com") {
		t.Fatalf("log output missing email: %q", buf.String())
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(_ context.Context, _ []Reminder) error {
	s.calls++
	return s.err
}

func TestMultiNotifierFanOut(t *testing.T) {
	t.Parallel()

	first := &stubNotifier{err: errors.New("boom")}
	second := &stubNotifier{}
	n := NewMultiNotifier(first, nil, second)

	err := n.Notify(context.Background(), []Reminder{{Email: "a@example.com", Day: "2025-06-01"}})
	if !errors.Is(err, first.err) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Fatalf("expected both notifiers called, got %d and %d", first.calls, second.calls)
	}
}

func TestBuildEmailData(t *testing.T) {
	t.Parallel()

	data := buildEmailData(EmailMessage{
		From:    "noreply@example.com",
		To:      []string{"a@example.com"},
		Subject: "hello",
		Body:    "body",
	})
	for _, want := range []string{"From: noreply@example.com", "To: a@example.com", "Subject: hello", "body"} {
		if !strings.Contains(data, want) {
			t.Fatalf("data missing %q: %q", want, data)
		}
	}
}
