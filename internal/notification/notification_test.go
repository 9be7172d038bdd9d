package notification

import (
	"testing"
)

type recordingNotifier struct {
	enabled bool
	sent    []*Notification
}

func (r *recordingNotifier) Send(n *Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

func (r *recordingNotifier) Name() string    { return "recording" }
func (r *recordingNotifier) IsEnabled() bool { return r.enabled }

func TestManagerFanOut(t *testing.T) {
	active := &recordingNotifier{enabled: true}
	inactive := &recordingNotifier{enabled: false}

	m := NewManager()
	m.AddNotifier(active)
	m.AddNotifier(inactive)

	if err := m.SendProposal("XAUUSD", "BULLISH", 101, 99.25, 0.5, false, "swept 99.5, broke 102"); err != nil {
		t.Fatalf("SendProposal: %v", err)
	}

	if len(active.sent) != 1 {
		t.Fatalf("expected 1 notification on active notifier, got %d", len(active.sent))
	}
	if len(inactive.sent) != 0 {
		t.Errorf("disabled notifier should not receive notifications")
	}

	n := active.sent[0]
	if n.Type != NotifyProposal || n.Symbol != "XAUUSD" || n.Price != 101 {
		t.Errorf("unexpected notification %+v", n)
	}
}

func TestZeroSizeProposalFlagged(t *testing.T) {
	rec := &recordingNotifier{enabled: true}
	m := NewManager()
	m.AddNotifier(rec)

	if err := m.SendProposal("EURUSD", "BEARISH", 1.085, 1.0875, 0, true, "zone 1.084-1.085"); err != nil {
		t.Fatalf("SendProposal: %v", err)
	}

	if len(rec.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(rec.sent))
	}
	if rec.sent[0].Extra["zero_size"] != true {
		t.Errorf("zero size flag should be carried in extras")
	}
}

func TestDisabledProvidersStaySilent(t *testing.T) {
	tg := NewTelegramNotifier(TelegramConfig{Enabled: true})
	if tg.IsEnabled() {
		t.Error("telegram without credentials should be disabled")
	}

	dc := NewDiscordNotifier(DiscordConfig{Enabled: true})
	if dc.IsEnabled() {
		t.Error("discord without a webhook should be disabled")
	}

	if err := tg.Send(&Notification{Title: "x"}); err != nil {
		t.Errorf("disabled telegram Send should be a no-op, got %v", err)
	}
	if err := dc.Send(&Notification{Title: "x"}); err != nil {
		t.Errorf("disabled discord Send should be a no-op, got %v", err)
	}
}
