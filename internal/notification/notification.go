package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotificationType represents the type of notification
type NotificationType string

const (
	NotifyProposal  NotificationType = "proposal"
	NotifyDecision  NotificationType = "decision"
	NotifyExecution NotificationType = "execution"
	NotifyError     NotificationType = "error"
	NotifyInfo      NotificationType = "info"
)

// Notification represents a notification message
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Symbol    string
	Price     float64
	Timestamp time.Time
	Extra     map[string]interface{}
}

// Notifier interface for different notification providers
type Notifier interface {
	Send(notification *Notification) error
	Name() string
	IsEnabled() bool
}

// Manager manages multiple notification providers
type Manager struct {
	notifiers []Notifier
	enabled   bool
}

// NewManager creates a new notification manager
func NewManager() *Manager {
	return &Manager{
		notifiers: make([]Notifier, 0),
		enabled:   true,
	}
}

// AddNotifier adds a notification provider
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Send sends a notification to all enabled providers
func (m *Manager) Send(notification *Notification) error {
	if !m.enabled {
		return nil
	}

	var lastErr error
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			if err := n.Send(notification); err != nil {
				lastErr = err
			}
		}
	}
	return lastErr
}

// SendProposal announces a new trade proposal waiting for review
func (m *Manager) SendProposal(symbol, direction string, entry, stopLoss, size float64, zeroSize bool, reason string) error {
	emoji := "🟢"
	if direction == "BEARISH" {
		emoji = "🔴"
	}

	message := fmt.Sprintf("%s %s @ %.5f\nSL: %.5f | Size: %g\n%s", direction, symbol, entry, stopLoss, size, reason)
	if zeroSize {
		message += "\n⚠️ Size floored to zero under current risk settings"
	}

	return m.Send(&Notification{
		Type:      NotifyProposal,
		Title:     fmt.Sprintf("%s Proposal: %s", emoji, symbol),
		Message:   message,
		Symbol:    symbol,
		Price:     entry,
		Timestamp: time.Now(),
		Extra: map[string]interface{}{
			"direction": direction,
			"stop_loss": stopLoss,
			"size":      size,
			"zero_size": zeroSize,
		},
	})
}

// SendDecision announces a review decision on a proposal
func (m *Manager) SendDecision(symbol, decision, proposalID string) error {
	emoji := "✅"
	switch decision {
	case "REJECT":
		emoji = "❌"
	case "EDIT":
		emoji = "✏️"
	}

	return m.Send(&Notification{
		Type:      NotifyDecision,
		Title:     fmt.Sprintf("%s Decision: %s", emoji, symbol),
		Message:   fmt.Sprintf("Proposal %s: %s", proposalID, decision),
		Symbol:    symbol,
		Timestamp: time.Now(),
	})
}

// SendExecuted announces an order placed for an approved proposal
func (m *Manager) SendExecuted(symbol, direction string, price, volume float64, ticket string) error {
	return m.Send(&Notification{
		Type:      NotifyExecution,
		Title:     fmt.Sprintf("📈 Order Placed: %s", symbol),
		Message:   fmt.Sprintf("%s %s\nPrice: %.5f\nVolume: %g\nTicket: %s", direction, symbol, price, volume, ticket),
		Symbol:    symbol,
		Price:     price,
		Timestamp: time.Now(),
	})
}

// SendError sends an error notification
func (m *Manager) SendError(source, message string) error {
	return m.Send(&Notification{
		Type:      NotifyError,
		Title:     fmt.Sprintf("⚠️ Error: %s", source),
		Message:   message,
		Timestamp: time.Now(),
	})
}

// SendInfo sends an informational notification
func (m *Manager) SendInfo(title, message string) error {
	return m.Send(&Notification{
		Type:      NotifyInfo,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
	})
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramNotifier sends notifications via Telegram
type TelegramNotifier struct {
	botToken string
	chatID   string
	enabled  bool
	client   *http.Client
}

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(notification *Notification) error {
	if !t.enabled {
		return nil
	}

	message := fmt.Sprintf("*%s*\n\n%s", notification.Title, notification.Message)

	payload := map[string]interface{}{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "Markdown",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API returned status %d", resp.StatusCode)
	}

	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(notification *Notification) error {
	if !d.enabled {
		return nil
	}

	// Create Discord embed
	color := 0x00FF00 // Green
	switch notification.Type {
	case NotifyError:
		color = 0xFF0000 // Red
	case NotifyDecision:
		color = 0x3498DB // Blue
	case NotifyProposal:
		color = 0xF1C40F // Yellow, awaiting review
	}

	embed := map[string]interface{}{
		"title":       notification.Title,
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}

	if notification.Symbol != "" {
		fields := []map[string]interface{}{
			{"name": "Symbol", "value": notification.Symbol, "inline": true},
		}
		if notification.Price > 0 {
			fields = append(fields, map[string]interface{}{
				"name": "Price", "value": fmt.Sprintf("%.5f", notification.Price), "inline": true,
			})
		}
		embed["fields"] = fields
	}

	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal discord payload: %w", err)
	}

	resp, err := d.client.Post(d.webhookURL, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}

	return nil
}
