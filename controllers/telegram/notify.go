package telegram

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Escalation notifications for the CS channel. Everything here is
// best-effort: a Telegram outage must never fail a ticket or department
// request, so callers fire these in a goroutine and errors only get logged.

type telegramMessage struct {
	ChatID    int64  `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode,omitempty"`
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Configured reports whether the CS notification channel is set up.
func Configured() bool {
	return os.Getenv("TELEGRAM_BOT_TOKEN") != "" && os.Getenv("TELEGRAM_CS_CHAT_ID") != ""
}

// NotifyTicketCreated posts a new-ticket alert to the CS channel.
func NotifyTicketCreated(ticketNumber, issueType, subIssue string, sessionID uint) {
	if !Configured() {
		return
	}
	text := fmt.Sprintf("🎫 New ticket %s\nIssue: %s / %s\nSession: #%d", ticketNumber, issueType, subIssue, sessionID)
	if err := sendMessage(text); err != nil {
		log.Printf("[Telegram] Ticket notification failed: %v", err)
	}
}

// NotifyDepartmentRequest posts a department-routing alert to the CS channel.
func NotifyDepartmentRequest(department string, sessionID uint) {
	if !Configured() {
		return
	}
	text := fmt.Sprintf("📨 Session #%d routed to %s", sessionID, department)
	if err := sendMessage(text); err != nil {
		log.Printf("[Telegram] Department notification failed: %v", err)
	}
}

func sendMessage(text string) error {
	botToken := os.Getenv("TELEGRAM_BOT_TOKEN")
	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CS_CHAT_ID"), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid TELEGRAM_CS_CHAT_ID: %w", err)
	}

	jsonData, err := json.Marshal(telegramMessage{ChatID: chatID, Text: text})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken)
	resp, err := httpClient.Post(url, "application/json", strings.NewReader(string(jsonData)))
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}
