package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mychangex/internal/domain"
)

// Relay posts completed transfers to the notification service so both
// parties get informed. It is strictly fire-and-forget from the caller's
// point of view: a relay failure never blocks or reverses a transfer.
type Relay struct {
	url    string
	client *http.Client
}

// NewRelay creates a relay for the given webhook URL. A bounded client keeps
// a slow notification service from holding up the caller.
func NewRelay(url string) *Relay {
	return &Relay{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// transferEvent is the payload the notification service expects.
type transferEvent struct {
	TransactionID uint   `json:"transaction_id"`
	RequestID     string `json:"request_id"`
	SenderID      uint   `json:"sender_id"`
	SenderName    string `json:"sender_name"`
	ReceiverID    uint   `json:"receiver_id"`
	ReceiverName  string `json:"receiver_name"`
	Amount        string `json:"amount"`
	CreatedAt     int64  `json:"created_at"`
}

// NotifyTransfer sends the completed transfer to the notification service.
func (r *Relay) NotifyTransfer(tx domain.Transaction, senderName, receiverName string) error {
	body, err := json.Marshal(transferEvent{
		TransactionID: tx.ID,
		RequestID:     tx.RequestID,
		SenderID:      tx.SenderID,
		SenderName:    senderName,
		ReceiverID:    tx.ReceiverID,
		ReceiverName:  receiverName,
		Amount:        tx.Amount.StringFixed(2),
		CreatedAt:     tx.CreatedAt,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, r.url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MyChangeX-Notify/1.0")
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("notification service returned status %d", resp.StatusCode)
}
