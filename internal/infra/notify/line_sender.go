package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LineSender implements MessageSender against the LINE Messaging API's
// push endpoint. Spec §1 places the messaging-platform client out of
// scope and asks only for a send function; no example repo in the
// retrieval pack carries a LINE SDK dependency (confirmed: neither go.mod
// nor any _examples repo imports one), so this is the one boundary
// component built directly on net/http rather than adopted from the pack.
type LineSender struct {
	channelAccessToken string
	httpClient         *http.Client
}

func NewLineSender(channelAccessToken string) *LineSender {
	return &LineSender{
		channelAccessToken: channelAccessToken,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
	}
}

const linePushEndpoint = "https://api.line.me/v2/bot/message/push"

type linePushRequest struct {
	To       string          `json:"to"`
	Messages []lineTextMessage `json:"messages"`
}

type lineTextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Send pushes body as a single text message to recipientExternalID (the
// patient's LINE user id).
func (s *LineSender) Send(ctx context.Context, recipientExternalID, body string) error {
	payload, err := json.Marshal(linePushRequest{
		To:       recipientExternalID,
		Messages: []lineTextMessage{{Type: "text", Text: body}},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal LINE push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, linePushEndpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build LINE push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.channelAccessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE push request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("LINE push returned status %d", resp.StatusCode)
	}
	return nil
}
