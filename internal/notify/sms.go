package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fletchck/fletchck/internal/domain"
)

// SMSSender posts a notification to an SMS gateway API.
type SMSSender struct {
	URL        string
	APIKey     string
	Sender     string
	Recipients []string
	Client     *http.Client
}

func NewSMSSender(opts domain.Options) *SMSSender {
	return &SMSSender{
		URL:        opts.Str("url", ""),
		APIKey:     opts.Str("apikey", ""),
		Sender:     opts.Str("sender", ""),
		Recipients: opts.StrList("recipients"),
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type smsPayload struct {
	Message    string   `json:"message"`
	Sender     string   `json:"sender,omitempty"`
	Recipients []string `json:"recipients"`
}

func (s *SMSSender) Send(ctx context.Context, ev Event) error {
	if s.URL == "" || len(s.Recipients) == 0 {
		return errors.New("sms action not configured")
	}
	text := fmt.Sprintf("%s %s: %s", ev.Check, strings.ToUpper(string(ev.Status)), ev.Message)
	body, err := json.Marshal(smsPayload{
		Message:    text,
		Sender:     s.Sender,
		Recipients: s.Recipients,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.APIKey)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("sms gateway status %d", resp.StatusCode)
	}
	return nil
}
