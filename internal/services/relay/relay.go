// Package relay forwards uploads from one configured account to external
// chat webhooks, routed by filename keyword. Delivery is best-effort: a
// failed webhook is logged and never surfaces to the uploader.
package relay

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/sharestore/sharestore/internal/config"
)

// Service delivers uploaded files to webhook destinations.
type Service struct {
	defaultURL     string
	mappings       map[string]string
	notifyUsername string
	client         *http.Client
}

// NewService creates a relay from the startup configuration. A nil client
// gets a default with a 30s timeout.
func NewService(cfg *config.Config, client *http.Client) *Service {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{
		defaultURL:     cfg.WebhookURL,
		mappings:       cfg.ChannelMappings,
		notifyUsername: cfg.NotifyUsername,
		client:         client,
	}
}

// Relay forwards payload to every destination whose keyword appears in
// filename, or to the default destination when none match. Uploads from
// anyone but the configured notify account are silently ignored. Each
// delivery is a single attempt; failures are logged and swallowed.
func (s *Service) Relay(ctx context.Context, filename string, payload []byte, uploader string) {
	if s.notifyUsername == "" || uploader != s.notifyUsername {
		return
	}

	lowerName := strings.ToLower(filename)
	sent := false
	for keyword, url := range s.mappings {
		if strings.Contains(lowerName, strings.ToLower(keyword)) {
			s.deliver(ctx, filename, payload, url)
			sent = true
		}
	}

	if !sent && s.defaultURL != "" {
		s.deliver(ctx, filename, payload, s.defaultURL)
	}
}

func (s *Service) deliver(ctx context.Context, filename string, payload []byte, url string) {
	if err := s.post(ctx, filename, payload, url); err != nil {
		log.Printf("relay: failed to send %s to %s: %v", filename, url, err)
		return
	}
	log.Printf("relay: sent %s to %s", filename, url)
}

func (s *Service) post(ctx context.Context, filename string, payload []byte, url string) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if _, err := part.Write(payload); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to build form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
