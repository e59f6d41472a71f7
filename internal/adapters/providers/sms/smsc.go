package sms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"trust-service/internal/core/ports"
)

// SMSCConfig configures the SMSC gateway adapter.
type SMSCConfig struct {
	BaseURL string // default https://smsc.kz/sys/send.php
	Login   string
	Pass    string
	Sender  string
	Timeout time.Duration
}

// SMSCSender delivers codes through the SMSC HTTP API.
type SMSCSender struct {
	cfg    SMSCConfig
	client *http.Client
	log    zerolog.Logger
}

func NewSMSCSender(cfg SMSCConfig, baseLogger *zerolog.Logger) *SMSCSender {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://smsc.kz/sys/send.php"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMSCSender{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    baseLogger.With().Str("component", "sms_smsc").Logger(),
	}
}

var _ ports.SMSSender = (*SMSCSender)(nil)

func (s *SMSCSender) Name() string { return "smsc" }

type smscResponse struct {
	ID        int64  `json:"id"`
	Count     int    `json:"cnt"`
	Error     string `json:"error"`
	ErrorCode int    `json:"error_code"`
}

func (s *SMSCSender) Send(ctx context.Context, phone, message string) (ports.SMSSendResult, error) {
	params := url.Values{}
	params.Set("login", s.cfg.Login)
	params.Set("psw", s.cfg.Pass)
	params.Set("phones", phone)
	params.Set("mes", message)
	params.Set("charset", "utf-8")
	params.Set("fmt", "3") // JSON response
	if s.cfg.Sender != "" {
		params.Set("sender", s.cfg.Sender)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return ports.SMSSendResult{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return ports.SMSSendResult{}, fmt.Errorf("smsc request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return ports.SMSSendResult{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return ports.SMSSendResult{}, fmt.Errorf("smsc status %d", resp.StatusCode)
	}

	var out smscResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return ports.SMSSendResult{}, fmt.Errorf("decode response: %w", err)
	}
	if out.ErrorCode != 0 {
		return ports.SMSSendResult{}, fmt.Errorf("smsc error %d: %s", out.ErrorCode, out.Error)
	}

	s.log.Debug().Int64("message_id", out.ID).Msg("SMS accepted by gateway")
	return ports.SMSSendResult{MessageID: strconv.FormatInt(out.ID, 10)}, nil
}
