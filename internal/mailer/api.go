package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/imroc/req/v3"
	"github.com/openmined/aclnotify/internal/version"
)

const defaultAPITimeout = 10 * time.Second

type apiRequest struct {
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Message     string `json:"message"`
	Subject     string `json:"subject"`
}

type apiStatus struct {
	Status string `json:"status"`
}

type apiResponse struct {
	Status string     `json:"status"`
	Data   *apiStatus `json:"data"`
}

func (r *apiResponse) failed() bool {
	if r.Status != "" && r.Status != "success" {
		return true
	}
	return r.Data != nil && r.Data.Status != "" && r.Data.Status != "success"
}

// APISender posts messages to a templated HTTP email API. It never retries.
type APISender struct {
	client *req.Client
	url    string
}

func NewAPISender(cfg *APIConfig) *APISender {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}

	client := req.C().
		SetTimeout(timeout).
		SetUserAgent(version.UserAgent()).
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal)
	if cfg.Token != "" {
		client.SetCommonBearerAuthToken(cfg.Token)
	}

	return &APISender{client: client, url: cfg.URL}
}

func (s *APISender) Name() string {
	return TransportAPI
}

func (s *APISender) Send(ctx context.Context, msg *Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	var out apiResponse
	resp, err := s.client.R().
		SetContext(ctx).
		SetBodyJsonMarshal(&apiRequest{
			FromAddress: msg.FromAddress,
			ToAddress:   msg.ToAddress,
			Message:     msg.HTMLBody,
			Subject:     msg.Subject,
		}).
		SetSuccessResult(&out).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	if !resp.IsSuccessState() {
		return fmt.Errorf("%w: email api returned %d", ErrSendFailed, resp.StatusCode)
	}

	if out.failed() {
		return fmt.Errorf("%w: email api reported %q", ErrSendFailed, resp.String())
	}

	return nil
}
