package mailer

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMessage() *Message {
	return &Message{
		FromAddress: "noreply@example.com",
		ToAddress:   "alice@example.com",
		Subject:     "Action Required for Request",
		HTMLBody:    "<p>Your action is needed for request req-100</p>",
	}
}

func TestAPISender_Send(t *testing.T) {
	var got apiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"status":"success"}}`))
	}))
	defer srv.Close()

	s := NewAPISender(&APIConfig{URL: srv.URL, Token: "s3cret"})
	require.NoError(t, s.Send(context.Background(), testMessage()))

	assert.Equal(t, "noreply@example.com", got.FromAddress)
	assert.Equal(t, "alice@example.com", got.ToAddress)
	assert.Equal(t, "Action Required for Request", got.Subject)
	assert.Contains(t, got.Message, "req-100")
	assert.Equal(t, TransportAPI, s.Name())
}

func TestAPISender_EmptyBodyIsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	assert.NoError(t, NewAPISender(&APIConfig{URL: srv.URL}).Send(context.Background(), testMessage()))
}

func TestAPISender_ServerError(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewAPISender(&APIConfig{URL: srv.URL}).Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrSendFailed)
	assert.Equal(t, 1, calls, "api transport must not retry")
}

func TestAPISender_ReportedFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","data":{"status":"failed"}}`))
	}))
	defer srv.Close()

	err := NewAPISender(&APIConfig{URL: srv.URL}).Send(context.Background(), testMessage())
	assert.ErrorIs(t, err, ErrSendFailed)
}

func TestAPISender_InvalidMessage(t *testing.T) {
	s := NewAPISender(&APIConfig{URL: "http://127.0.0.1:1"})

	msg := testMessage()
	msg.ToAddress = ""
	assert.ErrorIs(t, s.Send(context.Background(), msg), ErrInvalidMailRecipient)

	msg = testMessage()
	msg.FromAddress = ""
	assert.ErrorIs(t, s.Send(context.Background(), msg), ErrInvalidMailSender)
}
