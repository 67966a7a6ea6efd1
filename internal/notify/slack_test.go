package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookRecorder struct {
	mu       sync.Mutex
	payloads []payload
	status   int
}

func (r *webhookRecorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	var p payload
	_ = json.Unmarshal(body, &p)

	r.mu.Lock()
	r.payloads = append(r.payloads, p)
	r.mu.Unlock()

	status := r.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
}

func (r *webhookRecorder) last(t *testing.T) attachment {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.payloads)
	p := r.payloads[len(r.payloads)-1]
	require.Len(t, p.Attachments, 1)
	return p.Attachments[0]
}

func newTestSlack(t *testing.T, rec *webhookRecorder) *Slack {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)
	return NewSlack(srv.URL, "BTC", "USDT", zerolog.Nop())
}

func TestSlackVerify(t *testing.T) {
	rec := &webhookRecorder{}
	s := newTestSlack(t, rec)

	require.NoError(t, s.Verify(context.Background()))
	att := rec.last(t)
	assert.Equal(t, colorGood, att.Color)
	assert.Equal(t, "Trading Bot", att.Footer)
	assert.NotZero(t, att.TS)
}

func TestSlackVerifyRejected(t *testing.T) {
	rec := &webhookRecorder{status: http.StatusForbidden}
	s := newTestSlack(t, rec)

	err := s.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

func TestSlackTradeMessages(t *testing.T) {
	rec := &webhookRecorder{}
	s := newTestSlack(t, rec)

	s.Buy(0.015, 64000)
	att := rec.last(t)
	assert.Equal(t, colorGood, att.Color)
	assert.Contains(t, att.Text, "0.015000 BTC")
	assert.Contains(t, att.Text, "64000.00 USDT")

	s.Sell(0.015, 66000, 3.13)
	att = rec.last(t)
	assert.Equal(t, colorGood, att.Color)
	assert.Contains(t, att.Text, "+3.13%")

	s.Sell(0.015, 60000, -6.25)
	att = rec.last(t)
	assert.Equal(t, colorDanger, att.Color)

	s.StopLoss(0.015, 60000, -6.25)
	att = rec.last(t)
	assert.Equal(t, colorDanger, att.Color)
	assert.Contains(t, att.Text, "Stop loss")
}

func TestSlackSafetyMessages(t *testing.T) {
	rec := &webhookRecorder{}
	s := newTestSlack(t, rec)

	s.VolatilityAlert(11.2, "1h")
	assert.Equal(t, colorWarning, rec.last(t).Color)

	s.EmergencyStop("3 consecutive API errors")
	att := rec.last(t)
	assert.Equal(t, colorDanger, att.Color)
	assert.Contains(t, att.Text, "API errors")

	s.DailyLossLimit(-5.4)
	assert.Equal(t, colorDanger, rec.last(t).Color)
}

func TestSlackDeliveryFailureDoesNotPanic(t *testing.T) {
	s := NewSlack("http://127.0.0.1:1", "BTC", "USDT", zerolog.Nop())
	assert.NotPanics(t, func() { s.Heartbeat(64000, 0.01, 1000, 0.1) })
}
