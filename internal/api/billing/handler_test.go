package billing

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"yoga-studio/internal/infra/cache"
	"yoga-studio/internal/infra/razorpay"
	"yoga-studio/internal/logging"
	"yoga-studio/internal/repository/memstore"
	classsvc "yoga-studio/internal/service/classes"
	"yoga-studio/internal/service/payments"
	"yoga-studio/internal/service/servicetest"
	"yoga-studio/internal/service/subscriptions"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	store := memstore.New()
	gw := servicetest.NewGateway()
	mail := &servicetest.Mailer{}
	log := logging.Discard()

	classes := classsvc.New(store, mail, nil, log, "INR")
	subs := subscriptions.New(store, gw, cache.Noop{}, mail, nil, log)
	h := NewHandler(payments.New(store, gw, classes, subs, nil, log), subs)

	r := gin.New()
	r.POST("/webhook", h.Webhook)
	return r
}

func postWebhook(r *gin.Engine, body []byte, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set(razorpay.SignatureHeader, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhook(t *testing.T) {
	r := newRouter()

	tests := []struct {
		name string
		body []byte
		sig  string
		want int
	}{
		{
			name: "oversized body",
			body: []byte(`{"pad":"` + strings.Repeat("x", maxWebhookBody) + `"}`),
			sig:  "irrelevant",
			want: http.StatusRequestEntityTooLarge,
		},
		{
			name: "missing signature",
			body: []byte(`{"event":"payment.captured"}`),
			want: http.StatusBadRequest,
		},
		{
			name: "unknown order is acknowledged",
			body: func() []byte { b, _ := servicetest.CapturedWebhook("order_missing", "pay_1"); return b }(),
			sig:  func() string { _, s := servicetest.CapturedWebhook("order_missing", "pay_1"); return s }(),
			want: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postWebhook(r, tt.body, tt.sig)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}
