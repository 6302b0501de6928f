package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	adminapi "yoga-studio/internal/api/admin"
	authapi "yoga-studio/internal/api/auth"
	"yoga-studio/internal/api/billing"
	classesapi "yoga-studio/internal/api/classes"
	communityapi "yoga-studio/internal/api/community"
	contentapi "yoga-studio/internal/api/content"
	goalsapi "yoga-studio/internal/api/goals"
	messagesapi "yoga-studio/internal/api/messages"
	"yoga-studio/internal/api/plans"
	"yoga-studio/internal/api/users"
	"yoga-studio/internal/app/http/middleware"
	"yoga-studio/internal/chat"
	domainusers "yoga-studio/internal/domain/users"
	"yoga-studio/internal/infra/cache"
	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/infra/razorpay"
	"yoga-studio/internal/lib/jwt"
	"yoga-studio/internal/logging"
	"yoga-studio/internal/repository"
	"yoga-studio/internal/repository/memstore"
	adminsvc "yoga-studio/internal/service/admin"
	authsvc "yoga-studio/internal/service/auth"
	classsvc "yoga-studio/internal/service/classes"
	communitysvc "yoga-studio/internal/service/community"
	contentsvc "yoga-studio/internal/service/content"
	goalsvc "yoga-studio/internal/service/goals"
	messagesvc "yoga-studio/internal/service/messages"
	"yoga-studio/internal/service/payments"
	"yoga-studio/internal/service/servicetest"
	"yoga-studio/internal/service/subscriptions"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type server struct {
	r      *gin.Engine
	store  *repository.Store
	tokens *jwt.Maker
	mail   *servicetest.Mailer
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	require.NoError(t, RegisterValidators())

	store := memstore.New()
	log := logging.Discard()
	mail := &servicetest.Mailer{}
	gw := servicetest.NewGateway()
	m := metrics.New()
	tokens := jwt.NewMaker("test-secret", time.Hour)

	auth := authsvc.New(store, tokens, mail, m, log, authsvc.Options{AppURL: "http://localhost:5173"})
	classSvc := classsvc.New(store, mail, m, log, "INR")
	subSvc := subscriptions.New(store, gw, cache.Noop{}, mail, m, log)
	paySvc := payments.New(store, gw, classSvc, subSvc, m, log)
	goalSvc := goalsvc.New(store)
	messageSvc := messagesvc.New(store)

	r := gin.New()
	r.Use(middleware.Recovery(log), m.Middleware())
	RegisterRoutes(r, Handlers{
		Auth:      authapi.NewHandler(auth, nil),
		Users:     users.NewHandler(auth, subSvc, users.Activity{Classes: classSvc, Payments: paySvc, Goals: goalSvc}),
		Classes:   classesapi.NewHandler(classSvc),
		Billing:   billing.NewHandler(paySvc, subSvc),
		Plans:     plans.NewHandler(subSvc),
		Content:   contentapi.NewHandler(contentsvc.New(store, subSvc)),
		Goals:     goalsapi.NewHandler(goalSvc),
		Messages:  messagesapi.NewHandler(messageSvc, chat.NewHub(messageSvc, log, "*")),
		Community: communityapi.NewHandler(communitysvc.New(store, log)),
		Admin:     adminapi.NewHandler(adminsvc.New(store, cache.Noop{}, log)),
	}, Options{
		Tokens:      tokens,
		Policies:    subSvc,
		Metrics:     m,
		AuthLimiter: middleware.NewRateLimiter(600, 100, log),
	})
	return &server{r: r, store: store, tokens: tokens, mail: mail}
}

// login creates a verified user with role and returns a bearer token.
func (s *server) login(t *testing.T, email, role string) (string, uint) {
	t.Helper()
	u := &domainusers.User{Name: "Test", Email: email, Role: role, IsVerified: true}
	require.NoError(t, s.store.Users.Create(context.Background(), u))
	token, err := s.tokens.Generate(u.ID, u.Email, u.Role)
	require.NoError(t, err)
	return token, u.ID
}

func (s *server) do(t *testing.T, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

func TestHealthAndMetrics(t *testing.T) {
	s := newServer(t)

	code, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "yoga_http_requests_total")
}

func TestRegisterVerifyAndProfile(t *testing.T) {
	s := newServer(t)

	code, env := s.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"name": "Asha", "email": "asha@example.com", "password": "lotus1234",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = s.do(t, http.MethodPost, "/api/auth/login", "", gin.H{
		"email": "asha@example.com", "password": "lotus1234",
	})
	assert.Equal(t, http.StatusForbidden, code)

	require.Len(t, s.mail.Sent, 1)
	otp := regexp.MustCompile(`\b\d{6}\b`).FindString(s.mail.Sent[0].Body)
	require.NotEmpty(t, otp)

	code, env = s.do(t, http.MethodPost, "/api/auth/verify-otp", "", gin.H{"email": "asha@example.com", "code": otp})
	require.Equal(t, http.StatusOK, code, env.Message)
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	require.NotEmpty(t, session.Token)

	code, _ = s.do(t, http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env = s.do(t, http.MethodGet, "/api/users/me", session.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "asha@example.com")

	code, env = s.do(t, http.MethodPut, "/api/users/me", session.Token, gin.H{"bio": "<b>Vinyasa</b> lover"})
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), `"bio":"Vinyasa lover"`)
}

func TestClassCatalogAndBooking(t *testing.T) {
	s := newServer(t)
	instructor, _ := s.login(t, "guru@studio.in", domainusers.RoleInstructor)
	student, _ := s.login(t, "student@studio.in", domainusers.RoleUser)
	at := time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)

	class := gin.H{
		"title": "Morning Hatha", "style": "hatha", "level": "beginner",
		"duration_minutes": 60, "capacity": 1, "scheduled_at": at,
	}

	code, _ := s.do(t, http.MethodPost, "/api/classes", student, class)
	assert.Equal(t, http.StatusForbidden, code)

	class["level"] = "expert"
	code, env := s.do(t, http.MethodPost, "/api/classes", instructor, class)
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "level must be beginner, intermediate, advanced or all", env.Message)

	class["level"] = "beginner"
	code, env = s.do(t, http.MethodPost, "/api/classes", instructor, class)
	require.Equal(t, http.StatusCreated, code, env.Message)
	var created struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))

	code, env = s.do(t, http.MethodGet, "/api/classes?level=beginner&upcoming=true", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total":1`)

	path := fmt.Sprintf("/api/classes/%d/enroll", created.ID)
	code, env = s.do(t, http.MethodPost, path, student, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, _ = s.do(t, http.MethodPost, path, student, nil)
	assert.Equal(t, http.StatusConflict, code)

	other, _ := s.login(t, "late@studio.in", domainusers.RoleUser)
	code, _ = s.do(t, http.MethodPost, path, other, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, env = s.do(t, http.MethodGet, "/api/classes/my", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Morning Hatha")

	code, env = s.do(t, http.MethodGet, "/api/users/me/dashboard", student, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.Contains(t, string(env.Data), "Morning Hatha")

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/classes/%d/ticket", created.ID), nil)
	req.Header.Set("Authorization", "Bearer "+student)
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Booking-Reference"))

	code, _ = s.do(t, http.MethodGet, "/api/classes/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPaidClassViaWebhook(t *testing.T) {
	s := newServer(t)
	instructor, _ := s.login(t, "guru@studio.in", domainusers.RoleInstructor)
	student, _ := s.login(t, "student@studio.in", domainusers.RoleUser)

	code, env := s.do(t, http.MethodPost, "/api/classes", instructor, gin.H{
		"title": "Ashtanga Led", "style": "ashtanga", "level": "intermediate",
		"duration_minutes": 90, "capacity": 10, "price": 75000,
		"scheduled_at": time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339),
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var class struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &class))

	code, _ = s.do(t, http.MethodPost, fmt.Sprintf("/api/classes/%d/enroll", class.ID), student, nil)
	assert.Equal(t, http.StatusPaymentRequired, code)

	code, env = s.do(t, http.MethodPost, "/api/payments/create-order", student, gin.H{"class_id": class.ID})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var order struct {
		Checkout struct {
			Order struct {
				ID string `json:"order_id"`
			} `json:"order"`
		} `json:"checkout"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	orderID := order.Checkout.Order.ID
	require.NotEmpty(t, orderID)

	body, sig := servicetest.CapturedWebhook(orderID, "pay_1")

	bad := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	bad.Header.Set("Content-Type", "application/json")
	bad.Header.Set(razorpay.SignatureHeader, "forged")
	w := httptest.NewRecorder()
	s.r.ServeHTTP(w, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(razorpay.SignatureHeader, sig)
	w = httptest.NewRecorder()
	s.r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	code, env = s.do(t, http.MethodGet, "/api/classes/my", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Ashtanga Led")

	code, env = s.do(t, http.MethodGet, "/api/payments/my", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"status":"completed"`)
}

func TestSubscriptionOrderValidation(t *testing.T) {
	s := newServer(t)
	student, _ := s.login(t, "student@studio.in", domainusers.RoleUser)

	code, env := s.do(t, http.MethodPost, "/api/subscriptions/create-order", student, gin.H{"plan_id": 1, "billing_cycle": "weekly"})
	require.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "billing_cycle must be monthly, quarterly or yearly", env.Message)

	code, env = s.do(t, http.MethodGet, "/api/subscriptions/me", student, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "null", string(env.Data))
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	s := newServer(t)
	student, _ := s.login(t, "student@studio.in", domainusers.RoleUser)
	admin, _ := s.login(t, "root@studio.in", domainusers.RoleAdmin)

	code, _ := s.do(t, http.MethodGet, "/api/admin/dashboard", student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env := s.do(t, http.MethodGet, "/api/admin/dashboard", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"total_users":2`)

	code, env = s.do(t, http.MethodPost, "/api/admin/plans", admin, gin.H{
		"name": "Unlimited", "monthly_price": 250000, "currency": "INR", "classes_per_month": -1,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	code, env = s.do(t, http.MethodGet, "/api/plans", "", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "Unlimited")
}

func TestCommunityFlagAndModerate(t *testing.T) {
	s := newServer(t)
	member, _ := s.login(t, "member@studio.in", domainusers.RoleUser)
	admin, _ := s.login(t, "root@studio.in", domainusers.RoleAdmin)

	code, env := s.do(t, http.MethodPost, "/api/community", member, gin.H{"body": "First class today!"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var post struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))

	code, _ = s.do(t, http.MethodPost, "/api/community/"+post.ID+"/flag", member, gin.H{"reason": "spam"})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/community", member, nil)
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), post.ID)

	code, env = s.do(t, http.MethodGet, "/api/admin/community/flagged", admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), post.ID)

	code, _ = s.do(t, http.MethodPut, "/api/admin/community/"+post.ID+"/moderate", admin, gin.H{"action": "approve"})
	require.Equal(t, http.StatusOK, code)

	code, env = s.do(t, http.MethodGet, "/api/community", member, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), post.ID)
}

func TestStoredTextKeepsURLsAndMarkup(t *testing.T) {
	s := newServer(t)
	instructor, _ := s.login(t, "guru@studio.in", domainusers.RoleInstructor)
	member, _ := s.login(t, "member@studio.in", domainusers.RoleUser)

	code, env := s.do(t, http.MethodPost, "/api/classes", instructor, gin.H{
		"title": "Yin & Yang", "style": "yin", "level": "all", "duration_minutes": 60, "capacity": 10,
		"scheduled_at": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"is_online": true, "meeting_link": "https://zoom.us/j/1?pwd=ab&uname=x",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var class struct {
		Title       string `json:"title"`
		MeetingLink string `json:"meeting_link"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &class))
	assert.Equal(t, "Yin & Yang", class.Title)
	assert.Equal(t, "https://zoom.us/j/1?pwd=ab&uname=x", class.MeetingLink)

	code, env = s.do(t, http.MethodPost, "/api/classes", instructor, gin.H{
		"title": "Bad link", "style": "yin", "level": "all", "duration_minutes": 60, "capacity": 10,
		"scheduled_at": time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339),
		"meeting_link": "javascript:alert(1)",
	})
	assert.Equal(t, http.StatusBadRequest, code, env.Message)

	code, env = s.do(t, http.MethodPost, "/api/community", member, gin.H{"body": `<p>Great <b>flow</b></p><script>alert(1)</script>`})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var post struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &post))
	assert.Equal(t, "<p>Great <b>flow</b></p>", post.Content)
}

func TestGoalsArePrivate(t *testing.T) {
	s := newServer(t)
	owner, _ := s.login(t, "owner@studio.in", domainusers.RoleUser)
	other, _ := s.login(t, "other@studio.in", domainusers.RoleUser)

	code, env := s.do(t, http.MethodPost, "/api/goals", owner, gin.H{"title": "Headstand", "target": 30, "unit": "days"})
	require.Equal(t, http.StatusCreated, code, env.Message)
	var goal struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &goal))

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/goals/%d", goal.ID), other, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(t, http.MethodGet, fmt.Sprintf("/api/goals/%d", goal.ID), owner, nil)
	assert.Equal(t, http.StatusOK, code)
}
