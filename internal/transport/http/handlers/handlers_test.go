package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/covoit/internal/domain"
	"github.com/vedran77/covoit/internal/repository/memory"
	"github.com/vedran77/covoit/internal/service"
	apperr "github.com/vedran77/covoit/pkg/errors"
	"github.com/vedran77/covoit/pkg/logger"
)

type api struct {
	t    *testing.T
	srv  *httptest.Server
	auth *service.AuthService
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := memory.NewStore()
	log := logger.Nop()

	auth := service.NewAuthService(db.Users(), "handler-secret", time.Hour, log)
	store := service.NewMessageStore(db.Messages(), db.Users(), 5000)
	index := service.NewConversationIndex(db.Messages())
	contacts := service.NewContactResolver(db.Users(), db.Trips(), store, "Hello from covoit")
	dm := service.NewDMService(store, index, contacts, db.Users(), log)
	trips := service.NewTripService(db.Trips(), db.Users())
	reviews := service.NewReviewService(db.Reviews(), db.Trips(), db.Users(), log)

	router := Router{
		Auth:    NewAuthHandler(auth, log),
		DM:      NewDMHandler(dm, log),
		Trips:   NewTripHandler(trips, log),
		Reviews: NewReviewHandler(reviews, log),
		Tokens:  auth,
		Log:     log,
	}
	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return &api{t: t, srv: srv, auth: auth}
}

type session struct {
	id    uuid.UUID
	token string
}

func (a *api) do(method, path, token string, body any) (int, map[string]any) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, a.srv.URL+"/api/v1"+path, &buf)
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (a *api) register(role domain.Role) session {
	a.t.Helper()
	status, body := a.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email":     uuid.NewString() + "@example.com",
		"full_name": "Test " + string(role),
		"password":  "Secret123",
		"role":      role,
	})
	require.Equal(a.t, http.StatusCreated, status, body)

	user := body["user"].(map[string]any)
	return session{
		id:    uuid.MustParse(user["id"].(string)),
		token: body["access_token"].(string),
	}
}

// book has driver publish a trip and passenger reserve a seat on it.
func (a *api) book(passenger, driver session) string {
	a.t.Helper()
	status, trip := a.do(http.MethodPost, "/trips", driver.token, map[string]any{
		"departure":      "Lyon",
		"arrival":        "Grenoble",
		"departs_at":     time.Now().Add(24 * time.Hour).Format(time.RFC3339),
		"seats":          3,
		"price_per_seat": 12,
	})
	require.Equal(a.t, http.StatusCreated, status, trip)

	status, res := a.do(http.MethodPost, "/trips/"+trip["id"].(string)+"/reservations", passenger.token, map[string]any{"seats": 1})
	require.Equal(a.t, http.StatusCreated, status, res)
	return res["id"].(string)
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func Test_API_MessagingFlow(t *testing.T) {
	a := newAPI(t)
	passenger := a.register(domain.RolePassenger)
	driver := a.register(domain.RoleDriver)

	status, body := a.do(http.MethodPost, "/messages", passenger.token, map[string]any{"to_id": driver.id, "body": "Hi"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(body))

	status, body = a.do(http.MethodGet, "/contacts/"+driver.id.String()+"/eligibility", passenger.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["eligible"])

	a.book(passenger, driver)

	status, body = a.do(http.MethodPost, "/contacts", passenger.token, map[string]any{"user_id": driver.id})
	require.Equal(t, http.StatusOK, status, body)
	conv := body["conversation"].(map[string]any)
	assert.Equal(t, true, conv["created"])

	status, body = a.do(http.MethodPost, "/contacts", passenger.token, map[string]any{"user_id": driver.id})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["conversation"].(map[string]any)["created"])

	status, body = a.do(http.MethodPost, "/messages", passenger.token, map[string]any{"to_id": driver.id, "body": "Hi"})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "Hi", body["body"])
	assert.Equal(t, false, body["seen"])
	assert.Equal(t, passenger.id.String(), body["sender_id"])

	status, body = a.do(http.MethodGet, "/unread-count", driver.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])

	status, body = a.do(http.MethodGet, "/conversations", driver.token, nil)
	require.Equal(t, http.StatusOK, status)
	convs := body["conversations"].([]any)
	require.Len(t, convs, 1)
	assert.Equal(t, passenger.id.String(), convs[0].(map[string]any)["counterpart_id"])
	assert.Equal(t, float64(2), convs[0].(map[string]any)["unread_count"])

	status, body = a.do(http.MethodGet, "/messages/"+passenger.id.String(), driver.token, nil)
	require.Equal(t, http.StatusOK, status)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello from covoit", msgs[0].(map[string]any)["body"])
	assert.Equal(t, "Hi", msgs[1].(map[string]any)["body"])

	status, body = a.do(http.MethodGet, "/unread-count?counterpart_id="+passenger.id.String(), driver.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])

	first := msgs[0].(map[string]any)["id"].(string)
	status, body = a.do(http.MethodGet, "/messages/"+passenger.id.String()+"?after="+first+"&limit=10", passenger.token, nil)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, body["messages"].([]any), 1)
}

func Test_API_SendValidation(t *testing.T) {
	a := newAPI(t)
	passenger := a.register(domain.RolePassenger)
	driver := a.register(domain.RoleDriver)
	a.book(passenger, driver)

	tests := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"max length", map[string]any{"to_id": driver.id, "body": strings.Repeat("a", 5000)}, http.StatusCreated, ""},
		{"too long", map[string]any{"to_id": driver.id, "body": strings.Repeat("a", 5001)}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"blank", map[string]any{"to_id": driver.id, "body": "   "}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing body", map[string]any{"to_id": driver.id}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"missing to_id", map[string]any{"body": "hi"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"self", map[string]any{"to_id": passenger.id, "body": "hi"}, http.StatusUnprocessableEntity, "VALIDATION_ERROR"},
		{"unknown recipient", map[string]any{"to_id": uuid.New(), "body": "hi"}, http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := a.do(http.MethodPost, "/messages", passenger.token, tt.body)
			assert.Equal(t, tt.status, status, body)
			if tt.code != "" {
				assert.Equal(t, tt.code, errorCode(body))
			}
		})
	}
}

func Test_API_RequiresAuth(t *testing.T) {
	a := newAPI(t)

	for _, path := range []string{"/conversations", "/unread-count", "/messages/" + uuid.NewString(), "/reservations"} {
		status, body := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, "UNAUTHENTICATED", errorCode(body))
	}

	status, _ := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func Test_API_ThreadErrors(t *testing.T) {
	a := newAPI(t)
	user := a.register(domain.RolePassenger)

	status, _ := a.do(http.MethodGet, "/messages/not-a-uuid", user.token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body := a.do(http.MethodGet, "/messages/"+uuid.NewString(), user.token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(body))

	other := a.register(domain.RoleDriver)
	status, _ = a.do(http.MethodGet, "/messages/"+other.id.String()+"?limit=0", user.token, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.do(http.MethodGet, "/messages/"+other.id.String()+"?after="+uuid.NewString(), user.token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func Test_API_TripsAndReviews(t *testing.T) {
	a := newAPI(t)
	passenger := a.register(domain.RolePassenger)
	driver := a.register(domain.RoleDriver)

	status, body := a.do(http.MethodPost, "/trips", passenger.token, map[string]any{
		"departure":      "Lyon",
		"arrival":        "Grenoble",
		"departs_at":     time.Now().Add(time.Hour).Format(time.RFC3339),
		"seats":          2,
		"price_per_seat": 5,
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "PERMISSION_DENIED", errorCode(body))

	resID := a.book(passenger, driver)

	status, body = a.do(http.MethodGet, "/trips?departure=lyon&arrival=GRENOBLE", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["trips"].([]any), 1)

	status, _ = a.do(http.MethodGet, "/trips?date=tomorrow", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = a.do(http.MethodGet, "/reservations", passenger.token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, body["reservations"].([]any), 1)

	status, body = a.do(http.MethodPost, "/reservations/"+resID+"/review", passenger.token, map[string]any{"rating": 4, "comment": "On time"})
	require.Equal(t, http.StatusCreated, status, body)

	status, body = a.do(http.MethodPost, "/reservations/"+resID+"/review", passenger.token, map[string]any{"rating": 5})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "ALREADY_EXISTS", errorCode(body))

	status, body = a.do(http.MethodGet, "/drivers/"+driver.id.String()+"/rating", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(4), body["average"])
	assert.Equal(t, float64(1), body["count"])

	status, _ = a.do(http.MethodDelete, "/reservations/"+resID, passenger.token, nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func Test_API_RegisterAndLogin(t *testing.T) {
	a := newAPI(t)

	status, body := a.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "bad", "full_name": "", "password": "short", "role": "admin",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	fields := body["error"].(map[string]any)["fields"].(map[string]any)
	assert.Contains(t, fields, "email")
	assert.Contains(t, fields, "password")
	assert.Contains(t, fields, "role")

	status, _ = a.do(http.MethodPost, "/auth/register", "", map[string]any{
		"email": "lea@example.com", "full_name": "Léa", "password": "Secret123", "role": "passenger",
	})
	require.Equal(t, http.StatusCreated, status)

	status, body = a.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "lea@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, body["access_token"])

	status, body = a.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "lea@example.com", "password": "Wrong1234"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHENTICATED", errorCode(body))
}

func Test_WriteAppError_StatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{apperr.Validation("body", "body is required"), http.StatusUnprocessableEntity},
		{apperr.ErrRecipientNotFound, http.StatusNotFound},
		{apperr.ErrNotEligible, http.StatusForbidden},
		{apperr.ErrEmailTaken, http.StatusConflict},
		{apperr.ErrNotEnoughSeats, http.StatusConflict},
		{apperr.ErrInvalidCreds, http.StatusUnauthorized},
		{apperr.ErrStoreUnavailable(errors.New("dial tcp: refused")), http.StatusServiceUnavailable},
		{apperr.Internal("boom"), http.StatusInternalServerError},
		{errors.New("foreign"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeAppError(rec, logger.Nop(), tt.err, http.StatusUnprocessableEntity)
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
	}
}
