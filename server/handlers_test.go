package server

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Daskott/safecall/server/alert"
	"github.com/Daskott/safecall/server/auth"
	"github.com/Daskott/safecall/server/contacts"
	"github.com/Daskott/safecall/server/logger"
	"github.com/Daskott/safecall/shared"
	"github.com/benbjohnson/clock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	app    *App
	router *mux.Router
	clock  *clock.Mock
	token  string
}

type testResponse struct {
	Errors  []string        `json:"errors"`
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

func testConfig(t *testing.T) shared.ServerConfig {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.Nil(t, err)

	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})

	return shared.ServerConfig{
		Safecall: shared.SafecallConfig{
			PrivateKeyPem: string(pemBytes),
			OwnerName:     "Ada",
			Cron:          shared.CronConfig{TimeZone: "UTC"},
			Listener:      shared.ListenerConfig{Port: 3000},
		},
	}
}

func newTestServer(t *testing.T) *testServer {
	mock := clock.NewMock()

	app, err := NewApp(testConfig(t), mock, logger.NewNop())
	require.Nil(t, err)
	require.Nil(t, app.Start())
	t.Cleanup(app.Stop)

	token, err := auth.EncodeJWT(auth.NewDeviceClaims("test-device", time.Now(), time.Hour), app.keyPair)
	require.Nil(t, err)

	return &testServer{app: app, router: app.Router(), clock: mock, token: token}
}

// countdown moves the clock a second at a time, waiting for the alert to
// tick before moving on
func (ts *testServer) countdown(t *testing.T, seconds int) {
	for i := 0; i < seconds; i++ {
		before := ts.app.trigger.State()
		ts.clock.Add(time.Second)
		require.Eventually(t, func() bool {
			state := ts.app.trigger.State()
			return state.Phase != before.Phase || state.Remaining != before.Remaining
		}, time.Second, time.Millisecond)
	}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (int, testResponse) {
	var reqBody bytes.Buffer
	if body != nil {
		require.Nil(t, json.NewEncoder(&reqBody).Encode(body))
	}

	req := httptest.NewRequest(method, path, &reqBody)
	req.Header.Set("Authorization", "Bearer "+ts.token)

	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)

	resp := testResponse{}
	require.Nil(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return rr.Code, resp
}

func decodeData(t *testing.T, resp testResponse, data interface{}) {
	require.Nil(t, json.Unmarshal(resp.Data, data))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	ts := newTestServer(t)

	testCases := []struct {
		description string
		header      string
	}{
		{"Should reject missing token", ""},
		{"Should reject garbage token", "Bearer nope"},
	}

	for _, tcase := range testCases {
		t.Run(tcase.description, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/contacts", nil)
			if tcase.header != "" {
				req.Header.Set("Authorization", tcase.header)
			}
			rr := httptest.NewRecorder()
			ts.router.ServeHTTP(rr, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}

	req := httptest.NewRequest("GET", "/contacts?token="+ts.token, nil)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Token can be passed as a query param")
}

func TestGetJWKS(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("GET", "/jwks", nil)
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	jwks := struct {
		Keys []map[string]interface{} `json:"keys"`
	}{}
	require.Nil(t, json.Unmarshal(rr.Body.Bytes(), &jwks))
	require.Len(t, jwks.Keys, 1)
	assert.Equal(t, "RSA", jwks.Keys[0]["kty"])
	assert.Equal(t, ts.app.keyPair.Kid, jwks.Keys[0]["kid"])
}

func TestAlertRoutes(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, "POST", "/alert/arm", nil)
	require.Equal(t, http.StatusOK, status)
	result := alertResult{}
	decodeData(t, resp, &result)
	assert.True(t, result.Changed)
	assert.Equal(t, alert.Counting, result.State.Phase)
	assert.Equal(t, alert.CountdownSeconds, result.State.Remaining)

	_, resp = ts.do(t, "POST", "/alert/arm", nil)
	decodeData(t, resp, &result)
	assert.False(t, result.Changed, "Arming twice is a no-op")

	ts.countdown(t, 2)
	_, resp = ts.do(t, "GET", "/alert", nil)
	state := alert.State{}
	decodeData(t, resp, &state)
	assert.Equal(t, alert.CountdownSeconds-2, state.Remaining)

	_, resp = ts.do(t, "POST", "/alert/cancel", nil)
	decodeData(t, resp, &result)
	assert.True(t, result.Changed)
	assert.Equal(t, alert.State{Phase: alert.Idle}, result.State)

	_, resp = ts.do(t, "POST", "/alert/cancel", nil)
	decodeData(t, resp, &result)
	assert.False(t, result.Changed)
}

func TestContactRoutes(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, "GET", "/contacts", nil)
	require.Equal(t, http.StatusOK, status)
	list := []map[string]string{}
	decodeData(t, resp, &list)
	require.Len(t, list, 2)
	assert.Equal(t, "John Doe", list[0]["name"])

	status, resp = ts.do(t, "POST", "/contacts", map[string]string{"name": "Ada", "phone": ""})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, resp.Success)
	assert.Equal(t, []string{"phone is required"}, resp.Errors)

	status, resp = ts.do(t, "POST", "/contacts", map[string]string{"name": "Ada", "phone": "+1-555-0103", "relationship": "Friend"})
	require.Equal(t, http.StatusCreated, status)
	created := map[string]string{}
	decodeData(t, resp, &created)
	assert.NotEmpty(t, created["id"])

	status, resp = ts.do(t, "PUT", "/contacts/"+created["id"], map[string]string{"relationship": "Sister"})
	require.Equal(t, http.StatusOK, status)
	updated := map[string]string{}
	decodeData(t, resp, &updated)
	assert.Equal(t, "Sister", updated["relationship"])
	assert.Equal(t, "Ada", updated["name"])

	status, _ = ts.do(t, "PUT", "/contacts/missing", map[string]string{"name": "Nobody"})
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, "PUT", "/contacts/1", map[string]string{"nickname": "JD"})
	assert.Equal(t, http.StatusBadRequest, status, "Unknown fields are rejected")

	status, resp = ts.do(t, "POST", "/contacts/1/call", nil)
	require.Equal(t, http.StatusOK, status)
	intent := map[string]string{}
	decodeData(t, resp, &intent)
	assert.Equal(t, "tel:+1-555-0101", intent["uri"])

	status, _ = ts.do(t, "POST", "/contacts/missing/call", nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = ts.do(t, "DELETE", "/contacts/"+created["id"], nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = ts.do(t, "DELETE", "/contacts/"+created["id"], nil)
	assert.Equal(t, http.StatusOK, status, "Removing a missing contact is a no-op")

	_, resp = ts.do(t, "GET", "/contacts", nil)
	decodeData(t, resp, &list)
	assert.Len(t, list, 2)
}

func TestServiceRoutes(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, "GET", "/services/support", nil)
	require.Equal(t, http.StatusOK, status)
	entries := []map[string]string{}
	decodeData(t, resp, &entries)
	require.Len(t, entries, 4)
	assert.Equal(t, "text", entries[1]["action"])

	status, resp = ts.do(t, "POST", "/services/support/1/contact", nil)
	require.Equal(t, http.StatusOK, status)
	intent := map[string]string{}
	decodeData(t, resp, &intent)
	assert.Equal(t, "Text \"HOME\" to 741741 for crisis support", intent["notice"])

	status, resp = ts.do(t, "POST", "/services/emergency/0/contact", nil)
	require.Equal(t, http.StatusOK, status)
	decodeData(t, resp, &intent)
	assert.Equal(t, "tel:911", intent["uri"])

	status, _ = ts.do(t, "POST", "/services/emergency/9/contact", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestLocationRoutes(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, "PUT", "/location", map[string]interface{}{"latitude": 120.0, "longitude": 1.0})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []string{"latitude failed 'max' validation"}, resp.Errors)

	status, _ = ts.do(t, "PUT", "/location", map[string]interface{}{"accuracy": 5})
	assert.Equal(t, http.StatusBadRequest, status, "Coordinates are required unless denied")

	status, _ = ts.do(t, "PUT", "/location", map[string]interface{}{"latitude": 43.6532, "longitude": -79.3832, "accuracy": 5})
	require.Equal(t, http.StatusOK, status)

	status, resp = ts.do(t, "GET", "/location", nil)
	require.Equal(t, http.StatusOK, status)
	result := locationResult{}
	decodeData(t, resp, &result)
	assert.Equal(t, "43.653200, -79.383200", result.Coordinates)
	assert.Equal(t, "Coordinates: 43.653200, -79.383200", result.Description)

	status, _ = ts.do(t, "PUT", "/location", map[string]interface{}{"denied": true})
	require.Equal(t, http.StatusOK, status)

	status, resp = ts.do(t, "GET", "/location", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, []string{"location access denied by user"}, resp.Errors)
}

func TestArmedAlertPicksUpReportedLocation(t *testing.T) {
	ts := newTestServer(t)

	ts.do(t, "PUT", "/location", map[string]interface{}{"latitude": 1.0, "longitude": 2.0})
	ts.do(t, "POST", "/alert/arm", nil)

	assert.Eventually(t, func() bool {
		return ts.app.trigger.State().Location == "1.000000, 2.000000"
	}, time.Second, 5*time.Millisecond)

	ts.countdown(t, alert.CountdownSeconds)
	assert.Equal(t, alert.Fired, ts.app.trigger.State().Phase)
}

func TestGetStats(t *testing.T) {
	ts := newTestServer(t)

	status, resp := ts.do(t, "GET", "/stats", nil)
	require.Equal(t, http.StatusOK, status)
	stats := statsResult{}
	decodeData(t, resp, &stats)
	assert.Equal(t, alert.Idle, stats.Alert.Phase)
}

func TestSmsStatusWebhookRequiresSignature(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest("POST", "/webhook/sms/status", bytes.NewBufferString("MessageStatus=delivered"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestLoadConfigReportsMissingFields(t *testing.T) {
	config := viperFromMap(map[string]interface{}{
		"safecall": map[string]interface{}{
			"cron":     map[string]interface{}{"timeZone": "UTC"},
			"listener": map[string]interface{}{"port": 3000},
		},
	})

	_, err := LoadConfig(config)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "safecall.privateKeyPem is required")
}

func TestMalformedBodiesAreBadRequests(t *testing.T) {
	ts := newTestServer(t)

	testCases := []struct {
		description string
		method      string
		path        string
		body        interface{}
	}{
		{"Should reject unknown location fields", "PUT", "/location", map[string]interface{}{"latitude": 1.0, "longitude": 2.0, "altitude": 3.0}},
		{"Should reject unknown contact fields", "POST", "/contacts", map[string]interface{}{"name": "Ann", "phone": "555", "nickname": "A"}},
		{"Should reject a body that isn't an object", "PUT", "/location", []int{1, 2}},
	}

	for _, tcase := range testCases {
		t.Run(tcase.description, func(t *testing.T) {
			status, resp := ts.do(t, tcase.method, tcase.path, tcase.body)
			assert.Equal(t, http.StatusBadRequest, status)
			require.Len(t, resp.Errors, 1)
			assert.Contains(t, resp.Errors[0], "invalid request body")
		})
	}
}

func TestDecodeBodyReturnsBadRequestError(t *testing.T) {
	req := httptest.NewRequest("PUT", "/location", bytes.NewBufferString("{not json"))

	err := decodeBody(req, &locationReport{})
	var badRequestErr *BadRequestError
	require.True(t, errors.As(err, &badRequestErr), "got %T", err)

	var validationErr *contacts.ValidationError
	assert.False(t, errors.As(err, &validationErr))
}
