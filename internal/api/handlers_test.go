package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"example.com/extracurricular/internal/catalog"
	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/registry"
)

func newTestMux(t *testing.T, opts ...domain.Option) *http.ServeMux {
	t.Helper()

	seed, err := catalog.Default()
	require.NoError(t, err)
	service := domain.NewService(registry.NewMemory(seed), nil, opts...)

	mux := http.NewServeMux()
	NewHandler(service, zaptest.NewLogger(t)).RegisterRoutes(mux)
	return mux
}

func do(t *testing.T, mux http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(method, target, nil))
	return rr
}

func listActivities(t *testing.T, mux http.Handler) ActivitiesResponse {
	t.Helper()

	rr := do(t, mux, http.MethodGet, "/activities")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp ActivitiesResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestListActivitiesReturnsAllActivities(t *testing.T) {
	resp := listActivities(t, newTestMux(t))

	for _, name := range []string{"Chess Club", "Programming Class", "Gym Class", "Basketball Club"} {
		require.Contains(t, resp, name)
	}

	chess := resp["Chess Club"]
	require.Equal(t, "Learn strategies and compete in chess tournaments", chess.Description)
	require.Equal(t, "Fridays, 3:30 PM - 5:00 PM", chess.Schedule)
	require.Equal(t, 12, chess.MaxParticipants)
	require.Contains(t, chess.Participants, "michael@mergington.edu")
	require.Contains(t, chess.Participants, "daniel@mergington.edu")
}

func TestListActivitiesJSONShape(t *testing.T) {
	rr := do(t, newTestMux(t), http.MethodGet, "/activities")

	var raw map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &raw))
	for _, field := range []string{"description", "schedule", "max_participants", "participants"} {
		require.Contains(t, raw["Chess Club"], field)
	}
}

func TestEmptyRosterEncodesAsArray(t *testing.T) {
	mux := newTestMux(t)
	rr := do(t, mux, http.MethodDelete, "/activities/Tennis%20Club/unregister?email=james@mergington.edu")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(t, mux, http.MethodGet, "/activities")
	require.Contains(t, rr.Body.String(), `"participants":[]`)
}

func TestSignup(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedKey    string
		expectedSubstr string
	}{
		{
			name:           "success",
			target:         "/activities/Chess%20Club/signup?email=newstudent@mergington.edu",
			expectedStatus: http.StatusOK,
			expectedKey:    "message",
			expectedSubstr: "Signed up newstudent@mergington.edu for Chess Club",
		},
		{
			name:           "unknown activity",
			target:         "/activities/Nonexistent%20Club/signup?email=newstudent@mergington.edu",
			expectedStatus: http.StatusNotFound,
			expectedKey:    "detail",
			expectedSubstr: "not found",
		},
		{
			name:           "duplicate",
			target:         "/activities/Chess%20Club/signup?email=michael@mergington.edu",
			expectedStatus: http.StatusBadRequest,
			expectedKey:    "detail",
			expectedSubstr: "already signed up",
		},
		{
			name:           "missing email",
			target:         "/activities/Chess%20Club/signup",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedKey:    "detail",
			expectedSubstr: "email",
		},
		{
			name:           "blank email",
			target:         "/activities/Chess%20Club/signup?email=%20%20",
			expectedStatus: http.StatusUnprocessableEntity,
			expectedKey:    "detail",
			expectedSubstr: "email",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, newTestMux(t), http.MethodPost, tc.target)
			require.Equal(t, tc.expectedStatus, rr.Code, rr.Body.String())
			body := decodeBody(t, rr)
			require.Contains(t, strings.ToLower(body[tc.expectedKey]), strings.ToLower(tc.expectedSubstr))
		})
	}
}

func TestSignupAddsParticipant(t *testing.T) {
	mux := newTestMux(t)

	rr := do(t, mux, http.MethodPost, "/activities/Chess%20Club/signup?email=newstudent@mergington.edu")
	require.Equal(t, http.StatusOK, rr.Code)

	resp := listActivities(t, mux)
	require.Contains(t, resp["Chess Club"].Participants, "newstudent@mergington.edu")
}

func TestSignupMultipleActivities(t *testing.T) {
	mux := newTestMux(t)
	email := "versatile@mergington.edu"

	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/activities/Chess%20Club/signup?email="+email).Code)
	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/activities/Programming%20Class/signup?email="+email).Code)

	resp := listActivities(t, mux)
	require.Contains(t, resp["Chess Club"].Participants, email)
	require.Contains(t, resp["Programming Class"].Participants, email)
}

func TestUnregister(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedKey    string
		expectedSubstr string
	}{
		{
			name:           "success",
			target:         "/activities/Chess%20Club/unregister?email=michael@mergington.edu",
			expectedStatus: http.StatusOK,
			expectedKey:    "message",
			expectedSubstr: "Unregistered michael@mergington.edu from Chess Club",
		},
		{
			name:           "unknown activity",
			target:         "/activities/Nonexistent%20Club/unregister?email=student@mergington.edu",
			expectedStatus: http.StatusNotFound,
			expectedKey:    "detail",
			expectedSubstr: "not found",
		},
		{
			name:           "not registered",
			target:         "/activities/Chess%20Club/unregister?email=notregistered@mergington.edu",
			expectedStatus: http.StatusBadRequest,
			expectedKey:    "detail",
			expectedSubstr: "not signed up",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := do(t, newTestMux(t), http.MethodDelete, tc.target)
			require.Equal(t, tc.expectedStatus, rr.Code, rr.Body.String())
			body := decodeBody(t, rr)
			require.Contains(t, strings.ToLower(body[tc.expectedKey]), strings.ToLower(tc.expectedSubstr))
		})
	}
}

func TestSignupAndUnregisterFlow(t *testing.T) {
	mux := newTestMux(t)
	email := "flowtest@mergington.edu"

	require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/activities/Tennis%20Club/signup?email="+email).Code)
	require.Contains(t, listActivities(t, mux)["Tennis Club"].Participants, email)

	require.Equal(t, http.StatusOK, do(t, mux, http.MethodDelete, "/activities/Tennis%20Club/unregister?email="+email).Code)
	require.NotContains(t, listActivities(t, mux)["Tennis Club"].Participants, email)

	rr := do(t, mux, http.MethodDelete, "/activities/Tennis%20Club/unregister?email="+email)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestParticipantCountAccuracy(t *testing.T) {
	mux := newTestMux(t)
	require.Len(t, listActivities(t, mux)["Chess Club"].Participants, 2)

	do(t, mux, http.MethodPost, "/activities/Chess%20Club/signup?email=newstudent@mergington.edu")
	require.Len(t, listActivities(t, mux)["Chess Club"].Participants, 3)

	do(t, mux, http.MethodDelete, "/activities/Chess%20Club/unregister?email=daniel@mergington.edu")
	chess := listActivities(t, mux)["Chess Club"]
	require.Len(t, chess.Participants, 2)
	require.NotContains(t, chess.Participants, "daniel@mergington.edu")
}

func TestTennisClubAvailableSpots(t *testing.T) {
	tennis := listActivities(t, newTestMux(t))["Tennis Club"]
	require.Equal(t, 10, tennis.MaxParticipants)
	require.Len(t, tennis.Participants, 1)
	require.Equal(t, 9, tennis.MaxParticipants-len(tennis.Participants))
}

func TestNoDuplicateParticipantsListed(t *testing.T) {
	mux := newTestMux(t)
	for i := 0; i < 3; i++ {
		do(t, mux, http.MethodPost, "/activities/Art%20Club/signup?email=repeat@mergington.edu")
	}

	for name, activity := range listActivities(t, mux) {
		seen := make(map[string]struct{}, len(activity.Participants))
		for _, email := range activity.Participants {
			_, dup := seen[email]
			require.False(t, dup, "duplicate %s in %s", email, name)
			seen[email] = struct{}{}
		}
	}
}

func TestEnforcedCapacityReturnsBadRequest(t *testing.T) {
	mux := newTestMux(t, domain.WithCapacityPolicy(domain.CapacityEnforced))

	for i := 0; i < 9; i++ {
		email := string(rune('a'+i)) + "@mergington.edu"
		require.Equal(t, http.StatusOK, do(t, mux, http.MethodPost, "/activities/Tennis%20Club/signup?email="+email).Code)
	}

	rr := do(t, mux, http.MethodPost, "/activities/Tennis%20Club/signup?email=late@mergington.edu")
	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "Activity is full", decodeBody(t, rr)["detail"])
}

func TestMethodNotAllowed(t *testing.T) {
	mux := newTestMux(t)

	require.Equal(t, http.StatusMethodNotAllowed, do(t, mux, http.MethodPost, "/activities").Code)
	require.Equal(t, http.StatusMethodNotAllowed, do(t, mux, http.MethodGet, "/activities/Chess%20Club/signup?email=a@mergington.edu").Code)
	require.Equal(t, http.StatusMethodNotAllowed, do(t, mux, http.MethodPost, "/activities/Chess%20Club/unregister?email=a@mergington.edu").Code)
}

func TestUnknownRouteReturnsJSON404(t *testing.T) {
	rr := do(t, newTestMux(t), http.MethodGet, "/nope")
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Equal(t, codeNotFound, decodeBody(t, rr)["type"])
}

func TestHealthz(t *testing.T) {
	rr := do(t, newTestMux(t), http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}
