package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"bloodalert/internal/alerting"
	"bloodalert/internal/notify"
	"bloodalert/internal/store/storetest"
	"bloodalert/internal/utils"
	"bloodalert/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	ctypes "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	signUpErr error
	authErr   error
	sub       string
	signedUp  *cognitoidentityprovider.SignUpInput
}

func (f *fakeIdentity) SignUp(_ context.Context, in *cognitoidentityprovider.SignUpInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error) {
	if f.signUpErr != nil {
		return nil, f.signUpErr
	}
	f.signedUp = in
	return &cognitoidentityprovider.SignUpOutput{UserSub: aws.String(f.sub)}, nil
}

func (f *fakeIdentity) InitiateAuth(_ context.Context, in *cognitoidentityprovider.InitiateAuthInput, _ ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &cognitoidentityprovider.InitiateAuthOutput{
		AuthenticationResult: &ctypes.AuthenticationResultType{
			AccessToken: aws.String("token-" + in.AuthParameters["USERNAME"]),
			ExpiresIn:   3600,
		},
	}, nil
}

// tokenTable verifies tokens by lookup.
type tokenTable map[string]string

func (t tokenTable) Verify(_ context.Context, token string) (string, error) {
	sub, ok := t[token]
	if !ok {
		return "", errors.New("unknown token")
	}
	return sub, nil
}

type nopSink struct{}

func (nopSink) Send(context.Context, notify.Message) error { return nil }

type harness struct {
	mem      *storetest.Memory
	identity *fakeIdentity
	handler  http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	mem := storetest.New()
	mem.AddUser(&types.User{ID: "hospital-h", Email: "staff@mercy.example", Name: "Mercy Staff", Role: types.RoleHospitalStaff,
		HospitalName: utils.StringPtr("Mercy General"), Latitude: utils.Float64Ptr(40.7128), Longitude: utils.Float64Ptr(-74.0060)})
	oPos := types.BloodTypeOPos
	mem.AddUser(&types.User{ID: "donor-a", Email: "a@example.com", Name: "Donor A", Role: types.RoleDonor,
		BloodType: &oPos, Latitude: utils.Float64Ptr(40.7306), Longitude: utils.Float64Ptr(-73.9866)})

	logger, _ := test.NewNullLogger()
	dispatcher := notify.NewDispatcher(nopSink{}, mem.Notifications(), logger)
	coordinator := alerting.NewCoordinator(mem.Alerts(), mem.Users(), mem.Notifications(), dispatcher, logger, alerting.Options{})
	ledger := alerting.NewLedger(mem.Alerts(), mem.Responses(), logger, nil)
	stats := alerting.NewStatsAggregator(mem.Alerts(), mem.Responses())

	config := &types.Config{
		ServerPort:      8080,
		CookieHashKey:   base64.StdEncoding.EncodeToString([]byte(strings.Repeat("h", 32))),
		CookieBlockKey:  base64.StdEncoding.EncodeToString([]byte(strings.Repeat("b", 32))),
		DefaultRadiusKm: 50,
	}
	identity := &fakeIdentity{sub: "new-user"}
	tokens := tokenTable{
		"token-hospital":              "hospital-h",
		"token-donor":                 "donor-a",
		"token-staff@mercy.example":   "hospital-h",
		"token-for-a-deleted-account": "ghost",
	}

	svc, err := New(config, logger, identity, tokens, mem.Users(), coordinator, ledger, stats)
	require.NoError(t, err)

	return &harness{mem: mem, identity: identity, handler: svc.Handler()}
}

func (h *harness) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRequireAuth(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/alerts", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/alerts", "bogus", "").Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/api/alerts", "token-for-a-deleted-account", "").Code)

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/alerts", "token-hospital",
		`{"bloodType":"O+","unitsNeeded":3,"urgencyLevel":"high","radiusKm":30,"description":"Trauma bay"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	alert := decode[types.Alert](t, rec)
	assert.Equal(t, types.AlertStatusActive, alert.Status)
	assert.Equal(t, "hospital-h", alert.HospitalID)

	rec = h.do(t, http.MethodGet, "/api/alerts", "token-donor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]types.AlertView](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, "Mercy General", utils.PtrString(listed[0].HospitalName))

	rec = h.do(t, http.MethodGet, "/api/alerts/"+alert.ID, "token-donor", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/mock-emails", "token-donor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	emails := decode[[]types.Notification](t, rec)
	require.Len(t, emails, 1)
	assert.Equal(t, alert.ID, emails[0].AlertID)

	rec = h.do(t, http.MethodPost, "/api/alerts/"+alert.ID+"/respond", "token-donor", `{"response":"available"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	form := url.Values{"response": {"not_available"}, "message": {"at work"}}
	req := httptest.NewRequest(http.MethodPost, "/api/alerts/"+alert.ID+"/respond", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer token-donor")
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/api/alerts/"+alert.ID+"/responses", "token-hospital", "")
	require.Equal(t, http.StatusOK, rec.Code)
	responses := decode[[]types.ResponseView](t, rec)
	require.Len(t, responses, 1)
	assert.Equal(t, types.ResponseNotAvailable, responses[0].Response.Response)
	assert.Equal(t, "at work", utils.PtrString(responses[0].Message))
	assert.Equal(t, "Donor A", responses[0].DonorName)

	rec = h.do(t, http.MethodGet, "/api/dashboard/stats", "token-hospital", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalAlerts":1,"activeAlerts":1,"totalResponses":1,"availableResponses":0,"notAvailableResponses":1}`, rec.Body.String())

	rec = h.do(t, http.MethodPatch, "/api/alerts/"+alert.ID+"/status", "token-hospital", `{"status":"fulfilled"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, types.AlertStatusFulfilled, decode[types.AlertView](t, rec).Status)

	rec = h.do(t, http.MethodGet, "/api/alerts", "token-donor", "")
	assert.Empty(t, decode[[]types.AlertView](t, rec))
}

func TestCreateAlertUsesDefaultRadius(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/alerts", "token-hospital", `{"bloodType":"A-","unitsNeeded":1,"urgencyLevel":"critical"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, 50.0, decode[types.Alert](t, rec).RadiusKm)
}

func TestErrorStatusCodes(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/alerts", "token-donor", `{"bloodType":"O+","unitsNeeded":1,"urgencyLevel":"high","radiusKm":5}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/alerts", "token-hospital", `{"bloodType":"O+","unitsNeeded":0,"urgencyLevel":"high","radiusKm":5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[fieldErrorsResponse](t, rec)
	assert.Contains(t, body.FieldErrors, "unitsNeeded")

	rec = h.do(t, http.MethodPost, "/api/alerts", "token-hospital", `{"bloodType":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/alerts/missing", "token-donor", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/alerts/missing/respond", "token-donor", `{"response":"available"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodGet, "/api/alerts/missing/responses", "token-donor", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.Zero(t, len(h.mem.Responses().All()))
}

func TestStripTrailingSlash(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/api/alerts/?page=2", "", "")
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/api/alerts?page=2", rec.Header().Get("Location"))
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/register", "", `{"email":"not-an-email","password":"short","role":"donor"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[fieldErrorsResponse](t, rec)
	for _, field := range []string{"name", "email", "password", "bloodType", "city"} {
		assert.Contains(t, body.FieldErrors, field)
	}
	assert.Nil(t, h.identity.signedUp)

	rec = h.do(t, http.MethodPost, "/api/register", "", `{"email":"root@example.com","name":"Root","password":"Sup3r-secret-pass","role":"admin"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[fieldErrorsResponse](t, rec).FieldErrors, "role")

	rec = h.do(t, http.MethodPost, "/api/register", "",
		`{"email":"new@example.com","name":"New Donor","password":"Sup3r-secret-pass","role":"donor","bloodType":"B-","city":"Newark","latitude":40.73,"longitude":-74.17}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	user := decode[types.User](t, rec)
	assert.Equal(t, "new-user", user.ID)
	assert.Equal(t, types.RoleDonor, user.Role)
	require.NotNil(t, user.BloodType)
	assert.Equal(t, types.BloodTypeBNeg, *user.BloodType)
	assert.Equal(t, "new@example.com", aws.ToString(h.identity.signedUp.Username))

	stored, err := h.mem.Users().User(context.Background(), "new-user")
	require.NoError(t, err)
	assert.Equal(t, "Newark", utils.PtrString(stored.City))

	h.identity.sub = "another"
	rec = h.do(t, http.MethodPost, "/api/register", "",
		`{"email":"NEW@example.com","name":"Dup","password":"Sup3r-secret-pass","role":"hospital_staff","hospitalName":"St. Luke"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	h.identity.signUpErr = &ctypes.UsernameExistsException{Message: aws.String("exists")}
	rec = h.do(t, http.MethodPost, "/api/register", "",
		`{"email":"other@example.com","name":"Other","password":"Sup3r-secret-pass","role":"hospital_staff","hospitalName":"St. Luke"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterRejectsKnownEmailBeforeSignUp(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/register", "",
		`{"email":" A@Example.com ","name":"Again","password":"Sup3r-secret-pass","role":"donor","bloodType":"O+","city":"Hoboken"}`)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Contains(t, decode[fieldErrorsResponse](t, rec).FieldErrors, "email")
	assert.Nil(t, h.identity.signedUp)
}

func TestPatchMeLocation(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, http.StatusUnauthorized,
		h.do(t, http.MethodPatch, "/api/me/location", "", `{"latitude":40.75,"longitude":-73.99}`).Code)

	rec := h.do(t, http.MethodPatch, "/api/me/location", "token-hospital", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[fieldErrorsResponse](t, rec).FieldErrors, "latitude")

	rec = h.do(t, http.MethodPatch, "/api/me/location", "token-hospital", `{"latitude":40.75}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[fieldErrorsResponse](t, rec).FieldErrors, "latitude")

	rec = h.do(t, http.MethodPatch, "/api/me/location", "token-hospital", `{"latitude":91,"longitude":-181}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errs := decode[fieldErrorsResponse](t, rec).FieldErrors
	assert.Contains(t, errs, "latitude")
	assert.Contains(t, errs, "longitude")

	stored, err := h.mem.Users().User(context.Background(), "hospital-h")
	require.NoError(t, err)
	assert.Equal(t, 40.7128, utils.PtrFloat64(stored.Latitude))

	rec = h.do(t, http.MethodPatch, "/api/me/location", "token-hospital", `{"latitude":40.75,"longitude":-73.99}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	user := decode[types.User](t, rec)
	assert.Equal(t, 40.75, utils.PtrFloat64(user.Latitude))
	assert.Equal(t, -73.99, utils.PtrFloat64(user.Longitude))

	stored, err = h.mem.Users().User(context.Background(), "hospital-h")
	require.NoError(t, err)
	assert.Equal(t, 40.75, utils.PtrFloat64(stored.Latitude))
	assert.Equal(t, -73.99, utils.PtrFloat64(stored.Longitude))
}

func TestLoginSetsSessionCookie(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPost, "/api/login", "", `{"email":"staff@mercy.example","password":"Sup3r-secret-pass"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[loginResponse](t, rec)
	assert.Equal(t, "token-staff@mercy.example", login.AccessToken)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)
	assert.NotEqual(t, login.AccessToken, cookies[0].Value)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "hospital-h", decode[types.User](t, rec).ID)

	h.identity.authErr = &ctypes.NotAuthorizedException{Message: aws.String("bad password")}
	rec = h.do(t, http.MethodPost, "/api/login", "", `{"email":"staff@mercy.example","password":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodPost, "/api/login", "", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
