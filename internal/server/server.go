package server

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"time"

	"bloodalert/internal/alerting"
	"bloodalert/pkg/types"

	"github.com/alexedwards/flow"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/go-playground/form/v4"
	"github.com/gorilla/securecookie"
	"github.com/sirupsen/logrus"
)

var decoder = form.NewDecoder()

// IdentityProvider is the subset of the Cognito client used for sign-up
// and sign-in.
type IdentityProvider interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
}

type UserDirectory interface {
	User(ctx context.Context, userID string) (*types.User, error)
	UserByEmail(ctx context.Context, email string) (*types.User, error)
	Create(ctx context.Context, user *types.User) error
	UpdateLocation(ctx context.Context, userID string, point types.Point) error
}

type Service struct {
	logger *logrus.Logger
	config *types.Config

	identity IdentityProvider
	verifier TokenVerifier
	cookie   *securecookie.SecureCookie

	users       UserDirectory
	coordinator *alerting.Coordinator
	ledger      *alerting.Ledger
	stats       *alerting.StatsAggregator

	handler http.Handler
	server  *http.Server
}

func New(
	config *types.Config,
	logger *logrus.Logger,
	identity IdentityProvider,
	verifier TokenVerifier,
	users UserDirectory,
	coordinator *alerting.Coordinator,
	ledger *alerting.Ledger,
	stats *alerting.StatsAggregator,
) (*Service, error) {
	mux := flow.New()

	hashKey, err := base64.StdEncoding.DecodeString(config.CookieHashKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie hash key: %w", err)
	}
	blockKey, err := base64.StdEncoding.DecodeString(config.CookieBlockKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cookie block key: %w", err)
	}
	if len(hashKey) == 0 {
		return nil, fmt.Errorf("set COOKIE_HASH_KEY")
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}

	s := &Service{
		logger:   logger,
		config:   config,
		identity: identity,
		verifier: verifier,
		cookie:   securecookie.New(hashKey, blockKey),

		users:       users,
		coordinator: coordinator,
		ledger:      ledger,
		stats:       stats,

		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.ServerPort),
			ReadTimeout:       time.Duration(config.ReadTimeoutSec) * time.Second,
			ReadHeaderTimeout: time.Duration(config.ReadTimeoutSec) * time.Second,
			WriteTimeout:      time.Duration(config.WriteTimeoutSec) * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}

	s.buildRouter(mux)
	s.handler = s.StripTrailingSlash(mux)
	s.server.Handler = s.handler

	return s, nil
}

func (s *Service) Start() error {
	return s.server.ListenAndServe()
}

func (s *Service) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routed handler for in-process use.
func (s *Service) Handler() http.Handler {
	return s.handler
}

func (s *Service) buildRouter(r *flow.Mux) {
	r.Use(s.LoggingMiddleware)

	r.HandleFunc("/healthz", s.handleHealth, http.MethodGet)

	r.HandleFunc("/api/register", s.handlePostRegister, http.MethodPost)
	r.HandleFunc("/api/login", s.handlePostLogin, http.MethodPost)

	r.Group(func(r *flow.Mux) {
		r.Use(s.RequireAuth)

		r.HandleFunc("/api/me", s.handleGetMe, http.MethodGet)
		r.HandleFunc("/api/me/location", s.handlePatchMeLocation, http.MethodPatch)

		r.HandleFunc("/api/alerts", s.handlePostAlert, http.MethodPost)
		r.HandleFunc("/api/alerts", s.handleListAlerts, http.MethodGet)
		r.HandleFunc("/api/alerts/:alertID", s.handleGetAlert, http.MethodGet)
		r.HandleFunc("/api/alerts/:alertID/status", s.handlePatchAlertStatus, http.MethodPatch)
		r.HandleFunc("/api/alerts/:alertID/respond", s.handlePostResponse, http.MethodPost)
		r.HandleFunc("/api/alerts/:alertID/responses", s.handleListResponses, http.MethodGet)

		r.HandleFunc("/api/dashboard/stats", s.handleGetStats, http.MethodGet)
		r.HandleFunc("/api/mock-emails", s.handleListNotifications, http.MethodGet)
	})
}

func (s *Service) callerFromContext(ctx context.Context) (types.Caller, error) {
	caller, ok := ctx.Value(contextKeyCaller).(types.Caller)
	if !ok || caller == nil {
		return nil, fmt.Errorf("caller not found in context")
	}
	return caller, nil
}
