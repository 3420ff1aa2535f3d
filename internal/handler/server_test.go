package handler_test

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/jadpai-enrollment/internal/config"
	"github.com/iliyamo/jadpai-enrollment/internal/handler"
	"github.com/iliyamo/jadpai-enrollment/internal/middleware"
	"github.com/iliyamo/jadpai-enrollment/internal/model"
	"github.com/iliyamo/jadpai-enrollment/internal/router"
	"github.com/iliyamo/jadpai-enrollment/internal/service"
	"github.com/iliyamo/jadpai-enrollment/internal/storage"
	"github.com/iliyamo/jadpai-enrollment/internal/testutil"
	"github.com/iliyamo/jadpai-enrollment/internal/utils"
)

// testServer is the full router over in-memory stores.
type testServer struct {
	e           *echo.Echo
	users       *testutil.MemUserStore
	events      *memEvents
	enrollments *memEnrollments
	notifier    *recordingNotifier
	google      testutil.FakeVerifier
	tokens      *utils.TokenIssuer
	uploadDir   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := &testServer{
		users:       testutil.NewMemUserStore(),
		events:      newMemEvents(),
		enrollments: newMemEnrollments(),
		notifier:    &recordingNotifier{},
		google:      testutil.FakeVerifier{},
		tokens:      utils.NewTokenIssuer("handler-test-secret", time.Hour),
		uploadDir:   t.TempDir(),
	}
	s.enrollments.events = s.events

	files, err := storage.NewLocalStore(s.uploadDir)
	require.NoError(t, err)

	identity := service.NewIdentityService(s.users, utils.NewHasher(bcrypt.MinCost), s.tokens, s.google, nil, log)
	enrollSvc := service.NewEnrollmentService(s.enrollments, s.events, files, s.notifier, nil, log)

	noLimit := middleware.NewTokenBucket(config.RateLimitConfig{}, nil, log)
	noCache := middleware.NewRedisCache(config.CacheConfig{}, nil)
	noPurge := middleware.InvalidateCache(config.CacheConfig{}, nil, log)

	s.e = router.New(log, nil)
	router.RegisterRoutes(s.e, nil, nil, s.uploadDir)
	router.RegisterUsers(s.e, handler.NewAuthHandler(identity), handler.NewUserHandler(s.users, identity), s.tokens, noLimit)
	router.RegisterEvents(s.e, handler.NewEventHandler(s.events), s.tokens, noCache, noPurge)
	router.RegisterEnrollments(s.e, handler.NewEnrollmentHandler(s.enrollments, enrollSvc), s.tokens, noPurge)
	return s
}

// seedUser stores u and returns it with a session token.
func (s *testServer) seedUser(t *testing.T, u model.User) (model.User, string) {
	t.Helper()
	u = s.users.Seed(u)
	token, err := s.tokens.Issue(u)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) seedAdmin(t *testing.T) (model.User, string) {
	return s.seedUser(t, model.User{Name: "Root", Surname: "Admin", Email: "admin@jadpai.test", Role: model.RoleAdmin})
}
