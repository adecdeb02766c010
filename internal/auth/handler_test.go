package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/showroom-dms/showroom/internal/auth"
	"github.com/showroom-dms/showroom/internal/rbac"
	"github.com/showroom-dms/showroom/internal/shared"
	_ "github.com/showroom-dms/showroom/testing"
)

type stubRepo struct {
	users  map[int64]*auth.User
	nextID int64
}

func newStubRepo(users ...*auth.User) *stubRepo {
	repo := &stubRepo{users: map[int64]*auth.User{}, nextID: 100}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (s *stubRepo) FindByUsername(ctx context.Context, username string) (*auth.User, error) {
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, shared.NotFound("user", username)
}

func (s *stubRepo) FindByID(ctx context.Context, id int64) (*auth.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, shared.NotFound("user", id)
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]auth.User, error) {
	out := make([]auth.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	return out, nil
}

func (s *stubRepo) CreateUser(ctx context.Context, user auth.User) (int64, error) {
	for _, u := range s.users {
		if u.Username == user.Username {
			return 0, shared.Conflict("duplicate username")
		}
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = &user
	return user.ID, nil
}

func (s *stubRepo) DeleteUser(ctx context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return shared.NotFound("user", id)
	}
	delete(s.users, id)
	return nil
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newAuthHandler(t *testing.T, repo auth.Repository) (*auth.Handler, *shared.SessionManager, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessionManager := shared.NewSessionManager(redisClient, "test_session", time.Hour, false)
	handler := auth.NewHandler(nil, auth.NewService(repo, nil), sessionManager, rbac.Middleware{})
	return handler, sessionManager, redisClient
}

func doLogin(t *testing.T, handler *auth.Handler, sm *shared.SessionManager, body string) (*httptest.ResponseRecorder, *shared.Session) {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	ctx := shared.ContextWithSession(req.Context(), sess)
	req = req.WithContext(ctx)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, req)
	require.NoError(t, sm.Commit(ctx, res, sess))
	return res, sess
}

func TestLoginSuccessBindsSession(t *testing.T) {
	repo := newStubRepo(&auth.User{ID: 7, Username: "ravi", FullName: "Ravi Kumar", Role: shared.RoleManager, PasswordHash: hashed(t, "correctpass"), IsActive: true})
	handler, sm, client := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sm, `{"username":"ravi","password":"correctpass"}`)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"role":"Manager"`)
	assert.Equal(t, int64(7), sess.UserID())

	stored, err := client.Get(context.Background(), "session:"+sess.ID).Result()
	require.NoError(t, err)
	assert.Contains(t, stored, `"user_id":7`)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := newStubRepo(&auth.User{ID: 1, Username: "user", FullName: "User", Role: shared.RoleSalesman, PasswordHash: hashed(t, "correctpass"), IsActive: true})
	handler, sm, _ := newAuthHandler(t, repo)

	res, sess := doLogin(t, handler, sm, `{"username":"user","password":"wrongpass"}`)

	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, int64(0), sess.UserID())
}

func TestLoginValidation(t *testing.T) {
	handler, sm, _ := newAuthHandler(t, newStubRepo())

	res, _ := doLogin(t, handler, sm, `{"username":"","password":"x"}`)

	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "username")
}
