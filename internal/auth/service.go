package auth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/showroom-dms/showroom/internal/shared"
)

// Service wraps authentication and staff administration rules.
type Service struct {
	repo  Repository
	audit *shared.AuditLogger
	exec  shared.Execer
}

// NewService constructs a new Service. exec may be nil, in which case user
// administration is not audited.
func NewService(repo Repository, exec shared.Execer) *Service {
	return &Service{repo: repo, audit: shared.NewAuditLogger(), exec: exec}
}

// Authenticate validates username/password credentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.repo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// LoadActor resolves the actor for a session's user id.
func (s *Service) LoadActor(ctx context.Context, userID int64) (shared.Actor, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return shared.Actor{}, err
	}
	if !user.IsActive {
		return shared.Actor{}, shared.ErrInvalidCredentials
	}
	return user.Actor(), nil
}

// ListUsers returns staff accounts. Salesmen may not list staff.
func (s *Service) ListUsers(ctx context.Context, actor shared.Actor) ([]User, error) {
	if actor.HasRole(shared.RoleSalesman) {
		return nil, shared.Forbidden("salesmen cannot list staff accounts")
	}
	return s.repo.ListUsers(ctx)
}

// CreateUser registers a staff account. Admin only.
func (s *Service) CreateUser(ctx context.Context, actor shared.Actor, req CreateUserRequest) (*User, error) {
	if !actor.IsAdmin() {
		return nil, shared.Forbidden("only admins can create users")
	}
	if err := shared.ValidateStruct(req); err != nil {
		return nil, err
	}
	role, ok := shared.ParseRole(req.Role)
	if !ok {
		return nil, shared.Invalid("role", "unknown role %q", req.Role)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := User{
		Username:     strings.ToLower(strings.TrimSpace(req.Username)),
		FullName:     shared.TitleCase(req.FullName),
		Role:         role,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	id, err := s.repo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	s.record(ctx, actor, shared.AuditUserCreated, id, map[string]any{"username": user.Username, "role": string(role)})
	return &user, nil
}

// DeleteUser removes a staff account. Admin only; admins cannot remove themselves.
func (s *Service) DeleteUser(ctx context.Context, actor shared.Actor, id int64) error {
	if !actor.IsAdmin() {
		return shared.Forbidden("only admins can delete users")
	}
	if id == actor.ID {
		return shared.PreconditionFailed("cannot delete the signed-in account")
	}
	if err := s.repo.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.record(ctx, actor, shared.AuditUserDeleted, id, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actor shared.Actor, action string, id int64, meta map[string]any) {
	if s.exec == nil {
		return
	}
	_ = s.audit.Record(ctx, s.exec, shared.AuditLog{
		ActorID:  actor.ID,
		Action:   action,
		Entity:   "user",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     meta,
	})
}
