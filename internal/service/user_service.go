package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"usersvc/api/internal/config"
	"usersvc/api/internal/mail"
	"usersvc/api/internal/models"
	"usersvc/api/internal/pagination"
	"usersvc/api/internal/repository"
	"usersvc/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrResetTokenExpired  = errors.New("reset token expired")
	ErrInvalidCursor      = errors.New("cursor does not reference an existing user")
)

// UserStore is the persistence surface the service depends on. The
// mongo-backed repository satisfies it; tests substitute fakes.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	EmailInUse(ctx context.Context, email string, exclude primitive.ObjectID) (bool, error)
	Replace(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	Count(ctx context.Context, filter bson.M) (int64, error)
	Window(ctx context.Context, args pagination.Args) ([]models.User, error)
	ExistsNewer(ctx context.Context, id primitive.ObjectID) (bool, error)
	ExistsOlder(ctx context.Context, id primitive.ObjectID) (bool, error)
}

type UserService struct {
	users  UserStore
	mailer mail.Mailer
	cfg    *config.AppConfig
	log    zerolog.Logger
}

func NewUserService(users UserStore, mailer mail.Mailer, cfg *config.AppConfig, log zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		mailer: mailer,
		cfg:    cfg,
		log:    log,
	}
}

type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	Organisation string
	Telephone    string
}

// Register runs the write-path pipeline for a new account: hash the
// password, probe email uniqueness, attach the institutional billing
// record where the domain warrants one, persist. The unique index on
// email converts the check-then-write race into ErrEmailTaken.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	user := &models.User{
		Email:        input.Email,
		Name:         input.Name,
		Organisation: input.Organisation,
		Telephone:    input.Telephone,
		Role:         models.RoleBasic,
		Permissions:  []string{},
		Billings:     []models.Billing{},
	}

	if err := s.setPassword(user, input.Password); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueEmail(ctx, user); err != nil {
		return nil, err
	}
	s.attachInstitutionalBilling(user)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info().Str("user_id", user.ID.Hex()).Str("email", user.Email).Msg("user registered")
	return user, nil
}

// setPassword hashes and stores a new password on the record.
func (s *UserService) setPassword(user *models.User, password string) error {
	hash, err := security.HashPassword(password)
	if err != nil {
		return err
	}
	user.Password = hash
	return nil
}

// ensureUniqueEmail probes for another record holding the same email.
// Emails compare exactly as stored.
func (s *UserService) ensureUniqueEmail(ctx context.Context, user *models.User) error {
	taken, err := s.users.EmailInUse(ctx, user.Email, user.ID)
	if err != nil {
		return err
	}
	if taken {
		return repository.ErrEmailTaken
	}
	return nil
}

func (s *UserService) attachInstitutionalBilling(user *models.User) {
	if user.Institutional() {
		user.Billings = append(user.Billings, models.InstitutionalBilling())
	}
}

func (s *UserService) Login(ctx context.Context, email string, password string) (*models.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !security.VerifyPassword(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// IssueSession signs a session token for the user.
func (s *UserService) IssueSession(user *models.User) (string, error) {
	return security.SignSession(s.cfg.Security.JWTSecret, security.SessionClaims{
		UserID:      user.ID.Hex(),
		Email:       user.Email,
		Name:        user.Name,
		Role:        string(user.Role),
		Permissions: user.Permissions,
		Verified:    user.Verified,
	}, s.cfg.Security.SessionTTL)
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, objectID)
}

type ListInput struct {
	After  string
	Before string
	First  int
	Last   int
}

// List returns one window of users as a connection. Cursors must
// reference existing records; the window itself never errors on an
// empty result.
func (s *UserService) List(ctx context.Context, input ListInput) (pagination.Connection[models.User], error) {
	var empty pagination.Connection[models.User]

	args := pagination.Args{First: input.First, Last: input.Last}

	if input.After != "" {
		cursor, err := s.resolveCursor(ctx, input.After)
		if err != nil {
			return empty, err
		}
		args.After = cursor
	}
	if input.Before != "" {
		cursor, err := s.resolveCursor(ctx, input.Before)
		if err != nil {
			return empty, err
		}
		args.Before = cursor
	}

	window, err := s.users.Window(ctx, args)
	if err != nil {
		return empty, err
	}

	if len(window) == 0 {
		return pagination.NewConnection(window, userCursor, false, false), nil
	}

	hasPrevious, err := s.users.ExistsNewer(ctx, window[0].ID)
	if err != nil {
		return empty, err
	}
	hasNext, err := s.users.ExistsOlder(ctx, window[len(window)-1].ID)
	if err != nil {
		return empty, err
	}

	return pagination.NewConnection(window, userCursor, hasPrevious, hasNext), nil
}

func userCursor(user models.User) primitive.ObjectID {
	return user.ID
}

// resolveCursor rejects cursors that are not well-formed identifiers
// of existing users before the pager runs.
func (s *UserService) resolveCursor(ctx context.Context, cursor string) (*primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(cursor)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	if _, err := s.users.GetByID(ctx, objectID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCursor
		}
		return nil, err
	}
	return &objectID, nil
}

type UpdateInput struct {
	Name         string
	Email        string
	Organisation string
	Telephone    string
}

func (s *UserService) Update(ctx context.Context, id string, input UpdateInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	emailChanged := input.Email != "" && input.Email != user.Email
	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Email != "" {
		user.Email = input.Email
	}
	if input.Organisation != "" {
		user.Organisation = input.Organisation
	}
	if input.Telephone != "" {
		user.Telephone = input.Telephone
	}

	if emailChanged {
		if err := s.ensureUniqueEmail(ctx, user); err != nil {
			return nil, err
		}
	}

	if err := s.users.Replace(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateBilling upserts a billing record on the caller's own account,
// matching embedded records by name.
func (s *UserService) UpdateBilling(ctx context.Context, callerID string, billing models.Billing) (*models.User, error) {
	user, err := s.Get(ctx, callerID)
	if err != nil {
		return nil, err
	}

	updated := false
	for i := range user.Billings {
		if user.Billings[i].Name == billing.Name {
			user.Billings[i].ICO = billing.ICO
			user.Billings[i].DIC = billing.DIC
			user.Billings[i].ICDPH = billing.ICDPH
			user.Billings[i].IBAN = billing.IBAN
			user.Billings[i].SWIFT = billing.SWIFT
			user.Billings[i].Address = billing.Address
			updated = true
			break
		}
	}
	if !updated {
		user.Billings = append(user.Billings, billing)
	}

	if err := s.users.Replace(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ForgotPassword signs a short-lived reset token and mails it to the
// account's address. Unknown addresses are reported to the caller as
// not found.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	token, err := security.SignReset(s.cfg.Security.JWTSecret, user.ID.Hex(), s.cfg.Security.ResetTTL)
	if err != nil {
		return err
	}

	text := fmt.Sprintf("Reset password with the following token: %s", token)
	html := fmt.Sprintf(
		"<html><head></head><body><p>Dear %s</p><p>Please reset your password with the following token: %s</p></body></html>",
		user.Name, token,
	)

	if err := s.mailer.Send(ctx, email, "Password Reset", text, html); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	return nil
}

// ResetPassword verifies a reset token and runs the password step of
// the write pipeline with the new value.
func (s *UserService) ResetPassword(ctx context.Context, token string, password string) (*models.User, error) {
	claims := security.VerifyReset(token, s.cfg.Security.JWTSecret)
	if claims == nil {
		return nil, ErrResetTokenExpired
	}

	user, err := s.Get(ctx, claims.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.setPassword(user, password); err != nil {
		return nil, err
	}
	if err := s.users.Replace(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) SetVerified(ctx context.Context, id string, verified bool) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	user.Verified = verified
	if err := s.users.Replace(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, id string) error {
	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.users.Delete(ctx, objectID)
	if err != nil {
		return err
	}
	if !deleted {
		return repository.ErrUserNotFound
	}
	return nil
}

type UserStats struct {
	Total     int64            `json:"total"`
	Verified  int64            `json:"verified"`
	ByRole    map[string]int64 `json:"byRole"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CollectStats counts accounts per role plus the verified total. The
// scheduler caches the result for the admin dashboard.
func (s *UserService) CollectStats(ctx context.Context) (UserStats, error) {
	stats := UserStats{
		ByRole:    make(map[string]int64, 3),
		UpdatedAt: time.Now().UTC(),
	}

	total, err := s.users.Count(ctx, bson.M{})
	if err != nil {
		return UserStats{}, err
	}
	stats.Total = total

	verified, err := s.users.Count(ctx, bson.M{"verified": true})
	if err != nil {
		return UserStats{}, err
	}
	stats.Verified = verified

	for _, role := range []models.Role{models.RoleBasic, models.RoleSupervisor, models.RoleAdmin} {
		count, err := s.users.Count(ctx, bson.M{"role": role})
		if err != nil {
			return UserStats{}, err
		}
		stats.ByRole[string(role)] = count
	}

	return stats, nil
}

// parseID maps malformed identifiers to the not-found class; callers
// never learn whether the id was syntactically valid.
func parseID(id string) (primitive.ObjectID, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, repository.ErrUserNotFound
	}
	return objectID, nil
}
