package core

import (
	"context"
	"errors"
	"strings"

	"github.com/mdobak/go-xerrors"
	"github.com/siahsang/inkwell/internal/auth"
	"github.com/siahsang/inkwell/internal/database"
	"github.com/siahsang/inkwell/internal/validator"
	"github.com/siahsang/inkwell/models"
)

const (
	minPasswordLength = 8
	// bcrypt ignores everything past 72 bytes.
	maxPasswordLength = 72
)

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates the user and its author profile together.
func (c *Core) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))

	v := validator.New()
	v.CheckNotBlank(name, "name", "must be provided")
	v.CheckMaxChars(name, maxNameLength, "name")
	v.CheckNotBlank(email, "email", "must be provided")
	if email != "" {
		v.CheckEmail(email, "email", "must be a valid email address")
	}
	v.Check(len(in.Password) >= minPasswordLength, "password", "must be at least 8 characters long")
	v.Check(len(in.Password) <= maxPasswordLength, "password", "must not be more than 72 bytes long")
	if !v.IsValid() {
		return nil, invalid(v.Errors)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, xerrors.New(err)
	}

	now := c.now()
	user := &models.User{
		Email:     email,
		Name:      name,
		Password:  hash,
		Role:      c.roleFor(email),
		CreatedAt: now,
	}

	err = c.store.WithinTx(ctx, func(ctx context.Context) error {
		if err := c.store.CreateUser(ctx, user); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return invalidField("email", "a user with this email address already exists")
			}
			return xerrors.New(err)
		}
		author := &models.Author{
			UserID:      user.ID,
			Name:        user.Name,
			Email:       user.Email,
			SocialLinks: map[string]string{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := c.store.UpsertAuthor(ctx, author); err != nil {
			return xerrors.New(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Info("user registered", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks the credentials and returns the matching user.
func (c *Core) Login(ctx context.Context, email, password string) (*models.User, error) {
	v := validator.New()
	v.CheckNotBlank(email, "email", "must be provided")
	v.CheckNotBlank(password, "password", "must be provided")
	if !v.IsValid() {
		return nil, invalid(v.Errors)
	}

	user, err := c.store.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, xerrors.New(ErrInvalidCredentials)
	}
	if err != nil {
		return nil, xerrors.New(err)
	}

	match, err := auth.IsPasswordMatch(user.Password, password)
	if err != nil {
		return nil, xerrors.New(err)
	}
	if !match {
		return nil, xerrors.New(ErrInvalidCredentials)
	}
	user.Role = c.effectiveRole(user)
	return user, nil
}

// User loads the account behind a session.
func (c *Core) User(ctx context.Context, id string) (*models.User, error) {
	user, err := c.store.GetUserByID(ctx, id)
	if err != nil {
		return nil, xerrors.New(err)
	}
	user.Role = c.effectiveRole(user)
	return user, nil
}

func (c *Core) roleFor(email string) string {
	if c.adminEmails[strings.ToLower(email)] {
		return models.RoleAdmin
	}
	return models.RoleAuthor
}

// effectiveRole promotes accounts listed as admins after they registered.
func (c *Core) effectiveRole(user *models.User) string {
	if user.Role == models.RoleAdmin {
		return models.RoleAdmin
	}
	return c.roleFor(user.Email)
}
