// Package user serves the v1 user category from a redis hash per user.
package user

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bronystylecrazy/metaroute/caching/rd"
	"github.com/bronystylecrazy/metaroute/dispatch"
	"github.com/bronystylecrazy/metaroute/fault"
	"github.com/bronystylecrazy/metaroute/request"
	"github.com/bronystylecrazy/metaroute/response"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const File = "v1/user/handlers"

type User struct {
	ID       string `mapstructure:"id" redis:"id"`
	FullName string `mapstructure:"fullName" redis:"fullName" validate:"required,max=120"`
	Phone    string `mapstructure:"phone" redis:"phone" validate:"required,max=32"`
	Email    string `mapstructure:"email" redis:"email" validate:"omitempty,email"`
}

func (u User) payload(message string, status int) response.Payload {
	return response.Payload{
		"message":  message,
		"status":   status,
		"id":       u.ID,
		"fullName": u.FullName,
		"phone":    u.Phone,
		"email":    u.Email,
	}
}

type Handlers struct {
	redis    rd.Client
	keys     rd.Config
	validate *validator.Validate
	logger   *zap.Logger
}

func New(redis rd.Client, keys rd.Config, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{redis: redis, keys: keys, validate: validator.New(), logger: logger}
}

func (h *Handlers) Register(reg *dispatch.HandlerRegistry) error {
	for name, fn := range map[string]dispatch.HandlerFunc{
		"getUser":    h.GetUser,
		"saveUser":   h.SaveUser,
		"deleteUser": h.DeleteUser,
	} {
		if err := reg.Register(File, name, fn); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handlers) key(id string) string { return h.keys.Key("users", id) }

func userID(req *request.Context) (string, error) {
	id := strings.TrimSpace(req.Query()["id"])
	if id == "" {
		return "", fault.Validation(http.StatusBadRequest, "query parameter 'id' is required")
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", fault.Validation(http.StatusBadRequest, "query parameter 'id' must be a uuid").Wrap(err)
	}
	return id, nil
}

func (h *Handlers) GetUser(ctx context.Context, req *request.Context, _ *response.Context) (response.Payload, error) {
	id, err := userID(req)
	if err != nil {
		return nil, err
	}
	var u User
	cmd := h.redis.HGetAll(ctx, h.key(id))
	if err := cmd.Err(); err != nil {
		return nil, fault.Internal(err)
	}
	if len(cmd.Val()) == 0 {
		return nil, fault.NotFound("user %s does not exist", id)
	}
	if err := cmd.Scan(&u); err != nil {
		return nil, fault.Internal(err)
	}
	return u.payload("user found", http.StatusOK), nil
}

// SaveUser creates a user from the JSON body, or replaces it when the body
// carries the id of an existing user.
func (h *Handlers) SaveUser(ctx context.Context, req *request.Context, _ *response.Context) (response.Payload, error) {
	var u User
	if err := mapstructure.Decode(req.Body(), &u); err != nil {
		return nil, fault.Validation(http.StatusBadRequest, "invalid user body").Wrap(err)
	}
	if err := h.validate.Struct(u); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fault.Validation(http.StatusUnprocessableEntity, "field '%s' failed on '%s'", verrs[0].Field(), verrs[0].Tag()).Wrap(err)
		}
		return nil, fault.Validation(http.StatusUnprocessableEntity, "invalid user body").Wrap(err)
	}

	status := http.StatusCreated
	if u.ID == "" {
		u.ID = uuid.NewString()
	} else if _, err := uuid.Parse(u.ID); err != nil {
		return nil, fault.Validation(http.StatusBadRequest, "field 'id' must be a uuid").Wrap(err)
	} else if n, err := h.redis.Exists(ctx, h.key(u.ID)).Result(); err != nil {
		return nil, fault.Internal(err)
	} else if n > 0 {
		status = http.StatusOK
	}

	if err := h.redis.HSet(ctx, h.key(u.ID), u).Err(); err != nil {
		return nil, fault.Internal(err)
	}
	h.logger.Info("user saved", zap.String("id", u.ID), zap.Int("status", status))
	return u.payload("user saved", status), nil
}

func (h *Handlers) DeleteUser(ctx context.Context, req *request.Context, _ *response.Context) (response.Payload, error) {
	id, err := userID(req)
	if err != nil {
		return nil, err
	}
	n, err := h.redis.Del(ctx, h.key(id)).Result()
	if err != nil {
		return nil, fault.Internal(err)
	}
	if n == 0 {
		return nil, fault.NotFound("user %s does not exist", id)
	}
	return response.Payload{"message": "user deleted", "status": http.StatusOK, "id": id}, nil
}

func Module() fx.Option {
	return fx.Options(
		fx.Provide(func(redis rd.Client, keys rd.Config, logger *zap.Logger) *Handlers {
			return New(redis, keys, logger.Named("user"))
		}),
		fx.Invoke(func(h *Handlers, reg *dispatch.HandlerRegistry) error {
			return h.Register(reg)
		}),
	)
}
