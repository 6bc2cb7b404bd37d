package service

import (
	"context"
	"errors"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/model"
	"github.com/and161185/votefeed/internal/repository"
)

// provision makes sure actor has a users row and returns the stored record.
// It reads first and writes only when the row is missing or the token
// carries a different username.
func provision(ctx context.Context, users repository.UserRepository, actor model.User) (model.User, error) {
	u, err := users.GetByID(ctx, actor.ID)
	switch {
	case err == nil:
		if actor.Username == "" || actor.Username == u.Username {
			return *u, nil
		}
	case !errors.Is(err, errs.ErrNotFound):
		return model.User{}, err
	}
	if actor.Username == "" {
		actor.Username = "user-" + actor.ID.String()[:8]
	}
	if err := users.Ensure(ctx, actor); err != nil {
		return model.User{}, err
	}
	return actor, nil
}
