package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/limiter"
	"github.com/and161185/votefeed/internal/model"
	"github.com/and161185/votefeed/internal/repository"
)

// VoteService defines the vote ledger operations.
type VoteService interface {
	// Cast records an up (+1) or down (-1) vote by actor on itemID.
	Cast(ctx context.Context, actor model.User, itemID uuid.UUID, value int) (model.VoteResult, error)
}

type VoteServiceImpl struct {
	repo  repository.VoteRepository
	users repository.UserRepository
	lim   limiter.Limiter
	log   *zap.Logger
}

// NewVoteService constructs VoteService. A nil limiter disables throttling.
func NewVoteService(repo repository.VoteRepository, users repository.UserRepository, lim limiter.Limiter, log *zap.Logger) *VoteServiceImpl {
	if lim == nil {
		lim = limiter.Unlimited{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &VoteServiceImpl{repo: repo, users: users, lim: lim, log: log}
}

// Cast validates the vote, provisions the voter, charges the user's budget
// and delegates to the ledger. A transaction aborted by a concurrent writer
// is retried once; a second abort is reported as ErrUnavailable. The budget
// unit is returned when no vote gets recorded.
func (s *VoteServiceImpl) Cast(ctx context.Context, actor model.User, itemID uuid.UUID, value int) (model.VoteResult, error) {
	if actor.ID == uuid.Nil {
		return model.VoteResult{}, errs.ErrUnauthenticated
	}
	if itemID == uuid.Nil {
		return model.VoteResult{}, fmt.Errorf("%w: empty item id", errs.ErrInvalidArgument)
	}
	if value != model.VoteUp && value != model.VoteDown {
		return model.VoteResult{}, fmt.Errorf("%w: vote value must be 1 or -1, got %d", errs.ErrInvalidArgument, value)
	}
	if _, err := provision(ctx, s.users, actor); err != nil {
		return model.VoteResult{}, err
	}

	ok, retryAfter, err := s.lim.Allow(ctx, actor.ID)
	if err != nil {
		return model.VoteResult{}, err
	}
	if !ok {
		return model.VoteResult{}, fmt.Errorf("%w: retry in %s", errs.ErrRateLimited, retryAfter)
	}

	res, err := s.cast(ctx, actor.ID, itemID, value)
	if err != nil {
		if rerr := s.lim.Release(context.WithoutCancel(ctx), actor.ID); rerr != nil {
			s.log.Warn("vote budget release failed",
				zap.String("user", actor.ID.String()),
				zap.Error(rerr),
			)
		}
		return model.VoteResult{}, err
	}
	return res, nil
}

func (s *VoteServiceImpl) cast(ctx context.Context, userID, itemID uuid.UUID, value int) (model.VoteResult, error) {
	res, err := s.repo.Cast(ctx, userID, itemID, value)
	if errors.Is(err, errs.ErrConflict) {
		s.log.Warn("vote conflict, retrying",
			zap.String("item", itemID.String()),
			zap.Error(err),
		)
		res, err = s.repo.Cast(ctx, userID, itemID, value)
		if errors.Is(err, errs.ErrConflict) {
			return model.VoteResult{}, fmt.Errorf("%w: %v", errs.ErrUnavailable, err)
		}
	}
	return res, err
}
