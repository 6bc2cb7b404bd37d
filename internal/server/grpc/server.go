// Package grpcserver exposes the votefeed gRPC API handlers.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/and161185/votefeed/internal/api/feedv1"
	"github.com/and161185/votefeed/internal/convert"
	"github.com/and161185/votefeed/internal/errs"
	"github.com/and161185/votefeed/internal/metrics"
	"github.com/and161185/votefeed/internal/service"
)

// Server wires services into gRPC handlers.
type Server struct {
	feedv1.UnimplementedFeedServer
	feed  service.FeedService
	votes service.VoteService
	met   *metrics.Metrics
}

// New constructs a gRPC server with injected services. m may be nil.
func New(feed service.FeedService, votes service.VoteService, m *metrics.Metrics) *Server {
	return &Server{feed: feed, votes: votes, met: m}
}

// --- Feed ---

// FetchPage returns one keyset page of the feed.
func (s *Server) FetchPage(ctx context.Context, req *feedv1.FetchPageRequest) (*feedv1.FetchPageResponse, error) {
	p, err := s.feed.FetchPage(ctx, int(req.Limit), req.Cursor)
	if err != nil {
		return nil, toStatus("fetch page", err)
	}
	return convert.ToWirePage(p), nil
}

// GetItem returns a single item by id.
func (s *Server) GetItem(ctx context.Context, req *feedv1.GetItemRequest) (*feedv1.ItemResponse, error) {
	id, err := convert.ParseID(req.ID)
	if err != nil {
		return nil, toStatus("get item", err)
	}
	v, err := s.feed.Get(ctx, id)
	if err != nil {
		return nil, toStatus("get item", err)
	}
	return &feedv1.ItemResponse{Item: convert.ToWireItem(v)}, nil
}

// CreateItem publishes an item owned by the caller.
func (s *Server) CreateItem(ctx context.Context, req *feedv1.CreateItemRequest) (*feedv1.ItemResponse, error) {
	u, ok := UserFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	v, err := s.feed.Create(ctx, u, req.Title, req.Body)
	if err != nil {
		return nil, toStatus("create item", err)
	}
	return &feedv1.ItemResponse{Item: convert.ToWireItem(v)}, nil
}

// UpdateItem edits the title of an item owned by the caller.
func (s *Server) UpdateItem(ctx context.Context, req *feedv1.UpdateItemRequest) (*feedv1.ItemResponse, error) {
	u, ok := UserFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	id, err := convert.ParseID(req.ID)
	if err != nil {
		return nil, toStatus("update item", err)
	}
	v, err := s.feed.UpdateTitle(ctx, u.ID, id, req.Title)
	if err != nil {
		return nil, toStatus("update item", err)
	}
	return &feedv1.ItemResponse{Item: convert.ToWireItem(v)}, nil
}

// DeleteItem removes an item owned by the caller.
func (s *Server) DeleteItem(ctx context.Context, req *feedv1.DeleteItemRequest) (*feedv1.DeleteItemResponse, error) {
	u, ok := UserFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	id, err := convert.ParseID(req.ID)
	if err != nil {
		return nil, toStatus("delete item", err)
	}
	if err := s.feed.Delete(ctx, u.ID, id); err != nil {
		return nil, toStatus("delete item", err)
	}
	return &feedv1.DeleteItemResponse{Success: true}, nil
}

// --- Votes ---

// CastVote records the caller's +1/-1 vote on an item.
func (s *Server) CastVote(ctx context.Context, req *feedv1.CastVoteRequest) (*feedv1.CastVoteResponse, error) {
	u, ok := UserFromCtx(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "no auth")
	}
	itemID, err := convert.ParseID(req.ItemID)
	if err != nil {
		return nil, toStatus("cast vote", err)
	}
	res, err := s.votes.Cast(ctx, u, itemID, int(req.Value))
	if err != nil {
		return nil, toStatus("cast vote", err)
	}
	if s.met != nil {
		s.met.ObserveVote(res.Delta)
	}
	return convert.ToWireVote(res), nil
}

var codeOf = []struct {
	err  error
	code codes.Code
}{
	{errs.ErrInvalidArgument, codes.InvalidArgument},
	{errs.ErrNotFound, codes.NotFound},
	{errs.ErrUnauthenticated, codes.Unauthenticated},
	{errs.ErrForbidden, codes.PermissionDenied},
	{errs.ErrConflict, codes.Aborted},
	{errs.ErrUnavailable, codes.Unavailable},
	{errs.ErrRateLimited, codes.ResourceExhausted},
	{errs.ErrAlreadyExists, codes.AlreadyExists},
	{context.DeadlineExceeded, codes.DeadlineExceeded},
	{context.Canceled, codes.Canceled},
}

// toStatus maps domain sentinels to gRPC codes; anything else is Internal.
func toStatus(op string, err error) error {
	for _, c := range codeOf {
		if errors.Is(err, c.err) {
			return status.Error(c.code, err.Error())
		}
	}
	return status.Errorf(codes.Internal, "%s: %v", op, err)
}

var _ feedv1.FeedServer = (*Server)(nil)

