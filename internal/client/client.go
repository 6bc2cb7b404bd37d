// Package client is the votefeed gRPC client. It owns the feed cache and
// invalidates it after every successful mutation.
package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/and161185/votefeed/internal/api/feedv1"
	"github.com/and161185/votefeed/internal/convert"
	"github.com/and161185/votefeed/internal/feedcache"
	"github.com/and161185/votefeed/internal/model"
)

// FeedList is the cache key of the main feed.
const FeedList = "feed"

// Options configures Dial.
type Options struct {
	Token             string // bearer token; empty means anonymous
	CACert            string // PEM file; empty uses system roots
	Insecure          bool   // skip certificate verification
	Plaintext         bool   // no TLS at all (dev)
	OnUnauthenticated func()
	RetryBackoff      time.Duration
	Logger            *zap.Logger
}

// Client talks to feed-server.
type Client struct {
	cc    *grpc.ClientConn
	api   feedv1.FeedClient
	cache *feedcache.Cache
}

func loadTLS(caPath string, skipVerify bool) (credentials.TransportCredentials, error) {
	if skipVerify {
		return credentials.NewTLS(&tls.Config{InsecureSkipVerify: true}), nil //nolint:gosec // dev only
	}
	if caPath == "" {
		return credentials.NewClientTLSFromCert(nil, ""), nil
	}
	pem, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, errors.New("bad CA cert")
	}
	return credentials.NewTLS(&tls.Config{RootCAs: pool}), nil
}

// Dial connects to addr.
func Dial(addr string, o Options) (*Client, error) {
	var creds credentials.TransportCredentials
	if o.Plaintext {
		creds = insecure.NewCredentials()
	} else {
		var err error
		if creds, err = loadTLS(o.CACert, o.Insecure); err != nil {
			return nil, err
		}
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if o.Token != "" {
		opts = append(opts, grpc.WithPerRPCCredentials(bearerCreds{token: o.Token, secure: !o.Plaintext}))
	}
	return newClient(addr, o, opts...)
}

func newClient(addr string, o Options, opts ...grpc.DialOption) (*Client, error) {
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	backoff := o.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	opts = append(opts, grpc.WithChainUnaryInterceptor(
		unauthenticatedUnary(o.OnUnauthenticated),
		retryUnary(backoff, log),
	))
	cc, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, err
	}
	c := &Client{cc: cc, api: feedv1.NewFeedClient(cc)}
	c.cache = feedcache.New(map[string]feedcache.Strategy{
		FeedList: {Fetch: c.fetchFeed},
	}, feedcache.WithLogger(log))
	return c, nil
}

// Close releases the connection.
func (c *Client) Close() error { return c.cc.Close() }

// Cache exposes the feed cache to the UI layer.
func (c *Client) Cache() *feedcache.Cache { return c.cache }

// FeedArgs builds the cache arguments of one feed page.
func FeedArgs(limit int, cursor string) feedcache.Args {
	a := feedcache.Args{"limit": strconv.Itoa(limit)}
	if cursor != "" {
		a["cursor"] = cursor
	}
	return a
}

func (c *Client) fetchFeed(ctx context.Context, args feedcache.Args) (model.Page, error) {
	limit, err := strconv.Atoi(args["limit"])
	if err != nil {
		return model.Page{}, err
	}
	return c.FetchPage(ctx, limit, args["cursor"])
}

// FetchPage fetches one page straight from the server, bypassing the cache.
func (c *Client) FetchPage(ctx context.Context, limit int, cursor string) (model.Page, error) {
	resp, err := c.api.FetchPage(ctx, &feedv1.FetchPageRequest{Limit: int32(limit), Cursor: cursor})
	if err != nil {
		return model.Page{}, fromStatus(err)
	}
	return convert.FromWirePage(resp)
}

// Vote casts an up or down vote and invalidates the feed.
func (c *Client) Vote(ctx context.Context, itemID uuid.UUID, value int) (model.VoteResult, error) {
	resp, err := c.api.CastVote(ctx, &feedv1.CastVoteRequest{ItemID: itemID.String(), Value: int32(value)})
	if err != nil {
		return model.VoteResult{}, fromStatus(err)
	}
	_ = c.cache.Invalidate(FeedList)
	return model.VoteResult{ItemID: itemID, Delta: int(resp.Delta), Score: resp.Score}, nil
}

// Create publishes an item and invalidates the feed.
func (c *Client) Create(ctx context.Context, title, body string) (model.ItemView, error) {
	resp, err := c.api.CreateItem(ctx, &feedv1.CreateItemRequest{Title: title, Body: body})
	if err != nil {
		return model.ItemView{}, fromStatus(err)
	}
	_ = c.cache.Invalidate(FeedList)
	return convert.FromWireItem(resp.Item)
}

// Get fetches one item.
func (c *Client) Get(ctx context.Context, id uuid.UUID) (model.ItemView, error) {
	resp, err := c.api.GetItem(ctx, &feedv1.GetItemRequest{ID: id.String()})
	if err != nil {
		return model.ItemView{}, fromStatus(err)
	}
	return convert.FromWireItem(resp.Item)
}

// UpdateTitle renames an owned item and invalidates the feed.
func (c *Client) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (model.ItemView, error) {
	resp, err := c.api.UpdateItem(ctx, &feedv1.UpdateItemRequest{ID: id.String(), Title: title})
	if err != nil {
		return model.ItemView{}, fromStatus(err)
	}
	_ = c.cache.Invalidate(FeedList)
	return convert.FromWireItem(resp.Item)
}

// Delete removes an owned item, evicts it from the cache and invalidates the feed.
func (c *Client) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := c.api.DeleteItem(ctx, &feedv1.DeleteItemRequest{ID: id.String()}); err != nil {
		return fromStatus(err)
	}
	c.cache.Evict(id)
	_ = c.cache.Invalidate(FeedList)
	return nil
}
