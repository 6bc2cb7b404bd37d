package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/spf13/cobra"

	"github.com/and161185/votefeed/internal/auth"
	"github.com/and161185/votefeed/internal/client"
	"github.com/and161185/votefeed/internal/model"
)

type itemRow struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Snippet   string `json:"snippet,omitempty"`
	Score     int64  `json:"score"`
	Owner     string `json:"owner"`
	CreatedAt string `json:"created_at"`
}

func rowOf(v model.ItemView) itemRow {
	return itemRow{
		ID:        v.ID.String(),
		Title:     v.Title,
		Snippet:   v.BodySnippet,
		Score:     v.Score,
		Owner:     v.Owner.Username,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func parseVote(s string) (int, error) {
	switch strings.ToLower(s) {
	case "up", "+", "+1", "1":
		return model.VoteUp, nil
	case "down", "-", "-1":
		return model.VoteDown, nil
	}
	return 0, fmt.Errorf("vote must be up or down, got %q", s)
}

func parseID(s string) (uuid.UUID, error) {
	id, err := uuid.FromString(s)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("bad item id %q", s)
	}
	return id, nil
}

// withClient runs fn against a connected client under the global deadline.
func withClient(cmd *cobra.Command, g *globals, fn func(ctx context.Context, c *client.Client) error) error {
	c, err := g.dial(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer c.Close()
	ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
	defer cancel()
	return fn(ctx, c)
}

func newTokenCmd() *cobra.Command {
	var (
		key    string
		userID string
		name   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint and save a development token signed with the server key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if key == "" {
				key = os.Getenv("VOTEFEED_JWT_KEY")
			}
			kr, err := auth.NewKeyring([]byte(key))
			if err != nil {
				return err
			}

			var id uuid.UUID
			switch {
			case userID != "":
				if id, err = uuid.FromString(userID); err != nil {
					return fmt.Errorf("bad user id: %w", err)
				}
			default:
				// keep the identity of a previous token when there is one
				if prev, err := loadToken(); err == nil {
					id, _ = uuid.FromString(prev.UserID)
				}
				if id == uuid.Nil {
					if id, err = uuid.NewV4(); err != nil {
						return err
					}
				}
			}

			tok, exp, err := kr.Issue(model.User{ID: id, Username: name}, ttl)
			if err != nil {
				return err
			}
			if err := saveToken(tokenFile{AccessToken: tok, UserID: id.String(), ExpiresAt: exp}); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.String())
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "jwt-key", "", "HMAC key (default $VOTEFEED_JWT_KEY)")
	cmd.Flags().StringVar(&userID, "user-id", "", "user uuid (default: reuse saved, else random)")
	cmd.Flags().StringVarP(&name, "name", "u", "", "username")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newFeedCmd(g *globals) *cobra.Command {
	var (
		limit int
		pages int
	)
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Scroll the feed, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, g, func(ctx context.Context, c *client.Client) error {
				log := g.logger()
				stored := 0
				unsub, err := c.Cache().Subscribe(client.FeedList, func() { stored++ })
				if err != nil {
					return err
				}
				defer unsub()

				cursor := ""
				for i := 0; i < pages; i++ {
					res, err := c.Cache().Load(ctx, client.FeedList, client.FeedArgs(limit, cursor))
					if err != nil {
						return err
					}
					if !res.HasMore {
						break
					}
					cursor = res.NextCursor
				}

				view, err := c.Cache().View(client.FeedList)
				if err != nil {
					return err
				}
				log.Sugar().Debugf("feed: %d pages stored, %d items, hasMore=%t", stored, len(view.Items), view.HasMore)

				rows := make([]itemRow, 0, len(view.Items))
				for _, it := range view.Items {
					rows = append(rows, rowOf(it))
				}
				printJSON(cmd.OutOrStdout(), map[string]any{
					"items":       rows,
					"has_more":    view.HasMore,
					"next_cursor": view.NextCursor,
				})
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "page size (server caps at 50)")
	cmd.Flags().IntVarP(&pages, "pages", "p", 1, "number of pages to scroll")
	return cmd
}

func newPostCmd(g *globals) *cobra.Command {
	var (
		title    string
		body     string
		bodyFile string
	)
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Publish an item",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if title == "" {
				return errors.New("need --title")
			}
			if bodyFile != "" {
				b, err := readAll(bodyFile)
				if err != nil {
					return err
				}
				body = string(b)
			}
			return withClient(cmd, g, func(ctx context.Context, c *client.Client) error {
				v, err := c.Create(ctx, title, body)
				if err != nil {
					return err
				}
				printJSON(cmd.OutOrStdout(), rowOf(v))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "item title")
	cmd.Flags().StringVarP(&body, "body", "b", "", "item body")
	cmd.Flags().StringVarP(&bodyFile, "file", "f", "", "read body from file (- for stdin)")
	return cmd
}

func newItemCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "item <id>",
		Short: "Show one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, g, func(ctx context.Context, c *client.Client) error {
				v, err := c.Get(ctx, id)
				if err != nil {
					return err
				}
				printJSON(cmd.OutOrStdout(), rowOf(v))
				return nil
			})
		},
	}
}

func newEditCmd(g *globals) *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Rename an item you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if title == "" {
				return errors.New("need --title")
			}
			return withClient(cmd, g, func(ctx context.Context, c *client.Client) error {
				v, err := c.UpdateTitle(ctx, id, title)
				if err != nil {
					return err
				}
				printJSON(cmd.OutOrStdout(), rowOf(v))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	return cmd
}

func newRmCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an item you own",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withClient(cmd, g, func(ctx context.Context, c *client.Client) error {
				if err := c.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
}

func newVoteCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "vote <id> <up|down>",
		Short: "Vote an item up or down",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			v, err := parseVote(args[1])
			if err != nil {
				return err
			}
			return withClient(cmd, g, func(ctx context.Context, c *client.Client) error {
				r, err := c.Vote(ctx, id, v)
				if err != nil {
					return err
				}
				printJSON(cmd.OutOrStdout(), map[string]any{"id": r.ItemID.String(), "score": r.Score, "delta": r.Delta})
				return nil
			})
		},
	}
}
