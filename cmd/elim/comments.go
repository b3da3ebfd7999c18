package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"elim/internal/client"
	"elim/internal/models"
	"elim/internal/thread"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type commentsOptions struct {
	Server   string
	Username string
	Parent   string
}

func NewCommentsCmd() *cobra.Command {
	opts := &commentsOptions{}
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "read and write comment threads through the API",
	}
	cmd.PersistentFlags().StringVar(&opts.Server, "server", envOr("ELIM_SERVER", "http://localhost:8080"), "server base URL")
	cmd.PersistentFlags().StringVarP(&opts.Username, "user", "u", os.Getenv("ELIM_USER"), "username for development sign-in")

	treeCmd := &cobra.Command{
		Use:          "tree POST_ID",
		Short:        "print the thread of a post",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := opts.thread(cmd.Context(), args[0], false)
			if err != nil {
				return err
			}
			if err := th.Refetch(cmd.Context()); err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), th.Comments())
			return nil
		},
	}

	watchCmd := &cobra.Command{
		Use:          "watch POST_ID",
		Short:        "print the thread again whenever it changes",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			th, err := opts.thread(ctx, args[0], false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			th.OnChange(func(roots []*thread.Node) {
				fmt.Fprintf(out, "--- %d comments\n", thread.Count(roots))
				printTree(out, roots)
			})
			if err := th.Watch(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}

	addCmd := &cobra.Command{
		Use:          "add POST_ID TEXT...",
		Short:        "post a comment, or a reply with --parent",
		Args:         cobra.MinimumNArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			th, err := opts.thread(cmd.Context(), args[0], true)
			if err != nil {
				return err
			}
			var parent *string
			if opts.Parent != "" {
				parent = &opts.Parent
			}
			if err := th.AddComment(cmd.Context(), strings.Join(args[1:], " "), parent); err != nil {
				return err
			}
			printTree(cmd.OutOrStdout(), th.Comments())
			return nil
		},
	}
	addCmd.Flags().StringVar(&opts.Parent, "parent", "", "id of the comment to reply to")

	deleteCmd := &cobra.Command{
		Use:          "delete COMMENT_ID",
		Short:        "delete one of your comments",
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.signedIn(cmd.Context())
			if err != nil {
				return err
			}
			deleted, err := c.DeleteComment(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				fmt.Fprintln(cmd.OutOrStdout(), "nothing deleted: the comment does not exist or is not yours")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}

	cmd.AddCommand(treeCmd, watchCmd, addCmd, deleteCmd)
	return cmd
}

func (o *commentsOptions) signedIn(ctx context.Context) (*client.Client, error) {
	c := client.New(o.Server)
	if o.Username == "" {
		return nil, models.ErrUnauthenticated
	}
	if _, err := c.Login(ctx, o.Username); err != nil {
		return nil, err
	}
	return c, nil
}

func (o *commentsOptions) thread(ctx context.Context, postID string, needViewer bool) (*client.Thread, error) {
	c := client.New(o.Server)
	var viewer *models.Profile
	if o.Username != "" {
		p, err := c.Login(ctx, o.Username)
		if err != nil {
			return nil, err
		}
		viewer = p
	} else if needViewer {
		return nil, models.ErrUnauthenticated
	}
	return client.NewThread(c, postID, viewer, zap.NewNop()), nil
}

// printTree writes one line per comment, indented two spaces per depth.
func printTree(w io.Writer, roots []*thread.Node) {
	if len(roots) == 0 {
		fmt.Fprintln(w, "(no comments)")
		return
	}
	thread.Walk(roots, func(n *thread.Node, depth int) bool {
		name := n.Profile.FullName
		if name == "" {
			name = n.Profile.Username
		}
		marker := ""
		if n.Orphaned {
			marker = " [reply to removed comment]"
		}
		content := strings.Join(strings.Fields(n.Content), " ")
		fmt.Fprintf(w, "%s- %s: %s (%s)%s\n", strings.Repeat("  ", depth), name, content, n.ID, marker)
		return true
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
