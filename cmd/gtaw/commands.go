package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	gtaw "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

var (
	searchMax    int
	countsMax    int
	followersMax int
	threadMax    int
	streamMax    int
	fullIndex    bool
	granular     string
	maxDepth     int
	sample       bool
	backfill     int
	ruleTag      string
	dryRun       bool
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account behind the user-context credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := client.Connect(ctx); err != nil {
			return err
		}
		me, err := client.Users().Me(ctx)
		if err != nil {
			return err
		}
		return printUser(cmd.OutOrStdout(), me)
	},
}

var userCmd = &cobra.Command{
	Use:   "user <id|@username>",
	Short: "Look up a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := client.Users().Resolve(ctx, gtaw.ParseUserRef(args[0]))
		if err != nil {
			return err
		}
		u, err := client.Users().Get(ctx, id)
		if err != nil {
			return err
		}
		return printUser(cmd.OutOrStdout(), u)
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search recent Tweets, or the full archive with --all",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		search := client.Tweets().SearchRecent
		if fullIndex {
			search = client.Tweets().SearchAll
		}
		book, err := search(args[0], nil)
		if err != nil {
			return err
		}
		return drain(cmd.Context(), cmd.OutOrStdout(), book, searchMax, printTweet)
	},
}

var countsCmd = &cobra.Command{
	Use:   "counts <query>",
	Short: "Count recent Tweets matching a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		counts := client.Tweets().CountsRecent
		if fullIndex {
			counts = client.Tweets().CountsAll
		}
		book, err := counts(args[0], &gtaw.CountOptions{Granularity: granular})
		if err != nil {
			return err
		}
		return drain(cmd.Context(), cmd.OutOrStdout(), book, countsMax, func(w io.Writer, c *types.TweetCount) error {
			return emit(w, c, func(w io.Writer) {
				fmt.Fprintf(w, "%s  %6d\n", c.Start.Format("2006-01-02 15:04"), c.TweetCount)
			})
		})
	},
}

var followersCmd = &cobra.Command{
	Use:   "followers <id|@username>",
	Short: "List the followers of a user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := client.Users().Followers(cmd.Context(), gtaw.ParseUserRef(args[0]), &gtaw.PageOptions{MaxResults: 1000})
		if err != nil {
			return err
		}
		return drain(cmd.Context(), cmd.OutOrStdout(), book, followersMax, printUser)
	},
}

var threadCmd = &cobra.Command{
	Use:   "thread <tweet-id>",
	Short: "Print the recent conversation a Tweet belongs to as a tree",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree, err := client.Tweets().Conversation(cmd.Context(), args[0], &gtaw.ConversationOptions{MaxTweets: threadMax})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		it := gtaw.NewThreadIterator(tree, &gtaw.ThreadIteratorOptions{DepthFirst: true, MaxDepth: maxDepth})
		for it.HasNext() {
			t, depth, err := it.Next()
			if err != nil {
				return err
			}
			if err := emit(out, t, func(w io.Writer) {
				fmt.Fprintf(w, "%s%s  %s\n", strings.Repeat("  ", depth), t.ID, oneLine(t.Text))
			}); err != nil {
				return err
			}
		}
		logger.Info().Int("tweets", tree.Count()).Int("depth", tree.Depth()).Msg("conversation loaded")
		return nil
	},
}

var streamCmd = &cobra.Command{
	Use:   "stream",
	Short: "Tail the filtered stream, or the sample stream with --sample",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if !cmd.Flags().Changed("backfill") {
			backfill = cfg.Stream.BackfillMinutes
		}
		open := client.FilteredStream
		if sample {
			open = client.SampleStream
		}
		stream, err := open(&gtaw.StreamOptions{BackfillMinutes: backfill})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		seen := 0
		stream.OnEvent(func(ev *types.StreamEvent) {
			if err := emit(out, ev, func(w io.Writer) {
				tags := make([]string, 0, len(ev.MatchingRules))
				for _, r := range ev.MatchingRules {
					tags = append(tags, r.Tag)
				}
				fmt.Fprintf(w, "%s  %s  [%s]\n", ev.Tweet.ID, oneLine(ev.Tweet.Text), strings.Join(tags, ","))
			}); err != nil {
				logger.Error().Err(err).Msg("write failed")
			}
			seen++
			if streamMax > 0 && seen >= streamMax {
				_ = stream.Close()
			}
		})
		stream.OnProblem(func(p types.Problem) {
			logger.Warn().Str("problem", p.Summary()).Msg("stream problem")
		})
		stream.OnDisconnect(func(err error) {
			logger.Warn().Err(err).Msg("stream dropped")
		})

		err = stream.Run(ctx)
		stats := stream.Stats()
		logger.Info().
			Int64("events", stats.Events).
			Int64("skipped", stats.Skipped).
			Int64("connects", stats.Connects).
			Int64("drops", stats.Drops).
			Msg("stream ended")
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage filtered stream rules",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the active rules",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rules, err := client.Rules().List(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range rules {
			if err := printRule(cmd.OutOrStdout(), r); err != nil {
				return err
			}
		}
		return nil
	},
}

var rulesAddCmd = &cobra.Command{
	Use:   "add <value>...",
	Short: "Add rules, all sharing --tag",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rules := make([]types.StreamRule, len(args))
		for i, v := range args {
			rules[i] = types.StreamRule{Value: v, Tag: ruleTag}
		}
		res, err := client.Rules().Add(cmd.Context(), rules, dryRun)
		if err != nil {
			return err
		}
		return printRuleResult(cmd.OutOrStdout(), res)
	},
}

var rulesDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete rules by ID",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := client.Rules().Delete(cmd.Context(), args, dryRun)
		if err != nil {
			return err
		}
		return printRuleResult(cmd.OutOrStdout(), res)
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchMax, "max", "n", 100, "stop after this many Tweets (0 for no limit)")
	searchCmd.Flags().BoolVar(&fullIndex, "all", false, "search the full archive (academic access)")

	countsCmd.Flags().BoolVar(&fullIndex, "all", false, "count over the full archive")
	countsCmd.Flags().StringVar(&granular, "granularity", "hour", "minute, hour or day")
	countsCmd.Flags().IntVarP(&countsMax, "max", "n", 0, "stop after this many buckets (0 for no limit)")

	followersCmd.Flags().IntVarP(&followersMax, "max", "n", 1000, "stop after this many users (0 for no limit)")

	threadCmd.Flags().IntVarP(&threadMax, "max", "n", 500, "fetch at most this many replies")
	threadCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "do not print replies deeper than this (0 for no limit)")

	streamCmd.Flags().BoolVar(&sample, "sample", false, "use the 1% sample stream")
	streamCmd.Flags().IntVar(&backfill, "backfill", 0, "minutes of backfill to request after a reconnect (0-5)")
	streamCmd.Flags().IntVarP(&streamMax, "max", "n", 0, "stop after this many Tweets (0 for no limit)")

	rulesCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "d", false, "validate without changing the rules")
	rulesAddCmd.Flags().StringVar(&ruleTag, "tag", "", "tag for the added rules")
	rulesCmd.AddCommand(rulesListCmd, rulesAddCmd, rulesDeleteCmd)
}

// drain prints every item of book, up to max when positive.
func drain[T types.Entity](ctx context.Context, w io.Writer, book *gtaw.Book[T], max int, print func(io.Writer, T) error) error {
	items, err := book.Iter(ctx).Collect(max)
	for _, item := range items {
		if perr := print(w, item); perr != nil {
			return perr
		}
	}
	if err != nil {
		logger.Warn().Err(err).Int("printed", len(items)).Str("endpoint", book.Endpoint()).Msg("pagination stopped early")
	}
	return err
}

func printTweet(w io.Writer, t *types.Tweet) error {
	return emit(w, t, func(w io.Writer) {
		fmt.Fprintf(w, "%s  %s\n", t.ID, oneLine(t.Text))
	})
}

func printUser(w io.Writer, u *types.User) error {
	return emit(w, u, func(w io.Writer) {
		followers := 0
		if u.PublicMetrics != nil {
			followers = u.PublicMetrics.FollowersCount
		}
		fmt.Fprintf(w, "%s  @%s  %s  (%d followers)\n", u.ID, u.Username, u.Name, followers)
	})
}

func printRule(w io.Writer, r *types.StreamRule) error {
	return emit(w, r, func(w io.Writer) {
		fmt.Fprintf(w, "%s  %-12s  %s\n", r.GetID(), r.Tag, r.Value)
	})
}

func printRuleResult(w io.Writer, res *gtaw.RuleResult) error {
	for _, r := range res.Rules {
		if err := printRule(w, r); err != nil {
			return err
		}
	}
	for _, p := range res.Problems {
		logger.Warn().Str("problem", p.Summary()).Msg("rule refused")
	}
	return emit(w, res.Summary, func(w io.Writer) {
		s := res.Summary
		fmt.Fprintf(w, "created %d, not created %d, valid %d, invalid %d, deleted %d, not deleted %d\n",
			s.Created, s.NotCreated, s.Valid, s.Invalid, s.Deleted, s.NotDeleted)
	})
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
