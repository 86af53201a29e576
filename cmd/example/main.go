package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	gtaw "github.com/jamesprial/go-twitter-api-wrapper"
	"github.com/jamesprial/go-twitter-api-wrapper/pkg/types"
)

func main() {
	// Get credentials from environment variables
	bearer := os.Getenv("TWITTER_BEARER_TOKEN")
	consumerKey := os.Getenv("TWITTER_CONSUMER_KEY")
	consumerSecret := os.Getenv("TWITTER_CONSUMER_SECRET")
	accessToken := os.Getenv("TWITTER_ACCESS_TOKEN")
	accessSecret := os.Getenv("TWITTER_ACCESS_SECRET")

	if bearer == "" && consumerKey == "" {
		log.Fatal("TWITTER_BEARER_TOKEN or the four TWITTER_CONSUMER_*/TWITTER_ACCESS_* variables are required")
	}

	// Route structured logs to stdout; adjust the level as needed.
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	// Create client configuration. User-context credentials win when both are set.
	config := &gtaw.Config{
		UserAgent: "example-bot/1.0",
		Logger:    logger,
	}
	if consumerKey != "" {
		config.ConsumerKey = consumerKey
		config.ConsumerSecret = consumerSecret
		config.AccessToken = accessToken
		config.AccessSecret = accessSecret
	} else {
		config.BearerToken = bearer
	}

	client, err := gtaw.NewClient(config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	// Connect verifies user-context credentials through users/me
	ctx := context.Background()
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("Failed to connect: %v", err)
	}
	fmt.Println("Successfully connected!")

	if client.UserContext() {
		fmt.Printf("Authenticated as @%s\n", client.Username())
	}

	off := client.OnPartialError(func(pe gtaw.PartialError) {
		for _, p := range pe.Problems {
			fmt.Printf("  (partial error on %s: %s)\n", pe.Route, p.Summary())
		}
	})
	defer off()

	// Look up a user by handle
	dev, err := client.Users().ByUsername(ctx, "TwitterDev")
	if err != nil {
		log.Fatalf("Failed to get user: %v", err)
	}
	fmt.Printf("\n@%s (%s)\n", dev.Username, dev.Name)
	if m := dev.PublicMetrics; m != nil {
		fmt.Printf("Followers: %d, Following: %d, Tweets: %d\n", m.FollowersCount, m.FollowingCount, m.TweetCount)
	}

	fmt.Println("\n=== PAGINATION & TREE TRAVERSAL DEMOS ===")

	// 1. Page through a timeline by hand
	fmt.Println("\n1. Paging through @TwitterDev's timeline:")
	timeline, err := client.Users().Timeline(ctx, gtaw.UserOf(dev), &gtaw.TimelineOptions{
		SearchOptions:   gtaw.SearchOptions{MaxResults: 5},
		ExcludeRetweets: true,
	})
	if err != nil {
		log.Fatalf("Failed to build timeline: %v", err)
	}
	var first *types.Tweet
	for page := 1; page <= 3; page++ {
		tweets, err := timeline.Next(ctx)
		if errors.Is(err, gtaw.ErrTailReached) {
			fmt.Println("   No more pages available")
			break
		}
		if err != nil {
			log.Printf("Failed to get page %d: %v", page, err)
			break
		}
		fmt.Printf("   Page %d: %d Tweets (state %s)\n", page, tweets.Len(), timeline.State())
		for i, t := range tweets.Items() {
			if first == nil {
				first = t
			}
			if i < 2 {
				fmt.Printf("     - %.60s\n", t.Text)
			}
		}
	}

	// 2. Walk back to the first page
	if timeline.State() != gtaw.BookFresh {
		if prev, err := timeline.Previous(ctx); err == nil {
			fmt.Printf("\n2. Went back one page: %d Tweets\n", prev.Len())
		} else if errors.Is(err, gtaw.ErrHeadReached) {
			fmt.Println("\n2. Already at the first page")
		}
	}

	// 3. Load the conversation around the newest Tweet
	if first != nil {
		fmt.Printf("\n3. Conversation around %s:\n", first.ID)
		tree, err := client.Tweets().Conversation(ctx, first.ID, &gtaw.ConversationOptions{MaxTweets: 50})
		if err != nil {
			log.Printf("Failed to load conversation: %v", err)
		} else {
			fmt.Printf("   %d Tweets, deepest reply at level %d\n", tree.Count(), tree.Depth())
			it := gtaw.NewThreadIterator(tree, &gtaw.ThreadIteratorOptions{DepthFirst: true, MaxDepth: 3})
			for it.HasNext() {
				t, depth, err := it.Next()
				if err != nil {
					break
				}
				fmt.Printf("   %*s- %.60s\n", depth*2, "", t.Text)
			}
		}
	}

	// 4. Fetch a profile overview; the four requests run concurrently
	fmt.Println("\n4. Overview of @TwitterDev:")
	overview, err := client.Users().Overview(ctx, gtaw.Username("TwitterDev"), 5)
	if err != nil {
		log.Printf("Overview error: %v", err)
	}
	if overview != nil {
		if overview.Tweets != nil {
			fmt.Printf("   Recent Tweets: %d\n", overview.Tweets.Len())
		}
		if overview.Followers != nil {
			fmt.Printf("   Followers sampled: %d\n", overview.Followers.Len())
		}
		if overview.Following != nil {
			fmt.Printf("   Following sampled: %d\n", overview.Following.Len())
		}
	}

	// 5. Batch lookup; unknown IDs come back as partial errors
	fmt.Println("\n5. Batch lookup:")
	page, err := client.Tweets().Lookup(ctx, []string{"1460323737035677698", "20", "1"})
	if err != nil {
		log.Printf("Lookup error: %v", err)
	} else {
		for _, t := range page.Items() {
			fmt.Printf("   %s: %.60s\n", t.ID, t.Text)
		}
	}

	fmt.Printf("\nRoute buckets used: %v\n", client.RouteBuckets())
}
