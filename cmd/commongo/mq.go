package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/zosbridge/commongo/pkg/manager"
)

var (
	mqWait      time.Duration
	mqMessageID string
)

// mqCmd represents the mq command
var mqCmd = &cobra.Command{
	Use:   "mq",
	Short: "Messaging operations",
	Long:  "Commands for putting, getting, and browsing messages on the configured queue manager.",
}

func init() {
	mqGetCmd.Flags().DurationVar(&mqWait, "wait", 0, "how long to wait for a message (e.g. 5s)")
	mqBrowseCmd.Flags().StringVar(&mqMessageID, "message-id", "", "hex message ID to browse (library implementation only)")

	mqCmd.AddCommand(mqPutCmd)
	mqCmd.AddCommand(mqGetCmd)
	mqCmd.AddCommand(mqBrowseCmd)
	mqCmd.AddCommand(mqDepthCmd)
	mqCmd.AddCommand(mqPurgeCmd)
	mqCmd.AddCommand(mqPingCmd)
}

// withMessaging creates and connects a messaging manager, runs fn, and
// always disconnects.
func withMessaging(fn func(ctx context.Context, mq manager.MessagingManager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger()
	mq, err := manager.CreateMessagingManager(cfg.Messaging, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := mq.Connect(ctx); err != nil {
		return err
	}
	defer mq.Disconnect(ctx)

	return fn(ctx, mq)
}

func printEnvelope(env *manager.MessageEnvelope) error {
	if env == nil {
		fmt.Println("no message available")
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]interface{}{
		"data":       env.Data,
		"properties": env.Properties,
	})
}

// mqPutCmd represents the put command
var mqPutCmd = &cobra.Command{
	Use:   "put [queue] [message]",
	Short: "Put a message on a queue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMessaging(func(ctx context.Context, mq manager.MessagingManager) error {
			return mq.PutMessage(ctx, args[0], args[1], nil)
		})
	},
}

// mqGetCmd represents the get command
var mqGetCmd = &cobra.Command{
	Use:   "get [queue]",
	Short: "Get a message from a queue",
	Long:  `Destructively receive one message and print it as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMessaging(func(ctx context.Context, mq manager.MessagingManager) error {
			env, err := mq.GetMessage(ctx, args[0], mqWait)
			if err != nil {
				return err
			}
			return printEnvelope(env)
		})
	},
}

// mqBrowseCmd represents the browse command
var mqBrowseCmd = &cobra.Command{
	Use:   "browse [queue]",
	Short: "Browse a message without removing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMessaging(func(ctx context.Context, mq manager.MessagingManager) error {
			env, err := mq.BrowseMessage(ctx, args[0], mqMessageID)
			if err != nil {
				return err
			}
			return printEnvelope(env)
		})
	},
}

// mqDepthCmd represents the depth command
var mqDepthCmd = &cobra.Command{
	Use:   "depth [queue]",
	Short: "Show queue depth",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMessaging(func(ctx context.Context, mq manager.MessagingManager) error {
			depth := mq.GetQueueDepth(ctx, args[0])
			if depth < 0 {
				return fmt.Errorf("could not determine depth of queue %s", args[0])
			}
			fmt.Println(depth)
			return nil
		})
	},
}

// mqPurgeCmd represents the purge command
var mqPurgeCmd = &cobra.Command{
	Use:   "purge [queue]",
	Short: "Remove all messages from a queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMessaging(func(ctx context.Context, mq manager.MessagingManager) error {
			purged, err := mq.PurgeQueue(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d message(s) purged\n", purged)
			return nil
		})
	},
}

// mqPingCmd represents the ping command
var mqPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test queue manager connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMessaging(func(ctx context.Context, mq manager.MessagingManager) error {
			if !mq.TestConnection(ctx) {
				return fmt.Errorf("queue manager connection test failed")
			}
			fmt.Println("OK")
			return nil
		})
	},
}
