// cmd/client is the CLI entry-point built with Cobra.
//
// Every read/write command accepts an optional --context flag carrying
// a JSON-encoded causal context from a previous response, and prints
// the context it got back so it can be chained into the next call.
//
// Usage:
//
//	kvcli put mykey "hello world"          --server http://localhost:13801
//	kvcli get mykey --context '[...]'      --server http://localhost:13801
//	kvcli delete mykey                     --server http://localhost:13801
//	kvcli shards                           --server http://localhost:13801
//	kvcli view-change --repl-factor 2 localhost:13801,localhost:13802
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"distributed-kvstore/internal/client"
	"distributed-kvstore/internal/store"

	"github.com/spf13/cobra"
)

var (
	serverAddr string
	timeout    time.Duration
	ctxFlag    string
)

func main() {
	root := &cobra.Command{
		Use:   "kvcli",
		Short: "CLI client for the causally-consistent distributed KV store",
	}

	root.PersistentFlags().StringVarP(&serverAddr, "server", "s",
		"http://localhost:13801", "KV store server address")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 10*time.Second,
		"HTTP request timeout")

	root.AddCommand(putCmd(), getCmd(), deleteCmd(), viewChangeCmd(), shardsCmd(), shardInfoCmd(), keyCountCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// parseContext decodes --context, treating an empty flag as no context.
func parseContext() (store.Context, error) {
	if strings.TrimSpace(ctxFlag) == "" {
		return nil, nil
	}
	var ctx store.Context
	if err := json.Unmarshal([]byte(ctxFlag), &ctx); err != nil {
		return nil, fmt.Errorf("invalid --context: %w", err)
	}
	return ctx, nil
}

func withContextFlag(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ctxFlag, "context", "", "causal context from a previous response, JSON-encoded")
}

// ─── put ──────────────────────────────────────────────────────────────────────

func putCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Store a key-value pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			causalCtx, err := parseContext()
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.Put(context.Background(), args[0], args[1], causalCtx)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
	withContextFlag(cmd)
	return cmd
}

// ─── get ──────────────────────────────────────────────────────────────────────

func getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Retrieve a value by key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			causalCtx, err := parseContext()
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.Get(context.Background(), args[0], causalCtx)
			if err == client.ErrNotFound {
				fmt.Printf("key %q not found\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
	withContextFlag(cmd)
	return cmd
}

// ─── delete ───────────────────────────────────────────────────────────────────

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			causalCtx, err := parseContext()
			if err != nil {
				return err
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.Delete(context.Background(), args[0], causalCtx)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
	withContextFlag(cmd)
	return cmd
}

// ─── view-change ──────────────────────────────────────────────────────────────

func viewChangeCmd() *cobra.Command {
	var replFactor int
	cmd := &cobra.Command{
		Use:   "view-change <ip:port,ip:port,...>",
		Short: "Install a new cluster membership",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ips := strings.Split(args[0], ",")
			c := client.New(serverAddr, timeout)
			resp, err := c.ChangeView(context.Background(), ips, replFactor)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
	cmd.Flags().IntVar(&replFactor, "repl-factor", 1, "replication factor for the new view")
	return cmd
}

// ─── shards ───────────────────────────────────────────────────────────────────

func shardsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shards",
		Short: "List all shards in the current view",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverAddr, timeout)
			resp, err := c.Shards(context.Background())
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

func shardInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shard-info <shard-id>",
		Short: "Show one shard's replicas and key count",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid shard id %q: %w", args[0], err)
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.ShardInfo(context.Background(), id)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
}

func keyCountCmd() *cobra.Command {
	var shardID int
	cmd := &cobra.Command{
		Use:   "key-count",
		Short: "Report the live key count of a shard",
		RunE: func(cmd *cobra.Command, args []string) error {
			var id *int
			if cmd.Flags().Changed("shard-id") {
				id = &shardID
			}
			c := client.New(serverAddr, timeout)
			resp, err := c.KeyCount(context.Background(), id)
			if err != nil {
				return err
			}
			prettyPrint(resp)
			return nil
		},
	}
	cmd.Flags().IntVar(&shardID, "shard-id", 0, "shard id to query (defaults to the server's own shard)")
	return cmd
}

// ─── helpers ──────────────────────────────────────────────────────────────────

func prettyPrint(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(data))
}
