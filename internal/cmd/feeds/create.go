package feeds

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/registry"
	"github.com/substack/multifeed-storage/internal/runtime"
)

func newCreateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a writable feed with a fresh key pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			return withRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				done := make(chan error, 1)
				f, err := rt.Registry().CreateLocal(registry.CreateOptions{Name: name}, func(_ *feed.Feed, err error) { done <- err })
				if err != nil {
					return err
				}
				if err := awaitCreated(ctx, done); err != nil {
					return err
				}
				return printFeed(cmd, f)
			})
		},
	}
	cmd.Flags().String("name", "", "local name to bind to the feed")
	return cmd
}

func newAddCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <key>",
		Short: "Track a read-only feed by its public key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := keys.ParsePublicKey(args[0])
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			return withRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				done := make(chan error, 1)
				f, err := rt.Registry().CreateRemote(pk, registry.CreateOptions{Name: name}, func(_ *feed.Feed, err error) { done <- err })
				if err != nil {
					return err
				}
				if err := awaitCreated(ctx, done); err != nil {
					return err
				}
				return printFeed(cmd, f)
			})
		},
	}
	cmd.Flags().String("name", "", "local name to bind to the feed")
	return cmd
}

func printFeed(cmd *cobra.Command, f *feed.Feed) error {
	pk, _ := f.Key()
	dk, _ := f.DiscoveryKey()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "key: %s\n", pk.Hex())
	fmt.Fprintf(out, "discovery: %s\n", dk.Hex())
	fmt.Fprintf(out, "writable: %t\n", f.Writable())
	fmt.Fprintf(out, "length: %d\n", f.Len())
	return nil
}
