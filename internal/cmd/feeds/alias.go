package feeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/substack/multifeed-storage/internal/keys"
	"github.com/substack/multifeed-storage/internal/registry"
	"github.com/substack/multifeed-storage/internal/runtime"
)

func newResolveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve a local name or discovery key to a public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("name")
			disc, _ := cmd.Flags().GetString("discovery")
			if (name == "") == (disc == "") {
				return errors.New("exactly one of --name or --discovery is required")
			}
			return withRuntime(cmd, func(_ context.Context, rt *runtime.Runtime) error {
				var (
					pk  keys.PublicKey
					err error
				)
				if name != "" {
					pk, err = rt.Registry().FromLocalName(name)
				} else {
					var dk keys.DiscoveryKey
					if dk, err = keys.ParseDiscoveryKey(disc); err != nil {
						return err
					}
					pk, err = rt.Registry().FromDiscoveryKey(dk)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), pk.Hex())
				return nil
			})
		},
	}
	cmd.Flags().String("name", "", "local name")
	cmd.Flags().String("discovery", "", "hex discovery key")
	return cmd
}

func newHasCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "has <key>",
		Short: "Report whether a feed is known to this data directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pk, err := keys.ParsePublicKey(args[0])
			if err != nil {
				return err
			}
			return withRuntime(cmd, func(_ context.Context, rt *runtime.Runtime) error {
				ok, err := rt.Registry().Has(pk)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ok)
				return nil
			})
		},
	}
}

func newDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key|name>",
		Short: "Delete a feed's data and aliases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				if err := rt.Registry().Delete(ctx, registry.ParseIdentifier(args[0])); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "deleted")
				return nil
			})
		},
	}
}
