package feeds

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/substack/multifeed-storage/internal/feed"
	"github.com/substack/multifeed-storage/internal/registry"
	"github.com/substack/multifeed-storage/internal/runtime"
)

// openFeed gets the feed for a key or name argument and waits for it to load.
func openFeed(ctx context.Context, rt *runtime.Runtime, arg string) (*feed.Feed, error) {
	f, err := rt.Registry().Get(registry.ParseIdentifier(arg))
	if err != nil {
		return nil, err
	}
	if err := awaitOpen(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func newAppendCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "append <key|name> <data>...",
		Short: "Append entries to a writable feed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				f, err := openFeed(ctx, rt, args[0])
				if err != nil {
					return err
				}
				data := make([][]byte, 0, len(args)-1)
				for _, a := range args[1:] {
					data = append(data, []byte(a))
				}
				seqs, err := f.Append(ctx, data...)
				if err != nil {
					return err
				}
				for _, s := range seqs {
					fmt.Fprintf(cmd.OutOrStdout(), "seq: %d\n", s)
				}
				return nil
			})
		},
	}
}

func newCatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <key|name>",
		Short: "Print feed entries as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, _ := cmd.Flags().GetUint64("start")
			limit, _ := cmd.Flags().GetInt("limit")
			reverse, _ := cmd.Flags().GetBool("reverse")
			if reverse && !cmd.Flags().Changed("start") {
				start = math.MaxUint64
			}
			return withRuntime(cmd, func(ctx context.Context, rt *runtime.Runtime) error {
				f, err := openFeed(ctx, rt, args[0])
				if err != nil {
					return err
				}
				entries, err := f.Read(ctx, feed.ReadOptions{Start: start, Limit: limit, Reverse: reverse})
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				for _, e := range entries {
					if err := enc.Encode(decodedEntry(e)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().Uint64("start", 0, "first sequence number (default: last entry with --reverse)")
	cmd.Flags().Int("limit", 0, "maximum entries to print (0 = all)")
	cmd.Flags().Bool("reverse", false, "read newest first")
	return cmd
}

// decodedEntry returns a map with seq and one of payload_json, payload_text,
// or payload_b64.
func decodedEntry(e feed.Entry) map[string]any {
	out := map[string]any{"seq": e.Seq}
	if len(e.Data) > 0 && (e.Data[0] == '{' || e.Data[0] == '[') {
		var v any
		if json.Unmarshal(e.Data, &v) == nil {
			out["payload_json"] = v
			return out
		}
	}
	if utf8.Valid(e.Data) {
		out["payload_text"] = string(e.Data)
		return out
	}
	out["payload_b64"] = base64.StdEncoding.EncodeToString(e.Data)
	return out
}
