package cli

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"connectrpc.com/connect"
	"github.com/spf13/cobra"

	"lexidx/internal/server"
)

// NewClientCommand returns the "client" command tree for querying a running
// lexidx server via Connect RPC.
func NewClientCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "client",
		Short: "Query a running lexidx server",
	}

	cmd.PersistentFlags().String("addr", "http://localhost:4570", "server address")
	cmd.PersistentFlags().Bool("msgpack", false, "use MessagePack instead of JSON on the wire")
	cmd.PersistentFlags().Duration("timeout", 30*time.Second, "request timeout")
	addOutputFlag(cmd)

	cmd.AddCommand(
		newClientIDCmd(),
		newClientWordCmd(),
		newClientExportCmd(),
		newClientInfoCmd(),
		newClientReloadCmd(),
		newClientListCmd(),
	)
	return cmd
}

// clientFromCmd builds a Connect RPC client from the persistent flags on cmd.
func clientFromCmd(cmd *cobra.Command) *server.Client {
	addr, _ := cmd.Flags().GetString("addr")
	useMsgpack, _ := cmd.Flags().GetBool("msgpack")

	var opts []connect.ClientOption
	if useMsgpack {
		opts = append(opts, server.WithMsgpack())
	}
	return server.NewClient(addr, opts...)
}

func newClientIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <lexicon> <word>...",
		Short: "Look up the id of each word",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			resp, err := clientFromCmd(cmd).Resolve(ctx, &server.ResolveRequest{Lexicon: args[0], Words: args[1:]})
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			entries := make([]idEntry, 0, len(args)-1)
			for _, w := range args[1:] {
				id, ok := resp.IDs[w]
				entries = append(entries, idEntry{Word: w, ID: id, Found: ok})
			}
			if err := printIDs(newPrinter(cmd), entries); err != nil {
				return err
			}
			return missingError(entries, func(e idEntry) bool { return e.Found })
		},
	}
}

func newClientWordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "word <lexicon> <id>...",
		Short: "Look up the word stored under each id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			ctx, cancel := requestContext(cmd)
			defer cancel()

			client := clientFromCmd(cmd)
			// Unknown lexicons and missing ids share CodeNotFound; rule out
			// the former first.
			if _, err := client.Info(ctx, &server.InfoRequest{Lexicon: args[0]}); err != nil {
				return fmt.Errorf("info: %w", err)
			}
			entries := make([]wordEntry, 0, len(ids))
			for _, id := range ids {
				resp, err := client.LookupWord(ctx, &server.LookupWordRequest{Lexicon: args[0], ID: id})
				switch {
				case err == nil:
					entries = append(entries, wordEntry{ID: id, Word: resp.Word, Found: true})
				case connect.CodeOf(err) == connect.CodeNotFound:
					entries = append(entries, wordEntry{ID: id})
				default:
					return fmt.Errorf("lookup word %d: %w", id, err)
				}
			}
			if err := printWords(newPrinter(cmd), entries); err != nil {
				return err
			}
			return missingError(entries, func(e wordEntry) bool { return e.Found })
		},
	}
}

func newClientExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <lexicon>",
		Short: "Print the full word → id mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			resp, err := clientFromCmd(cmd).Export(ctx, &server.ExportRequest{Lexicon: args[0]})
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			return printMapping(newPrinter(cmd), resp.Entries)
		},
	}
}

func newClientInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <lexicon>",
		Short: "Describe the table a lexicon serves",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			resp, err := clientFromCmd(cmd).Info(ctx, &server.InfoRequest{Lexicon: args[0]})
			if err != nil {
				return fmt.Errorf("info: %w", err)
			}
			return printInfo(newPrinter(cmd), resp.Lexicon)
		},
	}
}

func newClientReloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reload <lexicon>",
		Short: "Reload a lexicon from its file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			resp, err := clientFromCmd(cmd).Reload(ctx, &server.ReloadRequest{Lexicon: args[0]})
			if err != nil {
				return fmt.Errorf("reload: %w", err)
			}
			return printInfo(newPrinter(cmd), resp.Lexicon)
		},
	}
}

func newClientListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List served lexicons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := requestContext(cmd)
			defer cancel()

			resp, err := clientFromCmd(cmd).ListLexicons(ctx)
			if err != nil {
				return fmt.Errorf("list lexicons: %w", err)
			}
			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(resp.Lexicons)
			}
			rows := make([][]string, 0, len(resp.Lexicons))
			for _, li := range resp.Lexicons {
				loaded := "no"
				if li.Loaded {
					loaded = li.LoadedAt.Format(time.RFC3339)
				}
				rows = append(rows, []string{li.Name, strconv.Itoa(li.Words), loaded, li.Source})
			}
			p.table([]string{"NAME", "WORDS", "LOADED", "SOURCE"}, rows)
			return nil
		},
	}
}

// requestContext applies the --timeout flag.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return context.WithTimeout(cmd.Context(), timeout)
}

func printInfo(p *printer, li server.LexiconInfo) error {
	if p.isJSON() {
		return p.json(li)
	}
	loadedAt := "-"
	if li.Loaded {
		loadedAt = li.LoadedAt.Format(time.RFC3339)
	}
	p.kv([][2]string{
		{"Name", li.Name},
		{"Source", li.Source},
		{"Generation", li.Generation},
		{"Loaded at", loadedAt},
		{"Records", strconv.Itoa(li.Records)},
		{"Words", strconv.Itoa(li.Words)},
		{"Bytes", strconv.FormatInt(li.Bytes, 10)},
		{"Trailing bytes", strconv.Itoa(li.Trailing)},
		{"Load time", (time.Duration(li.LoadMillis) * time.Millisecond).String()},
	})
	return nil
}
