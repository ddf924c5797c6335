package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dj-backend/internal/catalog"
	"dj-backend/internal/dispatch"
	"dj-backend/internal/ipc"
	"dj-backend/internal/wordindex"

	"github.com/spf13/cobra"
)

// toolCmd describes a command that runs a named tool, on the server when one
// is running and in this process otherwise.
type toolCmd struct {
	use    string
	tool   string
	short  string
	params []string
	args   cobra.PositionalArgs
	// plays is set for tools that schedule a pause; run locally they keep the
	// process alive until it has happened.
	plays bool
}

var toolCmds = []toolCmd{
	{use: "play", tool: "play", short: "Start or resume playback", args: cobra.NoArgs},
	{use: "pause", tool: "pause", short: "Pause playback", args: cobra.NoArgs},
	{use: "toggle", tool: "toggle", short: "Toggle between play and pause", args: cobra.NoArgs},
	{use: "next", tool: "next", short: "Skip to the next track", args: cobra.NoArgs},
	{use: "previous", tool: "previous", short: "Go back to the previous track", args: cobra.NoArgs},
	{use: "now", tool: "now", short: "Show what is playing", args: cobra.NoArgs},
	{use: "position", tool: "position", short: "Show the playback position", args: cobra.NoArgs},
	{use: "open <uri>", tool: "open", short: "Open a track, album or playlist", params: []string{"uri"}, args: cobra.ExactArgs(1)},
	{use: "seek <seconds>", tool: "seek", short: "Seek to an absolute position", params: []string{"seconds"}, args: cobra.ExactArgs(1)},
	{use: "snippet <uri> <start> <duration>", tool: "snippet", short: "Play part of a track", params: []string{"uri", "start", "duration"}, args: cobra.ExactArgs(3), plays: true},
	{use: "drop <uri> [start] [duration]", tool: "drop", short: "Play a short moment of a track, 8s from the start by default", params: []string{"uri", "start", "duration"}, args: cobra.RangeArgs(1, 3), plays: true},
	{use: "search <query...>", tool: "search", short: "Search the web for a track URI", params: []string{"query"}, args: cobra.MinimumNArgs(1)},
	{use: "find <query...>", tool: "find", short: "Find a track in your library", params: []string{"query"}, args: cobra.MinimumNArgs(1)},
	{use: "save <uri> <name...>", tool: "save", short: "Save a track under a name", params: []string{"uri", "name"}, args: cobra.MinimumNArgs(2)},
	{use: "library", tool: "library", short: "List your library", args: cobra.NoArgs},
	{use: "lookup <word>", tool: "lookup", short: "List where a word is sung", params: []string{"word"}, args: cobra.ExactArgs(1)},
	{use: "say <word> [variant]", tool: "say", short: "Play the moment a word is sung", params: []string{"word", "variant"}, args: cobra.RangeArgs(1, 2), plays: true},
	{use: "phrase <word...>", tool: "phrase", short: "Say several words in a row", params: []string{"words"}, args: cobra.MinimumNArgs(1), plays: true},
}

func (t toolCmd) command() *cobra.Command {
	return &cobra.Command{
		Use:   t.use,
		Short: t.short,
		Args:  t.args,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, t.tool, dispatch.Positional(t.params, args), t.plays)
		},
	}
}

func runTool(cmd *cobra.Command, tool string, args dispatch.Args, plays bool) error {
	ctx := cmd.Context()

	out, err := ipc.Call(ctx, dj.Config().App.SocketPath, tool, args)
	if err == nil {
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	}
	if !errors.Is(err, ipc.ErrNoServer) {
		return err
	}

	registry, err := dj.Registry(ctx)
	if err != nil {
		return err
	}
	out, err = registry.Call(ctx, tool, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)

	if plays {
		return dj.Sequencer().Wait(ctx)
	}
	return nil
}

var variantCmd = &cobra.Command{
	Use:   "variant <word> <n>",
	Short: "Show one occurrence of a word without playing it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("variant must be a number: %q", args[1])
		}
		ix, err := wordindex.NewStore(dj.Config().WordsPath()).Get()
		if err != nil {
			return err
		}
		occ, err := ix.SelectVariant(args[0], n)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s - %s @ %.2fs (%s)\n  %s\n", occ.Artist, occ.Track, occ.Time, occ.URI, occ.Line)
		return nil
	},
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show or extend the song catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := catalog.Load(dj.Config().CatalogPath())
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintln(cmd.OutOrStdout(), e)
		}
		return nil
	},
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <artist> <title...>",
	Short: "Add a song to the catalog",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "catalog_add", dispatch.Positional([]string{"artist", "title"}, args), false)
	},
}

var catalogAddCurrentCmd = &cobra.Command{
	Use:   "add-current",
	Short: "Add the song that is playing to the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTool(cmd, "catalog_add_current", nil, false)
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the identifier cache",
}

var cacheForgetCmd = &cobra.Command{
	Use:   "forget <artist> <title...>",
	Short: "Forget a song's cached identifier so the next build searches again",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		artist, title := args[0], strings.Join(args[1:], " ")
		forgot, err := dj.Forget(cmd.Context(), artist, title)
		if err != nil {
			return err
		}
		if !forgot {
			fmt.Fprintf(cmd.OutOrStdout(), "Not cached: %s - %s\n", artist, title)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Forgot: %s - %s\n", artist, title)
		return nil
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the DJ server on a unix socket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return dj.Serve(cmd.Context())
	},
}

var callCmd = &cobra.Command{
	Use:   "call <tool> [key=value...]",
	Short: "Call a tool on the running server",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kv, err := parseKeyValues(args[1:])
		if err != nil {
			return err
		}
		out, err := ipc.Call(cmd.Context(), dj.Config().App.SocketPath, args[0], kv)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

func parseKeyValues(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[k] = v
	}
	return out, nil
}

func init() {
	for _, t := range toolCmds {
		rootCmd.AddCommand(t.command())
	}
	catalogCmd.AddCommand(catalogAddCmd, catalogAddCurrentCmd)
	cacheCmd.AddCommand(cacheForgetCmd)
	rootCmd.AddCommand(variantCmd, catalogCmd, cacheCmd, serveCmd, callCmd)
}
