package main

import (
	"fmt"
	"os"
	"sync/atomic"

	"dj-backend/internal/builder"
	"dj-backend/internal/catalog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	errColor  = color.New(color.FgRed)
	headColor = color.New(color.Bold)
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the word index from the song catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := dj.Config()
		entries, err := catalog.Load(cfg.CatalogPath())
		if err != nil {
			return err
		}

		progress := newBarProgress()
		b, err := dj.Builder(cmd.Context(), progress)
		if err != nil {
			return err
		}

		headColor.Printf("Building word index from %d songs\n", len(entries))
		_, sum, err := b.Build(cmd.Context(), entries)
		progress.wait()
		if err != nil {
			return err
		}
		printSummary(sum, cfg.WordsPath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)
}

// barProgress renders a build as a progress bar with the current song.
type barProgress struct {
	p      *mpb.Progress
	bar    *mpb.Bar
	cur    atomic.Value
	missed []string
}

func newBarProgress() *barProgress {
	b := &barProgress{p: mpb.New(mpb.WithWidth(48), mpb.WithOutput(os.Stderr))}
	b.cur.Store("")
	return b
}

func (b *barProgress) Start(total int) {
	b.bar = b.p.AddBar(int64(total),
		mpb.PrependDecorators(
			decor.Name("Indexing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(decor.WCSyncSpace),
			decor.Any(func(decor.Statistics) string { return " " + b.cur.Load().(string) }),
		),
	)
}

func (b *barProgress) Step(index int, entry catalog.Entry, outcome builder.Outcome, lines int) {
	b.cur.Store(entry.String())
	if outcome == builder.Transient {
		b.missed = append(b.missed, entry.String())
	}
	b.bar.Increment()
}

func (b *barProgress) Finish(builder.Summary) {}

// wait stops the bar early if the build failed, and waits for it to render.
func (b *barProgress) wait() {
	if b.bar != nil && !b.bar.Completed() {
		b.bar.Abort(false)
	}
	b.p.Wait()
	for _, song := range b.missed {
		warnColor.Printf("retry next build: %s\n", song)
	}
}

func printSummary(sum builder.Summary, path string) {
	fmt.Println()
	headColor.Println("Build summary")
	fmt.Printf("  songs:         %d\n", sum.Songs)
	okColor.Printf("  indexed:       %d\n", sum.Indexed)
	warnColor.Printf("  no identifier: %d\n", sum.NoIdentifier)
	warnColor.Printf("  no lyrics:     %d\n", sum.NoLyrics)
	if sum.Transient > 0 {
		errColor.Printf("  transient:     %d (retried on the next build)\n", sum.Transient)
	}
	fmt.Printf("  unique words:  %d\n", sum.UniqueWords)
	fmt.Printf("  occurrences:   %d\n", sum.TotalOccurrences)
	fmt.Printf("  saved to:      %s\n", path)
}
