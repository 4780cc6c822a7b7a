package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"strings"

	"ytdl-remote/internal/history"
	"ytdl-remote/internal/model"
	"ytdl-remote/internal/sourceurl"
)

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	common := addCommonFlags(fs)
	rawURL := fs.String("url", "", "YouTube or YouTube Music URL")
	audio := fs.Bool("audio", false, "list audio-only qualities")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	url := strings.TrimSpace(*rawURL)
	if url == "" {
		return errors.New("--url is required")
	}
	if !sourceurl.IsSupported(url) {
		return fmt.Errorf("unsupported url %q: expected a YouTube or YouTube Music link", url)
	}

	a, err := loadApp(common, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.client.Analyze(context.Background(), url, *audio)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(res)
	}
	printAnalysis(res)
	return nil
}

func printAnalysis(res model.AnalysisResult) {
	fmt.Printf("title: %s\n", defaultIfEmpty(res.Title, "(unknown)"))
	fmt.Printf("duration: %s\n", defaultIfEmpty(res.DurationText, "(unknown)"))
	fmt.Printf("mode: %s\n", modeLabel(res.AudioOnly))
	if res.ThumbnailURL != "" {
		fmt.Printf("thumbnail: %s\n", res.ThumbnailURL)
	}
	if res.IsPlaylist {
		id, _ := sourceurl.PlaylistID(res.URL)
		fmt.Printf("playlist: %s\n", defaultIfEmpty(id, "yes"))
	}
	fmt.Println("qualities:")
	for i := 0; i <= len(res.Qualities); i++ {
		fmt.Printf("  %d. %s\n", i, res.QualityLabel(i))
	}
}

func runStatus(args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	common := addCommonFlags(fs)
	id := fs.String("id", "", "job id returned when the download started")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*id) == "" {
		return errors.New("--id is required")
	}

	a, err := loadApp(common, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.client.Status(context.Background(), model.JobID(strings.TrimSpace(*id)))
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(st)
	}
	fmt.Printf("status: %s\n", st.Kind)
	if st.HasPercent {
		fmt.Printf("progress: %.1f%%\n", st.Progress)
	}
	if st.Message != "" {
		fmt.Printf("message: %s\n", st.Message)
	}
	if st.Error != "" {
		fmt.Printf("error: %s\n", st.Error)
	}
	if st.HasFile() {
		fmt.Printf("file: %s (%s)\n", st.FileName, a.client.FileURL(st.FileHandle))
	}
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	common := addCommonFlags(fs)
	limit := fs.Int("limit", history.DefaultLimit, "number of entries to show")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := loadApp(common, appOptions{withHistory: true})
	if err != nil {
		return err
	}
	defer a.Close()
	if a.history == nil {
		return fmt.Errorf("history database %s is not available", a.settings.HistoryPath)
	}

	entries, err := a.history.List(context.Background(), *limit)
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"history_path": a.settings.HistoryPath,
			"entries":      entries,
		})
	}
	if len(entries) == 0 {
		fmt.Println("no downloads recorded yet")
		return nil
	}
	for _, e := range entries {
		fmt.Println(historyLine(e))
	}
	return nil
}

func historyLine(e history.Entry) string {
	parts := []string{e.CreatedAt, e.Status, e.JobID}
	if e.Title != "" {
		parts = append(parts, truncateRunes(e.Title, 48))
	} else {
		parts = append(parts, e.URL)
	}
	if e.SavedPath != "" {
		parts = append(parts, "-> "+e.SavedPath)
	} else if e.Message != "" {
		parts = append(parts, "("+e.Message+")")
	}
	return strings.Join(parts, "  ")
}
