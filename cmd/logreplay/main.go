// Package main provides the logreplay CLI for browsing and replaying AI
// agent conversation logs.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"logreplay/internal/ansi"
	// Import both agent packages to trigger init() registration
	_ "logreplay/internal/claude"
	_ "logreplay/internal/codex"
	"logreplay/internal/config"
	"logreplay/internal/format"
	"logreplay/internal/index"
	"logreplay/internal/model"
	"logreplay/internal/ranges"
	"logreplay/internal/render"
	"logreplay/internal/store"
	"logreplay/internal/timing"
	"logreplay/internal/view"
)

var version = "dev"

var (
	agentFlag  string
	configPath string
)

var rootCmd = &cobra.Command{
	Use:     "logreplay",
	Short:   "Browse, convert, and replay AI agent conversation logs",
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&agentFlag, "agent", "",
		"Agent type: 'claude' or 'codex' (env: LOGREPLAY_AGENT, default: auto-detect)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Config file path (default: "+config.Path()+")")

	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newIndexCmd())
	rootCmd.AddCommand(newInfoCmd())
	rootCmd.AddCommand(newViewCmd())
	rootCmd.AddCommand(newConvertCmd())
	rootCmd.AddCommand(newRenderCmd())
	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newPlayCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "logreplay: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// getAgent returns the agent from flag or environment. Empty means
// auto-detect from file contents.
func getAgent() model.Agent {
	if agentFlag != "" {
		return model.Agent(agentFlag)
	}
	if env := os.Getenv("LOGREPLAY_AGENT"); env != "" {
		return model.Agent(env)
	}
	return ""
}

// sessionRoots resolves the directories to scan, honoring the
// LOGREPLAY_SESSIONS_DIR override and the config file.
func sessionRoots(cfg config.Config) []store.Root {
	if dir := os.Getenv("LOGREPLAY_SESSIONS_DIR"); dir != "" {
		agent := getAgent()
		if agent == "" {
			return []store.Root{
				{Agent: model.AgentClaude, Dir: dir},
				{Agent: model.AgentCodex, Dir: dir},
			}
		}
		return []store.Root{{Agent: agent, Dir: dir}}
	}
	return cfg.Roots()
}

func newListCmd() *cobra.Command {
	var (
		afterStr     string
		beforeStr    string
		limit        int
		formatFlag   string
		noHeader     bool
		previewWidth int
		sessionsDir  string
		cached       bool
		dbPath       string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions in reverse chronological order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if formatFlag == "" {
				formatFlag = cfg.ListFormat
			}

			after, err := parseTimeFlag("after", afterStr)
			if err != nil {
				return err
			}
			before, err := parseTimeFlag("before", beforeStr)
			if err != nil {
				return err
			}

			roots := sessionRoots(cfg)
			if sessionsDir != "" {
				roots = rootsForDir(sessionsDir)
			}

			var summaries []store.Summary
			if cached {
				db, err := openIndex(cfg, dbPath)
				if err != nil {
					return err
				}
				defer db.Close()
				summaries, err = db.List(index.ListOptions{
					Agent:  getAgent(),
					After:  after,
					Before: before,
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				for i := range summaries {
					if previewWidth > 0 {
						summaries[i].Preview = clipPreview(summaries[i].Preview, previewWidth)
					}
				}
			} else {
				result, err := store.ListSessions(store.ListOptions{
					Roots:      roots,
					Agent:      getAgent(),
					After:      after,
					Before:     before,
					Limit:      limit,
					MaxPreview: previewWidth,
				})
				if err != nil {
					return err
				}
				errs := cmd.ErrOrStderr()
				for _, warn := range result.Warnings {
					fmt.Fprintf(errs, "warning: %v\n", warn) //nolint:errcheck
				}
				summaries = result.Summaries
			}

			includeHeader := !noHeader
			return format.WriteSummaries(cmd.OutOrStdout(), summaries, includeHeader, strings.ToLower(formatFlag))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&afterStr, "after", "", "include sessions starting on/after the given RFC3339 timestamp")
	flags.StringVar(&beforeStr, "before", "", "include sessions starting on/before the given RFC3339 timestamp")
	flags.IntVar(&limit, "limit", 0, "limit number of sessions returned (0 means no limit)")
	flags.StringVar(&formatFlag, "format", "", "output format: table, plain, json, or jsonl")
	flags.BoolVar(&noHeader, "no-header", false, "omit header row")
	flags.IntVar(&previewWidth, "preview-width", 160, "maximum characters included in the preview column")
	flags.StringVar(&sessionsDir, "sessions-dir", "", "override the sessions directory")
	flags.BoolVar(&cached, "cached", false, "read from the index cache instead of scanning log files")
	flags.StringVar(&dbPath, "db", "", "index database path (default: "+index.DefaultPath()+")")

	return cmd
}

func newIndexCmd() *cobra.Command {
	var (
		sessionsDir string
		dbPath      string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the session summary cache",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			roots := sessionRoots(cfg)
			if sessionsDir != "" {
				roots = rootsForDir(sessionsDir)
			}

			db, err := openIndex(cfg, dbPath)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := db.Rebuild(roots)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scanned %d, refreshed %d, removed %d\n",
				stats.Scanned, stats.Refreshed, stats.Removed)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&sessionsDir, "sessions-dir", "", "override the sessions directory")
	flags.StringVar(&dbPath, "db", "", "index database path (default: "+index.DefaultPath()+")")

	return cmd
}

type infoPayload struct {
	Agent           string `json:"agent"`
	SessionID       string `json:"session_id"`
	Path            string `json:"path"`
	StartedAt       string `json:"started_at"`
	EndedAt         string `json:"ended_at"`
	EventCount      int    `json:"event_count"`
	DurationSeconds int    `json:"duration_seconds"`
	DurationDisplay string `json:"duration_display"`
	Preview         string `json:"preview"`
	Warnings        int    `json:"warnings"`
}

func newInfoCmd() *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "info <session-id-or-path>",
		Short: "Show session metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, err := resolveSessionPath(args[0], sessionRoots(cfg))
			if err != nil {
				return err
			}
			res, err := store.Load(path, getAgent())
			if err != nil {
				return err
			}
			summary, err := store.Summarize(path, res.Session.Agent)
			if err != nil {
				return err
			}

			payload := infoPayload{
				Agent:           string(summary.Agent),
				SessionID:       summary.SessionID,
				Path:            path,
				StartedAt:       timeDisplay(summary.StartedAt),
				EndedAt:         timeDisplay(summary.EndedAt),
				EventCount:      summary.Events,
				DurationSeconds: summary.DurationSeconds(),
				DurationDisplay: formatDuration(summary.DurationSeconds()),
				Preview:         summary.Preview,
				Warnings:        len(res.Warnings),
			}

			switch strings.ToLower(formatFlag) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload)
			case "", "text":
				out := cmd.OutOrStdout()
				const labelWidth = 12
				writeKV(out, labelWidth, "Agent", payload.Agent)
				writeKV(out, labelWidth, "Session ID", payload.SessionID)
				writeKV(out, labelWidth, "Path", payload.Path)
				writeKV(out, labelWidth, "Started At", payload.StartedAt)
				writeKV(out, labelWidth, "Ended At", payload.EndedAt)
				writeKV(out, labelWidth, "Duration", payload.DurationDisplay)
				writeKV(out, labelWidth, "Events", fmt.Sprintf("%d", payload.EventCount))
				writeKV(out, labelWidth, "Warnings", fmt.Sprintf("%d", payload.Warnings))
				writeKV(out, labelWidth, "Preview", payload.Preview)
				return nil
			default:
				return fmt.Errorf("unsupported format: %s", formatFlag)
			}
		},
	}

	cmd.Flags().StringVar(&formatFlag, "format", "text", "output format: text or json")
	return cmd
}

func newViewCmd() *cobra.Command {
	var (
		formatFlag   string
		rangeExpr    string
		wrap         int
		maxEvents    int
		forceColor   bool
		forceNoColor bool
		noPager      bool
	)

	cmd := &cobra.Command{
		Use:   "view <session-id-or-path>",
		Short: "Print a session transcript to the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, session, err := loadSessionArg(args[0], cfg)
			if err != nil {
				return err
			}
			v, err := selectRange(session, rangeExpr)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			outFile, _ := out.(*os.File)
			return view.Run(v, view.Options{
				Format:       formatFlag,
				Wrap:         wrap,
				MaxEvents:    maxEvents,
				ForceColor:   forceColor,
				ForceNoColor: forceNoColor,
				NoPager:      noPager,
				Out:          out,
				OutFile:      outFile,
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&formatFlag, "format", "text", "output format: text or chat")
	flags.StringVar(&rangeExpr, "range", "", "event selection, e.g. '1-10,15,20-'")
	flags.IntVar(&wrap, "wrap", 0, "wrap message body at the given column width")
	flags.IntVar(&maxEvents, "max", 0, "show only the most recent N events (0 means no limit)")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")
	flags.BoolVar(&noPager, "no-pager", false, "write directly to stdout without a pager")

	return cmd
}

func newConvertCmd() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "convert <session-id-or-path>",
		Short: "Convert a session log to canonical JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, session, err := loadSessionArg(args[0], cfg)
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				return model.WriteJSON(cmd.OutOrStdout(), session)
			}
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			if err := model.WriteJSON(f, session); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&outPath, "output", "o", "", "output file (default: stdout)")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var (
		formatFlag   string
		themeFlag    string
		ansiFlag     string
		rangeExpr    string
		outPath      string
		baseInterval int
		targetMs     int
	)

	cmd := &cobra.Command{
		Use:   "render <session-id-or-path>",
		Short: "Render a session to markdown or HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, session, err := loadSessionArg(args[0], cfg)
			if err != nil {
				return err
			}
			v, err := selectRange(session, rangeExpr)
			if err != nil {
				return err
			}

			opts, fmtVal, err := renderOptions(cfg, path, formatFlag, themeFlag, ansiFlag, baseInterval, targetMs)
			if err != nil {
				return err
			}
			renderer, err := render.New(fmtVal, opts)
			if err != nil {
				return err
			}

			if outPath == "" || outPath == "-" {
				return renderer.Render(cmd.OutOrStdout(), v)
			}
			return renderToFile(renderer, outPath, v)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&formatFlag, "format", "f", "markdown", "output format: markdown, html, player, or terminal")
	flags.StringVar(&themeFlag, "theme", "", "HTML theme: light or console")
	flags.StringVar(&ansiFlag, "ansi", "", "escape sequence handling: strip or color")
	flags.StringVar(&rangeExpr, "range", "", "event selection, e.g. '1-10,15,20-'")
	flags.StringVarP(&outPath, "output", "o", "", "output file (default: stdout)")
	flags.IntVar(&baseInterval, "base-interval", 0, "uniform playback interval in milliseconds")
	flags.IntVar(&targetMs, "compressed-target", 0, "compressed playback target in milliseconds")

	return cmd
}

func newReplayCmd() *cobra.Command {
	var (
		themeFlag    string
		ansiFlag     string
		rangeExpr    string
		outPath      string
		terminal     bool
		baseInterval int
		targetMs     int
	)

	cmd := &cobra.Command{
		Use:   "replay <session-id-or-path>",
		Short: "Build an interactive playback page for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			path, session, err := loadSessionArg(args[0], cfg)
			if err != nil {
				return err
			}
			v, err := selectRange(session, rangeExpr)
			if err != nil {
				return err
			}

			formatFlag := "player"
			if terminal {
				formatFlag = "terminal"
			}
			opts, fmtVal, err := renderOptions(cfg, path, formatFlag, themeFlag, ansiFlag, baseInterval, targetMs)
			if err != nil {
				return err
			}
			renderer, err := render.New(fmtVal, opts)
			if err != nil {
				return err
			}

			if outPath == "" {
				name := session.SessionID
				if name == "" {
					name = "session"
				}
				outPath = name + render.Extension(fmtVal)
			}
			if err := renderToFile(renderer, outPath, v); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&themeFlag, "theme", "", "HTML theme: light or console")
	flags.StringVar(&ansiFlag, "ansi", "", "escape sequence handling: strip or color")
	flags.StringVar(&rangeExpr, "range", "", "event selection, e.g. '1-10,15,20-'")
	flags.StringVarP(&outPath, "output", "o", "", "output file (default: <session-id>.html)")
	flags.BoolVar(&terminal, "terminal", false, "use the terminal-style playback page")
	flags.IntVar(&baseInterval, "base-interval", 0, "uniform playback interval in milliseconds")
	flags.IntVar(&targetMs, "compressed-target", 0, "compressed playback target in milliseconds")

	return cmd
}

func newPlayCmd() *cobra.Command {
	var (
		modeFlag     string
		speed        float64
		rangeExpr    string
		baseInterval int
		targetMs     int
		forceColor   bool
		forceNoColor bool
	)

	cmd := &cobra.Command{
		Use:   "play <session-id-or-path>",
		Short: "Replay a session in the terminal at its recorded pace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if forceColor && forceNoColor {
				return errors.New("--color and --no-color cannot be used together")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, session, err := loadSessionArg(args[0], cfg)
			if err != nil {
				return err
			}
			v, err := selectRange(session, rangeExpr)
			if err != nil {
				return err
			}
			mode, err := timing.ParseMode(modeFlag)
			if err != nil {
				return err
			}

			opts := timing.Options{
				Mode:             mode,
				Speed:            speed,
				BaseInterval:     cfg.BaseInterval(),
				CompressedTarget: cfg.CompressedTarget(),
			}
			if baseInterval > 0 {
				opts.BaseInterval = time.Duration(baseInterval) * time.Millisecond
			}
			if targetMs > 0 {
				opts.CompressedTarget = time.Duration(targetMs) * time.Millisecond
			}

			return playTranscript(cmd.OutOrStdout(), v, opts, forceColor, forceNoColor)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&modeFlag, "mode", "uniform", "timing mode: uniform, realtime, or compressed")
	flags.Float64Var(&speed, "speed", 1.0, "playback speed multiplier")
	flags.StringVar(&rangeExpr, "range", "", "event selection, e.g. '1-10,15,20-'")
	flags.IntVar(&baseInterval, "base-interval", 0, "uniform playback interval in milliseconds")
	flags.IntVar(&targetMs, "compressed-target", 0, "compressed playback target in milliseconds")
	flags.BoolVar(&forceColor, "color", false, "force-enable ANSI colors even when stdout is not a TTY")
	flags.BoolVar(&forceNoColor, "no-color", false, "disable ANSI colors regardless of terminal detection")

	return cmd
}

// playTranscript reveals events one at a time, pacing them with the
// timing engine until the whole view has been printed.
func playTranscript(out io.Writer, v model.View, opts timing.Options, forceColor, forceNoColor bool) error {
	if v.Len() == 0 {
		return nil
	}

	advanced := make(chan int, v.Len()+1)
	opts.OnAdvance = func(index int) { advanced <- index }
	engine := timing.NewEngine(v, opts)
	engine.Play()

	outFile, _ := out.(*os.File)
	viewOpts := view.Options{
		Format:       "text",
		ForceColor:   forceColor,
		ForceNoColor: forceNoColor,
		NoPager:      true,
		Out:          out,
		OutFile:      outFile,
	}
	for index := range advanced {
		single := v.Session().Subset([]int{v.At(index - 1).Index})
		if err := view.Run(single, viewOpts); err != nil {
			return err
		}
		fmt.Fprintln(out) //nolint:errcheck
		if index >= v.Len() {
			break
		}
	}
	return nil
}

func renderOptions(cfg config.Config, source, formatFlag, themeFlag, ansiFlag string, baseInterval, targetMs int) (render.Options, render.Format, error) {
	fmtVal, err := render.ParseFormat(formatFlag)
	if err != nil {
		return render.Options{}, "", err
	}
	if themeFlag == "" {
		themeFlag = cfg.Theme
	}
	theme, err := render.ParseTheme(themeFlag)
	if err != nil {
		return render.Options{}, "", err
	}
	if ansiFlag == "" {
		ansiFlag = cfg.ANSIMode
	}
	mode, err := ansi.ParseMode(ansiFlag)
	if err != nil {
		return render.Options{}, "", err
	}

	opts := render.Options{
		Theme:            theme,
		ANSI:             mode,
		Source:           source,
		BaseInterval:     cfg.BaseInterval(),
		CompressedTarget: cfg.CompressedTarget(),
	}
	if baseInterval > 0 {
		opts.BaseInterval = time.Duration(baseInterval) * time.Millisecond
	}
	if targetMs > 0 {
		opts.CompressedTarget = time.Duration(targetMs) * time.Millisecond
	}
	return opts, fmtVal, nil
}

func renderToFile(renderer render.Renderer, path string, v model.View) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := renderer.Render(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// loadSessionArg resolves arg to a session, accepting raw agent logs,
// canonical JSON exports, and bare session ids.
func loadSessionArg(arg string, cfg config.Config) (string, *model.Session, error) {
	path, err := resolveSessionPath(arg, sessionRoots(cfg))
	if err != nil {
		return "", nil, err
	}

	if strings.HasSuffix(path, ".json") {
		session, err := readModelJSON(path)
		if err != nil {
			return "", nil, err
		}
		return path, session, nil
	}

	agent := getAgent()
	if agent == "" {
		detected, err := store.DetectAgent(path)
		if err != nil {
			// not a recognized agent log; try the canonical JSON artifact
			if session, jerr := readModelJSON(path); jerr == nil {
				return path, session, nil
			}
			return "", nil, err
		}
		agent = detected
	}

	res, err := store.Load(path, agent)
	if err != nil {
		return "", nil, err
	}
	for _, warn := range res.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", warn) //nolint:errcheck
	}
	return path, res.Session, nil
}

func readModelJSON(path string) (*model.Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	session, err := model.ReadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return session, nil
}

func resolveSessionPath(arg string, roots []store.Root) (string, error) {
	if arg == "" {
		return "", errors.New("session identifier is empty")
	}
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		return arg, nil
	}
	return store.FindSessionPath(roots, arg)
}

func selectRange(session *model.Session, expr string) (model.View, error) {
	if expr == "" {
		return session.All(), nil
	}
	set, err := ranges.Parse(expr, len(session.Events))
	if err != nil {
		return model.View{}, err
	}
	return session.Subset(set.Indices()), nil
}

func openIndex(cfg config.Config, dbPath string) (*index.DB, error) {
	if dbPath == "" {
		dbPath = cfg.IndexPath
	}
	if dbPath == "" {
		dbPath = index.DefaultPath()
	}
	return index.OpenDB(dbPath)
}

func rootsForDir(dir string) []store.Root {
	agent := getAgent()
	if agent == "" {
		return []store.Root{
			{Agent: model.AgentClaude, Dir: dir},
			{Agent: model.AgentCodex, Dir: dir},
		}
	}
	return []store.Root{{Agent: agent, Dir: dir}}
}

func parseTimeFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &t, nil
}

func timeDisplay(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.Format(time.RFC3339)
}

func formatDuration(seconds int) string {
	if seconds <= 0 {
		return "00:00:00"
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func writeKV(out io.Writer, width int, label string, value string) {
	fmt.Fprintf(out, "%-*s: %s\n", width, label, value) //nolint:errcheck
}

func clipPreview(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "…"
}
