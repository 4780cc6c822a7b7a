package cli

import (
	"flag"
	"fmt"
	"strings"

	"ytdl-remote/internal/config"
)

func runConfig(args []string) error {
	if len(args) == 0 {
		printConfigUsage()
		return nil
	}
	switch args[0] {
	case "init":
		return runConfigInit(args[1:])
	case "show":
		return runConfigShow(args[1:])
	case "help", "-h", "--help":
		printConfigUsage()
		return nil
	default:
		printConfigUsage()
		return fmt.Errorf("unknown config subcommand %q", args[0])
	}
}

func runConfigInit(args []string) error {
	fs := flag.NewFlagSet("config init", flag.ContinueOnError)
	path := fs.String("config", config.DefaultPath(), "config file path")
	force := fs.Bool("force", false, "overwrite an existing config file")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	written, err := config.WriteDefault(strings.TrimSpace(*path), *force)
	if err != nil {
		return err
	}
	fmt.Printf("config written: %s\n", written)
	return nil
}

func runConfigShow(args []string) error {
	fs := flag.NewFlagSet("config show", flag.ContinueOnError)
	path := fs.String("config", config.DefaultPath(), "config file path")
	jsonOut := fs.Bool("json", false, "print JSON output")
	fs.SetOutput(flag.CommandLine.Output())
	if err := fs.Parse(args); err != nil {
		return err
	}

	settings, used, err := config.Load(strings.TrimSpace(*path))
	if err != nil {
		return err
	}
	if *jsonOut {
		return printJSON(map[string]any{
			"config_path": used,
			"settings":    settings,
		})
	}

	fmt.Printf("config: %s\n", used)
	fmt.Printf("server: %s\n", settings.Server)
	fmt.Printf("poll_interval: %s\n", settings.PollInterval)
	fmt.Printf("max_poll_duration: %s\n", formatLimit(settings.MaxPollDuration.String(), settings.MaxPollDuration == 0))
	fmt.Printf("dismiss_delay: %s\n", settings.DismissDelay)
	fmt.Printf("alert_duration: %s\n", settings.AlertDuration)
	fmt.Printf("request_timeout: %s\n", settings.RequestTimeout)
	fmt.Printf("output_dir: %s\n", settings.OutputDir)
	fmt.Printf("history_path: %s\n", defaultIfEmpty(settings.HistoryPath, "(disabled)"))
	fmt.Printf("log_file: %s\n", defaultIfEmpty(settings.LogFile, "(disabled)"))
	fmt.Printf("log_level: %s\n", settings.LogLevel)
	fmt.Printf("surface_mode_change_errors: %s\n", yesNo(settings.SurfaceModeChangeErrors))
	return nil
}

func formatLimit(v string, unlimited bool) string {
	if unlimited {
		return "(unlimited)"
	}
	return v
}

func printConfigUsage() {
	fmt.Println("usage: ytdl-remote config <init|show> [--config <path>]")
	fmt.Println()
	fmt.Println("  init   write the default config file (--force overwrites)")
	fmt.Println("  show   print the effective settings, env overrides applied")
	fmt.Println()
	fmt.Printf("Environment overrides use the %s_ prefix, e.g. %s_SERVER=http://host:5000\n", config.EnvPrefix, config.EnvPrefix)
}
