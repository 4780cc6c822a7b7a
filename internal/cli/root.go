package cli

import "fmt"

func Run(args []string) error {
	if len(args) == 0 {
		printRootUsage()
		return nil
	}

	switch args[0] {
	case "ui":
		return runUI(args[1:])
	case "get":
		return runGet(args[1:])
	case "info":
		return runInfo(args[1:])
	case "status":
		return runStatus(args[1:])
	case "history":
		return runHistory(args[1:])
	case "config":
		return runConfig(args[1:])
	case "serve-mock":
		return runServeMock(args[1:])
	case "help", "-h", "--help":
		printRootUsage()
		return nil
	default:
		printRootUsage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printRootUsage() {
	fmt.Println("ytdl-remote: terminal client for a remote YouTube download service")
	fmt.Println()
	fmt.Println("Quick Start:")
	fmt.Println("  ytdl-remote config init")
	fmt.Println("  ytdl-remote ui")
	fmt.Println("  ytdl-remote get --url <url> [--audio] [--quality auto|N]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  ui          interactive analyze, pick quality, download")
	fmt.Println("  get         run a whole download without the interactive view")
	fmt.Println("  info        list title and available qualities for a url")
	fmt.Println("  status      query one job by id")
	fmt.Println("  history     list finished downloads recorded locally")
	fmt.Println("  config      init/show client settings")
	fmt.Println("  serve-mock  run a local stand-in for the download backend")
	fmt.Println()
	fmt.Println("Notes:")
	fmt.Println("  - Use --json on get/info/status/history for machine-readable output")
	fmt.Println("  - --server <origin> overrides the configured backend for one command")
}
