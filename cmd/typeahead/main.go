// Copyright 2025 The Typeahead Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the typeahead completion server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

Typeahead serves top-N prefix completions from weighted automaton segments. Each
segment is a compiled FST mapping analyzed surface forms to (weight, payload) pairs;
a lookup walks the prefix (or a fuzzy or context restricted automaton) and pulls the
best paths out with a bounded priority queue.

# Usage

Start the server with default settings:

	typeahead

Use a custom data directory and enable debug mode:

	typeahead -data /path/to/segments -d

Run in CLI mode for interactive testing:

	typeahead -c -limit 10 -prmin 2 -fuzzy

Compile a text dictionary into a segment:

	typeahead -build words.txt -out data/words.tas

Text dictionaries hold one entry per line, tab separated:

	surface	weight	docID	ctx1,ctx2

Only the surface is required. Lines holding just a surface are ranked by position.

# Configuration

Runtime configuration is read from a TOML file, by default
[UserConfigDir]/typeahead/config.toml, which is created with defaults if missing:

	[server]
	max_limit = 64
	min_prefix = 1
	max_prefix = 60
	enable_filter = true
	skip_duplicates = true
	cache_size = 1024

	[index]
	data_dir = "data"
	max_segments = 0
	open_concurrency = 4
	fuzzy_max_edits = 1
	fuzzy_min_length = 3
	fuzzy_exact_prefix = 1

	[cli]
	default_limit = 24
	default_min_len = 1
	default_max_len = 24
	default_no_filter = false
	default_fuzzy = false

# Server Mode

The default mode reads MessagePack requests from stdin and writes responses to
stdout. See package server for the protocol.

# Command Line Flags

	-data string
	    Directory containing segment files (default from config)
	-config string
	    Path to a config file
	-d  Enable debug mode with detailed logging
	-c  Run in CLI mode instead of server mode
	-limit int
	    Number of suggestions to return in CLI mode
	-prmin int
	    Minimum prefix length in CLI mode
	-prmax int
	    Maximum prefix length in CLI mode
	-no-filter
	    Disable input filtering in CLI mode
	-fuzzy
	    Start the CLI with fuzzy matching on
	-build string
	    Text dictionary to compile into a segment
	-out string
	    Segment path for -build
	-reset-config
	    Rewrite the default config file with built-in defaults
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/bastiangx/typeahead/internal/cli"
	"github.com/bastiangx/typeahead/internal/logger"
	"github.com/bastiangx/typeahead/internal/utils"
	"github.com/bastiangx/typeahead/pkg/config"
	"github.com/bastiangx/typeahead/pkg/dictionary"
	"github.com/bastiangx/typeahead/pkg/index"
	"github.com/bastiangx/typeahead/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0-beta"
	AppName = "typeahead"
	gh      = "https://github.com/bastiangx/typeahead"
)

// main only manages the flow between the packages.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defaultConfig := config.DefaultConfig()

	showVersion := flag.Bool("version", false, "Show current version")
	dataDir := flag.String("data", "", "Directory containing the segment files")
	configPath := flag.String("config", "", "Path to config file")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	limit := flag.Int("limit", defaultConfig.CLI.DefaultLimit, "Number of suggestions to return")
	minPrefix := flag.Int("prmin", defaultConfig.CLI.DefaultMinLen, "Minimum prefix length for suggestions (1 <= n <= prmax)")
	maxPrefix := flag.Int("prmax", defaultConfig.CLI.DefaultMaxLen, "Maximum prefix length for suggestions")
	noFilter := flag.Bool("no-filter", defaultConfig.CLI.DefaultNoFilter, "Disable input filtering (DBG only)")
	fuzzy := flag.Bool("fuzzy", defaultConfig.CLI.DefaultFuzzy, "Start the CLI with fuzzy matching")
	buildInput := flag.String("build", "", "Compile a text dictionary into a segment file")
	buildOutput := flag.String("out", "", "Output path for -build (default: input with .tas extension)")
	resetConfig := flag.Bool("reset-config", false, "Rewrite the default config file with built-in defaults")
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	logger.Setup(*debugMode)

	if *resetConfig {
		if err := config.RebuildConfigFile(); err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Print("Config reset", "path", config.GetActiveConfigPath(""))
		return
	}

	if *buildInput != "" {
		out := *buildOutput
		if out == "" {
			out = strings.TrimSuffix(*buildInput, filepath.Ext(*buildInput)) + dictionary.SegmentExt
		}
		if err := build(*buildInput, out); err != nil {
			log.Fatalf("Build failed: %v", err)
		}
		return
	}

	appConfig, activeConfigPath, err := config.LoadConfigWithPriority(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(activeConfigPath))

	// Flags left unset follow the config file.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if !set["limit"] {
		*limit = appConfig.CLI.DefaultLimit
	}
	if !set["prmin"] {
		*minPrefix = appConfig.CLI.DefaultMinLen
	}
	if !set["prmax"] {
		*maxPrefix = appConfig.CLI.DefaultMaxLen
	}
	if !set["no-filter"] {
		*noFilter = appConfig.CLI.DefaultNoFilter
	}
	if !set["fuzzy"] {
		*fuzzy = appConfig.CLI.DefaultFuzzy
	}
	if *dataDir == "" {
		*dataDir = appConfig.Index.DataDir
	}

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Print("Either env is not set or system is not supported")
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	resolvedDataDir := pathResolver.GetDataDir(*dataDir, "*"+dictionary.SegmentExt)
	log.Debugf("Using data dir at: %s", resolvedDataDir)

	opts := index.DefaultOptions()
	opts.CacheSize = appConfig.Server.CacheSize
	opts.MaxSegments = appConfig.Index.MaxSegments
	opts.OpenConcurrency = appConfig.Index.OpenConcurrency
	opts.FuzzyMaxEdits = appConfig.Index.FuzzyMaxEdits
	opts.FuzzyMinLength = appConfig.Index.FuzzyMinLength
	opts.FuzzyExactPrefix = appConfig.Index.FuzzyExactPrefix

	ix, err := index.Open(ctx, resolvedDataDir, opts)
	if err != nil {
		log.Fatalf("Failed to open index: %v", err)
	}

	if *cliMode {
		log.Debug("Input info:",
			"minPrefix", *minPrefix,
			"maxPrefix", *maxPrefix,
			"limit", *limit,
			"noFilter", *noFilter,
			"fuzzy", *fuzzy)
		inputHandler := cli.NewInputHandler(ix, *minPrefix, *maxPrefix, *limit, *noFilter, *fuzzy)
		if err := runUntilDone(ctx, ix, inputHandler.Start); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(ix, appConfig, activeConfigPath)
	showStartupInfo(resolvedDataDir, ix)
	if err := runUntilDone(ctx, ix, srv.Start); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runUntilDone runs fn until it returns or ctx is cancelled, then saves pending deletes.
func runUntilDone(ctx context.Context, ix *index.Index, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
	}
	if saveErr := ix.Save(); saveErr != nil {
		log.Errorf("Saving index: %v", saveErr)
	}
	return err
}

// build compiles a text dictionary into a segment file.
func build(input, output string) error {
	entries, err := dictionary.ReadTextFile(input)
	if err != nil {
		return err
	}
	b, err := dictionary.BuildFromEntries(entries)
	if err != nil {
		return err
	}
	sf, err := dictionary.Compile(b)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(output)); err != nil {
		return err
	}
	if err := dictionary.WriteSegmentFile(output, sf); err != nil {
		return err
	}
	log.Infof("Wrote %s: %s entries, %s docs, %s bytes", output,
		utils.FormatWithCommas(b.Len()), utils.FormatWithCommas(sf.MaxDoc), utils.FormatWithCommas(int(sf.Suggester.RAMBytesUsed())))
	return nil
}

func printVersion() {
	banner := logger.NewWithConfig("", log.InfoLevel, false, false, log.TextFormatter)
	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ typeahead ] weighted top-N completions")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(dataDir string, ix *index.Index) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	banner := lipgloss.NewStyle().Bold(true).Padding(0, 1).
		Border(lipgloss.NormalBorder()).
		Render(AppName)
	fmt.Fprintln(os.Stderr, banner)
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("data dir: ( %s )", dataDir)
	log.Infof("segments: %d, docs: %s", len(ix.Segments()), utils.FormatWithCommas(ix.NumDocs()))
	log.Info("status: ready")
}
