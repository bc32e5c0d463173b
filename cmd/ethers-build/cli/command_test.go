// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

func noop(context.Context, []string, *slog.Logger) error { return nil }

func TestCommand_Execute_DispatchesToSubcommand(t *testing.T) {
	var called string

	root := &Command{
		Name: "ethers-build",
		Subcommands: []*Command{
			{
				Name: "version",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "version"
					return nil
				},
			},
			{
				Name: "status",
				Run: func(context.Context, []string, *slog.Logger) error {
					called = "status"
					return nil
				},
			},
		},
	}

	if err := root.Execute(context.Background(), []string{"status"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if called != "status" {
		t.Errorf("dispatched to %q, want %q", called, "status")
	}
}

func TestCommand_Execute_PassesContextAndLogger(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "marker")

	var gotValue any
	var gotLogger *slog.Logger
	root := &Command{
		Name: "ethers-build",
		Subcommands: []*Command{{
			Name: "verify",
			Run: func(ctx context.Context, _ []string, logger *slog.Logger) error {
				gotValue = ctx.Value(key{})
				gotLogger = logger
				return nil
			},
		}},
	}

	if err := root.Execute(ctx, []string{"verify"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if gotValue != "marker" {
		t.Errorf("context value = %v, want marker", gotValue)
	}
	if gotLogger == nil {
		t.Fatal("logger is nil")
	}
	if gotLogger.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("logger enabled at debug without --verbose")
	}
}

type verboseParams struct {
	Verbosity
	Output string `flag:"out,o" desc:"output file"`
}

func TestCommand_Execute_ParamsAndVerbosity(t *testing.T) {
	var params verboseParams
	var debugEnabled bool
	var receivedArgs []string

	command := &Command{
		Name:   "prepare",
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			debugEnabled = logger.Enabled(context.Background(), slog.LevelDebug)
			receivedArgs = args
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"-v", "--out", "x.slug", "extra"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !params.Verbose || params.Output != "x.slug" {
		t.Errorf("params = %+v", params)
	}
	if !debugEnabled {
		t.Error("--verbose did not enable debug logging")
	}
	if len(receivedArgs) != 1 || receivedArgs[0] != "extra" {
		t.Errorf("args = %v, want [extra]", receivedArgs)
	}
}

func TestCommand_Execute_FlagParsing(t *testing.T) {
	var apiURL string
	var target string

	command := &Command{
		Name: "publish",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("publish", pflag.ContinueOnError)
			flagSet.StringVar(&apiURL, "api", "https://default.example/", "API URL")
			return flagSet
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				target = args[0]
			}
			return nil
		},
	}

	if err := command.Execute(context.Background(), []string{"--api", "https://custom.example/", "site.slug"}); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if apiURL != "https://custom.example/" {
		t.Errorf("apiURL = %q", apiURL)
	}
	if target != "site.slug" {
		t.Errorf("target = %q, want %q", target, "site.slug")
	}
}

func TestCommand_Execute_UnknownFlagSuggestion(t *testing.T) {
	command := &Command{
		Name: "status",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flagSet.Bool("published", false, "compare against published")
			flagSet.Bool("offline", false, "use the cache")
			return flagSet
		},
		Run: noop,
	}

	err := command.Execute(context.Background(), []string{"--publshed"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	errStr := err.Error()
	if !strings.Contains(errStr, "did you mean --published") {
		t.Errorf("error = %q, want suggestion for '--published'", errStr)
	}
	if !strings.Contains(errStr, "publshed") {
		t.Errorf("error = %q, should mention the bad flag", errStr)
	}
	if !strings.Contains(errStr, "--help") {
		t.Errorf("error = %q, should point to --help", errStr)
	}
	if CategoryOf(err) != CategoryValidation {
		t.Errorf("category = %q, want validation", CategoryOf(err))
	}
}

func TestCommand_Execute_UnknownFlagNoSuggestion(t *testing.T) {
	command := &Command{
		Name: "status",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("status", pflag.ContinueOnError)
			flagSet.Bool("offline", false, "use the cache")
			return flagSet
		},
		Run: noop,
	}

	err := command.Execute(context.Background(), []string{"--zzzzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown flag")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not suggest for distant flag", err.Error())
	}
	if !strings.Contains(err.Error(), "--help") {
		t.Errorf("error = %q, should point to --help", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandSuggestion(t *testing.T) {
	root := &Command{
		Name: "ethers-build",
		Subcommands: []*Command{
			{Name: "prepare"},
			{Name: "publish"},
			{Name: "version"},
		},
	}

	err := root.Execute(context.Background(), []string{"pubish"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if !strings.Contains(err.Error(), "did you mean \"publish\"") {
		t.Errorf("error = %q, want suggestion for 'publish'", err.Error())
	}
}

func TestCommand_Execute_UnknownSubcommandNoSuggestion(t *testing.T) {
	root := &Command{
		Name: "ethers-build",
		Subcommands: []*Command{
			{Name: "prepare"},
			{Name: "publish"},
		},
	}

	err := root.Execute(context.Background(), []string{"zzzzzzz"})
	if err == nil {
		t.Fatal("Execute() = nil, want error for unknown subcommand")
	}
	if strings.Contains(err.Error(), "did you mean") {
		t.Errorf("error = %q, should not contain suggestion for distant input", err.Error())
	}
}

func TestCommand_Execute_HelpFlag(t *testing.T) {
	for _, helpArg := range []string{"-h", "--help", "help"} {
		t.Run(helpArg, func(t *testing.T) {
			root := &Command{
				Name:    "ethers-build",
				Summary: "Build and publish slugs",
				Subcommands: []*Command{
					{Name: "status", Summary: "Compare versions"},
				},
			}

			if err := root.Execute(context.Background(), []string{helpArg}); err != nil {
				t.Errorf("Execute(%q) error: %v", helpArg, err)
			}
		})
	}
}

func TestCommand_Execute_HelpGoesToInheritedStderr(t *testing.T) {
	var stderr bytes.Buffer
	root := &Command{
		Name:   "ethers-build",
		Stderr: &stderr,
		Subcommands: []*Command{
			{Name: "verify", Summary: "Verify a slug", Usage: "ethers-build verify SLUG [flags]", Run: noop},
		},
	}
	if err := root.Execute(context.Background(), []string{"verify", "--help"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.Contains(stderr.String(), "ethers-build verify SLUG") {
		t.Errorf("subcommand help not written to the root's Stderr:\n%s", stderr.String())
	}
}

func TestCommand_Execute_LoggerWritesToStderr(t *testing.T) {
	var stderr bytes.Buffer
	root := &Command{
		Name:   "ethers-build",
		Stderr: &stderr,
		Subcommands: []*Command{
			{
				Name: "publish",
				Run: func(_ context.Context, _ []string, logger *slog.Logger) error {
					logger.Info("slug published")
					return nil
				},
			},
		},
	}
	if err := root.Execute(context.Background(), []string{"publish"}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	output := stderr.String()
	if !strings.Contains(output, `"msg":"slug published"`) || !strings.Contains(output, `"command":"publish"`) {
		t.Errorf("log output = %q, want a JSON record scoped to the command", output)
	}
}

func TestCommand_Execute_NoArgsShowsHelp(t *testing.T) {
	root := &Command{
		Name: "ethers-build",
		Subcommands: []*Command{
			{Name: "status", Summary: "Compare versions"},
		},
	}

	err := root.Execute(context.Background(), []string{})
	if err == nil {
		t.Fatal("Execute() = nil, want error for missing subcommand")
	}
	if !strings.Contains(err.Error(), "subcommand required") {
		t.Errorf("error = %q, want 'subcommand required'", err.Error())
	}
}

func TestCommand_Execute_RunErrorPassesThrough(t *testing.T) {
	sentinel := errors.New("boom")
	command := &Command{
		Name: "cat",
		Run: func(context.Context, []string, *slog.Logger) error {
			return sentinel
		},
	}
	if err := command.Execute(context.Background(), nil); !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want sentinel", err)
	}
}

func TestCommand_PrintHelp(t *testing.T) {
	command := &Command{
		Name:        "ethers-build",
		Description: "Build, sign, and publish slugs.",
		Subcommands: []*Command{
			{Name: "prepare", Summary: "Generate a slug from git"},
			{Name: "publish", Summary: "Publish a slug"},
			{Name: "version", Summary: "Print version information"},
		},
		Examples: []Example{
			{
				Description: "Prepare a signed slug",
				Command:     "ethers-build prepare --signed",
			},
			{
				Description: "Compare HEAD with the working tree",
				Command:     "ethers-build status --head",
			},
		},
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"Build, sign, and publish slugs.",
		"Usage:",
		"ethers-build <command> [flags]",
		"Commands:",
		"prepare",
		"Generate a slug from git",
		"publish",
		"Examples:",
		"ethers-build prepare --signed",
		"ethers-build status --head",
		"Run 'ethers-build <command> --help'",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_PrintHelp_WithParams(t *testing.T) {
	var params verboseParams
	command := &Command{
		Name:    "prepare",
		Summary: "Generate a slug",
		Usage:   "ethers-build prepare [flags]",
		Params:  func() any { return &params },
	}

	var buffer bytes.Buffer
	command.PrintHelp(&buffer)
	output := buffer.String()

	for _, want := range []string{
		"ethers-build prepare [flags]",
		"Flags:",
		"--out",
		"--verbose",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q\n\nFull output:\n%s", want, output)
		}
	}
}

func TestCommand_FullName(t *testing.T) {
	root := &Command{Name: "ethers-build"}
	status := &Command{Name: "status", parent: root}
	nested := &Command{Name: "cache", parent: status}

	if got := root.fullName(); got != "ethers-build" {
		t.Errorf("root.fullName() = %q", got)
	}
	if got := status.fullName(); got != "ethers-build status" {
		t.Errorf("status.fullName() = %q", got)
	}
	if got := nested.fullName(); got != "ethers-build status cache" {
		t.Errorf("nested.fullName() = %q", got)
	}
	if got := nested.commandPath(); got != "status/cache" {
		t.Errorf("nested.commandPath() = %q", got)
	}
}
