// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
// Package main is the command line front end of the video editor. It runs
// the same edit workflow as the server on a local file.
//
// Usage:
//
//	editor process input.mp4 -o output/enhanced_input.mp4
//	editor plan analysis.json --duration 42.5
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/jaycherian/gcp-go-video-editor/internal/cloud"
	"github.com/jaycherian/gcp-go-video-editor/internal/telemetry"
	"github.com/spf13/cobra"
)

var (
	configDir  string
	runtimeEnv string
	verbose    bool
	config     *cloud.Config
	closeLog   = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "editor",
	Short: "Enhance videos with edits suggested by Gemini",
	Long: `editor asks a Gemini model where a video would benefit from a text
overlay, a visual effect or a scene transition, renders those edits and
stitches the result back together in source order.

Configuration is read from <config-dir>/.env.toml, overridden by
<config-dir>/.env.<runtime>.toml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initConfig()
	},
	PersistentPostRun: func(cmd *cobra.Command, _ []string) {
		_ = closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "configs", "directory holding the .env TOML files")
	rootCmd.PersistentFlags().StringVar(&runtimeEnv, "runtime", "local", "runtime overlay, selects .env.<runtime>.toml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func initConfig() error {
	if err := os.Setenv(cloud.EnvConfigFilePrefix, configDir); err != nil {
		return err
	}
	if err := os.Setenv(cloud.EnvConfigRuntime, runtimeEnv); err != nil {
		return err
	}
	config = cloud.NewConfig()
	if err := cloud.LoadConfig(config); err != nil {
		return err
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	closer, err := telemetry.SetupLogging(telemetry.LogOptions{
		File:    config.Application.LogFile,
		Console: os.Stderr,
		Level:   level,
	})
	if err != nil {
		return err
	}
	closeLog = closer
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
