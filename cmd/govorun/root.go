package main

import (
	"context"
	"os"

	"github.com/sandevgo/govorun/internal/config"
	"github.com/sandevgo/govorun/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "govorun",
	Short: "Govorun — a Russian-language conversational bot",
	Long:  `Govorun is a conversational bot that keeps per-interlocutor dialogue memory and answers from its fact base.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
