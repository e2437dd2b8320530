// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage the cached reviewer profiles",
}

var profileBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build (or reuse) the author profile cache",
	Long: `Build reads the raw reviewer database, resolves each publication URL to
title and abstract metadata, generates a research summary per author, and
persists the derived profiles to the cache artifact.

An existing artifact is reused as-is: by default its presence alone gates
the rebuild, and later edits to the raw database are not detected. Pass
--verify-cache to stamp the artifact with a checksum of the raw database
and rebuild when the stamp no longer matches.`,
	RunE: runProfileBuild,
}

func runProfileBuild(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd)

	store, closeStore, err := profileStore(cmd, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	authors, err := store.LoadOrBuild(context.Background())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Profile cache ready: %d authors\n", len(authors))
	return nil
}

func init() {
	profileBuildCmd.Flags().String("data", "data/reviewers.jsonl", "raw reviewer database (JSONL)")
	profileBuildCmd.Flags().String("profile-cache", "log/author_profile.json", "author profile cache artifact")
	profileBuildCmd.Flags().String("pub-cache", "", "SQLite cache for fetched publication metadata (empty = disabled)")
	profileBuildCmd.Flags().Bool("verify-cache", false, "stamp the cache with a raw-database checksum and rebuild on mismatch")
	profileBuildCmd.Flags().String("model", "", "AI model for author summaries")
	profileBuildCmd.Flags().Bool("quiet", false, "suppress progress logging")

	profileCmd.AddCommand(profileBuildCmd)
	rootCmd.AddCommand(profileCmd)
}
