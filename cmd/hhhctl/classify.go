package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/app"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

var (
	classifyForce    bool
	markNotes        string
	propagateForce   bool
	previewTitle     string
	previewDesc      string
	previewSemantics bool
)

var classifyCmd = &cobra.Command{
	Use:   "classify <target>",
	Short: "Classify a video or playlist through the tier hierarchy",
	Long: `Run the semantic and keyword tiers on a target and store the winner.

Human-validated rows are never overwritten. Without --force a weaker
result never replaces a stronger stored one.

Example:
  hhhctl classify video:42
  hhhctl classify playlist:7 --force`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := model.ParseTarget(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			a.LoadSemantic(ctx)
			res, err := a.Resolver.ClassifyWithHierarchy(ctx, t, classifyForce)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <target>",
	Short: "Show the stored classification of a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := model.ParseTarget(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Resolver.Get(ctx, t)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res)
		})
	},
}

var markCmd = &cobra.Command{
	Use:   "mark <target> <hero|hub|help>",
	Short: "Record a human classification",
	Long: `Record a human decision. It outranks every automatic tier and is
logged as feedback. Marking a playlist links its videos from YouTube when
it has none and propagates the label with human authority.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := model.ParseTarget(args[0])
		if err != nil {
			return err
		}
		cat, err := model.ParseCategory(args[1])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Resolver.MarkHuman(ctx, t, cat, markNotes)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res)
		})
	},
}

var propagateCmd = &cobra.Command{
	Use:   "propagate <playlist-id>",
	Short: "Push a playlist's category onto its videos",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid playlist id %q", args[0])
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Propagation.Propagate(ctx, id, propagateForce)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res)
		})
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Show what the automatic tiers decide for a text, without storing it",
	Example: `  hhhctl preview --title "How to book a cottage"
  hhhctl preview --title "Découvrez notre nouveau resort" --semantic`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if previewTitle == "" && previewDesc == "" {
			return fmt.Errorf("--title or --description is required")
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if previewSemantics {
				a.LoadSemantic(ctx)
			}
			return render(cmd.OutOrStdout(), a.Resolver.Preview(ctx, previewTitle, previewDesc))
		})
	},
}

func init() {
	classifyCmd.Flags().BoolVar(&classifyForce, "force", false, "Allow replacing a stronger automatic result")
	markCmd.Flags().StringVar(&markNotes, "notes", "", "Free-form notes stored with the feedback row")
	propagateCmd.Flags().BoolVar(&propagateForce, "force-human", false, "Apply a human playlist label over weaker video labels")
	previewCmd.Flags().StringVar(&previewTitle, "title", "", "Title to classify")
	previewCmd.Flags().StringVar(&previewDesc, "description", "", "Description to classify")
	previewCmd.Flags().BoolVar(&previewSemantics, "semantic", false, "Load semantic prototypes first (calls the embedding backend)")

	rootCmd.AddCommand(classifyCmd, getCmd, markCmd, propagateCmd, previewCmd)
}
