package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/app"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

var (
	reclassifyForce bool
	feedbackType    string
	feedbackNotes   string
	patternLanguage string
	patternDefaults bool
	fixLevel        string
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			if err := a.Migrate(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		})
	},
}

var reclassifyCmd = &cobra.Command{
	Use:   "reclassify <competitor-id|all>",
	Short: "Reclassify every video and playlist of a competitor",
	Long: `Run a bulk reclassification and wait for it to finish. Interrupting
the command cancels the job after the item in progress; batches already
committed stay in place.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		competitorID, err := parseCompetitor(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			a.LoadSemantic(ctx)
			st, err := a.Bulk.Start(competitorID, reclassifyForce)
			if err != nil {
				return err
			}
			st, _ = a.Bulk.Wait(ctx, st.ID)
			if ctx.Err() != nil {
				if _, err := a.Bulk.Cancel(st.ID); err == nil {
					st, _ = a.Bulk.Wait(context.WithoutCancel(ctx), st.ID)
				}
			}
			if err := render(cmd.OutOrStdout(), st); err != nil {
				return err
			}
			if st.State == model.JobFailed {
				return errors.New(st.Error)
			}
			return nil
		})
	},
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback <target> <hero|hub|help>",
	Short: "Submit a correction or validation and learn from it",
	Long: `Record a human decision. A correction also reinforces the phrases of
the target's text as learned patterns and adds the text as a semantic
exemplar.`,
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
			res, err := a.Feedback.SubmitFeedback(ctx, t, cat, model.FeedbackType(feedbackType), feedbackNotes)
			if rerr := render(cmd.OutOrStdout(), res); rerr != nil {
				return rerr
			}
			return err
		})
	},
}

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List and edit keyword patterns",
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored patterns",
	RunE: func(cmd *cobra.Command, args []string) error {
		var lang model.Language
		if patternLanguage != "" {
			l, err := model.ParsePatternLanguage(patternLanguage)
			if err != nil {
				return err
			}
			lang = l
		}
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			list, err := a.Patterns.List(ctx, lang, patternDefaults)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), list)
		})
	},
}

var patternsAddCmd = &cobra.Command{
	Use:   "add <hero|hub|help> <language|all> <phrase...>",
	Short: "Add a custom pattern",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPattern(cmd, args, func(ctx context.Context, a *app.App, c model.Category, text string, l model.Language) (bool, error) {
			return a.Patterns.AddCustom(ctx, c, text, l)
		})
	},
}

var patternsRmCmd = &cobra.Command{
	Use:   "rm <hero|hub|help> <language|all> <phrase...>",
	Short: "Remove a custom or learned pattern",
	Args:  cobra.MinimumNArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPattern(cmd, args, func(ctx context.Context, a *app.App, c model.Category, text string, l model.Language) (bool, error) {
			return a.Patterns.Remove(ctx, c, text, l)
		})
	},
}

var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Verify or repair classification consistency",
}

var integrityCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run every integrity check; exits non-zero when issues are found",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			rep, err := a.Integrity.VerifyIntegrity(ctx)
			if err != nil {
				return err
			}
			if err := render(cmd.OutOrStdout(), rep); err != nil {
				return err
			}
			if !rep.IsHealthy {
				return fmt.Errorf("%d integrity issues found", len(rep.Issues))
			}
			return nil
		})
	},
}

var integrityFixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Repair what can be repaired automatically",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			a.LoadSemantic(ctx)
			res, err := a.Integrity.AutoFix(ctx, model.FixLevel(fixLevel))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), res)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show classification and learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			cs, err := a.Stats.ClassificationStats(ctx)
			if err != nil {
				return err
			}
			ls, err := a.Stats.LearningStats(ctx)
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), map[string]any{
				"classification": cs,
				"learning":       ls,
			})
		})
	},
}

func init() {
	reclassifyCmd.Flags().BoolVar(&reclassifyForce, "force", false, "Allow replacing stronger automatic results")
	feedbackCmd.Flags().StringVar(&feedbackType, "type", string(model.FeedbackCorrection), "Feedback type (correction, validation)")
	feedbackCmd.Flags().StringVar(&feedbackNotes, "notes", "", "Free-form notes")
	patternsListCmd.Flags().StringVar(&patternLanguage, "language", "", "Only patterns for this language (fr, en, de, nl, all)")
	patternsListCmd.Flags().BoolVar(&patternDefaults, "defaults", false, "Include the built-in vocabulary")
	integrityFixCmd.Flags().StringVar(&fixLevel, "level", string(model.FixSafe), "Repair level (safe, full)")

	patternsCmd.AddCommand(patternsListCmd, patternsAddCmd, patternsRmCmd)
	integrityCmd.AddCommand(integrityCheckCmd, integrityFixCmd)
	rootCmd.AddCommand(migrateCmd, reclassifyCmd, feedbackCmd, patternsCmd, integrityCmd, statsCmd)
}

func parseCompetitor(s string) (int64, error) {
	if s == "all" {
		return 0, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid competitor id %q (positive integer or all)", s)
	}
	return id, nil
}

// parsePatternArgs splits "<category> <language> <phrase...>".
func parsePatternArgs(args []string) (model.Category, model.Language, string, error) {
	cat, err := model.ParseCategory(args[0])
	if err != nil {
		return "", "", "", err
	}
	lang, err := model.ParsePatternLanguage(args[1])
	if err != nil {
		return "", "", "", err
	}
	text := model.NormalizePatternText(strings.Join(args[2:], " "))
	if text == "" {
		return "", "", "", fmt.Errorf("%w: pattern text is empty", model.ErrValidation)
	}
	return cat, lang, text, nil
}

func editPattern(cmd *cobra.Command, args []string, edit func(context.Context, *app.App, model.Category, string, model.Language) (bool, error)) error {
	cat, lang, text, err := parsePatternArgs(args)
	if err != nil {
		return err
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		changed, err := edit(ctx, a, cat, text, lang)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), model.PatternResult{
			Success: true,
			Changed: changed,
			Message: fmt.Sprintf("%s %q (%s)", cmd.Name(), text, lang),
			Pattern: model.Pattern{Text: text, Category: cat, Language: lang},
		})
	})
}
