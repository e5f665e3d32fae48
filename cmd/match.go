package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/study-matcher/internal/logger"
	"github.com/spigell/study-matcher/internal/matching"
	"github.com/spigell/study-matcher/internal/ranking"
)

const promptLabelLimit = 72

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank studies for a participant or participants for a study",
}

var matchStudiesCmd = &cobra.Command{
	Use:   "studies",
	Short: "Rank active studies for a participant",
	Run: func(cmd *cobra.Command, _ []string) {
		matchStudies(cmd)
	},
}

var matchParticipantsCmd = &cobra.Command{
	Use:   "participants",
	Short: "Rank participants for a study",
	Run: func(cmd *cobra.Command, _ []string) {
		matchParticipants(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.AddCommand(matchStudiesCmd, matchParticipantsCmd)

	matchStudiesCmd.Flags().StringP("participant", "p", "", "participant id. Asked interactively when unset.")
	matchParticipantsCmd.Flags().StringP("study", "s", "", "study id. Asked interactively when unset.")
}

func matchStudies(cmd *cobra.Command) {
	logger, config := setup()

	id := strings.TrimSpace(cmd.Flag("participant").Value.String())
	err := withSource(context.Background(), config, logger, func(ctx context.Context, src source) error {
		if id == "" {
			var err error
			if id, err = selectParticipant(ctx, src); err != nil {
				return fmt.Errorf("selecting a participant: %w", err)
			}
		}

		result, err := ranking.New(src, matching.NewScorer(logger), logger).MatchStudies(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	})
	if errors.Is(err, matching.ErrNotFound) {
		logger.Fatal("participant not found", zap.String("participant_id", id))
	}
	if err != nil {
		logger.Fatal("ranking studies", zap.Error(err))
	}
}

func matchParticipants(cmd *cobra.Command) {
	logger, config := setup()

	id := strings.TrimSpace(cmd.Flag("study").Value.String())
	err := withSource(context.Background(), config, logger, func(ctx context.Context, src source) error {
		if id == "" {
			var err error
			if id, err = selectStudy(ctx, src); err != nil {
				return fmt.Errorf("selecting a study: %w", err)
			}
		}

		result, err := ranking.New(src, matching.NewScorer(logger), logger).MatchParticipants(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), result)
	})
	if errors.Is(err, matching.ErrNotFound) {
		logger.Fatal("study not found", zap.String("study_id", id))
	}
	if err != nil {
		logger.Fatal("ranking participants", zap.Error(err))
	}
}

func selectParticipant(ctx context.Context, src ranking.Source) (string, error) {
	accounts, err := src.ListParticipants(ctx)
	if err != nil {
		return "", fmt.Errorf("list participants: %w", err)
	}

	items := make([]string, 0, len(accounts))
	for _, a := range accounts {
		items = append(items, promptLabel(a.ID, a.Name, a.Email))
	}
	return choose("Choose a participant and press ENTER", items)
}

func selectStudy(ctx context.Context, src ranking.Source) (string, error) {
	studies, err := src.ListActiveStudies(ctx)
	if err != nil {
		return "", fmt.Errorf("list active studies: %w", err)
	}

	items := make([]string, 0, len(studies))
	for _, s := range studies {
		items = append(items, promptLabel(s.ID, s.Title, s.Institution))
	}
	return choose("Choose a study and press ENTER", items)
}

// promptLabel starts with the id so the choice can be mapped back.
func promptLabel(id, name, detail string) string {
	label := fmt.Sprintf("%s %s / %s", id, name, detail)
	return logger.TruncateForLog(label, promptLabelLimit)
}

func choose(label string, items []string) (string, error) {
	if len(items) == 0 {
		return "", errors.New("nothing to choose from")
	}

	selector := promptui.Select{
		Label: label,
		Items: items,
		Size:  10,
	}

	_, selected, err := selector.Run()
	if err != nil {
		return "", err
	}
	return strings.Split(selected, " ")[0], nil
}

func printJSON(w io.Writer, v any) error {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(pretty))
	return err
}
