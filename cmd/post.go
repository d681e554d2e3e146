package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/leaderboard-webhooks/internal/app"
	"github.com/JakeFAU/leaderboard-webhooks/internal/webhook"
)

func newPostCmd() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Posts the leaderboard once",
		Long: `Fetches, ranks and posts the configured leaderboard, then runs the
certificate trigger. Intended for cron. With --dry-run the messages are
printed as JSON instead of being sent.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPostCommand(cmd, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print messages instead of posting them")
	return cmd
}

func runPostCommand(cmd *cobra.Command, dryRun bool) error {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return err
	}

	var opts []app.Option
	recorder := &webhook.Recorder{}
	if dryRun {
		opts = append(opts, app.WithSink(recorder))
	}
	a, err := newApp(cmd.Context(), rt.cfg, rt.logger, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize application services: %w", err)
	}
	defer a.Close()

	res, err := a.Pipeline.PostLeaderboard(cmd.Context())
	if err != nil {
		return err
	}
	rt.logger.Info("post finished", zap.Int("entries", res.Entries), zap.String("trigger", string(res.Trigger)))

	if !dryRun {
		return nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(recorder.Messages); err != nil {
		return fmt.Errorf("print messages: %w", err)
	}
	return nil
}
