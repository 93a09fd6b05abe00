package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"selfpaced/backend/progress"
)

// withSession loads settings, opens a session for the command and closes it
// (joining in-flight pushes) when fn returns.
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	settings, err := LoadSettings()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(ctx, settings)
	if err != nil {
		return err
	}
	runErr := fn(ctx, s)
	if err := s.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// syncOrWarn bootstraps and reports failures without aborting: local state
// stays usable whatever the server does.
func syncOrWarn(ctx context.Context, cmd *cobra.Command, s *session) {
	if err := s.bootstrap(ctx); err != nil {
		warn(cmd.ErrOrStderr(), "%v (working with local progress)", err)
	}
}

// LoginCmd returns the login command
func LoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and save the token",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := LoadSettings()
			if err != nil {
				return err
			}

			var opts []progress.ClientOption
			if httpClient != nil {
				opts = append(opts, progress.WithHTTPClient(httpClient))
			}
			client := progress.NewRemoteClient(settings.ServerURL, opts...)

			token, err := client.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			path, err := SaveToken(token)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (token saved to %s)\n", progress.NormalizeEmail(email), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&password, "password", "", "Account password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

// WhoamiCmd returns the whoami command
func WhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the identity progress is synced under",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				email, err := s.email()
				if err != nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Not signed in: progress is kept on this device only")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), email)
				return nil
			})
		},
	}
}

// SyncCmd returns the sync command
func SyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Merge local progress with the server",
		Long: `Merge this device's completion map with the one stored on the server.

Completions are never lost: the result is the union of both sides. When this
device knows completions the server lacks, they are pushed back.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if _, err := s.email(); err != nil {
					return fmt.Errorf("%w: run `progressctl login` first", err)
				}
				if err := s.bootstrap(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d completed (%s)\n", s.facade.CompletedCount(), statusLabel(s.facade.SyncStatus()))
				return nil
			})
		},
	}
}

// ToggleCmd returns the toggle command
func ToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <key>",
		Short: "Mark a unit done, or undo it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				syncOrWarn(ctx, cmd, s)

				key := args[0]
				m := s.facade.Toggle(ctx, key)
				s.engine.Wait()

				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", checkMark(m.Done(key)), key)
				fmt.Fprintf(cmd.OutOrStdout(), "%d%% complete (%s)\n", s.facade.Percentage(), statusLabel(s.facade.SyncStatus()))
				return nil
			})
		},
	}
}

// ListCmd returns the list command
func ListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List units and whether they are done",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				syncOrWarn(ctx, cmd, s)

				m := s.facade.CompletionMap()
				keys := s.facade.Units()
				if len(keys) == 0 {
					keys = m.CompletedKeys()
					sort.Strings(keys)
				}

				out := cmd.OutOrStdout()
				for _, k := range keys {
					fmt.Fprintf(out, "  %s %s\n", checkMark(m.Done(k)), k)
				}
				fmt.Fprintln(out)
				if len(s.facade.Units()) > 0 {
					fmt.Fprintf(out, "%d/%d done, %d%% (%s)\n", s.facade.CompletedCount(), len(keys), s.facade.Percentage(), statusLabel(s.facade.SyncStatus()))
				} else {
					fmt.Fprintf(out, "%d done (%s)\n", s.facade.CompletedCount(), statusLabel(s.facade.SyncStatus()))
				}
				return nil
			})
		},
	}
}

// UnlockCmd returns the unlock command
func UnlockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unlock",
		Short: "Show which modules are open",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				email, err := s.email()
				if err != nil {
					return fmt.Errorf("%w: run `progressctl login` first", err)
				}
				schedule, err := s.client.UnlockStatus(ctx, email)
				if err != nil {
					return err
				}
				printSchedule(cmd, schedule)
				return nil
			})
		},
	}
}

func printSchedule(cmd *cobra.Command, schedule map[int]progress.ModuleUnlockStatus) {
	modules := make([]int, 0, len(schedule))
	for m := range schedule {
		modules = append(modules, m)
	}
	sort.Ints(modules)

	out := cmd.OutOrStdout()
	for _, m := range modules {
		st := schedule[m]
		if st.Unlocked {
			fmt.Fprintf(out, "  Module %d  %s\n", m, green.Sprint("open"))
			continue
		}
		fmt.Fprintf(out, "  Module %d  %s  opens %s (%d days)\n",
			m, faint.Sprint("locked"), st.AvailableDate.Local().Format("2006-01-02"), st.DaysRemaining)
	}
}

// AssessCmd returns the assess command
func AssessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assess <track> [antes|despues <scores...>]",
		Short: "Record or show a self-assessment",
		Long: fmt.Sprintf(`Record a self-assessment of %d scores (%d..%d) for a track, or show the
track's results when only the track is given.

Tracks: %s. A "despues" assessment needs an "antes" one first.`,
			progress.AssessmentCategories, progress.MinScore, progress.MaxScore, strings.Join(progress.Tracks, ", ")),
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				track := args[0]
				if !progress.ValidTrack(track) {
					return fmt.Errorf("%w: %q", progress.ErrUnknownTrack, track)
				}
				if len(args) == 1 {
					printAssessment(cmd, track, s.facade.Assessments()[track])
					return nil
				}

				phase, err := progress.ParsePhase(args[1])
				if err != nil {
					return err
				}
				scores, err := parseScores(args[2:])
				if err != nil {
					return err
				}

				result, err := s.facade.RecordAssessment(track, phase, scores)
				if errors.Is(err, progress.ErrBeforeRequired) {
					return fmt.Errorf("%w: record `%s antes` first", err, track)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved %s/%s at %s\n", track, phase, result.SavedAt.Local().Format("2006-01-02 15:04"))
				return nil
			})
		},
	}
}

func parseScores(args []string) ([]int, error) {
	scores := make([]int, 0, len(args))
	for _, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", progress.ErrInvalidScores, a)
		}
		scores = append(scores, n)
	}
	return scores, nil
}

func printAssessment(cmd *cobra.Command, track string, pair progress.AssessmentPair) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Track %s\n", track)
	for _, phase := range []progress.Phase{progress.PhaseAntes, progress.PhaseDespues} {
		r := pair.Get(phase)
		if r == nil {
			fmt.Fprintf(out, "  %-8s %s\n", phase, faint.Sprint("not recorded"))
			continue
		}
		fmt.Fprintf(out, "  %-8s %v  (%s)\n", phase, r.Scores, r.SavedAt.Local().Format("2006-01-02"))
	}
}

// AdminCmd returns the admin command
func AdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Administrator tools (admin token required)",
	}
	cmd.AddCommand(overrideCmd("unlock", true))
	cmd.AddCommand(overrideCmd("lock", false))
	return cmd
}

func overrideCmd(use string, unlock bool) *cobra.Command {
	var email string
	var module int

	short := "Open a module for a user ahead of schedule"
	if !unlock {
		short = "Remove a manual unlock so the module follows its schedule"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if module < 0 {
				return fmt.Errorf("module must be >= 0, got %d", module)
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if err := s.client.SetOverride(ctx, email, module, unlock); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Module %d %sed for %s\n", module, use, progress.NormalizeEmail(email))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "User email")
	cmd.Flags().IntVar(&module, "module", -1, "Module number")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("module")

	return cmd
}
