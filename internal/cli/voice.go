package cli

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sadopc/hundred/internal/secrets"
	"github.com/sadopc/hundred/internal/voice"
)

func newTranscribeCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <clip.wav>",
		Short: "Send a WAV clip to Whisper and count trigger phrases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := secrets.ResolveOpenAIKey(app.cfg.OpenAIAPIKey, app.keyring)
			w, err := voice.NewWhisper(voice.WhisperConfig{
				APIKey:  key,
				BaseURL: app.cfg.OpenAIBaseURL,
				Model:   app.cfg.WhisperModel,
				Timeout: app.cfg.TranscribeTimeout,
			})
			if errors.Is(err, voice.ErrNoAPIKey) {
				return errors.New("no OpenAI API key: run `hundred key set` or set OPENAI_API_KEY")
			}
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open clip: %w", err)
			}
			defer f.Close()

			if err := app.open(); err != nil {
				return err
			}
			defer app.close()

			settings, err := app.tracker.Settings()
			if err != nil {
				return err
			}
			sess := voice.NewSession(app.tracker, app.store, voice.NewMatcher(nil), app.log)
			out, err := sess.HandleClip(cmd.Context(), w, args[0], f, settings.AudioSensitivity)
			if errors.Is(err, voice.ErrSilent) {
				return fmt.Errorf("clip is below the level for sensitivity %d", settings.AudioSensitivity)
			}
			if err != nil {
				return err
			}
			writeOutcome(cmd, out)
			return nil
		},
	}
}

func newListenCmd(app *App) *cobra.Command {
	var command string
	var maxRestarts int
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Count from a streaming recognizer until interrupted",
		Long: strings.TrimSpace(`
Runs a recognizer command that prints one transcript per line on stdout.
Lines starting with "~" are partial results and are only displayed.
The command is restarted whenever it exits. With --cmd - transcripts are
read from stdin until it closes.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if command == "" {
				command = app.cfg.RecognizerCmd
			}
			if strings.TrimSpace(command) == "" {
				return errors.New("no recognizer: pass --cmd or set HUNDRED_RECOGNIZER_CMD")
			}
			if err := app.open(); err != nil {
				return err
			}
			defer app.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sess := voice.NewSession(app.tracker, app.store, voice.NewMatcher(nil), app.log)
			src := voice.CommandSource(command)
			if command == "-" {
				src = voice.ReaderSource(cmd.InOrStdin())
			}
			l := voice.NewListener(src, app.cfg.RestartDelay)
			l.MaxRestarts = maxRestarts
			l.Logger = app.log
			l.OnState = func(st voice.State, reason string) {
				sess.SetState(st, reason)
				if st == voice.StateRestarting {
					fmt.Fprintf(cmd.ErrOrStderr(), "recognizer stopped (%s), restarting\n", reason)
				}
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "listening (session %s), ctrl-c to stop\n", sess.Status().ID)
			err := l.Run(ctx, func(t voice.Transcript) {
				out, err := sess.Handle(ctx, t, voice.SourceStream)
				if err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "error: %v\n", err)
					return
				}
				if t.Final {
					writeOutcome(cmd, out)
				}
			})
			st := sess.Status()
			fmt.Fprintf(cmd.ErrOrStderr(), "counted %d, restarts %d\n", st.Increments, st.Restarts)
			return err
		},
	}
	cmd.Flags().StringVar(&command, "cmd", "", "Recognizer command, or - for stdin (default: $HUNDRED_RECOGNIZER_CMD)")
	cmd.Flags().IntVar(&maxRestarts, "max-restarts", 0, "Give up after this many restarts (0 = never)")
	return cmd
}

func writeOutcome(cmd *cobra.Command, out voice.Outcome) {
	w := cmd.OutOrStdout()
	switch {
	case len(out.Applied) > 0:
		last := out.Applied[len(out.Applied)-1]
		fmt.Fprintf(w, "%q: +%d, day %d at %d\n", out.Transcript.Text, len(out.Applied), out.Day, last.Day.Count())
	case out.Matches > 0:
		fmt.Fprintf(w, "%q: day %d is already complete\n", out.Transcript.Text, out.Day)
	default:
		fmt.Fprintf(w, "%q: no trigger phrase\n", out.Transcript.Text)
	}
}
