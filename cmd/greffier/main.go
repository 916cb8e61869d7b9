package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/greffier/greffier/internal/bus"
	"github.com/greffier/greffier/internal/config"
	"github.com/greffier/greffier/internal/daemon"
	"github.com/greffier/greffier/internal/llm"
	"github.com/greffier/greffier/internal/notify"
	"github.com/greffier/greffier/internal/pipeline"
	"github.com/greffier/greffier/internal/store"
	"github.com/greffier/greffier/internal/transcriber"
	"github.com/greffier/greffier/internal/tui"
)

func main() {
	_ = rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "greffier",
	Short: "Session audio capture and transcription daemon",
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		startCmd(),
		pauseCmd(),
		resumeCmd(),
		finishCmd(),
		statusCmd(),
		transcriptCmd(),
		summarizeCmd(),
		importCmd(),
		sessionsCmd(),
		configureCmd(),
		stopCmd(),
		versionCmd(),
	)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := config.NewManager()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			d, err := daemon.New(mgr)
			if err != nil {
				return fmt.Errorf("failed to create daemon: %w", err)
			}
			return d.Run()
		},
	}
}

// sendCmd builds a subcommand that forwards one control byte to the daemon.
func sendCmd(use, short string, b byte) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(b)
			if err != nil {
				return fmt.Errorf("failed to reach daemon: %w", err)
			}
			fmt.Print(resp)
			return nil
		},
	}
}

func startCmd() *cobra.Command {
	return sendCmd("start", "Start a recording session", bus.CmdStart)
}

func pauseCmd() *cobra.Command {
	return sendCmd("pause", "Pause the running session", bus.CmdPause)
}

func resumeCmd() *cobra.Command {
	return sendCmd("resume", "Resume a paused session", bus.CmdResume)
}

func finishCmd() *cobra.Command {
	return sendCmd("finish", "Finish the session and flush pending audio", bus.CmdFinish)
}

func statusCmd() *cobra.Command {
	return sendCmd("status", "Get current session status", bus.CmdStatus)
}

func stopCmd() *cobra.Command {
	return sendCmd("stop", "Stop the daemon", bus.CmdQuit)
}

func versionCmd() *cobra.Command {
	return sendCmd("version", "Get protocol version", bus.CmdProto)
}

func transcriptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "transcript",
		Short: "Print the running transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdTranscript)
			if err != nil {
				return fmt.Errorf("failed to reach daemon: %w", err)
			}
			return printQuotedPayload(resp, "TRANSCRIPT ")
		},
	}
}

func summarizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the transcript accumulated since the last summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := bus.SendCommand(bus.CmdSummarize)
			if err != nil {
				return fmt.Errorf("failed to reach daemon: %w", err)
			}
			return printQuotedPayload(resp, "SUMMARY ")
		},
	}
}

// printQuotedPayload unpacks "PREFIX <go-quoted-string>\n" responses so
// multi-line payloads survive the one-line socket protocol.
func printQuotedPayload(resp, prefix string) error {
	resp = strings.TrimSuffix(resp, "\n")
	if !strings.HasPrefix(resp, prefix) {
		fmt.Println(resp)
		if strings.HasPrefix(resp, "ERR ") {
			return fmt.Errorf("%s", strings.TrimPrefix(resp, "ERR "))
		}
		return nil
	}
	text, err := strconv.Unquote(strings.TrimPrefix(resp, prefix))
	if err != nil {
		return fmt.Errorf("malformed daemon response: %w", err)
	}
	fmt.Println(text)
	return nil
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.wav>",
		Short: "Transcribe an existing WAV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), args[0])
		},
	}
}

func runImport(ctx context.Context, path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	deps := pipeline.Deps{Notifier: notify.Log{}}
	if cfg.Transcription.BridgeURL != "" {
		deps.Bridge = transcriber.NewBridgeAdapter(cfg.ToBridgeConfig())
	}
	if cfg.Transcription.LocalModel != "" {
		deps.Local = transcriber.NewWhisperCppAdapter(
			cfg.Transcription.LocalModel, cfg.Transcription.Language, cfg.Transcription.LocalThreads)
	}
	if cfg.Storage.Enabled {
		dbPath := cfg.Storage.Path
		if dbPath == "" {
			dbPath, err = store.DefaultPath()
			if err != nil {
				return err
			}
		}
		s, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		defer s.Close()
		deps.Sink = s
	}
	if cfg.Summary.Enabled {
		if summarizer, err := llm.NewAdapter(cfg.ToLLMConfig()); err == nil {
			deps.Summarizer = summarizer
		}
	}

	hostname, _ := os.Hostname()
	text, err := pipeline.TranscribeFile(ctx, path, deps, cfg.ToDispatcherConfig("", hostname))
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <session-id>",
		Short: "Print stored transcripts for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(cmd.Context(), args[0])
		},
	}
}

func runSessions(ctx context.Context, sessionID string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	dbPath := cfg.Storage.Path
	if dbPath == "" {
		dbPath, err = store.DefaultPath()
		if err != nil {
			return err
		}
	}
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer s.Close()

	records, err := s.SessionTranscripts(ctx, sessionID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("no transcripts for session", sessionID)
		return nil
	}
	for _, rec := range records {
		fmt.Printf("[%s] %s\n", rec.CreatedAt.Format("15:04:05"), rec.Text)
	}
	return nil
}

func configureCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "configure",
		Short: "Interactive configuration editor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure()
		},
	}
}

func runConfigure() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	result, err := tui.Run(cfg)
	if err != nil {
		return fmt.Errorf("configuration editor error: %w", err)
	}

	if result.Cancelled {
		fmt.Println("Configuration cancelled.")
		return nil
	}

	if err := config.Save(result.Config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	configPath, _ := config.GetConfigPath()
	fmt.Println()
	fmt.Println("Configuration saved successfully!")
	fmt.Printf("Config file location: %s\n", configPath)
	return nil
}
