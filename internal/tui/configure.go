// Package tui is the interactive configuration editor used by
// `greffier configure`.
package tui

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/muesli/termenv"

	"github.com/greffier/greffier/internal/config"
)

// ConfigureResult holds the configuration result from the TUI
type ConfigureResult struct {
	Config    *config.Config
	Cancelled bool
}

// ConfigSection represents a configuration section
type ConfigSection string

const (
	SectionTranscription ConfigSection = "transcription"
	SectionSummary       ConfigSection = "summary"
	SectionDetection     ConfigSection = "detection"
	SectionCapture       ConfigSection = "capture"
	SectionStorage       ConfigSection = "storage"
	SectionNotifications ConfigSection = "notifications"
	SectionSaveExit      ConfigSection = "save_exit"
	SectionDiscardExit   ConfigSection = "discard_exit"
)

// Run starts the menu-based configuration editor.
func Run(cfg *config.Config) (*ConfigureResult, error) {
	for {
		clearScreen()
		fmt.Println(Logo())
		fmt.Println()

		section, err := selectSection(cfg)
		if err != nil {
			return &ConfigureResult{Cancelled: true}, nil
		}

		switch section {
		case SectionSaveExit:
			if err := cfg.Validate(); err != nil {
				fmt.Println(StyleError.Render(fmt.Sprintf("Configuration invalid: %v", err)))
				fmt.Println(StyleMuted.Render("Press enter to continue editing."))
				fmt.Scanln()
				continue
			}
			return &ConfigureResult{Config: cfg, Cancelled: false}, nil

		case SectionDiscardExit:
			return &ConfigureResult{Cancelled: true}, nil

		case SectionTranscription:
			editTranscription(cfg)
		case SectionSummary:
			editSummary(cfg)
		case SectionDetection:
			editDetection(cfg)
		case SectionCapture:
			editCapture(cfg)
		case SectionStorage:
			editStorage(cfg)
		case SectionNotifications:
			editNotifications(cfg)
		}
	}
}

func selectSection(cfg *config.Config) (ConfigSection, error) {
	options := []huh.Option[ConfigSection]{
		huh.NewOption(fmt.Sprintf("Transcription (%s, tier %s)", cfg.Transcription.BridgeURL, cfg.Transcription.Tier), SectionTranscription),
		huh.NewOption(fmt.Sprintf("Summary (%s)", onOff(cfg.Summary.Enabled)), SectionSummary),
		huh.NewOption("Voice Detection", SectionDetection),
		huh.NewOption(fmt.Sprintf("Capture (%d Hz)", cfg.Capture.SampleRate), SectionCapture),
		huh.NewOption(fmt.Sprintf("Storage (%s)", onOff(cfg.Storage.Enabled)), SectionStorage),
		huh.NewOption(fmt.Sprintf("Notifications (%s)", cfg.Notifications.Type), SectionNotifications),
		huh.NewOption("Save & Exit", SectionSaveExit),
		huh.NewOption("Discard & Exit", SectionDiscardExit),
	}

	var selected ConfigSection
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[ConfigSection]().
				Title("Configuration Menu").
				Description("↑/↓ navigate • enter select • esc cancel").
				Options(options...).
				Value(&selected),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return "", err
	}
	return selected, nil
}

func editTranscription(cfg *config.Config) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Bridge URL").
				Description("Transcription bridge endpoint (empty = local only)").
				Value(&cfg.Transcription.BridgeURL),
			huh.NewInput().
				Title("Bridge Token").
				Description("Bearer token (empty = no auth)").
				EchoMode(huh.EchoModePassword).
				Value(&cfg.Transcription.BridgeToken),
			huh.NewSelect[string]().
				Title("Tier").
				Description("standard = local fallback allowed, high = bridge only").
				Options(
					huh.NewOption("Standard", "standard"),
					huh.NewOption("High", "high"),
				).
				Value(&cfg.Transcription.Tier),
			huh.NewInput().
				Title("Model").
				Value(&cfg.Transcription.Model),
			huh.NewInput().
				Title("Language").
				Description("ISO-639-1 code, empty for auto-detect").
				Value(&cfg.Transcription.Language),
			huh.NewInput().
				Title("Local Model Path").
				Description("whisper-cli model file for the fallback (empty = disabled)").
				Value(&cfg.Transcription.LocalModel),
		),
	).WithTheme(getTheme())
	_ = form.Run()
}

func editSummary(cfg *config.Config) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable Summarization").
				Value(&cfg.Summary.Enabled),
			huh.NewInput().
				Title("LLM Bridge URL").
				Description("OpenAI-compatible endpoint").
				Value(&cfg.Summary.BridgeURL),
			huh.NewInput().
				Title("Model").
				Value(&cfg.Summary.Model),
			huh.NewSelect[string]().
				Title("Prompt Template").
				Options(
					huh.NewOption("Session notes", "session-notes"),
					huh.NewOption("Brief", "brief"),
				).
				Value(&cfg.Summary.Template),
		),
	).WithTheme(getTheme())
	_ = form.Run()
}

func editDetection(cfg *config.Config) {
	threshold := formatFloat(cfg.Detection.MinThreshold)
	ratio := formatFloat(cfg.Detection.ThresholdRatio)
	debounce := cfg.Detection.SilenceDebounce.String()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Energy Floor").
				Description("Minimum RMS energy ever treated as speech").
				Validate(validateFloat).
				Value(&threshold),
			huh.NewInput().
				Title("Threshold Ratio").
				Description("Activation threshold as a fraction of recent average energy (0-1)").
				Validate(validateFloat).
				Value(&ratio),
			huh.NewInput().
				Title("Silence Debounce").
				Description("Silence duration that closes a segment, e.g. 1.5s").
				Validate(validateDuration).
				Value(&debounce),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return
	}
	if v, err := strconv.ParseFloat(threshold, 64); err == nil {
		cfg.Detection.MinThreshold = v
	}
	if v, err := strconv.ParseFloat(ratio, 64); err == nil {
		cfg.Detection.ThresholdRatio = v
	}
	if v, err := time.ParseDuration(debounce); err == nil {
		cfg.Detection.SilenceDebounce = v
	}
}

func editCapture(cfg *config.Config) {
	rate := strconv.Itoa(cfg.Capture.SampleRate)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Sample Rate").
				Options(
					huh.NewOption("48000 Hz", "48000"),
					huh.NewOption("44100 Hz", "44100"),
					huh.NewOption("16000 Hz", "16000"),
				).
				Value(&rate),
			huh.NewInput().
				Title("Device").
				Description("PipeWire device (empty = default microphone)").
				Value(&cfg.Capture.Device),
		),
	).WithTheme(getTheme())

	if err := form.Run(); err != nil {
		return
	}
	if v, err := strconv.Atoi(rate); err == nil {
		cfg.Capture.SampleRate = v
	}
}

func editStorage(cfg *config.Config) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Persist Sessions").
				Description("Store audio segments and transcripts in SQLite").
				Value(&cfg.Storage.Enabled),
			huh.NewInput().
				Title("Database Path").
				Description("Empty = user cache directory").
				Value(&cfg.Storage.Path),
		),
	).WithTheme(getTheme())
	_ = form.Run()
}

func editNotifications(cfg *config.Config) {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable Notifications").
				Value(&cfg.Notifications.Enabled),
			huh.NewSelect[string]().
				Title("Type").
				Options(
					huh.NewOption("Desktop", "desktop"),
					huh.NewOption("Log", "log"),
					huh.NewOption("None", "none"),
				).
				Value(&cfg.Notifications.Type),
		),
	).WithTheme(getTheme())
	_ = form.Run()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func validateFloat(s string) error {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("not a number")
	}
	return nil
}

func validateDuration(s string) error {
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("not a duration (e.g. 1.5s)")
	}
	return nil
}

// clearScreen clears the terminal screen
func clearScreen() {
	output := termenv.NewOutput(os.Stdout)
	output.ClearScreen()
}
