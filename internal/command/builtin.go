package command

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/askidmobile/clipstty/internal/search"
	"github.com/askidmobile/clipstty/internal/session"
	"github.com/askidmobile/clipstty/internal/sysctx"
	"github.com/askidmobile/clipstty/internal/vad"
)

// Deps bundles the collaborators builtin commands close over. Not every
// command needs every field; Sessions and Search may be nil when the
// caller wires a reduced command set (e.g. a test harness).
type Deps struct {
	Sessions *session.Manager
	Search   *search.Index
	Segmenter *vad.Segmenter
}

const sensitivityStep = 0.05

// PushToTalkSessionKey is the session_data key the push-to-talk commands
// set; the pipeline driver reads it every tick and ORs it into the
// segmenter's gate alongside the quiet-period windows (§4.2, §4.3). A
// true hardware push-to-talk key is out of scope (§1) — these commands
// expose the same gate as a voice-driven control surface instead.
const PushToTalkSessionKey = "push_to_talk_engaged"

// RegisterBuiltins registers the built-in commands of every voice-command
// category of §3 against e, closing over deps for the ones that need
// collaborators beyond SystemContext.
func RegisterBuiltins(e *Engine, deps Deps) {
	registerAudioCommands(e, deps)
	registerSTTCommands(e)
	registerSystemCommands(e)
	registerFileManagementCommands(e, deps)
	registerToolsCommands(e, deps)
	registerNavigationCommands(e)
	registerHelpCommands(e)
	registerRecordingCommands(e, deps)
	registerTranscriptionCommands(e)
	registerParametersCommands(e)
}

func registerAudioCommands(e *Engine, deps Deps) {
	e.Register(&Command{
		Name:     "pause_listening",
		Category: CategoryAudio,
		Help:     "Pauses voice activity detection without ending the process.",
		Examples: []string{"pause listening", "stop listening to me"},
		Patterns: []Pattern{
			{Kind: PatternExact, Text: "pause listening", Priority: 10},
			{Kind: PatternContains, Text: "stop listening", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			sc.SetVADEnabled(false)
			return Result{Message: "Listening paused."}, nil
		},
	})

	e.Register(&Command{
		Name:     "resume_listening",
		Category: CategoryAudio,
		Help:     "Resumes voice activity detection.",
		Examples: []string{"resume listening", "start listening again"},
		Patterns: []Pattern{
			{Kind: PatternExact, Text: "resume listening", Priority: 10},
			{Kind: PatternContains, Text: "start listening", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			sc.SetVADEnabled(true)
			return Result{Message: "Listening resumed."}, nil
		},
	})

	e.Register(&Command{
		Name:     "increase_sensitivity",
		Category: CategoryAudio,
		Help:     "Raises the VAD energy threshold's sensitivity by 0.05.",
		Examples: []string{"increase sensitivity", "be more sensitive"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "increase sensitivity", Priority: 10},
			{Kind: PatternContains, Text: "more sensitive", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			v := sc.AdjustSensitivity(sensitivityStep)
			if deps.Segmenter != nil {
				// Higher sensitivity means the gate trips on quieter audio,
				// i.e. a *lower* energy_threshold (§4.2's additive delta,
				// applied in the opposite direction of the sensitivity knob).
				deps.Segmenter.AdjustEnergyThreshold(-sensitivityStep)
			}
			return Result{Message: fmt.Sprintf("Sensitivity increased to %.2f.", v)}, nil
		},
	})

	e.Register(&Command{
		Name:     "decrease_sensitivity",
		Category: CategoryAudio,
		Help:     "Lowers the VAD energy threshold's sensitivity by 0.05.",
		Examples: []string{"decrease sensitivity", "be less sensitive"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "decrease sensitivity", Priority: 10},
			{Kind: PatternContains, Text: "less sensitive", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			v := sc.AdjustSensitivity(-sensitivityStep)
			if deps.Segmenter != nil {
				deps.Segmenter.AdjustEnergyThreshold(sensitivityStep)
			}
			return Result{Message: fmt.Sprintf("Sensitivity decreased to %.2f.", v)}, nil
		},
	})

	e.Register(&Command{
		Name:     "engage_push_to_talk",
		Category: CategoryAudio,
		Help:     "Closes the VAD gate, the same gate push-to-talk hardware would drive; while it is closed no new utterance is segmented, spoken commands included.",
		Examples: []string{"engage push to talk", "hold push to talk"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "engage push to talk", Priority: 10},
			{Kind: PatternContains, Text: "hold push to talk", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			sc.SessionDataSet(PushToTalkSessionKey, true)
			return Result{Message: "Push to talk engaged."}, nil
		},
	})

	e.Register(&Command{
		Name:     "release_push_to_talk",
		Category: CategoryAudio,
		Help:     "Reopens the VAD gate closed by engage_push_to_talk.",
		Examples: []string{"release push to talk", "let go of push to talk"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "release push to talk", Priority: 10},
			{Kind: PatternContains, Text: "let go of push to talk", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			sc.SessionDataSet(PushToTalkSessionKey, false)
			return Result{Message: "Push to talk released."}, nil
		},
	})
}

func registerSTTCommands(e *Engine) {
	e.Register(&Command{
		Name:     "enable_instant_output",
		Category: CategorySTT,
		Help:     "Types transcriptions immediately instead of only copying them.",
		Examples: []string{"enable instant output", "type what I say"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "enable instant output", Priority: 10},
			{Kind: PatternContains, Text: "type what i say", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			sc.SetInstantOutput(true)
			return Result{Message: "Instant output enabled."}, nil
		},
	})

	e.Register(&Command{
		Name:     "disable_instant_output",
		Category: CategorySTT,
		Help:     "Reverts to clipboard-only dictation.",
		Examples: []string{"disable instant output", "just copy what I say"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "disable instant output", Priority: 10},
			{Kind: PatternContains, Text: "just copy", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			sc.SetInstantOutput(false)
			return Result{Message: "Instant output disabled."}, nil
		},
	})
}

func registerSystemCommands(e *Engine) {
	e.Register(&Command{
		Name:     "status_report",
		Category: CategorySystem,
		Help:     "Reports the current mode and audio/STT state.",
		Examples: []string{"status report", "what's your status"},
		Patterns: []Pattern{
			{Kind: PatternExact, Text: "status report", Priority: 10},
			{Kind: PatternFuzzy, Text: "what is your status", Threshold: 0.7, Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			s := sc.Snapshot()
			msg := fmt.Sprintf("Mode: %s. VAD enabled: %t. Instant output: %t.", s.Mode, s.Audio.VADEnabled, s.STT.InstantOutput)
			return Result{Message: msg}, nil
		},
	})

	e.Register(&Command{
		Name:     "enter_maintenance_mode",
		Category: CategorySystem,
		Help:     "Switches to maintenance mode, pausing ordinary dictation handling.",
		Examples: []string{"enter maintenance mode"},
		Patterns: []Pattern{
			{Kind: PatternExact, Text: "enter maintenance mode", Priority: 10},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			sc.SetMode(sysctx.ModeMaintenance)
			return Result{Message: "Entering maintenance mode."}, nil
		},
	})
}

func registerFileManagementCommands(e *Engine, deps Deps) {
	e.Register(&Command{
		Name:     "delete_last_transcript",
		Category: CategoryFileManagement,
		Help:     "Removes the most recently stored transcript entry from the search index; the transcript store keeps the entry.",
		Examples: []string{"delete last transcript", "forget what I just said"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "delete last transcript", Priority: 10},
			{Kind: PatternContains, Text: "forget what i just said", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			id, ok := sc.SessionDataGet("last_transcript_id")
			if !ok {
				return Result{Message: "No transcript to delete."}, nil
			}
			idStr, _ := id.(string)
			if idStr == "" {
				return Result{Message: "No transcript to delete."}, nil
			}
			if deps.Search != nil {
				deps.Search.Remove(idStr)
			}
			return Result{Message: "Last transcript deleted."}, nil
		},
	})
}

func registerToolsCommands(e *Engine, deps Deps) {
	e.Register(&Command{
		Name:     "search_transcripts",
		Category: CategoryTools,
		Help:     "Searches stored transcripts for a term; say \"search transcripts for <term>\".",
		Examples: []string{"search transcripts for the budget meeting"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "search transcripts for", Priority: 10},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			if deps.Search == nil {
				return Result{Message: "Search is unavailable."}, nil
			}
			const marker = "search transcripts for"
			idx := strings.Index(strings.ToLower(input), marker)
			term := strings.TrimSpace(input[idx+len(marker):])
			if term == "" {
				return Result{Message: "Say what to search for."}, nil
			}
			results := deps.Search.FullText(term, search.Filters{}, search.SortRelevance)
			return Result{
				Message: fmt.Sprintf("Found %d matching transcript(s) for %q.", len(results), term),
				Data:    map[string]any{"query": term, "count": len(results)},
			}, nil
		},
	})
}

func registerNavigationCommands(e *Engine) {
	modeCommand := func(name, phrase string, mode sysctx.Mode) *Command {
		return &Command{
			Name:     name,
			Category: CategoryNavigation,
			Help:     fmt.Sprintf("Switches to %s mode.", mode),
			Examples: []string{phrase},
			Patterns: []Pattern{{Kind: PatternExact, Text: phrase, Priority: 10}},
			Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
				sc.SetMode(mode)
				return Result{Message: fmt.Sprintf("Switched to %s mode.", mode)}, nil
			},
		}
	}
	e.Register(modeCommand("switch_to_normal_mode", "switch to normal mode", sysctx.ModeNormal))
	e.Register(modeCommand("switch_to_narration_mode", "switch to narration mode", sysctx.ModeNarration))
	e.Register(modeCommand("switch_to_configuration_mode", "switch to configuration mode", sysctx.ModeConfiguration))
	e.Register(modeCommand("switch_to_help_mode", "switch to help mode", sysctx.ModeHelp))
}

func registerHelpCommands(e *Engine) {
	e.Register(&Command{
		Name:     "list_commands",
		Category: CategoryHelp,
		Help:     "Lists every registered voice command's name.",
		Examples: []string{"list commands", "what can you do"},
		Patterns: []Pattern{
			{Kind: PatternExact, Text: "list commands", Priority: 10},
			{Kind: PatternFuzzy, Text: "what can you do", Threshold: 0.7, Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			names := make([]string, 0, len(e.commands))
			for name := range e.commands {
				names = append(names, name)
			}
			return Result{Message: fmt.Sprintf("%d commands registered.", len(names)), Data: map[string]any{"commands": names}}, nil
		},
	})
}

func registerRecordingCommands(e *Engine, deps Deps) {
	e.Register(&Command{
		Name:     "start_recording",
		Category: CategoryRecording,
		Help:     "Starts a new recording session from the microphone.",
		Examples: []string{"start recording", "begin recording session"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "start recording", Priority: 10},
			{Kind: PatternContains, Text: "begin recording", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			if deps.Sessions == nil {
				return Result{Message: "Recording is unavailable."}, nil
			}
			meta, err := deps.Sessions.Start("", "", session.SourceMicrophone, nil)
			if err != nil {
				return Result{Message: "Could not start recording: " + err.Error()}, err
			}
			return Result{Message: "Recording started.", Data: map[string]any{"session_id": meta.ID}}, nil
		},
	})

	e.Register(&Command{
		Name:     "pause_recording",
		Category: CategoryRecording,
		Help:     "Pauses the active recording session.",
		Examples: []string{"pause recording"},
		Patterns: []Pattern{{Kind: PatternExact, Text: "pause recording", Priority: 10}},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			if deps.Sessions == nil {
				return Result{Message: "Recording is unavailable."}, nil
			}
			if err := deps.Sessions.Pause(); err != nil {
				return Result{Message: "Could not pause recording: " + err.Error()}, err
			}
			return Result{Message: "Recording paused."}, nil
		},
	})

	e.Register(&Command{
		Name:     "resume_recording",
		Category: CategoryRecording,
		Help:     "Resumes a paused recording session.",
		Examples: []string{"resume recording"},
		Patterns: []Pattern{{Kind: PatternExact, Text: "resume recording", Priority: 10}},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			if deps.Sessions == nil {
				return Result{Message: "Recording is unavailable."}, nil
			}
			if err := deps.Sessions.Resume(); err != nil {
				return Result{Message: "Could not resume recording: " + err.Error()}, err
			}
			return Result{Message: "Recording resumed."}, nil
		},
	})

	e.Register(&Command{
		Name:     "stop_recording",
		Category: CategoryRecording,
		Help:     "Stops the active recording session and persists it.",
		Examples: []string{"stop recording", "end recording session"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "stop recording", Priority: 10},
			{Kind: PatternContains, Text: "end recording", Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			if deps.Sessions == nil {
				return Result{Message: "Recording is unavailable."}, nil
			}
			meta, err := deps.Sessions.Stop()
			if err != nil {
				return Result{Message: "Could not stop recording: " + err.Error()}, err
			}
			return Result{Message: fmt.Sprintf("Recording stopped (%s).", meta.FilePath)}, nil
		},
	})
}

func registerTranscriptionCommands(e *Engine) {
	e.Register(&Command{
		Name:     "repeat_last_transcription",
		Category: CategoryTranscription,
		Help:     "Speaks back the most recent transcription.",
		Examples: []string{"repeat that", "what did I just say"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "repeat that", Priority: 10},
			{Kind: PatternFuzzy, Text: "what did i just say", Threshold: 0.7, Priority: 5},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			s := sc.Snapshot()
			if s.STT.LastTranscription == "" {
				return Result{Message: "Nothing to repeat yet.", Spoke: true}, nil
			}
			return Result{Message: s.STT.LastTranscription, Spoke: true}, nil
		},
	})
}

func registerParametersCommands(e *Engine) {
	e.Register(&Command{
		Name:     "set_confidence_threshold",
		Category: CategoryParameters,
		Help:     "Sets the STT confidence threshold; say \"set confidence threshold to 0.6\".",
		Examples: []string{"set confidence threshold to 0.6"},
		Patterns: []Pattern{
			{Kind: PatternContains, Text: "set confidence threshold to", Priority: 10},
		},
		Handle: func(ctx context.Context, sc *sysctx.Context, input string) (Result, error) {
			const marker = "set confidence threshold to"
			idx := strings.Index(strings.ToLower(input), marker)
			raw := strings.TrimSpace(input[idx+len(marker):])
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Result{Message: "Could not parse a confidence value."}, err
			}
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			sc.SessionDataSet("stt_confidence_threshold", v)
			return Result{Message: fmt.Sprintf("Confidence threshold set to %.2f.", v)}, nil
		},
	})
}
