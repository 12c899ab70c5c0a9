// Package command implements the voice command engine of §4.6: pattern
// registration and priority ordering, three-step resolution (exact walk,
// then fuzzy scoring, then CommandNotFound), timeout-bounded execution
// with a running mean and bounded history, and suggestion scoring. Fuzzy
// similarity uses antzucaro/matchr's Levenshtein distance, the same
// dependency glyphoxa's phonetic matcher (internal/transcript/phonetic)
// wires in for approximate string matching.
package command

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
	"github.com/askidmobile/clipstty/internal/sysctx"
)

// Category enumerates the command categories of §3.
type Category string

const (
	CategoryAudio          Category = "audio"
	CategorySTT            Category = "stt"
	CategorySystem         Category = "system"
	CategoryFileManagement Category = "file_management"
	CategoryTools          Category = "tools"
	CategoryNavigation     Category = "navigation"
	CategoryHelp           Category = "help"
	CategoryRecording      Category = "recording"
	CategoryTranscription  Category = "transcription"
	CategoryParameters     Category = "parameters"
)

// PatternKind distinguishes the four pattern variants of §3.
type PatternKind int

const (
	PatternExact PatternKind = iota
	PatternContains
	PatternRegex
	PatternFuzzy
)

// Pattern is one matchable form of a command invocation.
type Pattern struct {
	Kind      PatternKind
	Text      string // the literal, substring, or fuzzy reference text
	Regex     *regexp.Regexp
	Threshold float64 // for PatternFuzzy
	Priority  int     // default 5; higher wins ties
}

const defaultPriority = 5
const defaultFuzzyThreshold = 0.8
const defaultTimeout = 10 * time.Second

// Result is what a command handler returns: a user-facing message plus
// optional structured data and whether the message is to be spoken via
// TTS (the pipeline driver then speaks it and sets tts_quiet_until, §4.3
// step 1).
type Result struct {
	Message string
	Data    map[string]any
	Spoke   bool
}

// Handler executes a command's side effects against the shared
// SystemContext (§4.6 "Side effects").
type Handler func(ctx context.Context, sysCtx *sysctx.Context, input string) (Result, error)

// Command is one registered VoiceCommand (§3).
type Command struct {
	Name     string
	Category Category
	Help     string
	Examples []string
	Patterns []Pattern
	Validate func(sysCtx *sysctx.Context) error
	Handle   Handler
	Timeout  time.Duration
}

// ExecutedCommand is one entry of the bounded execution history (§3).
type ExecutedCommand struct {
	Name      string
	Category  Category
	Input     string
	Message   string
	Err       error
	Timestamp time.Time
	Duration  time.Duration
}

const historyCapacity = 100

// stats tracks per-command execution counters for the running mean.
type stats struct {
	successCount int
	failureCount int
	totalTime    time.Duration
}

// Engine is the command registry plus execution/history state.
type Engine struct {
	commands       map[string]*Command
	patternIndex   []patternEntry
	fuzzyEnabled   bool
	fuzzyThreshold float64
	caseSensitive  bool

	history []ExecutedCommand
	stats   map[string]*stats
}

type patternEntry struct {
	command *Command
	pattern Pattern
}

// New creates an empty engine. fuzzyEnabled controls resolution step 2;
// fuzzyThreshold overrides the default 0.8 when > 0.
func New(fuzzyEnabled bool, fuzzyThreshold float64) *Engine {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = defaultFuzzyThreshold
	}
	return &Engine{
		commands:       make(map[string]*Command),
		fuzzyEnabled:   fuzzyEnabled,
		fuzzyThreshold: fuzzyThreshold,
		stats:          make(map[string]*stats),
	}
}

// Register adds a command, giving patterns with an unset (zero) priority
// the default and re-sorting the flat pattern index by descending priority.
func (e *Engine) Register(cmd *Command) {
	for i := range cmd.Patterns {
		if cmd.Patterns[i].Priority == 0 {
			cmd.Patterns[i].Priority = defaultPriority
		}
	}
	if cmd.Timeout == 0 {
		cmd.Timeout = defaultTimeout
	}
	e.commands[cmd.Name] = cmd
	e.stats[cmd.Name] = &stats{}

	for _, p := range cmd.Patterns {
		e.patternIndex = append(e.patternIndex, patternEntry{command: cmd, pattern: p})
	}
	sort.SliceStable(e.patternIndex, func(i, j int) bool {
		return e.patternIndex[i].pattern.Priority > e.patternIndex[j].pattern.Priority
	})
}

func (e *Engine) normalize(input string) string {
	if e.caseSensitive {
		return input
	}
	return strings.ToLower(input)
}

// Resolve implements §4.6's three-step resolution algorithm.
func (e *Engine) Resolve(input string) (*Command, error) {
	norm := e.normalize(input)

	for _, entry := range e.patternIndex {
		if matchPattern(entry.pattern, norm) {
			return entry.command, nil
		}
	}

	if e.fuzzyEnabled {
		best, bestScore := (*Command)(nil), 0.0
		for _, entry := range e.patternIndex {
			if entry.pattern.Kind == PatternRegex {
				continue
			}
			score := similarity(entry.pattern.Text, norm)
			if score > bestScore {
				bestScore = score
				best = entry.command
			}
		}
		if best != nil && bestScore >= e.fuzzyThreshold {
			return best, nil
		}
	}

	return nil, clipsttyerr.ErrCommandNotFound
}

func matchPattern(p Pattern, input string) bool {
	switch p.Kind {
	case PatternExact:
		return p.Text == input
	case PatternContains:
		return strings.Contains(input, p.Text)
	case PatternRegex:
		return p.Regex != nil && p.Regex.MatchString(input) && isFullMatch(p.Regex, input)
	case PatternFuzzy:
		return similarity(p.Text, input) >= p.Threshold
	default:
		return false
	}
}

func isFullMatch(re *regexp.Regexp, input string) bool {
	loc := re.FindStringIndex(input)
	return loc != nil && loc[0] == 0 && loc[1] == len(input)
}

// similarity is 1 - distance/max(len), the Levenshtein-derived score of
// §4.6 step 2.
func similarity(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	dist := matchr.Levenshtein(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// Execute runs cmd's handler under a timeout, records an ExecutedCommand,
// and updates the running mean (§4.6 "Execution").
func (e *Engine) Execute(parent context.Context, cmd *Command, sysCtx *sysctx.Context, input string) (Result, error) {
	if cmd.Validate != nil {
		if err := cmd.Validate(sysCtx); err != nil {
			e.record(cmd, input, "", err, 0)
			return Result{}, err
		}
	}

	ctx, cancel := context.WithTimeout(parent, cmd.Timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		res, err := cmd.Handle(ctx, sysCtx, input)
		done <- outcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		elapsed := time.Since(start)
		e.record(cmd, input, o.res.Message, o.err, elapsed)
		return o.res, o.err
	case <-ctx.Done():
		elapsed := time.Since(start)
		e.record(cmd, input, "", clipsttyerr.ErrTimeout, elapsed)
		return Result{}, clipsttyerr.ErrTimeout
	}
}

func (e *Engine) record(cmd *Command, input, message string, err error, elapsed time.Duration) {
	e.history = append(e.history, ExecutedCommand{
		Name:      cmd.Name,
		Category:  cmd.Category,
		Input:     input,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
		Duration:  elapsed,
	})
	if len(e.history) > historyCapacity {
		e.history = e.history[len(e.history)-historyCapacity:]
	}

	st := e.stats[cmd.Name]
	if st == nil {
		st = &stats{}
		e.stats[cmd.Name] = st
	}
	if err != nil {
		st.failureCount++
	} else {
		st.successCount++
	}
	st.totalTime += elapsed
}

// History returns the bounded execution history, oldest first.
func (e *Engine) History() []ExecutedCommand {
	out := make([]ExecutedCommand, len(e.history))
	copy(out, e.history)
	return out
}

// MeanDuration returns the running mean execution time for name.
func (e *Engine) MeanDuration(name string) time.Duration {
	st := e.stats[name]
	if st == nil {
		return 0
	}
	total := st.successCount + st.failureCount
	if total == 0 {
		return 0
	}
	return st.totalTime / time.Duration(total)
}

// Suggestion is one ranked suggestion (§4.6 "Suggestions").
type Suggestion struct {
	Command *Command
	Score   float64
}

// Suggest scores each registered pattern against a partial input and
// returns the top 10 by descending score.
func (e *Engine) Suggest(partial string) []Suggestion {
	norm := e.normalize(partial)
	seen := make(map[string]float64)

	for _, entry := range e.patternIndex {
		var score float64
		switch {
		case strings.HasPrefix(entry.pattern.Text, norm) && norm != "":
			score = 0.9
		case strings.Contains(entry.pattern.Text, norm) && norm != "":
			score = 0.7
		default:
			if s := similarity(entry.pattern.Text, norm); s >= 0.6 {
				score = s * 0.5
			}
		}
		if score <= 0 {
			continue
		}
		if prev, ok := seen[entry.command.Name]; !ok || score > prev {
			seen[entry.command.Name] = score
		}
	}

	suggestions := make([]Suggestion, 0, len(seen))
	for name, score := range seen {
		suggestions = append(suggestions, Suggestion{Command: e.commands[name], Score: score})
	}
	sort.Slice(suggestions, func(i, j int) bool { return suggestions[i].Score > suggestions[j].Score })
	if len(suggestions) > 10 {
		suggestions = suggestions[:10]
	}
	return suggestions
}

// IsDuplicate implements the pipeline driver's 1.5s duplicate-suppression
// window (§4.3, §4.6 "Duplicate suppression").
func IsDuplicate(sysCtx *sysctx.Context, name string, now time.Time, window time.Duration) bool {
	last, ok := sysCtx.LastCommandAt(name)
	if !ok {
		return false
	}
	return now.Sub(last) < window
}
