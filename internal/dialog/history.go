package dialog

import (
	"sort"
	"strings"

	"github.com/sandevgo/govorun/internal/core"
)

const (
	// maxHistory bounds the number of merged steps an interpreter window
	// may cover beyond the final one.
	maxHistory = 2

	// DefaultChitchatDepth bounds the chit-chat window.
	DefaultChitchatDepth = 10
)

// History owns the ordered utterance log for exactly one interlocutor,
// plus a FIFO of replies pending delivery for pull-style transports.
// Utterances are never reordered or deleted.
type History struct {
	interlocutor string
	messages     []core.Utterance
	replies      []string
}

func NewHistory(interlocutor string) *History {
	return &History{interlocutor: interlocutor}
}

func (h *History) Interlocutor() string {
	return h.interlocutor
}

func (h *History) Len() int {
	return len(h.messages)
}

func (h *History) Messages() []core.Utterance {
	return h.messages
}

func (h *History) AddHuman(text string) {
	h.messages = append(h.messages, core.Utterance{Who: core.SpeakerHuman, Text: text})
}

// AddBot appends the reply to the log and to the pending queue.
func (h *History) AddBot(text, selfInterpretation string) {
	h.messages = append(h.messages, core.Utterance{
		Who:            core.SpeakerBot,
		Text:           text,
		Interpretation: selfInterpretation,
	})
	h.replies = append(h.replies, text)
}

func (h *History) AddCommand(text string) {
	h.messages = append(h.messages, core.Utterance{Who: core.SpeakerCommand, Text: text})
}

func (h *History) EnqueueReplies(replies []string) {
	h.replies = append(h.replies, replies...)
}

func (h *History) PopReply() string {
	if len(h.replies) == 0 {
		return ""
	}
	reply := h.replies[0]
	h.replies = h.replies[1:]
	return reply
}

// LastMessage panics on empty history: callers only reach it after an
// inbound utterance was appended.
func (h *History) LastMessage() core.Utterance {
	if len(h.messages) == 0 {
		panic("dialog: LastMessage on empty history")
	}
	return h.messages[len(h.messages)-1]
}

func (h *History) SetLastInterpretation(text string) {
	if len(h.messages) == 0 {
		panic("dialog: SetLastInterpretation on empty history")
	}
	h.messages[len(h.messages)-1].Interpretation = text
}

func (h *History) Printable() []string {
	lines := make([]string, 0, len(h.messages))
	for _, m := range h.messages {
		lines = append(lines, string(m.Who)+": "+m.Text)
	}
	return lines
}

// mergeSteps folds consecutive same-speaker utterances into single steps,
// inserting a period between sub-turns that lack terminal punctuation.
type mergeOptions struct {
	includeCommands   bool
	useInterpretation bool
	lastOverride      string
}

func (h *History) mergeSteps(opts mergeOptions) []string {
	var steps []string
	var prevSide core.Speaker

	for i, m := range h.messages {
		if !opts.includeCommands && m.Who == core.SpeakerCommand {
			continue
		}

		text := m.Text
		if opts.useInterpretation && m.Interpretation != "" {
			text = m.Interpretation
		}
		if opts.lastOverride != "" && i == len(h.messages)-1 {
			text = opts.lastOverride
		}

		if len(steps) == 0 || prevSide != m.Who {
			steps = append(steps, text)
		} else {
			s := steps[len(steps)-1]
			if !endsWithAny(s, ".?!;:") {
				s += "."
			}
			steps[len(steps)-1] = s + " " + text
		}
		prevSide = m.Who
	}

	return steps
}

// InterpreterContexts produces the deduplicated windows of the last n
// merged steps for n in [2..maxHistory+1], longest first. Commands are
// excluded; interpretations substitute raw texts where present.
func (h *History) InterpreterContexts() [][]string {
	steps := h.mergeSteps(mergeOptions{useInterpretation: true})
	if len(steps) == 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var contexts [][]string
	for n := 2; n <= maxHistory+1; n++ {
		window := steps
		if len(steps) > n {
			window = steps[len(steps)-n:]
		}
		key := strings.Join(window, " | ")
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		contexts = append(contexts, window)
	}

	sort.SliceStable(contexts, func(i, j int) bool {
		return len(strings.Join(contexts[i], " | ")) > len(strings.Join(contexts[j], " | "))
	})
	return contexts
}

// EntailmentContext is the last two merged steps, raw text only.
func (h *History) EntailmentContext() string {
	steps := h.mergeSteps(mergeOptions{includeCommands: true})
	if len(steps) > 2 {
		steps = steps[len(steps)-2:]
	}
	return strings.Join(steps, " | ")
}

// ChitchatContext builds the generation window: merged raw-text steps,
// the last step optionally replaced by lastInterpretation, truncated to
// maxDepth. Labels become one bracketed synthetic final step.
func (h *History) ChitchatContext(lastInterpretation string, labels []string, maxDepth int, includeCommands bool) []string {
	steps := h.mergeSteps(mergeOptions{
		includeCommands: includeCommands,
		lastOverride:    lastInterpretation,
	})
	if len(steps) > maxDepth {
		steps = steps[len(steps)-maxDepth:]
	}

	if len(labels) > 0 {
		normalized := make([]string, 0, len(labels))
		for _, l := range labels {
			if !endsWithAny(l, ".?!") {
				l += "."
			}
			normalized = append(normalized, l)
		}
		steps = append(steps, "["+strings.Join(normalized, " ")+"]")
	}
	return steps
}

func endsWithAny(s, chars string) bool {
	if s == "" {
		return false
	}
	runes := []rune(s)
	return strings.ContainsRune(chars, runes[len(runes)-1])
}
