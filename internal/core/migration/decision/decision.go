// Package decision provides the rename deciders used by the schema differ.
package decision

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/AlecAivazis/survey/v2"

	"github.com/satishbabariya/migrant/internal/core/migration/differ"
)

// Always returns a decider with a fixed answer, for batch runs.
func Always(answer bool) differ.Decider {
	return func(string, string) bool { return answer }
}

// Question formats the rename question put to the user.
func Question(oldName, newName string) string {
	return fmt.Sprintf("Did you rename %s to %s?", oldName, newName)
}

// ParseAnswer reports whether s is an affirmative answer. Only "y" and "yes"
// count, in any case; anything else means no rename.
func ParseAnswer(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes":
		return true
	}
	return false
}

// FromReader asks each question on w and reads one answer line from r.
// A read error, including EOF, answers no.
func FromReader(r io.Reader, w io.Writer) differ.Decider {
	reader := bufio.NewReader(r)
	return func(oldName, newName string) bool {
		fmt.Fprintf(w, "%s (y/N) ", Question(oldName, newName))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		return ParseAnswer(line)
	}
}

// Survey asks each question with an interactive confirm prompt. Any prompt
// error, such as an interrupt or a missing terminal, answers no.
func Survey(opts ...survey.AskOpt) differ.Decider {
	return func(oldName, newName string) bool {
		answer := false
		prompt := &survey.Confirm{
			Message: Question(oldName, newName),
			Default: false,
		}
		if err := survey.AskOne(prompt, &answer, opts...); err != nil {
			return false
		}
		return answer
	}
}

// Recording wraps d and logs every question with its answer.
func Recording(d differ.Decider, logger *slog.Logger) differ.Decider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(oldName, newName string) bool {
		answer := d(oldName, newName)
		logger.Info("rename decision", "old", oldName, "new", newName, "renamed", answer)
		return answer
	}
}
