package generation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/adpilot/backend/internal/models"
)

const imageContextChars = 200

func objectiveLabel(objective string) string {
	if o, ok := models.LookupObjective(objective); ok {
		return o.Title
	}
	return objective
}

func CopyPrompt(objective, paragraphs string) string {
	return fmt.Sprintf("Generate compelling ad copy for a campaign with the objective: %q. "+
		"Use the following scraped text as inspiration:\n\n%s\n\n"+
		"Suggest a few variations. Put a short headline on the first line of each variation "+
		"and separate variations with a blank line.",
		objectiveLabel(objective), paragraphs)
}

func ImagePrompt(objective, paragraphs string) string {
	return fmt.Sprintf("Generate a realistic image that represents the ad campaign objective: %q "+
		"and is relevant to the following content: %s...",
		objectiveLabel(objective), truncateRunes(paragraphs, imageContextChars))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// CopyVariant is one generated headline/body pair.
type CopyVariant struct {
	Headline    string `json:"headline"`
	PrimaryText string `json:"primary_text"`
}

var (
	blankLineRE  = regexp.MustCompile(`\n\s*\n`)
	listMarkerRE = regexp.MustCompile(`^\s*(?:[-*•]+|\d+[.)]|#+)\s*`)
	labelRE      = regexp.MustCompile(`(?i)^(?:variation\s*\d*|option\s*\d*|headline|primary text|body|text)\s*:\s*`)
)

// SplitVariants splits generated text on blank lines. A variant with more than
// one line uses its first line as the headline.
func SplitVariants(text string) []CopyVariant {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var out []CopyVariant
	for _, block := range blankLineRE.Split(text, -1) {
		var lines []string
		for _, l := range strings.Split(block, "\n") {
			if l = cleanLine(l); l != "" {
				lines = append(lines, l)
			}
		}
		switch len(lines) {
		case 0:
			continue
		case 1:
			out = append(out, CopyVariant{PrimaryText: lines[0]})
		default:
			out = append(out, CopyVariant{Headline: lines[0], PrimaryText: strings.Join(lines[1:], " ")})
		}
	}
	return out
}

func cleanLine(l string) string {
	l = strings.TrimSpace(l)
	l = listMarkerRE.ReplaceAllString(l, "")
	l = strings.Trim(l, "*_ ")
	l = labelRE.ReplaceAllString(l, "")
	l = strings.Trim(l, "*_\" ")
	return strings.TrimSpace(l)
}
