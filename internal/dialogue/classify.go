package dialogue

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/adpilot/backend/internal/models"
)

var objectiveKeywords = []struct {
	keyword   string
	objective string
}{
	{"traffic", models.ObjectiveWebsiteTraffic},
	{"website", models.ObjectiveWebsiteTraffic},
	{"visit", models.ObjectiveWebsiteTraffic},
	{"lead", models.ObjectiveLeadGeneration},
	{"signup", models.ObjectiveLeadGeneration},
	{"sign up", models.ObjectiveLeadGeneration},
	{"sales", models.ObjectiveSales},
	{"sell", models.ObjectiveSales},
	{"purchase", models.ObjectiveSales},
	{"engage", models.ObjectiveEngagement},
}

func normalize(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// matchObjective accepts an objective id, its title, or a free-text goal
// containing a known keyword.
func matchObjective(input string) (models.Objective, bool) {
	in := normalize(input)
	if in == "" {
		return models.Objective{}, false
	}
	for _, o := range models.Objectives {
		if in == o.ID || in == strings.ToLower(o.Title) {
			return o, true
		}
	}
	for _, k := range objectiveKeywords {
		if strings.Contains(in, k.keyword) {
			return models.LookupObjective(k.objective)
		}
	}
	return models.Objective{}, false
}

var ageRangeRE = regexp.MustCompile(`(\d+)\s*-\s*(\d+)`)

type ageParse int

const (
	ageOK ageParse = iota
	ageMalformed
	ageOutOfRange
)

func parseAgeRange(input string) ([2]int, ageParse) {
	m := ageRangeRE.FindStringSubmatch(input)
	if m == nil {
		return [2]int{}, ageMalformed
	}
	lo, err1 := strconv.Atoi(m[1])
	hi, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return [2]int{}, ageOutOfRange
	}
	if !(models.Targeting{AgeMin: lo, AgeMax: hi}).ValidAgeRange() {
		return [2]int{}, ageOutOfRange
	}
	return [2]int{lo, hi}, ageOK
}

func parseInterests(input string) []string {
	var out []string
	for _, p := range strings.Split(input, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type choice int

const (
	choiceUnknown choice = iota
	choiceYes
	choiceNo
)

func classify(input string, yes, no []string) choice {
	in := normalize(input)
	for _, v := range yes {
		if in == v {
			return choiceYes
		}
	}
	for _, v := range no {
		if in == v {
			return choiceNo
		}
	}
	return choiceUnknown
}

var (
	reviewYes = []string{replyReview, "yes", "y", "confirm", "yes, review my campaign"}
	reviewNo  = []string{replyChange, "no", "n", "revise", "change", "no, i want to change something"}
	launchYes = []string{replyLaunch, "launch", "launch campaign"}
	launchNo  = []string{replyStartOver, "restart", "start over"}
)

var selectRE = regexp.MustCompile(`^select_(image|copy):(\d+)$`)

// parseSelection recognises select_image:N and select_copy:N (zero based).
func parseSelection(input string) (kind string, index int, ok bool) {
	m := selectRE.FindStringSubmatch(normalize(input))
	if m == nil {
		return "", 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return "", 0, false
	}
	return m[1], n, true
}
