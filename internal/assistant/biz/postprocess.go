package biz

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strings"
)

// FollowUpMarker 追问提示行的前缀。
const FollowUpMarker = "Follow-up:"

// personRule 第一人称到第三人称的替换规则，{s} 为主体名称。
type personRule struct {
	re   *regexp.Regexp
	repl string
}

// 按顺序应用；较长的短语在前。
var personTable = []struct {
	pattern string
	repl    string
}{
	{`\bI am\b`, "{s} is"},
	{`\bI'm\b`, "{s} is"},
	{`\bI’m\b`, "{s} is"},
	{`\bI have\b`, "{s} has"},
	{`\bI've\b`, "{s} has"},
	{`\bI was\b`, "{s} was"},
	{`\bI'd\b`, "{s} would"},
	{`\bI'll\b`, "{s} will"},
	{`\bI ([a-z])`, "{s} $1"},
	{`\bmy own\b`, "{s}'s own"},
	{`\b[Mm]y\b`, "{s}'s"},
	{`\bmyself\b`, "{s}"},
	{`\bmine\b`, "{s}'s"},
}

type personRewriter struct {
	rules []personRule
}

func newPersonRewriter(subject string) *personRewriter {
	if subject == "" {
		return &personRewriter{}
	}
	rules := make([]personRule, len(personTable))
	for i, r := range personTable {
		rules[i] = personRule{
			re:   regexp.MustCompile(r.pattern),
			repl: strings.ReplaceAll(r.repl, "{s}", strings.ReplaceAll(subject, "$", "$$")),
		}
	}
	return &personRewriter{rules: rules}
}

// Rewrite 将描述主体的第一人称改写为第三人称。
func (p *personRewriter) Rewrite(text string) string {
	for _, r := range p.rules {
		text = r.re.ReplaceAllString(text, r.repl)
	}
	return text
}

// stripFollowUps 删除模型自行生成的追问提示行。
func stripFollowUps(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if isFollowUpLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isFollowUpLine(line string) bool {
	trimmed := strings.TrimLeft(strings.TrimSpace(line), "*_> ")
	return len(trimmed) >= len(FollowUpMarker) &&
		strings.EqualFold(trimmed[:len(FollowUpMarker)], FollowUpMarker)
}

// CountFollowUps 统计回答中的追问提示行数量。
func CountFollowUps(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if isFollowUpLine(line) {
			n++
		}
	}
	return n
}

var followUps = map[Role][]string{
	RoleHiringManagerNonTechnical: {
		"Would you like to hear about the results %s delivered in a recent role?",
		"Want to know how %s works with non-technical stakeholders?",
		"Curious about what kind of team %s is looking to join?",
	},
	RoleHiringManagerTechnical: {
		"Would you like a walkthrough of the tech stack %s used on a recent project?",
		"Want to hear how %s approaches system design trade-offs?",
		"Curious how %s tests and ships production code?",
	},
	RoleDeveloper: {
		"Want to see the code behind one of %s's projects?",
		"Curious how %s structured the retrieval pipeline?",
		"Would you like to dig into how %s handles failures and fallbacks?",
	},
	RoleTechnicalManager: {
		"Would you like to hear how %s plans and scopes technical work?",
		"Curious how %s balances delivery speed with code quality?",
		"Want an overview of the architecture decisions %s made?",
	},
	RoleJustLooking: {
		"Want to hear a fun fact about %s?",
		"Curious what %s is building right now?",
		"Would you like to know what %s does outside of work?",
	},
}

// followUpFor 按查询哈希确定性地选择一条追问提示。
func followUpFor(role Role, query, subject string) string {
	options, ok := followUps[role]
	if !ok || len(options) == 0 {
		options = followUps[RoleJustLooking]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(query))))
	s := subject
	if s == "" {
		s = "the candidate"
	}
	return FollowUpMarker + " " + fmt.Sprintf(options[int(h.Sum32()%uint32(len(options)))], s)
}
