// Package classifier maps a free-text query to an intent and a topic label.
//
// Classification is keyword based and deterministic: the query is
// lowercased, each intent's keyword set is tried in priority order
// (fun, mma, technical, career) and the first hit wins. Queries that hit
// nothing are general.
package classifier

import (
	"regexp"
	"strings"
)

// Intent is the coarse category of a query.
type Intent string

const (
	IntentFun       Intent = "fun"
	IntentMMA       Intent = "mma"
	IntentTechnical Intent = "technical"
	IntentCareer    Intent = "career"
	IntentGeneral   Intent = "general"
)

// Result is the outcome of Classify.
type Result struct {
	Intent Intent `json:"intent"`
	Topic  string `json:"topic"`
}

// matcher tests a lowercased query for one keyword. Single words of five
// runes or fewer, and any word listed in ambiguous, need word boundaries so
// "fight" does not fire on "firefighter" and "rag" not on "storage".
type matcher struct {
	keyword string
	re      *regexp.Regexp
}

var ambiguous = map[string]bool{
	"fight":    true,
	"fights":   true,
	"fighter":  true,
	"fighting": true,
	"career":   true,
	"degree":   true,
	"design":   true,
	"testing":  true,
}

func newMatcher(keyword string) matcher {
	m := matcher{keyword: keyword}
	if !strings.Contains(keyword, " ") && (len([]rune(keyword)) <= 5 || ambiguous[keyword]) {
		m.re = regexp.MustCompile(`\b` + regexp.QuoteMeta(keyword) + `\b`)
	}
	return m
}

func (m matcher) match(q string) bool {
	if m.re != nil {
		return m.re.MatchString(q)
	}
	return strings.Contains(q, m.keyword)
}

type keywordSet []matcher

func newKeywordSet(keywords ...string) keywordSet {
	set := make(keywordSet, len(keywords))
	for i, k := range keywords {
		set[i] = newMatcher(k)
	}
	return set
}

func (s keywordSet) match(q string) bool {
	for _, m := range s {
		if m.match(q) {
			return true
		}
	}
	return false
}

type topicRule struct {
	topic    string
	keywords keywordSet
}

type intentRule struct {
	intent       Intent
	keywords     keywordSet
	defaultTopic string
	topics       []topicRule
}

// rules are evaluated in order; the order is the intent priority.
var rules = []intentRule{
	{
		intent: IntentFun,
		keywords: newKeywordSet(
			"fun fact", "fun facts", "fun", "hobby", "hobbies", "favorite", "favourite",
			"outside of work", "free time", "interesting fact", "surprising", "weekend",
		),
		defaultTopic: "fun_facts",
	},
	{
		intent: IntentMMA,
		keywords: newKeywordSet(
			"mma", "ufc", "fight", "fights", "fighter", "fighting", "martial arts",
			"jiu jitsu", "jiu-jitsu", "bjj", "kickboxing", "muay thai", "wrestling",
			"octagon", "cage", "knockout",
		),
		defaultTopic: "mma",
	},
	{
		intent: IntentTechnical,
		keywords: newKeywordSet(
			"code", "coding", "architecture", "rag", "retrieval", "embedding", "embeddings",
			"vector", "pipeline", "api", "database", "sql", "schema", "deploy", "deployment",
			"infrastructure", "test", "tests", "testing", "python", "golang", "typescript",
			"javascript", "function", "class", "implementation", "implemented", "algorithm",
			"llm", "model", "backend", "frontend", "stack", "system design", "design",
			"debug", "latency", "scalab",
		),
		defaultTopic: "general",
		topics: []topicRule{
			{"retrieval", newKeywordSet("rag", "retrieval", "embedding", "embeddings", "vector", "search", "similarity")},
			{"architecture", newKeywordSet("architecture", "system design", "design", "pipeline", "component", "stack", "scalab")},
			{"data", newKeywordSet("database", "sql", "schema", "data", "storage", "migration")},
			{"testing", newKeywordSet("test", "tests", "testing", "coverage", "qa")},
			{"deployment", newKeywordSet("deploy", "deployment", "infrastructure", "docker", "kubernetes", "cloud", "ci/cd")},
			{"code", newKeywordSet("code", "coding", "function", "class", "implementation", "implemented", "algorithm", "python", "golang", "typescript", "javascript")},
		},
	},
	{
		intent: IntentCareer,
		keywords: newKeywordSet(
			"career", "experience", "job", "jobs", "role", "resume", "cv", "hire", "hiring",
			"skills", "skill", "background", "education", "degree", "university", "college",
			"worked", "work history", "employer", "company", "companies", "available",
			"availability", "salary", "relocate", "remote", "strengths", "achievements",
		),
		defaultTopic: "general",
		topics: []topicRule{
			{"experience", newKeywordSet("experience", "worked", "work history", "employer", "company", "companies", "job", "jobs", "role", "achievements")},
			{"skills", newKeywordSet("skills", "skill", "strengths")},
			{"education", newKeywordSet("education", "degree", "university", "college")},
			{"availability", newKeywordSet("available", "availability", "relocate", "remote", "salary")},
		},
	},
}

// Classify returns the intent and topic for query. It is pure and
// deterministic; identical inputs always yield identical results.
func Classify(query string) Result {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Result{Intent: IntentGeneral, Topic: "general"}
	}

	for _, rule := range rules {
		if !rule.keywords.match(q) {
			continue
		}
		topic := rule.defaultTopic
		for _, t := range rule.topics {
			if t.keywords.match(q) {
				topic = t.topic
				break
			}
		}
		return Result{Intent: rule.intent, Topic: topic}
	}
	return Result{Intent: IntentGeneral, Topic: "general"}
}
