// Package metrics 提供助手引擎的业务指标收集。
package metrics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kart-io/persona-assistant/pkg/errors"
)

// Metrics 助手引擎业务指标，进程内原子计数。
type Metrics struct {
	// 查询指标
	queriesTotal       atomic.Uint64
	queriesCacheHits   atomic.Uint64
	queriesCacheMisses atomic.Uint64
	queriesErrors      atomic.Uint64
	invalidRoles       atomic.Uint64
	confessions        atomic.Uint64

	// 检索指标
	retrievalTotal  atomic.Uint64
	retrievalEmpty  atomic.Uint64
	retrievalErrors atomic.Uint64

	// 生成指标
	generationsTotal    atomic.Uint64
	generationsDegraded atomic.Uint64
	generationsErrors   atomic.Uint64

	// 代码索引指标
	codeLookups atomic.Uint64
	codeHits    atomic.Uint64

	durationMu         sync.Mutex
	retrievalDuration  float64
	generationDuration float64
	startTime          time.Time

	// 按错误码计数，未编码的错误记为 -1
	codesMu    sync.Mutex
	errorCodes map[int]uint64
}

// New 创建指标实例。
func New() *Metrics {
	return &Metrics{startTime: time.Now(), errorCodes: make(map[int]uint64)}
}

func (m *Metrics) recordError(err error) {
	code := errors.GetCode(err)
	m.codesMu.Lock()
	m.errorCodes[code]++
	m.codesMu.Unlock()
}

// ErrorCodes 返回按错误码统计的错误次数。
func (m *Metrics) ErrorCodes() map[int]uint64 {
	m.codesMu.Lock()
	defer m.codesMu.Unlock()
	out := make(map[int]uint64, len(m.errorCodes))
	for k, v := range m.errorCodes {
		out[k] = v
	}
	return out
}

// RecordQuery 记录一次路由请求。
func (m *Metrics) RecordQuery(cacheHit bool, err error) {
	m.queriesTotal.Add(1)
	if err != nil {
		m.queriesErrors.Add(1)
		m.recordError(err)
		return
	}
	if cacheHit {
		m.queriesCacheHits.Add(1)
	} else {
		m.queriesCacheMisses.Add(1)
	}
}

// RecordInvalidRole 记录未知角色。
func (m *Metrics) RecordInvalidRole() {
	m.queriesTotal.Add(1)
	m.invalidRoles.Add(1)
}

// RecordConfession 记录 confession 请求。
func (m *Metrics) RecordConfession() {
	m.queriesTotal.Add(1)
	m.confessions.Add(1)
}

// RecordRetrieval 记录检索操作。
func (m *Metrics) RecordRetrieval(duration time.Duration, matches int, err error) {
	m.retrievalTotal.Add(1)
	if err != nil {
		m.retrievalErrors.Add(1)
		m.recordError(err)
		return
	}
	if matches == 0 {
		m.retrievalEmpty.Add(1)
	}
	m.durationMu.Lock()
	m.retrievalDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordGeneration 记录回答生成。
func (m *Metrics) RecordGeneration(duration time.Duration, degraded bool, err error) {
	m.generationsTotal.Add(1)
	if err != nil {
		m.generationsErrors.Add(1)
		m.recordError(err)
		return
	}
	if degraded {
		m.generationsDegraded.Add(1)
	}
	m.durationMu.Lock()
	m.generationDuration += duration.Seconds()
	m.durationMu.Unlock()
}

// RecordCodeLookup 记录代码符号查询。
func (m *Metrics) RecordCodeLookup(symbols int) {
	m.codeLookups.Add(1)
	if symbols > 0 {
		m.codeHits.Add(1)
	}
}

type sample struct {
	name  string
	help  string
	kind  string
	value string
}

func (m *Metrics) samples() []sample {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	generationDuration := m.generationDuration
	m.durationMu.Unlock()

	counter := func(name, help string, v uint64) sample {
		return sample{name: name, help: help, kind: "counter", value: fmt.Sprintf("%d", v)}
	}
	return []sample{
		counter("queries_total", "Total number of routed queries.", m.queriesTotal.Load()),
		counter("queries_cache_hits_total", "Number of answer cache hits.", m.queriesCacheHits.Load()),
		counter("queries_cache_misses_total", "Number of answer cache misses.", m.queriesCacheMisses.Load()),
		counter("queries_errors_total", "Number of error responses.", m.queriesErrors.Load()),
		counter("invalid_roles_total", "Number of requests with an unknown role.", m.invalidRoles.Load()),
		counter("confessions_total", "Number of confession requests.", m.confessions.Load()),
		counter("retrieval_total", "Total number of retrievals.", m.retrievalTotal.Load()),
		counter("retrieval_empty_total", "Number of retrievals without matches.", m.retrievalEmpty.Load()),
		counter("retrieval_errors_total", "Number of failed retrievals.", m.retrievalErrors.Load()),
		{name: "retrieval_duration_seconds_total", help: "Total retrieval duration.", kind: "counter", value: fmt.Sprintf("%.6f", retrievalDuration)},
		counter("generations_total", "Total number of generated answers.", m.generationsTotal.Load()),
		counter("generations_degraded_total", "Number of answers synthesized in degraded mode.", m.generationsDegraded.Load()),
		counter("generations_errors_total", "Number of failed generation calls.", m.generationsErrors.Load()),
		{name: "generation_duration_seconds_total", help: "Total generation duration.", kind: "counter", value: fmt.Sprintf("%.6f", generationDuration)},
		counter("code_lookups_total", "Number of code symbol lookups.", m.codeLookups.Load()),
		counter("code_hits_total", "Number of code symbol lookups with results.", m.codeHits.Load()),
		{name: "uptime_seconds", help: "Engine uptime in seconds.", kind: "gauge", value: fmt.Sprintf("%.2f", time.Since(m.startTime).Seconds())},
	}
}

// Export 导出 Prometheus 文本格式指标。
func (m *Metrics) Export(namespace, subsystem string) string {
	prefix := namespace
	if subsystem != "" {
		prefix = prefix + "_" + subsystem
	}

	var sb strings.Builder
	for _, s := range m.samples() {
		name := prefix + "_" + s.name
		fmt.Fprintf(&sb, "# HELP %s %s\n", name, s.help)
		fmt.Fprintf(&sb, "# TYPE %s %s\n", name, s.kind)
		fmt.Fprintf(&sb, "%s %s\n\n", name, s.value)
	}

	byCode := m.ErrorCodes()
	if len(byCode) > 0 {
		name := prefix + "_errors_by_code_total"
		fmt.Fprintf(&sb, "# HELP %s Number of errors by error code.\n", name)
		fmt.Fprintf(&sb, "# TYPE %s counter\n", name)
		for _, code := range sortedCodes(byCode) {
			fmt.Fprintf(&sb, "%s{code=\"%d\"} %d\n", name, code, byCode[code])
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Stats 返回当前统计信息。
func (m *Metrics) Stats() map[string]any {
	m.durationMu.Lock()
	retrievalDuration := m.retrievalDuration
	generationDuration := m.generationDuration
	m.durationMu.Unlock()

	hits := m.queriesCacheHits.Load()
	misses := m.queriesCacheMisses.Load()
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return map[string]any{
		"queries": map[string]any{
			"total":          m.queriesTotal.Load(),
			"cache_hits":     hits,
			"cache_misses":   misses,
			"cache_hit_rate": hitRate,
			"errors":         m.queriesErrors.Load(),
			"invalid_roles":  m.invalidRoles.Load(),
			"confessions":    m.confessions.Load(),
		},
		"retrieval": map[string]any{
			"total":               m.retrievalTotal.Load(),
			"empty":               m.retrievalEmpty.Load(),
			"errors":              m.retrievalErrors.Load(),
			"total_duration_secs": retrievalDuration,
		},
		"generation": map[string]any{
			"total":               m.generationsTotal.Load(),
			"degraded":            m.generationsDegraded.Load(),
			"errors":              m.generationsErrors.Load(),
			"total_duration_secs": generationDuration,
		},
		"code": map[string]any{
			"lookups": m.codeLookups.Load(),
			"hits":    m.codeHits.Load(),
		},
		"errors_by_code": m.errorCodesByName(),
		"uptime_seconds": time.Since(m.startTime).Seconds(),
	}
}

func (m *Metrics) errorCodesByName() map[string]uint64 {
	byCode := m.ErrorCodes()
	out := make(map[string]uint64, len(byCode))
	for code, n := range byCode {
		out[fmt.Sprintf("%d", code)] = n
	}
	return out
}

func sortedCodes(byCode map[int]uint64) []int {
	codes := make([]int, 0, len(byCode))
	for c := range byCode {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}
