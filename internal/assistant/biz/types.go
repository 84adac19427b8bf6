package biz

import (
	"github.com/kart-io/persona-assistant/internal/pkg/classifier"
	"github.com/kart-io/persona-assistant/internal/pkg/codeindex"
	"github.com/kart-io/persona-assistant/internal/pkg/memory"
)

// ResponseType 路由响应类型。
type ResponseType string

const (
	ResponseError      ResponseType = "error"
	ResponseConfession ResponseType = "confession"
	ResponseFunFact    ResponseType = "fun_fact"
	ResponseMMA        ResponseType = "mma"
	ResponseTechnical  ResponseType = "technical"
	ResponseCareer     ResponseType = "career"
	ResponseGeneral    ResponseType = "general"
)

var intentResponseTypes = map[classifier.Intent]ResponseType{
	classifier.IntentFun:       ResponseFunFact,
	classifier.IntentMMA:       ResponseMMA,
	classifier.IntentTechnical: ResponseTechnical,
	classifier.IntentCareer:    ResponseCareer,
	classifier.IntentGeneral:   ResponseGeneral,
}

func responseTypeFor(intent classifier.Intent) ResponseType {
	if t, ok := intentResponseTypes[intent]; ok {
		return t
	}
	return ResponseGeneral
}

// suppressesFollowUp 对简短回答不附加追问提示。
func (t ResponseType) suppressesFollowUp() bool {
	return t == ResponseError || t == ResponseConfession || t == ResponseFunFact
}

// RetrievalResult 一次检索的结果。Matches、Scores、Sources 等长，
// Scores 非递增。
type RetrievalResult struct {
	Matches       []string  `json:"matches"`
	Scores        []float64 `json:"scores"`
	Sources       []string  `json:"sources"`
	LatencyMS     int64     `json:"latency_ms"`
	RetrieverKind string    `json:"retriever_kind"`
}

// Empty reports whether nothing cleared the threshold.
func (r *RetrievalResult) Empty() bool {
	return r == nil || len(r.Matches) == 0
}

// TechnicalAnswer 技术类回答负载，可缓存。
type TechnicalAnswer struct {
	Answer       string             `json:"answer"`
	CodeSymbols  []codeindex.Symbol `json:"code_symbols"`
	HasCode      bool               `json:"has_code"`
	IndexVersion string             `json:"index_version"`
}

// Meta 路由响应元数据。
type Meta struct {
	TopicFocus       string `json:"topic_focus"`
	Role             string `json:"role"`
	TurnIndex        int    `json:"turn_index"`
	SuppressFollowUp bool   `json:"suppress_follow_up"`
	RequestID        string `json:"request_id"`
	Degraded         bool   `json:"degraded"`
	Grounded         bool   `json:"grounded"`
	Cached           bool   `json:"cached,omitempty"`
}

// RoutedResponse Route 的返回值，Response 始终非空。
type RoutedResponse struct {
	Response     string             `json:"response"`
	Type         ResponseType       `json:"type"`
	Context      []string           `json:"context"`
	Meta         Meta               `json:"meta"`
	ExternalLink string             `json:"external_link,omitempty"`
	CodeSymbols  []codeindex.Symbol `json:"code_symbols,omitempty"`
	IndexVersion string             `json:"index_version,omitempty"`
}

// RouteRequest 单次路由请求。
type RouteRequest struct {
	Role    string
	Query   string
	History []memory.Message
}

// ConversationRequest 单次路由过程中的中间状态。
type ConversationRequest struct {
	Role           Role
	Query          string
	History        []memory.Message
	Classification classifier.Result
	Retrieval      *RetrievalResult
	Context        []string
	CodeSymbols    []codeindex.Symbol
	IndexVersion   string
	Answer         *Answer
	ResponseType   ResponseType
}
