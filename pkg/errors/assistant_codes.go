package errors

import (
	"net/http"

	"google.golang.org/grpc/codes"
)

// 通用错误
var (
	ErrInternal = Register(New(
		MakeCode(ServiceCommon, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal,
		"Internal error", "内部错误",
	))

	ErrInvalidParam = Register(New(
		MakeCode(ServiceCommon, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument,
		"Invalid parameter", "参数错误",
	))

	ErrInvalidConfig = Register(New(
		MakeCode(ServiceCommon, CategoryConfig, 1),
		http.StatusInternalServerError, codes.FailedPrecondition,
		"Invalid configuration", "配置错误",
	))

	ErrCacheUnavailable = Register(New(
		MakeCode(ServiceInfraCache, CategoryCache, 1),
		http.StatusServiceUnavailable, codes.Unavailable,
		"Cache unavailable", "缓存不可用",
	))
)

// 助手服务错误 (Service 20)
var (
	// ErrProviderUnavailable 外部模型服务不可用（构造失败或调用失败）。
	ErrProviderUnavailable = Register(New(
		MakeCode(ServiceAssistant, CategoryNetwork, 1),
		http.StatusServiceUnavailable, codes.Unavailable,
		"Model provider unavailable", "模型服务不可用",
	))

	// ErrRetrievalEmpty 检索没有返回任何内容。
	ErrRetrievalEmpty = Register(New(
		MakeCode(ServiceAssistant, CategoryResource, 1),
		http.StatusNotFound, codes.NotFound,
		"No relevant context found", "未找到相关上下文",
	))

	// ErrParseFailure 源文件解析失败。
	ErrParseFailure = Register(New(
		MakeCode(ServiceAssistant, CategoryInternal, 1),
		http.StatusInternalServerError, codes.Internal,
		"Source file could not be parsed", "源文件解析失败",
	))

	// ErrPersistenceFailure 会话持久化失败。
	ErrPersistenceFailure = Register(New(
		MakeCode(ServiceAssistant, CategoryDatabase, 1),
		http.StatusInternalServerError, codes.Internal,
		"Session persistence failed", "会话持久化失败",
	))

	// ErrInvalidRole 未知的用户角色。
	ErrInvalidRole = Register(New(
		MakeCode(ServiceAssistant, CategoryRequest, 1),
		http.StatusBadRequest, codes.InvalidArgument,
		"Unknown role", "未知角色",
	))

	// ErrEmptyQuery 查询为空。
	ErrEmptyQuery = Register(New(
		MakeCode(ServiceAssistant, CategoryRequest, 2),
		http.StatusBadRequest, codes.InvalidArgument,
		"Query is empty", "查询内容为空",
	))

	// ErrIndexUnavailable 向量索引不可用。
	ErrIndexUnavailable = Register(New(
		MakeCode(ServiceAssistant, CategoryResource, 2),
		http.StatusServiceUnavailable, codes.Unavailable,
		"Vector index unavailable", "向量索引不可用",
	))
)
