package errx

// 跨模块统一的错误码。领域专属的错误码（例如 DISTRICT_NOT_FOUND）由各模块自己定义。
const (
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeTimeout       Code = "TIMEOUT"
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeReqParamError Code = "REQ_PARAM_ERROR"
	CodeNotFound      Code = "NOT_FOUND"
	CodePersistence   Code = "PERSISTENCE_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
)

// 哨兵错误，用 With* 派生新对象，不要直接修改。
var (
	ErrInternal     = NewInternal(CodeInternal, "服务器内部错误")
	ErrUnavailable  = NewInternal(CodeUnavailable, "服务不可用")
	ErrTimeout      = NewInternal(CodeTimeout, "请求超时")
	ErrRateLimited  = NewValidation(CodeRateLimited, "请求过于频繁")
	ErrReqParam     = NewValidation(CodeReqParamError, "请求参数错误")
	ErrNotFound     = NewNotFound(CodeNotFound, "资源不存在")
	ErrPersistence  = NewPersistence(CodePersistence, "持久化失败")
	ErrUnauthorized = NewValidation(CodeUnauthorized, "未授权")
)
