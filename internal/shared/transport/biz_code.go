package transport

// BizCode 表示业务码的强类型封装，用于在日志上下文中减少误传风险。
type BizCode int

// 业务码：0 成功，1xx 请求问题，2xx 规则拒绝，5xx 系统错误。
const (
	OK = 0

	InvalidParam = 100
	Unauthorized = 101
	Forbidden    = 102
	RateLimited  = 103
	NotFound     = 104

	RuleRejected         = 200
	AlreadyClaimed       = 201
	InsufficientLevel    = 202
	InsufficientFunds    = 203
	TargetNotOwned       = 204
	InsufficientGangSize = 205
	InsufficientEnergy   = 206
	OnCooldown           = 207
	AlreadyResident      = 208
	DistrictNotFound     = 209

	SystemError         = 500
	UpstreamUnavailable = 503
	UpstreamTimeout     = 504
)
