package constant

const (
	ExchangeStreamName        = "exchange"
	ExchangeStreamSubjectAll  = "exchange.*"
	ExchangeCompletedSubject  = "exchange.completed"
	ExchangeLedgerQueueName   = "exchange_ledger_queue"
	ExchangeLedgerQueueGroup  = "exchange_ledger_group"
	ExchangeCompletedHandler  = "exchange_completed"
	ExchangeCompletedMaxRetry = 5
)

const (
	ExchangeDatabaseName = "exchange"
	CacheRedisName       = "cache"
	HTTPPortName         = "http"
)

const (
	RateCacheRedis  = "redis"
	RateCacheMemory = "memory"
)
