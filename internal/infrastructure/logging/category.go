package logging

type Category string
type SubCategory string
type ExtraKey string

const (
	General         Category = "General"
	IO              Category = "IO"
	Internal        Category = "Internal"
	Mongo           Category = "Mongo"
	RabbitMQ        Category = "RabbitMQ"
	Platform        Category = "Platform"
	Sync            Category = "Sync"
	Validation      Category = "Validation"
	RequestResponse Category = "RequestResponse"
	Prometheus      Category = "Prometheus"
)

const (
	// General
	Startup         SubCategory = "Startup"
	Shutdown        SubCategory = "Shutdown"
	ExternalService SubCategory = "ExternalService"

	// Sync
	Matching      SubCategory = "Matching"
	LegResolution SubCategory = "LegResolution"
	Override      SubCategory = "Override"
	BatchRun      SubCategory = "BatchRun"
	Ingest        SubCategory = "Ingest"
)

const (
	AppName      ExtraKey = "AppName"
	LoggerName   ExtraKey = "Logger"
	RecordID     ExtraKey = "RecordId"
	CallerID     ExtraKey = "CallerId"
	PlatformCall ExtraKey = "PlatformCallId"
	Status       ExtraKey = "Status"
	Stage        ExtraKey = "Stage"
	Method       ExtraKey = "Method"
	StatusCode   ExtraKey = "StatusCode"
	Path         ExtraKey = "Path"
	Latency      ExtraKey = "Latency"
	RequestBody  ExtraKey = "RequestBody"
	ResponseBody ExtraKey = "ResponseBody"
	ErrorMessage ExtraKey = "ErrorMessage"
)
