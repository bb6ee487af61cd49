package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 证据文件允许的 MIME 类型
const (
	MimeImage = "image/"
	MimePDF   = "application/pdf"
)

var AllowedEvidenceTypes = []string{MimeImage, MimePDF}

// 工具名称，use-tool 事件的 toolName
const (
	ToolURLAnalyzer      = "url_analyzer"
	ToolMessageAnalyzer  = "message_analyzer"
	ToolCyberCellLocator = "cyber_cell_locator"
	ToolScamReport       = "scam_report"
)
