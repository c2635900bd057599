package constants

const (
	// ServiceName 服务名，用于 tracing 和日志
	ServiceName = "resume-optimizer"
	// Version 服务版本
	Version = "1.0.0"

	// WorkspaceUploadName 工作区中上传文件的名称前缀
	WorkspaceUploadName = "upload"
	// WorkspaceOutputName 工作区中渲染结果的名称前缀
	WorkspaceOutputName = "optimized_resume"
)
