package configs

import "github.com/spf13/viper"

const (
	DefaultAgentHeader = "X-Agent-ID" // 请求代理标识头
)

// AgentConfig 请求代理识别配置.调用方（外部系统）在请求头中携带代理 UUID，
// 身份认证本身由上游网关完成，这里只做提取与存在性校验.
type AgentConfig struct {
	Header string `mapstructure:"header"` // 携带代理 UUID 的请求头名
	// DevAllowQuery 开发模式下允许用 ?agent= 便于本地调试
	DevAllowQuery bool     `mapstructure:"dev_allow_query"`
	SkipPaths     []string `mapstructure:"skip_paths"` // 跳过提取的路径前缀
}

func (c *AgentConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("agent.header", DefaultAgentHeader)
	v.SetDefault("agent.dev_allow_query", true)
	v.SetDefault("agent.skip_paths", []string{
		"/metrics",
		"/debug/pprof",
		"/api/v1/health",
	})
}
