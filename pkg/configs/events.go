package configs

import "github.com/spf13/viper"

// EventsConfig 控制生命周期事件发布的开关（全局与分领域）。
type EventsConfig struct {
	Enabled  bool                 `mapstructure:"enabled"` // 总开关
	Document DocumentEventsConfig `mapstructure:"document"`
	Registry RegistryEventsConfig `mapstructure:"registry"`
}

// DocumentEventsConfig 文档领域的事件开关。
type DocumentEventsConfig struct {
	Created     bool `mapstructure:"created"`
	Replaced    bool `mapstructure:"replaced"`
	Restored    bool `mapstructure:"restored"`
	MetaUpdated bool `mapstructure:"meta_updated"`
	Deleted     bool `mapstructure:"deleted"`
	Grants      bool `mapstructure:"grants"`
}

// RegistryEventsConfig 组织/代理领域的事件开关。
type RegistryEventsConfig struct {
	OrgDeleted   bool `mapstructure:"org_deleted"`
	AgentRemoved bool `mapstructure:"agent_removed"`
}

func (c *EventsConfig) setDefaults(v *viper.Viper) {
	// 总开关：默认启用事件系统
	v.SetDefault("events.enabled", true)

	// 文档领域：默认开启写路径事件
	v.SetDefault("events.document.created", true)
	v.SetDefault("events.document.replaced", true)
	v.SetDefault("events.document.restored", true)
	v.SetDefault("events.document.deleted", true)
	v.SetDefault("events.document.grants", true)

	// 元数据更新事件量可能较大，默认关闭
	v.SetDefault("events.document.meta_updated", false)

	// 级联删除是重要审计事件，默认开启
	v.SetDefault("events.registry.org_deleted", true)
	v.SetDefault("events.registry.agent_removed", true)
}
