package database

// Config 数据库配置
type Config struct {
	// JournalDBPath 会话日志数据库路径，留空则不记录
	JournalDBPath string `yaml:"journal_db_path"` // e.g., "./data/sessions.db"

	// MaxOpenConns 最大打开连接数
	MaxOpenConns int `yaml:"max_open_conns"` // default: 4

	// MaxIdleConns 最大空闲连接数
	MaxIdleConns int `yaml:"max_idle_conns"` // default: 2

	// ConnMaxLifetimeSeconds 连接最大生命周期（秒）
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"` // default: 300
}

// ApplyDefaults 为配置项设置默认值
func (c *Config) ApplyDefaults(dataDir string) {
	if c.JournalDBPath == "" {
		c.JournalDBPath = dataDir + "/sessions.db"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 4
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 2
	}
	if c.ConnMaxLifetimeSeconds == 0 {
		c.ConnMaxLifetimeSeconds = 300
	}
}
