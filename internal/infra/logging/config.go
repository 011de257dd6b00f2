package logging

// Config 日志配置
type Config struct {
	Level         string `yaml:"level"`          // trace/debug/info/warn/error
	FileDir       string `yaml:"file_dir"`       // 日志文件目录，按天切分
	FileEnabled   bool   `yaml:"file_enabled"`   // 是否同时写入文件
	RetentionDays int    `yaml:"retention_days"` // 保留天数
}

// ApplyDefaults 为配置项设置默认值
func (c *Config) ApplyDefaults(dataDir string) {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.FileDir == "" {
		c.FileDir = dataDir + "/logs"
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 7
	}
}
