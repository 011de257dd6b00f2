package bootstrap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/9triver/clusterrpc/internal/config"
)

// Initialize 初始化所有模块
// 按照依赖顺序初始化：基础设施 -> 会话管理 -> Transport
func Initialize(cfg *config.Config) (*Node, error) {
	node := &Node{Config: cfg}

	// 1. 初始化会话日志
	if err := bootstrapJournal(node); err != nil {
		return nil, fmt.Errorf("failed to initialize session journal: %w", err)
	}

	// 2. 初始化 actor 系统与会话管理
	if err := bootstrapCluster(node); err != nil {
		node.Stop()
		return nil, fmt.Errorf("failed to initialize cluster module: %w", err)
	}

	// 3. 初始化 Transport 层
	if err := bootstrapTransport(node); err != nil {
		node.Stop()
		return nil, fmt.Errorf("failed to initialize transport layer: %w", err)
	}

	logrus.Info("All modules initialized successfully")
	return node, nil
}
