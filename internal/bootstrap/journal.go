package bootstrap

import (
	"fmt"

	"github.com/sirupsen/logrus"

	sessionrepo "github.com/9triver/clusterrpc/internal/infra/repository/session"
)

// bootstrapJournal 初始化会话日志仓库
func bootstrapJournal(node *Node) error {
	if node.Config.Database.JournalDBPath == "" {
		logrus.Info("Session journal disabled")
		return nil
	}

	repo, err := sessionrepo.NewJournalRepoSQLite(node.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to create session journal repository: %w", err)
	}
	node.Journal = repo
	return nil
}
