package util

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const logFilePrefix = "clusterrpc-"

// InitLogger 初始化 logrus 全局格式与级别
func InitLogger(level string) {
	logrus.SetFormatter(newTextFormatter(false))
	logrus.SetReportCaller(true)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func newTextFormatter(disableColors bool) *logrus.TextFormatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.DateTime,
		DisableColors:   disableColors,
		CallerPrettyfier: func(frame *runtime.Frame) (function string, file string) {
			return frame.Function, ""
		},
	}
}

// LogFile 按日期轮换的日志文件，作为 logrus Hook 挂载
type LogFile struct {
	dir       string
	keepDays  int
	formatter logrus.Formatter

	mu   sync.Mutex
	file *os.File
	path string
	date string

	stop     chan struct{}
	stopOnce sync.Once
}

// OpenLogFile 在 dir 下创建当天的日志文件，并启动轮换与清理任务
func OpenLogFile(dir string, keepDays int) (*LogFile, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if keepDays <= 0 {
		keepDays = 3
	}

	lf := &LogFile{
		dir:       dir,
		keepDays:  keepDays,
		formatter: newTextFormatter(true),
		stop:      make(chan struct{}),
	}
	if err := lf.rotate(time.Now()); err != nil {
		return nil, err
	}
	go lf.loop()
	return lf, nil
}

// Levels 实现 logrus.Hook
func (lf *LogFile) Levels() []logrus.Level {
	return logrus.AllLevels
}

// Fire 实现 logrus.Hook
func (lf *LogFile) Fire(entry *logrus.Entry) error {
	line, err := lf.formatter.Format(entry)
	if err != nil {
		return err
	}

	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.file == nil {
		return nil
	}
	_, err = lf.file.Write(line)
	return err
}

// Path 当前日志文件路径
func (lf *LogFile) Path() string {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return lf.path
}

// Close 停止轮换任务并关闭文件
func (lf *LogFile) Close() error {
	lf.stopOnce.Do(func() { close(lf.stop) })

	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.file == nil {
		return nil
	}
	err := lf.file.Close()
	lf.file = nil
	return err
}

// rotate 日期变化时切换到新文件
func (lf *LogFile) rotate(now time.Time) error {
	date := now.Format("20060102")

	lf.mu.Lock()
	defer lf.mu.Unlock()
	if lf.date == date && lf.file != nil {
		return nil
	}

	path := filepath.Join(lf.dir, logFilePrefix+date+".log")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	old := lf.file
	lf.file, lf.path, lf.date = file, path, date
	if old != nil {
		old.Close()
	}
	return nil
}

// cleanup 删除超过保留天数的日志文件
func (lf *LogFile) cleanup(now time.Time) error {
	entries, err := os.ReadDir(lf.dir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := now.AddDate(0, 0, -lf.keepDays).Format("20060102")
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, logFilePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		date := strings.TrimSuffix(strings.TrimPrefix(name, logFilePrefix), ".log")
		if len(date) != 8 || date >= cutoff {
			continue
		}
		path := filepath.Join(lf.dir, name)
		if err := os.Remove(path); err != nil {
			logrus.Warnf("Failed to delete old log file %s: %v", path, err)
		}
	}
	return nil
}

func (lf *LogFile) loop() {
	rotateTicker := time.NewTicker(time.Hour)
	defer rotateTicker.Stop()
	cleanupTicker := time.NewTicker(24 * time.Hour)
	defer cleanupTicker.Stop()

	if err := lf.cleanup(time.Now()); err != nil {
		logrus.Warnf("Failed to cleanup old logs: %v", err)
	}

	for {
		select {
		case <-rotateTicker.C:
			if err := lf.rotate(time.Now()); err != nil {
				logrus.Errorf("Failed to rotate log file: %v", err)
			}
		case <-cleanupTicker.C:
			if err := lf.cleanup(time.Now()); err != nil {
				logrus.Warnf("Failed to cleanup old logs: %v", err)
			}
		case <-lf.stop:
			return
		}
	}
}
