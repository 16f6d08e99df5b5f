package idgen

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// 雪花算法 ID 生成器
// ============================================================================
//
// 用途：
//   1. 缴费单号（对外展示，趋势递增，不暴露业务量）
//   2. 上传文件名后缀（同一秒内多次上传不冲突）
//
// 【雪花算法结构】64位
//
//   0 - 41位时间戳 - 10位机器ID - 12位序列号
//
// ============================================================================

const (
	epoch          = int64(1704067200000) // 起始时间戳（2024-01-01 00:00:00 UTC）
	workerIDBits   = 10
	sequenceBits   = 12
	maxWorkerID    = -1 ^ (-1 << workerIDBits)
	maxSequence    = -1 ^ (-1 << sequenceBits)
	workerIDShift  = sequenceBits
	timestampShift = sequenceBits + workerIDBits
)

// Snowflake 雪花算法ID生成器
type Snowflake struct {
	mu        sync.Mutex
	timestamp int64
	workerID  int64
	sequence  int64
}

var (
	defaultGenerator *Snowflake
	once             sync.Once
)

// Init 初始化默认ID生成器
func Init(workerID int64) {
	once.Do(func() {
		if workerID < 0 || workerID > maxWorkerID {
			log.Fatalf("workerID 必须在 0-%d 之间", maxWorkerID)
		}
		defaultGenerator = &Snowflake{workerID: workerID}
	})
}

// NextID 生成下一个ID
func NextID() int64 {
	if defaultGenerator == nil {
		Init(1)
	}
	return defaultGenerator.Generate()
}

// Generate 生成ID
func (s *Snowflake) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()

	if now == s.timestamp {
		s.sequence = (s.sequence + 1) & maxSequence
		if s.sequence == 0 {
			// 序列号用完，等待下一毫秒
			for now <= s.timestamp {
				now = time.Now().UnixMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	s.timestamp = now

	return ((now - epoch) << timestampShift) |
		(s.workerID << workerIDShift) |
		s.sequence
}

// GeneratePaymentNo 生成缴费单号
// 格式：PMT + 年月日时分秒 + 雪花ID后8位，例如 PMT2024011514305212345678
func GeneratePaymentNo() string {
	id := NextID()
	timestamp := time.Now().UTC().Format("20060102150405")
	return fmt.Sprintf("PMT%s%08d", timestamp, id%100000000)
}

// GenerateFileName 生成上传文件名：业务时区下的时间戳 + 雪花ID后8位 + 原扩展名
// 例如 2024-01-15_14-30-52_12345678.png
func GenerateFileName(loc *time.Location, originalName string) string {
	if loc == nil {
		loc = time.UTC
	}
	ext := ""
	if idx := strings.LastIndex(originalName, "."); idx >= 0 {
		ext = strings.ToLower(originalName[idx:])
	}
	if strings.ContainsAny(ext, `/\`) {
		ext = ""
	}
	id := NextID()
	return fmt.Sprintf("%s_%08d%s", time.Now().In(loc).Format("2006-01-02_15-04-05"), id%100000000, ext)
}
