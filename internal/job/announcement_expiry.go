package job

import (
	"context"
	"log"
)

// AnnouncementPurger 删除过期公告
type AnnouncementPurger interface {
	PurgeExpiredAnnouncements(ctx context.Context, limit int) (int, error)
}

// AnnouncementExpiryJob 分批清理过期公告及其附件，由调度器定时触发
type AnnouncementExpiryJob struct {
	purger    AnnouncementPurger
	batchSize int
}

func NewAnnouncementExpiryJob(purger AnnouncementPurger) *AnnouncementExpiryJob {
	return &AnnouncementExpiryJob{purger: purger, batchSize: 100}
}

// Run 返回本次删除的公告数量
func (j *AnnouncementExpiryJob) Run(ctx context.Context) int {
	total := 0
	for {
		purged, err := j.purger.PurgeExpiredAnnouncements(ctx, j.batchSize)
		if err != nil {
			log.Printf("[AnnouncementExpiryJob] 清理过期公告失败: %v", err)
			break
		}
		total += purged
		// 不足一批说明已清理完；删除失败的记录留到下一轮
		if purged < j.batchSize || ctx.Err() != nil {
			break
		}
	}

	if total > 0 {
		log.Printf("[AnnouncementExpiryJob] 本次删除 %d 条过期公告", total)
	}
	return total
}
