package jobs

// 任务名称常量，便于统一管理与引用.
const (
	JobPurgeDeletedDocuments = "document.purge_deleted"
	JobPurgeExpiredGrants    = "grant.purge_expired"
	JobSweepOrphanBlobs      = "blob.sweep_orphans"
)

// Cron 表达式常量（可选，但推荐一并集中管理）.
const (
	CronPurgeDeletedDocuments = "30 3 * * *"
	CronPurgeExpiredGrants    = "15 4 * * *"
	CronSweepOrphanBlobs      = "45 2 * * 0"
)
