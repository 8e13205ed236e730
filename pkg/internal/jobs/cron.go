// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	ctxPkg "github.com/yeisme/docvault/pkg/context"
	"github.com/yeisme/docvault/pkg/internal/service"
	"github.com/yeisme/docvault/pkg/internal/storage"
	"github.com/yeisme/docvault/pkg/log"
	"github.com/yeisme/docvault/pkg/scheduler"
)

const (
	// deletedRetention 软删除文档的保留期，到期物理清除.
	deletedRetention = 30 * 24 * time.Hour
	// expiredGrantRetention 过期授权行的保留期.
	expiredGrantRetention = 7 * 24 * time.Hour
	// orphanGracePeriod 对象写入后的宽限期，期内不参与孤儿清理.
	orphanGracePeriod = 24 * time.Hour
	// sweepConcurrency 同时清扫的组织数上限.
	sweepConcurrency = 4
)

// RegisterCronJobs 配置业务定时任务：
//   - 每天 03:30 物理清除保留期满的软删除文档
//   - 每天 04:15 回收过期已久的授权行
//   - 每周日 02:45 逐组织清理不被任何版本引用的孤儿对象
func RegisterCronJobs(sched *scheduler.Scheduler, mgr *storage.Manager) error {
	if sched == nil {
		return fmt.Errorf("scheduler is nil")
	}

	if mgr == nil {
		return fmt.Errorf("storage manager is nil")
	}

	// 将 storage manager 注入到 context，便于 service 使用
	baseCtx := ctxPkg.WithStorageManager(context.Background(), mgr)

	_ = sched.AddCron(JobPurgeDeletedDocuments, CronPurgeDeletedDocuments, func(ctx context.Context) {
		runPurgeDeletedDocuments(ctx)
	}, baseCtx)

	_ = sched.AddCron(JobPurgeExpiredGrants, CronPurgeExpiredGrants, func(ctx context.Context) {
		runPurgeExpiredGrants(ctx)
	}, baseCtx)

	_ = sched.AddCron(JobSweepOrphanBlobs, CronSweepOrphanBlobs, func(ctx context.Context) {
		runSweepOrphanBlobs(ctx)
	}, baseCtx)

	return nil
}

// runPurgeDeletedDocuments 清除保留期满的软删除文档.
func runPurgeDeletedDocuments(ctx context.Context) {
	l := log.Logger().With().Str("job", JobPurgeDeletedDocuments).Logger()

	svc := service.NewVaultService(ctx)
	before := time.Now().Add(-deletedRetention)

	n, err := svc.PurgeDeletedDocuments(ctx, before)
	if err != nil {
		l.Error().Err(err).Msg("purge deleted documents failed")
		return
	}

	if n > 0 {
		l.Info().Int("purged", n).Time("before", before).Msg("purged deleted documents")
	}
}

// runPurgeExpiredGrants 回收过期已久的授权行.
func runPurgeExpiredGrants(ctx context.Context) {
	l := log.Logger().With().Str("job", JobPurgeExpiredGrants).Logger()

	svc := service.NewVaultService(ctx)
	before := time.Now().Add(-expiredGrantRetention)

	n, err := svc.PurgeExpiredGrants(ctx, before)
	if err != nil {
		l.Error().Err(err).Msg("purge expired grants failed")
		return
	}

	if n > 0 {
		l.Info().Int64("purged", n).Msg("purged expired grants")
	}
}

// runSweepOrphanBlobs 逐组织清理孤儿对象.
func runSweepOrphanBlobs(ctx context.Context) {
	l := log.Logger().With().Str("job", JobSweepOrphanBlobs).Logger()

	svc := service.NewVaultService(ctx)

	orgs, err := svc.ListOrganizationIDs(ctx)
	if err != nil {
		l.Error().Err(err).Msg("list organizations failed")
		return
	}

	before := time.Now().Add(-orphanGracePeriod)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sweepConcurrency)

	for _, orgID := range orgs {
		g.Go(func() error {
			n, err := svc.SweepOrphanBlobs(gctx, orgID, before)
			if err != nil {
				l.Error().Err(err).Str("organization_id", orgID).Msg("sweep orphan blobs failed")
				return nil
			}

			if n > 0 {
				l.Info().Str("organization_id", orgID).Int("swept", n).Msg("swept orphan blobs")
			}

			return nil
		})
	}

	_ = g.Wait()
}
