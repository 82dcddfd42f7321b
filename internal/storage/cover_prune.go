package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// PruneAPI is the subset of *s3.Client the pruner needs.
type PruneAPI interface {
	s3.ListObjectsV2APIClient
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// PruneResult counts what a prune pass did.
type PruneResult struct {
	Scanned int64
	Orphans int64
	Deleted int64
	Errors  int64
	// OrphanKeys is only filled on dry runs.
	OrphanKeys []string
}

// Pruner removes cover objects no trip refers to any more. Covers replaced or
// left behind by deleted trips are only cleaned up here.
type Pruner struct {
	client      PruneAPI
	bucket      string
	concurrency int
	minAge      time.Duration
	now         func() time.Time
	log         *zap.Logger
}

func NewPruner(client PruneAPI, bucket string, concurrency int) *Pruner {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pruner{
		client:      client,
		bucket:      bucket,
		concurrency: concurrency,
		minAge:      time.Hour,
		now:         time.Now,
		log:         logger.Named("CoverPruner"),
	}
}

// Prune lists every object under CoverPrefix and deletes those whose key is
// not in referenced. Objects younger than an hour are kept so an upload that
// has not been attached to its trip yet survives.
func (p *Pruner) Prune(ctx context.Context, referenced map[string]struct{}, dryRun bool) (*PruneResult, error) {
	result := &PruneResult{}
	var orphans []string

	paginator := s3.NewListObjectsV2Paginator(p.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(CoverPrefix),
	})
	cutoff := p.now().Add(-p.minAge)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return result, fmt.Errorf("listing covers: %w", err)
		}
		for _, obj := range page.Contents {
			result.Scanned++
			key := aws.ToString(obj.Key)
			if _, ok := referenced[key]; ok {
				continue
			}
			if obj.LastModified != nil && obj.LastModified.After(cutoff) {
				continue
			}
			orphans = append(orphans, key)
		}
	}
	result.Orphans = int64(len(orphans))

	if dryRun || len(orphans) == 0 {
		if dryRun {
			result.OrphanKeys = orphans
		}
		return result, nil
	}

	var (
		wg  sync.WaitGroup
		sem = make(chan struct{}, p.concurrency)
	)
	for _, key := range orphans {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(key string) {
			defer wg.Done()
			defer func() { <-sem }()

			_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
				Bucket: aws.String(p.bucket),
				Key:    aws.String(key),
			})
			if err != nil {
				p.log.Warn("Failed to delete orphaned cover", zap.String("key", key), zap.Error(err))
				atomic.AddInt64(&result.Errors, 1)
				return
			}
			atomic.AddInt64(&result.Deleted, 1)
		}(key)
	}
	wg.Wait()

	p.log.Info("Cover prune finished",
		zap.Int64("scanned", result.Scanned),
		zap.Int64("orphans", result.Orphans),
		zap.Int64("deleted", result.Deleted),
		zap.Int64("errors", result.Errors))
	return result, ctx.Err()
}
