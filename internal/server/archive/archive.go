// Package archive moves refresh-token records that are past retention out of
// the primary store. Each batch is written to object storage as JSON lines
// and only then deleted.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	sc "github.com/dmitrijs2005/gophauth/internal/server/config"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/dmitrijs2005/gophauth/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"github.com/google/uuid"
)

const (
	DefaultBatchSize = 1000
	contentType      = "application/x-ndjson"
)

var ErrNoPruner = errors.New("store does not support pruning")

// ObjectKey is the storage key of one archived batch written at t.
func ObjectKey(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("refresh-tokens/%04d/%02d/%02d/%s.jsonl", t.Year(), t.Month(), t.Day(), uuid.New())
}

type Archiver struct {
	pruner    refreshtokens.Pruner
	objects   ObjectPutter
	bucket    string
	retention time.Duration
	batchSize int
	logger    logging.Logger
	now       timex.Clock
}

// Result summarises one run.
type Result struct {
	Archived int64
	Keys     []string
}

func New(p refreshtokens.Pruner, objects ObjectPutter, c *sc.Config, logger logging.Logger, clock timex.Clock) (*Archiver, error) {
	if p == nil {
		return nil, ErrNoPruner
	}
	if clock == nil {
		clock = timex.SystemClock
	}
	return &Archiver{
		pruner:    p,
		objects:   objects,
		bucket:    c.S3Bucket,
		retention: c.RetentionPeriod,
		batchSize: DefaultBatchSize,
		logger:    logger.With("module", "archiver"),
		now:       clock,
	}, nil
}

// Run archives everything that expired or was revoked before now minus the
// retention period. A failed upload stops the run before anything of that
// batch is deleted.
func (a *Archiver) Run(ctx context.Context) (*Result, error) {
	now := a.now()
	cutoff := now.Add(-a.retention)
	res := &Result{}

	a.logger.Info(ctx, "archive run started", "cutoff", cutoff)

	for {
		batch, err := a.pruner.ListPrunable(ctx, cutoff, a.batchSize)
		if err != nil {
			return res, fmt.Errorf("list prunable: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		key, err := a.upload(ctx, now, batch)
		if err != nil {
			return res, err
		}
		res.Keys = append(res.Keys, key)

		tokens := make([]string, len(batch))
		for i, t := range batch {
			tokens[i] = t.Token
		}
		n, err := a.pruner.Delete(ctx, tokens)
		if err != nil {
			return res, fmt.Errorf("delete archived batch %s: %w", key, err)
		}
		res.Archived += n
		a.logger.Info(ctx, "batch archived", "key", key, "records", len(batch), "deleted", n)

		if len(batch) < a.batchSize {
			break
		}
	}

	a.logger.Info(ctx, "archive run finished", "archived", res.Archived, "objects", len(res.Keys))
	return res, nil
}

func (a *Archiver) upload(ctx context.Context, now time.Time, batch []*models.RefreshToken) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range batch {
		if err := enc.Encode(t); err != nil {
			return "", fmt.Errorf("encode record: %w", err)
		}
	}

	key := ObjectKey(now)
	_, err := a.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
