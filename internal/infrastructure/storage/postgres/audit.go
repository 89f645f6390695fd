package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/klauspost/compress/zstd"

	"orgadmin/internal/core/id"
	"orgadmin/internal/core/tx"
	"orgadmin/internal/domain/audit"
	"orgadmin/pkg/logger"
)

// CompressionAlgo specifies the compression algorithm used.
type CompressionAlgo string

const (
	CompressionNone CompressionAlgo = "none"
	CompressionZstd CompressionAlgo = "zstd"
)

// DefaultCompressThreshold is the metadata size above which payloads are
// stored zstd-compressed.
const DefaultCompressThreshold = 8 * 1024

const auditTable = "audit_logs"

var (
	_ audit.Recorder = (*AuditEmitter)(nil)
	_ audit.Reader   = (*AuditReader)(nil)
)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// AuditEmitter writes audit rows on the caller's transaction. Each insert
// runs inside a savepoint so a rejected row leaves the surrounding
// transaction usable. Failures are logged and discarded.
type AuditEmitter struct {
	encoder           *zstd.Encoder
	compressThreshold int
}

// NewAuditEmitter creates a new audit emitter.
func NewAuditEmitter() (*AuditEmitter, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &AuditEmitter{
		encoder:           encoder,
		compressThreshold: DefaultCompressThreshold,
	}, nil
}

// Record implements audit.Recorder.
func (e *AuditEmitter) Record(ctx context.Context, conn tx.Conn, event audit.Event) {
	if err := e.write(ctx, conn, event); err != nil {
		logger.Warn(ctx, "audit event dropped",
			"action", event.Action,
			"target_table", event.TargetTable,
			"target_pk", event.TargetPK,
			"error", err,
		)
	}
}

func (e *AuditEmitter) write(ctx context.Context, conn tx.Conn, event audit.Event) error {
	query, args, err := e.insertQuery(event)
	if err != nil {
		return err
	}

	sp, err := conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("open savepoint: %w", err)
	}

	if _, err := sp.Exec(ctx, query, args...); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("insert audit row: %w (rollback to savepoint: %v)", err, rbErr)
		}
		return fmt.Errorf("insert audit row: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (e *AuditEmitter) insertQuery(event audit.Event) (string, []any, error) {
	var (
		metadata   []byte
		compressed []byte
		algo       = CompressionNone
	)
	if event.Metadata != nil {
		raw, err := json.Marshal(event.Metadata)
		if err != nil {
			return "", nil, fmt.Errorf("marshal metadata: %w", err)
		}
		metadata = raw
		if len(raw) > e.compressThreshold {
			compressed = e.encoder.EncodeAll(raw, nil)
			metadata = nil
			algo = CompressionZstd
		}
	}

	q := builder().
		Insert(auditTable).
		SetMap(map[string]any{
			"id":                  id.New(),
			"actor_user_id":       event.ActorUserID,
			"actor_org_id":        nullID(event.ActorOrgID),
			"action":              event.Action,
			"target_table":        nullString(event.TargetTable),
			"target_pk":           nullString(event.TargetPK),
			"metadata":            nullJSON(metadata),
			"metadata_compressed": compressed,
			"compression_algo":    algo,
		})

	return q.ToSql()
}

// AuditReader loads audit rows and restores compressed metadata.
type AuditReader struct {
	decoder *zstd.Decoder
}

// NewAuditReader creates a new audit reader.
func NewAuditReader() (*AuditReader, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	return &AuditReader{decoder: decoder}, nil
}

// Close releases the decoder's goroutines.
func (r *AuditReader) Close() {
	r.decoder.Close()
}

type auditRow struct {
	audit.Entry
	MetadataCompressed []byte          `db:"metadata_compressed"`
	CompressionAlgo    CompressionAlgo `db:"compression_algo"`
}

// ListByOrganization returns the newest entries of orgID first.
func (r *AuditReader) ListByOrganization(ctx context.Context, conn tx.Conn, orgID id.ID, limit int) ([]audit.Entry, error) {
	query, args, err := builder().
		Select("id", "actor_user_id", "actor_org_id", "action", "target_table", "target_pk",
			"metadata", "metadata_compressed", "compression_algo", "created_at").
		From(auditTable).
		Where(squirrel.Eq{"actor_org_id": orgID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []auditRow
	if err := pgxscan.Select(ctx, conn, &rows, query, args...); err != nil {
		return nil, ClassifyError(fmt.Errorf("list audit events: %w", err))
	}

	entries := make([]audit.Entry, 0, len(rows))
	for _, row := range rows {
		if row.CompressionAlgo == CompressionZstd && len(row.MetadataCompressed) > 0 {
			decompressed, err := r.decoder.DecodeAll(row.MetadataCompressed, nil)
			if err != nil {
				return nil, fmt.Errorf("decompress metadata of %s: %w", row.ID, err)
			}
			row.Metadata = decompressed
		}
		entries = append(entries, row.Entry)
	}

	return entries, nil
}

func nullID(v id.ID) any {
	if id.IsNil(v) {
		return nil
	}
	return v
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return json.RawMessage(b)
}
