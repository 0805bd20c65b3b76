package reporter

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aleister1102/linkscout/internal/common"
	"github.com/aleister1102/linkscout/internal/config"
	"github.com/aleister1102/linkscout/internal/models"
	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

// ParquetReporter appends one row per link per report to a Parquet file. The
// file is complete once Close has been called.
type ParquetReporter struct {
	sessionID string
	now       func() time.Time
	logger    zerolog.Logger

	mu     sync.Mutex
	file   *os.File
	writer *parquet.GenericWriter[models.LinkRecord]
	rows   int
	closed bool
}

// NewParquetReporter creates the file named by cfg.ParquetPath, replacing any
// previous one
func NewParquetReporter(cfg config.ReporterConfig, sessionID string, logger zerolog.Logger) (*ParquetReporter, error) {
	if cfg.ParquetPath == "" {
		return nil, common.NewValidationError("parquet_path", cfg.ParquetPath, "path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.ParquetPath), 0o755); err != nil {
		return nil, common.WrapError(err, "failed to create report directory")
	}

	file, err := os.Create(cfg.ParquetPath)
	if err != nil {
		return nil, common.WrapError(err, "failed to create parquet file")
	}

	writer := parquet.NewGenericWriter[models.LinkRecord](file, compressionOption(cfg.CompressionCodec))

	return &ParquetReporter{
		sessionID: sessionID,
		now:       time.Now,
		logger:    logger.With().Str("component", "ParquetReporter").Str("path", cfg.ParquetPath).Logger(),
		file:      file,
		writer:    writer,
	}, nil
}

func compressionOption(codec string) parquet.WriterOption {
	switch strings.ToLower(codec) {
	case "snappy":
		return parquet.Compression(&parquet.Snappy)
	case "gzip":
		return parquet.Compression(&parquet.Gzip)
	case "none":
		return parquet.Compression(&parquet.Uncompressed)
	default:
		return parquet.Compression(&parquet.Zstd)
	}
}

func (p *ParquetReporter) Report(ctx context.Context, links []models.DetectedLink) error {
	if len(links) == 0 {
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return common.WrapError(common.ErrClosed, "parquet reporter")
	}

	at := p.now()
	records := make([]models.LinkRecord, len(links))
	for i, l := range links {
		records[i] = models.NewLinkRecord(l, p.sessionID, at)
	}

	if _, err := p.writer.Write(records); err != nil {
		return common.WrapError(err, "failed to write parquet rows")
	}
	if err := p.writer.Flush(); err != nil {
		return common.WrapError(err, "failed to flush parquet row group")
	}
	p.rows += len(records)

	p.logger.Debug().Int("rows", len(records)).Int("total_rows", p.rows).Msg("Report appended")
	return nil
}

// Rows returns how many rows were written so far
func (p *ParquetReporter) Rows() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rows
}

// Close writes the footer and closes the file
func (p *ParquetReporter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	var ec common.ErrorCollector
	ec.AddWithContext(p.writer.Close(), "failed to close parquet writer")
	ec.AddWithContext(p.file.Close(), "failed to close parquet file")
	if !ec.HasErrors() {
		p.logger.Info().Int("rows", p.rows).Msg("Parquet report closed")
	}
	return ec.Error()
}
