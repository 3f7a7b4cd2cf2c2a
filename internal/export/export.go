// Package export writes order reports as JSON lines.
package export

import (
	"bufio"
	"io"
	"runtime"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"

	"github.com/xenking/storefront/internal/domain/order"
	"github.com/xenking/storefront/internal/handler"
)

// blockSize is the pgzip block size used when compressing.
const blockSize = 1 << 20

// WriteReport writes one JSON object per row, each followed by a newline.
func WriteReport(w io.Writer, rows []order.ReportRow) error {
	bw := bufio.NewWriter(w)
	var e jx.Encoder
	for _, r := range rows {
		e.Reset()
		handler.EncodeReportRow(&e, r)
		if _, err := bw.Write(e.Bytes()); err != nil {
			return errors.Wrap(err, "write row")
		}
		if err := bw.WriteByte('\n'); err != nil {
			return errors.Wrap(err, "write row")
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return nil
}

// WriteReportGzip is WriteReport with parallel gzip compression.
func WriteReportGzip(w io.Writer, rows []order.ReportRow) error {
	zw := pgzip.NewWriter(w)
	if err := zw.SetConcurrency(blockSize, runtime.GOMAXPROCS(0)); err != nil {
		return errors.Wrap(err, "configure gzip")
	}
	if err := WriteReport(zw, rows); err != nil {
		_ = zw.Close()
		return err
	}
	if err := zw.Close(); err != nil {
		return errors.Wrap(err, "close gzip")
	}
	return nil
}
