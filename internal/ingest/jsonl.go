package ingest

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/taxakollen/taxa-cli/internal/model"
)

// maxLineBytes bounds a single JSONL record; scraped descriptions can
// run long but anything past this is a malformed export.
const maxLineBytes = 4 * 1024 * 1024

// ReadJSONL reads a JSON Lines file of fee records. Blank lines are
// skipped; a malformed line aborts with its line number.
func ReadJSONL(path string) ([]model.FeeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open file")
	}
	defer f.Close()

	var records []model.FeeRecord
	if err := scanLines(f, func(rec model.FeeRecord) error {
		records = append(records, rec)
		return nil
	}); err != nil {
		return nil, err
	}
	return records, nil
}

// StreamJSONL reads a JSON Lines file and sends records to a channel.
// Both channels are closed when processing completes.
func StreamJSONL(ctx context.Context, path string) (<-chan model.FeeRecord, <-chan error) {
	recCh := make(chan model.FeeRecord, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(recCh)
		defer close(errCh)

		f, err := os.Open(path)
		if err != nil {
			errCh <- eris.Wrap(err, "ingest: open file")
			return
		}
		defer f.Close()

		err = scanLines(f, func(rec model.FeeRecord) error {
			select {
			case recCh <- rec:
				return nil
			case <-ctx.Done():
				return eris.Wrap(ctx.Err(), "ingest: context cancelled")
			}
		})
		if err != nil {
			errCh <- err
		}
	}()

	return recCh, errCh
}

// Decode parses a single JSON fee record, as received on the ingest
// endpoint.
func Decode(r io.Reader) (model.FeeRecord, error) {
	var rec model.FeeRecord
	dec := json.NewDecoder(io.LimitReader(r, maxLineBytes))
	if err := dec.Decode(&rec); err != nil {
		return model.FeeRecord{}, eris.Wrap(err, "ingest: decode record")
	}
	return rec, nil
}

func scanLines(r io.Reader, emit func(model.FeeRecord) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}

		var rec model.FeeRecord
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return eris.Wrapf(err, "ingest: parse line %d", lineNo)
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return eris.Wrap(sc.Err(), "ingest: scan")
}
