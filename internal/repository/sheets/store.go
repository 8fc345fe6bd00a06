// Package sheets implements the TableStore against the Google Sheets API,
// one worksheet per table.
package sheets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/ndiasse/stockroom/internal/config"
	"github.com/ndiasse/stockroom/internal/repository"
)

// Store is a Google Sheets backed TableStore. The Sheets API exposes no etag
// over cell values, so the version token is a content hash: WriteAll re-reads
// the worksheet and rejects the write when the hash no longer matches the
// snapshot the caller mutated. That narrows the lost-update window between
// the two portals to the re-read/update gap instead of the whole user
// think-time.
type Store struct {
	service       *sheetsapi.Service
	spreadsheetID string
	logger        *zap.Logger
}

// Verify interface compliance.
var _ repository.TableStore = (*Store)(nil)

// NewStore builds a Google Sheets backed store instance.
func NewStore(ctx context.Context, cfg config.SheetsConfig, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	service, err := sheetsapi.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsPath),
		option.WithScopes(sheetsapi.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize sheets client: %w", err)
	}

	return &Store{
		service:       service,
		spreadsheetID: cfg.SpreadsheetID,
		logger:        logger,
	}, nil
}

// ReadAll fetches every populated row of the worksheet. A worksheet that does
// not exist yet reads as empty, the way the original treated missing sheets.
func (s *Store) ReadAll(ctx context.Context, table string) (*repository.TableSnapshot, error) {
	rows, err := s.fetch(ctx, table)
	if err != nil {
		return nil, err
	}

	return &repository.TableSnapshot{
		Table:   table,
		Rows:    rows,
		Version: hashRows(rows),
	}, nil
}

// WriteAll overwrites the worksheet after checking that its content hash
// still matches the version the caller read.
func (s *Store) WriteAll(ctx context.Context, table string, rows [][]string, expect repository.Version) error {
	current, err := s.fetch(ctx, table)
	if err != nil {
		return err
	}
	if hashRows(current) != expect {
		return fmt.Errorf("worksheet %s: %w", table, repository.ErrVersionConflict)
	}

	clear := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, table, &sheetsapi.ClearValuesRequest{}).Context(ctx)
	if _, err := clear.Do(); err != nil {
		return s.wrapAPIError("clear", table, err)
	}

	payload := &sheetsapi.ValueRange{Values: toValues(rows)}
	update := s.service.Spreadsheets.Values.Update(s.spreadsheetID, table+"!A1", payload).
		ValueInputOption("USER_ENTERED").
		Context(ctx)
	if _, err := update.Do(); err != nil {
		return s.wrapAPIError("update", table, err)
	}

	s.logger.Debug("worksheet rewritten", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}

// Append adds rows to the end of the worksheet.
func (s *Store) Append(ctx context.Context, table string, rows ...[]string) error {
	if len(rows) == 0 {
		return nil
	}

	payload := &sheetsapi.ValueRange{Values: toValues(rows)}
	call := s.service.Spreadsheets.Values.Append(s.spreadsheetID, table, payload).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx)
	if _, err := call.Do(); err != nil {
		return s.wrapAPIError("append", table, err)
	}

	s.logger.Debug("rows appended to worksheet", zap.String("table", table), zap.Int("rows", len(rows)))
	return nil
}

func (s *Store) fetch(ctx context.Context, table string) ([][]string, error) {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, table).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == http.StatusBadRequest {
			// The range failed to parse: the worksheet has not been created
			// yet. Treat it as empty rather than failing the page action.
			s.logger.Debug("worksheet missing, reading as empty", zap.String("table", table))
			return nil, nil
		}
		return nil, s.wrapAPIError("read", table, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, len(raw))
		for i, cell := range raw {
			row[i] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) wrapAPIError(op, table string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", op, table, repository.ErrTableNotFound)
	}
	return fmt.Errorf("%s %s: %v: %w", op, table, err, repository.ErrStoreUnavailable)
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		values := make([]interface{}, len(row))
		for j, cell := range row {
			values[j] = cell
		}
		out[i] = values
	}
	return out
}

func hashRows(rows [][]string) repository.Version {
	h := sha256.New()
	for _, row := range rows {
		for _, cell := range row {
			h.Write([]byte(cell))
			h.Write([]byte{0x1f})
		}
		h.Write([]byte{0x0a})
	}
	return repository.Version(hex.EncodeToString(h.Sum(nil)))
}
