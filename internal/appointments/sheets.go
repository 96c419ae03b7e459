package appointments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const defaultSheetRange = "reservas"

// SheetsExporter appends one row per appointment request to a Google spreadsheet.
type SheetsExporter struct {
	values      *sheets.SpreadsheetsValuesService
	spreadsheet string
	rangeName   string
}

// NewSheetsService builds an authenticated Sheets client from a credentials file or inline JSON.
func NewSheetsService(ctx context.Context, credentialsFile, credentialsJSON string, opts ...option.ClientOption) (*sheets.Service, error) {
	clientOpts := []option.ClientOption{option.WithScopes(sheets.SpreadsheetsScope)}
	switch {
	case strings.TrimSpace(credentialsJSON) != "":
		clientOpts = append(clientOpts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	case strings.TrimSpace(credentialsFile) != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	clientOpts = append(clientOpts, opts...)

	svc, err := sheets.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("appointments: create sheets service: %w", err)
	}
	return svc, nil
}

// NewSheetsExporter appends rows to rangeName (defaults to "reservas") of spreadsheetID.
func NewSheetsExporter(svc *sheets.Service, spreadsheetID, rangeName string) (*SheetsExporter, error) {
	if svc == nil {
		panic("appointments: sheets service cannot be nil")
	}
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("appointments: spreadsheet id is required")
	}
	if strings.TrimSpace(rangeName) == "" {
		rangeName = defaultSheetRange
	}
	return &SheetsExporter{
		values:      sheets.NewSpreadsheetsValuesService(svc),
		spreadsheet: spreadsheetID,
		rangeName:   rangeName,
	}, nil
}

// Export appends the record as a raw row, inserting a new row below the table.
func (e *SheetsExporter) Export(ctx context.Context, rec Record) error {
	body := &sheets.ValueRange{Values: [][]any{rec.Row()}}
	_, err := e.values.Append(e.spreadsheet, e.rangeName, body).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("appointments: append sheet row: %w", err)
	}
	return nil
}
