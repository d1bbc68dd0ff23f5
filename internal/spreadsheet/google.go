package spreadsheet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

const (
	valueInputUserEntered = "USER_ENTERED"
	valueInputRaw         = "RAW"
	insertDataRows        = "INSERT_ROWS"
	dimensionRows         = "ROWS"
)

var (
	errMissingSpreadsheetID = errors.New("spreadsheet: spreadsheet id required")
	errMissingCredentials   = errors.New("spreadsheet: credentials file required")
)

// GoogleClientConfig configures access to one Google Sheets workbook.
type GoogleClientConfig struct {
	SpreadsheetID   string
	CredentialsFile string
	// Options are appended after the credential options; tests use them to redirect the endpoint.
	Options []option.ClientOption
}

// GoogleClient implements Client on the Google Sheets v4 API.
type GoogleClient struct {
	spreadsheetID string
	service       *sheetsapi.Service
}

// NewGoogleClient authenticates with a service-account credentials file.
func NewGoogleClient(ctx context.Context, cfg GoogleClientConfig) (*GoogleClient, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errMissingSpreadsheetID
	}
	options := make([]option.ClientOption, 0, len(cfg.Options)+2)
	if credentials := strings.TrimSpace(cfg.CredentialsFile); credentials != "" {
		options = append(options,
			option.WithCredentialsFile(credentials),
			option.WithScopes(sheetsapi.SpreadsheetsScope))
	} else if len(cfg.Options) == 0 {
		return nil, errMissingCredentials
	}
	options = append(options, cfg.Options...)

	service, err := sheetsapi.NewService(ctx, options...)
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: create sheets service: %w", err)
	}
	return &GoogleClient{spreadsheetID: spreadsheetID, service: service}, nil
}

func (c *GoogleClient) ReadRows(ctx context.Context, sheet string) ([][]string, error) {
	response, err := c.service.Spreadsheets.Values.
		Get(c.spreadsheetID, QuoteSheetTitle(sheet)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("spreadsheet: read %q: %w", sheet, err)
	}
	rows := make([][]string, 0, len(response.Values))
	for _, rawRow := range response.Values {
		row := make([]string, len(rawRow))
		for index, cell := range rawRow {
			row[index] = fmt.Sprint(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *GoogleClient) AppendRows(ctx context.Context, sheet string, rows [][]string) error {
	_, err := c.service.Spreadsheets.Values.
		Append(c.spreadsheetID, QuoteSheetTitle(sheet), &sheetsapi.ValueRange{Values: toCells(rows)}).
		ValueInputOption(valueInputUserEntered).
		InsertDataOption(insertDataRows).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("spreadsheet: append to %q: %w", sheet, err)
	}
	return nil
}

func (c *GoogleClient) UpdateRange(ctx context.Context, target Range, values [][]string) error {
	if err := target.Validate(); err != nil {
		return err
	}
	_, err := c.service.Spreadsheets.Values.
		Update(c.spreadsheetID, target.A1(), &sheetsapi.ValueRange{Values: toCells(values)}).
		ValueInputOption(valueInputRaw).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("spreadsheet: update %s: %w", target.A1(), err)
	}
	return nil
}

func (c *GoogleClient) DeleteRows(ctx context.Context, sheetID int64, span RowSpan) error {
	if err := span.Validate(); err != nil {
		return err
	}
	request := &sheetsapi.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsapi.Request{
			{
				DeleteDimension: &sheetsapi.DeleteDimensionRequest{
					Range: &sheetsapi.DimensionRange{
						SheetId:    sheetID,
						Dimension:  dimensionRows,
						StartIndex: span.Start,
						EndIndex:   span.End,
						// sheet id 0 is the first sheet and must not be dropped as a zero value.
						ForceSendFields: []string{"SheetId", "StartIndex"},
					},
				},
			},
		},
	}
	_, err := c.service.Spreadsheets.BatchUpdate(c.spreadsheetID, request).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("spreadsheet: delete rows %d..%d of sheet %d: %w", span.Start, span.End, sheetID, err)
	}
	return nil
}

func (c *GoogleClient) SheetID(ctx context.Context, sheet string) (int64, error) {
	metadata, err := c.service.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("spreadsheet: read metadata: %w", err)
	}
	for _, candidate := range metadata.Sheets {
		if candidate.Properties != nil && candidate.Properties.Title == sheet {
			return candidate.Properties.SheetId, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
}

func toCells(rows [][]string) [][]interface{} {
	cells := make([][]interface{}, len(rows))
	for rowIndex, row := range rows {
		converted := make([]interface{}, len(row))
		for index, value := range row {
			converted[index] = value
		}
		cells[rowIndex] = converted
	}
	return cells
}
