package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"saldo/internal/core"
	ports "saldo/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Ensure interface conformance
var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

// ledgerColumns is the A:G layout written by Change.Row.
const ledgerColumns = "A:G"

// Config locates the spreadsheet and the service account used to write it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name; the year is prefixed, e.g. "2025 Ledger".
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	now           func() time.Time
}

// NewFromConfig creates a Sheets client authenticated with a service account.
func NewFromConfig(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing Google spreadsheet id")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// New wraps an existing service.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Ledger"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: sheetBase, now: time.Now}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Falls back to GOOGLE_APPLICATION_CREDENTIALS when nothing is configured.
func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set google.service_account_json, google.service_account_file, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Append writes the change as a new row at the bottom of this year's tab.
func (c *Client) Append(ctx context.Context, ch core.Change) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, ch.OccurredAt.Year())
	rng := fmt.Sprintf("%s!%s", sheet, ledgerColumns)
	vr := &gsheet.ValueRange{Values: [][]any{ch.Row()}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to append to sheet %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rng, nil
}

// RecentChanges reads this year's tab back, newest first.
func (c *Client) RecentChanges(ctx context.Context, limit int) ([]core.Change, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	sheet := yearPrefixedName(c.sheetBase, c.now().Year())
	rng := fmt.Sprintf("%s!%s", sheet, ledgerColumns)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	var out []core.Change
	for i := len(resp.Values) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		ch, err := parseRow(resp.Values[i])
		if err != nil {
			// Header or hand-edited rows
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

func parseRow(row []any) (core.Change, error) {
	if len(row) < 7 {
		return core.Change{}, fmt.Errorf("short row: %d cells", len(row))
	}
	cell := func(i int) string { return strings.TrimSpace(fmt.Sprint(row[i])) }

	at, err := time.Parse(time.RFC3339, cell(0))
	if err != nil {
		return core.Change{}, fmt.Errorf("parse time: %w", err)
	}
	entityID, err := strconv.ParseInt(cell(3), 10, 64)
	if err != nil {
		return core.Change{}, fmt.Errorf("parse entity id: %w", err)
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cell(4), ",", "."))
	if err != nil {
		return core.Change{}, fmt.Errorf("parse amount: %w", err)
	}
	id, err := uuid.Parse(cell(6))
	if err != nil {
		return core.Change{}, fmt.Errorf("parse change id: %w", err)
	}
	return core.Change{
		ID:         id,
		Collection: cell(1),
		Operation:  core.Operation(cell(2)),
		EntityID:   entityID,
		Amount:     amount,
		Label:      cell(5),
		OccurredAt: at,
	}, nil
}

func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
