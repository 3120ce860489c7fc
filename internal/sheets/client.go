// Package sheets projects verified tourney state onto a Google spreadsheet.
//
// The projection is write-only and best-effort: a failed push is logged and
// swallowed, and the next successful push for the same tourney overwrites
// whatever stale rows the failure left behind.
package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/time/rate"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"

	"github.com/syuvi-tf/syuvi/pkg/logx"
)

// Config configures the spreadsheet target.
type Config struct {
	SpreadsheetID string
	// CredentialsFile is a Google service-account JSON key path.
	CredentialsFile string
	// RatePerMin caps write pushes against the Sheets API quota. 0 means 30.
	RatePerMin int
}

type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	limiter       *rate.Limiter
	log           logx.Logger
}

func New(ctx context.Context, cfg Config, log logx.Logger) (*Client, error) {
	if _, err := os.Stat(cfg.CredentialsFile); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(cfg.CredentialsFile),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	perMin := cfg.RatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &Client{
		srv:           srv,
		spreadsheetID: cfg.SpreadsheetID,
		limiter:       rate.NewLimiter(rate.Limit(float64(perMin)/60.0), perMin),
		log:           log,
	}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

func (c *Client) overwrite(ctx context.Context, tab string, rows [][]interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	// Clear first so a shrinking result set doesn't leave stale tail rows.
	if _, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, tab+"!A2:Z", &sheetsv4.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	vr := &sheetsv4.ValueRange{Values: rows}
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, tab+"!A2", vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	return err
}
