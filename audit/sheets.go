package audit

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	actionsRange    = "Actions!A1"
	complaintsRange = "Complaints!A1"
)

// appender — добавление строк в таблицу
type appender interface {
	Append(ctx context.Context, rng string, row []interface{}) error
}

type sheetsAppender struct {
	svc           *sheets.Service
	spreadsheetID string
}

func (a *sheetsAppender) Append(ctx context.Context, rng string, row []interface{}) error {
	_, err := a.svc.Spreadsheets.Values.
		Append(a.spreadsheetID, rng, &sheets.ValueRange{Values: [][]interface{}{row}}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

// Sheets пишет действия и жалобы в Google Таблицу
type Sheets struct {
	out appender
	now func() time.Time
}

func NewSheets(ctx context.Context, credentialsFile, spreadsheetID string) (*Sheets, error) {
	svc, err := sheets.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(sheets.SpreadsheetsScope),
	)
	if err != nil {
		return nil, fmt.Errorf("sheets client: %w", err)
	}
	return &Sheets{
		out: &sheetsAppender{svc: svc, spreadsheetID: spreadsheetID},
		now: time.Now,
	}, nil
}

func (s *Sheets) RecordAction(user UserSnapshot, blogger *BloggerSnapshot, kind ActionKind) {
	row := actionRow(s.now(), user, blogger, kind)
	fireAndForget("sheets", func(ctx context.Context) error {
		return s.out.Append(ctx, actionsRange, row)
	})
}

func (s *Sheets) RecordComplaint(c Complaint) {
	row := complaintRow(s.now(), c)
	fireAndForget("sheets", func(ctx context.Context) error {
		return s.out.Append(ctx, complaintsRange, row)
	})
}

func actionRow(at time.Time, user UserSnapshot, blogger *BloggerSnapshot, kind ActionKind) []interface{} {
	end := ""
	if user.SubscriptionEnd != nil {
		end = user.SubscriptionEnd.Format(time.DateTime)
	}
	row := []interface{}{
		at.Format(time.DateTime),
		string(kind),
		user.PlatformID,
		user.Username,
		user.SubscriptionStatus,
		end,
	}
	if blogger != nil {
		row = append(row, blogger.ID, blogger.Name, blogger.URL)
	} else {
		row = append(row, "", "", "")
	}
	return row
}

func complaintRow(at time.Time, c Complaint) []interface{} {
	return []interface{}{
		at.Format(time.DateTime),
		c.BloggerID,
		c.BloggerName,
		c.UserID,
		c.Username,
		c.Reason,
	}
}
