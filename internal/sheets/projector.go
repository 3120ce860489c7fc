package sheets

import (
	"context"

	"github.com/syuvi-tf/syuvi/internal/store"
	"github.com/syuvi-tf/syuvi/internal/tourney"
	"github.com/syuvi-tf/syuvi/pkg/logx"
)

// Store is the read slice the projector needs.
type Store interface {
	VerifiedTimes(ctx context.Context, tourneyID int64) ([]store.VerifiedEntry, error)
	Signups(ctx context.Context, tourneyID int64) ([]store.SignupEntry, error)
}

// sheetWriter is the write slice of Client the projector needs.
type sheetWriter interface {
	overwrite(ctx context.Context, tab string, rows [][]interface{}) error
}

// Projector pushes a tourney's verified times and signup list to the sheet.
type Projector struct {
	client sheetWriter
	store  Store
	log    logx.Logger
}

func NewProjector(client *Client, st Store, log logx.Logger) *Projector {
	return &Projector{client: client, store: st, log: log}
}

// UpdateSheetTimes overwrites the times tab for the tourney's class with the
// current verified aggregate. Errors are logged and swallowed; they never
// reach the user who triggered the mutation.
func (p *Projector) UpdateSheetTimes(ctx context.Context, t *tourney.Tourney) {
	entries, err := p.store.VerifiedTimes(ctx, t.ID)
	if err != nil {
		p.log.Error("sheet sync: loading verified times failed",
			logx.Int64("tourney_id", t.ID), logx.Err(err))
		return
	}

	rows := make([][]interface{}, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []interface{}{
			e.Player.Name,
			string(e.Division),
			tourney.FormatRunTime(e.RunTime),
			e.TimeID,
		})
	}

	tab := string(t.Class) + " Times"
	if err := p.client.overwrite(ctx, tab, rows); err != nil {
		p.log.Error("sheet sync: times push failed",
			logx.Int64("tourney_id", t.ID), logx.String("tab", tab), logx.Err(err))
		return
	}
	p.log.Debug("sheet times updated",
		logx.Int64("tourney_id", t.ID), logx.Int("rows", len(rows)))
}

// UpdateSheetSignups overwrites the signups tab for the tourney's class.
func (p *Projector) UpdateSheetSignups(ctx context.Context, t *tourney.Tourney) {
	signups, err := p.store.Signups(ctx, t.ID)
	if err != nil {
		p.log.Error("sheet sync: loading signups failed",
			logx.Int64("tourney_id", t.ID), logx.Err(err))
		return
	}

	rows := make([][]interface{}, 0, len(signups))
	for _, su := range signups {
		rows = append(rows, []interface{}{su.Player.Name, string(su.Division)})
	}

	tab := string(t.Class) + " Signups"
	if err := p.client.overwrite(ctx, tab, rows); err != nil {
		p.log.Error("sheet sync: signups push failed",
			logx.Int64("tourney_id", t.ID), logx.String("tab", tab), logx.Err(err))
		return
	}
	p.log.Debug("sheet signups updated",
		logx.Int64("tourney_id", t.ID), logx.Int("rows", len(signups)))
}
