// Package export writes JSON snapshots of a board to a local directory or
// an S3 bucket.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/dome/internal/client/models"
	"github.com/dmitrijs2005/dome/internal/filex"
)

// Document is the exported form of one board.
type Document struct {
	Board      models.Board  `json:"board"`
	Lists      []models.List `json:"lists"`
	Cards      []models.Card `json:"cards"`
	ExportedAt time.Time     `json:"exported_at"`
}

// NewDocument flattens layout into a Document. Cards follow list order, then
// their order within the list.
func NewDocument(b models.Board, layout models.Layout, now time.Time) Document {
	d := Document{
		Board:      b,
		Lists:      append([]models.List{}, layout.Lists...),
		Cards:      make([]models.Card, 0, layout.CardCount()),
		ExportedAt: now.UTC(),
	}
	for _, l := range layout.Lists {
		d.Cards = append(d.Cards, layout.Cards[l.ID]...)
	}
	return d
}

// Name is the file or object name of d.
func (d Document) Name() string {
	return fmt.Sprintf("board-%d-%s.json", d.Board.ID, d.ExportedAt.UTC().Format("20060102T150405Z"))
}

func (d Document) encode() ([]byte, error) {
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode board %d: %w", d.Board.ID, err)
	}
	return append(b, '\n'), nil
}

// Exporter stores a Document and returns where it went.
type Exporter interface {
	Export(ctx context.Context, d Document) (string, error)
}

// FileExporter writes documents into Dir, creating it if needed.
type FileExporter struct {
	Dir string
}

func (e FileExporter) Export(ctx context.Context, d Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir, err := filex.EnsureDir(e.Dir)
	if err != nil {
		return "", err
	}
	b, err := d.encode()
	if err != nil {
		return "", err
	}
	p := filepath.Join(dir, d.Name())
	if err := filex.WriteFileAtomic(p, b); err != nil {
		return "", err
	}
	return p, nil
}
