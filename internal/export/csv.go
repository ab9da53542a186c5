package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/hundred/internal/challenge"
	"github.com/sadopc/hundred/internal/store"
)

// ToCSV writes one row per colored square, days in order.
func ToCSV(days []store.Day, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Day", "Number", "Position", "Row", "Col", "Color", "Source", "Created"}); err != nil {
		return err
	}

	for _, d := range days {
		for _, sq := range d.Squares {
			created := ""
			if !sq.CreatedAt.IsZero() {
				created = sq.CreatedAt.Local().Format(time.RFC3339)
			}
			row := []string{
				strconv.Itoa(d.Number),
				strconv.Itoa(sq.Number),
				strconv.Itoa(sq.Position),
				strconv.Itoa(sq.Position/challenge.BoardSide + 1),
				strconv.Itoa(sq.Position%challenge.BoardSide + 1),
				sq.Color,
				string(sq.Source),
				created,
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}
