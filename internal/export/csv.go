// Package export writes sampled trajectories in tabular form.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

// Header is the first CSV record.
var Header = []string{"t", "x", "y", "speed"}

// WriteCSV writes one record per sample: time, position and the speed g
// reports at that position.
func WriteCSV(w io.Writer, g projectile.GroundToGround, samples []projectile.Sample) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, s := range samples {
		rec := []string{
			formatFloat(s.T),
			formatFloat(s.X),
			formatFloat(s.Y),
			formatFloat(g.Velocity(s.Point)),
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
