package stream

import (
	"github.com/Shravan-1908/projectile-motion-simulator/internal/httputil"
	"github.com/Shravan-1908/projectile-motion-simulator/internal/projectile"
)

// Stream message payload types. Every stream sends one metadataMessage, then
// one sampleMessage per trajectory point, then a doneMessage.

type metadataMessage struct {
	Type    string               `json:"type"`
	Launch  projectile.Launch    `json:"launch"`
	Summary httputil.SummaryJSON `json:"summary"`
	Step    float64              `json:"step"`
	Speed   float64              `json:"speed"`
	Samples int                  `json:"samples"`
}

type sampleMessage struct {
	Type string  `json:"type"`
	I    int     `json:"i"`
	T    float64 `json:"t"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type doneMessage struct {
	Type    string `json:"type"`
	Samples int    `json:"samples"`
}

func newMetadata(l projectile.Launch, step, speed float64, samples int) metadataMessage {
	return metadataMessage{
		Type:    "metadata",
		Launch:  l,
		Summary: httputil.Summary(l.Model().Summary()),
		Step:    step,
		Speed:   speed,
		Samples: samples,
	}
}

func newSample(i int, s projectile.Sample) sampleMessage {
	return sampleMessage{Type: "sample", I: i, T: s.T, X: s.X, Y: s.Y}
}
