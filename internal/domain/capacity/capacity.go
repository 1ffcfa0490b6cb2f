package capacity

import (
	"fmt"
	"time"

	"github.com/roomline/service-booking/internal/domain/booking"
	"github.com/roomline/service-booking/pkg/domain"
)

// Config is the singleton technical-support capacity setting.
type Config struct {
	BlockMinutes  int
	SlotsPerBlock int
	Active        bool
	UpdatedAt     time.Time
}

// DefaultConfig is used when no row has been stored yet. It is inactive, so
// the gate passes everything until an administrator turns it on.
func DefaultConfig() Config {
	return Config{BlockMinutes: 30, SlotsPerBlock: 1, Active: false}
}

// Validate checks the block size and slot count.
func (c Config) Validate() error {
	if c.BlockMinutes <= 0 || c.BlockMinutes > 24*60 {
		return domain.NewValidationError("block minutes must be between 1 and 1440")
	}
	if c.SlotsPerBlock < 1 {
		return domain.NewValidationError("slots per block must be at least 1")
	}
	return nil
}

// Usage is the occupancy of one block.
type Usage struct {
	Start int    `json:"-"`
	End   int    `json:"-"`
	From  string `json:"from"`
	To    string `json:"to"`
	Used  int    `json:"used"`
	Slots int    `json:"slots"`
}

// Verdict is the outcome of a capacity evaluation.
type Verdict struct {
	Allowed   bool
	Evaluated bool
	Saturated *Usage
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// Blocks returns the aligned blocks touched by w. Blocks are multiples of
// size minutes from midnight and may fall on either neighbouring day.
func Blocks(w booking.Window, size int) []booking.Window {
	if size <= 0 || w.End <= w.Start {
		return nil
	}
	first := floorDiv(w.Start, size) * size
	var blocks []booking.Window
	for b := first; b < w.End; b += size {
		blocks = append(blocks, booking.Window{Start: b, End: b + size})
	}
	return blocks
}

// Evaluate checks whether candidate fits into every block it touches given
// the buffered windows of the other blocking tech-support bookings that day.
// An inactive config always allows.
func Evaluate(cfg Config, date time.Time, candidate booking.Window, others []booking.Window) Verdict {
	if !cfg.Active {
		return Verdict{Allowed: true}
	}
	for _, block := range Blocks(candidate, cfg.BlockMinutes) {
		used := 0
		for _, o := range others {
			if o.Overlaps(block) {
				used++
			}
		}
		if used+1 > cfg.SlotsPerBlock {
			from, to := block.Format(date)
			return Verdict{
				Allowed:   false,
				Evaluated: true,
				Saturated: &Usage{
					Start: block.Start,
					End:   block.End,
					From:  from,
					To:    to,
					Used:  used,
					Slots: cfg.SlotsPerBlock,
				},
			}
		}
	}
	return Verdict{Allowed: true, Evaluated: true}
}

// Message describes a saturated block for error output.
func (u Usage) Message() string {
	return fmt.Sprintf("technical support capacity exhausted between %s and %s (%d of %d slots used)", u.From, u.To, u.Used, u.Slots)
}
