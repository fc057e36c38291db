package service

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/griga-events/ticketing/internal/clock"
)

// TicketIDPrefix starts every ticket id.
const TicketIDPrefix = "MN"

// TicketIDGenerator builds display ids of the form MN-<base36 millis>-<100..999>.
// The ids are readable and roughly time ordered; they are not secrets.
type TicketIDGenerator struct {
	clock clock.Clock
	intn  func(n int) int
}

// NewTicketIDGenerator returns a generator reading time from clk.
func NewTicketIDGenerator(clk clock.Clock) *TicketIDGenerator {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &TicketIDGenerator{clock: clk, intn: rand.Intn}
}

// Next returns a fresh id.
func (g *TicketIDGenerator) Next() string {
	stamp := strings.ToUpper(strconv.FormatInt(g.clock.Now().UnixMilli(), 36))
	return fmt.Sprintf("%s-%s-%d", TicketIDPrefix, stamp, 100+g.intn(900))
}
