package id

import (
	"crypto/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Generator issues sortable unique references for payments and
// transfers. References carry a short prefix so a reference alone
// identifies the record type (PAY-..., TRF-..., CASH-...).
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewGenerator() *Generator {
	return &Generator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *Generator) next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// PaymentRef returns a new payment reference, e.g. PAY-01J8....
func (g *Generator) PaymentRef() string { return "PAY-" + g.next() }

// TransferRef returns a new fund-transfer reference.
func (g *Generator) TransferRef() string { return "TRF-" + g.next() }

// CashRef synthesizes the external transaction id for a cash receipt.
// Cash has no external gateway, so the id is minted locally.
func (g *Generator) CashRef() string { return "CASH-" + g.next() }

// IsCashRef reports whether ref was minted by CashRef.
func IsCashRef(ref string) bool { return strings.HasPrefix(ref, "CASH-") }
