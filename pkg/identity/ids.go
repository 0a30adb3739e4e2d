package identity

import (
	"math/rand/v2"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// IDGenerator produces UUID strings for visitors, sessions and messages.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator uses crypto/rand through google/uuid and falls back to a
// math/rand v4 generator when the secure source is unavailable.
type UUIDGenerator struct {
	// Random overrides the secure source, mostly for tests.
	Random func() (uuid.UUID, error)
}

var _ IDGenerator = UUIDGenerator{}

func (g UUIDGenerator) NewID() string {
	random := g.Random
	if random == nil {
		random = uuid.NewRandom
	}
	id, err := random()
	if err != nil {
		log.Warn().Err(err).Msg("secure uuid source unavailable, using fallback generator")
		return FallbackUUID()
	}
	return id.String()
}

// FallbackUUID builds a version 4 UUID from a non-cryptographic source.
func FallbackUUID() string {
	var b uuid.UUID
	for i := 0; i < len(b); i += 8 {
		v := rand.Uint64()
		for j := 0; j < 8; j++ {
			b[i+j] = byte(v >> (8 * j))
		}
	}
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return b.String()
}

var uuidPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValidID reports whether s is a canonical UUID string. Placeholder values
// that leak out of JavaScript hosts never validate.
func IsValidID(s string) bool {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "unknown", "undefined", "null":
		return false
	}
	return uuidPattern.MatchString(s)
}
