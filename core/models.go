package core

//go:generate go run ../cmd/musgen

import (
	"encoding/hex"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a stable unique identifier for a government signal.
// Feed records usually carry their own identifier (e.g. a SAM.gov notice ID);
// records without one get a content-derived ID.
type ID string

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	return ID(hex.EncodeToString(h.Sum(nil)))
}

// ContentHash computes a BLAKE2b digest of a signal's indexable text.
// It is stored next to the derived vector so a changed description is
// detectable as a stale vector.
func ContentHash(title, description string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(description))
	return hex.EncodeToString(h.Sum(nil))
}

// SourceType identifies the kind of government signal.
type SourceType int

const (
	// SourceTypeSolicitation is an active request for proposals.
	SourceTypeSolicitation SourceType = iota + 1
	// SourceTypeForecast is a projected future procurement.
	SourceTypeForecast
	// SourceTypeGrant is a grant funding notice.
	SourceTypeGrant
	// SourceTypeSourcesSought is a market research / sources-sought notice.
	SourceTypeSourcesSought
	// SourceTypeAwardNotice is a published contract award.
	SourceTypeAwardNotice
)

var sourceTypeNames = map[SourceType]string{
	SourceTypeSolicitation:  "solicitation",
	SourceTypeForecast:      "forecast",
	SourceTypeGrant:         "grant",
	SourceTypeSourcesSought: "sources-sought",
	SourceTypeAwardNotice:   "award-notice",
}

// String returns the wire name of the source type.
func (t SourceType) String() string {
	if name, ok := sourceTypeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseSourceType parses a wire name into a SourceType.
// Returns ErrInvalidSourceType for unknown names.
func ParseSourceType(name string) (SourceType, error) {
	for t, n := range sourceTypeNames {
		if n == name {
			return t, nil
		}
	}
	return 0, ErrInvalidSourceType
}

// Signal represents a government need or opportunity record.
// Vector, Terms and ContentHash are derived by the feature extractor and are
// recomputed whenever Title or Description change; they are never hand-edited.
type Signal struct {
	Id            ID
	SourceType    SourceType
	Agency        string
	CategoryCodes []string
	Title         string
	Description   string
	PublishedAt   time.Time
	ResponseDueAt time.Time // Zero means no response deadline
	Terms         []string  // Normalized keyword tokens (populated by the extractor)
	Vector        []float32 // Unit-length embedding vector (populated by the extractor)
	ContentHash   string    // Hash of Title+Description at extraction time
	InsertedAt    time.Time // When the record was inserted into the store
	UpdatedAt     time.Time // When the record was last updated
}

// Text returns the signal's indexable free text.
func (s *Signal) Text() string {
	if s.Title == "" {
		return s.Description
	}
	if s.Description == "" {
		return s.Title
	}
	return s.Title + ". " + s.Description
}

// Expired reports whether the signal's response deadline has passed at the
// given instant. Signals without a deadline never expire.
func (s *Signal) Expired(now time.Time) bool {
	return !s.ResponseDueAt.IsZero() && s.ResponseDueAt.Before(now)
}

// Filter narrows match candidates by coarse metadata.
type Filter struct {
	Agency         string   // Exact agency match; empty means any agency
	CategoryCodes  []string // Any-of category code match; empty means any code
	IncludeExpired bool     // Include signals whose response deadline has passed
}

// MatchResult is one ranked match for a query.
// Score is comparable only within a single query's result set.
type MatchResult struct {
	Signal    *Signal
	Score     float64
	Reasoning string
}

// Checkpoint records ingestion progress so periodic feeds can resume
// incrementally.
type Checkpoint struct {
	Name      string
	Position  uint64
	UpdatedAt time.Time
}
