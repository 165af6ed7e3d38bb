package core

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// MaxPageSize caps the number of documents a single search returns.
const MaxPageSize = 20

// Account identifies one mailbox to synchronize
type Account struct {
	User     string
	Password string
	Host     string
	Port     int
	Folder   string
}

// ID returns the identifier stored on every message fetched from the account
func (a Account) ID() string {
	return a.User
}

// Addr returns host:port for dialing
func (a Account) Addr() string {
	return a.Host + ":" + strconv.Itoa(a.Port)
}

// Message represents an email fetched from an account
type Message struct {
	Subject string    `json:"subject"`
	From    string    `json:"from"`
	Date    time.Time `json:"date"`
	Folder  string    `json:"folder"`
	Account string    `json:"account"`
	Label   Label     `json:"label,omitempty"`
	Body    string    `json:"body,omitempty"`
}

// Key returns the composite identity of the message. Two fetches of the same
// mail from the same account produce the same key.
func (m Message) Key() string {
	h := sha256.New()
	h.Write([]byte(m.Account))
	h.Write([]byte{0})
	h.Write([]byte(m.Date.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte{0})
	h.Write([]byte(m.Subject))
	return hex.EncodeToString(h.Sum(nil))
}

// Complete reports whether the envelope carries subject, sender and date.
func (m Message) Complete() bool {
	return strings.TrimSpace(m.Subject) != "" &&
		strings.TrimSpace(m.From) != "" &&
		!m.Date.IsZero()
}

// WithLabel returns a copy of the message carrying label
func (m Message) WithLabel(label Label) Message {
	m.Label = label
	return m
}

// ClassificationText is the text sent to the classifier
func (m Message) ClassificationText() string {
	if m.Body == "" {
		return m.Subject
	}
	return m.Subject + "\n\n" + m.Body
}

// TrainingExample pairs a situation description with the reply to send
type TrainingExample struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// CacheEntry is a cached classification for one message key
type CacheEntry struct {
	Key       string
	Label     Label
	LastSeen  time.Time
	ExpiresAt time.Time
}

// MatchType says how a search clause compares values
type MatchType string

const (
	// MatchExact requires the field to equal the value
	MatchExact MatchType = "exact"
	// MatchPhrase requires the field to contain the value, ignoring case
	MatchPhrase MatchType = "phrase"
)

// Searchable fields
const (
	FieldLabel   = "label"
	FieldFolder  = "folder"
	FieldAccount = "account"
)

// Clause is one condition of a search
type Clause struct {
	Field string
	Value string
	Match MatchType
}

// SearchQuery is a conjunction of clauses. An empty query matches everything.
type SearchQuery struct {
	Clauses []Clause
	Size    int
}

// Must appends an exact-match clause
func (q SearchQuery) Must(field, value string) SearchQuery {
	q.Clauses = append(q.Clauses, Clause{Field: field, Value: value, Match: MatchExact})
	return q
}

// Phrase appends a phrase-match clause
func (q SearchQuery) Phrase(field, value string) SearchQuery {
	q.Clauses = append(q.Clauses, Clause{Field: field, Value: value, Match: MatchPhrase})
	return q
}

// Limit returns the effective page size
func (q SearchQuery) Limit() int {
	if q.Size <= 0 || q.Size > MaxPageSize {
		return MaxPageSize
	}
	return q.Size
}

// Matches evaluates the query against a message in memory
func (q SearchQuery) Matches(m Message) bool {
	for _, c := range q.Clauses {
		var v string
		switch c.Field {
		case FieldLabel:
			v = string(m.Label)
		case FieldFolder:
			v = m.Folder
		case FieldAccount:
			v = m.Account
		default:
			return false
		}
		switch c.Match {
		case MatchPhrase:
			if !strings.Contains(strings.ToLower(v), strings.ToLower(c.Value)) {
				return false
			}
		default:
			if v != c.Value {
				return false
			}
		}
	}
	return true
}

// VectorRecord is one entry of a vector collection
type VectorRecord struct {
	ID       string
	Vector   []float32
	Document string
}

// VectorMatch is a query result with its distance to the query vector
type VectorMatch struct {
	ID       string
	Document string
	Distance float64
}
