package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMessageKey(t *testing.T) {
	date := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)
	a := Message{Account: "a@x.com", Date: date, Subject: "Hello", From: "b@y.com"}

	b := a
	b.From = "other@y.com"
	b.Label = LabelSpam
	b.Body = "changed"
	assert.Equal(t, a.Key(), b.Key(), "key depends only on account, date and subject")

	c := a
	c.Date = date.In(time.FixedZone("CEST", 2*3600))
	assert.Equal(t, a.Key(), c.Key(), "same instant in another zone")

	d := a
	d.Subject = "Hello again"
	assert.NotEqual(t, a.Key(), d.Key())

	e := a
	e.Account = "z@x.com"
	assert.NotEqual(t, a.Key(), e.Key())

	// Field boundaries are unambiguous.
	f := Message{Account: "ab", Subject: "c", Date: date}
	g := Message{Account: "a", Subject: "bc", Date: date}
	assert.NotEqual(t, f.Key(), g.Key())
}

func TestMessageComplete(t *testing.T) {
	now := time.Now()
	assert.True(t, Message{Subject: "s", From: "f", Date: now}.Complete())
	assert.False(t, Message{Subject: " ", From: "f", Date: now}.Complete())
	assert.False(t, Message{Subject: "s", From: "", Date: now}.Complete())
	assert.False(t, Message{Subject: "s", From: "f"}.Complete())
}

func TestSearchQuery(t *testing.T) {
	msg := Message{Account: "Sales@Acme.com", Folder: "INBOX", Label: LabelInterested}

	assert.True(t, SearchQuery{}.Matches(msg))
	assert.True(t, SearchQuery{}.Must(FieldLabel, "Interested").Matches(msg))
	assert.False(t, SearchQuery{}.Must(FieldLabel, "interested").Matches(msg))
	assert.True(t, SearchQuery{}.Phrase(FieldAccount, "acme").Matches(msg))
	assert.False(t, SearchQuery{}.Phrase(FieldAccount, "globex").Matches(msg))
	assert.False(t, SearchQuery{}.Must(FieldLabel, "Interested").Must(FieldFolder, "Sent").Matches(msg))
	assert.False(t, SearchQuery{}.Must("subject", "x").Matches(msg))

	assert.Equal(t, MaxPageSize, SearchQuery{}.Limit())
	assert.Equal(t, 5, SearchQuery{Size: 5}.Limit())
	assert.Equal(t, MaxPageSize, SearchQuery{Size: 500}.Limit())
}
