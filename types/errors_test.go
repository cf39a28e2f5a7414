package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	base := errors.New("boom")

	assert.True(t, IsTransient(Transient(base)))
	assert.False(t, IsPermanent(Transient(base)))

	assert.True(t, IsPermanent(Permanent(base)))
	assert.False(t, IsTransient(Permanent(base)))

	nf := &NotFoundError{ResourceID: "i-1"}
	assert.True(t, IsNotFound(nf))
	assert.False(t, IsTransient(nf))
	assert.False(t, IsPermanent(nf))
}

func TestUnclassifiedErrorIsTransient(t *testing.T) {
	assert.True(t, IsTransient(errors.New("mystery")))
	assert.False(t, IsTransient(nil))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	wrapped := fmt.Errorf("delete failed: %w", Permanent(errors.New("denied")))
	assert.True(t, IsPermanent(wrapped))

	wrappedNF := fmt.Errorf("outer: %w", &NotFoundError{ResourceID: "x"})
	assert.True(t, IsNotFound(wrappedNF))
}

func TestNilWrappersStayNil(t *testing.T) {
	assert.NoError(t, Transient(nil))
	assert.NoError(t, Permanent(nil))
}

func TestScopeString(t *testing.T) {
	s := Scope{AccountID: "123456789012", Region: "us-east-1"}
	assert.Equal(t, "123456789012/us-east-1", s.String())
}

func TestOutcomeKey(t *testing.T) {
	o := Outcome{
		ResourceID: "i-1",
		Type:       "ec2_instance",
		Scope:      Scope{AccountID: "123456789012", Region: "us-east-1"},
	}
	assert.Equal(t, "123456789012/us-east-1/ec2_instance/i-1", o.Key())
}

func TestStatusTerminal(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusAttempting.Terminal())
	for _, s := range []OutcomeStatus{StatusDeleted, StatusFailed, StatusSkipped, StatusProtected} {
		assert.True(t, s.Terminal(), string(s))
	}
}

func TestTotalsAdd(t *testing.T) {
	var totals Totals
	totals.Add(StatusDeleted)
	totals.Add(StatusDeleted)
	totals.Add(StatusFailed)
	totals.Add(StatusAttempting) // not terminal, not counted

	assert.Equal(t, Totals{Deleted: 2, Failed: 1}, totals)
	assert.Equal(t, 3, totals.Sum())
}
