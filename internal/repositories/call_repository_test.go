package repositories

import (
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolationDetection(t *testing.T) {
	assert.True(t, uniqueViolation(&pq.Error{Code: "23505"}))
	assert.False(t, uniqueViolation(&pq.Error{Code: "23503"}))
	assert.False(t, uniqueViolation(errors.New("connection refused")))
	assert.False(t, uniqueViolation(nil))
}
