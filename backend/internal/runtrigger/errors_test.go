package runtrigger

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorStatusCodes(t *testing.T) {
	assert.Equal(t, 400, (&ValidationError{Message: "bad"}).StatusCode())
	assert.Equal(t, 402, (&OutOfEntitlementError{OrganizationID: "org_1"}).StatusCode())
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "VALIDATION_ERROR", ErrorCode(&ValidationError{Message: "bad"}))
	assert.Equal(t, "OUT_OF_ENTITLEMENT", ErrorCode(&OutOfEntitlementError{OrganizationID: "org_1"}))
	assert.Equal(t, "INTERNAL_ERROR", ErrorCode(assert.AnError))
}
