package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromHeaders(t *testing.T) {
	p, err := FromHeaders("42", "true", "7")
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.UserID)
	assert.True(t, p.Staff)
	require.NotNil(t, p.EmployeeID)
	assert.Equal(t, int64(7), *p.EmployeeID)

	p, err = FromHeaders("5", "", "")
	require.NoError(t, err)
	assert.False(t, p.Staff)
	assert.Nil(t, p.EmployeeID)

	_, err = FromHeaders("", "", "")
	assert.Error(t, err)
	_, err = FromHeaders("5", "", "x")
	assert.Error(t, err)
}

func TestOwns(t *testing.T) {
	assert.True(t, User(1).Owns(1))
	assert.False(t, User(1).Owns(2))
	assert.True(t, Employee(9, 3).Owns(2))
}
