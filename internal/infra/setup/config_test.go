package setup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildDSN(t *testing.T) {
	dsn, err := buildDSN("hunter", "pw", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "hunter:pw@tcp(127.0.0.1:3306)/hunt_db?charset=utf8mb4&parseTime=True&loc=Local", dsn)

	_, err = buildDSN("", "pw", "db", "3306", "x")
	assert.Error(t, err, "缺少用户名时应报错")
}
