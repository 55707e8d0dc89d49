package utils_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"tx-composer/lib/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapAndIndexOf(t *testing.T) {
	res := utils.Map([]int{1, 2, 3}, strconv.Itoa)
	assert.Equal(t, []string{"1", "2", "3"}, res)
	assert.Equal(t, 1, utils.IndexOf(res, "2"))
	assert.Equal(t, -1, utils.IndexOf(res, "4"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, utils.Clamp(-1, 0, 4))
	assert.Equal(t, 4, utils.Clamp(9, 0, 4))
	assert.Equal(t, 2, utils.Clamp(2, 0, 4))
	// empty range collapses to the lower bound
	assert.Equal(t, 0, utils.Clamp(3, 0, -1))
}

func TestPromises(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := utils.PromiseResolve(7).Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, *v)
}
