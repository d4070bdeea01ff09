package main

import (
	"math/rand"
	"testing"

	"seatkeeper/internal/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSeats(t *testing.T) {
	assert.Equal(t, []string{"A-1-1", "B-2-3"}, splitSeats(" A-1-1, ,B-2-3,"))
	assert.Empty(t, splitSeats(""))
}

func TestBuildResults(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	all := buildResults(3, []string{"A-1-1", "A-1-2"}, 500, 0, rng)
	require.Len(t, all, 2)
	for i, msg := range all {
		assert.Equal(t, int64(500+i), msg.OrderID)
		assert.True(t, msg.Success)
		require.NotNil(t, msg.PaymentID)
		assert.Nil(t, msg.Reason)

		// every generated message must pass ingress validation
		body, err := msg.ToJSON()
		require.NoError(t, err)
		_, err = payments.ParsePaymentResult(body)
		assert.NoError(t, err)
	}

	failed := buildResults(3, []string{"A-1-1"}, 1, 1.0, rng)
	assert.False(t, failed[0].Success)
	require.NotNil(t, failed[0].Reason)
}
