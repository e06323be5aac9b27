package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceKey(t *testing.T) {
	assert.Equal(t, "cg:lastPrice:bitcoin", priceKey("bitcoin"))
	assert.Equal(t, "cg:lastPrice:the-open-network", priceKey("the-open-network"))
}

func TestPriceFieldsRoundTrip(t *testing.T) {
	ts := time.Unix(1700000000, 42)
	fields := priceFields(64000.125, ts)
	assert.Equal(t, "64000.125", fields["price"])
	assert.Equal(t, "1700000000000000042", fields["ts"])

	p, ok := parsePrice(map[string]string{"price": fields["price"].(string)})
	require.True(t, ok)
	assert.Equal(t, 64000.125, p)
}

func TestParsePriceRejectsBadValues(t *testing.T) {
	cases := []map[string]string{
		{},
		{"ts": "1"},
		{"price": "abc"},
		{"price": "0"},
		{"price": "-3"},
		{"price": "NaN"},
	}
	for _, vals := range cases {
		_, ok := parsePrice(vals)
		assert.False(t, ok, "vals=%v", vals)
	}
}
