package checkout_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jcmexdev/bookshop-checkout/internal/checkout"
)

func TestCustomOrderID(t *testing.T) {
	date := time.Date(2026, time.March, 7, 10, 30, 0, 0, time.UTC)

	assert.Equal(t, "ORD-20260307-QvTm41", checkout.CustomOrderID(date, "pay_9HxKQvTm41"))
	assert.Equal(t, "ORD-20260307-abc", checkout.CustomOrderID(date, "abc"),
		"short payment ids are used whole")
}
