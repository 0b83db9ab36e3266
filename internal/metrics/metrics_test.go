package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBookingOp(t *testing.T) {
	before := testutil.ToFloat64(bookingOps.WithLabelValues("create", "ok"))
	BookingOp("create", "ok")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingOps.WithLabelValues("create", "ok")))
}

func TestBroadcastCounters(t *testing.T) {
	d := testutil.ToFloat64(broadcasts.WithLabelValues("delivered"))
	x := testutil.ToFloat64(broadcasts.WithLabelValues("dropped"))

	Delivered(3)
	Dropped(0)
	Dropped(1)

	assert.Equal(t, d+3, testutil.ToFloat64(broadcasts.WithLabelValues("delivered")))
	assert.Equal(t, x+1, testutil.ToFloat64(broadcasts.WithLabelValues("dropped")))
}

func TestViewerGauge(t *testing.T) {
	before := testutil.ToFloat64(viewers)
	ViewerJoined()
	ViewerJoined()
	ViewerLeft()
	assert.Equal(t, before+1, testutil.ToFloat64(viewers))
}
