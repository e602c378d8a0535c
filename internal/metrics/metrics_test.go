package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecode(t *testing.T) {
	success := testutil.ToFloat64(DecodesTotal.WithLabelValues("cfg", "success"))
	failed := testutil.ToFloat64(DecodesTotal.WithLabelValues("cfg", "error"))
	malformed := testutil.ToFloat64(DecodeErrors.WithLabelValues("cfg", "malformed_line"))

	ObserveDecode("cfg", 10, time.Now(), nil, nil)
	ObserveDecode("cfg", 10, time.Now(), errors.New("bad"), func(error) string { return "malformed_line" })

	assert.Equal(t, success+1, testutil.ToFloat64(DecodesTotal.WithLabelValues("cfg", "success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(DecodesTotal.WithLabelValues("cfg", "error")))
	assert.Equal(t, malformed+1, testutil.ToFloat64(DecodeErrors.WithLabelValues("cfg", "malformed_line")))
}

func TestObserveDecode_NoNamer(t *testing.T) {
	before := testutil.ToFloat64(DecodeErrors.WithLabelValues("inf", "unknown"))
	ObserveDecode("inf", 0, time.Now(), errors.New("x"), nil)
	assert.Equal(t, before+1, testutil.ToFloat64(DecodeErrors.WithLabelValues("inf", "unknown")))
}
