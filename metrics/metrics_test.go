package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	r := prometheus.NewRegistry()
	Register(r)
	Register(r)
	assert.Equal(t, r, GetRegisterer())

	ObserveCodec("flatbuffers", MarshalLabel, 128, nil)
	ObserveVtables(1, 0)
	VerifyFailures.Inc()

	families, err := r.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "flatcore_codec_bytes")
	assert.Contains(t, names, "flatcore_codec_ops_total")
	assert.Contains(t, names, "flatcore_vtables_total")
	assert.Contains(t, names, "flatcore_verify_failures_total")
}

func TestObserve(t *testing.T) {
	before := testutil.ToFloat64(CodecOps.WithLabelValues("test", UnmarshalLabel, FailLabel))
	ObserveCodec("test", UnmarshalLabel, 0, errors.New("boom"))
	assert.Equal(t, before+1, testutil.ToFloat64(CodecOps.WithLabelValues("test", UnmarshalLabel, FailLabel)))

	written := testutil.ToFloat64(Vtables.WithLabelValues(WrittenLabel))
	reused := testutil.ToFloat64(Vtables.WithLabelValues(ReusedLabel))
	ObserveVtables(2, 3)
	ObserveVtables(0, 0)
	assert.Equal(t, written+2, testutil.ToFloat64(Vtables.WithLabelValues(WrittenLabel)))
	assert.Equal(t, reused+3, testutil.ToFloat64(Vtables.WithLabelValues(ReusedLabel)))
}
