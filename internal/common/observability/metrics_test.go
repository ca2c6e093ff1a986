package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WithoutJaeger(t *testing.T) {
	o, err := New("portal-test", "")
	require.NoError(t, err)
	defer o.Shutdown()

	ctx, span := o.StartSpan(context.Background(), "proposal.submit")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	assert.NotPanics(t, func() {
		o.RecordOperation(ctx, "proposal.submit", "ok", 15*time.Millisecond)
	})
}
