package notify

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/lootshop/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	var out, logs bytes.Buffer
	n := NewLogNotifier(&out, logging.NewText(&logs, "info"))

	require.NoError(t, n.SendOTP(context.Background(), "alice@x.com", "alice", "123456", 3*time.Minute))
	require.NoError(t, n.SendTemporaryPassword(context.Background(), "alice@x.com", "Tmp#Pass99"))

	assert.Contains(t, out.String(), "123456")
	assert.Contains(t, out.String(), "Tmp#Pass99")
	assert.NotContains(t, logs.String(), "123456")
	assert.NotContains(t, logs.String(), "Tmp#Pass99")
	assert.Contains(t, logs.String(), "to=alice@x.com")
}
