package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

func TestLogWithDetail_WritesAuditFields(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewWithWriter(log.Config{Level: "info", ServiceName: "dm-test"}, &buf)
	ctx := log.WithLogger(context.Background(), logger)

	LogWithDetail(ctx, ActionSendMessage, "alice", "bob", "message sent")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, log.LogTypeAudit, entry[log.FieldLogType])
	require.Equal(t, ActionSendMessage, entry[FieldAction])
	require.Equal(t, "alice", entry[log.FieldUsername])
	require.Equal(t, "bob", entry[FieldDetail])
	require.Equal(t, "message sent", entry["message"])
}
