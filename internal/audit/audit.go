package audit

import (
	"context"

	"github.com/weiawesome/wes-io-live/dm-service/pkg/log"
)

// Audit actions for dm-service.
const (
	ActionConnect     = "dm.connect"
	ActionConnectFail = "dm.connect_failed"
	ActionDisconnect  = "dm.disconnect"
	ActionSendMessage = "dm.send_message"
	ActionSendFailed  = "dm.send_failed"
	ActionLogin       = "dm.login"
)

// Field constants for audit entries.
const (
	FieldAction = "action"
	FieldDetail = "detail"
)

// Log emits a structured audit log entry via the context logger.
func Log(ctx context.Context, action string, username string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Msg(msg)
}

// LogWithDetail emits an audit log with extra detail field.
func LogWithDetail(ctx context.Context, action string, username string, detail string, msg string) {
	l := log.Ctx(ctx)
	l.Info().
		Str(log.FieldLogType, log.LogTypeAudit).
		Str(FieldAction, action).
		Str(log.FieldUsername, username).
		Str(FieldDetail, detail).
		Msg(msg)
}
