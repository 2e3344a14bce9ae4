package extensions

import (
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	pumped "github.com/pumped-fn/pumped-core"
)

// NatsJournalExtension mirrors flow outcomes onto a NATS subject, so a
// collaborator process (a dashboard, an audit log shipper) can observe
// executions without being wired into the core as anything more than a
// consumer of this extension's published messages. The in-process journal
// (ctx.exec key replay) is unaffected; this only publishes a record of
// what already happened.
type NatsJournalExtension struct {
	pumped.BaseExtension

	conn    *nats.Conn
	subject string
}

// NewNatsJournalExtension publishes one message to subject per flow
// completion. conn is not owned by the extension; the caller drains and
// closes it.
func NewNatsJournalExtension(conn *nats.Conn, subject string) *NatsJournalExtension {
	return &NatsJournalExtension{
		BaseExtension: pumped.NewBaseExtension("nats-journal"),
		conn:          conn,
		subject:       subject,
	}
}

// journalRecord is the wire shape published for each flow completion.
type journalRecord struct {
	Flow       string `json:"flow"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	FinishedAt int64  `json:"finished_at_unix_ms"`
}

func (e *NatsJournalExtension) OnFlowEnd(execCtx *pumped.ExecutionCtx, result any, err error) error {
	name, _ := execCtx.Get(pumped.FlowName())
	flowName, _ := name.(string)

	payload, marshalErr := json.Marshal(buildJournalRecord(flowName, err))
	if marshalErr != nil {
		return marshalErr
	}

	return e.conn.Publish(e.subject, payload)
}

// buildJournalRecord is the pure part of OnFlowEnd, split out so it can be
// tested without a live NATS connection.
func buildJournalRecord(flowName string, flowErr error) journalRecord {
	rec := journalRecord{
		Flow:       flowName,
		Status:     "success",
		FinishedAt: time.Now().UnixMilli(),
	}
	if flowErr != nil {
		rec.Status = "failure"
		rec.Error = flowErr.Error()
	}
	return rec
}
