package admin

import (
	"context"
	"encoding/json"
	"time"

	"hubevents/pkg/herrors"
	"hubevents/pkg/hubevents"
	"hubevents/pkg/httpx"
	"hubevents/pkg/ingest/queue"
	"hubevents/pkg/logger"
)

// submitBody is the wire shape accepted by the submit endpoint: a single
// candidate event destined for the commit path, buffered through the
// bounded ingest queue ahead of the synchronous commit slot.
type submitBody struct {
	Kind         string `json:"kind"`
	Account      uint64 `json:"account"`
	Set          int    `json:"set"`
	TsTimestamp  uint32 `json:"ts_timestamp"`
	TsHash       []byte `json:"ts_hash"`
	StorageUnits uint32 `json:"storage_units"`
	Payload      []byte `json:"payload"`
}

var kindToHandler = map[hubevents.EventKind]queue.HandlerID{
	hubevents.EventKindMergeMessage:       queue.HandlerMergeMessage,
	hubevents.EventKindPruneMessage:       queue.HandlerPruneMessage,
	hubevents.EventKindRevokeMessage:      queue.HandlerRevokeMessage,
	hubevents.EventKindMergeUsernameProof: queue.HandlerMergeUsernameProof,
	hubevents.EventKindMergeOnChainEvent:  queue.HandlerMergeOnChainEvent,
}

var handlerToKind = func() map[queue.HandlerID]hubevents.EventKind {
	m := make(map[queue.HandlerID]hubevents.EventKind, len(kindToHandler))
	for k, v := range kindToHandler {
		m[v] = k
	}
	return m
}()

// startIngestWorkers launches n workers draining q and committing each op
// against svc. Workers exit when stop is closed.
func startIngestWorkers(ctx context.Context, svc *hubevents.Service, q *queue.Queue, n int) {
	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	for i := 0; i < n; i++ {
		go q.RunWorker(stop, func(op *queue.Op) error {
			if op.SubmittedAtUnixNano > 0 {
				waited := time.Since(time.Unix(0, op.SubmittedAtUnixNano))
				logger.Debug("ingest_dequeued", "queued_for", waited)
			}
			kind, ok := handlerToKind[op.Handler]
			if !ok {
				logger.Error("ingest_unknown_handler", "handler", op.Handler)
				return herrors.InvalidParam("unknown ingest handler %q", op.Handler)
			}
			var body submitBody
			if err := json.Unmarshal(op.Payload, &body); err != nil {
				logger.Error("ingest_decode_failed", "error", err)
				return err
			}
			args := hubevents.EventArgs{
				Kind:         kind,
				Account:      body.Account,
				Set:          hubevents.SetTag(body.Set),
				TsHash:       hubevents.MakeTsHash(body.TsTimestamp, body.TsHash),
				StorageUnits: body.StorageUnits,
				Payload:      body.Payload,
			}
			if _, err := svc.Commit(svc.DB.NewBatch(), args); err != nil {
				logger.Error("ingest_commit_failed", "error", err)
				return err
			}
			return nil
		})
	}
}

func (s *Server) submitHandler(w httpx.ResponseWriter, r *httpx.Request) {
	var body submitBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, herrors.InvalidParam("invalid submit body: %v", err))
		return
	}
	kind, ok := hubevents.ParseEventKind(body.Kind)
	if !ok {
		writeError(w, herrors.InvalidParam("unknown event kind %q", body.Kind))
		return
	}
	h, ok := kindToHandler[kind]
	if !ok {
		writeError(w, herrors.InvalidParam("unsupported event kind %q", body.Kind))
		return
	}

	raw, err := json.Marshal(body)
	if err != nil {
		writeError(w, herrors.InvalidParam("invalid submit body: %v", err))
		return
	}
	op := &queue.Op{Handler: h, Payload: raw, SubmittedAtUnixNano: time.Now().UnixNano()}
	if err := s.ingestQueue.TryEnqueue(op); err != nil {
		writeError(w, herrors.TooBusy(err.Error()))
		return
	}
	writeJSON(w, 202, map[string]string{"status": "queued"})
}
