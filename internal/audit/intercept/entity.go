package intercept

import (
	"context"

	"chronicle/internal/audit"
	"chronicle/internal/audit/classify"
	"chronicle/internal/content/documents"
	"chronicle/pkg/requestcontext"
)

// operationActions maps documents actions to raw persistence operations.
// Reads are never audited.
var operationActions = map[documents.Action]audit.Operation{
	documents.ActionCreate: audit.OperationCreate,
	documents.ActionUpdate: audit.OperationUpdate,
	documents.ActionDelete: audit.OperationDelete,
}

// EntityMiddleware returns the documents middleware that captures entity
// mutations. It always calls next first and only enqueues after the
// operation has succeeded, so aborted writes leave no trace.
func EntityMiddleware(classifier *classify.Classifier, queue Queue) documents.Middleware {
	return func(ctx context.Context, op *documents.Operation, next documents.Next) error {
		if err := next(ctx); err != nil {
			return err
		}

		// Own anti-recursion check, independent of the classifier's.
		if op.UID == audit.RecordUID {
			return nil
		}

		operation, audited := operationActions[op.Action]
		if !audited {
			return nil
		}

		desc := audit.Descriptor{UID: op.UID, Operation: operation}
		if obs := ObservationFrom(ctx); obs != nil {
			desc.Endpoint = obs.Endpoint
			desc.Method = obs.Method
		}

		action, ok := classifier.Classify(desc)
		if !ok {
			return nil
		}

		queue.Enqueue(audit.Event{
			Action:    action,
			Payload:   entityPayload(op),
			Actor:     requestcontext.ActorFrom(ctx),
			Endpoint:  desc.Endpoint,
			Method:    desc.Method,
			IPAddress: requestcontext.ClientIP(ctx),
			UserAgent: requestcontext.UserAgent(ctx),
		})
		return nil
	}
}

func entityPayload(op *documents.Operation) map[string]any {
	payload := map[string]any{"uid": op.UID}
	if op.Result != nil {
		payload["documentId"] = op.Result.ID
		payload["entity"] = op.Result.Data
	} else if op.DocumentID != "" {
		payload["documentId"] = op.DocumentID
	}
	if len(op.Data) > 0 {
		payload["data"] = op.Data
	}
	return payload
}
