package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sioms/sioms/jobs"
)

func TestBuildTaskLedgerCheck(t *testing.T) {
	task, err := BuildTask("ledger-check", "12")
	require.NoError(t, err)
	require.Equal(t, jobs.TaskLedgerCheck, task.Type())

	var payload jobs.LedgerCheckPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(12), payload.ProductID)

	task, err = BuildTask(jobs.TaskLedgerCheck, "")
	require.NoError(t, err)
	payload = jobs.LedgerCheckPayload{}
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Zero(t, payload.ProductID)
}

func TestBuildTaskCleanupRetention(t *testing.T) {
	task, err := BuildTask("cleanup", "48h")
	require.NoError(t, err)
	require.Equal(t, jobs.TaskCleanup, task.Type())

	var payload jobs.CleanupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, 48*time.Hour, payload.IdempotencyRetention)
	require.Equal(t, 48*time.Hour, payload.NotificationRetention)
}

func TestBuildTaskRejectsBadInput(t *testing.T) {
	for _, tc := range []struct{ name, arg string }{
		{"ledger-check", "abc"},
		{"ledger-check", "0"},
		{"cleanup", "soon"},
		{"reindex", ""},
	} {
		_, err := BuildTask(tc.name, tc.arg)
		require.Error(t, err, tc.name+" "+tc.arg)
	}
}

func TestRunRequiresCommand(t *testing.T) {
	c := &JobsCLI{}
	var out bytes.Buffer
	require.Error(t, c.Run(context.Background(), nil, &out))
	require.Error(t, c.Run(context.Background(), []string{"trigger"}, &out))
	require.Error(t, c.Run(context.Background(), []string{"purge"}, &out))
	require.Error(t, c.Run(context.Background(), []string{"stats"}, &out))
}
