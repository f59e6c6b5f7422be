package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskStartsNotStarted(t *testing.T) {
	task := New(TaskCreate, ServiceAccountPayload{Name: "svc-a"})
	assert.Equal(t, StatusNotStarted, task.Status)
	assert.Equal(t, ObjectServiceAccount, task.Object)
	assert.Equal(t, TaskCreate, task.Type)
}

func TestSetStatusTransitions(t *testing.T) {
	tests := []struct {
		name    string
		first   Status
		second  Status
		wantErr bool
	}{
		{name: "not started to success", first: StatusSuccess},
		{name: "not started to failed", first: StatusFailed},
		{name: "success is final", first: StatusSuccess, second: StatusFailed, wantErr: true},
		{name: "failed is final", first: StatusFailed, second: StatusSuccess, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLedger()
			seq := l.Add(New(TaskCreate, ServiceAccountPayload{Name: "svc-a"}))

			require.NoError(t, l.SetStatus(seq, tt.first, "first", nil))
			if tt.second == "" {
				return
			}
			err := l.SetStatus(seq, tt.second, "second", nil)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSetStatusRejectsNotStartedTarget(t *testing.T) {
	l := NewLedger()
	seq := l.Add(New(TaskCreate, ServiceAccountPayload{Name: "svc-a"}))
	assert.Error(t, l.SetStatus(seq, StatusNotStarted, "no-op", nil))
}

func TestSetStatusMergesPayload(t *testing.T) {
	l := NewLedger()
	seq := l.Add(New(TaskCreate, ServiceAccountPayload{Name: "svc-a", Description: "desc"}))

	require.NoError(t, l.SetStatus(seq, StatusSuccess, "created", ServiceAccountPayload{
		Name:        "svc-a",
		Description: "desc",
		ResourceID:  "sa-123",
	}))

	task, err := l.Get(seq)
	require.NoError(t, err)
	payload, ok := task.Payload.(ServiceAccountPayload)
	require.True(t, ok)
	assert.Equal(t, "sa-123", payload.ResourceID)
	assert.Equal(t, "created", task.StatusMessage)
}

func TestSetStatusKeepsPayloadWhenNil(t *testing.T) {
	l := NewLedger()
	seq := l.Add(New(TaskDelete, APIKeyPayload{SAName: "svc-a", KeyID: "AAA111"}))

	require.NoError(t, l.SetStatus(seq, StatusFailed, "boom", nil))

	task, err := l.Get(seq)
	require.NoError(t, err)
	payload := task.Payload.(APIKeyPayload)
	assert.Equal(t, "AAA111", payload.KeyID)
}

func TestPendingAndFailed(t *testing.T) {
	l := NewLedger()
	first := l.Add(
		New(TaskCreate, ServiceAccountPayload{Name: "a"}),
		New(TaskCreate, ServiceAccountPayload{Name: "b"}),
		New(TaskDelete, ServiceAccountPayload{Name: "c"}),
	)
	require.Equal(t, 0, first)
	require.Equal(t, 3, l.Len())

	require.NoError(t, l.SetStatus(1, StatusFailed, "boom", nil))
	assert.Equal(t, []int{0, 2}, l.Pending())
	assert.Equal(t, 1, l.Failed())
}

func TestFilterByTaskType(t *testing.T) {
	l := NewLedger()
	l.Add(
		New(TaskCreate, ServiceAccountPayload{Name: "a"}),
		New(TaskDelete, ServiceAccountPayload{Name: "b"}),
		New(TaskCreate, APIKeyPayload{SAName: "a", ClusterID: "lkc-1"}),
	)

	creates := l.Filter(TaskCreate)
	require.Len(t, creates, 2)
	assert.Equal(t, ObjectServiceAccount, creates[0].Object)
	assert.Equal(t, ObjectAPIKey, creates[1].Object)
}

func TestGetOutOfRange(t *testing.T) {
	l := NewLedger()
	_, err := l.Get(0)
	assert.Error(t, err)
	assert.Error(t, l.SetStatus(5, StatusSuccess, "", nil))
}
