package mailbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestListenerRecordResultTrimsRingBuffer(t *testing.T) {
	l := &Listener{}

	for i := 0; i < recentResultsCap+10; i++ {
		l.recordResult(Result{EmailID: int64(i)})
	}

	assert.Equal(t, recentResultsCap+10, l.totalProcessed)
	assert.Len(t, l.recentResults, recentResultsCap)
	// the oldest 10 results should have been trimmed off the front
	assert.Equal(t, int64(10), l.recentResults[0].EmailID)
	assert.Equal(t, int64(recentResultsCap+9), l.recentResults[len(l.recentResults)-1].EmailID)
}

func TestListenerStatusSnapshot(t *testing.T) {
	l := &Listener{}
	l.setConnected("push", "recruiting@example.com")
	l.recordResult(Result{EmailID: 1, Subject: "Application for Backend Engineer"})

	status := l.Status()
	assert.True(t, status.Connected)
	assert.Equal(t, "push", status.Mode)
	assert.Equal(t, "recruiting@example.com", status.EmailAddress)
	assert.Len(t, status.RecentResults, 1)

	l.setDisconnected()
	assert.False(t, l.Status().Connected)
}

func TestSnippetTruncatesLongBody(t *testing.T) {
	body := make([]byte, 600)
	for i := range body {
		body[i] = 'a'
	}
	assert.Len(t, snippet(string(body), 500), 500)
	assert.Equal(t, "short", snippet("short", 500))
}
