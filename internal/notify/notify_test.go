package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_PicksImplementation(t *testing.T) {
	_, isLog := New("", "from@x.com", "Tasks").(LogNotifier)
	assert.True(t, isLog)

	_, isSendGrid := New("SG.key", "from@x.com", "Tasks").(*SendGrid)
	assert.True(t, isSendGrid)
}

func TestMessages(t *testing.T) {
	w := Welcome("ann@x.com", "Ann")
	assert.Equal(t, "ann@x.com", w.ToEmail)
	assert.Contains(t, w.Body, "Ann")

	g := Goodbye("ann@x.com", "Ann")
	assert.Equal(t, "Ann", g.ToName)
	assert.NotEqual(t, w.Subject, g.Subject)
}

func TestLogNotifier_NeverFails(t *testing.T) {
	require.NoError(t, LogNotifier{}.Send(context.Background(), Welcome("a@b.c", "A")))
}
