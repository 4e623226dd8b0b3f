package dial

import (
	"bytes"
	"context"
	"testing"

	"github.com/Daskott/safecall/server/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialReturnsTelIntent(t *testing.T) {
	dialer := NewIntentDialer(logger.NewNop())

	intent, err := dialer.Dial(context.Background(), " +1-555-0101 ", "John Doe")
	require.Nil(t, err)
	assert.Equal(t, CallIntent, intent.Kind)
	assert.Equal(t, "tel:+1-555-0101", intent.URI)
	assert.Equal(t, "Calling John Doe...", intent.Notice)
}

func TestTextReturnsHomeNotice(t *testing.T) {
	dialer := NewIntentDialer(logger.NewNop())

	intent, err := dialer.Text(context.Background(), "741741", "Crisis Text Line")
	require.Nil(t, err)
	assert.Equal(t, TextIntent, intent.Kind)
	assert.Empty(t, intent.URI)
	assert.Equal(t, "Text \"HOME\" to 741741 for crisis support", intent.Notice)
}

func TestDialRequiresNumber(t *testing.T) {
	dialer := NewIntentDialer(logger.NewNop())

	_, err := dialer.Dial(context.Background(), "  ", "nobody")
	assert.Equal(t, ErrEmptyNumber, err)

	_, err = dialer.Text(context.Background(), "", "nobody")
	assert.Equal(t, ErrEmptyNumber, err)
}

func TestTerminalClipboard(t *testing.T) {
	buff := new(bytes.Buffer)

	err := TerminalClipboard{Out: buff}.WriteText("1.000000, 2.000000")
	require.Nil(t, err)
	assert.Equal(t, "\x1b]52;c;MS4wMDAwMDAsIDIuMDAwMDAw\x07", buff.String())
}
