package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainerEvent_Classification(t *testing.T) {
	tests := []struct {
		status     string
		terminal   bool
		successful bool
	}{
		{status: "die", terminal: true, successful: true},
		{status: "kill", terminal: true, successful: false},
		{status: "oom", terminal: true, successful: false},
		{status: "start", terminal: false, successful: false},
		{status: "create", terminal: false, successful: false},
		{status: "health_status: healthy", terminal: false, successful: false},
		// whole-string matches only
		{status: "died", terminal: false, successful: false},
		{status: "xkill", terminal: false, successful: false},
		{status: "DIE", terminal: false, successful: false},
		{status: "", terminal: false, successful: false},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			event := NewContainerEvent(tt.status, "abc123", 1700000000, 0, nil)

			assert.Equal(t, tt.terminal, event.IsExitStatus())
			assert.Equal(t, tt.successful, event.IsSuccessful())
			assert.Equal(t, tt.terminal, IsExitStatus(tt.status))
			assert.Equal(t, tt.successful, IsSuccessfulStatus(tt.status))
		})
	}
}

func TestContainerEvent_ExitCode(t *testing.T) {
	t.Run("terminal with exit code", func(t *testing.T) {
		event := NewContainerEvent("die", "abc", 1, 0, map[string]string{"exitCode": "1"})

		code, ok := event.ExitCode()
		assert.True(t, ok)
		assert.Equal(t, "1", code)
	})

	t.Run("terminal without exit code", func(t *testing.T) {
		event := NewContainerEvent("kill", "abc", 1, 0, map[string]string{"signal": "9"})

		code, ok := event.ExitCode()
		assert.True(t, ok)
		assert.Equal(t, "", code)
	})

	t.Run("non terminal ignores attribute", func(t *testing.T) {
		event := NewContainerEvent("start", "abc", 1, 0, map[string]string{"exitCode": "0"})

		code, ok := event.ExitCode()
		assert.False(t, ok)
		assert.Equal(t, "", code)
	})
}

func TestNewContainerEvent_NilAttributes(t *testing.T) {
	event := NewContainerEvent("start", "abc", 1, 0, nil)

	attrs := event.Attributes()
	require.NotNil(t, attrs)
	assert.Empty(t, attrs)
}

func TestNewContainerEvent_CopiesAttributes(t *testing.T) {
	original := map[string]string{"exitCode": "0", "name": "worker"}
	event := NewContainerEvent("die", "abc", 1, 0, original)

	original["exitCode"] = "137"
	original["extra"] = "x"
	delete(original, "name")

	assert.Equal(t, map[string]string{"exitCode": "0", "name": "worker"}, event.Attributes())

	// mutating the returned map does not leak back either
	returned := event.Attributes()
	returned["exitCode"] = "2"
	code, _ := event.ExitCode()
	assert.Equal(t, "0", code)
}

func TestContainerEvent_Timestamp(t *testing.T) {
	seconds := NewContainerEvent("start", "abc", 1700000000, 0, nil)
	assert.Equal(t, time.Unix(1700000000, 0), seconds.Timestamp())

	nanos := NewContainerEvent("start", "abc", 1700000000, 1700000000123456789, nil)
	assert.Equal(t, time.Unix(0, 1700000000123456789), nanos.Timestamp())
}

func TestContainerEventBuilder(t *testing.T) {
	builder := NewContainerEventBuilder().
		Status("die").
		ContainerID("c1").
		Time(10).
		TimeNano(10000000001).
		Attributes(map[string]string{"image": "busybox"}).
		Attribute("exitCode", "3")

	event := builder.Build()
	builder.Attribute("exitCode", "4")

	assert.Equal(t, "die", event.Status())
	assert.Equal(t, "c1", event.ContainerID())
	assert.Equal(t, int64(10), event.Time())
	assert.Equal(t, int64(10000000001), event.TimeNano())
	v, ok := event.Attribute("image")
	assert.True(t, ok)
	assert.Equal(t, "busybox", v)
	code, ok := event.ExitCode()
	assert.True(t, ok)
	assert.Equal(t, "3", code)
}
