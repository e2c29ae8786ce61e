package app

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attendance/internal/enrollment/machine"
	"attendance/internal/enrollment/models"
	dErrors "attendance/pkg/domain-errors"
)

func TestDescribe(t *testing.T) {
	prev := machine.View{Phase: models.PhaseCapturing, Counter: "1/3", Percent: 33}

	t.Run("prints phase and counter changes", func(t *testing.T) {
		next := prev
		next.Counter, next.Percent = "2/3", 66
		assert.Equal(t, "[capturing] 2/3 (66%)", describe(prev, next))
	})

	t.Run("prints a new notice once", func(t *testing.T) {
		next := prev
		next.Notice, next.NoticeLevel = "Place finger again", machine.LevelInfo
		assert.Equal(t, "info: Place finger again", describe(prev, next))
		assert.Empty(t, describe(next, next))
	})

	t.Run("prints the reset countdown", func(t *testing.T) {
		next := machine.View{Phase: models.PhaseCancelled, Counter: "0/3", Countdown: 3}
		last := next
		last.Countdown = 4
		assert.Equal(t, "next enrollment available in 3s", describe(last, next))
	})
}

func TestTerminalUpdateWakesDriver(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out, strings.NewReader(""), false)

	term.Update(machine.View{Phase: models.PhaseLocking, Counter: "0/3"})
	term.Update(machine.View{Phase: models.PhaseListening, Counter: "0/3"})

	// one pending wake-up no matter how many views arrived
	assert.Len(t, term.changes, 1)
	assert.Contains(t, out.String(), "[locking] 0/3 (0%)")
	assert.Contains(t, out.String(), "[listening] 0/3 (0%)")
}

func TestConfirmReplacement(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		assumeYes bool
		want      bool
	}{
		{name: "yes", input: "y\n", want: true},
		{name: "full word", input: " YES \n", want: true},
		{name: "anything else declines", input: "sure\n", want: false},
		{name: "end of input declines", input: "", want: false},
		{name: "assume yes skips the prompt", input: "", assumeYes: true, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			term := newTerminal(&out, strings.NewReader(tt.input), tt.assumeYes)
			got := term.ConfirmReplacement(context.Background(), "Dr. Okafor")
			assert.Equal(t, tt.want, got)
			assert.Contains(t, out.String(), "registered by Dr. Okafor")
		})
	}

	t.Run("gives up when the context ends", func(t *testing.T) {
		r, w := io.Pipe()
		defer w.Close()
		term := newTerminal(&bytes.Buffer{}, r, false)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.False(t, term.ConfirmReplacement(ctx, ""))
	})
}

func TestPlayRingsBell(t *testing.T) {
	var out bytes.Buffer
	term := newTerminal(&out, strings.NewReader(""), false)

	require.NoError(t, term.Play(context.Background(), machine.CueCapture))
	assert.Empty(t, out.String(), "no bell when output is not a terminal")

	term.bell = true
	require.NoError(t, term.Play(context.Background(), machine.CueCapture))
	require.NoError(t, term.Play(context.Background(), machine.CueError))
	assert.Equal(t, "\a\a\a", out.String())
}

func TestParseCourses(t *testing.T) {
	got, err := parseCourses(" 101, 102,,101 ")
	require.NoError(t, err)
	assert.Equal(t, []models.CourseID{101, 102}, got)

	got, err = parseCourses("")
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = parseCourses("101,abc")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = parseCourses("0")
	assert.Error(t, err)
}
