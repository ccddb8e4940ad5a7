package telemetry

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogCapture_KeepsMostRecent(t *testing.T) {
	lc := NewLogCapture(3)

	for i := 1; i <= 5; i++ {
		_, err := fmt.Fprintf(lc, "line %d\n", i)
		require.NoError(t, err)
	}

	all := lc.GetAllLogs()
	require.Len(t, all, 3)
	require.Equal(t, "line 3\n", all[0].Message)
	require.Equal(t, "line 5\n", all[2].Message)

	recent := lc.GetRecentLogs(2)
	require.Len(t, recent, 2)
	require.Equal(t, "line 4\n", recent[0].Message)

	require.Len(t, lc.GetRecentLogs(10), 3)
}

func TestLogCapture_WritersAndCallback(t *testing.T) {
	lc := NewLogCapture(10)

	var buf bytes.Buffer
	lc.AddWriter(&buf)

	var seen []string
	lc.SetLogCallback(func(entry LogEntry) {
		seen = append(seen, entry.Message)
	})

	_, err := lc.Write([]byte("hello\n"))
	require.NoError(t, err)

	require.Equal(t, "hello\n", buf.String())
	require.Equal(t, []string{"hello\n"}, seen)

	lc.SetLogCallback(nil)
	_, err = lc.Write([]byte("again\n"))
	require.NoError(t, err)
	require.Len(t, seen, 1, "Removed callback must not fire")
}

func TestLogCapture_ReturnsCopies(t *testing.T) {
	lc := NewLogCapture(5)
	lc.Write([]byte("original"))

	logs := lc.GetAllLogs()
	logs[0].Message = "mutated"

	require.Equal(t, "original", lc.GetAllLogs()[0].Message)
}
