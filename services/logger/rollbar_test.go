package logsvc

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core"
)

func TestRollbarLogger(t *testing.T) {
	conf := core.NewTestConfig()

	tests := []struct {
		name      string
		debug     bool
		log       func(l *RollbarLogger)
		wantLines []string
	}{
		{
			name:      "info",
			log:       func(l *RollbarLogger) { l.Info("hello") },
			wantLines: []string{"hello"},
		},
		{
			name: "debug is hidden",
			log:  func(l *RollbarLogger) { l.Debug("hello") },
		},
		{
			name:      "debug in debug mode",
			debug:     true,
			log:       func(l *RollbarLogger) { l.Debug("hello") },
			wantLines: []string{"hello"},
		},
		{
			name: "error with args",
			log: func(l *RollbarLogger) {
				l.Error("boom", errors.New("bad thing"), core.LogPerson{ID: "1", Username: "t"})
			},
			wantLines: []string{"boom", "bad thing", "{ID:1 Username:t Email:}"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := *conf
			c.Debug = tt.debug
			l := NewRollbarLogger(log.New(&buf, "", 0), &c)

			tt.log(l)

			var want string
			for _, line := range tt.wantLines {
				want += line + "\n"
			}
			assert.Equal(t, want, buf.String())
		})
	}
}
