package console

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"adjpeg/pkg/config"
)

func TestVerbosityGating(t *testing.T) {
	tests := []struct {
		verbosity config.Verbosity
		wantInfo  bool
		wantDebug bool
	}{
		{config.Quiet, false, false},
		{config.Normal, true, false},
		{config.Debug, true, true},
	}

	for _, tc := range tests {
		t.Run(tc.verbosity.String(), func(t *testing.T) {
			var buf bytes.Buffer
			log := New(&buf, tc.verbosity, true)

			log.Infof("info %d", 1)
			log.Debugf("debug %d", 2)
			log.Errorf("error %d", 3)

			out := buf.String()
			assert.Equal(t, tc.wantInfo, bytes.Contains(buf.Bytes(), []byte("[*] info 1")), out)
			assert.Equal(t, tc.wantDebug, bytes.Contains(buf.Bytes(), []byte("[d] debug 2")), out)
			assert.Contains(t, out, "[-] error 3")
		})
	}
}

func TestNoColorOutputIsPlain(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, config.Normal, true)
	log.Successf("done")
	log.Warningf("careful")
	log.Alertf("tampered")
	assert.Equal(t, "[+] done\n[!] careful\n[!!!] tampered\n", buf.String())
}

func TestNilLoggerDiscards(t *testing.T) {
	var log *Logger
	assert.NotPanics(t, func() {
		log.Infof("x")
		log.Debugf("x")
		log.Errorf("x")
		log.Printf("x")
	})
	assert.False(t, log.DebugEnabled())
	assert.Equal(t, config.Quiet, log.Verbosity())
}
